/*
Package registry resolves discriminator values to concrete subtypes.

A single table stores rows of several subtypes; the discriminator column
says which. Resolution never loads a type by name at runtime. Instead a
Catalog of constructors is populated at startup and resolvers look
descriptors up in it.

Explicit map:

	catalog := registry.NewCatalog[sti.Entity]()
	catalog.MustRegister(`Epiphyte\Entities\Widgets\NewWidget`, func() sti.Entity { return &NewWidget{} })

	resolver, err := registry.NewMapResolverFromCatalog(`Epiphyte\Widget`,
	    map[string]string{"new": `Epiphyte\Entities\Widgets\NewWidget`}, catalog)

Naming convention:

	// "suspended" under base "User" derives "Users.UserSuspended"
	catalog.MustRegister("Users.UserSuspended", func() sti.Entity { return &UserSuspended{} })
	resolver, err := registry.NewConventionResolver("User", []string{"suspended"}, catalog)

Both strategies fail with errors.UnknownDiscriminatorError for a missing or
unregistered value.

Index Map Registry:
Associates a base type with the key templates used by key-value engines:

	registry.RegisterIndexMap(`Epiphyte\Widget`, map[string]string{
	    "PK": "WIDGET#{id}",
	    "SK": "WIDGET#{id}",
	})

Registries should be populated during initialization and are read-only
afterwards.
*/
package registry
