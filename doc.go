/*
Package sti maps the rows of a single shared table onto a family of Go
subtypes. A discriminator column in each row selects which subtype the row
becomes when it is read back, and every subtype shares one set of query,
save and delete plumbing.

Each base type is described by a Schema and a discriminator Resolver from
the registry package. The resolver is either an explicit value to type map
or a naming convention. Rows are loaded through the storage engine in the
datastore package and hydrated into the resolved subtype, flagged as
persisted:

	catalog := registry.NewCatalog[sti.Entity]()
	catalog.MustRegister(`Epiphyte\Widget`, func() sti.Entity { return &Widget{} })
	catalog.MustRegister(`Epiphyte\ActiveWidget`, func() sti.Entity { return &ActiveWidget{} })

	resolver, _ := registry.NewMapResolverFromCatalog(`Epiphyte\Widget`,
		map[string]string{"active": `Epiphyte\ActiveWidget`}, catalog)

	repo, _ := sti.NewRepository(sti.Schema{
		Morph:         `Epiphyte\Widget`,
		Table:         "widgets",
		Discriminator: "status",
		SoftDelete:    true,
	}, resolver, mock.New())

	widgets, _ := repo.Get(ctx, repo.NewQuery(true))

An unknown discriminator value is an error; a row is never silently
hydrated as the base type.

Saves go through Repository.Save, which fires cancelable lifecycle events
and never re-resolves the subtype.
*/
package sti
