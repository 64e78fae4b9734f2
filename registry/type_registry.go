/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/suparena/sti/errors"
)

// Factory allocates an empty instance of a concrete type. It must not
// validate, default or touch storage.
type Factory[E any] func() E

// Descriptor ties a discriminator value to one constructible subtype.
type Descriptor[E any] struct {
	// Value is the discriminator value stored in the row.
	Value string
	// Name is the fully-qualified subtype identifier.
	Name string
	// New allocates an empty instance of the subtype.
	New Factory[E]
}

// Resolver maps a raw discriminator value to a Descriptor.
//
// A nil value stands for an absent column. Missing and unregistered values
// both fail with an UnknownDiscriminatorError.
type Resolver[E any] interface {
	Resolve(value any) (Descriptor[E], error)
	// Types lists the discriminator values the resolver accepts, sorted.
	Types() []string
	// BaseType is the base type identifier used in errors.
	BaseType() string
}

// Catalog is a named table of constructors, populated at startup. It takes
// the place of loading a type by its name at runtime.
type Catalog[E any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[E]
}

// NewCatalog creates an empty Catalog.
func NewCatalog[E any]() *Catalog[E] {
	return &Catalog[E]{
		factories: make(map[string]Factory[E]),
	}
}

// Register adds a constructor under name. Names are unique.
func (c *Catalog[E]) Register(name string, fn Factory[E]) error {
	if name == "" || fn == nil {
		return errors.NewValidationError("name", "catalog entries need a name and a factory")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.factories[name]; exists {
		return fmt.Errorf("catalog: type %q already registered", name)
	}
	c.factories[name] = fn
	return nil
}

// MustRegister is Register that panics on error, for use in init functions.
func (c *Catalog[E]) MustRegister(name string, fn Factory[E]) {
	if err := c.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the constructor registered under name.
func (c *Catalog[E]) Lookup(name string) (Factory[E], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.factories[name]
	return fn, ok
}

// Names returns every registered name, sorted.
func (c *Catalog[E]) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MapResolver resolves discriminator values through an explicit table.
type MapResolver[E any] struct {
	mu          sync.RWMutex
	baseType    string
	descriptors map[string]Descriptor[E]
}

// NewMapResolver creates an empty explicit-map resolver for baseType.
func NewMapResolver[E any](baseType string) *MapResolver[E] {
	return &MapResolver[E]{
		baseType:    baseType,
		descriptors: make(map[string]Descriptor[E]),
	}
}

// NewMapResolverFromCatalog builds a resolver from a value -> type name map,
// looking each name up in catalog. Unknown names fail here rather than at
// resolve time.
func NewMapResolverFromCatalog[E any](baseType string, inheritanceMap map[string]string, catalog *Catalog[E]) (*MapResolver[E], error) {
	r := NewMapResolver[E](baseType)
	for value, name := range inheritanceMap {
		fn, ok := catalog.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("map resolver %s: no factory registered for type %q (value %q)", baseType, name, value)
		}
		if err := r.Register(value, name, fn); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register maps value to the subtype name built by fn.
// If the value is already registered it returns an error.
func (r *MapResolver[E]) Register(value, name string, fn Factory[E]) error {
	if value == "" || fn == nil {
		return errors.NewValidationError("value", "discriminator entries need a value and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[value]; exists {
		return fmt.Errorf("map resolver %s: discriminator %q already registered", r.baseType, value)
	}
	r.descriptors[value] = Descriptor[E]{Value: value, Name: name, New: fn}
	return nil
}

// MustRegister is Register that panics on error.
func (r *MapResolver[E]) MustRegister(value, name string, fn Factory[E]) *MapResolver[E] {
	if err := r.Register(value, name, fn); err != nil {
		panic(err)
	}
	return r
}

// Resolve looks value up in the table.
func (r *MapResolver[E]) Resolve(value any) (Descriptor[E], error) {
	key, ok := DiscriminatorKey(value)
	if !ok {
		return Descriptor[E]{}, errors.NewUnknownDiscriminatorError(r.baseType, value)
	}
	r.mu.RLock()
	d, ok := r.descriptors[key]
	r.mu.RUnlock()
	if !ok {
		return Descriptor[E]{}, errors.NewUnknownDiscriminatorError(r.baseType, value)
	}
	return d, nil
}

// Types returns the registered discriminator values, sorted.
func (r *MapResolver[E]) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.descriptors))
	for v := range r.descriptors {
		types = append(types, v)
	}
	slices.Sort(types)
	return types
}

func (r *MapResolver[E]) BaseType() string { return r.baseType }

// DiscriminatorKey normalises a raw column value into a lookup key.
// It returns false for nil and for values that cannot name a type.
func DiscriminatorKey(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		// numeric columns decoded from JSON-like sources
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
	}
	return "", false
}
