/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"fmt"

	"github.com/suparena/sti"
	"github.com/suparena/sti/actions"
	"github.com/suparena/sti/datastore"
	"github.com/suparena/sti/registry"
)

// Bundle is the runtime built from a Document.
type Bundle struct {
	Manager *sti.Manager
	// Actions holds the action set of every base type that declares
	// actions, keyed by morph identifier.
	Actions map[string]*actions.Set
}

// ActionsFor returns the action set of morph, if it declares any.
func (b *Bundle) ActionsFor(morph string) (*actions.Set, bool) {
	set, ok := b.Actions[morph]
	return set, ok
}

// Build creates a repository per base type of doc on engine, resolving type
// names through catalog. Index maps are registered globally for key-value
// engines, and only when every type builds. opts apply to every repository.
func Build(doc *Document, catalog *registry.Catalog[sti.Entity], engine datastore.Engine, opts ...sti.Option) (*Bundle, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	bundle := &Bundle{
		Manager: sti.NewManager(),
		Actions: make(map[string]*actions.Set),
	}
	for _, tc := range doc.Types {
		resolver, err := tc.resolver(catalog)
		if err != nil {
			return nil, err
		}

		repoOpts := opts
		if tc.BaseClass != "" {
			fn, ok := catalog.Lookup(tc.BaseClass)
			if !ok {
				return nil, fmt.Errorf("%s: no factory registered for base class %q", tc.Morph, tc.BaseClass)
			}
			repoOpts = append(append([]sti.Option{}, opts...), sti.WithBaseType(fn))
		}

		repo, err := sti.NewRepository(tc.Schema, resolver, engine, repoOpts...)
		if err != nil {
			return nil, err
		}
		if err := bundle.Manager.Register(repo); err != nil {
			return nil, err
		}

		if len(tc.Actions) > 0 {
			set, err := actions.NewSet(tc.Actions, actions.WithPrimaryKey(tc.PrimaryKey))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", tc.Morph, err)
			}
			bundle.Actions[tc.Morph] = set
		}
	}

	// global state is only touched once every type has built
	for _, tc := range doc.Types {
		if len(tc.IndexMap) > 0 {
			registry.RegisterIndexMap(tc.Morph, tc.IndexMap)
		}
	}
	return bundle, nil
}

func (tc TypeConfig) resolver(catalog *registry.Catalog[sti.Entity]) (registry.Resolver[sti.Entity], error) {
	if tc.Strategy == StrategyConvention {
		return registry.NewConventionResolver(tc.Morph, tc.BaseTypes, catalog)
	}
	return registry.NewMapResolverFromCatalog(tc.Morph, tc.InheritanceMap, catalog)
}
