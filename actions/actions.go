/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package actions

import (
	"fmt"
	"maps"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/suparena/sti/storagemodels"
)

// Action is one configured UI action of a base type.
type Action struct {
	Name string `yaml:"name" json:"name"`
	// Action is the route the action links to. Items without one are never
	// offered.
	Action string `yaml:"action" json:"action"`
	Label  string `yaml:"label" json:"label,omitempty"`
	Order  int    `yaml:"order" json:"order"`
	// Concise marks the action for compact listings.
	Concise bool `yaml:"concise" json:"concise"`
	// When is an optional guard expression evaluated against the entity's
	// attributes, e.g. `status != "archived"`.
	When string `yaml:"when" json:"when,omitempty"`
}

// Bound is an Action ready to render for one entity.
type Bound struct {
	Action
	Parameters map[string]any `json:"parameters"`
}

// Subject is the entity an action list is built for. Every sti entity
// satisfies it.
type Subject interface {
	Get(key string) any
	Attributes() storagemodels.Row
}

// RouteParameterizer lets an entity supply its own route parameters.
type RouteParameterizer interface {
	RouteParameters() map[string]any
}

// Set holds the actions of a base type per access level.
type Set struct {
	levels     map[string][]Action
	guards     map[string]*vm.Program
	primaryKey string
}

// Option configures a Set.
type Option func(*Set)

// WithPrimaryKey names the column bound as the route parameter of entities
// that do not supply their own. Default: "id".
func WithPrimaryKey(column string) Option {
	return func(s *Set) {
		if column != "" {
			s.primaryKey = column
		}
	}
}

// NewSet compiles the guard expressions of levels.
func NewSet(levels map[string][]Action, opts ...Option) (*Set, error) {
	s := &Set{
		levels:     make(map[string][]Action, len(levels)),
		guards:     make(map[string]*vm.Program),
		primaryKey: "id",
	}
	for _, opt := range opts {
		opt(s)
	}

	for level, items := range levels {
		s.levels[level] = slices.Clone(items)
		for _, item := range items {
			if item.When == "" {
				continue
			}
			if _, ok := s.guards[item.When]; ok {
				continue
			}
			program, err := expr.Compile(item.When,
				expr.Env(map[string]any{}),
				expr.AllowUndefinedVariables(),
				expr.AsBool(),
			)
			if err != nil {
				return nil, fmt.Errorf("action %q at level %q: compile guard: %w", item.Name, level, err)
			}
			s.guards[item.When] = program
		}
	}
	return s, nil
}

// For returns the actions of level available on e, sorted by Order. Items
// without a route are skipped, as are non-concise items when concise is
// set and items whose guard is false. An unknown level yields no actions.
func (s *Set) For(e Subject, level string, concise bool) ([]Bound, error) {
	items := s.levels[level]
	out := make([]Bound, 0, len(items))
	if len(items) == 0 {
		return out, nil
	}

	params := s.routeParameters(e)
	var env map[string]any
	for _, item := range items {
		if item.Action == "" {
			continue
		}
		if concise && !item.Concise {
			continue
		}
		if item.When != "" {
			if env == nil {
				env = map[string]any(e.Attributes())
			}
			ok, err := s.allowed(item, env)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, Bound{Action: item, Parameters: maps.Clone(params)})
	}

	slices.SortStableFunc(out, func(a, b Bound) int {
		return a.Order - b.Order
	})
	return out, nil
}

func (s *Set) allowed(item Action, env map[string]any) (bool, error) {
	out, err := expr.Run(s.guards[item.When], env)
	if err != nil {
		return false, fmt.Errorf("action %q: evaluate guard: %w", item.Name, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

func (s *Set) routeParameters(e Subject) map[string]any {
	if rp, ok := e.(RouteParameterizer); ok {
		return rp.RouteParameters()
	}
	return map[string]any{s.primaryKey: e.Get(s.primaryKey)}
}

// HasActions reports whether level has any configured actions.
func (s *Set) HasActions(level string) bool {
	return len(s.levels[level]) > 0
}

// IsActionable reports whether an action called name is configured for
// level. Guards are not evaluated.
func (s *Set) IsActionable(name, level string) bool {
	for _, item := range s.levels[level] {
		if item.Name == name {
			return true
		}
	}
	return false
}

// Levels returns the configured access levels, sorted.
func (s *Set) Levels() []string {
	return slices.Sorted(maps.Keys(s.levels))
}
