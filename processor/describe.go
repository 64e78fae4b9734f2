/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"maps"
	"slices"
	"strings"

	"github.com/suparena/sti/registry"
)

// TypeSummary is the resolved view of one base type.
type TypeSummary struct {
	Morph         string            `json:"morph"`
	Table         string            `json:"table"`
	Discriminator string            `json:"discriminator"`
	Strategy      Strategy          `json:"strategy"`
	SoftDelete    bool              `json:"softDelete"`
	Subtypes      map[string]string `json:"subtypes"`
	IndexMap      map[string]string `json:"indexMap,omitempty"`
	ActionLevels  []string          `json:"actionLevels,omitempty"`
}

// Describe lists, per base type, the subtype name each discriminator value
// resolves to. It needs no catalog, so it works on a document alone.
func Describe(doc *Document) []TypeSummary {
	out := make([]TypeSummary, 0, len(doc.Types))
	for _, tc := range doc.Types {
		s := TypeSummary{
			Morph:         tc.Morph,
			Table:         tc.Table,
			Discriminator: tc.Discriminator,
			Strategy:      tc.Strategy,
			SoftDelete:    tc.SoftDelete,
			Subtypes:      make(map[string]string),
			IndexMap:      tc.IndexMap,
		}
		if tc.Strategy == StrategyConvention {
			for _, value := range tc.BaseTypes {
				s.Subtypes[value] = registry.TypeName(tc.Morph, value)
			}
		} else {
			maps.Copy(s.Subtypes, tc.InheritanceMap)
		}
		if len(tc.Actions) > 0 {
			s.ActionLevels = slices.Sorted(maps.Keys(tc.Actions))
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b TypeSummary) int {
		return strings.Compare(a.Morph, b.Morph)
	})
	return out
}
