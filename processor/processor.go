/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/suparena/sti"
	"github.com/suparena/sti/actions"
	"github.com/suparena/sti/datastore/ddb"
	"github.com/suparena/sti/errors"
)

// Strategy selects how a base type resolves its discriminator.
type Strategy string

const (
	// StrategyMap resolves through an explicit inheritance map.
	StrategyMap Strategy = "map"
	// StrategyConvention derives subtype names from the base type.
	StrategyConvention Strategy = "convention"
)

// Document is a schema document describing every base type of an
// application.
type Document struct {
	Types []TypeConfig `yaml:"types"`
}

// TypeConfig describes one base type and its subtypes.
type TypeConfig struct {
	sti.Schema `yaml:",inline"`

	// Strategy defaults to "map".
	Strategy Strategy `yaml:"strategy"`

	// InheritanceMap maps discriminator values to catalog type names. Used
	// by the map strategy.
	InheritanceMap map[string]string `yaml:"inheritanceMap"`

	// BaseTypes lists the discriminator values accepted by the convention
	// strategy.
	BaseTypes []string `yaml:"baseTypes"`

	// BaseClass is the catalog name of the base type's own factory. When
	// set, base-object projection is enabled.
	BaseClass string `yaml:"baseClass"`

	// IndexMap holds key templates for key-value engines, e.g.
	// {"PK": "WIDGET#{id}"}.
	IndexMap map[string]string `yaml:"indexMap"`

	// Actions lists the UI actions per access level.
	Actions map[string][]actions.Action `yaml:"actions"`
}

// Load decodes a schema document from r and validates it.
func Load(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, errors.NewValidationError("types", "empty schema document")
		}
		return nil, fmt.Errorf("failed to decode schema document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads and validates the schema document at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema document: %w", err)
	}
	defer f.Close()

	doc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Validate checks every type configuration and fills schema defaults.
func (d *Document) Validate() error {
	if len(d.Types) == 0 {
		return errors.NewValidationError("types", "at least one base type is required")
	}
	seen := make(map[string]bool, len(d.Types))
	for i := range d.Types {
		tc := &d.Types[i]
		if err := tc.validate(); err != nil {
			return fmt.Errorf("types[%d]: %w", i, err)
		}
		if seen[tc.Morph] {
			return fmt.Errorf("types[%d]: base type %q declared twice", i, tc.Morph)
		}
		seen[tc.Morph] = true
	}
	return nil
}

func (tc *TypeConfig) validate() error {
	if err := tc.Schema.Validate(); err != nil {
		return err
	}

	switch tc.Strategy {
	case "":
		tc.Strategy = StrategyMap
		fallthrough
	case StrategyMap:
		if len(tc.InheritanceMap) == 0 {
			return errors.NewValidationError("inheritanceMap", tc.Morph+": map strategy needs an inheritance map")
		}
		for value, name := range tc.InheritanceMap {
			if value == "" || name == "" {
				return errors.NewValidationError("inheritanceMap", tc.Morph+": empty discriminator value or type name")
			}
		}
	case StrategyConvention:
		if len(tc.BaseTypes) == 0 {
			return errors.NewValidationError("baseTypes", tc.Morph+": convention strategy needs allowed discriminator values")
		}
		sorted := slices.Sorted(slices.Values(tc.BaseTypes))
		if len(slices.Compact(sorted)) != len(tc.BaseTypes) {
			return errors.NewValidationError("baseTypes", tc.Morph+": discriminator values must be unique")
		}
	default:
		return errors.NewValidationError("strategy", fmt.Sprintf("%s: unknown strategy %q", tc.Morph, tc.Strategy))
	}

	if len(tc.IndexMap) > 0 {
		if _, ok := tc.IndexMap[ddb.PartitionKeyAttr]; !ok {
			return errors.NewValidationError("indexMap", tc.Morph+": index map needs a "+ddb.PartitionKeyAttr+" template")
		}
		for attr, tmpl := range tc.IndexMap {
			if strings.Count(tmpl, "{") != strings.Count(tmpl, "}") {
				return errors.NewValidationError("indexMap", fmt.Sprintf("%s: unbalanced template for %s", tc.Morph, attr))
			}
		}
	}

	for level, items := range tc.Actions {
		for _, item := range items {
			if item.Name == "" {
				return errors.NewValidationError("actions", fmt.Sprintf("%s: unnamed action at level %q", tc.Morph, level))
			}
		}
	}
	return nil
}
