/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/suparena/sti/errors"
)

// Basename strips any namespace, package or path qualifier from identifier:
// `Epiphyte\Widget`, "models.Widget" and "models/Widget" all yield "Widget".
func Basename(identifier string) string {
	if i := strings.LastIndexAny(identifier, `\/.`); i >= 0 {
		return identifier[i+1:]
	}
	return identifier
}

// Title upper-cases the first letter of every whitespace-separated word. The
// rest of each word is left as is: "on hold" becomes "On Hold" and
// "on-hold" becomes "On-hold".
func Title(value string) string {
	// a Caser is stateful and must not be shared between goroutines
	caser := cases.Title(language.Und, cases.NoLower)

	var b strings.Builder
	b.Grow(len(value))
	start := true
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			start = true
			b.WriteRune(r)
		case start:
			start = false
			b.WriteString(caser.String(string(r)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TitleCase is Title with the whitespace removed.
func TitleCase(value string) string {
	return strings.Join(strings.Fields(Title(value)), "")
}

// TypeName derives the subtype identifier for value under baseType:
// Plural(Basename(baseType)) + "." + Basename(baseType) + TitleCase(value).
func TypeName(baseType, value string) string {
	base := Basename(baseType)
	return inflection.Plural(base) + "." + base + TitleCase(value)
}

// ConventionResolver derives subtype names from the base type and the
// discriminator value, limited to a configured set of allowed values.
type ConventionResolver[E any] struct {
	baseType    string
	allowed     []string
	descriptors map[string]Descriptor[E]
}

// NewConventionResolver builds a resolver accepting the allowed values. Every
// derived name must already be registered in catalog.
func NewConventionResolver[E any](baseType string, allowed []string, catalog *Catalog[E]) (*ConventionResolver[E], error) {
	r := &ConventionResolver[E]{
		baseType:    baseType,
		descriptors: make(map[string]Descriptor[E], len(allowed)),
	}
	for _, value := range allowed {
		if _, dup := r.descriptors[value]; dup {
			return nil, fmt.Errorf("convention resolver %s: discriminator %q listed twice", baseType, value)
		}
		name := TypeName(baseType, value)
		fn, ok := catalog.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("convention resolver %s: no factory registered for derived type %q", baseType, name)
		}
		r.descriptors[value] = Descriptor[E]{Value: value, Name: name, New: fn}
		r.allowed = append(r.allowed, value)
	}
	slices.Sort(r.allowed)
	return r, nil
}

// Resolve accepts only the allowed values.
func (r *ConventionResolver[E]) Resolve(value any) (Descriptor[E], error) {
	key, ok := DiscriminatorKey(value)
	if !ok {
		return Descriptor[E]{}, errors.NewUnknownDiscriminatorError(r.baseType, value)
	}
	d, ok := r.descriptors[key]
	if !ok {
		return Descriptor[E]{}, errors.NewUnknownDiscriminatorError(r.baseType, value)
	}
	return d, nil
}

// Types returns the allowed discriminator values, sorted.
func (r *ConventionResolver[E]) Types() []string {
	return slices.Clone(r.allowed)
}

func (r *ConventionResolver[E]) BaseType() string { return r.baseType }
