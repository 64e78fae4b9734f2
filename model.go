/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sti

import (
	"reflect"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/sti/storagemodels"
)

// Row is a stored record: column name to scalar value.
type Row = storagemodels.Row

// Entity is implemented by every type embedding Model. The unexported
// accessor keeps the trusted load path inside this package.
type Entity interface {
	Get(key string) any
	Set(key string, value any)
	Attributes() Row
	Exists() bool
	model() *Model
}

// Model carries the attribute state shared by all subtypes of a base type.
// Embed it in every subtype:
//
//	type ActiveWidget struct{ sti.Model }
type Model struct {
	attributes Row
	original   Row
	exists     bool
}

func (m *Model) model() *Model { return m }

// Get returns the attribute value for key, or nil.
func (m *Model) Get(key string) any {
	return m.attributes[key]
}

// GetString returns the attribute as a string when it holds one.
func (m *Model) GetString(key string) string {
	switch v := m.attributes[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Has reports whether key is present, even with a nil value.
func (m *Model) Has(key string) bool {
	_, ok := m.attributes[key]
	return ok
}

// Set assigns a single attribute. This is the mutation path for application
// code; it marks the attribute dirty when the value changes.
func (m *Model) Set(key string, value any) {
	if m.attributes == nil {
		m.attributes = make(Row)
	}
	m.attributes[key] = value
}

// Fill assigns every attribute in attrs through Set.
func (m *Model) Fill(attrs Row) {
	for k, v := range attrs {
		m.Set(k, v)
	}
}

// Attributes returns a copy of the current raw attributes.
func (m *Model) Attributes() Row {
	return m.attributes.Clone()
}

// Exists reports whether the instance represents a persisted row.
func (m *Model) Exists() bool {
	return m.exists
}

// Original returns the value key had when the instance was last loaded or
// saved.
func (m *Model) Original(key string) any {
	return m.original[key]
}

// Dirty returns the attributes that differ from their original values.
func (m *Model) Dirty() Row {
	dirty := make(Row)
	for k, v := range m.attributes {
		orig, ok := m.original[k]
		if !ok || !reflect.DeepEqual(orig, v) {
			dirty[k] = v
		}
	}
	return dirty
}

// IsDirty reports whether any of keys (or any attribute, when keys is empty)
// changed since the last load or save.
func (m *Model) IsDirty(keys ...string) bool {
	dirty := m.Dirty()
	if len(keys) == 0 {
		return len(dirty) > 0
	}
	for _, k := range keys {
		if _, ok := dirty[k]; ok {
			return true
		}
	}
	return false
}

// Timestamp parses a date-time attribute written by the repository.
func (m *Model) Timestamp(key string) (strfmt.DateTime, bool) {
	switch v := m.attributes[key].(type) {
	case strfmt.DateTime:
		return v, true
	case time.Time:
		return strfmt.DateTime(v), true
	case string:
		dt, err := strfmt.ParseDateTime(v)
		if err != nil {
			return strfmt.DateTime{}, false
		}
		return dt, true
	}
	return strfmt.DateTime{}, false
}

// setRawAttributes replaces the attribute set wholesale without passing
// through Set. Only the hydrator and the base projection call it; the row is
// trusted and never validated.
func (m *Model) setRawAttributes(row Row, sync bool) {
	m.attributes = row
	if m.attributes == nil {
		m.attributes = make(Row)
	}
	if sync {
		m.syncOriginal()
	}
}

func (m *Model) syncOriginal() {
	m.original = m.attributes.Clone()
}

func (m *Model) syncOriginalKeys(keys ...string) {
	if m.original == nil {
		m.original = make(Row)
	}
	for _, k := range keys {
		m.original[k] = m.attributes[k]
	}
}

// isNilEntity catches factories that return a typed nil pointer.
func isNilEntity(e Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
