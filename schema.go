/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sti

import (
	"github.com/suparena/sti/errors"
)

// KeyType selects how primary keys are produced for new rows.
type KeyType string

const (
	// KeyProvided leaves the primary key to the application or the engine.
	KeyProvided KeyType = ""
	// KeyUUID fills a missing primary key with a random UUID on insert.
	KeyUUID KeyType = "uuid"
)

// Schema is the configuration shared by every subtype of a base type.
type Schema struct {
	// Morph is the base type identifier, e.g. `Epiphyte\Widget`.
	Morph string `yaml:"morph"`

	// Table is the table holding every subtype's rows.
	Table string `yaml:"table"`

	// Discriminator is the column whose value selects the subtype.
	Discriminator string `yaml:"discriminator"`

	// PrimaryKey is the key column.
	// Default: "id"
	PrimaryKey string `yaml:"primaryKey"`

	// SoftDelete marks rows deleted by stamping DeletedAt instead of removing
	// them, and hides such rows from default queries.
	SoftDelete bool `yaml:"softDelete"`

	// DeletedAt is the soft-delete timestamp column.
	// Default: "deleted_at"
	DeletedAt string `yaml:"deletedAt"`

	// Timestamps stamps CreatedAt and UpdatedAt on save.
	Timestamps bool `yaml:"timestamps"`

	// CreatedAt and UpdatedAt name the timestamp columns.
	// Defaults: "created_at", "updated_at"
	CreatedAt string `yaml:"createdAt"`
	UpdatedAt string `yaml:"updatedAt"`

	// KeyType controls primary key generation on insert.
	KeyType KeyType `yaml:"keyType"`
}

// Validate checks required fields and fills defaults.
func (s *Schema) Validate() error {
	if s.Morph == "" {
		return errors.NewValidationError("morph", "base type identifier is required")
	}
	if s.Table == "" {
		return errors.NewValidationError("table", "table name is required")
	}
	if s.Discriminator == "" {
		return errors.NewValidationError("discriminator", "discriminator column is required")
	}
	if s.PrimaryKey == "" {
		s.PrimaryKey = "id"
	}
	if s.DeletedAt == "" {
		s.DeletedAt = "deleted_at"
	}
	if s.CreatedAt == "" {
		s.CreatedAt = "created_at"
	}
	if s.UpdatedAt == "" {
		s.UpdatedAt = "updated_at"
	}
	switch s.KeyType {
	case KeyProvided, KeyUUID:
	default:
		return errors.NewValidationError("keyType", "unsupported key type "+string(s.KeyType))
	}
	return nil
}
