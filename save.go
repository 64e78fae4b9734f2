/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sti

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/suparena/sti/errors"
	"github.com/suparena/sti/events"
)

// Save persists e. It updates by primary key when e already exists and
// inserts otherwise. The subtype of e is fixed; the discriminator is never
// resolved again here.
//
// A listener answering false to the saving, creating or updating event
// cancels the save and Save returns false with a nil error. An engine
// failure returns false and the error. In both cases e keeps its persisted
// flag and the attributes it had when the saving event fired: stamps and
// generated keys are rolled back.
func (r *Repository) Save(ctx context.Context, e Entity) (bool, error) {
	if !r.events.Fire(ctx, events.Saving, e) {
		r.logger.Debug().Msg("Save cancelled by saving listener")
		return false, nil
	}

	m := e.model()
	snapshot := m.attributes.Clone()

	var (
		saved bool
		err   error
	)
	if e.Exists() {
		saved, err = r.performUpdate(ctx, e)
	} else {
		saved, err = r.performInsert(ctx, e)
	}

	if !saved {
		m.attributes = snapshot
		return false, err
	}
	r.finishSave(ctx, e)
	return true, nil
}

func (r *Repository) performUpdate(ctx context.Context, e Entity) (bool, error) {
	if !r.events.Fire(ctx, events.Updating, e) {
		return false, nil
	}

	m := e.model()
	dirty := m.Dirty()
	if len(dirty) == 0 {
		return true, nil
	}

	if r.schema.Timestamps {
		if _, touched := dirty[r.schema.UpdatedAt]; !touched {
			m.Set(r.schema.UpdatedAt, r.timestamp())
			dirty[r.schema.UpdatedAt] = m.Get(r.schema.UpdatedAt)
		}
	}

	key, err := r.keyOf(e)
	if err != nil {
		return false, err
	}

	if err := r.engine.Update(ctx, r.NewRawQuery(), key, dirty); err != nil {
		return false, fmt.Errorf("update %s %v: %w", r.schema.Table, key, err)
	}
	r.logger.Debug().Interface("key", key).Int("attributes", len(dirty)).Msg("Updated row")

	r.events.Fire(ctx, events.Updated, e)
	return true, nil
}

func (r *Repository) performInsert(ctx context.Context, e Entity) (bool, error) {
	if !r.events.Fire(ctx, events.Creating, e) {
		return false, nil
	}

	m := e.model()
	if r.schema.Timestamps {
		ts := r.timestamp()
		if m.Get(r.schema.CreatedAt) == nil {
			m.Set(r.schema.CreatedAt, ts)
		}
		m.Set(r.schema.UpdatedAt, ts)
	}
	if r.schema.KeyType == KeyUUID && m.Get(r.schema.PrimaryKey) == nil {
		m.Set(r.schema.PrimaryKey, uuid.NewString())
	}

	if err := r.engine.Insert(ctx, r.NewRawQuery(), m.Attributes()); err != nil {
		return false, fmt.Errorf("insert into %s: %w", r.schema.Table, err)
	}
	m.exists = true
	r.logger.Debug().Interface("key", m.Get(r.schema.PrimaryKey)).Msg("Inserted row")

	r.events.Fire(ctx, events.Created, e)
	return true, nil
}

func (r *Repository) finishSave(ctx context.Context, e Entity) {
	r.events.Fire(ctx, events.Saved, e)
	e.model().syncOriginal()
}

// Delete removes e. With soft delete enabled the row is stamped with the
// deleted-at column and stays in the table; otherwise it is removed.
func (r *Repository) Delete(ctx context.Context, e Entity) (bool, error) {
	if !r.schema.SoftDelete {
		return r.ForceDelete(ctx, e)
	}
	if !e.Exists() {
		return false, nil
	}
	if !r.events.Fire(ctx, events.Deleting, e) {
		return false, nil
	}

	key, err := r.keyOf(e)
	if err != nil {
		return false, err
	}

	m := e.model()
	attrs := Row{r.schema.DeletedAt: r.timestamp()}
	if r.schema.Timestamps {
		attrs[r.schema.UpdatedAt] = attrs[r.schema.DeletedAt]
	}
	if err := r.engine.Update(ctx, r.NewRawQuery(), key, attrs); err != nil {
		return false, fmt.Errorf("soft delete %s %v: %w", r.schema.Table, key, err)
	}
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		m.Set(k, v)
		keys = append(keys, k)
	}
	m.syncOriginalKeys(keys...)
	r.logger.Debug().Interface("key", key).Msg("Soft deleted row")

	r.events.Fire(ctx, events.Deleted, e)
	return true, nil
}

// ForceDelete removes e's row from the table regardless of soft delete.
func (r *Repository) ForceDelete(ctx context.Context, e Entity) (bool, error) {
	if !e.Exists() {
		return false, nil
	}
	if !r.events.Fire(ctx, events.Deleting, e) {
		return false, nil
	}

	key, err := r.keyOf(e)
	if err != nil {
		return false, err
	}
	if err := r.engine.Delete(ctx, r.NewRawQuery(), key); err != nil {
		return false, fmt.Errorf("delete %s %v: %w", r.schema.Table, key, err)
	}
	e.model().exists = false
	r.logger.Debug().Interface("key", key).Msg("Deleted row")

	r.events.Fire(ctx, events.Deleted, e)
	return true, nil
}

// Restore clears the deleted-at stamp of a soft-deleted entity and saves it.
// An entity that was never persisted is left alone. When the save does not
// go through, the stamp is put back.
func (r *Repository) Restore(ctx context.Context, e Entity) (bool, error) {
	if !r.schema.SoftDelete {
		return false, errors.NewValidationError("softDelete", r.schema.Morph+" does not use soft delete")
	}
	if !e.Exists() {
		return false, nil
	}
	if !r.events.Fire(ctx, events.Restoring, e) {
		return false, nil
	}

	m := e.model()
	prev, had := m.attributes[r.schema.DeletedAt]
	m.Set(r.schema.DeletedAt, nil)

	saved, err := r.Save(ctx, e)
	if !saved {
		if had {
			m.attributes[r.schema.DeletedAt] = prev
		} else {
			delete(m.attributes, r.schema.DeletedAt)
		}
		return false, err
	}
	r.events.Fire(ctx, events.Restored, e)
	return true, nil
}

// Trashed reports whether e carries a deleted-at stamp.
func (r *Repository) Trashed(e Entity) bool {
	return r.schema.SoftDelete && e.Get(r.schema.DeletedAt) != nil
}

func (r *Repository) keyOf(e Entity) (any, error) {
	key := e.Get(r.schema.PrimaryKey)
	if key == nil {
		return nil, errors.NewValidationError(r.schema.PrimaryKey, "primary key is not set")
	}
	return key, nil
}

func (r *Repository) timestamp() string {
	return strfmt.DateTime(r.now().UTC()).String()
}
