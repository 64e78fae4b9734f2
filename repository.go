/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sti

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/suparena/sti/datastore"
	"github.com/suparena/sti/errors"
	"github.com/suparena/sti/events"
	"github.com/suparena/sti/registry"
	"github.com/suparena/sti/storagemodels"
)

// Repository maps the rows of one base type's table to their subtypes and
// drives saves through the storage engine. It holds no mutable state after
// construction.
type Repository struct {
	schema   Schema
	resolver registry.Resolver[Entity]
	newBase  registry.Factory[Entity]
	engine   datastore.Engine
	events   *events.Dispatcher[Entity]
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithBaseType sets the constructor of the base type, used by ToBaseObject.
func WithBaseType(fn registry.Factory[Entity]) Option {
	return func(r *Repository) {
		r.newBase = fn
	}
}

// WithEvents shares a lifecycle dispatcher between repositories.
func WithEvents(d *events.Dispatcher[Entity]) Option {
	return func(r *Repository) {
		if d != nil {
			r.events = d
		}
	}
}

// WithLogger replaces the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRepository binds a schema, a discriminator resolver and a storage engine.
func NewRepository(schema Schema, resolver registry.Resolver[Entity], engine datastore.Engine, opts ...Option) (*Repository, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, errors.NewValidationError("resolver", "a discriminator resolver is required")
	}
	if engine == nil {
		return nil, errors.NewValidationError("engine", "a storage engine is required")
	}

	r := &Repository{
		schema:   schema,
		resolver: resolver,
		engine:   engine,
		events:   events.NewDispatcher[Entity](),
		logger:   log.Logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("morph", schema.Morph).Str("table", schema.Table).Logger()
	return r, nil
}

// Schema returns the base type configuration.
func (r *Repository) Schema() Schema {
	return r.schema
}

// Events returns the lifecycle dispatcher so callers can register listeners.
func (r *Repository) Events() *events.Dispatcher[Entity] {
	return r.events
}

// Resolve maps a discriminator value to its subtype descriptor.
func (r *Repository) Resolve(value any) (registry.Descriptor[Entity], error) {
	return r.resolver.Resolve(value)
}

// BaseTypes lists the discriminator values this base type accepts.
func (r *Repository) BaseTypes() []string {
	return r.resolver.Types()
}

// Hydrate builds the subtype selected by the row's discriminator and loads
// the row into it as an existing record. It never falls back to the base
// type: an unknown discriminator fails and no instance is returned.
func (r *Repository) Hydrate(row Row) (Entity, error) {
	d, err := r.resolver.Resolve(row[r.schema.Discriminator])
	if err != nil {
		return nil, err
	}

	e := d.New()
	if isNilEntity(e) {
		return nil, fmt.Errorf("%s: factory for %q returned no instance", r.schema.Morph, d.Name)
	}

	m := e.model()
	m.setRawAttributes(row.Clone(), true)
	m.exists = true
	return e, nil
}

// New allocates a fresh, not yet persisted instance of the subtype
// registered for value, with the discriminator column set.
func (r *Repository) New(value string) (Entity, error) {
	d, err := r.resolver.Resolve(value)
	if err != nil {
		return nil, err
	}
	e := d.New()
	if isNilEntity(e) {
		return nil, fmt.Errorf("%s: factory for %q returned no instance", r.schema.Morph, d.Name)
	}
	e.Set(r.schema.Discriminator, d.Value)
	return e, nil
}

// ToBaseObject copies e's raw attributes into a fresh instance of the base
// type. The copy is detached: it is not marked as persisted and shares no
// state with e.
func (r *Repository) ToBaseObject(e Entity) (Entity, error) {
	if r.newBase == nil {
		return nil, errors.NewValidationError("base", r.schema.Morph+" has no base type constructor")
	}
	base := r.newBase()
	if isNilEntity(base) {
		return nil, fmt.Errorf("%s: base type factory returned no instance", r.schema.Morph)
	}
	base.model().setRawAttributes(e.Attributes(), false)
	return base, nil
}

// Status returns the discriminator value title-cased for display.
func (r *Repository) Status(e Entity) string {
	key, ok := registry.DiscriminatorKey(e.Get(r.schema.Discriminator))
	if !ok {
		return ""
	}
	return registry.Title(key)
}

// NewRawQuery returns a query over the base table with no scopes applied.
func (r *Repository) NewRawQuery() *storagemodels.Query {
	return storagemodels.NewQuery(r.schema.Table, r.schema.PrimaryKey).ForBaseType(r.schema.Morph)
}

// NewQuery returns a query over the base table. With soft delete enabled and
// excludeDeleted set, rows carrying a deleted-at stamp are filtered out.
func (r *Repository) NewQuery(excludeDeleted bool) *storagemodels.Query {
	q := r.NewRawQuery()
	if excludeDeleted && r.schema.SoftDelete {
		q.WhereNull(r.schema.DeletedAt)
	}
	return q
}

// OfType narrows the default query to the given discriminator values.
func (r *Repository) OfType(values ...string) *storagemodels.Query {
	in := make([]any, len(values))
	for i, v := range values {
		in[i] = v
	}
	return r.NewQuery(true).WhereIn(r.schema.Discriminator, in...)
}

// Get runs q and hydrates every row. A row with an unknown discriminator
// aborts the whole call.
func (r *Repository) Get(ctx context.Context, q *storagemodels.Query) ([]Entity, error) {
	rows, err := r.engine.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", r.schema.Table, err)
	}

	out := make([]Entity, 0, len(rows))
	for _, row := range rows {
		e, err := r.Hydrate(row)
		if err != nil {
			r.logger.Warn().Err(err).Interface("key", row[r.schema.PrimaryKey]).Msg("Failed to hydrate row")
			return nil, err
		}
		r.events.Fire(ctx, events.Retrieved, e)
		out = append(out, e)
	}
	return out, nil
}

// First returns the first row of q, or a NotFound error.
func (r *Repository) First(ctx context.Context, q *storagemodels.Query) (Entity, error) {
	found, err := r.Get(ctx, q.Clone().WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.NewNotFoundError(r.schema.Morph, "")
	}
	return found[0], nil
}

// Find loads the non-deleted row whose primary key equals key.
func (r *Repository) Find(ctx context.Context, key any) (Entity, error) {
	found, err := r.Get(ctx, r.NewQuery(true).Where(r.schema.PrimaryKey, key).WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.NewNotFoundError(r.schema.Morph, fmt.Sprint(key))
	}
	return found[0], nil
}

// Stream hydrates rows as the engine produces them. A row that cannot be
// hydrated is reported on its own result and does not stop the stream.
func (r *Repository) Stream(ctx context.Context, q *storagemodels.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[Entity] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	in := r.engine.Stream(ctx, q, opts...)
	out := make(chan storagemodels.StreamResult[Entity], options.BufferSize)

	go func() {
		defer close(out)
		for res := range in {
			result := storagemodels.StreamResult[Entity]{
				Raw:   res.Item,
				Error: res.Error,
				Meta:  res.Meta,
			}
			if res.Error == nil {
				e, err := r.Hydrate(res.Item)
				if err != nil {
					r.logger.Warn().Err(err).Int64("index", res.Meta.Index).Msg("Failed to hydrate streamed row")
					result.Error = err
				} else {
					r.events.Fire(ctx, events.Retrieved, e)
					result.Item = e
				}
			}

			select {
			case <-ctx.Done():
				return
			case out <- result:
			}
		}
	}()

	return out
}
