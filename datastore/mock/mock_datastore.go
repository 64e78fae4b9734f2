/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory datastore.Engine for testing
package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/suparena/sti/errors"
	"github.com/suparena/sti/storagemodels"
)

// UpdateCall records the arguments of one Update
type UpdateCall struct {
	Table string
	Key   any
	Attrs storagemodels.Row
}

// Engine is an in-memory implementation of datastore.Engine. Rows are
// kept per table in insertion order and keyed by the string form of their
// primary key.
type Engine struct {
	mu      sync.RWMutex
	tables  map[string]*table
	updates []UpdateCall

	selectError error
	insertError error
	updateError error
	deleteError error
}

type table struct {
	keys []string
	rows map[string]storagemodels.Row
}

// New creates an empty mock Engine
func New() *Engine {
	return &Engine{
		tables: make(map[string]*table),
	}
}

// WithSelectError makes Select and Stream return an error
func (m *Engine) WithSelectError(err error) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selectError = err
	return m
}

// WithInsertError makes Insert operations return an error
func (m *Engine) WithInsertError(err error) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertError = err
	return m
}

// WithUpdateError makes Update operations return an error
func (m *Engine) WithUpdateError(err error) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateError = err
	return m
}

// WithDeleteError makes Delete operations return an error
func (m *Engine) WithDeleteError(err error) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteError = err
	return m
}

// Select returns copies of the rows of q.Table matching q
func (m *Engine) Select(ctx context.Context, q *storagemodels.Query) ([]storagemodels.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.selectError != nil {
		return nil, m.selectError
	}
	return m.selectLocked(q), nil
}

func (m *Engine) selectLocked(q *storagemodels.Query) []storagemodels.Row {
	t, ok := m.tables[q.Table]
	if !ok {
		return []storagemodels.Row{}
	}

	out := make([]storagemodels.Row, 0, len(t.keys))
	for _, k := range t.keys {
		row := t.rows[k]
		if q.Matches(row) {
			out = append(out, row.Clone())
		}
	}
	q.Sort(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Stream emits the rows Select would return, one page of PageSize rows at a
// time
func (m *Engine) Stream(ctx context.Context, q *storagemodels.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Row] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	resultChan := make(chan storagemodels.StreamResult[storagemodels.Row], options.BufferSize)

	go func() {
		defer close(resultChan)

		rows, err := m.Select(ctx, q)
		if err != nil {
			select {
			case <-ctx.Done():
			case resultChan <- storagemodels.StreamResult[storagemodels.Row]{Error: err}:
			}
			return
		}

		pageSize := int(options.PageSize)
		if pageSize <= 0 {
			pageSize = len(rows) + 1
		}

		progress := storagemodels.StreamProgress{StartTime: time.Now()}
		for i, row := range rows {
			select {
			case <-ctx.Done():
				return
			case resultChan <- storagemodels.StreamResult[storagemodels.Row]{
				Item: row,
				Raw:  row,
				Meta: storagemodels.StreamMeta{
					Index:      int64(i),
					PageNumber: i/pageSize + 1,
					Timestamp:  time.Now(),
				},
			}:
			}

			progress.ItemsProcessed++
			if (i+1)%pageSize == 0 || i == len(rows)-1 {
				progress.PagesProcessed++
				progress.LastKey = row[q.PrimaryKey]
				if elapsed := time.Since(progress.StartTime).Seconds(); elapsed > 0 {
					progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
				}
				if options.ProgressHandler != nil {
					options.ProgressHandler(progress)
				}
			}
		}
	}()

	return resultChan
}

// Insert stores a copy of row under its primary key
func (m *Engine) Insert(ctx context.Context, q *storagemodels.Query, row storagemodels.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertError != nil {
		return m.insertError
	}

	key, err := keyString(q, row[q.PrimaryKey])
	if err != nil {
		return err
	}

	t := m.table(q.Table)
	if _, exists := t.rows[key]; exists {
		return errors.NewAlreadyExistsError(q.Table, key)
	}
	t.keys = append(t.keys, key)
	t.rows[key] = row.Clone()
	return nil
}

// Update merges attrs into the row stored under key
func (m *Engine) Update(ctx context.Context, q *storagemodels.Query, key any, attrs storagemodels.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateError != nil {
		return m.updateError
	}

	k, err := keyString(q, key)
	if err != nil {
		return err
	}

	t := m.table(q.Table)
	row, exists := t.rows[k]
	if !exists {
		return errors.NewNotFoundError(q.Table, k)
	}
	for col, v := range attrs {
		row[col] = v
	}
	m.updates = append(m.updates, UpdateCall{Table: q.Table, Key: key, Attrs: attrs.Clone()})
	return nil
}

// Delete removes the row stored under key
func (m *Engine) Delete(ctx context.Context, q *storagemodels.Query, key any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteError != nil {
		return m.deleteError
	}

	k, err := keyString(q, key)
	if err != nil {
		return err
	}

	t := m.table(q.Table)
	if _, exists := t.rows[k]; !exists {
		return errors.NewNotFoundError(q.Table, k)
	}
	delete(t.rows, k)
	t.keys = slices.DeleteFunc(t.keys, func(s string) bool { return s == k })
	return nil
}

// Helper methods for testing

// SetRows replaces the contents of tableName. Each row must carry
// primaryKey.
func (m *Engine) SetRows(tableName, primaryKey string, rows ...storagemodels.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &table{rows: make(map[string]storagemodels.Row, len(rows))}
	for _, row := range rows {
		key := fmt.Sprint(row[primaryKey])
		if _, dup := t.rows[key]; !dup {
			t.keys = append(t.keys, key)
		}
		t.rows[key] = row.Clone()
	}
	m.tables[tableName] = t
}

// Rows returns copies of every row of tableName in insertion order
func (m *Engine) Rows(tableName string) []storagemodels.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[tableName]
	if !ok {
		return nil
	}
	out := make([]storagemodels.Row, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, t.rows[k].Clone())
	}
	return out
}

// Row returns a copy of the row stored under key
func (m *Engine) Row(tableName string, key any) (storagemodels.Row, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[tableName]
	if !ok {
		return nil, false
	}
	row, ok := t.rows[fmt.Sprint(key)]
	if !ok {
		return nil, false
	}
	return row.Clone(), true
}

// Updates returns every successful Update in call order
func (m *Engine) Updates() []UpdateCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.updates)
}

// Count returns the number of rows stored in tableName
func (m *Engine) Count(tableName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tables[tableName]; ok {
		return len(t.keys)
	}
	return 0
}

// Clear removes all data and recorded calls
func (m *Engine) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = make(map[string]*table)
	m.updates = nil
}

func (m *Engine) table(name string) *table {
	t, ok := m.tables[name]
	if !ok {
		t = &table{rows: make(map[string]storagemodels.Row)}
		m.tables[name] = t
	}
	return t
}

func keyString(q *storagemodels.Query, key any) (string, error) {
	if key == nil {
		return "", errors.NewValidationError(q.PrimaryKey, "primary key is required")
	}
	return fmt.Sprint(key), nil
}
