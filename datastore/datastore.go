/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/sti/storagemodels"
)

// Engine is the persistence boundary the STI core drives. Engines return raw
// rows; turning a row into a typed entity is always the caller's job.
type Engine interface {
	Select(ctx context.Context, q *storagemodels.Query) ([]storagemodels.Row, error)

	Stream(ctx context.Context, q *storagemodels.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Row]

	// Insert stores a new row. A duplicate key is an AlreadyExists error.
	Insert(ctx context.Context, q *storagemodels.Query, row storagemodels.Row) error

	// Update applies attrs to the row whose q.PrimaryKey column equals key.
	// A missing row is a NotFound error.
	Update(ctx context.Context, q *storagemodels.Query, key any, attrs storagemodels.Row) error

	Delete(ctx context.Context, q *storagemodels.Query, key any) error
}
