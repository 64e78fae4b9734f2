/*
Package datastore defines the persistence boundary consumed by the STI core.

The main interface is Engine, which works on raw rows only:

	type Engine interface {
	    Select(ctx context.Context, q *storagemodels.Query) ([]storagemodels.Row, error)
	    Stream(ctx context.Context, q *storagemodels.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Row]
	    Insert(ctx context.Context, q *storagemodels.Query, row storagemodels.Row) error
	    Update(ctx context.Context, q *storagemodels.Query, key any, attrs storagemodels.Row) error
	    Delete(ctx context.Context, q *storagemodels.Query, key any) error
	}

Every row an engine returns is routed through the repository's hydrator, so
polymorphic results come back with their concrete subtype.

Implementations:
  - ddb: DynamoDB single-table engine
  - sqlstore: gorm engine (PostgreSQL by default)
  - mock: in-memory engine for testing
*/
package datastore
