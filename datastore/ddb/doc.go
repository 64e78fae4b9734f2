/*
Package ddb provides a DynamoDB implementation of the datastore.Engine interface.

The Engine supports:
  - Single-table design patterns keyed by index map templates
  - Macro-based key expansion (e.g., "WIDGET#{id}")
  - Global Secondary Index (GSI) queries
  - Enhanced streaming with retry logic
  - Conditional puts, updates and deletes mapped to semantic errors

Key Features:

Macro Expansion:
A base type registers an index map whose templates are filled from row
attributes when an item is written:

	registry.RegisterIndexMap(`Epiphyte\Widget`, map[string]string{
	    "PK":  "WIDGET#{id}",      // Becomes "WIDGET#123"
	    "SK":  "WIDGET#{id}",
	    "PK1": "STATUS#{status}",  // GSI1 partition key
	})

Without an index map the table is keyed by the base type's primary key
column.

Queries:
Equality conditions that fill the partition key template turn into a
DynamoDB Query; anything else is a Scan with a filter expression. Soft
delete scopes become attribute_not_exists(deleted_at) OR deleted_at = NULL.

Streaming:
The enhanced streaming API supports configurable options:

	results := engine.Stream(ctx, q,
	    storagemodels.WithBufferSize(100),
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
	        log.Printf("Processed %d items", p.ItemsProcessed)
	    }),
	)
*/
package ddb
