/*
Package storagemodels defines the data structures shared by the STI core and
the storage engines.

Key Types:

Row:
A stored record, column name to scalar value:

	row := storagemodels.Row{"id": 7, "status": "active"}

Query:
An engine-neutral query scope built fluently:

	q := storagemodels.NewQuery("widgets", "id").
	    Where("status", "active").
	    WhereNull("deleted_at").
	    OrderBy("created_at", true).
	    WithLimit(25)

Engines translate a Query into their own request (a DynamoDB Query/Scan, a
gorm clause set). The mock engine evaluates it in memory with Query.Matches.

StreamResult:
Results from streaming operations with metadata:

	type StreamResult[T any] struct {
	    Item  T          // The hydrated item
	    Raw   Row        // The stored row
	    Error error      // Item-specific error, if any
	    Meta  StreamMeta // Metadata about this item
	}

StreamOptions:
Configuration for streaming behavior:

	opts := []StreamOption{
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	}
*/
package storagemodels
