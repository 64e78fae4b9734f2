/*
Package sqlstore provides a gorm implementation of the datastore.Engine
interface.

Rows are exchanged as column maps, so one Engine serves every base type
table without Go models. Query conditions become gorm clause expressions;
a soft delete scope renders as "deleted_at IS NULL".

	engine, err := sqlstore.Open(sqlstore.Config{DSN: os.Getenv("DATABASE_URL")})

Any other gorm dialector can be wrapped with New.
*/
package sqlstore
