/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// Row is a stored record as read from the table: column name to scalar value.
type Row map[string]any

// Clone returns a shallow copy of the row. A nil row clones to an empty row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Operator is a comparison applied by a Condition.
type Operator string

const (
	OpEq      Operator = "="
	OpNeq     Operator = "<>"
	OpGt      Operator = ">"
	OpGte     Operator = ">="
	OpLt      Operator = "<"
	OpLte     Operator = "<="
	OpIn      Operator = "IN"
	OpNull    Operator = "IS NULL"
	OpNotNull Operator = "IS NOT NULL"
)

// Condition restricts a query to rows whose Column satisfies Op against Value.
// For OpIn, Value holds a []any. OpNull and OpNotNull ignore Value.
type Condition struct {
	Column string
	Op     Operator
	Value  any
}

// Order sorts query results by Column.
type Order struct {
	Column string
	Desc   bool
}

// Query is an engine-neutral description of a read or write scope.
// Engines translate it into their own request shape.
type Query struct {
	// Table is the table the base type lives in.
	Table string
	// PrimaryKey names the key column used by Update and Delete.
	PrimaryKey string
	// BaseType identifies the base type the table belongs to. Engines that
	// keep per-type key layouts look them up by this name.
	BaseType string
	// Conditions are combined with AND.
	Conditions []Condition
	// Orders are applied in sequence.
	Orders []Order
	// Limit caps the number of rows returned (0 = no limit).
	Limit int
	// IndexName optionally names a secondary index the engine may use.
	IndexName string
}

// NewQuery returns an unfiltered query over table keyed by primaryKey.
func NewQuery(table, primaryKey string) *Query {
	return &Query{Table: table, PrimaryKey: primaryKey}
}

// ForBaseType records the base type the query reads.
func (q *Query) ForBaseType(name string) *Query {
	q.BaseType = name
	return q
}

// Where adds an equality condition.
func (q *Query) Where(column string, value any) *Query {
	return q.WhereOp(column, OpEq, value)
}

// WhereOp adds a condition with an explicit operator.
func (q *Query) WhereOp(column string, op Operator, value any) *Query {
	q.Conditions = append(q.Conditions, Condition{Column: column, Op: op, Value: value})
	return q
}

// WhereIn restricts column to one of values.
func (q *Query) WhereIn(column string, values ...any) *Query {
	return q.WhereOp(column, OpIn, values)
}

// WhereNull restricts column to absent or null values.
func (q *Query) WhereNull(column string) *Query {
	return q.WhereOp(column, OpNull, nil)
}

// WhereNotNull restricts column to present, non-null values.
func (q *Query) WhereNotNull(column string) *Query {
	return q.WhereOp(column, OpNotNull, nil)
}

// OrderBy appends a sort column.
func (q *Query) OrderBy(column string, desc bool) *Query {
	q.Orders = append(q.Orders, Order{Column: column, Desc: desc})
	return q
}

// WithLimit caps the number of returned rows.
func (q *Query) WithLimit(limit int) *Query {
	q.Limit = limit
	return q
}

// UseIndex hints the engine to read through a secondary index.
func (q *Query) UseIndex(name string) *Query {
	q.IndexName = name
	return q
}

// Clone returns a deep enough copy for the caller to keep narrowing the
// result without affecting q.
func (q *Query) Clone() *Query {
	out := *q
	out.Conditions = append([]Condition(nil), q.Conditions...)
	out.Orders = append([]Order(nil), q.Orders...)
	return &out
}

// HasCondition reports whether q already filters column with op.
func (q *Query) HasCondition(column string, op Operator) bool {
	for _, c := range q.Conditions {
		if c.Column == column && c.Op == op {
			return true
		}
	}
	return false
}
