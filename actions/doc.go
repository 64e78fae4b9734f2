/*
Package actions layers per-access-level UI actions over sti entities.

A Set is configured once per base type. For builds the list shown for one
entity: items lacking a route are dropped, concise listings keep only
concise items, guard expressions (github.com/expr-lang/expr) are evaluated
against the entity's raw attributes, and the result is sorted by Order.
*/
package actions
