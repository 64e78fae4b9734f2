/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"cmp"
	"fmt"
	"slices"
)

// Matches reports whether row satisfies every condition of q.
func (q *Query) Matches(row Row) bool {
	for _, c := range q.Conditions {
		if !c.Matches(row) {
			return false
		}
	}
	return true
}

// Matches evaluates the condition against a single row in memory.
func (c Condition) Matches(row Row) bool {
	v, present := row[c.Column]
	switch c.Op {
	case OpNull:
		return !present || v == nil
	case OpNotNull:
		return present && v != nil
	case OpIn:
		values, _ := c.Value.([]any)
		for _, candidate := range values {
			if present && Compare(v, candidate) == 0 {
				return true
			}
		}
		return false
	}
	if !present || v == nil {
		return false
	}
	r := Compare(v, c.Value)
	switch c.Op {
	case OpEq:
		return r == 0
	case OpNeq:
		return r != 0
	case OpGt:
		return r > 0
	case OpGte:
		return r >= 0
	case OpLt:
		return r < 0
	case OpLte:
		return r <= 0
	}
	return false
}

// Sort orders rows in place following q.Orders.
func (q *Query) Sort(rows []Row) {
	if len(q.Orders) == 0 {
		return
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		for _, o := range q.Orders {
			r := Compare(a[o.Column], b[o.Column])
			if o.Desc {
				r = -r
			}
			if r != 0 {
				return r
			}
		}
		return 0
	})
}

// Compare orders two scalar values. Numbers compare numerically, integers
// exactly; everything else by its string form. nil sorts first.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if r, ok := compareIntegers(a, b); ok {
		return r
	}
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return cmp.Compare(fa, fb)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compareIntegers orders two integers of any width without going through
// float64, which loses precision above 2^53.
func compareIntegers(a, b any) (int, bool) {
	am, aNeg, aok := toInteger(a)
	bm, bNeg, bok := toInteger(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case aNeg && !bNeg:
		return -1, true
	case !aNeg && bNeg:
		return 1, true
	case aNeg:
		return cmp.Compare(bm, am), true
	}
	return cmp.Compare(am, bm), true
}

// toInteger splits an integer into its magnitude and sign.
func toInteger(v any) (mag uint64, neg bool, ok bool) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		return uint64(x), false, true
	case uint8:
		return uint64(x), false, true
	case uint16:
		return uint64(x), false, true
	case uint32:
		return uint64(x), false, true
	case uint64:
		return x, false, true
	default:
		return 0, false, false
	}
	if n < 0 {
		return uint64(-(n + 1)) + 1, true, true
	}
	return uint64(n), false, true
}
