/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sti

// As narrows e to the concrete subtype T.
func As[T Entity](e Entity) (T, bool) {
	t, ok := e.(T)
	return t, ok
}

// Filter keeps the entities whose dynamic type is T.
func Filter[T Entity](entities []Entity) []T {
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		if t, ok := e.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
