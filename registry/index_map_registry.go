/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"maps"
	"sync"
)

// Index maps associate a base type (by morph identifier) with the key
// templates a key-value engine uses to address its rows, e.g.
// {"PK": "WIDGET#{id}", "SK": "WIDGET#{id}"}. Every subtype of a base type
// shares its index map, since they share one table.

var (
	indexMapRegistry = make(map[string]map[string]string)
	mu               sync.RWMutex
)

// RegisterIndexMap associates baseType with a key index map. A later call for
// the same base type replaces the earlier map.
func RegisterIndexMap(baseType string, idxMap map[string]string) {
	mu.Lock()
	defer mu.Unlock()
	indexMapRegistry[baseType] = maps.Clone(idxMap)
}

// GetIndexMap retrieves the index map for baseType, if any.
func GetIndexMap(baseType string) (map[string]string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	m, ok := indexMapRegistry[baseType]
	if !ok {
		return nil, false
	}
	return maps.Clone(m), true
}
