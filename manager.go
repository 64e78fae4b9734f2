/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sti

import (
	"fmt"
	"slices"
	"sync"

	"github.com/suparena/sti/errors"
)

// Manager is a thread-safe collection of repositories keyed by morph
// identifier.
type Manager struct {
	mu    sync.RWMutex
	repos map[string]*Repository
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		repos: make(map[string]*Repository),
	}
}

// Register adds repo under its schema's morph identifier.
func (m *Manager) Register(repo *Repository) error {
	if repo == nil {
		return errors.NewValidationError("repository", "nil repository")
	}
	morph := repo.schema.Morph

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.repos[morph]; exists {
		return fmt.Errorf("repository for %q already registered", morph)
	}
	m.repos[morph] = repo
	return nil
}

// Repository returns the repository registered for morph.
func (m *Manager) Repository(morph string) (*Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	repo, exists := m.repos[morph]
	if !exists {
		return nil, errors.NewNotFoundError("repository", morph)
	}
	return repo, nil
}

// Remove drops the repository for morph. It reports whether one was
// registered.
func (m *Manager) Remove(morph string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.repos[morph]; !exists {
		return false
	}
	delete(m.repos, morph)
	return true
}

// List returns the registered morph identifiers, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.repos))
	for k := range m.repos {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Hydrate routes row to the repository for morph.
func (m *Manager) Hydrate(morph string, row Row) (Entity, error) {
	repo, err := m.Repository(morph)
	if err != nil {
		return nil, err
	}
	return repo.Hydrate(row)
}
