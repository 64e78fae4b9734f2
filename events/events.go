/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package events dispatches model lifecycle events around save and delete.
package events

import (
	"context"
	"sync"
)

// Event names a point in an entity's lifecycle.
type Event string

const (
	// Retrieved fires after a row has been hydrated by a read.
	Retrieved Event = "retrieved"
	// Saving fires before every save. A false answer cancels the save.
	Saving Event = "saving"
	// Saved fires after a successful insert or update.
	Saved Event = "saved"
	// Creating fires before an insert. A false answer cancels it.
	Creating Event = "creating"
	// Created fires after a successful insert.
	Created Event = "created"
	// Updating fires before an update. A false answer cancels it.
	Updating Event = "updating"
	// Updated fires after a successful update.
	Updated Event = "updated"
	// Deleting fires before a delete. A false answer cancels it.
	Deleting Event = "deleting"
	// Deleted fires after a successful delete.
	Deleted Event = "deleted"
	// Restoring fires before a soft-deleted row is restored.
	Restoring Event = "restoring"
	// Restored fires after a soft-deleted row has been restored.
	Restored Event = "restored"
)

// Listener handles an event. Returning false halts dispatch, and for the
// cancelable events aborts the operation.
type Listener[E any] func(ctx context.Context, entity E) bool

// Dispatcher holds listeners per event. Listeners run in registration order.
type Dispatcher[E any] struct {
	mu        sync.RWMutex
	listeners map[Event][]Listener[E]
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher[E any]() *Dispatcher[E] {
	return &Dispatcher[E]{
		listeners: make(map[Event][]Listener[E]),
	}
}

// Listen registers fn for event.
func (d *Dispatcher[E]) Listen(event Event, fn Listener[E]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[event] = append(d.listeners[event], fn)
}

// Observe registers a listener that never halts.
func (d *Dispatcher[E]) Observe(event Event, fn func(ctx context.Context, entity E)) {
	d.Listen(event, func(ctx context.Context, entity E) bool {
		fn(ctx, entity)
		return true
	})
}

// Fire runs the listeners for event and reports false as soon as one of them
// answers false. A nil Dispatcher accepts every event.
func (d *Dispatcher[E]) Fire(ctx context.Context, event Event, entity E) bool {
	if d == nil {
		return true
	}
	d.mu.RLock()
	listeners := d.listeners[event]
	d.mu.RUnlock()

	for _, fn := range listeners {
		if !fn(ctx, entity) {
			return false
		}
	}
	return true
}

// HasListeners reports whether anything listens for event.
func (d *Dispatcher[E]) HasListeners(event Event) bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[event]) > 0
}
