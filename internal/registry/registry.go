// SPDX-License-Identifier: MIT

// Package registry implements the process-wide name->constructor table
// described in spec §4.1: one namespace per plugin kind (fetcher, parser,
// validator, middleware, postprocessor, exporter, routing), declarative
// registration, and deterministic last-wins overwrite on duplicate names.
//
// This mirrors the teacher's internal/config.Registry (a path/env/field
// inventory keyed by string) generalized with a type parameter so every
// plugin kind gets its own typed table instead of one shared any-typed map.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sboxsync/sboxsync/internal/log"
)

// Registry is a name -> constructor table for one plugin kind.
type Registry[T any] struct {
	mu    sync.RWMutex
	kind  string
	items map[string]T
}

// New creates an empty registry for the given plugin kind (used only for
// log messages on duplicate registration).
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, items: make(map[string]T)}
}

// Register installs constructor under name. A duplicate name overwrites
// deterministically (last registration wins) and is logged, per spec §4.1.
func (r *Registry[T]) Register(name string, constructor T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[name]; exists {
		log.Component("registry").Warn().
			Str("kind", r.kind).
			Str("name", name).
			Msg("duplicate registration, overwriting")
	}
	r.items[name] = constructor
}

// ErrNotFound is returned by Lookup when name is not registered. Missing a
// name is a configuration error, not a runtime error (spec §4.1) — callers
// should surface it before a pipeline run starts.
type ErrNotFound struct {
	Kind string
	Name string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("registry: no %s registered under name %q", e.Kind, e.Name)
}

// Lookup returns the constructor registered under name.
func (r *Registry[T]) Lookup(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[name]
	if !ok {
		var zero T
		return zero, &ErrNotFound{Kind: r.kind, Name: name}
	}
	return v, nil
}

// Names returns every registered name, sorted for deterministic iteration.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for n := range r.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
