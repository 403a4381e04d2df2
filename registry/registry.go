// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Package registry implements the process-wide AggregateStorageRegistry:
// a keyed mapping from lowercased aggregate name to preferred store
// name, effectively immutable after initialization and safe for concurrent
// reads and inserts.
package registry

import (
	"strings"
	"sync"

	"go.evstore.dev/engine/errs2"
)

// AggregateStorageRegistry maps a lowercased aggregate name to its
// preferred store name. When a caller omits an explicit store, the
// registry's result takes precedence over configured defaults.
type AggregateStorageRegistry struct {
	mu    sync.RWMutex
	byAgg map[string]string
}

// New returns an empty registry.
func New() *AggregateStorageRegistry {
	return &AggregateStorageRegistry{byAgg: make(map[string]string)}
}

// Register sets the preferred store for aggregateName, overwriting any
// previous registration (explicit reconfiguration only).
func (r *AggregateStorageRegistry) Register(aggregateName, storeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAgg[strings.ToLower(aggregateName)] = storeName
}

// Resolve returns the preferred store for aggregateName, falling back to
// defaultStore (which may be "") when the registry has no entry. Resolve
// does not check the result against any adapter set; ResolveAndCheck does,
// failing with FactoryMissing.
func (r *AggregateStorageRegistry) Resolve(aggregateName, defaultStore string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if store, ok := r.byAgg[strings.ToLower(aggregateName)]; ok {
		return store
	}
	return defaultStore
}

// AdapterSet is the set of named adapters a resolved store name must be
// found in. ResolveAndCheck fails with FactoryMissing if it is not.
type AdapterSet interface {
	Has(storeName string) bool
}

// ResolveAndCheck resolves a store for aggregateName and validates it is
// present in adapters, failing with FactoryMissing naming the missing type
// otherwise.
func (r *AggregateStorageRegistry) ResolveAndCheck(aggregateName, defaultStore, typeName string, adapters AdapterSet) (string, error) {
	store := r.Resolve(aggregateName, defaultStore)
	if store == "" || !adapters.Has(store) {
		return "", errs2.New(errs2.FactoryMissing, errs2.CodeStoreNotRegistered,
			"no %s store registered for aggregate %q (resolved %q)", typeName, aggregateName, store)
	}
	return store, nil
}
