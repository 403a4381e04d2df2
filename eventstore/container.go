// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore

import (
	"context"
	"strings"
	"sync"

	"go.evstore.dev/engine/backend"
)

// containerGuard gates EnsureContainer calls behind an auto-create flag
// and caches verified containers in-process, so a store with auto-create
// enabled calls EnsureContainer at most once per container for the life
// of the process, and a store with it disabled never calls it at all.
type containerGuard struct {
	store   backend.Store
	enabled bool

	mu      sync.Mutex
	ensured map[string]bool
}

func newContainerGuard(store backend.Store, enabled bool) containerGuard {
	return containerGuard{store: store, enabled: enabled, ensured: make(map[string]bool)}
}

// ensure verifies the container backing objectName exists, creating it if
// auto-create is enabled and it hasn't been verified yet this process. It
// is a no-op when auto-create is disabled: the write that follows is then
// responsible for surfacing a ConfigError if the container turns out to
// be absent.
func (g *containerGuard) ensure(ctx context.Context, objectName string) error {
	if !g.enabled {
		return nil
	}
	container := strings.ToLower(objectName)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ensured[container] {
		return nil
	}

	if err := g.store.EnsureContainer(ctx, container); err != nil {
		return err
	}

	g.ensured[container] = true
	return nil
}
