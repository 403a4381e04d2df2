// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore_test

import (
	"context"
	"strings"
	"sync"

	"go.evstore.dev/engine/backend"
)

// faultyStore wraps a backend.Store and can be configured to fail specific
// writes to the object-document key and/or the stream-events key, for
// exercising the commit protocol's rollback and broken-stream paths
// deterministically. A synthetic failure never reaches the wrapped store, so
// the underlying object is left exactly as it was before the call - a later
// retry against the same precondition token succeeds, matching a transient
// transport failure rather than a real concurrent write.
type faultyStore struct {
	backend.Store

	failDocumentWrites bool // unconditionally fail every write to the document key
	failDocumentCall   int  // fail exactly the Nth write to the document key (0 = never)
	failEventsAfter    int  // fail every write to the events key after the Nth (0 = never)

	mu           sync.Mutex
	documentPuts int
	eventsPuts   int
}

func isDocumentKey(key string) bool {
	return strings.HasSuffix(key, ".json") && !strings.HasSuffix(key, ".events.json")
}

func isEventsKey(key string) bool {
	return strings.HasSuffix(key, ".events.json")
}

func (f *faultyStore) Put(ctx context.Context, key string, data []byte, precondition backend.Precondition) (string, error) {
	if isDocumentKey(key) {
		if f.failDocumentWrites {
			return "", backend.PreconditionFailedError(key)
		}
		if f.failDocumentCall > 0 {
			f.mu.Lock()
			f.documentPuts++
			n := f.documentPuts
			f.mu.Unlock()
			if n == f.failDocumentCall {
				return "", backend.PreconditionFailedError(key)
			}
		}
	}
	if isEventsKey(key) && f.failEventsAfter > 0 {
		f.mu.Lock()
		f.eventsPuts++
		n := f.eventsPuts
		f.mu.Unlock()
		if n > f.failEventsAfter {
			return "", backend.PreconditionFailedError(key)
		}
	}
	return f.Store.Put(ctx, key, data, precondition)
}
