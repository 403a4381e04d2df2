// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Package memory implements an in-process backend.Store, used for tests and
// bootstrap. It is modeled on storj's private/kvstore/teststore: a single
// mutex-guarded map, values cloned in and out, object existence validated on
// every precondition.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"go.evstore.dev/engine/backend"
	"go.evstore.dev/engine/errs2"
)

type entry struct {
	data  []byte
	token string
}

// Store is a thread-safe, in-memory backend.Store.
type Store struct {
	mu         sync.Mutex
	objects    map[string]entry
	containers map[string]bool
}

var _ backend.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		objects:    make(map[string]entry),
		containers: make(map[string]bool),
	}
}

// Get implements backend.Store.
func (s *Store) Get(_ context.Context, key string) (backend.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.objects[key]
	if !ok {
		return backend.Object{}, backend.NotFoundError(key)
	}
	return backend.Object{Data: append([]byte(nil), e.data...), Token: e.token}, nil
}

// Put implements backend.Store.
func (s *Store) Put(_ context.Context, key string, data []byte, precondition backend.Precondition) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.objects[key]
	switch precondition.Kind {
	case backend.IfNoneMatch:
		if exists {
			return "", backend.PreconditionFailedError(key)
		}
	case backend.IfMatch:
		if !exists || existing.token != precondition.Token {
			return "", backend.PreconditionFailedError(key)
		}
	case backend.Unconditional:
		// no check
	}

	token := uuid.NewString()
	s.objects[key] = entry{data: append([]byte(nil), data...), token: token}
	return token, nil
}

// Head implements backend.Store.
func (s *Store) Head(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.objects[key]
	if !ok {
		return "", backend.NotFoundError(key)
	}
	return e.token, nil
}

// Delete implements backend.Store.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

// ListPrefix implements backend.Store. The in-memory adapter has no real
// pagination limit, so it returns every matching key in one page.
func (s *Store) ListPrefix(_ context.Context, prefix string, cursor string) (backend.Page, error) {
	if cursor != "" {
		return backend.Page{}, errs2.New(errs2.InvalidArgument, errs2.CodeInvalidRange, "memory backend does not support cursor resumption")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return backend.Page{Keys: keys}, nil
}

// EnsureContainer implements backend.Store.
func (s *Store) EnsureContainer(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.containers[container] = true
	return nil
}
