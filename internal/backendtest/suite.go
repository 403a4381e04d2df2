// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Package backendtest is a conformance suite any backend.Store
// implementation should pass, in the style of storj's
// private/kvstore/testsuite.RunTests.
package backendtest

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"go.evstore.dev/engine/backend"
	"go.evstore.dev/engine/errs2"
	"go.evstore.dev/engine/internal/testcontext"
)

// RunTests exercises store against the backend.Store contract. Call it from
// every adapter's own _test.go with a fresh, empty store.
func RunTests(t *testing.T, store backend.Store) {
	t.Run("CRUD", func(t *testing.T) { testCRUD(t, store) })
	t.Run("CreateOnlyPrecondition", func(t *testing.T) { testCreateOnly(t, store) })
	t.Run("UpdatePrecondition", func(t *testing.T) { testUpdatePrecondition(t, store) })
	t.Run("ListPrefix", func(t *testing.T) { testListPrefix(t, store) })
	t.Run("EnsureContainerIdempotent", func(t *testing.T) { testEnsureContainer(t, store) })
}

func testCRUD(t *testing.T, store backend.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	key := "crud/object"
	_, err := store.Get(ctx, key)
	require.True(t, errs2.Is(err, errs2.NotFound))

	token, err := store.Put(ctx, key, []byte("v1"), backend.NoneMatch())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	obj, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, bytes.Equal(obj.Data, []byte("v1")))
	require.Equal(t, token, obj.Token)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	require.True(t, errs2.Is(err, errs2.NotFound))

	// deleting an absent object is not an error
	require.NoError(t, store.Delete(ctx, key))
}

func testCreateOnly(t *testing.T, store backend.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	key := "create-only/object"
	_, err := store.Put(ctx, key, []byte("a"), backend.NoneMatch())
	require.NoError(t, err)

	_, err = store.Put(ctx, key, []byte("b"), backend.NoneMatch())
	require.True(t, errs2.Is(err, errs2.ConcurrencyConflict))

	obj, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), obj.Data)
}

func testUpdatePrecondition(t *testing.T, store backend.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	key := "update/object"
	token, err := store.Put(ctx, key, []byte("a"), backend.NoneMatch())
	require.NoError(t, err)

	_, err = store.Put(ctx, key, []byte("b"), backend.Match("stale-token"))
	require.True(t, errs2.Is(err, errs2.ConcurrencyConflict))

	newToken, err := store.Put(ctx, key, []byte("b"), backend.Match(token))
	require.NoError(t, err)
	require.NotEqual(t, token, newToken)

	obj, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("b"), obj.Data)
}

func testListPrefix(t *testing.T, store backend.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	var want []string
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("list-prefix/item-%d", i)
		want = append(want, key)
		_, err := store.Put(ctx, key, []byte("x"), backend.NoneMatch())
		require.NoError(t, err)
	}
	_, err := store.Put(ctx, "list-prefix-other/item", []byte("x"), backend.NoneMatch())
	require.NoError(t, err)

	page, err := store.ListPrefix(ctx, "list-prefix/", "")
	require.NoError(t, err)

	got := append([]string(nil), page.Keys...)
	sort.Strings(got)
	sort.Strings(want)
	require.Equal(t, want, got)
}

func testEnsureContainer(t *testing.T, store backend.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.EnsureContainer(ctx, "conformance-bucket"))
	}
}
