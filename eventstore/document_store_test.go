// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.evstore.dev/engine/backend/memory"
	"go.evstore.dev/engine/errs2"
	"go.evstore.dev/engine/eventstore"
	"go.evstore.dev/engine/internal/testcontext"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	documents := eventstore.NewDocumentStore(memory.New(), nil, true)

	first, _, err := documents.GetOrCreate(ctx, "users", "u1")
	require.NoError(t, err)

	second, _, err := documents.GetOrCreate(ctx, "users", "u1")
	require.NoError(t, err)

	require.Equal(t, first.Active.StreamIdentifier, second.Active.StreamIdentifier)
}

func TestGetFailsNotFoundForMissingDocument(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	documents := eventstore.NewDocumentStore(memory.New(), nil, true)

	_, err := documents.Get(ctx, "users", "does-not-exist")
	require.Error(t, err)
	require.True(t, errs2.Is(err, errs2.NotFound))
}

func TestValidateNameAndIDRejectsEmpty(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	documents := eventstore.NewDocumentStore(memory.New(), nil, true)

	_, _, err := documents.GetOrCreate(ctx, "", "u1")
	require.True(t, errs2.Is(err, errs2.InvalidArgument))

	_, _, err = documents.GetOrCreate(ctx, "users", "")
	require.True(t, errs2.Is(err, errs2.InvalidArgument))
}

func TestGetByTagHydratesAllMatches(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := memory.New()
	documents := eventstore.NewDocumentStore(store, nil, true)
	tags := eventstore.NewTagIndex(store, store, nil)

	u1, _, err := documents.GetOrCreate(ctx, "users", "u1")
	require.NoError(t, err)
	u2, _, err := documents.GetOrCreate(ctx, "users", "u2")
	require.NoError(t, err)
	_, _, err = documents.GetOrCreate(ctx, "users", "u3")
	require.NoError(t, err)

	require.NoError(t, tags.Set(ctx, u1, "users", eventstore.DocumentTag, "vip"))
	require.NoError(t, tags.Set(ctx, u2, "users", eventstore.DocumentTag, "vip"))

	docs, err := documents.GetByTag(ctx, tags, "users", eventstore.DocumentTag, "vip")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	ids := map[string]bool{}
	for _, d := range docs {
		ids[d.ObjectID] = true
	}
	require.True(t, ids["u1"])
	require.True(t, ids["u2"])
	require.False(t, ids["u3"])
}

func TestGetFirstByTagReturnsNotFoundWhenTagUnused(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := memory.New()
	documents := eventstore.NewDocumentStore(store, nil, true)
	tags := eventstore.NewTagIndex(store, store, nil)

	_, err := documents.GetFirstByTag(ctx, tags, "users", eventstore.DocumentTag, "vip")
	require.Error(t, err)
	require.True(t, errs2.Is(err, errs2.NotFound))
}

func TestGetFirstByTagResolvesStreamTagByIdentifier(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := memory.New()
	documents := eventstore.NewDocumentStore(store, nil, true)
	tags := eventstore.NewTagIndex(store, store, nil)

	doc, _, err := documents.GetOrCreate(ctx, "users", "u1")
	require.NoError(t, err)
	require.NoError(t, tags.Set(ctx, doc, "users", eventstore.StreamTag, "onboarding"))

	found, err := documents.GetFirstByTag(ctx, tags, "users", eventstore.StreamTag, "onboarding")
	require.NoError(t, err)
	require.Equal(t, doc.ObjectID, found.ObjectID)
}

func TestStreamTagFailsWithConfigErrorWhenStoreUnconfigured(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := memory.New()
	documents := eventstore.NewDocumentStore(store, nil, true)
	tags := eventstore.NewTagIndex(store, nil, nil)

	doc, _, err := documents.GetOrCreate(ctx, "users", "u1")
	require.NoError(t, err)

	err = tags.Set(ctx, doc, "users", eventstore.StreamTag, "onboarding")
	require.True(t, errs2.Is(err, errs2.ConfigError))

	_, err = tags.Get(ctx, "users", eventstore.StreamTag, "onboarding")
	require.True(t, errs2.Is(err, errs2.ConfigError))

	_, err = documents.GetFirstByTag(ctx, tags, "users", eventstore.StreamTag, "onboarding")
	require.True(t, errs2.Is(err, errs2.ConfigError))

	// DocumentTag operations are unaffected by the missing stream-tag store.
	require.NoError(t, tags.Set(ctx, doc, "users", eventstore.DocumentTag, "vip"))
}
