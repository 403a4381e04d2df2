// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package checkpoint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.evstore.dev/engine/backend/memory"
	"go.evstore.dev/engine/checkpoint"
	"go.evstore.dev/engine/internal/testcontext"
)

type userCountProjection struct {
	Count int `json:"count"`
}

func TestSaveAndGetOrCreate(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := checkpoint.New(memory.New(), "projections", nil)
	blob := checkpoint.DefaultBlobName("userCount")
	require.Equal(t, "userCount.json", blob)

	data, err := f.GetOrCreate(ctx, blob, []byte(`{"count":0}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"count":0}`, string(data))

	require.NoError(t, checkpoint.SaveProjection(ctx, f, blob, userCountProjection{Count: 5}))

	data, err = f.GetOrCreate(ctx, blob, []byte(`{"count":0}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"count":5}`, string(data))
}

func TestExistsAndDelete(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := checkpoint.New(memory.New(), "projections", nil)
	blob := "widgets.json"

	exists, err := f.Exists(ctx, blob)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, f.Save(ctx, blob, []byte(`{}`)))
	exists, err = f.Exists(ctx, blob)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, f.Delete(ctx, blob))
	exists, err = f.Exists(ctx, blob)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestGetLastModifiedTracksSave(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := checkpoint.New(memory.New(), "projections", nil)
	blob := "widgets.json"

	_, ok := f.GetLastModified(blob)
	require.False(t, ok)

	require.NoError(t, f.Save(ctx, blob, []byte(`{}`)))
	_, ok = f.GetLastModified(blob)
	require.True(t, ok)
}

func TestStatusDefaultsToActive(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := checkpoint.New(memory.New(), "projections", nil)
	blob := "widgets.json"

	status, err := f.GetStatus(ctx, blob)
	require.NoError(t, err)
	require.Equal(t, checkpoint.Active, status)

	require.NoError(t, f.Save(ctx, blob, []byte(`{}`)))
	require.NoError(t, f.SetStatus(ctx, blob, checkpoint.Rebuilding))

	status, err = f.GetStatus(ctx, blob)
	require.NoError(t, err)
	require.Equal(t, checkpoint.Rebuilding, status)
}

func TestSaveWritesCheckpointFingerprintOnce(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := memory.New()
	f := checkpoint.New(store, "projections", nil)
	blob := "widgets.json"

	data := []byte(`{"count":1,"$checkpoint":"fp-1"}`)
	require.NoError(t, f.Save(ctx, blob, data))

	obj, err := store.Get(ctx, "checkpoints/fp-1.json")
	require.NoError(t, err)
	require.JSONEq(t, string(data), string(obj.Data))

	// saving again under the same fingerprint does not error even though
	// the checkpoint object already exists.
	require.NoError(t, f.Save(ctx, blob, data))
}
