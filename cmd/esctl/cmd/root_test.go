// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.evstore.dev/engine/errs2"
)

func TestRootRegistersSubcommands(t *testing.T) {
	root := Root()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	require.True(t, names["repair"])
	require.True(t, names["tag"])
	require.True(t, names["show"])
}

func TestRootDefaultFlags(t *testing.T) {
	root := Root()

	backendFlag := root.PersistentFlags().Lookup("backend")
	require.NotNil(t, backendFlag)
	require.Equal(t, "memory", backendFlag.DefValue)

	bucketFlag := root.PersistentFlags().Lookup("bucket")
	require.NotNil(t, bucketFlag)
	require.Equal(t, "es-engine", bucketFlag.DefValue)
}

func TestShowAndRepairRequireTwoArgs(t *testing.T) {
	root := Root()
	root.SetArgs([]string{"show", "only-one-arg"})
	err := root.Execute()
	require.Error(t, err)

	root = Root()
	root.SetArgs([]string{"repair", "only-one-arg"})
	err = root.Execute()
	require.Error(t, err)
}

func TestOpenStoreRejectsUnsupportedBackend(t *testing.T) {
	prior := cfg.Backend
	defer func() { cfg.Backend = prior }()

	cfg.Backend = "s3"
	_, err := openStore(nil)
	require.Error(t, err)
	require.True(t, errs2.Is(err, errs2.ConfigError))

	cfg.Backend = "bogus"
	_, err = openStore(nil)
	require.Error(t, err)
	require.True(t, errs2.Is(err, errs2.ConfigError))

	cfg.Backend = "memory"
	store, err := openStore(nil)
	require.NoError(t, err)
	require.NotNil(t, store)
}
