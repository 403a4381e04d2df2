// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Package cmd wires esctl's cobra command tree and viper-bound
// configuration, in the pattern of storj's cmd/uplink/cmd.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"go.evstore.dev/engine/backend"
	"go.evstore.dev/engine/backend/memory"
	"go.evstore.dev/engine/errs2"
	"go.evstore.dev/engine/eventstore"
)

// Config is the set of flags every esctl subcommand binds through viper.
type Config struct {
	Backend          string // "memory" (default, process-local); "s3" is not yet wired into the CLI
	Bucket           string
	AutoCreateBucket bool
}

var cfg Config

// Root returns esctl's top-level cobra command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "esctl",
		Short: "Admin CLI for the event-stream storage engine",
	}

	root.PersistentFlags().StringVar(&cfg.Backend, "backend", "memory", "backend kind: memory (s3 not yet supported from esctl)")
	root.PersistentFlags().StringVar(&cfg.Bucket, "bucket", "es-engine", "container/bucket name")
	root.PersistentFlags().BoolVar(&cfg.AutoCreateBucket, "auto-create-bucket", true, "create the container on first write if it doesn't exist")
	_ = viper.BindPFlag("backend", root.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("bucket", root.PersistentFlags().Lookup("bucket"))
	_ = viper.BindPFlag("auto-create-bucket", root.PersistentFlags().Lookup("auto-create-bucket"))

	root.AddCommand(repairCmd(), tagCmd(), showCmd())
	return root
}

// openStore resolves the configured backend kind. Only the in-memory
// backend is reachable from the CLI: it is a fresh, empty store local to
// this esctl process. esctl takes no s3 endpoint or credential flags. An
// unrecognized or unsupported backend (including "s3") fails fast instead
// of silently substituting the in-memory store.
func openStore(log *zap.Logger) (backend.Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, errs2.New(errs2.ConfigError, errs2.CodeBackendMissing,
			"backend %q is not supported by esctl", cfg.Backend)
	}
}

// openEngine wires an Engine and DocumentStore over the configured backend.
func openEngine(log *zap.Logger) (*eventstore.Engine, *eventstore.DocumentStore, error) {
	store, err := openStore(log)
	if err != nil {
		return nil, nil, err
	}
	documents := eventstore.NewDocumentStore(store, log, cfg.AutoCreateBucket)
	data := eventstore.NewDataStore(store, log, cfg.AutoCreateBucket)
	return eventstore.NewEngine(documents, data, log), documents, nil
}
