// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Package testcontext provides a context bound to a test's lifetime, with
// deferred cleanup and background-error checking, in the style of
// storj.io/common/testcontext.
package testcontext

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// Context is a context.Context that accumulates cleanup funcs and
// background errors, to be checked once at test teardown.
type Context struct {
	context.Context
	cancel func()

	t        testing.TB
	cleanups []func() error
	dir      string
}

// New returns a Context for t. Callers must defer ctx.Cleanup().
func New(t testing.TB) *Context {
	ctx, cancel := context.WithCancel(context.Background())
	return &Context{
		Context: ctx,
		cancel:  cancel,
		t:       t,
	}
}

// Check registers fn to run during Cleanup, failing the test if it errors.
func (ctx *Context) Check(fn func() error) {
	ctx.cleanups = append(ctx.cleanups, fn)
}

// Cleanup cancels the context, runs registered checks in reverse order,
// and removes any temp directory created via Dir/File.
func (ctx *Context) Cleanup() {
	ctx.cancel()
	for i := len(ctx.cleanups) - 1; i >= 0; i-- {
		if err := ctx.cleanups[i](); err != nil {
			ctx.t.Errorf("cleanup failed: %v", err)
		}
	}
	if ctx.dir != "" {
		_ = os.RemoveAll(ctx.dir)
	}
}

// Dir returns a fresh temporary directory removed at Cleanup.
func (ctx *Context) Dir(subdirs ...string) string {
	if ctx.dir == "" {
		dir, err := os.MkdirTemp("", "evstore-test-")
		if err != nil {
			ctx.t.Fatal(err)
		}
		ctx.dir = dir
	}
	path := filepath.Join(append([]string{ctx.dir}, subdirs...)...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		ctx.t.Fatal(err)
	}
	return path
}

// File returns a path to name inside a fresh temporary directory.
func (ctx *Context) File(name string) string {
	return filepath.Join(ctx.Dir(), name)
}
