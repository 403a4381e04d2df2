// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package memory_test

import (
	"testing"

	"go.evstore.dev/engine/backend/memory"
	"go.evstore.dev/engine/internal/backendtest"
)

func TestSuite(t *testing.T) {
	backendtest.RunTests(t, memory.New())
}
