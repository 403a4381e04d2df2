// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

// Command esctl is the admin CLI for the event-stream storage engine: the
// manual-repair and inspection surface the engine deliberately does not
// automate (broken-stream repair, tag lookups, document inspection).
package main

import (
	"fmt"
	"os"

	"go.evstore.dev/engine/cmd/esctl/cmd"
)

func main() {
	if err := cmd.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
