// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair <object-name> <object-id>",
		Short: "Clear broken_stream_info after manual cleanup, returning the stream to Active",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			log, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			engine, _, err := openEngine(log)
			if err != nil {
				return err
			}

			doc, err := engine.AdminRepair(c.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("repaired %s/%s: stream %s is Active again\n", doc.ObjectName, doc.ObjectID, doc.Active.StreamIdentifier)
			return nil
		},
	}
}
