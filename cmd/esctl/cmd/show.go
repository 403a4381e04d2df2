// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <object-name> <object-id>",
		Short: "Print an ObjectDocument as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			log, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			_, documents, err := openEngine(log)
			if err != nil {
				return err
			}

			doc, err := documents.Get(c.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
