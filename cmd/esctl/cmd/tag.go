// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.evstore.dev/engine/eventstore"
)

func tagCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tag",
		Short: "Inspect the document/stream tag index",
	}
	root.AddCommand(tagListCmd())
	return root
}

func tagListCmd() *cobra.Command {
	var stream bool
	c := &cobra.Command{
		Use:   "ls <object-name> <tag>",
		Short: "List the ids indexed under an (aggregate, tag) pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			log, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, err := openStore(log)
			if err != nil {
				return err
			}
			tags := eventstore.NewTagIndex(store, store, log)

			kind := eventstore.DocumentTag
			if stream {
				kind = eventstore.StreamTag
			}

			entry, err := tags.Get(c.Context(), args[0], kind, args[1])
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(entry.ObjectIDs))
			for id := range entry.ObjectIDs {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&stream, "stream", false, "query the stream-tag index instead of the document-tag index")
	return c
}
