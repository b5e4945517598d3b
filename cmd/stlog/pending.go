package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/willibrandon/stlog/durable"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List batches waiting in the durable store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, closeStore, err := ctx.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			keys, err := store.Keys(cmd.Context(), cfg.StoreKey+"-")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No pending batches.")
				return nil
			}

			rows := make([][]string, 0, len(keys))
			total := 0
			for _, key := range keys {
				data, err := store.Get(cmd.Context(), key)
				if err != nil {
					return fmt.Errorf("read %s: %w", key, err)
				}
				events, err := durable.DecodeEvents(data)
				if err != nil {
					rows = append(rows, []string{key, "-", "unreadable", ""})
					continue
				}
				total += len(events)
				row := []string{key, strconv.Itoa(len(events)), "", ""}
				if len(events) > 0 {
					row[2] = events[0].Timestamp.UTC().Format(time.RFC3339)
					row[3] = events[len(events)-1].Timestamp.UTC().Format(time.RFC3339)
				}
				rows = append(rows, row)
			}

			fmt.Fprintln(out, renderTable([]string{"Key", "Events", "Oldest", "Newest"}, rows, 1))
			fmt.Fprintf(out, "%d events in %d batches\n", total, len(keys))
			return nil
		},
	}
}
