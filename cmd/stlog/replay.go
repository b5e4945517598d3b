package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/sinks"
)

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var output string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Deliver pending batches to the console or a CLEF file",
		Long: "Deliver pending batches to the console or a CLEF file.\n\n" +
			"Batches are removed from the store once delivered.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, closeStore, err := ctx.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			var target core.Sink
			if output != "" {
				if target, err = sinks.NewFileSink(output); err != nil {
					return err
				}
			} else {
				target = sinks.NewConsoleSink(cmd.OutOrStdout(), sinks.WithProperties(true))
			}
			counter := &countingSink{Sink: target}

			batched, err := sinks.NewBatchedSink(cmd.Context(), counter, sinks.BatchedOptions{
				MaxSize:         batchSize,
				Period:          -1,
				DurableStore:    store,
				DurableStoreKey: cfg.StoreKey,
			})
			if err != nil {
				return err
			}
			if err := batched.Close(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Replayed %d events\n", counter.events.Load())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Append events as CLEF to this file instead of the console")
	cmd.Flags().IntVar(&batchSize, "batch-size", sinks.DefaultBatchSize, "Events per delivered batch")
	return cmd
}

// countingSink counts delivered events and closes the sink it wraps.
type countingSink struct {
	core.Sink
	events atomic.Int64
}

func (s *countingSink) Emit(ctx context.Context, events []*core.LogEvent) error {
	if err := s.Sink.Emit(ctx, events); err != nil {
		return err
	}
	s.events.Add(int64(len(events)))
	return nil
}

func (s *countingSink) Close() error {
	if c, ok := s.Sink.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
