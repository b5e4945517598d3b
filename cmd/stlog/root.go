package main

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/willibrandon/stlog/configuration"
	"github.com/willibrandon/stlog/durable"
)

type commandContext struct {
	configFlag string
	cfg        *cliConfig
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "stlog",
		Short:         "Inspect message templates and batched sink buffers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.String("store", "", "Durable store kind: file, sqlite or redis")
	flags.String("store-path", "", "Directory (file) or database path (sqlite) of the store")
	flags.String("redis-addr", "", "Redis address for the redis store")
	flags.String("store-key", "", "Key namespace of the batched sink")

	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newPendingCommand(ctx))
	rootCmd.AddCommand(newReplayCommand(ctx))

	return rootCmd
}

func (c *commandContext) config(cmd *cobra.Command) (cliConfig, error) {
	if c.cfg == nil {
		cfg, err := loadCLIConfig(cmd, strings.TrimSpace(c.configFlag))
		if err != nil {
			return cfg, err
		}
		c.cfg = &cfg
	}
	return *c.cfg, nil
}

// openStore opens the configured store. The returned func closes it.
func (c *commandContext) openStore(ctx context.Context, cmd *cobra.Command) (durable.Store, cliConfig, func(), error) {
	cfg, err := c.config(cmd)
	if err != nil {
		return nil, cfg, nil, err
	}
	component, err := cfg.storeComponent()
	if err != nil {
		return nil, cfg, nil, err
	}
	store, err := configuration.NewLoggerBuilder().CreateStore(ctx, component)
	if err != nil {
		return nil, cfg, nil, err
	}
	closeFn := func() {
		if closer, ok := store.(io.Closer); ok {
			_ = closer.Close()
		}
	}
	return store, cfg, closeFn, nil
}
