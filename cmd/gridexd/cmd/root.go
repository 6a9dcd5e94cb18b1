// Package cmd wires the gridexd command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"github.com/gridexchange/gridex/internal/api"
	"github.com/gridexchange/gridex/internal/config"
	"github.com/gridexchange/gridex/internal/ledger"
	"github.com/gridexchange/gridex/internal/storage/memory"
	pebblestore "github.com/gridexchange/gridex/internal/storage/pebble"
	"github.com/gridexchange/gridex/x/exchange/keeper"
	"github.com/gridexchange/gridex/x/exchange/types"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gridexd",
		Short: "gridex hybrid exchange node",
		Long: `gridexd runs the gridex exchange: a constant-product AMM and a
price/time-priority limit order book behind a router that splits
execution across both venues.`,
	}
	rootCmd.PersistentFlags().String("config", "", "path to the YAML config file")
	rootCmd.AddCommand(newStartCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gridexd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exchange node",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return runNode(cmd.Context(), cfg)
		},
	}
}

func newLogger(cfg config.LogConfig) (log.Logger, error) {
	opts := []log.Option{}
	if cfg.Format == "json" {
		opts = append(opts, log.OutputJSONOption())
	}
	filter, err := log.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	opts = append(opts, log.FilterOption(filter))
	return log.NewLogger(os.Stderr, opts...), nil
}

func openStore(cfg config.StorageConfig) (types.Store, func() error, error) {
	switch cfg.Backend {
	case "pebble":
		store, err := pebblestore.Open(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory":
		return memory.New(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func runNode(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	bank := ledger.New()
	k := keeper.NewKeeper(bank, selfAuthorizer{}, systemClock{}, cryptoEntropy{}, store, logger)
	if err := k.LoadState(ctx); err != nil {
		return fmt.Errorf("load exchange state: %w", err)
	}

	server := api.NewServer(cfg.API, cfg.Metrics, k, bank, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down", "reason", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
