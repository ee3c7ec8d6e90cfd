// Package main provides the entry point for the Alchemorsel discovery service
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alchemorsel/discovery/internal/infrastructure/container"
	"github.com/alchemorsel/discovery/internal/ports/inbound"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const defaultStopTimeout = 30 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the discovery HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), container.ConfigPath(configPath))
		},
	}

	root := &cobra.Command{
		Use:          "alchemorsel-discovery",
		Short:        "Session-aware recipe search and variation engine",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (defaults to config.yaml in ., ./config or /etc/alchemorsel)")

	root.AddCommand(serve, newSearchCommand(&configPath))
	return root
}

func runServer(ctx context.Context, configPath container.ConfigPath) error {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(configPath),
		container.Module,
		fx.StopTimeout(defaultStopTimeout),
	)

	ctx, cancel := signal.NotifyContext(ctxOrBackground(ctx), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-app.Wait():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), defaultStopTimeout)
	defer stopCancel()
	return app.Stop(stopCtx)
}

func newSearchCommand(configPath *string) *cobra.Command {
	var (
		sessionID string
		repeat    int
		pageSize  int
		reset     bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run searches against the configured catalogue and print the JSON results",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" && !reset {
				return fmt.Errorf("a query is required unless --reset is given")
			}
			if repeat < 1 {
				repeat = 1
			}

			var service inbound.DiscoveryService
			app := fx.New(
				fx.NopLogger,
				fx.Supply(container.ConfigPath(*configPath)),
				container.CoreModule,
				fx.Populate(&service),
			)

			ctx := ctxOrBackground(cmd.Context())
			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("failed to start application: %w", err)
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), defaultStopTimeout)
				defer cancel()
				_ = app.Stop(stopCtx)
			}()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if reset {
				result, err := service.Reset(ctx, sessionID)
				if err != nil {
					return err
				}
				if err := enc.Encode(result); err != nil {
					return err
				}
				if query == "" {
					return nil
				}
			}

			for i := 0; i < repeat; i++ {
				result, err := service.Search(ctx, inbound.SearchCommand{
					Query:     query,
					SessionID: sessionID,
					PageSize:  pageSize,
				})
				if result != nil {
					if encErr := enc.Encode(result); encErr != nil {
						return encErr
					}
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "cli", "session id to search under")
	cmd.Flags().IntVarP(&repeat, "repeat", "n", 1, "how many times to run the same query")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "results per page (0 uses search.page_size)")
	cmd.Flags().BoolVar(&reset, "reset", false, "reset the session before searching")
	return cmd
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
