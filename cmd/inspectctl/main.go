// Command inspectctl is the operator tool for the inspection store: it checks
// connectivity, prints the newest inspection or the status counts, and
// renders a stored inspection as PDF.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/config"
	"github.com/medirank/medirank-api/internal/database"
	"github.com/medirank/medirank-api/internal/logger"
)

func main() {
	if err := newRootCommand(nil).Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand needs. open is replaced in tests.
type app struct {
	open    func(ctx context.Context) (*database.Stores, error)
	log     *zap.Logger
	verbose bool
}

func newRootCommand(a *app) *cobra.Command {
	if a == nil {
		a = &app{}
	}

	rootCmd := &cobra.Command{
		Use:          "inspectctl",
		Short:        "Inspect the Medirank inspection store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log connection details")

	rootCmd.AddCommand(newPingCommand(a))
	rootCmd.AddCommand(newLatestCommand(a))
	rootCmd.AddCommand(newSummaryCommand(a))
	rootCmd.AddCommand(newReportCommand(a))
	return rootCmd
}

// init loads the environment the same way the server does.
func (a *app) init() error {
	if a.log == nil {
		level := "warn"
		if a.verbose {
			level = "debug"
		}
		log, err := logger.New(level, "console", "inspectctl")
		if err != nil {
			return err
		}
		a.log = log
	}
	if a.open != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.open = func(ctx context.Context) (*database.Stores, error) {
		return database.Open(ctx, cfg, a.log)
	}
	return nil
}

// withStores opens the store, runs fn and closes the store again.
func (a *app) withStores(ctx context.Context, fn func(*database.Stores) error) error {
	stores, err := a.open(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer stores.Close(context.Background())
	return fn(stores)
}
