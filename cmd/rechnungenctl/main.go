// Command rechnungenctl administers the invoice database from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rechnungen/internal/cli"
	"rechnungen/internal/config"
	"rechnungen/internal/log"
)

// env carries the services opened by the root command for its subcommands.
type env struct {
	dbPath   string
	logLevel string
	app      *cli.App
}

// newRootCmd builds the command tree. Services are opened before a
// subcommand runs; callers close e after Execute since cobra skips
// PersistentPostRunE when RunE fails.
func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "rechnungenctl",
		Short:         "Manage invoices and categories",
		Long:          `Administer the invoice database used by the rechnungen web UI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open(cmd)
		},
	}

	root.PersistentFlags().StringVar(&e.dbPath, "db", "", "invoice database path (default: $INVOICE_DB_PATH)")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(categoriesCmd(e))
	root.AddCommand(invoicesCmd(e))
	root.AddCommand(remindCmd(e))
	root.AddCommand(reportCmd(e))
	root.AddCommand(exportCmd(e))

	return root
}

func (e *env) open(cmd *cobra.Command) error {
	logger := log.NewText(cmd.ErrOrStderr(), log.ParseLevel(e.logLevel), log.ComponentCLI)
	log.SetDefault(logger)

	cfg := config.Load()
	if e.dbPath != "" {
		cfg.DBPath = e.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := cli.NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	e.app = app
	return nil
}

func (e *env) close() error {
	if e.app == nil {
		return nil
	}
	err := e.app.Close()
	e.app = nil
	return err
}

func main() {
	cli.LoadEnvFile()

	ctx, cancel := cli.GracefulShutdown(log.Discard())
	defer cancel()

	e := &env{}
	err := newRootCmd(e).ExecuteContext(ctx)
	_ = e.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err.Error()))
		cancel()
		os.Exit(1)
	}
}
