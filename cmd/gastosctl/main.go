package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gastos/internal/backend"
	"gastos/internal/budget"
	"gastos/internal/cli"
	applog "gastos/internal/log"
	"gastos/internal/store"
)

// session is what every subcommand works against.
type session struct {
	Store    store.Store
	Budgets  budget.Table
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
	Close    func() error
}

type opener func(ctx context.Context) (*session, error)

func main() {
	if err := newRootCmd(openConfigured).Execute(); err != nil {
		os.Exit(1)
	}
}

// openConfigured builds the session from the same environment the server
// reads. Logs go to stderr so stdout stays clean for tables.
func openConfigured(ctx context.Context) (*session, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg, applog.ComponentCLI, os.Stderr)

	budgets, err := cli.LoadBudgets(cfg)
	if err != nil {
		return nil, err
	}
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		return nil, err
	}
	return &session{
		Store:    result.Store,
		Budgets:  budgets,
		Location: cfg.Location(),
		Logger:   logger,
		Now:      time.Now,
		Close:    result.Close,
	}, nil
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "gastosctl",
		Short:         "Record and review household expenses from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newAddCmd(open), newReportCmd(open), newBudgetsCmd(open))
	return root
}

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, open opener, fn func(ctx context.Context, s *session, out io.Writer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if s.Close == nil {
			return
		}
		if err := s.Close(); err != nil {
			s.Logger.Warn("Backend cleanup error", "error", err)
		}
	}()
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Location == nil {
		s.Location = time.Local
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return fn(ctx, s, cmd.OutOrStdout())
}

func printf(out io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(out, format, args...)
}
