package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/config"
	"github.com/spec-kit/ticketbot/internal/observability"
	"github.com/spec-kit/ticketbot/internal/persistence"
)

var rootCmd = &cobra.Command{
	Use:   "ticketbot",
	Short: "Slack support ticket tracker",
	Long: `ticketbot serves the Slack commands and interactivity endpoints of the
support ticket tracker, and runs its maintenance jobs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
}

// runtime holds the process-wide resources every subcommand starts from.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
	redis  *persistence.Redis
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		pg:     pg,
		redis:  persistence.NewRedis(cfg.Redis, logger),
	}, nil
}

func (r *runtime) migrate(ctx context.Context) error {
	if r.pg.Pool == nil {
		r.logger.Info("no postgres configured; skipping migrations")
		return nil
	}
	if err := persistence.RunMigrations(ctx, r.pg.Pool, r.logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (r *runtime) Close() {
	r.redis.Close()
	r.pg.Close()
	_ = r.logger.Sync()
}
