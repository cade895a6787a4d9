package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/catalog"
	"github.com/spec-kit/ticketbot/internal/chat"
	"github.com/spec-kit/ticketbot/internal/service"
	"github.com/spec-kit/ticketbot/internal/view"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Report stale and overdue tickets once",
	Long: `sweep posts the stale ticket digest to the ticket channel and sends each
assignee a reminder for their overdue tickets. It never changes a ticket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		cfg := rt.cfg
		if cfg.Slack.BotToken == "" {
			return errors.New("SLACK_BOT_TOKEN is required")
		}
		cat, err := loadCatalog(cfg.Tickets.CatalogPath)
		if err != nil {
			return err
		}

		sweeper := service.NewSweepService(service.SweepDependencies{
			Store:        rt.pg.TicketStore(),
			Chat:         chat.NewSlackClient(cfg.Slack.BotToken),
			Renderer:     view.NewRenderer(cat, cfg.Tickets.Location()),
			Locker:       rt.redis,
			Channel:      cfg.Slack.TicketChannel,
			StaleAfter:   cfg.Sweep.StaleAfter(),
			OverdueAfter: cfg.Sweep.OverdueAfter(),
			LockTTL:      cfg.Sweep.LockTTL(),
			Logger:       rt.logger,
		})

		result, err := sweeper.Run(ctx)
		rt.logger.Info("sweep finished",
			zap.Bool("skipped", result.Skipped),
			zap.Int("stale", result.Stale),
			zap.Int("overdue", result.Overdue),
			zap.Int("reminders", result.Reminders),
		)
		return err
	},
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return cat, nil
}
