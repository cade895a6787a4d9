package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticketbot/internal/api/http"
	"github.com/spec-kit/ticketbot/internal/api/http/handlers"
	"github.com/spec-kit/ticketbot/internal/auth"
	"github.com/spec-kit/ticketbot/internal/chat"
	"github.com/spec-kit/ticketbot/internal/events"
	"github.com/spec-kit/ticketbot/internal/interaction"
	"github.com/spec-kit/ticketbot/internal/observability"
	"github.com/spec-kit/ticketbot/internal/query"
	"github.com/spec-kit/ticketbot/internal/service"
	"github.com/spec-kit/ticketbot/internal/view"
	"github.com/spec-kit/ticketbot/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Slack commands and interactivity endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger := rt.cfg, rt.logger
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := rt.migrate(ctx); err != nil {
			return err
		}
	}

	cat, err := loadCatalog(cfg.Tickets.CatalogPath)
	if err != nil {
		return err
	}

	store := rt.pg.TicketStore()
	policy := auth.NewPolicy(cfg.Tickets.Responders)
	dispatcher := events.NewInMemoryDispatcher()
	renderer := view.NewRenderer(cat, cfg.Tickets.Location())
	builder := query.NewBuilder(cfg.Tickets.Location())
	slackClient := chat.NewSlackClient(cfg.Slack.BotToken)
	metrics := observability.NewMetrics()

	notifier := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:   dispatcher,
		Store:        store,
		Chat:         slackClient,
		Renderer:     renderer,
		Logger:       logger,
		AdminChannel: cfg.Slack.AdminChannel,
	})
	notifications := worker.StartNotificationWorker(ctx, dispatcher, notifier, cfg.App.InteractionWorkers, cfg.App.RequestTimeout(), logger)

	tickets := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Policy:     policy,
		Catalog:    cat,
		Dispatcher: notifications,
		Logger:     logger,
	})
	exports := service.NewExportService(service.ExportDependencies{
		Store:   store,
		Policy:  policy,
		Builder: builder,
		Chat:    slackClient,
		Limit:   cfg.Tickets.ExportLimit,
		Logger:  logger,
	})

	coordinator := interaction.NewCoordinator(interaction.Dependencies{
		Tickets:       tickets,
		Exports:       exports,
		Notifier:      notifier,
		Store:         store,
		Builder:       builder,
		Renderer:      renderer,
		Chat:          slackClient,
		Signer:        auth.NewMetadataSigner(cfg.Slack.MetadataSecret, cfg.Slack.MetadataTTLMinutes),
		Metrics:       metrics,
		Logger:        logger,
		TicketChannel: cfg.Slack.TicketChannel,
		PageSize:      cfg.Tickets.PageSize,
	})

	runner := worker.NewInteractionRunner(ctx, cfg.App.InteractionWorkers, cfg.App.RequestTimeout(), logger)

	var limiter handlers.Limiter
	if cfg.RateLimit.Enabled() {
		limiter = handlers.NewRedisLimiter(rt.redis, cfg.RateLimit.Requests, cfg.RateLimit.Window(), logger)
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, rt.redis, metrics),
		Slack:    handlers.NewSlackHandler(coordinator, runner, limiter, logger),
		Verifier: auth.NewSlackVerifier(cfg.Slack.SigningSecret),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("fiber listen: %w", err)
		}
	case <-waitForShutdown(logger):
	}

	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	runner.Wait()
	notifications.Wait()
	return nil
}

func waitForShutdown(logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		close(done)
	}()
	return done
}
