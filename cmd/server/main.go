package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/nekogravitycat/court-scheduler/internal/app"
	"github.com/nekogravitycat/court-scheduler/internal/config"
	"github.com/nekogravitycat/court-scheduler/internal/db"
	"github.com/nekogravitycat/court-scheduler/internal/logging"
	"github.com/nekogravitycat/court-scheduler/internal/notify"
	"github.com/nekogravitycat/court-scheduler/internal/scheduler"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.IsProduction(), cfg.LogLevel)

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := db.Migrate(pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// Booking events go to the log, and to RabbitMQ when configured.
	notifiers := notify.Multi{notify.NewLogNotifier(log.Logger)}
	if cfg.RabbitURL != "" {
		publisher, err := notify.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
		log.Info().Str("exchange", cfg.RabbitExchange).Msg("Publishing booking events to RabbitMQ")
	}

	container, err := app.NewContainer(app.Config{
		IsProduction:    cfg.IsProduction(),
		ProdOrigins:     cfg.ProdOrigins,
		DBPool:          pool,
		JWTSecret:       cfg.JWTSecret,
		JWTTTL:          cfg.JWTAccessTokenTTL,
		CredentialsKey:  cfg.CredentialsKey,
		PendingGrace:    cfg.PendingGrace,
		WebhookSecret:   cfg.PaymentWebhookSecret,
		ProviderBaseURL: cfg.PaymentProviderBaseURL,
		ProviderTimeout: cfg.PaymentProviderTimeout,
		Notifier:        notifiers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build application")
	}

	// Background jobs
	sched, err := scheduler.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	err = scheduler.RegisterBookingJobs(sched, container.BookingService, scheduler.JobConfig{
		SweepCron:    cfg.SweepCron,
		RolloverCron: cfg.RolloverCron,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register booking jobs")
	}
	sched.Start()

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Wait for Ctrl+C, then drain
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown failed")
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
