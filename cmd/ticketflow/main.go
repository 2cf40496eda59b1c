package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketflow/internal/config"
	"ticketflow/internal/constants"
	"ticketflow/internal/database"
	"ticketflow/internal/retry"
	"ticketflow/internal/service"
	"ticketflow/internal/tracing"
	"ticketflow/pkg/ai"
	"ticketflow/pkg/flow"
	"ticketflow/pkg/realtime"
	"ticketflow/pkg/transport"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ticketflow %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting ticketflow")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewManager(tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Database comes up with exponential backoff so a slow volume mount does
	// not kill the process.
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})

	var db *database.Database
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warnf("Failed to close database: %v", err)
		}
	}()

	hub := realtime.NewHub(logger)
	defer hub.Close()

	sender := transport.NewClient(
		cfg.Transport.APIBaseURL,
		cfg.Transport.APIKey,
		time.Duration(cfg.Transport.TimeoutSec)*time.Second,
		logger,
	)

	aiClient := ai.NewClient(
		cfg.AI.BaseURL,
		cfg.AI.APIKey,
		cfg.AI.Provider,
		cfg.AI.Model,
		time.Duration(cfg.AI.TimeoutSec)*time.Second,
		logger,
	)

	flowClient := flow.NewClient(
		cfg.Flow.BaseURL,
		cfg.Flow.APIKey,
		time.Duration(cfg.Flow.TimeoutSec)*time.Second,
		logger,
	)

	registry := service.NewConnectionRegistry(cfg.Connections)
	contacts := service.NewContactService(db, logger)
	tickets := service.NewTicketService(db, hub, logger)
	router := service.NewRouter(db, tickets, sender, aiClient, flowClient, logger)
	defer router.Stop()

	dedup := service.NewDedupFilter(db, logger)
	normalizer := service.NewNormalizer()
	pipeline := service.NewPipeline(dedup, normalizer, contacts, tickets, router, registry, db, hub, logger)
	receipts := service.NewReceiptService(db, hub, logger)

	logger.WithField("connections", len(cfg.Connections)).Info("Routing engine initialized")

	scheduler := service.NewScheduler(db, cfg.RetentionDays, cfg.Server.CleanupIntervalHours, logger)
	go scheduler.Start(ctx)
	defer scheduler.Stop()

	receiptWorker := service.NewReceiptWorker(cfg.Broker.URL, cfg.Broker.Queue, receipts, backoff, logger)
	receiptWorker.Start(ctx)
	defer receiptWorker.Stop()

	server := NewServer(cfg, pipeline, receipts, hub, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}
