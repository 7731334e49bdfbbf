package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"somiti/internal/advice"
	"somiti/internal/amqp"
	"somiti/internal/auth"
	"somiti/internal/config"
	"somiti/internal/core"
	apphttp "somiti/internal/http"
	"somiti/internal/ledger"
	applog "somiti/internal/log"
	"somiti/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	applog.Setup()
	logger := applog.WithComponent("server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it the ledger still works, the sheet backup
	// just never happens.
	var events ledger.EventPublisher
	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
		logger.Info("AMQP sync publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - transactions stay local until the worker catches up")
	}

	svc := ledger.NewService(repo, events)
	authn := auth.NewAuthenticator(repo)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	g, gctx := errgroup.WithContext(startupCtx)
	g.Go(func() error {
		svc.Load(gctx)
		return nil
	})
	g.Go(func() error {
		registered, err := authn.Registered(gctx)
		if err != nil {
			return err
		}
		if !registered {
			logger.Info("No credential record yet - first-run setup required")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}

	adviser := advice.New(cfg.AdviceAPIKey, cfg.AdviceBaseURL, cfg.AdviceModel)

	srv := apphttp.NewServer(":"+cfg.Port, svc, adviser, authn, auth.NewSessions(), repo,
		cfg.SocietyName, core.Language(cfg.DefaultLanguage))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting somiti server", "port", cfg.Port, "society", cfg.SocietyName)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
