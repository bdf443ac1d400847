package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ficmart/cart-payment-processor/internal/adapters/cache"
	"github.com/ficmart/cart-payment-processor/internal/adapters/httpapi"
	"github.com/ficmart/cart-payment-processor/internal/adapters/identity"
	"github.com/ficmart/cart-payment-processor/internal/adapters/postgres"
	"github.com/ficmart/cart-payment-processor/internal/adapters/psp"
	"github.com/ficmart/cart-payment-processor/internal/config"
	"github.com/ficmart/cart-payment-processor/internal/core/service"
	"github.com/ficmart/cart-payment-processor/internal/worker"
)

func main() {
	// 1. Setup Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 2. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to Database
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// 4. Initialize Repository, with the in-process pgp-intent cache layered
	// on top.
	repo := cache.NewRepository(postgres.NewRepository(db.Pool))

	// 5. Initialize PSP Gateway, with the retrying decorator on top of the
	// raw HTTP client.
	pspClient := psp.NewClient(cfg.PSP)
	pspGateway := psp.NewRetryGateway(pspClient, cfg.Retry)

	// 6. Initialize the out-of-scope identity collaborators.
	identityClient := identity.NewClient(cfg.Identity)

	// 7. Initialize the Cart Payment Processor.
	processor := service.NewCartPaymentProcessor(
		repo,
		pspGateway,
		identityClient,
		identityClient,
		service.ProcessorConfig{
			DelayCaptureDefault: cfg.Capture.DelayCaptureDefault,
			DefaultCaptureAfter: cfg.Capture.DefaultCaptureAfter,
			CaptureSweepCutoff:  cfg.Capture.SweepCutoff,
			DescriptionMaxLen:   cfg.Capture.DescriptionMaxLen,
		},
	)

	// 8. Initialize and start the deferred-capture sweeper.
	sweeper := worker.NewDeferredCaptureSweeper(
		repo,
		processor,
		cfg.Worker.Interval,
		cfg.Worker.BatchSize,
		cfg.Capture.SweepCutoff,
		logger,
	)
	go sweeper.Start(ctx)

	// 9. Initialize HTTP Handler
	router := httpapi.NewRouter(processor, cfg.Server.ReadTimeout, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 10. Start Server
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 11. Wait for Shutdown
	<-ctx.Done()
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}

	logger.Info("exit")
}
