package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"rechnungen/internal/cli"
	apphttp "rechnungen/internal/http"
	"rechnungen/internal/log"
	"rechnungen/internal/scheduler"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err, log.FieldFilePath, cfg.DBPath)
		os.Exit(1)
	}
	defer app.Close()

	// Startup notification check
	notes, err := app.Notifier.CheckToday(ctx)
	if err != nil {
		logger.Warn("Startup notification check failed", log.FieldError, err)
	} else if msg := notes.Message(); msg != "" {
		fmt.Print(msg)
	}

	srv := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Invoices:   app.Invoices,
		Categories: app.Categories,
		Reports:    app.Reports,
		Notifier:   app.Notifier,
		TaxExport:  app.TaxExport,
		Ready:      app.Repo.Ping,
	}, apphttp.Options{
		UploadDir:       cfg.UploadDir,
		MaxUploadBytes:  int64(cfg.MaxUploadMB) << 20,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
	})
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting rechnungen server",
			"addr", cfg.Addr(), "db", cfg.DBPath,
			"amqp", cfg.AMQPEnabled(), "tax_export", app.TaxExport.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.ReminderSchedule != "" {
		sched := scheduler.New(time.Local)
		if err := sched.Add(cfg.ReminderSchedule, func(ctx context.Context) {
			_, _ = app.Notifier.CheckToday(ctx)
		}); err != nil {
			logger.Error("Invalid reminder schedule", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Reminder schedule enabled", "schedule", cfg.ReminderSchedule)
		g.Go(func() error { return sched.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
