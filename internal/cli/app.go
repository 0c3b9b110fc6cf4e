package cli

import (
	"context"
	"fmt"

	"rechnungen/internal/amqp"
	"rechnungen/internal/config"
	"rechnungen/internal/log"
	"rechnungen/internal/opener"
	"rechnungen/internal/pdf"
	"rechnungen/internal/services"
	"rechnungen/internal/sheets"
	gsheet "rechnungen/internal/sheets/google"
	"rechnungen/internal/sheets/memory"
	"rechnungen/internal/storage"
)

// App bundles the storage and services shared by the server and the admin CLI.
type App struct {
	Repo       *storage.SQLiteRepository
	Session    *services.Session
	Categories *services.CategoryService
	Invoices   *services.InvoiceService
	Reports    *services.ReportService
	Notifier   *services.Notifier
	TaxExport  *services.TaxExportService

	amqp *amqp.Client
}

// NewApp opens the database at cfg.DBPath and wires the services. The AMQP
// publisher and the tax exporter are attached when configured; a broker that
// cannot be reached only disables publishing.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	repo, err := storage.NewSQLiteRepository(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open invoice database: %w", err)
	}

	app := &App{Repo: repo, Session: services.NewSession()}
	app.Categories = services.NewCategoryService(repo, app.Session, logger)
	if _, err := app.Categories.Refresh(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("load categories: %w", err)
	}
	app.Invoices = services.NewInvoiceService(repo, app.Categories, app.Session, pdf.NewConverter(), opener.NewSystem(), logger)
	app.Reports = services.NewReportService(repo)

	var publisher services.NotificationPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WithComponent(log.ComponentAMQP).Warn("AMQP unavailable, notifications are not published",
				log.FieldError, err)
		} else {
			app.amqp = client
			publisher = client
		}
	}
	app.Notifier = services.NewNotifier(repo, publisher, logger)

	var exporter sheets.TaxExporter
	switch {
	case cfg.SheetsBackend == "memory":
		exporter = memory.New(cfg.GoogleTaxSheetSuffix)
		logger.WithComponent(log.ComponentSheets).Info("Tax export keeps exports in memory")
	case cfg.SheetsEnabled():
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			TaxSheetSuffix:     cfg.GoogleTaxSheetSuffix,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("google sheets: %w", err)
		}
		exporter = client
	}
	app.TaxExport = services.NewTaxExportService(repo, exporter, logger)

	return app, nil
}

// Close releases the broker connection and the database.
func (a *App) Close() error {
	if a.amqp != nil {
		_ = a.amqp.Close()
	}
	return a.Repo.Close()
}
