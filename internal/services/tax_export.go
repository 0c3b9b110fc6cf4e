package services

import (
	"context"
	"errors"
	"fmt"

	"rechnungen/internal/core"
	"rechnungen/internal/log"
	"rechnungen/internal/sheets"
)

// ErrExportDisabled is returned when no spreadsheet is configured.
var ErrExportDisabled = errors.New("tax export is not configured")

type TaxInvoiceLister interface {
	TaxInvoices(ctx context.Context, year int) ([]core.Invoice, error)
}

// TaxExportService copies the invoices of one declaration year to a spreadsheet.
type TaxExportService struct {
	store    TaxInvoiceLister
	exporter sheets.TaxExporter
	logger   *log.Logger
}

// NewTaxExportService creates the service. exporter may be nil, in which case
// Export returns ErrExportDisabled.
func NewTaxExportService(store TaxInvoiceLister, exporter sheets.TaxExporter, logger *log.Logger) *TaxExportService {
	return &TaxExportService{
		store:    store,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentSheets),
	}
}

func (s *TaxExportService) Enabled() bool {
	return s.exporter != nil
}

// Export writes the year's earmarked invoices and returns the written range
// and the number of invoices.
func (s *TaxExportService) Export(ctx context.Context, year int) (string, int, error) {
	if s.exporter == nil {
		return "", 0, ErrExportDisabled
	}
	if err := core.ValidateTaxYear(year); err != nil {
		return "", 0, err
	}
	invoices, err := s.store.TaxInvoices(ctx, year)
	if err != nil {
		return "", 0, fmt.Errorf("tax invoices: %w", err)
	}
	ref, err := s.exporter.ExportTaxYear(ctx, year, invoices)
	if err != nil {
		s.logger.ErrorContext(ctx, "Tax export failed", log.FieldTaxYear, year, log.FieldError, err)
		return "", 0, fmt.Errorf("export tax year %d: %w", year, err)
	}
	s.logger.InfoContext(ctx, "Tax export finished", log.FieldTaxYear, year, log.FieldCount, len(invoices))
	return ref, len(invoices), nil
}
