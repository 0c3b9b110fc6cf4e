package sheets

import (
	"context"

	"rechnungen/internal/core"
)

// Ports for outbound adapters.
type (
	// TaxExporter publishes the invoices earmarked for one tax declaration year.
	TaxExporter interface {
		// ExportTaxYear replaces the year's sheet content and returns the written range.
		ExportTaxYear(ctx context.Context, year int, invoices []core.Invoice) (rangeRef string, err error)
	}
)
