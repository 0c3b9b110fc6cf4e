package services

import (
	"context"
	"fmt"

	"rechnungen/internal/core"
)

// EmptyReportMessage is shown when no invoice has both an amount and a category.
const EmptyReportMessage = "Keine Ausgabendaten verfügbar."

type TotalsReader interface {
	TotalAmountByCategory(ctx context.Context) ([]core.CategoryAmount, error)
}

// Bar is one row of the category chart.
type Bar struct {
	Name   string
	Amount core.Money
	Width  int // percent of the largest bar
}

// Chart is the amount-by-category report.
type Chart struct {
	Empty   bool
	Message string
	Bars    []Bar
	Total   core.Money
}

type ReportService struct {
	store TotalsReader
}

func NewReportService(store TotalsReader) *ReportService {
	return &ReportService{store: store}
}

// CategoryChart builds bar rows from the per-category totals, largest first.
func (s *ReportService) CategoryChart(ctx context.Context) (Chart, error) {
	totals, err := s.store.TotalAmountByCategory(ctx)
	if err != nil {
		return Chart{}, fmt.Errorf("category totals: %w", err)
	}
	return BuildChart(totals), nil
}

// BuildChart converts totals into bars. Widths are relative to the maximum,
// rounded, at least 2 for positive values and at most 100.
func BuildChart(totals []core.CategoryAmount) Chart {
	if len(totals) == 0 {
		return Chart{Empty: true, Message: EmptyReportMessage}
	}

	var largest int64
	var total core.Money
	for _, t := range totals {
		if t.Amount.Cents > largest {
			largest = t.Amount.Cents
		}
		total.Cents += t.Amount.Cents
	}

	bars := make([]Bar, 0, len(totals))
	for _, t := range totals {
		w := 0
		if largest > 0 && t.Amount.Cents > 0 {
			w = int((t.Amount.Cents*100 + largest/2) / largest)
			if w < 2 {
				w = 2
			}
			if w > 100 {
				w = 100
			}
		}
		bars = append(bars, Bar{Name: t.Name, Amount: t.Amount, Width: w})
	}
	return Chart{Bars: bars, Total: total}
}
