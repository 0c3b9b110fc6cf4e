package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"rechnungen/internal/core"
	ports "rechnungen/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultTaxSheetSuffix is appended to the year to name the export sheet.
const DefaultTaxSheetSuffix = "Steuer"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	taxSuffix     string
}

// Ensure interface conformance
var _ ports.TaxExporter = (*Client)(nil)

// Config selects the spreadsheet and the service account credentials.
type Config struct {
	SpreadsheetID      string
	TaxSheetSuffix     string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.TaxSheetSuffix), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, taxSuffix string) *Client {
	if strings.TrimSpace(taxSuffix) == "" {
		taxSuffix = DefaultTaxSheetSuffix
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		taxSuffix:     strings.TrimSpace(taxSuffix),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over a file; GOOGLE_APPLICATION_CREDENTIALS is the last resort.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		var err error
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service with Service Account",
		"component", "sheets",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// TaxSheetName returns the sheet used for the given declaration year.
func (c *Client) TaxSheetName(year int) string {
	return yearPrefixedName(c.taxSuffix, year)
}

// ExportTaxYear creates the year's sheet when missing, clears it and writes a
// header, one row per invoice and a total row.
func (c *Client) ExportTaxYear(ctx context.Context, year int, invoices []core.Invoice) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := core.ValidateTaxYear(year); err != nil {
		return "", err
	}
	sheet := c.TaxSheetName(year)

	if err := c.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}

	quoted := quoteSheet(sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted+"!A:H", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", sheet, err)
	}

	rows := buildTaxRows(invoices)
	rng := fmt.Sprintf("%s!A1:H%d", quoted, len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write sheet %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Exported tax invoices to Google Sheets",
		"component", "sheets",
		"tax_year", year,
		"count", len(invoices),
		"range", rng)
	return rng, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	return nil
}

var taxHeader = []any{"ID", "Name", "Kategorie", "Betrag", "Status", "Fällig", "Erstellt", "PDF"}

// buildTaxRows renders the export matrix. Invoices without amount leave the
// amount cell empty and do not count towards the total.
func buildTaxRows(invoices []core.Invoice) [][]any {
	rows := make([][]any, 0, len(invoices)+2)
	rows = append(rows, taxHeader)
	var total core.Money
	for _, inv := range invoices {
		var amount any = ""
		if inv.Amount != nil {
			amount = inv.Amount.Float()
			total.Cents += inv.Amount.Cents
		}
		rows = append(rows, []any{
			inv.ID,
			inv.Name,
			inv.CategoryName,
			amount,
			string(inv.Status),
			inv.DueDate.String(),
			inv.CreationDate,
			inv.PDFPath,
		})
	}
	rows = append(rows, []any{"", "Summe", "", total.Float(), "", "", "", ""})
	return rows
}

// quoteSheet wraps a sheet title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return strconv.Itoa(year)
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
