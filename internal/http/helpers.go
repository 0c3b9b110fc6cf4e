package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rechnungen/internal/core"
	"rechnungen/internal/pdf"
	"rechnungen/internal/services"
	"rechnungen/internal/storage"
)

// formatEuros formats cents as a Euro string (e.g., "12,34 €").
func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "," + fmt.Sprintf("%02d", cents%100) + " €"
	if neg {
		return "-" + s
	}
	return s
}

// formatAmount renders an optional amount; invoices without amount show a dash.
func formatAmount(m *core.Money) string {
	if m == nil {
		return "–"
	}
	return formatEuros(m.Cents)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// errorFor maps domain and storage errors to a German error fragment with the
// matching status code. Unknown errors become a 500 with fallback.
func errorFor(err error, fallback string) *HTMXResponseBuilder {
	switch {
	case errors.Is(err, errInvalidID):
		return BadRequestError("Ungültige ID")
	case errors.Is(err, core.ErrEmptyName):
		return UnprocessableEntityError("Name darf nicht leer sein")
	case errors.Is(err, core.ErrInvalidAmount):
		return UnprocessableEntityError("Ungültiger Betrag")
	case errors.Is(err, core.ErrInvalidDate):
		return UnprocessableEntityError("Ungültiges Datum (JJJJ-MM-TT)")
	case errors.Is(err, core.ErrInvalidStatus):
		return UnprocessableEntityError("Ungültiger Status")
	case errors.Is(err, core.ErrInvalidTaxYear):
		return UnprocessableEntityError("Ungültiges Steuerjahr")
	case errors.Is(err, core.ErrUnknownCategory):
		return UnprocessableEntityError("Unbekannte Kategorie")
	case errors.Is(err, core.ErrReservedName):
		return UnprocessableEntityError("Dieser Name ist reserviert")
	case errors.Is(err, pdf.ErrUnsupportedImage):
		return UnprocessableEntityError("Nur JPEG, PNG oder GIF werden unterstützt")
	case errors.Is(err, storage.ErrDuplicateCategory):
		return ConflictError("Kategorie existiert bereits")
	case errors.Is(err, services.ErrNoSelection):
		return ConflictError("Bitte wählen Sie eine Rechnung aus")
	case errors.Is(err, storage.ErrNotFound):
		return NotFoundError("Rechnung nicht gefunden")
	case errors.Is(err, services.ErrFileMissing):
		return NotFoundError("PDF-Datei nicht gefunden").
			TriggerWarningNotification("Die PDF-Datei existiert nicht.")
	case errors.Is(err, services.ErrExportDisabled):
		return ServiceUnavailableError("Steuerexport ist nicht konfiguriert")
	default:
		return InternalServerError(fallback)
	}
}
