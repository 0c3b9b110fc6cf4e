package http

import (
	"fmt"
	"net/http"
	"time"

	"rechnungen/internal/core"
	"rechnungen/internal/log"
)

// handleReport renders the amount-by-category bar chart.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	chart, err := s.reports.CategoryChart(r.Context())
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Report error", log.FieldError, err)
		InternalServerError("Fehler beim Erstellen der Auswertung").Write(w)
		return
	}
	s.render(w, r, nil, "report.html", newReportView(chart))
}

// handleNotifications renders due invoices and reminders for ?date= (default
// today). It only reads; publishing happens in the notifier's own schedule.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	day, err := core.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		errorFor(err, "").Write(w)
		return
	}
	if day.IsEmpty() {
		day = s.notifier.Today()
	}

	notes, err := s.notifier.Check(r.Context(), day)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Notification check failed",
			log.FieldDate, day.String(), log.FieldError, err)
		InternalServerError("Fehler beim Laden der Benachrichtigungen").Write(w)
		return
	}
	s.render(w, r, nil, "notifications.html", notificationsView{Date: day.String(), Notes: notes})
}

// handleTaxExport writes the invoices of one declaration year to the
// configured spreadsheet.
func (s *Server) handleTaxExport(w http.ResponseWriter, r *http.Request) {
	if s.taxExport == nil || !s.taxExport.Enabled() {
		ServiceUnavailableError("Steuerexport ist nicht konfiguriert").Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Ungültiges Anfrageformat").Write(w)
		return
	}
	year, err := ParseYear(p.Get("year"), time.Now())
	if err != nil {
		errorFor(err, "").Write(w)
		return
	}

	ref, count, err := s.taxExport.Export(r.Context(), year)
	if err != nil {
		fields := log.NewFields()
		fields[log.FieldTaxYear] = year
		log.NewStructuredLogger(s.requestLogger(r)).LogError(r.Context(), "Tax export failed", err,
			log.ComponentSheets, log.OpExport, fields)
		errorFor(err, "Export fehlgeschlagen").Write(w)
		return
	}
	msg := fmt.Sprintf("%d Rechnungen für %d exportiert (%s)", count, year, ref)
	SuccessResponse(msg).TriggerSuccessNotification(msg).Write(w)
}
