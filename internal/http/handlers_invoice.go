package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"rechnungen/internal/core"
	"rechnungen/internal/log"
	"rechnungen/internal/pdf"
	"rechnungen/internal/services"

	"github.com/google/uuid"
)

// multipartMemory is the part of an upload kept in memory before spilling to disk.
const multipartMemory = 8 << 20

var uploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// handleInvoiceList renders the filtered invoice table. Reloading the list
// clears the current selection.
func (s *Server) handleInvoiceList(w http.ResponseWriter, r *http.Request) {
	f := ParseInvoiceFilter(r.URL.Query())
	invoices, err := s.invoices.List(r.Context(), f)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Invoice list error",
			log.FieldOperation, log.OpList, log.FieldStatus, f.Status, log.FieldCategory, f.Category, log.FieldError, err)
		errorFor(err, "Fehler beim Laden der Rechnungen").Write(w)
		return
	}
	s.render(w, r, nil, "invoices.html", newInvoiceListView(invoices, f))
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "Datei ist zu groß").Write(w)
			return
		}
		s.requestLogger(r).WarnContext(r.Context(), "Parse form error", log.FieldError, err)
		BadRequestError("Ungültiges Anfrageformat").Write(w)
		return
	}

	uploaded, err := s.saveUpload(r)
	if err != nil {
		s.requestLogger(r).WarnContext(r.Context(), "Upload rejected", log.FieldError, err)
		errorFor(err, "Bild konnte nicht gespeichert werden").Write(w)
		return
	}
	imagePath := uploaded
	if imagePath == "" {
		imagePath = sanitizeInput(r.FormValue("image_path"))
	}

	in := services.InvoiceInput{
		Name:         sanitizeInput(r.FormValue("name")),
		Amount:       sanitizeInput(r.FormValue("amount")),
		DueDate:      sanitizeInput(r.FormValue("due_date")),
		ReminderDate: sanitizeInput(r.FormValue("reminder_date")),
		Category:     sanitizeInput(r.FormValue("category")),
		ImagePath:    imagePath,
	}
	res, err := s.invoices.Add(r.Context(), in)
	if err != nil {
		if uploaded != "" {
			_ = os.Remove(uploaded)
		}
		s.requestLogger(r).WarnContext(r.Context(), "Invoice rejected",
			log.FieldOperation, log.OpCreate, log.FieldInvoiceName, in.Name, log.FieldError, err)
		errorFor(err, "Fehler beim Speichern der Rechnung").Write(w)
		return
	}

	b := SuccessResponse(fmt.Sprintf("Rechnung #%d gespeichert: %s", res.ID, in.Name)).
		TriggerInvoiceCreated(res.ID).
		TriggerFormReset().
		TriggerInvoicesRefresh().
		TriggerReportRefresh()
	if len(res.Warnings) > 0 {
		b.TriggerWarningNotification(strings.Join(res.Warnings, "\n"))
	} else {
		b.TriggerSuccessNotification("Rechnung gespeichert")
	}
	b.Write(w)
}

// saveUpload stores the "image" file part in the upload directory and returns
// its path, or "" when no file was sent.
func (s *Server) saveUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !uploadExtensions[ext] {
		return "", fmt.Errorf("%w: %q", pdf.ErrUnsupportedImage, ext)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dst := filepath.Join(s.uploadDir, uuid.NewString()[:8]+"_"+safeFileStem(name)+ext)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return dst, nil
}

// safeFileStem keeps letters, digits, dash and underscore of the base name.
func safeFileStem(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '_'
		}
		return -1
	}, stem)
	if stem == "" {
		return "rechnung"
	}
	return stem
}

func (s *Server) handleSelectInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		errorFor(err, "").Write(w)
		return
	}
	inv, err := s.invoices.Select(r.Context(), id)
	if err != nil {
		errorFor(err, "Fehler beim Laden der Rechnung").Write(w)
		return
	}
	s.render(w, r, NewHTMXResponse().TriggerInvoiceSelected(id), "invoice_detail.html", invoiceDetailView{
		Invoice:  newInvoiceView(inv),
		Statuses: core.Statuses(),
	})
}

// renderDetail re-renders the detail panel after a mutation.
func (s *Server) renderDetail(w http.ResponseWriter, r *http.Request, id int64, flash string, b *HTMXResponseBuilder) {
	inv, err := s.invoices.Get(r.Context(), id)
	if err != nil {
		errorFor(err, "Fehler beim Laden der Rechnung").Write(w)
		return
	}
	s.render(w, r, b, "invoice_detail.html", invoiceDetailView{
		Invoice:  newInvoiceView(inv),
		Statuses: core.Statuses(),
		Flash:    flash,
	})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		errorFor(err, "").Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Ungültiges Anfrageformat").Write(w)
		return
	}
	status := p.Get("status")
	if err := s.invoices.UpdateStatus(r.Context(), id, status); err != nil {
		s.requestLogger(r).WarnContext(r.Context(), "Status update failed",
			log.FieldInvoiceID, id, log.FieldStatus, status, log.FieldError, err)
		errorFor(err, "Fehler beim Aktualisieren des Status").Write(w)
		return
	}
	s.renderDetail(w, r, id, "Status aktualisiert", NewHTMXResponse().
		TriggerInvoicesRefresh().
		TriggerSuccessNotification("Status aktualisiert"))
}

func (s *Server) handleSetTaxYear(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		errorFor(err, "").Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Ungültiges Anfrageformat").Write(w)
		return
	}
	year := p.Get("year")
	if err := s.invoices.SetTaxYear(r.Context(), id, year); err != nil {
		s.requestLogger(r).WarnContext(r.Context(), "Tax mark failed",
			log.FieldInvoiceID, id, log.FieldTaxYear, year, log.FieldError, err)
		errorFor(err, "Fehler beim Setzen des Steuerjahres").Write(w)
		return
	}
	msg := "Für Steuererklärung " + year + " markiert"
	if year == "" {
		msg = "Steuermarkierung entfernt"
	}
	s.renderDetail(w, r, id, msg, NewHTMXResponse().
		TriggerInvoicesRefresh().
		TriggerSuccessNotification(msg))
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		errorFor(err, "").Write(w)
		return
	}
	res, err := s.invoices.Delete(r.Context(), id)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Invoice delete failed",
			log.FieldInvoiceID, id, log.FieldOperation, log.OpDelete, log.FieldError, err)
		errorFor(err, "Fehler beim Löschen der Rechnung").Write(w)
		return
	}

	b := SuccessResponse(fmt.Sprintf("Rechnung #%d gelöscht", id)).
		TriggerInvoicesRefresh().
		TriggerReportRefresh()
	if len(res.Warnings) > 0 {
		b.TriggerWarningNotification(strings.Join(res.Warnings, "\n"))
	} else {
		b.TriggerSuccessNotification("Rechnung gelöscht")
	}
	b.Write(w)
}

func (s *Server) handleOpenPDF(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		errorFor(err, "").Write(w)
		return
	}
	if err := s.invoices.OpenPDF(r.Context(), id); err != nil {
		errorFor(err, "PDF konnte nicht geöffnet werden").Write(w)
		return
	}
	SuccessResponse("PDF geöffnet").
		TriggerNotification(NotificationInfo, "PDF im Standardprogramm geöffnet", 3000).
		Write(w)
}

// handleServePDF streams the stored PDF so it can be viewed in the browser.
func (s *Server) handleServePDF(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		errorFor(err, "").Write(w)
		return
	}
	path, err := s.invoices.PDFPath(r.Context(), id)
	if err != nil {
		errorFor(err, "PDF konnte nicht geladen werden").Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
