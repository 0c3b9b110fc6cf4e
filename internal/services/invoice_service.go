package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"rechnungen/internal/core"
	"rechnungen/internal/log"
	"rechnungen/internal/opener"
	"rechnungen/internal/storage"
)

// ErrFileMissing is returned when an invoice has no PDF or the file is gone.
var ErrFileMissing = opener.ErrFileMissing

// ErrNoSelection is returned when an action targets an invoice that is not the
// current selection. Every list reload clears the selection.
var ErrNoSelection = errors.New("no invoice selected")

// NoCategory is the form value for "no category".
const NoCategory = "Keine"

type InvoiceStore interface {
	AddInvoice(ctx context.Context, in core.NewInvoice) (int64, error)
	ListInvoices(ctx context.Context, f storage.InvoiceFilter) ([]core.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (core.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id int64, status core.Status) error
	SetTaxDeclarationYear(ctx context.Context, id int64, year *int) error
	DeleteInvoiceReturningPaths(ctx context.Context, id int64) (storage.InvoicePaths, error)
}

type PDFConverter interface {
	Convert(imagePath string) (pdfPath string, err error)
}

type FileOpener interface {
	Open(path string) error
}

// InvoiceInput is the raw form input for a new invoice.
type InvoiceInput struct {
	Name         string
	Amount       string
	DueDate      string
	ReminderDate string
	Category     string
	ImagePath    string
}

// AddResult reports the stored invoice and any non-fatal problems.
type AddResult struct {
	ID       int64
	PDFPath  string
	Warnings []string
}

// DeleteResult lists file removals that failed after the row was deleted.
type DeleteResult struct {
	Paths    storage.InvoicePaths
	Warnings []string
}

// InvoiceService validates user input and orchestrates storage, PDF conversion
// and file handling for invoices.
type InvoiceService struct {
	store      InvoiceStore
	categories *CategoryService
	session    *Session
	converter  PDFConverter
	opener     FileOpener
	logger     *log.Logger
	events     *log.StructuredLogger
}

func NewInvoiceService(store InvoiceStore, categories *CategoryService, session *Session, converter PDFConverter, opener FileOpener, logger *log.Logger) *InvoiceService {
	l := logger.WithComponent(log.ComponentInvoice)
	return &InvoiceService{
		store:      store,
		categories: categories,
		session:    session,
		converter:  converter,
		opener:     opener,
		logger:     l,
		events:     log.NewStructuredLogger(l),
	}
}

// Add validates the input, converts an attached image to PDF and stores the
// invoice. A failed conversion is reported as a warning and the invoice is
// stored without PDF.
func (s *InvoiceService) Add(ctx context.Context, in InvoiceInput) (AddResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return AddResult{}, core.ErrEmptyName
	}
	amount, err := core.ParseOptionalAmount(in.Amount)
	if err != nil {
		return AddResult{}, fmt.Errorf("amount %q: %w", in.Amount, err)
	}
	due, err := core.ParseDate(in.DueDate)
	if err != nil {
		return AddResult{}, fmt.Errorf("due date: %w", err)
	}
	reminder, err := core.ParseDate(in.ReminderDate)
	if err != nil {
		return AddResult{}, fmt.Errorf("reminder date: %w", err)
	}

	var categoryID *int64
	if category := strings.TrimSpace(in.Category); category != "" && category != NoCategory {
		id, err := s.categories.Lookup(ctx, category)
		if err != nil {
			return AddResult{}, err
		}
		categoryID = &id
	}

	var result AddResult
	imagePath := strings.TrimSpace(in.ImagePath)
	if imagePath != "" && s.converter != nil {
		pdfPath, err := s.converter.Convert(imagePath)
		if err != nil {
			s.logger.WarnContext(ctx, "PDF conversion failed",
				log.FieldFilePath, imagePath, log.FieldOperation, log.OpConvert, log.FieldError, err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("Bild konnte nicht in PDF umgewandelt werden: %v", err))
		} else {
			result.PDFPath = pdfPath
		}
	}

	id, err := s.store.AddInvoice(ctx, core.NewInvoice{
		Name:         name,
		Amount:       amount,
		ImagePath:    imagePath,
		PDFPath:      result.PDFPath,
		Status:       core.StatusOpen,
		DueDate:      due,
		ReminderDate: reminder,
		CategoryID:   categoryID,
	})
	if err != nil {
		return AddResult{}, fmt.Errorf("save invoice: %w", err)
	}
	result.ID = id

	var cents *int64
	if amount != nil {
		cents = &amount.Cents
	}
	s.events.LogInvoiceCreated(ctx, id, name, cents, in.Category)
	return result, nil
}

// List returns the filtered invoices and clears the current selection.
func (s *InvoiceService) List(ctx context.Context, f storage.InvoiceFilter) ([]core.Invoice, error) {
	s.session.ClearSelection()
	invoices, err := s.store.ListInvoices(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

func (s *InvoiceService) Get(ctx context.Context, id int64) (core.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// Select makes id the current invoice after checking it exists.
func (s *InvoiceService) Select(ctx context.Context, id int64) (core.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return core.Invoice{}, err
	}
	s.session.Select(id)
	return inv, nil
}

// requireSelected fails unless id is the currently selected invoice.
func (s *InvoiceService) requireSelected(id int64) error {
	if selected, ok := s.session.Selected(); !ok || selected != id {
		return fmt.Errorf("%w: invoice %d", ErrNoSelection, id)
	}
	return nil
}

// UpdateStatus moves the selected invoice to the given state. Both German
// values and English aliases are accepted.
func (s *InvoiceService) UpdateStatus(ctx context.Context, id int64, status string) error {
	if err := s.requireSelected(id); err != nil {
		return err
	}
	next, err := core.ParseStatus(status)
	if err != nil {
		return err
	}
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if !inv.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidStatus, inv.Status, next)
	}
	if err := s.store.UpdateInvoiceStatus(ctx, id, next); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Invoice status updated",
		log.FieldInvoiceID, id, log.FieldStatus, string(next), "previous", string(inv.Status))
	return nil
}

// SetTaxYear earmarks the selected invoice for a tax declaration. A blank year
// clears the mark.
func (s *InvoiceService) SetTaxYear(ctx context.Context, id int64, year string) error {
	if err := s.requireSelected(id); err != nil {
		return err
	}
	year = strings.TrimSpace(year)
	if year == "" {
		return s.ClearTaxYear(ctx, id)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidTaxYear, year)
	}
	if err := core.ValidateTaxYear(y); err != nil {
		return err
	}
	if err := s.store.SetTaxDeclarationYear(ctx, id, &y); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Invoice marked for tax declaration", log.FieldInvoiceID, id, log.FieldTaxYear, y)
	return nil
}

func (s *InvoiceService) ClearTaxYear(ctx context.Context, id int64) error {
	if err := s.requireSelected(id); err != nil {
		return err
	}
	if err := s.store.SetTaxDeclarationYear(ctx, id, nil); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Tax declaration mark removed", log.FieldInvoiceID, id)
	return nil
}

// Delete removes the selected invoice row, then tries to remove its image and
// PDF. File removal failures are logged and returned as warnings.
func (s *InvoiceService) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	if err := s.requireSelected(id); err != nil {
		return DeleteResult{}, err
	}
	paths, err := s.store.DeleteInvoiceReturningPaths(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	s.session.ClearSelection()

	result := DeleteResult{Paths: paths}
	for _, p := range []string{paths.ImagePath, paths.PDFPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.WarnContext(ctx, "Failed to remove invoice file",
				log.FieldInvoiceID, id, log.FieldFilePath, p, log.FieldError, err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("Datei %s konnte nicht gelöscht werden: %v", p, err))
		}
	}

	s.logger.InfoContext(ctx, "Invoice deleted", log.FieldInvoiceID, id, "file_warnings", len(result.Warnings))
	return result, nil
}

// PDFPath returns the stored PDF of an invoice if the file still exists.
func (s *InvoiceService) PDFPath(ctx context.Context, id int64) (string, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return "", err
	}
	if inv.PDFPath == "" {
		return "", fmt.Errorf("%w: invoice %d has no PDF", ErrFileMissing, id)
	}
	if _, err := os.Stat(inv.PDFPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileMissing, inv.PDFPath)
		}
		return "", err
	}
	return inv.PDFPath, nil
}

// OpenPDF hands the selected invoice's PDF to the host's default viewer.
func (s *InvoiceService) OpenPDF(ctx context.Context, id int64) error {
	if err := s.requireSelected(id); err != nil {
		return err
	}
	path, err := s.PDFPath(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "PDF not available", log.FieldInvoiceID, id, log.FieldError, err)
		return err
	}
	if s.opener == nil {
		return errors.New("no file opener configured")
	}
	if err := s.opener.Open(path); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Opened invoice PDF", log.FieldInvoiceID, id, log.FieldFilePath, path)
	return nil
}
