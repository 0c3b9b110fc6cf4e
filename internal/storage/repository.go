package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rechnungen/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateCategory = errors.New("category already exists")
)

// InvoiceFilter restricts ListInvoices. Status and Category accept the
// "All"/"Alle" sentinel (or empty) to mean no restriction.
type InvoiceFilter struct {
	Status   string
	Category string
	TaxOnly  bool
}

// InvoicePaths holds the file references of an invoice.
type InvoicePaths struct {
	ImagePath string
	PDFPath   string
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks database connectivity for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SetClock overrides the time source used for creation_date.
func (r *SQLiteRepository) SetClock(now func() time.Time) {
	r.now = now
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// AddCategory inserts a category. It returns false without error when the
// name already exists.
func (r *SQLiteRepository) AddCategory(ctx context.Context, name string) (bool, error) {
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			slog.DebugContext(ctx, "category already exists", "component", "storage", "category", name)
			return false, nil
		}
		return false, fmt.Errorf("insert category: %w", err)
	}
	return true, nil
}

// ListCategories returns all categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	slog.DebugContext(ctx, "retrieved categories", "component", "storage", "count", len(categories))
	return categories, nil
}

// DeleteCategory detaches the category from all invoices and removes it, in
// one transaction. Failures are logged and reported as false.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) bool {
	if err := r.deleteCategory(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to delete category", "component", "storage", "category_id", id, "error", err)
		return false
	}
	return true
}

func (r *SQLiteRepository) deleteCategory(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE invoices SET category_id = NULL WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("detach invoices: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category row: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// AddInvoice inserts an invoice and returns its id. creation_date is set here
// and never updated afterwards.
func (r *SQLiteRepository) AddInvoice(ctx context.Context, in core.NewInvoice) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	status := in.Status
	if status == "" {
		status = core.StatusOpen
	}

	var amount any
	if in.Amount != nil {
		amount = in.Amount.Float()
	}
	var categoryID any
	if in.CategoryID != nil {
		categoryID = *in.CategoryID
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (name, amount, image_path, pdf_path, creation_date, status, due_date, reminder_date, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Name,
		amount,
		nullString(in.ImagePath),
		nullString(in.PDFPath),
		r.now().Format(core.TimestampLayout),
		string(status),
		nullString(in.DueDate.String()),
		nullString(in.ReminderDate.String()),
		categoryID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Invoice saved to SQLite",
		"component", "storage",
		"id", id,
		"name", in.Name,
		"status", status)

	return id, nil
}

const invoiceColumns = `
	i.id, i.name, i.amount, i.image_path, i.pdf_path, i.creation_date, i.status,
	i.due_date, i.reminder_date, i.tax_declaration_year, i.category_id, c.name`

// ListInvoices returns invoices matching the filter, newest due date first.
func (r *SQLiteRepository) ListInvoices(ctx context.Context, f InvoiceFilter) ([]core.Invoice, error) {
	var (
		where []string
		args  []any
	)
	if !core.IsAllFilter(f.Status) {
		st, err := core.ParseStatus(f.Status)
		if err != nil {
			return nil, err
		}
		where = append(where, "i.status = ?")
		args = append(args, string(st))
	}
	if !core.IsAllFilter(f.Category) {
		where = append(where, "c.name = ?")
		args = append(args, f.Category)
	}
	if f.TaxOnly {
		where = append(where, "i.tax_declaration_year IS NOT NULL")
	}

	query := `SELECT` + invoiceColumns + `
		FROM invoices i
		LEFT JOIN categories c ON i.category_id = c.id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY i.due_date DESC, i.id DESC"

	return r.queryInvoices(ctx, query, args...)
}

// GetInvoice returns a single invoice or ErrNotFound.
func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+invoiceColumns+`
		FROM invoices i
		LEFT JOIN categories c ON i.category_id = c.id
		WHERE i.id = ?`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, ErrNotFound
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice %d: %w", id, err)
	}
	return inv, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func invoicePaths(ctx context.Context, q queryRower, id int64) (InvoicePaths, error) {
	var img, pdf sql.NullString
	err := q.QueryRowContext(ctx, `SELECT image_path, pdf_path FROM invoices WHERE id = ?`, id).Scan(&img, &pdf)
	if errors.Is(err, sql.ErrNoRows) {
		return InvoicePaths{}, ErrNotFound
	}
	if err != nil {
		return InvoicePaths{}, fmt.Errorf("get invoice paths: %w", err)
	}
	return InvoicePaths{ImagePath: img.String, PDFPath: pdf.String}, nil
}

// UpdateInvoiceStatus sets the status of one invoice.
func (r *SQLiteRepository) UpdateInvoiceStatus(ctx context.Context, id int64, status core.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}
	return r.execOne(ctx, "update invoice status",
		`UPDATE invoices SET status = ? WHERE id = ?`, string(status), id)
}

// SetTaxDeclarationYear marks an invoice for a tax year; nil clears the mark.
func (r *SQLiteRepository) SetTaxDeclarationYear(ctx context.Context, id int64, year *int) error {
	var v any
	if year != nil {
		v = *year
	}
	return r.execOne(ctx, "set tax declaration year",
		`UPDATE invoices SET tax_declaration_year = ? WHERE id = ?`, v, id)
}

// DeleteInvoiceReturningPaths reads the file paths and deletes the row in one
// transaction. Removing the files is left to the caller.
func (r *SQLiteRepository) DeleteInvoiceReturningPaths(ctx context.Context, id int64) (InvoicePaths, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return InvoicePaths{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	paths, err := invoicePaths(ctx, tx, id)
	if err != nil {
		return InvoicePaths{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id); err != nil {
		return InvoicePaths{}, fmt.Errorf("delete invoice: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return InvoicePaths{}, fmt.Errorf("commit delete: %w", err)
	}
	return paths, nil
}

// DueAndReminderInvoices returns open invoices due on day and unpaid invoices
// whose reminder date is day.
func (r *SQLiteRepository) DueAndReminderInvoices(ctx context.Context, day core.Date) (due, reminders []core.Invoice, err error) {
	d := day.String()
	due, err = r.queryInvoices(ctx, `SELECT`+invoiceColumns+`
		FROM invoices i
		LEFT JOIN categories c ON i.category_id = c.id
		WHERE i.due_date = ? AND i.status = ?
		ORDER BY i.id ASC`, d, string(core.StatusOpen))
	if err != nil {
		return nil, nil, fmt.Errorf("query due invoices: %w", err)
	}
	reminders, err = r.queryInvoices(ctx, `SELECT`+invoiceColumns+`
		FROM invoices i
		LEFT JOIN categories c ON i.category_id = c.id
		WHERE i.reminder_date = ? AND i.status != ?
		ORDER BY i.id ASC`, d, string(core.StatusPaid))
	if err != nil {
		return nil, nil, fmt.Errorf("query reminder invoices: %w", err)
	}
	return due, reminders, nil
}

// TotalAmountByCategory sums invoice amounts per category name, largest first.
// Invoices without amount or category are excluded. Sums are exact in cents.
func (r *SQLiteRepository) TotalAmountByCategory(ctx context.Context) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, SUM(CAST(ROUND(i.amount * 100) AS INTEGER)) AS total_cents
		FROM invoices i
		JOIN categories c ON i.category_id = c.id
		WHERE i.amount IS NOT NULL
		GROUP BY c.name
		ORDER BY total_cents DESC, c.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, nil
}

// TaxInvoices returns invoices earmarked for the given declaration year.
func (r *SQLiteRepository) TaxInvoices(ctx context.Context, year int) ([]core.Invoice, error) {
	return r.queryInvoices(ctx, `SELECT`+invoiceColumns+`
		FROM invoices i
		LEFT JOIN categories c ON i.category_id = c.id
		WHERE i.tax_declaration_year = ?
		ORDER BY i.due_date ASC, i.id ASC`, year)
}

func (r *SQLiteRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryInvoices(ctx context.Context, query string, args ...any) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return invoices, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(s scanner) (core.Invoice, error) {
	var (
		inv                              core.Invoice
		amount                           sql.NullFloat64
		img, pdf, created, due, reminder sql.NullString
		taxYear, categoryID              sql.NullInt64
		categoryName                     sql.NullString
		status                           string
	)
	if err := s.Scan(&inv.ID, &inv.Name, &amount, &img, &pdf, &created, &status,
		&due, &reminder, &taxYear, &categoryID, &categoryName); err != nil {
		return core.Invoice{}, err
	}

	inv.Status = core.Status(status)
	inv.ImagePath = img.String
	inv.PDFPath = pdf.String
	inv.CreationDate = created.String
	inv.CategoryName = categoryName.String
	if amount.Valid {
		m := core.MoneyFromFloat(amount.Float64)
		inv.Amount = &m
	}
	if taxYear.Valid {
		y := int(taxYear.Int64)
		inv.TaxDeclarationYear = &y
	}
	if categoryID.Valid {
		id := categoryID.Int64
		inv.CategoryID = &id
	}
	// Stored dates that do not parse are treated as unset.
	inv.DueDate, _ = core.ParseDate(due.String)
	inv.ReminderDate, _ = core.ParseDate(reminder.String)
	return inv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
