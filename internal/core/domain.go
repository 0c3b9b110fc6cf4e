package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusOpen     Status = "Offen"
	StatusPaid     Status = "Bezahlt"
	StatusReminded Status = "Erinnert"
)

// DateLayout is the on-disk representation of due and reminder dates.
const DateLayout = "2006-01-02"

// TimestampLayout is the on-disk representation of creation_date.
const TimestampLayout = "2006-01-02 15:04:05"

// MinTaxYear and MaxTaxYear bound the accepted tax declaration years. The year
// names the export sheet tab, so two-digit input such as "24" is rejected.
const (
	MinTaxYear = 1900
	MaxTaxYear = 9999
)

type (
	Status string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Category struct {
		ID   int64
		Name string
	}

	Invoice struct {
		ID                 int64
		Name               string
		Amount             *Money // nil when no amount was recorded
		ImagePath          string
		PDFPath            string
		CreationDate       string
		Status             Status
		DueDate            Date
		ReminderDate       Date
		TaxDeclarationYear *int
		CategoryID         *int64
		CategoryName       string // empty for uncategorized invoices
	}

	// NewInvoice holds the insert parameters for an invoice.
	NewInvoice struct {
		Name         string
		Amount       *Money
		ImagePath    string
		PDFPath      string
		Status       Status
		DueDate      Date
		ReminderDate Date
		CategoryID   *int64
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidTaxYear  = errors.New("invalid tax declaration year")
	ErrUnknownCategory = errors.New("unknown category")
	ErrReservedName    = errors.New("reserved category name")
)

var statusAliases = map[string]Status{
	"offen":    StatusOpen,
	"open":     StatusOpen,
	"bezahlt":  StatusPaid,
	"paid":     StatusPaid,
	"erinnert": StatusReminded,
	"reminded": StatusReminded,
}

// Statuses returns the three invoice states in display order.
func Statuses() []Status {
	return []Status{StatusOpen, StatusPaid, StatusReminded}
}

// ParseStatus accepts the stored German value or its English alias, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPaid, StatusReminded:
		return true
	}
	return false
}

// English returns the English display name of the status.
func (s Status) English() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusPaid:
		return "Paid"
	case StatusReminded:
		return "Reminded"
	}
	return string(s)
}

// CanTransitionTo reports whether an invoice in state s may be moved to next.
// Every state may move to any other; a same-state update is a no-op write.
func (s Status) CanTransitionTo(next Status) bool {
	return s.Valid() && next.Valid()
}

// IsAllFilter reports whether a filter value means "no restriction".
func IsAllFilter(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "All", "Alle", "all", "alle":
		return true
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// IsEmpty returns true if the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// ValidateTaxYear checks that year lies within MinTaxYear..MaxTaxYear.
func ValidateTaxYear(year int) error {
	if year < MinTaxYear || year > MaxTaxYear {
		return fmt.Errorf("%w: %d", ErrInvalidTaxYear, year)
	}
	return nil
}

func (n NewInvoice) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return ErrEmptyName
	}
	if n.Status != "" && !n.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, n.Status)
	}
	return nil
}

// HasTaxMark reports whether the invoice is earmarked for a tax declaration.
func (i Invoice) HasTaxMark() bool {
	return i.TaxDeclarationYear != nil
}

// AmountDisplay formats the amount as "42.50", or "" when absent.
func (i Invoice) AmountDisplay() string {
	if i.Amount == nil {
		return ""
	}
	return i.Amount.String()
}
