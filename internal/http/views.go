package http

import (
	"strconv"
	"strings"

	"rechnungen/internal/core"
	"rechnungen/internal/services"
	"rechnungen/internal/storage"
)

type invoiceView struct {
	ID           int64
	Name         string
	Amount       string
	Category     string
	Status       string
	StatusClass  string
	DueDate      string
	ReminderDate string
	CreationDate string
	TaxYear      string
	HasPDF       bool
	HasImage     bool
}

func newInvoiceView(inv core.Invoice) invoiceView {
	v := invoiceView{
		ID:           inv.ID,
		Name:         inv.Name,
		Amount:       formatAmount(inv.Amount),
		Category:     inv.CategoryName,
		Status:       string(inv.Status),
		StatusClass:  "status-" + strings.ToLower(inv.Status.English()),
		DueDate:      inv.DueDate.String(),
		ReminderDate: inv.ReminderDate.String(),
		CreationDate: inv.CreationDate,
		HasPDF:       inv.PDFPath != "",
		HasImage:     inv.ImagePath != "",
	}
	if v.Category == "" {
		v.Category = services.NoCategory
	}
	if inv.TaxDeclarationYear != nil {
		v.TaxYear = strconv.Itoa(*inv.TaxDeclarationYear)
	}
	return v
}

type indexView struct {
	Statuses       []core.Status
	Categories     []core.Category
	NoCategory     string
	FilterCategory string
	TaxExport  bool
	Year       int
	Today      string
}

type invoiceListView struct {
	Invoices []invoiceView
	Count    int
	Total    string
	Filter   storage.InvoiceFilter
}

func newInvoiceListView(invoices []core.Invoice, f storage.InvoiceFilter) invoiceListView {
	v := invoiceListView{
		Invoices: make([]invoiceView, 0, len(invoices)),
		Count:    len(invoices),
		Filter:   f,
	}
	var total int64
	for _, inv := range invoices {
		v.Invoices = append(v.Invoices, newInvoiceView(inv))
		if inv.Amount != nil {
			total += inv.Amount.Cents
		}
	}
	v.Total = formatEuros(total)
	return v
}

type invoiceDetailView struct {
	Invoice  invoiceView
	Statuses []core.Status
	Flash    string
}

// categoriesView carries the active list filter so the out-of-band filter
// select keeps it.
type categoriesView struct {
	Categories     []core.Category
	NoCategory     string
	FilterCategory string
}

type barView struct {
	Name   string
	Amount string
	Width  int
}

type reportView struct {
	Empty   bool
	Message string
	Bars    []barView
	Total   string
}

func newReportView(c services.Chart) reportView {
	v := reportView{Empty: c.Empty, Message: c.Message, Total: formatEuros(c.Total.Cents)}
	for _, b := range c.Bars {
		v.Bars = append(v.Bars, barView{Name: b.Name, Amount: formatEuros(b.Amount.Cents), Width: b.Width})
	}
	return v
}

type notificationsView struct {
	Date  string
	Notes core.Notifications
}
