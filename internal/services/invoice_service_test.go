package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rechnungen/internal/core"
	"rechnungen/internal/log"
	"rechnungen/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceService_AddValid(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	res, err := env.invoices.Add(ctx, InvoiceInput{
		Name:     "  Elec ",
		Amount:   "42,50",
		DueDate:  "2024-03-01",
		Category: "Rechnung",
	})
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
	assert.Empty(t, res.Warnings)

	list := env.listAll(t)
	require.Len(t, list, 1)
	inv := list[0]
	assert.Equal(t, "Elec", inv.Name)
	assert.Equal(t, "42.50", inv.AmountDisplay())
	assert.Equal(t, core.StatusOpen, inv.Status)
	assert.Equal(t, "2024-03-01", inv.DueDate.String())
	assert.Equal(t, "Rechnung", inv.CategoryName)
	assert.Empty(t, inv.PDFPath)
}

func TestInvoiceService_AddValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	tests := []struct {
		name string
		in   InvoiceInput
		want error
	}{
		{"empty name", InvoiceInput{Name: "  "}, core.ErrEmptyName},
		{"non numeric amount", InvoiceInput{Name: "x", Amount: "abc"}, core.ErrInvalidAmount},
		{"bad due date", InvoiceInput{Name: "x", DueDate: "01.03.2024"}, core.ErrInvalidDate},
		{"bad reminder date", InvoiceInput{Name: "x", ReminderDate: "2024-02-30"}, core.ErrInvalidDate},
		{"unknown category", InvoiceInput{Name: "x", Category: "Urlaub"}, core.ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.invoices.Add(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, env.listAll(t), "rejected input must not create rows")
}

func TestInvoiceService_AddNegativeAmount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	res, err := env.invoices.Add(ctx, InvoiceInput{Name: "Gutschrift", Amount: "-12,50"})
	require.NoError(t, err)

	inv, err := env.invoices.Get(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, inv.Amount)
	assert.Equal(t, int64(-1250), inv.Amount.Cents)
	assert.Equal(t, "-12.50", inv.AmountDisplay())
}

func TestInvoiceService_AddWithoutCategory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for _, cat := range []string{"", NoCategory} {
		_, err := env.invoices.Add(ctx, InvoiceInput{Name: "loose", Category: cat})
		require.NoError(t, err)
	}
	for _, inv := range env.listAll(t) {
		assert.Nil(t, inv.CategoryID)
	}
}

func TestInvoiceService_AddConvertsImage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	img := env.writeFile(t, "scan.jpg")

	res, err := env.invoices.Add(ctx, InvoiceInput{Name: "Scan", ImagePath: img})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.dir, "scan.pdf"), res.PDFPath)
	assert.Equal(t, []string{img}, env.converter.calls)

	inv, err := env.invoices.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, img, inv.ImagePath)
	assert.Equal(t, res.PDFPath, inv.PDFPath)
}

func TestInvoiceService_AddConversionFailureIsWarning(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.converter.err = errors.New("unsupported image format")
	img := env.writeFile(t, "scan.bmp")

	res, err := env.invoices.Add(ctx, InvoiceInput{Name: "Scan", ImagePath: img})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "unsupported image format")

	inv, err := env.invoices.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, img, inv.ImagePath)
	assert.Empty(t, inv.PDFPath)
}

func TestInvoiceService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	res, err := env.invoices.Add(ctx, InvoiceInput{Name: "Gym", DueDate: "2024-03-01"})
	require.NoError(t, err)
	env.selectInvoice(t, res.ID)

	require.NoError(t, env.invoices.UpdateStatus(ctx, res.ID, "Paid"))
	inv, err := env.invoices.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, inv.Status)

	require.NoError(t, env.invoices.UpdateStatus(ctx, res.ID, "Offen"))
	require.NoError(t, env.invoices.UpdateStatus(ctx, res.ID, "Offen"))

	assert.ErrorIs(t, env.invoices.UpdateStatus(ctx, res.ID, "Storniert"), core.ErrInvalidStatus)
	assert.ErrorIs(t, env.invoices.UpdateStatus(ctx, res.ID+50, "Bezahlt"), ErrNoSelection)
}

func TestInvoiceService_TaxYear(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	res, err := env.invoices.Add(ctx, InvoiceInput{Name: "Arzt"})
	require.NoError(t, err)
	env.selectInvoice(t, res.ID)

	require.NoError(t, env.invoices.SetTaxYear(ctx, res.ID, " 2024 "))
	inv, err := env.invoices.Get(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, inv.TaxDeclarationYear)
	assert.Equal(t, 2024, *inv.TaxDeclarationYear)

	assert.ErrorIs(t, env.invoices.SetTaxYear(ctx, res.ID, "20x4"), core.ErrInvalidTaxYear)
	assert.ErrorIs(t, env.invoices.SetTaxYear(ctx, res.ID, "1800"), core.ErrInvalidTaxYear)

	require.NoError(t, env.invoices.SetTaxYear(ctx, res.ID, ""))
	inv, err = env.invoices.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, inv.TaxDeclarationYear)

	assert.ErrorIs(t, env.invoices.ClearTaxYear(ctx, res.ID+1), ErrNoSelection)
}

func TestInvoiceService_DeleteRemovesFiles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	img := env.writeFile(t, "bill.png")

	res, err := env.invoices.Add(ctx, InvoiceInput{Name: "Bill", ImagePath: img})
	require.NoError(t, err)
	require.FileExists(t, res.PDFPath)
	env.selectInvoice(t, res.ID)

	del, err := env.invoices.Delete(ctx, res.ID)
	require.NoError(t, err)
	assert.Empty(t, del.Warnings)
	assert.NoFileExists(t, img)
	assert.NoFileExists(t, res.PDFPath)

	_, err = env.invoices.Get(ctx, res.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = env.invoices.Delete(ctx, res.ID)
	assert.ErrorIs(t, err, ErrNoSelection, "delete clears the selection")
	_, err = env.invoices.Select(ctx, res.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInvoiceService_DeleteFileFailureIsWarning(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// A non-empty directory cannot be removed with os.Remove.
	blocker := filepath.Join(env.dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "child"), 0o755))
	id, err := env.repo.AddInvoice(ctx, core.NewInvoice{
		Name:      "Stuck",
		ImagePath: blocker,
		PDFPath:   filepath.Join(env.dir, "already-gone.pdf"),
	})
	require.NoError(t, err)
	env.selectInvoice(t, id)

	del, err := env.invoices.Delete(ctx, id)
	require.NoError(t, err)
	require.Len(t, del.Warnings, 1, "missing PDF is not a warning, the stuck image is")
	assert.Contains(t, del.Warnings[0], blocker)

	_, err = env.invoices.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound, "row is deleted even when file removal fails")
}

func TestInvoiceService_ListClearsSelection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	res, err := env.invoices.Add(ctx, InvoiceInput{Name: "Phone"})
	require.NoError(t, err)

	_, err = env.invoices.Select(ctx, res.ID)
	require.NoError(t, err)
	id, ok := env.session.Selected()
	require.True(t, ok)
	assert.Equal(t, res.ID, id)

	env.listAll(t)
	_, ok = env.session.Selected()
	assert.False(t, ok)

	_, err = env.invoices.Select(ctx, res.ID+10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, ok = env.session.Selected()
	assert.False(t, ok)
}

func TestInvoiceService_ActionsRequireSelection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	first, err := env.invoices.Add(ctx, InvoiceInput{Name: "Strom"})
	require.NoError(t, err)
	second, err := env.invoices.Add(ctx, InvoiceInput{Name: "Wasser"})
	require.NoError(t, err)

	actions := map[string]func(id int64) error{
		"status": func(id int64) error { return env.invoices.UpdateStatus(ctx, id, "Bezahlt") },
		"tax":    func(id int64) error { return env.invoices.SetTaxYear(ctx, id, "2024") },
		"untax":  func(id int64) error { return env.invoices.ClearTaxYear(ctx, id) },
		"open":   func(id int64) error { return env.invoices.OpenPDF(ctx, id) },
		"delete": func(id int64) error { _, err := env.invoices.Delete(ctx, id); return err },
	}

	for name, act := range actions {
		assert.ErrorIs(t, act(first.ID), ErrNoSelection, "%s without selection", name)
	}

	env.selectInvoice(t, second.ID)
	for name, act := range actions {
		assert.ErrorIs(t, act(first.ID), ErrNoSelection, "%s on another invoice", name)
	}

	env.selectInvoice(t, first.ID)
	env.listAll(t)
	assert.ErrorIs(t, env.invoices.UpdateStatus(ctx, first.ID, "Bezahlt"), ErrNoSelection, "list reload drops the selection")

	inv, err := env.invoices.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusOpen, inv.Status)
	assert.Len(t, env.listAll(t), 2)
}

func TestInvoiceService_OpenPDF(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	noPDF, err := env.invoices.Add(ctx, InvoiceInput{Name: "Paper"})
	require.NoError(t, err)
	env.selectInvoice(t, noPDF.ID)
	assert.ErrorIs(t, env.invoices.OpenPDF(ctx, noPDF.ID), ErrFileMissing)

	img := env.writeFile(t, "receipt.png")
	withPDF, err := env.invoices.Add(ctx, InvoiceInput{Name: "Receipt", ImagePath: img})
	require.NoError(t, err)
	assert.ErrorIs(t, env.invoices.OpenPDF(ctx, withPDF.ID), ErrNoSelection)
	env.selectInvoice(t, withPDF.ID)
	require.NoError(t, env.invoices.OpenPDF(ctx, withPDF.ID))
	assert.Equal(t, []string{withPDF.PDFPath}, env.opener.opened)

	require.NoError(t, os.Remove(withPDF.PDFPath))
	assert.ErrorIs(t, env.invoices.OpenPDF(ctx, withPDF.ID), ErrFileMissing)
	assert.Len(t, env.opener.opened, 1)
}

func TestInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notifier := NewNotifier(env.repo, nil, log.Discard())
	day := core.NewDate(2024, 3, 1)

	res, err := env.invoices.Add(ctx, InvoiceInput{Name: "Elec", Amount: "42.50", DueDate: "2024-03-01", Category: "Rechnung"})
	require.NoError(t, err)

	notes, err := notifier.Check(ctx, day)
	require.NoError(t, err)
	require.Len(t, notes.Due, 1)
	assert.Equal(t, "Elec", notes.Due[0].Name)

	env.selectInvoice(t, res.ID)
	require.NoError(t, env.invoices.UpdateStatus(ctx, res.ID, "Bezahlt"))
	notes, err = notifier.Check(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, notes.Due)

	_, err = env.invoices.Delete(ctx, res.ID)
	require.NoError(t, err)
	assert.Empty(t, env.listAll(t))
}
