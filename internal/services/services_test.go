package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rechnungen/internal/core"
	"rechnungen/internal/log"
	"rechnungen/internal/storage"

	"github.com/stretchr/testify/require"
)

type fakeConverter struct {
	err   error
	calls []string
}

func (f *fakeConverter) Convert(imagePath string) (string, error) {
	f.calls = append(f.calls, imagePath)
	if f.err != nil {
		return "", f.err
	}
	out := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".pdf"
	return out, os.WriteFile(out, []byte("%PDF-1.3"), 0o644)
}

type fakeOpener struct {
	opened []string
	err    error
}

func (f *fakeOpener) Open(path string) error {
	f.opened = append(f.opened, path)
	return f.err
}

type testEnv struct {
	repo       *storage.SQLiteRepository
	session    *Session
	categories *CategoryService
	invoices   *InvoiceService
	converter  *fakeConverter
	opener     *fakeOpener
	dir        string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "invoices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := log.Discard()
	session := NewSession()
	cats := NewCategoryService(repo, session, logger)
	_, err = cats.Refresh(context.Background())
	require.NoError(t, err)

	conv := &fakeConverter{}
	op := &fakeOpener{}
	return &testEnv{
		repo:       repo,
		session:    session,
		categories: cats,
		invoices:   NewInvoiceService(repo, cats, session, conv, op, logger),
		converter:  conv,
		opener:     op,
		dir:        dir,
	}
}

func (e *testEnv) writeFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(p, []byte("data"), 0o644))
	return p
}

func (e *testEnv) listAll(t *testing.T) []core.Invoice {
	t.Helper()
	list, err := e.invoices.List(context.Background(), storage.InvoiceFilter{Status: "Alle", Category: "Alle"})
	require.NoError(t, err)
	return list
}

func (e *testEnv) selectInvoice(t *testing.T, id int64) {
	t.Helper()
	_, err := e.invoices.Select(context.Background(), id)
	require.NoError(t, err)
}
