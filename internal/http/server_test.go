package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"rechnungen/internal/core"
	"rechnungen/internal/log"
	"rechnungen/internal/pdf"
	"rechnungen/internal/services"
	"rechnungen/internal/sheets/memory"
	"rechnungen/internal/storage"
)

type fakeConverter struct{}

func (fakeConverter) Convert(imagePath string) (string, error) {
	out := pdf.SiblingPath(imagePath)
	return out, os.WriteFile(out, []byte("%PDF-1.3\n"), 0o644)
}

type fakeOpener struct{ opened []string }

func (f *fakeOpener) Open(path string) error {
	f.opened = append(f.opened, path)
	return nil
}

type testServer struct {
	srv       *Server
	repo      *storage.SQLiteRepository
	opener    *fakeOpener
	uploadDir string
}

func newTestServer(t *testing.T, exporter *memory.Exporter, rateLimit int) *testServer {
	t.Helper()
	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "invoices.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.Discard()
	session := services.NewSession()
	cats := services.NewCategoryService(repo, session, logger)
	if _, err := cats.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh categories: %v", err)
	}
	op := &fakeOpener{}

	tax := services.NewTaxExportService(repo, nil, logger)
	if exporter != nil {
		tax = services.NewTaxExportService(repo, exporter, logger)
	}

	uploadDir := filepath.Join(dir, "uploads")
	srv := NewServer("127.0.0.1:0", Deps{
		Invoices:   services.NewInvoiceService(repo, cats, session, fakeConverter{}, op, logger),
		Categories: cats,
		Reports:    services.NewReportService(repo),
		Notifier:   services.NewNotifier(repo, nil, logger),
		TaxExport:  tax,
		Ready:      repo.Ping,
	}, Options{
		UploadDir:       uploadDir,
		MaxUploadBytes:  1 << 20,
		RateLimitPerMin: rateLimit,
		Logger:          logger,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testServer{srv: srv, repo: repo, opener: op, uploadDir: uploadDir}
}

func (ts *testServer) do(t *testing.T, method, target, form string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(form))
	if form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) addInvoice(t *testing.T, form string) int64 {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/invoices", form)
	if rr.Code != http.StatusOK {
		t.Fatalf("create invoice %q: status %d body %s", form, rr.Code, rr.Body.String())
	}
	list, err := ts.repo.ListInvoices(context.Background(), storage.InvoiceFilter{})
	if err != nil || len(list) == 0 {
		t.Fatalf("list after create: %v", err)
	}
	var newest int64
	for _, inv := range list {
		if inv.ID > newest {
			newest = inv.ID
		}
	}
	return newest
}

func (ts *testServer) selectInvoice(t *testing.T, id int64) {
	t.Helper()
	if rr := ts.do(t, http.MethodPost, "/invoices/"+itoa(id)+"/select", ""); rr.Code != http.StatusOK {
		t.Fatalf("select %d: status %d body %s", id, rr.Code, rr.Body.String())
	}
}

func TestIndexAndHealth(t *testing.T) {
	ts := newTestServer(t, nil, 1000)

	rr := ts.do(t, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Rechnungsverwaltung", `id="invoice-category"`, "Miete", "Offen"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if strings.Contains(body, "Steuerexport") {
		t.Error("tax export form must be hidden when not configured")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers not applied")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}

	rr = ts.do(t, http.MethodGet, "/static/app.css", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
}

func TestReadyzReportsStorageFailure(t *testing.T) {
	ts := newTestServer(t, nil, 1000)
	ts.repo.Close()

	rr := ts.do(t, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with closed storage, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"not_ready"`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestCreateInvoiceValidationAndSuccess(t *testing.T) {
	ts := newTestServer(t, nil, 1000)

	rr := ts.do(t, http.MethodGet, "/invoices", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	tests := []struct {
		name string
		form string
		want int
	}{
		{"missing name", "name=&amount=1", http.StatusUnprocessableEntity},
		{"invalid amount", "name=Strom&amount=abc", http.StatusUnprocessableEntity},
		{"credit note", "name=Gutschrift&amount=-12,50", http.StatusOK},
		{"invalid date", "name=Strom&due_date=01.03.2024", http.StatusUnprocessableEntity},
		{"unknown category", "name=Strom&category=Urlaub", http.StatusUnprocessableEntity},
		{"minimal", "name=Strom", http.StatusOK},
		{"full", "name=Miete+M%C3%A4rz&amount=850%2C00&due_date=2024-03-01&reminder_date=2024-02-20&category=Miete", http.StatusOK},
		{"no category sentinel", "name=Kino&category=Keine", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, "/invoices", tt.form)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if tt.want == http.StatusOK {
				trigger := rr.Header().Get("HX-Trigger")
				if !strings.Contains(trigger, EventInvoiceCreated) || !strings.Contains(trigger, EventInvoicesRefresh) {
					t.Fatalf("HX-Trigger = %s", trigger)
				}
			}
		})
	}

	list, err := ts.repo.ListInvoices(context.Background(), storage.InvoiceFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 4 {
		t.Fatalf("stored %d invoices, want 4", len(list))
	}
	var credit *core.Invoice
	for i := range list {
		if list[i].Name == "Gutschrift" {
			credit = &list[i]
		}
	}
	if credit == nil || credit.Amount == nil || credit.Amount.Cents != -1250 {
		t.Fatalf("credit note = %+v", credit)
	}
	if rr := ts.do(t, http.MethodGet, "/ui/invoices", ""); !strings.Contains(rr.Body.String(), "-12,50 €") {
		t.Fatalf("negative amount not rendered: %s", rr.Body.String())
	}
}

func TestCreateInvoiceWithUpload(t *testing.T) {
	ts := newTestServer(t, nil, 1000)

	post := func(filename string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("name", "Versicherung")
		_ = mw.WriteField("amount", "120.5")
		fw, _ := mw.CreateFormFile("image", filename)
		_, _ = fw.Write([]byte("not really an image"))
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/invoices", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rr := httptest.NewRecorder()
		ts.srv.Handler.ServeHTTP(rr, req)
		return rr
	}

	rr := post("../../scan 01.PNG")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	list, err := ts.repo.ListInvoices(context.Background(), storage.InvoiceFilter{})
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v (%d)", err, len(list))
	}
	inv := list[0]
	if filepath.Dir(inv.ImagePath) != ts.uploadDir {
		t.Fatalf("image stored outside upload dir: %s", inv.ImagePath)
	}
	if !strings.HasSuffix(inv.ImagePath, "_scan_01.png") {
		t.Fatalf("unexpected upload name %s", inv.ImagePath)
	}
	if inv.PDFPath != pdf.SiblingPath(inv.ImagePath) {
		t.Fatalf("pdf path = %q", inv.PDFPath)
	}
	if inv.Amount == nil || inv.Amount.Cents != 12050 {
		t.Fatalf("amount = %v", inv.Amount)
	}

	rr = post("notes.txt")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unsupported upload, got %d", rr.Code)
	}
}

func TestInvoiceListFilters(t *testing.T) {
	ts := newTestServer(t, nil, 1000)
	ts.addInvoice(t, "name=Strom&category=Rechnung")
	paid := ts.addInvoice(t, "name=Handy&category=Abonnement")
	ts.selectInvoice(t, paid)
	if rr := ts.do(t, http.MethodPost, "/invoices/"+itoa(paid)+"/status", "status=Bezahlt"); rr.Code != http.StatusOK {
		t.Fatalf("status update: %d %s", rr.Code, rr.Body.String())
	}

	tests := []struct {
		query   string
		want    []string
		notWant []string
		code    int
	}{
		{"", []string{"Strom", "Handy"}, nil, http.StatusOK},
		{"?status=Alle&category=Alle", []string{"Strom", "Handy"}, nil, http.StatusOK},
		{"?status=Bezahlt", []string{"Handy"}, []string{"Strom"}, http.StatusOK},
		{"?status=paid", []string{"Handy"}, []string{"Strom"}, http.StatusOK},
		{"?category=Rechnung", []string{"Strom"}, []string{"Handy"}, http.StatusOK},
		{"?tax=1", []string{"Keine Rechnungen gefunden"}, []string{"Strom", "Handy"}, http.StatusOK},
		{"?status=Storniert", nil, nil, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := ts.do(t, http.MethodGet, "/ui/invoices"+tt.query, "")
			if rr.Code != tt.code {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.code, rr.Body.String())
			}
			body := rr.Body.String()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("body missing %q", w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(body, w) {
					t.Errorf("body unexpectedly contains %q", w)
				}
			}
		})
	}
}

func TestInvoiceMutations(t *testing.T) {
	ts := newTestServer(t, nil, 1000)
	id := ts.addInvoice(t, "name=Strom&amount=42,50")
	base := "/invoices/" + itoa(id)

	rr := ts.do(t, http.MethodPost, base+"/select", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Strom") {
		t.Fatalf("select: %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), EventInvoiceSelected) {
		t.Fatalf("select trigger = %s", rr.Header().Get("HX-Trigger"))
	}

	tests := []struct {
		name   string
		method string
		path   string
		form   string
		want   int
	}{
		{"select missing", http.MethodPost, "/invoices/9999/select", "", http.StatusNotFound},
		{"bad id", http.MethodPost, "/invoices/abc/status", "status=Offen", http.StatusBadRequest},
		{"status paid", http.MethodPost, base + "/status", "status=Bezahlt", http.StatusOK},
		{"status english alias", http.MethodPost, base + "/status", "status=reminded", http.StatusOK},
		{"status invalid", http.MethodPost, base + "/status", "status=Storniert", http.StatusUnprocessableEntity},
		{"status unselected invoice", http.MethodPost, "/invoices/9999/status", "status=Offen", http.StatusConflict},
		{"delete unselected invoice", http.MethodDelete, "/invoices/9999", "", http.StatusConflict},
		{"tax year", http.MethodPost, base + "/tax", "year=2024", http.StatusOK},
		{"tax year invalid", http.MethodPost, base + "/tax", "year=abc", http.StatusUnprocessableEntity},
		{"tax year out of range", http.MethodPost, base + "/tax", "year=1800", http.StatusUnprocessableEntity},
		{"open without pdf", http.MethodPost, base + "/open", "", http.StatusNotFound},
		{"pdf without pdf", http.MethodGet, base + "/pdf", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, tt.method, tt.path, tt.form)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	inv, err := ts.repo.GetInvoice(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Status != core.StatusReminded {
		t.Errorf("status = %s, want Erinnert", inv.Status)
	}
	if inv.TaxDeclarationYear == nil || *inv.TaxDeclarationYear != 2024 {
		t.Errorf("tax year = %v", inv.TaxDeclarationYear)
	}

	rr = ts.do(t, http.MethodPost, base+"/tax", "year=")
	if rr.Code != http.StatusOK {
		t.Fatalf("clear tax: %d", rr.Code)
	}
	inv, _ = ts.repo.GetInvoice(context.Background(), id)
	if inv.TaxDeclarationYear != nil {
		t.Errorf("tax year not cleared")
	}

	rr = ts.do(t, http.MethodDelete, base, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}
	rr = ts.do(t, http.MethodDelete, base, "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("second delete: %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodPost, base+"/select", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("select deleted: %d", rr.Code)
	}
}

func TestActionsNeedSelectionAfterListReload(t *testing.T) {
	ts := newTestServer(t, nil, 1000)
	id := ts.addInvoice(t, "name=Strom&amount=42,50")
	base := "/invoices/" + itoa(id)

	ts.selectInvoice(t, id)
	if rr := ts.do(t, http.MethodGet, "/ui/invoices", ""); rr.Code != http.StatusOK {
		t.Fatalf("list: %d", rr.Code)
	}

	for _, tc := range []struct{ method, path, form string }{
		{http.MethodPost, base + "/status", "status=Bezahlt"},
		{http.MethodPost, base + "/tax", "year=2024"},
		{http.MethodPost, base + "/open", ""},
		{http.MethodDelete, base, ""},
	} {
		rr := ts.do(t, tc.method, tc.path, tc.form)
		if rr.Code != http.StatusConflict {
			t.Fatalf("%s %s: status=%d want 409", tc.method, tc.path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Bitte wählen Sie eine Rechnung aus") {
			t.Fatalf("%s %s: body=%s", tc.method, tc.path, rr.Body.String())
		}
	}

	inv, err := ts.repo.GetInvoice(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Status != core.StatusOpen || inv.TaxDeclarationYear != nil {
		t.Fatalf("unselected invoice was modified: %+v", inv)
	}

	ts.selectInvoice(t, id)
	if rr := ts.do(t, http.MethodPost, base+"/status", "status=Bezahlt"); rr.Code != http.StatusOK {
		t.Fatalf("status after reselect: %d %s", rr.Code, rr.Body.String())
	}
}

func TestPDFServeAndOpen(t *testing.T) {
	ts := newTestServer(t, nil, 1000)
	img := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(img, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	id := ts.addInvoice(t, "name=Scan&image_path="+img)
	base := "/invoices/" + itoa(id)

	rr := ts.do(t, http.MethodGet, base+"/pdf", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("pdf: %d %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF-") {
		t.Fatalf("body is not a pdf")
	}

	ts.selectInvoice(t, id)
	rr = ts.do(t, http.MethodPost, base+"/open", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("open: %d %s", rr.Code, rr.Body.String())
	}
	if len(ts.opener.opened) != 1 || ts.opener.opened[0] != pdf.SiblingPath(img) {
		t.Fatalf("opened = %v", ts.opener.opened)
	}

	if err := os.Remove(pdf.SiblingPath(img)); err != nil {
		t.Fatal(err)
	}
	rr = ts.do(t, http.MethodPost, base+"/open", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("open with missing file: %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"type":"warning"`) {
		t.Fatalf("missing warning notification: %s", rr.Header().Get("HX-Trigger"))
	}
}

func TestCategoryHandlers(t *testing.T) {
	ts := newTestServer(t, nil, 1000)

	rr := ts.do(t, http.MethodGet, "/ui/categories", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Versicherung") {
		t.Fatalf("list: %d %s", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/categories", "name=Garten")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Garten") {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `hx-swap-oob="true"`) {
		t.Fatal("category selects are not refreshed out of band")
	}

	if rr := ts.do(t, http.MethodPost, "/categories", "name=Garten"); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodPost, "/categories", "name=+"); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty: %d", rr.Code)
	}
	for _, reserved := range []string{"Alle", "all", "Keine"} {
		rr := ts.do(t, http.MethodPost, "/categories", "name="+reserved)
		if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "reserviert") {
			t.Fatalf("reserved %q: %d %s", reserved, rr.Code, rr.Body.String())
		}
	}

	id := ts.addInvoice(t, "name=Rasenmäher&category=Garten")

	cats, err := ts.repo.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var gardenID int64
	for _, c := range cats {
		if c.Name == "Garten" {
			gardenID = c.ID
		}
	}

	rr = ts.do(t, http.MethodDelete, "/categories/"+itoa(gardenID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "Garten") {
		t.Fatal("deleted category still rendered")
	}
	inv, err := ts.repo.GetInvoice(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if inv.CategoryID != nil {
		t.Fatal("invoice still references deleted category")
	}

	if rr := ts.do(t, http.MethodPost, "/invoices", "name=Hecke&category=Garten"); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("stale category accepted: %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodDelete, "/categories/"+itoa(gardenID), ""); rr.Code != http.StatusInternalServerError {
		t.Fatalf("delete missing: %d", rr.Code)
	}
}

func TestCategoryChangesKeepListFilter(t *testing.T) {
	ts := newTestServer(t, nil, 1000)
	const selectedMiete = `<option value="Miete" selected>`

	rr := ts.do(t, http.MethodGet, "/ui/categories?category=Miete", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), selectedMiete) {
		t.Fatalf("list keeps filter: %d %s", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/categories", "name=Garten&category=Miete")
	if rr.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, `id="filter-category" name="category" hx-swap-oob="true"`) || !strings.Contains(body, selectedMiete) {
		t.Fatalf("filter selection lost after create: %s", body)
	}

	rr = ts.do(t, http.MethodPost, "/categories", "name=Keller")
	if strings.Contains(rr.Body.String(), " selected>") {
		t.Fatalf("no filter sent, nothing should be selected: %s", rr.Body.String())
	}

	cats, err := ts.repo.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var gardenID int64
	for _, c := range cats {
		if c.Name == "Garten" {
			gardenID = c.ID
		}
	}

	rr = ts.do(t, http.MethodDelete, "/categories/"+itoa(gardenID)+"?category=Garten", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), " selected>") {
		t.Fatalf("filter on deleted category must fall back to Alle: %s", rr.Body.String())
	}
	if after := rr.Header().Get("HX-Trigger-After-Swap"); !strings.Contains(after, EventInvoicesRefresh) {
		t.Fatalf("list refresh must run after the swap, got %q", after)
	}
	if strings.Contains(rr.Header().Get("HX-Trigger"), EventInvoicesRefresh) {
		t.Fatalf("list refresh fired before the swap: %s", rr.Header().Get("HX-Trigger"))
	}
}

func TestReportAndNotifications(t *testing.T) {
	ts := newTestServer(t, nil, 1000)

	rr := ts.do(t, http.MethodGet, "/ui/report", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), services.EmptyReportMessage) {
		t.Fatalf("empty report: %d %s", rr.Code, rr.Body.String())
	}

	ts.addInvoice(t, "name=Strom&amount=10&category=Rechnung&due_date=2024-03-01")
	ts.addInvoice(t, "name=Wasser&amount=15,50&category=Rechnung")
	ts.addInvoice(t, "name=Handy&amount=5&category=Abonnement&reminder_date=2024-03-01")

	rr = ts.do(t, http.MethodGet, "/ui/report", "")
	body := rr.Body.String()
	if !strings.Contains(body, "25,50 €") || !strings.Contains(body, "width: 100%") || !strings.Contains(body, "width: 20%") {
		t.Fatalf("report body: %s", body)
	}

	rr = ts.do(t, http.MethodGet, "/ui/notifications?date=2024-03-01", "")
	body = rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, "Strom (fällig am 2024-03-01)") || !strings.Contains(body, "Handy (Erinnerung am 2024-03-01)") {
		t.Fatalf("notifications: %d %s", rr.Code, body)
	}

	rr = ts.do(t, http.MethodGet, "/ui/notifications?date=2024-03-02", "")
	if strings.Contains(rr.Body.String(), "banner") {
		t.Fatalf("unexpected banner: %s", rr.Body.String())
	}

	if rr := ts.do(t, http.MethodGet, "/ui/notifications?date=morgen", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad date: %d", rr.Code)
	}
}

func TestTaxExport(t *testing.T) {
	ts := newTestServer(t, nil, 1000)
	if rr := ts.do(t, http.MethodPost, "/tax/export?year=2024", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled export: %d", rr.Code)
	}

	exp := memory.New("Steuer")
	ts = newTestServer(t, exp, 1000)
	id := ts.addInvoice(t, "name=Brille&amount=199")
	ts.selectInvoice(t, id)
	if rr := ts.do(t, http.MethodPost, "/invoices/"+itoa(id)+"/tax", "year=2024"); rr.Code != http.StatusOK {
		t.Fatalf("tax mark: %d %s", rr.Code, rr.Body.String())
	}

	if rr := ts.do(t, http.MethodGet, "/", ""); !strings.Contains(rr.Body.String(), "Steuerexport") {
		t.Fatal("export form not rendered when configured")
	}

	rr := ts.do(t, http.MethodPost, "/tax/export", "year=2024")
	if rr.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "1 Rechnungen für 2024") {
		t.Fatalf("body = %s", rr.Body.String())
	}
	exported, ok := exp.Exported(2024)
	if !ok || len(exported) != 1 || exported[0].Name != "Brille" {
		t.Fatalf("exported = %+v", exported)
	}

	if rr := ts.do(t, http.MethodPost, "/tax/export", "year=12"); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid year: %d", rr.Code)
	}
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	ts := newTestServer(t, nil, 1)

	if rr := ts.do(t, http.MethodPost, "/categories", "name=Eins"); rr.Code != http.StatusOK {
		t.Fatalf("first: %d", rr.Code)
	}
	rr := ts.do(t, http.MethodPost, "/categories", "name=Zwei")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodGet, "/ui/categories", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited: %d", rr.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
