package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{" 3 ", 3, false},
		{"0", 0, true},
		{"-4", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/invoices/x/status", nil)
			req.SetPathValue("id", tt.raw)

			got, err := PathID(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PathID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PathID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseInvoiceFilter(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		status   string
		category string
		taxOnly  bool
	}{
		{"empty", url.Values{}, "", "", false},
		{"status and category", url.Values{"status": {"Offen"}, "category": {"Miete"}}, "Offen", "Miete", false},
		{"tax flag", url.Values{"tax": {"1"}}, "", "", true},
		{"tax flag on", url.Values{"tax": {"on"}}, "", "", true},
		{"tax flag off", url.Values{"tax": {"0"}}, "", "", false},
		{"control chars stripped", url.Values{"category": {" Mi\x00ete "}}, "", "Miete", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ParseInvoiceFilter(tt.query)
			if f.Status != tt.status || f.Category != tt.category || f.TaxOnly != tt.taxOnly {
				t.Errorf("ParseInvoiceFilter() = %+v", f)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 2025, false},
		{"2024", 2024, false},
		{"1899", 0, true},
		{"zwanzig", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseYear(tt.raw, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseYear() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseYear() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"status": "Bezahlt", "year": 2024}`
	req := httptest.NewRequest(http.MethodPost, "/invoices/1/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if got := parser.Get("status"); got != "Bezahlt" {
		t.Errorf("Get('status') = %q, want 'Bezahlt'", got)
	}
	if got := parser.Get("year"); got != "2024" {
		t.Errorf("Get('year') = %q, want '2024'", got)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "status=Erinnert&name=form+test"
	req := httptest.NewRequest(http.MethodPost, "/invoices/1/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if got := parser.Get("status"); got != "Erinnert" {
		t.Errorf("Get('status') = %q, want 'Erinnert'", got)
	}
	if got := parser.Get("name"); got != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", got)
	}
}

func TestRequestBodyParser_QueryFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/tax/export?year=2023", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := parser.Get("year"); got != "2023" {
		t.Errorf("Get('year') = %q, want '2023'", got)
	}
	if got := parser.Get("nonexistent"); got != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", got)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"status":`))

	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestParseFormOrFail(t *testing.T) {
	body := "field=value"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if result := ParseFormOrFail(req); result != nil {
		t.Error("Expected nil for valid form, got error response")
	}
	if req.Form.Get("field") != "value" {
		t.Error("Form was not parsed correctly")
	}
}
