// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// It reduces code duplication by providing reusable functions for common
// form parsing, path ids, filters and input sanitization.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rechnungen/internal/core"
	"rechnungen/internal/storage"
)

var errInvalidID = errors.New("invalid id")

// PathID reads the {id} wildcard of the matched route.
func PathID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, raw)
	}
	return id, nil
}

// ParseInvoiceFilter builds the list filter from query parameters. Missing
// status and category mean "all"; tax=1 (or true/on) restricts the list to
// invoices earmarked for a tax declaration.
func ParseInvoiceFilter(query url.Values) storage.InvoiceFilter {
	f := storage.InvoiceFilter{
		Status:   sanitizeInput(query.Get("status")),
		Category: sanitizeInput(query.Get("category")),
	}
	switch strings.ToLower(strings.TrimSpace(query.Get("tax"))) {
	case "1", "true", "on", "ja":
		f.TaxOnly = true
	}
	return f
}

// ParseYear reads a year parameter, defaulting to the year of now when blank.
func ParseYear(raw string, now time.Time) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Year(), nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidTaxYear, raw)
	}
	if err := core.ValidateTaxYear(y); err != nil {
		return 0, err
	}
	return y, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX, and
// falls back to the URL query for keys missing from the body.
type RequestBodyParser struct {
	body        []byte
	contentType string
	query       url.Values
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
		query:       r.URL.Query(),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(r.Body)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized value from the parsed body, or the query string.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil && p.formData.Has(key) {
		return sanitizeInput(p.formData.Get(key))
	}
	return sanitizeInput(p.query.Get(key))
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Ungültiges Anfrageformat")
	}
	return nil
}
