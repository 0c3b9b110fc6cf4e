package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rechnungen/internal/core"
	"rechnungen/internal/log"
	"rechnungen/internal/services"
)

var errTemplatesMissing = errors.New("templates not loaded")

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"requests":  s.tracer.GetMetrics().TotalRequests,
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ready == nil:
		checks["storage"] = "not_configured"
	default:
		if err := s.ready(ctx); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	if s.taxExport != nil && s.taxExport.Enabled() {
		checks["tax_export"] = "configured"
	} else {
		checks["tax_export"] = "disabled"
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"rejected":       s.limiter.Hits(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.List(r.Context())
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Category list error", log.FieldError, err)
	}

	now := time.Now()
	s.render(w, r, nil, "index.html", indexView{
		Statuses:   core.Statuses(),
		Categories: cats,
		NoCategory: services.NoCategory,
		TaxExport:  s.taxExport != nil && s.taxExport.Enabled(),
		Year:       now.Year(),
		Today:      core.DateOf(now).String(),
	})
}
