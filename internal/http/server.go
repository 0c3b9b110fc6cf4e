package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"rechnungen/internal/log"
	"rechnungen/internal/middleware/ratelimit"
	"rechnungen/internal/middleware/security"
	"rechnungen/internal/middleware/trace"
	"rechnungen/internal/services"
	appweb "rechnungen/web"
)

// Deps are the services the handlers talk to.
type Deps struct {
	Invoices   *services.InvoiceService
	Categories *services.CategoryService
	Reports    *services.ReportService
	Notifier   *services.Notifier
	TaxExport  *services.TaxExportService

	// Ready reports whether storage is reachable; used by /readyz.
	Ready func(ctx context.Context) error
}

// Options tune the HTTP layer.
type Options struct {
	UploadDir       string
	MaxUploadBytes  int64
	RateLimitPerMin int
	Logger          *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template

	invoices   *services.InvoiceService
	categories *services.CategoryService
	reports    *services.ReportService
	notifier   *services.Notifier
	taxExport  *services.TaxExportService
	ready      func(ctx context.Context) error

	uploadDir      string
	maxUploadBytes int64

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	logger  *log.Logger
	started time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}

	s := &Server{
		invoices:       deps.Invoices,
		categories:     deps.Categories,
		reports:        deps.Reports,
		notifier:       deps.Notifier,
		taxExport:      deps.TaxExport,
		ready:          deps.Ready,
		uploadDir:      opts.UploadDir,
		maxUploadBytes: opts.MaxUploadBytes,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMin}),
		tracer:         trace.NewMiddleware(logger, security.ClientIP),
		logger:         logger,
		started:        time.Now(),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// UI partials
	mux.HandleFunc("GET /ui/invoices", s.handleInvoiceList)
	mux.HandleFunc("GET /ui/categories", s.handleCategoryList)
	mux.HandleFunc("GET /ui/report", s.handleReport)
	mux.HandleFunc("GET /ui/notifications", s.handleNotifications)

	mux.HandleFunc("POST /invoices", s.handleCreateInvoice)
	mux.HandleFunc("POST /invoices/{id}/select", s.handleSelectInvoice)
	mux.HandleFunc("POST /invoices/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("POST /invoices/{id}/tax", s.handleSetTaxYear)
	mux.HandleFunc("POST /invoices/{id}/open", s.handleOpenPDF)
	mux.HandleFunc("GET /invoices/{id}/pdf", s.handleServePDF)
	mux.HandleFunc("DELETE /invoices/{id}", s.handleDeleteInvoice)

	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)

	mux.Handle("POST /tax/export", log.ComponentMiddleware(log.ComponentSheets)(http.HandlerFunc(s.handleTaxExport)))

	var h http.Handler = mux
	h = s.limiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.requestLogger(r).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, security.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = log.Middleware(logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// requestLogger returns the request-scoped logger carrying the request id.
func (s *Server) requestLogger(r *http.Request) *log.Logger {
	return log.FromContext(r.Context())
}

// renderString executes a template into a string so it can be combined with
// HX-Trigger headers.
func (s *Server) renderString(name string, data any) (string, error) {
	if s.templates == nil {
		return "", errTemplatesMissing
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// render writes a template through b, which may carry triggers. b may be nil.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	html, err := s.renderString(name, data)
	if err != nil {
		s.requestLogger(r).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender, "template", name, log.FieldError, err)
		InternalServerError("Fehler beim Rendern der Seite").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.BodyHTML(html).Write(w)
}
