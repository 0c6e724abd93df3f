package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tracker/internal/backend"
	applog "tracker/internal/log"
	"tracker/internal/middleware/guard"
	"tracker/internal/middleware/security"
	"tracker/internal/middleware/trace"
	appweb "tracker/web"
)

// DefaultBackendTimeout bounds each backend call when Options leaves it
// unset.
const DefaultBackendTimeout = 10 * time.Second

// apiHandler turns a request into a complete JSON response.
type apiHandler func(r *http.Request) *JSONResponseBuilder

type Server struct {
	http.Server
	backend   backend.Client
	timeout   time.Duration
	logger    *applog.Logger
	templates *template.Template

	traceMiddleware *trace.Middleware
	ipResolver      *security.ClientIPResolver

	// allowed maps each API path to the methods registered for it.
	allowed map[string][]string
	metrics appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime         time.Time
	recordsCreated atomic.Int64
}

// Options configures NewServer.
type Options struct {
	Addr           string
	Backend        backend.Client
	BackendName    string
	BackendTimeout time.Duration
	Logger         *applog.Logger
	// TrustedProxies are CIDRs whose forwarding headers are believed.
	TrustedProxies []string
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	timeout := opts.BackendTimeout
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}

	ipResolver := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := ipResolver.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}

	mux := http.NewServeMux()
	s := &Server{
		backend:         opts.Backend,
		timeout:         timeout,
		logger:          logger,
		ipResolver:      ipResolver,
		traceMiddleware: trace.NewMiddleware(ipResolver.ClientIP, logger.WithComponent(applog.ComponentTrace).Logger),
		allowed:         make(map[string][]string),
	}
	s.metrics.uptime = time.Now()

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	// Data endpoints do not authenticate the caller: user_id in request
	// bodies is trusted as sent. Known defect, see DESIGN.md.
	s.route(mux, http.MethodPost, "/api/auth/login", s.handleLogin)
	s.route(mux, http.MethodPost, "/api/auth/signup", s.handleSignup)
	s.route(mux, http.MethodGet, "/api/nested/finance", s.handleFinance)
	s.route(mux, http.MethodPost, "/api/nested/finance/transaction", s.handleAddTransaction)
	s.route(mux, http.MethodGet, "/api/nested/study", s.handleStudy)
	s.route(mux, http.MethodPost, "/api/nested/study/task", s.handleAddTask)
	s.route(mux, http.MethodPost, "/api/finance/description", s.handleDescriptions)
	mux.Handle("/api/", http.HandlerFunc(s.handleAPIFallback))

	// Views
	views := guard.New(guard.LoginPath, logger.WithComponent(applog.ComponentGuard).Logger)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/finance", http.StatusFound)
	})
	mux.Handle("GET /login", s.view("login.html", "Sign in", false))
	mux.Handle("GET /finance", views.Protect(s.view("finance.html", "Finance", true)))
	mux.Handle("GET /study", views.Protect(s.view("study.html", "Study", true)))

	// Operations
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = s.recoverPanics(handler)
	handler = applog.Middleware(logger, trace.RequestID)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("HTTP server configured",
		"addr", opts.Addr,
		applog.FieldBackend, opts.BackendName,
		"backend_timeout", timeout.String())
	logger.Warn("Data endpoints are unauthenticated and trust the caller-supplied user_id",
		"endpoints", "/api/nested/*, /api/finance/description")

	return s
}

// route registers an API handler for one method and path.
func (s *Server) route(mux *http.ServeMux, method, path string, h apiHandler) {
	s.allowed[path] = append(s.allowed[path], method)
	mux.Handle(method+" "+path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(r).Write(w)
	}))
}

// handleAPIFallback answers unmatched /api requests with JSON errors.
func (s *Server) handleAPIFallback(w http.ResponseWriter, r *http.Request) {
	if methods, ok := s.allowed[r.URL.Path]; ok {
		sorted := append([]string(nil), methods...)
		sort.Strings(sorted)
		MethodNotAllowedError(strings.Join(sorted, ", ")).Write(w)
		return
	}
	NotFoundError("Not found").Write(w)
}

// view renders a full page template.
func (s *Server) view(name, title string, protected bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.templates == nil {
			s.logger.ErrorContext(r.Context(), "Templates not loaded",
				applog.FieldPath, r.URL.Path,
				applog.FieldErrorType, applog.ErrorTypeConfiguration)
			http.Error(w, "templates not loaded", http.StatusInternalServerError)
			return
		}
		next := r.URL.Query().Get("next")
		if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
			next = "/finance"
		}
		data := struct {
			Title     string
			Protected bool
			Next      string
		}{Title: title, Protected: protected, Next: next}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
			s.logger.ErrorContext(r.Context(), "Template execution failed", applog.FieldError, err, "template", name)
		}
	})
}

// recoverPanics turns a handler panic into a generic 500.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					applog.FieldError, fmt.Sprint(rec),
					applog.FieldErrorType, applog.ErrorTypeInternal,
					applog.FieldPath, r.URL.Path,
					"stack", string(debug.Stack()))
				InternalServerError(internalErrorMessage).Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.uptime).Round(time.Second).String(),
		"requests":  s.traceMiddleware.GetMetrics(),
	}).Write(w)
}

// handleReady pings the backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.backend == nil:
		checks["backend"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.backend.Ping(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request and application counters in plain text
// format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	tm := s.traceMiddleware.GetMetrics()

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", tm.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", tm.ServerErrors)

	fmt.Fprintf(w, "# HELP http_last_response_time_microseconds Latency of the last request\n")
	fmt.Fprintf(w, "# TYPE http_last_response_time_microseconds gauge\n")
	fmt.Fprintf(w, "http_last_response_time_microseconds %d\n\n", tm.LastResponseTimeUs)

	fmt.Fprintf(w, "# HELP records_created_total Records inserted through the API\n")
	fmt.Fprintf(w, "# TYPE records_created_total counter\n")
	fmt.Fprintf(w, "records_created_total %d\n\n", s.metrics.recordsCreated.Load())

	fmt.Fprintf(w, "# HELP uptime_seconds Process uptime\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.metrics.uptime).Seconds())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
