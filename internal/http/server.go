package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"runpay/internal/core"
	"runpay/internal/log"
	"runpay/internal/metrics"
	"runpay/internal/middleware/ratelimit"
	"runpay/internal/middleware/security"
	"runpay/internal/middleware/trace"
	"runpay/internal/services"
	appweb "runpay/web"
)

// Server serves the console page and its JSON API.
type Server struct {
	http.Server

	console   *services.Console
	templates *template.Template
	logger    *log.Logger
	ready     func(context.Context) error

	shutdownOnce sync.Once
}

// Deps are the collaborators of the server. Console is required; a nil
// Metrics disables /metrics, nil Limiter and Detector get defaults.
type Deps struct {
	Console  *services.Console
	Logger   *log.Logger
	Metrics  *metrics.Metrics
	Limiter  *ratelimit.Limiter
	Detector *security.Detector
	// Ready backs /readyz; nil means always ready.
	Ready func(context.Context) error
}

var templateFuncs = template.FuncMap{
	"usd":   core.FormatUSD,
	"clock": func(t time.Time) string { return t.Format("15:04:05") },
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		console: deps.Console,
		logger:  logger,
		ready:   deps.Ready,
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
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
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/prompts", s.handleSubmitPrompt)
	api.HandleFunc("POST /api/prompts/summary", s.handleRunSummary)
	api.HandleFunc("GET /api/summary", s.handlePreviewSummary)
	api.HandleFunc("GET /api/pending", s.handleListPending)
	api.HandleFunc("POST /api/pending/{id}/confirm", s.handleConfirmPending)
	api.HandleFunc("POST /api/pending/{id}/cancel", s.handleCancelPending)
	api.HandleFunc("GET /api/accounts", s.handleAccounts)
	api.HandleFunc("GET /api/activity", s.handleActivity)
	api.HandleFunc("GET /api/employees", s.handleListEmployees)
	api.HandleFunc("POST /api/employees", s.handleSaveEmployee)
	api.HandleFunc("GET /api/employees/{name}/automations", s.handleEmployeeAutomations)
	api.HandleFunc("GET /api/automations", s.handleListAutomations)
	api.HandleFunc("PUT /api/automations/{id}", s.handleUpdateAutomation)
	api.HandleFunc("GET /api/integrations", s.handleListIntegrations)
	api.HandleFunc("POST /api/integrations/{id}/connect", s.handleConnectIntegration)
	api.HandleFunc("GET /api/flow", s.handleFlow)
	mux.Handle("/api/", security.NoStore(api))

	detector := deps.Detector
	if detector == nil {
		detector = security.NewDetector(nil)
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	var observer trace.Observer
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, detector.ExtractClientIP(r))
		TooManyRequestsError().Write(w)
	}
	if deps.Metrics != nil {
		observer = deps.Metrics
		m := deps.Metrics
		writeLimit := onLimit
		onLimit = func(w http.ResponseWriter, r *http.Request) {
			m.RateLimited()
			writeLimit(w, r)
		}
	}

	var handler http.Handler = mux
	handler = limiter.Middleware(detector.ExtractClientIP, ratelimit.Mutating, onLimit)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, detector.ExtractClientIP, observer).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
