package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expenses/internal/dashboard"
	"expenses/internal/live"
	applog "expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	appweb "expenses/web"
)

// UIConfig tunes the dashboard server.
type UIConfig struct {
	RateLimitPerMinute int
	// StaticMaxAge is the Cache-Control max-age for /static/ in seconds.
	StaticMaxAge int
}

// UIServer serves the dashboard page, its partials and the form actions.
// Every action maps to one dashboard.Controller operation.
type UIServer struct {
	http.Server
	ctrl      *dashboard.Controller
	hub       *live.Hub
	templates *template.Template
	logger    *applog.Logger

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// templateFuncs are available to every dashboard template.
var templateFuncs = template.FuncMap{
	// css marks a generated color value as safe for style attributes.
	"css": func(s string) template.CSS { return template.CSS(s) },
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// NewUIServer configures routes and templates. A nil hub disables /ws.
func NewUIServer(addr string, ctrl *dashboard.Controller, hub *live.Hub, cfg UIConfig, logger *applog.Logger) *UIServer {
	if logger == nil {
		logger = applog.Default(applog.ComponentUI)
	}
	logger = logger.WithComponent(applog.ComponentUI)

	detector := security.NewDetector()
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	s := &UIServer{
		ctrl:             ctrl,
		hub:              hub,
		logger:           logger,
		securityDetector: detector,
		rateLimiter:      limiter,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	t, err := parseTemplates()
	if err != nil {
		logger.Warn("Failed parsing templates",
			applog.FieldError, err,
			applog.FieldComponent, applog.ComponentTemplate)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		maxAge := cfg.StaticMaxAge
		if maxAge <= 0 {
			maxAge = 3600
		}
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(maxAge)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /ui/chart.svg", s.handleChart)
	mux.HandleFunc("POST /ui/expenses", s.handleAdd)
	mux.HandleFunc("POST /ui/filter", s.handleFilter)
	mux.HandleFunc("POST /ui/filter/clear", s.handleClearFilter)
	mux.HandleFunc("POST /ui/expenses/{id}/edit", s.handleBeginEdit)
	mux.HandleFunc("POST /ui/expenses/{id}/save", s.handleSave)
	mux.HandleFunc("POST /ui/expenses/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /ui/expenses/{id}/prompt-edit", s.handlePromptEdit)
	mux.HandleFunc("POST /ui/expenses/{id}/delete", s.handleDelete)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.ServeWS)
	}

	var handler http.Handler = mux
	handler = limiter.Middleware(detector.ExtractClientIP, http.MethodPost)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter cleanup and then the HTTP server.
// Hijacked websocket connections are closed by the hub.
func (s *UIServer) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
