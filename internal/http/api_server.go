package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/services"
)

// ExpenseService is the store-facing side of the REST API.
// *services.ExpenseService implements it.
type ExpenseService interface {
	ListExpenses(ctx context.Context, month string) ([]core.Expense, error)
	CreateExpense(ctx context.Context, in services.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, in services.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	CacheSize() int
	Metrics() services.Metrics
}

// APIConfig tunes the API middleware.
type APIConfig struct {
	RateLimitPerMinute int
}

// APIServer serves the /api/expenses contract plus health and metrics.
type APIServer struct {
	http.Server
	service ExpenseService
	logger  *applog.Logger
	started time.Time

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// NewAPIServer configures routes and middleware, returning a ready-to-run server.
func NewAPIServer(addr string, service ExpenseService, cfg APIConfig, logger *applog.Logger) *APIServer {
	if logger == nil {
		logger = applog.Default(applog.ComponentAPI)
	}
	logger = logger.WithComponent(applog.ComponentAPI)

	detector := security.NewDetector()
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})

	s := &APIServer{
		service:          service,
		logger:           logger,
		started:          time.Now(),
		securityDetector: detector,
		rateLimiter:      limiter,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = limiter.Middleware(detector.ExtractClientIP, http.MethodPost, http.MethodPut, http.MethodDelete)(handler)
	handler = security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter cleanup and then the HTTP server.
func (s *APIServer) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
