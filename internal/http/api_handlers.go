package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"expenses/internal/api"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/services"
	"expenses/internal/storage"
)

// Error bodies of the REST contract.
const (
	msgInvalidMonth  = "invalid month"
	msgInvalidAmount = "Invalid amount"
	msgNotFound      = "expense not found"
	msgInvalidBody   = "invalid JSON body"
	msgInternal      = "internal error"
)

func (s *APIServer) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	month := ParseMonthParam(r.URL.Query())
	items, err := s.service.ListExpenses(r.Context(), month)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}

	out := make([]api.Expense, 0, len(items))
	for _, e := range items {
		out = append(out, api.FromCore(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *APIServer) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeInput(w, r)
	if !ok {
		return
	}
	created, err := s.service.CreateExpense(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.FromCore(created))
}

func (s *APIServer) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	in, ok := s.decodeInput(w, r)
	if !ok {
		return
	}
	updated, err := s.service.UpdateExpense(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromCore(updated))
}

func (s *APIServer) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := s.service.DeleteExpense(r.Context(), id); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, api.MessageBody{Message: "deleted"})
}

func (s *APIServer) decodeInput(w http.ResponseWriter, r *http.Request) (services.ExpenseInput, bool) {
	var in services.ExpenseInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid request body",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeValidation)
		writeJSONError(w, http.StatusBadRequest, msgInvalidBody)
		return in, false
	}
	return in, true
}

// writeServiceError maps service errors onto the contract's status codes and
// bodies. Anything unrecognized is logged and reported as a 500.
func (s *APIServer) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := applog.FromContext(r.Context())
	switch {
	case errors.Is(err, core.ErrInvalidMonth):
		writeJSONError(w, http.StatusBadRequest, msgInvalidMonth)
	case errors.Is(err, core.ErrInvalidAmount):
		writeJSONError(w, http.StatusBadRequest, msgInvalidAmount)
	case errors.Is(err, core.ErrEmptyCategory), errors.Is(err, core.ErrCategoryTooLong):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, msgNotFound)
	default:
		logger.ErrorContext(r.Context(), "Expense operation failed",
			applog.NewFields().
				WithOperation(op).
				WithError(err).
				ToSlice()...)
		writeJSONError(w, http.StatusInternalServerError, msgInternal)
	}
}

// handleHealth performs basic liveness check
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *APIServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if err := s.service.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]interface{}{
		"list_entries": s.service.CacheSize(),
		"status":       "ok",
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *APIServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	app := s.service.Metrics()

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_errors_total", "Total number of HTTP responses with status >= 400", traceMetrics.TotalErrors)
	gauge("http_response_time_avg_microseconds", "Average response time", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP expenses_mutations_total Expense mutations by kind\n")
	fmt.Fprintf(w, "# TYPE expenses_mutations_total counter\n")
	fmt.Fprintf(w, "expenses_mutations_total{kind=\"create\"} %d\n", app.Created)
	fmt.Fprintf(w, "expenses_mutations_total{kind=\"update\"} %d\n", app.Updated)
	fmt.Fprintf(w, "expenses_mutations_total{kind=\"delete\"} %d\n\n", app.Deleted)

	counter("cache_hits_total", "Total list cache hits", app.CacheHits)
	counter("cache_misses_total", "Total list cache misses", app.CacheMisses)
	gauge("cache_entries", "Current list cache entries", int64(s.service.CacheSize()))
	counter("publish_errors_total", "Change notifications that failed to publish", app.PublishErrors)

	counter("rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("blocked_requests_total", "Total requests blocked by the detector", securityMetrics.BlockedRequests)

	gauge("uptime_seconds", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}
