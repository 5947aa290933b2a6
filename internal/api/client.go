// Package api is the dashboard's client for the /api/expenses REST contract.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

const expensesPath = "/api/expenses"

// Error is a non-success response. Message holds the backend's "error"
// field and is empty when the body carried none.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Client talks to the expense REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *applog.Logger
}

// NewClient creates a client for baseURL (e.g. "http://localhost:8081").
// timeout bounds every request on top of the caller's context.
func NewClient(baseURL string, timeout time.Duration, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.Default(applog.ComponentAPI)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithComponent(applog.ComponentAPI),
	}
}

// List fetches the collection, constrained to month when it is not empty.
// The month string is passed through for the backend to interpret.
func (c *Client) List(ctx context.Context, month string) ([]core.Expense, error) {
	path := expensesPath
	if month != "" {
		path += "?month=" + url.QueryEscape(month)
	}

	var wire []Expense
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]core.Expense, len(wire))
	for i, e := range wire {
		rec, err := e.ToCore()
		if err != nil {
			c.logger.WarnContext(ctx, "Backend returned an invalid expense",
				applog.FieldOperation, applog.OpList,
				applog.FieldExpenseID, e.ID,
				applog.FieldError, err)
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		out[i] = rec
	}
	return out, nil
}

// Create sends POST /api/expenses.
func (c *Client) Create(ctx context.Context, req ExpenseRequest) (core.Expense, error) {
	var created Expense
	if err := c.do(ctx, http.MethodPost, expensesPath, req, &created); err != nil {
		return core.Expense{}, err
	}
	return created.ToCore()
}

// Update sends PUT /api/expenses/{id} with a full replacement.
func (c *Client) Update(ctx context.Context, id int64, req ExpenseRequest) (core.Expense, error) {
	var updated Expense
	if err := c.do(ctx, http.MethodPut, expensePath(id), req, &updated); err != nil {
		return core.Expense{}, err
	}
	return updated.ToCore()
}

// Delete sends DELETE /api/expenses/{id}.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, expensePath(id), nil, nil)
}

func expensePath(id int64) string {
	return expensesPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "API request failed",
			applog.FieldMethod, method,
			applog.FieldPath, path,
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeNetwork)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API request completed",
		applog.FieldMethod, method,
		applog.FieldPath, path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var eb ErrorBody
		if data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(data, &eb) == nil {
			apiErr.Message = eb.Error
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
