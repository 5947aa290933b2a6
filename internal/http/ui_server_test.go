package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"expenses/internal/api"
	"expenses/internal/core"
	"expenses/internal/dashboard"
	"expenses/internal/render"
)

// newTestUI wires the dashboard to a real API server over HTTP.
func newTestUI(t *testing.T, seed []core.Expense) *UIServer {
	t.Helper()
	backend := newTestAPI(t, APIConfig{}, seed)
	ts := httptest.NewServer(backend.Handler)
	t.Cleanup(ts.Close)

	ctrl := dashboard.NewController(api.NewClient(ts.URL, 5*time.Second, nil), render.NewRenderer(), nil)
	if err := ctrl.Load(context.Background(), ""); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	ui := NewUIServer(":0", ctrl, nil, UIConfig{}, nil)
	t.Cleanup(ui.rateLimiter.Stop)
	return ui
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values, partial bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if partial {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q\n%s", want, body)
		}
	}
}

func TestUIIndexRendersAllViews(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	rr := get(t, ui.Handler, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	assertContains(t, rr.Body.String(),
		"Total: 20.00",
		`<span class="category">Food</span>`,
		`<span class="amount">12.50</span>`,
		`<span class="date">2024-01-05</span>`,
		`/ui/chart.svg?rev=`,
		"Food: 20.00",
		"hsl(0, 70%, 60%)",
	)
	if strings.Contains(rr.Body.String(), "data-live") {
		t.Errorf("live reload attribute present without a hub")
	}
}

func TestUIAddExpense(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	rr := postForm(t, ui.Handler, "/ui/expenses", url.Values{"category": {" Rent "}, "amount": {"500"}, "date": {"2024-02-01"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	assertContains(t, rr.Body.String(), "Total: 520.00", `<span class="category">Rent</span>`)
	assertContains(t, rr.Header().Get("HX-Trigger"), TriggerFormReset, TriggerExpensesChanged)
	if strings.Contains(rr.Body.String(), `value="Rent"`) {
		t.Errorf("form inputs not cleared")
	}
}

func TestUIAddRequiresFields(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	rr := postForm(t, ui.Handler, "/ui/expenses", url.Values{"category": {"Food"}, "amount": {""}}, true)
	assertContains(t, rr.Body.String(), "Category and amount are required.", "Total: 20.00", `value="Food"`)
	if strings.Contains(rr.Header().Get("HX-Trigger"), TriggerFormReset) {
		t.Errorf("form reset on validation failure")
	}
}

func TestUIAddShowsBackendError(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	rr := postForm(t, ui.Handler, "/ui/expenses", url.Values{"category": {"Food"}, "amount": {"abc"}}, true)
	assertContains(t, rr.Body.String(), `<div class="error" id="add-error">Invalid amount</div>`)
}

func TestUIPlainFormPostRedirects(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	rr := postForm(t, ui.Handler, "/ui/expenses", url.Values{"category": {"Rent"}, "amount": {"5"}}, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("status = %d location = %q", rr.Code, rr.Header().Get("Location"))
	}
	assertContains(t, get(t, ui.Handler, "/").Body.String(), "Total: 25.00")
}

func TestUIEditSaveCancel(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	rr := postForm(t, ui.Handler, "/ui/expenses/1/edit", nil, true)
	assertContains(t, rr.Body.String(), `action="/ui/expenses/1/save"`, `value="12.50"`)

	rr = postForm(t, ui.Handler, "/ui/expenses/1/save", url.Values{"category": {"Food"}, "amount": {"15"}, "date": {"2024-01-05"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("save status = %d", rr.Code)
	}
	assertContains(t, rr.Body.String(), "Total: 22.50")
	if strings.Contains(rr.Body.String(), `action="/ui/expenses/1/save"`) {
		t.Errorf("row still in edit mode after save")
	}

	rr = postForm(t, ui.Handler, "/ui/expenses/1/save", url.Values{"category": {"Food"}, "amount": {"1"}}, true)
	if rr.Code != http.StatusConflict {
		t.Errorf("save without edit status = %d, want 409", rr.Code)
	}

	postForm(t, ui.Handler, "/ui/expenses/2/edit", nil, true)
	rr = postForm(t, ui.Handler, "/ui/expenses/2/cancel", nil, true)
	assertContains(t, rr.Body.String(), "Total: 22.50")
	if strings.Contains(rr.Body.String(), `action="/ui/expenses/2/save"`) {
		t.Errorf("row still in edit mode after cancel")
	}

	rr = postForm(t, ui.Handler, "/ui/expenses/99/edit", nil, true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("edit unknown row status = %d, want 404", rr.Code)
	}
}

func TestUIPromptEdit(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/ui/expenses/1/prompt-edit", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("HX-Request", "true")
		rr := httptest.NewRecorder()
		ui.Handler.ServeHTTP(rr, req)
		return rr
	}

	rr := send(`{"category":"Groceries","amount":"15","date":"2024-01-05"}`)
	assertContains(t, rr.Body.String(), "Total: 22.50", "Groceries")

	rr = send(`{"category":"Food","amount":"","date":""}`)
	assertContains(t, rr.Header().Get("HX-Trigger"), TriggerNotification, "Invalid amount")
	assertContains(t, rr.Body.String(), "Total: 22.50")

	rr = send(`{"category":"","amount":"","date":""}`)
	if strings.Contains(rr.Header().Get("HX-Trigger"), TriggerNotification) {
		t.Errorf("aborted prompt edit raised a notification")
	}
}

func TestUIPromptEditFormValues(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	rr := postForm(t, ui.Handler, "/ui/expenses/1/prompt-edit",
		url.Values{"category": {"Groceries"}, "amount": {"15"}, "date": {""}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	assertContains(t, rr.Body.String(), "Total: 22.50", "Groceries")

	rr = postForm(t, ui.Handler, "/ui/expenses/1/prompt-edit",
		url.Values{"category": {"Food"}, "amount": {""}, "date": {""}}, true)
	assertContains(t, rr.Header().Get("HX-Trigger"), "Invalid amount")
}

func TestUIPageLoadsHtmx(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	rr := get(t, ui.Handler, "/")
	assertContains(t, rr.Body.String(),
		`src="https://unpkg.com/htmx.org@`,
		`hx-target="#dashboard"`,
		`hx-post="/ui/expenses"`,
		`hx-post="/ui/expenses/1/delete"`,
		`data-prompt-edit="/ui/expenses/1/prompt-edit"`,
	)
	assertContains(t, rr.Header().Get("Content-Security-Policy"), "script-src 'self' https://unpkg.com")
}

func TestUIDelete(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	rr := postForm(t, ui.Handler, "/ui/expenses/1/delete", nil, true)
	assertContains(t, rr.Body.String(), "Total: 7.50")
	if strings.Contains(rr.Body.String(), `data-id="1"`) {
		t.Errorf("deleted row still listed")
	}

	rr = postForm(t, ui.Handler, "/ui/expenses/1/delete", nil, true)
	assertContains(t, rr.Header().Get("HX-Trigger"), "expense not found")
}

func TestUIFilter(t *testing.T) {
	ui := newTestUI(t, append(foodSeed(),
		core.Expense{Category: "Rent", Amount: core.Money{Cents: 50000}, Date: seedDate("2024-02-01")},
	))

	rr := postForm(t, ui.Handler, "/ui/filter", url.Values{"month": {"2024-02"}}, true)
	assertContains(t, rr.Body.String(), "Total: 500.00", `value="2024-02"`)

	rr = postForm(t, ui.Handler, "/ui/filter", url.Values{"month": {"2099-01"}}, true)
	assertContains(t, rr.Body.String(), "Total: 0.00", "No expenses yet.", "Nothing to chart.")

	rr = postForm(t, ui.Handler, "/ui/filter/clear", nil, true)
	assertContains(t, rr.Body.String(), "Total: 520.00")
}

func TestUIEscapesCategory(t *testing.T) {
	ui := newTestUI(t, []core.Expense{
		{Category: "<b>bold</b>", Amount: core.Money{Cents: 100}, Date: seedDate("2024-01-01")},
	})

	body := get(t, ui.Handler, "/").Body.String()
	if strings.Contains(body, "<b>bold</b>") {
		t.Errorf("category rendered unescaped")
	}
	assertContains(t, body, "&lt;b&gt;bold&lt;/b&gt;")
}

func TestUIChartSVG(t *testing.T) {
	ui := newTestUI(t, foodSeed())

	rr := get(t, ui.Handler, "/ui/chart.svg")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	assertContains(t, rr.Body.String(), "<svg")
}

func TestUIStaticAndHealth(t *testing.T) {
	ui := newTestUI(t, nil)

	for _, path := range []string{"/static/style.css", "/static/live.js", "/healthz", "/ui/dashboard"} {
		if rr := get(t, ui.Handler, path); rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
	if rr := get(t, ui.Handler, "/nope"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rr.Code)
	}
}

func TestUIStaleViewWhenBackendDown(t *testing.T) {
	backend := newTestAPI(t, APIConfig{}, foodSeed())
	ts := httptest.NewServer(backend.Handler)

	ctrl := dashboard.NewController(api.NewClient(ts.URL, time.Second, nil), render.NewRenderer(), nil)
	if err := ctrl.Load(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	ui := NewUIServer(":0", ctrl, nil, UIConfig{}, nil)
	t.Cleanup(ui.rateLimiter.Stop)

	ts.Close()
	rr := get(t, ui.Handler, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	assertContains(t, rr.Body.String(), "Total: 20.00")
}
