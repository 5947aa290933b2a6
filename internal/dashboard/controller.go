// Package dashboard holds the controller that keeps the dashboard in sync
// with the REST backend: every load, filter change and mutation ends in a
// fresh fetch and a full render.
package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"expenses/internal/api"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/render"
)

// User-facing messages shown in the add form's error area.
const (
	MsgMissingFields = "Category and amount are required."
	MsgAddFailed     = "Failed to add."
)

var (
	// ErrMissingFields is returned by Add when category or amount is empty.
	// No request is sent.
	ErrMissingFields = errors.New("category and amount are required")
	// ErrEditAborted is returned by PromptEdit when every answer is empty.
	ErrEditAborted = errors.New("edit aborted")
	// ErrNotEditing is returned by Save and Cancel for rows not in Editing.
	ErrNotEditing = errors.New("row is not being edited")
	// ErrUnknownRow is returned by BeginEdit for ids not in the current view.
	ErrUnknownRow = errors.New("row not in current view")
)

// ExpenseAPI is the REST boundary. *api.Client implements it.
type ExpenseAPI interface {
	List(ctx context.Context, month string) ([]core.Expense, error)
	Create(ctx context.Context, req api.ExpenseRequest) (core.Expense, error)
	Update(ctx context.Context, id int64, req api.ExpenseRequest) (core.Expense, error)
	Delete(ctx context.Context, id int64) error
}

// RowView is a rendered row plus its edit state.
type RowView struct {
	render.Row
	State RowState
	Draft Draft
}

// Editing reports whether the row shows edit inputs.
func (r RowView) Editing() bool { return r.State == Editing }

// View is an immutable copy of everything the page shows.
type View struct {
	Rows   []RowView
	Chart  render.ChartView
	Total  string
	Form   Form
	Error  string
	Month  string
	Loaded bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithRenderHook registers fn to run after every successful render with the
// chart revision it produced.
func WithRenderHook(fn func(revision int)) Option {
	return func(c *Controller) { c.onRender = fn }
}

// Controller orchestrates fetch, render and mutations. Its mutex guards
// rendering and in-memory state and is never held across a request, so
// overlapping reloads are not sequenced: the last response applied wins.
type Controller struct {
	api      ExpenseAPI
	renderer *render.Renderer
	logger   *applog.Logger
	onRender func(revision int)

	mu       sync.Mutex
	month    string
	loaded   bool
	records  []core.Expense
	snapshot render.Snapshot
	states   map[int64]RowState
	drafts   map[int64]Draft
	form     Form
	errMsg   string
}

func NewController(client ExpenseAPI, renderer *render.Renderer, logger *applog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = applog.Default(applog.ComponentDashboard)
	}
	c := &Controller{
		api:      client,
		renderer: renderer,
		logger:   logger.WithComponent(applog.ComponentDashboard),
		states:   make(map[int64]RowState),
		drafts:   make(map[int64]Draft),
	}
	c.snapshot.Total = renderer.RenderTotal(nil)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches with the month filter ("" for none) and re-renders. The
// filter is kept only when the fetch succeeds; on failure the previous view
// and filter stay in place and the error is returned.
func (c *Controller) Load(ctx context.Context, month string) error {
	return c.fetch(ctx, strings.TrimSpace(month))
}

// Reload fetches again with the current filter.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	month := c.month
	c.mu.Unlock()
	return c.fetch(ctx, month)
}

// ClearFilter drops the month filter and reloads.
func (c *Controller) ClearFilter(ctx context.Context) error {
	return c.Load(ctx, "")
}

func (c *Controller) fetch(ctx context.Context, month string) error {
	records, err := c.api.List(ctx, month)
	if err != nil {
		c.logger.WarnContext(ctx, "Expense load failed, keeping previous view",
			applog.NewFields().
				WithOperation(applog.OpReload).
				WithMonth(month).
				WithError(err).
				ToSlice()...)
		return err
	}

	// the chart handle and the snapshot must come from the same response
	c.mu.Lock()
	snap := c.renderer.Render(records)
	c.month = month
	c.records = records
	c.snapshot = snap
	c.loaded = true
	// a reload rebuilds every row in view mode
	c.states = make(map[int64]RowState)
	c.drafts = make(map[int64]Draft)
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Dashboard rendered",
		applog.FieldMonth, month,
		applog.FieldCount, len(records),
		"revision", snap.Chart.Revision)
	if c.onRender != nil {
		c.onRender(snap.Chart.Revision)
	}
	return nil
}

// Add validates that category and amount are present, creates the expense
// and reloads. On success the form is cleared; on failure the backend's
// message (or MsgAddFailed) is shown and the inputs are kept.
func (c *Controller) Add(ctx context.Context, category, amount, date string) error {
	category = strings.TrimSpace(category)

	c.mu.Lock()
	c.errMsg = ""
	c.form = Form{Category: category, Amount: amount, Date: date}
	if category == "" || strings.TrimSpace(amount) == "" {
		c.errMsg = MsgMissingFields
		c.mu.Unlock()
		return ErrMissingFields
	}
	c.mu.Unlock()

	created, err := c.api.Create(ctx, api.NewExpenseRequest(category, strings.TrimSpace(amount), date))
	if err != nil {
		msg := MsgAddFailed
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		c.mu.Lock()
		c.errMsg = msg
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "Add expense failed",
			applog.FieldOperation, applog.OpCreate,
			applog.FieldError, err)
		return err
	}

	c.mu.Lock()
	c.form = Form{}
	c.mu.Unlock()
	c.logger.InfoContext(ctx, "Expense added",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithExpense(created.ID, created.Category, created.Amount.Cents).
			ToSlice()...)

	_ = c.Reload(ctx)
	return nil
}

// BeginEdit switches a row to Editing with inputs taken from the record as
// currently rendered.
func (c *Controller) BeginEdit(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.records {
		if e.ID != id {
			continue
		}
		c.states[id] = Editing
		c.drafts[id] = Draft{Category: e.Category, Amount: e.Amount.String(), Date: e.DateString()}
		return nil
	}
	return ErrUnknownRow
}

// Save sends a full replacement of the row and reloads. Whatever the
// backend answers, the row ends in Viewing. The update error, if any, is
// returned after the reload.
func (c *Controller) Save(ctx context.Context, id int64, category, amount, date string) error {
	draft := Draft{Category: strings.TrimSpace(category), Amount: strings.TrimSpace(amount), Date: strings.TrimSpace(date)}
	if err := c.transition(id, Editing, Saving, &draft); err != nil {
		return err
	}

	_, err := c.api.Update(ctx, id, api.NewExpenseRequest(draft.Category, draft.Amount, draft.Date))
	if err != nil {
		c.logger.WarnContext(ctx, "Update expense failed",
			applog.FieldOperation, applog.OpUpdate,
			applog.FieldExpenseID, id,
			applog.FieldError, err)
	}

	c.finish(ctx, id)
	return err
}

// Cancel discards the row's inputs and reloads without sending anything.
func (c *Controller) Cancel(ctx context.Context, id int64) error {
	if err := c.transition(id, Editing, Cancelled, nil); err != nil {
		return err
	}
	c.finish(ctx, id)
	return nil
}

// PromptEdit is the prompt-style edit: the three answers are sent as given,
// empty strings included. Only when all three are empty is the edit aborted
// without a request.
func (c *Controller) PromptEdit(ctx context.Context, id int64, category, amount, date string) error {
	if category == "" && amount == "" && date == "" {
		return ErrEditAborted
	}

	req := api.ExpenseRequest{Category: category, Amount: api.Amount(amount), Date: &date}
	_, err := c.api.Update(ctx, id, req)
	if err != nil {
		c.logger.WarnContext(ctx, "Prompt edit failed",
			applog.FieldOperation, applog.OpUpdate,
			applog.FieldExpenseID, id,
			applog.FieldError, err)
	}
	_ = c.Reload(ctx)
	return err
}

// Remove deletes the expense and reloads unconditionally.
func (c *Controller) Remove(ctx context.Context, id int64) error {
	err := c.api.Delete(ctx, id)
	if err != nil {
		c.logger.WarnContext(ctx, "Delete expense failed",
			applog.FieldOperation, applog.OpDelete,
			applog.FieldExpenseID, id,
			applog.FieldError, err)
	}
	_ = c.Reload(ctx)
	return err
}

// State returns the edit state of a row.
func (c *Controller) State(id int64) RowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[id]
}

func (c *Controller) transition(id int64, from, to RowState, draft *Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states[id] != from {
		return ErrNotEditing
	}
	c.states[id] = to
	if draft != nil {
		c.drafts[id] = *draft
	} else {
		delete(c.drafts, id)
	}
	return nil
}

// finish reloads and forces the row back to Viewing even when the reload
// failed and the old view stays.
func (c *Controller) finish(ctx context.Context, id int64) {
	_ = c.Reload(ctx)
	c.mu.Lock()
	delete(c.states, id)
	delete(c.drafts, id)
	c.mu.Unlock()
}

// View returns a copy of the current view model.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([]RowView, len(c.snapshot.Rows))
	for i, r := range c.snapshot.Rows {
		rows[i] = RowView{Row: r, State: c.states[r.ID], Draft: c.drafts[r.ID]}
	}
	return View{
		Rows:   rows,
		Chart:  c.snapshot.Chart,
		Total:  c.snapshot.Total,
		Form:   c.form,
		Error:  c.errMsg,
		Month:  c.month,
		Loaded: c.loaded,
	}
}

// Chart returns the renderer's chart handle, nil before the first load.
func (c *Controller) Chart() *render.Chart {
	return c.renderer.Chart()
}
