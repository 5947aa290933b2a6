package http

import (
	"bytes"
	"errors"
	"net/http"

	"expenses/internal/api"
	"expenses/internal/dashboard"
	applog "expenses/internal/log"
)

// pageData is what index.html and the dashboard partial render.
type pageData struct {
	dashboard.View
	LiveReload bool
}

// isPartialRequest reports whether the dashboard script issued the request
// and expects the partial back instead of a redirect.
func isPartialRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func (s *UIServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	// Opening the page always fetches; a failure leaves the previous view.
	_ = s.ctrl.Reload(r.Context())

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", s.pageData()); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", applog.FieldError, err, "template", "index.html")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *UIServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.writeDashboard(w, r, nil)
}

func (s *UIServer) handleChart(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	chart := s.ctrl.Chart()
	if chart == nil {
		buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="480" height="480"></svg>`)
	} else if err := chart.SVG(&buf); err != nil {
		s.logger.ErrorContext(r.Context(), "Chart render failed",
			applog.FieldOperation, applog.OpRender,
			applog.FieldError, err)
		http.Error(w, "chart unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *UIServer) handleAdd(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	err := s.ctrl.Add(r.Context(), p.Get("category"), p.Get("amount"), p.Get("date"))
	b := NewHTMXResponse()
	if err == nil {
		b.TriggerFormReset()
	}
	// Add reports its failures in the form's error area, not as a toast.
	s.writeDashboard(w, r, b)
}

func (s *UIServer) handleFilter(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	_ = s.ctrl.Load(r.Context(), p.Get("month"))
	s.writeDashboard(w, r, nil)
}

func (s *UIServer) handleClearFilter(w http.ResponseWriter, r *http.Request) {
	_ = s.ctrl.ClearFilter(r.Context())
	s.writeDashboard(w, r, nil)
}

func (s *UIServer) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.expenseID(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.BeginEdit(id); err != nil {
		NotFoundError("Expense is not in the current list.").Write(w)
		return
	}
	s.writeDashboard(w, r, nil)
}

func (s *UIServer) handleSave(w http.ResponseWriter, r *http.Request) {
	id, ok := s.expenseID(w, r)
	if !ok {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	err := s.ctrl.Save(r.Context(), id, p.Get("category"), p.Get("amount"), p.Get("date"))
	if errors.Is(err, dashboard.ErrNotEditing) {
		ErrorResponse(http.StatusConflict, "Expense is not being edited.").Write(w)
		return
	}
	s.writeDashboard(w, r, mutationResult(err))
}

func (s *UIServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.expenseID(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.Cancel(r.Context(), id); err != nil {
		ErrorResponse(http.StatusConflict, "Expense is not being edited.").Write(w)
		return
	}
	s.writeDashboard(w, r, nil)
}

func (s *UIServer) handlePromptEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.expenseID(w, r)
	if !ok {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	err := s.ctrl.PromptEdit(r.Context(), id, p.Value("category"), p.Value("amount"), p.Value("date"))
	if errors.Is(err, dashboard.ErrEditAborted) {
		err = nil
	}
	s.writeDashboard(w, r, mutationResult(err))
}

func (s *UIServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.expenseID(w, r)
	if !ok {
		return
	}
	err := s.ctrl.Remove(r.Context(), id)
	s.writeDashboard(w, r, mutationResult(err))
}

func (s *UIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// mutationResult turns an edit or delete failure into an error toast. The
// view has already been reloaded by the controller.
func mutationResult(err error) *HTMXResponseBuilder {
	b := NewHTMXResponse()
	if err == nil {
		return b
	}
	msg := "Request failed."
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return b.TriggerErrorNotification(msg)
}

func (s *UIServer) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return nil, false
	}
	return p, true
}

func (s *UIServer) expenseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := ParseExpenseID(r)
	if err != nil {
		NotFoundError("Unknown expense.").Write(w)
		return 0, false
	}
	return id, true
}

func (s *UIServer) pageData() pageData {
	return pageData{View: s.ctrl.View(), LiveReload: s.hub != nil}
}

// writeDashboard answers an action. Script requests get the re-rendered
// partial with HX-Trigger events; plain form posts are redirected to the
// page.
func (s *UIServer) writeDashboard(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder) {
	if r.Method != http.MethodGet && !isPartialRequest(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if s.templates == nil {
		InternalServerError("templates not loaded").Write(w)
		return
	}

	data := s.pageData()
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard template execution failed", applog.FieldError, err, "template", "dashboard")
		InternalServerError("Error rendering dashboard").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.TriggerExpensesChanged(data.Month, data.Chart.Revision).
		BodyHTML(buf.Bytes()).
		Write(w)
}
