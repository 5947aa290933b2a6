// Package render turns a list of expenses into the dashboard's three views:
// the list rows, the category pie chart and the total line.
package render

import (
	"sync"

	"expenses/internal/core"
)

// Row is one list entry. ID drives the row's action routes.
type Row struct {
	ID       int64
	Category string
	Date     string
	Amount   string
	Color    Color
}

// Snapshot holds all three views produced from one record list.
type Snapshot struct {
	Rows  []Row
	Chart ChartView
	Total string
}

// Renderer owns the category color map and the chart handle. Both live as
// long as the Renderer; colors are only ever added.
type Renderer struct {
	mu     sync.Mutex
	colors map[string]Color
	chart  *Chart
}

func NewRenderer() *Renderer {
	return &Renderer{colors: make(map[string]Color)}
}

// Color returns the memoized color for category, assigning the next hue in
// the rotation on first sight.
func (r *Renderer) Color(category string) Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.colorLocked(category)
}

func (r *Renderer) colorLocked(category string) Color {
	if c, ok := r.colors[category]; ok {
		return c
	}
	c := Color{Hue: (len(r.colors) * HueStep) % 360}
	r.colors[category] = c
	return c
}

// RenderList returns one row per record in input order.
func (r *Renderer) RenderList(records []core.Expense) []Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]Row, len(records))
	for i, e := range records {
		rows[i] = Row{
			ID:       e.ID,
			Category: e.Category,
			Date:     e.DateString(),
			Amount:   e.Amount.String(),
			Color:    r.colorLocked(e.Category),
		}
	}
	return rows
}

// RenderChart groups records by category and updates the chart handle,
// creating it on the first call.
func (r *Renderer) RenderChart(records []core.Expense) *Chart {
	r.mu.Lock()
	groups := core.GroupByCategory(records)
	slices := make([]Slice, len(groups))
	for i, g := range groups {
		slices[i] = Slice{Label: g.Name, Amount: g.Amount, Color: r.colorLocked(g.Name)}
	}
	if r.chart == nil {
		r.chart = newChart()
	}
	c := r.chart
	r.mu.Unlock()

	c.update(slices)
	return c
}

// Chart returns the chart handle, or nil before the first RenderChart.
func (r *Renderer) Chart() *Chart {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chart
}

// RenderTotal formats the sum of all amounts, e.g. "Total: 20.00".
func (r *Renderer) RenderTotal(records []core.Expense) string {
	return "Total: " + core.Total(records).String()
}

// Render produces all three views in one pass.
func (r *Renderer) Render(records []core.Expense) Snapshot {
	rows := r.RenderList(records)
	chart := r.RenderChart(records)
	return Snapshot{
		Rows:  rows,
		Chart: chart.View(),
		Total: r.RenderTotal(records),
	}
}
