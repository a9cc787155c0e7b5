package http

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/report"
)

type budgetBar struct {
	report.CategoryTotal
	Style template.CSS
}

type legendEntry struct {
	report.Slice
	Swatch template.CSS
}

type historyColumn struct {
	Label  string
	Query  string
	Active bool
	Desc   bool
}

type summaryView struct {
	report.Summary
	Params SummaryParams

	// Query reloads the partial as it is; MonthQuery and AllQuery switch scope.
	Query      string
	MonthQuery string
	AllQuery   string

	Bars     []budgetBar
	Legend   []legendEntry
	PieStyle template.CSS
	Columns  []historyColumn
	Rows     []core.Expense
}

var historyColumns = []struct {
	label string
	key   report.SortKey
}{
	{"Fecha", report.SortDate},
	{"Categoría", report.SortCategory},
	{"Monto", report.SortAmount},
	{"Quién pagó", report.SortPayer},
	{"Método de pago", report.SortPayment},
}

func newSummaryView(sum report.Summary, params SummaryParams) summaryView {
	v := summaryView{
		Summary:    sum,
		Params:     params,
		Query:      params.Query(),
		MonthQuery: params.WithScope(report.ScopeMonth).Query(),
		AllQuery:   params.WithScope(report.ScopeAll).Query(),
		PieStyle:   conicGradient(sum.Slices),
		Rows:       report.SortHistory(chronological(sum.History), params.Sort, params.Desc),
	}
	for _, ct := range sum.ByCategory {
		v.Bars = append(v.Bars, budgetBar{CategoryTotal: ct, Style: barStyle(ct.Percent)})
	}
	for _, sl := range sum.Slices {
		v.Legend = append(v.Legend, legendEntry{Slice: sl, Swatch: swatchStyle(sl.Color)})
	}
	for _, c := range historyColumns {
		v.Columns = append(v.Columns, historyColumn{
			Label:  c.label,
			Query:  params.SortedBy(c.key).Query(),
			Active: params.Sort == c.key,
			Desc:   params.Desc,
		})
	}
	return v
}

// chronological turns the newest-first history back into oldest-first, the
// order SortHistory expects so that ties stay in recording order.
func chronological(history []core.Expense) []core.Expense {
	out := make([]core.Expense, len(history))
	for i, e := range history {
		out[len(history)-1-i] = e
	}
	return out
}

// handleSummary renders the dashboard partial. A store that cannot be read
// still yields a 200 with a placeholder; the error is logged by the
// reporter.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())
	params := ParseSummaryParams(r.URL.Query())

	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()
	sum := s.reporter.Summary(ctx, params.Scope, s.now().In(s.locationOrLocal()))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="dashboard" class="dashboard"><p class="placeholder">Total: ` +
			template.HTMLEscapeString(sum.Total.Display()) + `</p></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "summary.html", newSummaryView(sum, params)); err != nil {
		logger.ErrorContext(r.Context(), "Template execution error",
			applog.FieldError, err,
			"template", "summary.html",
			applog.FieldScope, params.Scope.String())
		_, _ = w.Write([]byte(`<section id="dashboard" class="dashboard"><p class="placeholder">No se pudo mostrar el resumen.</p></section>`))
	}
}

func (s *Server) locationOrLocal() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.Local
}
