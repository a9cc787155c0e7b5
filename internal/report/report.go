// Package report aggregates expense records into the dashboard summary.
// Everything here is a pure function of its inputs.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"gastos/internal/budget"
	"gastos/internal/core"
)

// Scope selects which records contribute to the totals.
type Scope int

const (
	ScopeMonth Scope = iota
	ScopeAll
)

func ParseScope(s string) Scope {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return ScopeAll
	}
	return ScopeMonth
}

func (s Scope) String() string {
	if s == ScopeAll {
		return "all"
	}
	return "month"
}

type CategoryTotal struct {
	Category core.Category
	Amount   core.Money
	Count    int
	Budget   core.Money
	// HasBudget is false when the category has no ceiling configured.
	HasBudget bool
	// Percent of the budget consumed, clamped to [0, 100].
	Percent float64
	Over    bool
}

type PaymentTotal struct {
	Method core.PaymentMethod
	Amount core.Money
	Count  int
}

// Slice is one wedge of the category pie chart. From and To are cumulative
// percentages of the total, suitable for a conic gradient.
type Slice struct {
	Category core.Category
	Amount   core.Money
	Share    float64
	From     float64
	To       float64
	Color    string
}

type Summary struct {
	Scope  Scope
	From   time.Time
	To     time.Time
	Period string

	Total      core.Money
	Count      int
	ByCategory []CategoryTotal
	ByPayment  []PaymentTotal
	TopPayment core.PaymentMethod
	Slices     []Slice
	// History holds every record regardless of scope, newest first.
	History []core.Expense

	BudgetTotal core.Money
	// Unavailable is set when the store could not be read.
	Unavailable bool
}

// Empty reports whether there is nothing to show.
func (s Summary) Empty() bool {
	return !s.Unavailable && len(s.History) == 0
}

// MonthBounds returns the first and last instant of the calendar month of t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	ref := now.With(time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC))
	return ref.BeginningOfMonth(), ref.EndOfMonth()
}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// PeriodLabel renders the month of t, e.g. "marzo 2024".
func PeriodLabel(t time.Time) string {
	return fmt.Sprintf("%s %d", monthNames[t.Month()-1], t.Year())
}

var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

// Color returns the chart color assigned to c.
func Color(c core.Category) string {
	for i, v := range core.Categories() {
		if v == c {
			return palette[i%len(palette)]
		}
	}
	return palette[len(palette)-1]
}

// Filter returns the records that fall in scope, keeping their order.
func Filter(records []core.Expense, scope Scope, at time.Time) []core.Expense {
	if scope == ScopeAll {
		return append([]core.Expense(nil), records...)
	}
	from, to := MonthBounds(at)
	out := make([]core.Expense, 0, len(records))
	for _, e := range records {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out
}

// Build computes the dashboard summary.
func Build(records []core.Expense, budgets budget.Table, scope Scope, at time.Time) Summary {
	s := Summary{Scope: scope, Period: "todo"}
	if scope == ScopeMonth {
		s.From, s.To = MonthBounds(at)
		s.Period = PeriodLabel(at)
	}
	s.History = SortHistory(records, SortDate, true)
	s.BudgetTotal = budgets.Total()

	inScope := Filter(records, scope, at)
	s.Count = len(inScope)

	byCat := map[core.Category]*CategoryTotal{}
	byPay := map[core.PaymentMethod]*PaymentTotal{}
	for _, e := range inScope {
		s.Total.Cents += e.Amount.Cents

		ct, ok := byCat[e.Category]
		if !ok {
			ct = &CategoryTotal{Category: e.Category}
			byCat[e.Category] = ct
		}
		ct.Amount.Cents += e.Amount.Cents
		ct.Count++

		pt, ok := byPay[e.Payment]
		if !ok {
			pt = &PaymentTotal{Method: e.Payment}
			byPay[e.Payment] = pt
		}
		pt.Amount.Cents += e.Amount.Cents
		pt.Count++
	}

	// Every category with spending or a budget gets a bar, in display order.
	for _, c := range core.Categories() {
		ct, spent := byCat[c]
		limit, hasBudget := budgets.For(c)
		if !spent && !hasBudget {
			continue
		}
		if !spent {
			ct = &CategoryTotal{Category: c}
		}
		ct.Budget, ct.HasBudget = limit, hasBudget
		if hasBudget {
			ct.Percent = clampPercent(float64(ct.Amount.Cents) * 100 / float64(limit.Cents))
			ct.Over = ct.Amount.Cents > limit.Cents
		}
		s.ByCategory = append(s.ByCategory, *ct)
	}

	for _, m := range core.PaymentMethods() {
		if pt, ok := byPay[m]; ok {
			s.ByPayment = append(s.ByPayment, *pt)
		}
	}
	if pt, ok := byPay[""]; ok {
		s.ByPayment = append(s.ByPayment, *pt)
	}
	s.TopPayment = topPayment(s.ByPayment)
	s.Slices = slices(s.ByCategory)
	return s
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// topPayment picks the most used method; ties go to the larger amount,
// then to the name. Records without a method never win.
func topPayment(totals []PaymentTotal) core.PaymentMethod {
	var best *PaymentTotal
	for i := range totals {
		pt := &totals[i]
		if pt.Method == "" {
			continue
		}
		switch {
		case best == nil,
			pt.Count > best.Count,
			pt.Count == best.Count && pt.Amount.Cents > best.Amount.Cents,
			pt.Count == best.Count && pt.Amount.Cents == best.Amount.Cents && pt.Method < best.Method:
			best = pt
		}
	}
	if best == nil {
		return ""
	}
	return best.Method
}

func slices(totals []CategoryTotal) []Slice {
	var positive int64
	for _, ct := range totals {
		if ct.Amount.Cents > 0 {
			positive += ct.Amount.Cents
		}
	}
	if positive == 0 {
		return nil
	}
	var out []Slice
	cursor := 0.0
	for _, ct := range totals {
		if ct.Amount.Cents <= 0 {
			continue
		}
		share := float64(ct.Amount.Cents) * 100 / float64(positive)
		out = append(out, Slice{
			Category: ct.Category,
			Amount:   ct.Amount,
			Share:    share,
			From:     cursor,
			To:       cursor + share,
			Color:    Color(ct.Category),
		})
		cursor += share
	}
	out[len(out)-1].To = 100
	return out
}
