package report

import (
	"sort"
	"strings"

	"gastos/internal/core"
)

// SortKey names a sortable history column.
type SortKey string

const (
	SortDate     SortKey = "date"
	SortAmount   SortKey = "amount"
	SortCategory SortKey = "category"
	SortPayer    SortKey = "payer"
	SortPayment  SortKey = "payment"
)

func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortAmount, SortCategory, SortPayer, SortPayment:
		return k
	default:
		return SortDate
	}
}

// SortHistory returns a sorted copy. Records that compare equal keep the
// order they were stored in when ascending and the reverse when descending,
// so "newest first" also holds within a single day.
func SortHistory(records []core.Expense, key SortKey, desc bool) []core.Expense {
	out := make([]core.Expense, len(records))
	if desc {
		for i, e := range records {
			out[len(records)-1-i] = e
		}
	} else {
		copy(out, records)
	}
	less := lessFunc(key)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func lessFunc(key SortKey) func(a, b core.Expense) bool {
	switch key {
	case SortAmount:
		return func(a, b core.Expense) bool { return a.Amount.Cents < b.Amount.Cents }
	case SortCategory:
		return func(a, b core.Expense) bool {
			return core.FoldLabel(string(a.Category)) < core.FoldLabel(string(b.Category))
		}
	case SortPayer:
		return func(a, b core.Expense) bool { return a.Payer < b.Payer }
	case SortPayment:
		return func(a, b core.Expense) bool {
			return core.FoldLabel(string(a.Payment)) < core.FoldLabel(string(b.Payment))
		}
	default:
		return func(a, b core.Expense) bool {
			if !a.Date.Equal(b.Date.Time) {
				return a.Date.Before(b.Date.Time)
			}
			return a.Timestamp.Before(b.Timestamp)
		}
	}
}
