// Package budget holds the static monthly ceiling per category. Budgets are
// only compared against spending for display; nothing is enforced.
package budget

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"gastos/internal/core"
)

// Table maps a category to its monthly ceiling. A zero ceiling means the
// category has no budget.
type Table map[core.Category]core.Money

// Default returns the built-in ceilings.
func Default() Table {
	return Table{
		core.CategoryGroceries: {Cents: 800000},
		core.CategoryHousing:   {Cents: 1500000},
		core.CategoryUtilities: {Cents: 300000},
		core.CategoryTransport: {Cents: 300000},
		core.CategoryEatingOut: {Cents: 250000},
		core.CategoryHealth:    {Cents: 200000},
		core.CategoryEducation: {Cents: 400000},
		core.CategoryInsurance: {Cents: 200000},
		core.CategoryLeisure:   {Cents: 200000},
		core.CategoryOther:     {Cents: 150000},
	}
}

type file struct {
	Budgets map[string]string `yaml:"budgets"`
}

// Load reads a YAML file of the form
//
//	budgets:
//	  Súper: 8000
//	  Comida fuera: "2,500.00"
//
// on top of the defaults. A missing file yields the defaults.
func Load(path string) (Table, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading budget file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing budget yaml: %w", err)
	}
	for label, amount := range f.Budgets {
		cat, err := core.ParseCategory(label)
		if err != nil {
			return nil, fmt.Errorf("budget %q: %w", label, err)
		}
		m, err := core.ParseAmount(amount)
		if err != nil || m.Cents < 0 {
			return nil, fmt.Errorf("budget %q: %w", label, core.ErrInvalidAmount)
		}
		t[cat] = m
	}
	return t, nil
}

// For returns the ceiling of c and whether one is set.
func (t Table) For(c core.Category) (core.Money, bool) {
	m, ok := t[c]
	return m, ok && m.Cents > 0
}

// Total is the sum of all ceilings.
func (t Table) Total() core.Money {
	var sum int64
	for _, m := range t {
		sum += m.Cents
	}
	return core.Money{Cents: sum}
}

// Line is one row of the table in category display order.
type Line struct {
	Category core.Category
	Limit    core.Money
}

func (t Table) Lines() []Line {
	out := make([]Line, 0, len(t))
	order := map[core.Category]int{}
	for i, c := range core.Categories() {
		order[c] = i
	}
	for c, m := range t {
		out = append(out, Line{Category: c, Limit: m})
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].Category] < order[out[j].Category] })
	return out
}
