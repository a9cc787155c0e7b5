package http

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/report"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// templateFuncs are available to every page and partial.
var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.Display() },
	"percent": func(p float64) string {
		return fmt.Sprintf("%.0f%%", p)
	},
	"isoDate": func(d core.Date) string { return d.String() },
	"shortDate": func(d core.Date) string {
		if d.IsZero() {
			return ""
		}
		return d.Format("02/01/2006")
	},
}

// conicGradient draws the category pie as a CSS background.
func conicGradient(slices []report.Slice) template.CSS {
	if len(slices) == 0 {
		return ""
	}
	parts := make([]string, 0, len(slices))
	for _, s := range slices {
		parts = append(parts, fmt.Sprintf("%s %.2f%% %.2f%%", s.Color, s.From, s.To))
	}
	return template.CSS("background: conic-gradient(" + strings.Join(parts, ", ") + ")")
}

// barStyle sizes a budget bar; anything visible gets at least a sliver.
func barStyle(percent float64) template.CSS {
	if percent > 0 && percent < 2 {
		percent = 2
	}
	return template.CSS(fmt.Sprintf("width: %.1f%%", percent))
}

func swatchStyle(color string) template.CSS {
	return template.CSS("background: " + color)
}

// today returns the calendar day of now in loc.
func today(now time.Time, loc *time.Location) core.Date {
	if loc != nil {
		now = now.In(loc)
	}
	return core.DateOf(now)
}
