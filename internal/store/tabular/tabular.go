// Package tabular converts expense records to and from the rows of the
// shared sheet layout: a header row followed by one row per expense.
//
// Two layouts are recognised. The plain one written by the app itself:
//
//	Fecha, Categoría, Descripción, Monto, Usuario, Pago
//
// and the one produced by form-collected sheets, which prepend a submission
// timestamp column whose header is whatever the form tool chose.
package tabular

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gastos/internal/core"
)

// Header is the fixed header written to every store this app creates.
var Header = []string{"Fecha", "Categoría", "Descripción", "Monto", "Usuario", "Pago"}

// Column identifies a field regardless of how the sheet spells its header.
type Column int

const (
	ColUnknown Column = iota
	ColTimestamp
	ColDate
	ColCategory
	ColDescription
	ColAmount
	ColPayer
	ColPayment
)

var ErrMissingColumn = errors.New("missing required column")

// headerAliases is keyed by core.FoldLabel output with trailing punctuation removed.
var headerAliases = map[string]Column{
	"marca temporal": ColTimestamp,
	"timestamp":      ColTimestamp,
	"fecha":          ColDate,
	"date":           ColDate,
	"cuando":         ColDate,
	"categoria":      ColCategory,
	"category":       ColCategory,
	"descripcion":    ColDescription,
	"description":    ColDescription,
	"nota":           ColDescription,
	"note":           ColDescription,
	"monto":          ColAmount,
	"monto ($)":      ColAmount,
	"importe":        ColAmount,
	"amount":         ColAmount,
	"usuario":        ColPayer,
	"quien pago":     ColPayer,
	"pagador":        ColPayer,
	"payer":          ColPayer,
	"pago":           ColPayment,
	"metodo de pago": ColPayment,
	"forma de pago":  ColPayment,
	"payment":        ColPayment,
	"payment method": ColPayment,
}

// Decoded is the result of reading a sheet.
type Decoded struct {
	Records []core.Expense
	// Skipped counts non-blank rows dropped because their date or amount
	// could not be parsed.
	Skipped int
	// Timestamped reports whether a submission timestamp column was found.
	Timestamped bool
}

// NormalizeHeader maps a raw header cell to a Column.
func NormalizeHeader(cell string) Column {
	key := core.FoldLabel(cell)
	if c, ok := headerAliases[key]; ok {
		return c
	}
	key = strings.TrimRightFunc(key, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return headerAliases[key]
}

// Columns resolves the header row. A seven-column sheet whose first header
// is not recognised is treated as form-collected and its first column is
// relabelled as the timestamp.
func Columns(header []string) ([]Column, error) {
	cols := make([]Column, len(header))
	seen := map[Column]bool{}
	for i, h := range header {
		c := NormalizeHeader(h)
		if c != ColUnknown && seen[c] {
			// first occurrence wins
			c = ColUnknown
		}
		cols[i] = c
		seen[c] = true
	}
	if len(cols) == len(Header)+1 && cols[0] == ColUnknown && !seen[ColTimestamp] {
		cols[0] = ColTimestamp
	}
	var missing []string
	if !seenColumn(cols, ColDate) {
		missing = append(missing, "date")
	}
	if !seenColumn(cols, ColAmount) {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s in header %v", ErrMissingColumn, strings.Join(missing, ","), header)
	}
	return cols, nil
}

func seenColumn(cols []Column, want Column) bool {
	for _, c := range cols {
		if c == want {
			return true
		}
	}
	return false
}

// Decode reads a header row and the data rows under it. An empty input is
// an empty dataset, not an error.
func Decode(rows [][]string) (Decoded, error) {
	var out Decoded
	if len(rows) == 0 {
		return out, nil
	}
	cols, err := Columns(rows[0])
	if err != nil {
		return out, err
	}
	out.Timestamped = seenColumn(cols, ColTimestamp)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		e, ok := decodeRow(cols, row)
		if !ok {
			out.Skipped++
			continue
		}
		out.Records = append(out.Records, e)
	}
	return out, nil
}

func decodeRow(cols []Column, row []string) (core.Expense, bool) {
	var (
		e                 core.Expense
		haveDate, haveAmt bool
	)
	e.Category = core.CategoryOther
	for i, c := range cols {
		if i >= len(row) {
			break
		}
		cell := strings.TrimSpace(row[i])
		switch c {
		case ColTimestamp:
			if ts, err := core.ParseTimestamp(cell); err == nil {
				e.Timestamp = ts
			}
		case ColDate:
			if d, err := core.ParseDate(cell); err == nil {
				e.Date, haveDate = d, true
			}
		case ColCategory:
			if cat, err := core.ParseCategory(cell); err == nil {
				e.Category = cat
			}
		case ColDescription:
			e.Description = cell
		case ColAmount:
			if m, err := core.ParseAmount(cell); err == nil {
				e.Amount, haveAmt = m, true
			}
		case ColPayer:
			e.Payer, _ = core.ParsePayer(cell)
		case ColPayment:
			e.Payment, _ = core.ParsePaymentMethod(cell)
		}
	}
	return e, haveDate && haveAmt
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// EncodeRow renders e in Header order.
func EncodeRow(e core.Expense) []string {
	return []string{
		e.Date.String(),
		string(e.Category),
		e.Description,
		e.Amount.String(),
		string(e.Payer),
		string(e.Payment),
	}
}

// ToStrings flattens a values matrix as returned by spreadsheet APIs.
func ToStrings(values [][]any) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strings.TrimSpace(fmt.Sprint(v))
		}
		out[i] = cells
	}
	return out
}
