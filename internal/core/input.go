package core

import "strings"

// ExpenseInput is an expense as typed by a person, before parsing. The web
// form keeps it around to render the values back when a write fails.
type ExpenseInput struct {
	Date     string
	Amount   string
	Category string
	Payer    string
	Payment  string
	Note     string
}

// Expense converts the input into a candidate record. An empty date means
// today. Errors wrap the package sentinels.
func (in ExpenseInput) Expense(today Date) (Expense, error) {
	e := Expense{Date: today, Description: NormalizeNote(in.Note)}
	if strings.TrimSpace(in.Date) != "" {
		d, err := ParseDate(in.Date)
		if err != nil {
			return Expense{}, err
		}
		e.Date = d
	}

	cents, err := ParseDecimalToCents(in.Amount)
	if err != nil {
		return Expense{}, err
	}
	e.Amount = Money{Cents: cents}

	if e.Category, err = ParseCategory(in.Category); err != nil {
		return Expense{}, err
	}
	if e.Payer, err = ParsePayer(in.Payer); err != nil {
		return Expense{}, err
	}
	if e.Payment, err = ParsePaymentMethod(in.Payment); err != nil {
		return Expense{}, err
	}
	return e, e.Validate()
}

// NormalizeNote trims surrounding space and turns CRLF into LF, which is
// what every store hands back on load.
func NormalizeNote(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}
