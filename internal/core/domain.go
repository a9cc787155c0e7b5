package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is one household expense record. Timestamp is assigned by the
	// backing store (form-collected sheets, SQLite) and is zero otherwise.
	Expense struct {
		Timestamp   time.Time
		Date        Date
		Category    Category
		Description string
		Amount      Money
		Payer       Payer
		Payment     PaymentMethod
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidPayer    = errors.New("invalid payer")
	ErrInvalidPayment  = errors.New("invalid payment method")
)

// dateLayouts are tried in order; day-first layouts match the locale the
// spreadsheets are kept in.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04:05",
	"2006/01/02",
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses the date formats found in the stores and in form input.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseTimestamp parses a store-assigned submission timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// String renders the ISO date used in every store.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// SameMonth reports whether d falls in the calendar month and year of t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Month() == t.Month()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks a candidate record before it reaches a store. The
// description is free text and is not constrained.
func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(e.Category))
	}
	if !e.Payer.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPayer, string(e.Payer))
	}
	if !e.Payment.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPayment, string(e.Payment))
	}
	return nil
}

// Equal compares the user-supplied fields, ignoring the store timestamp.
func (e Expense) Equal(o Expense) bool {
	return e.Date.Equal(o.Date.Time) &&
		e.Category == o.Category &&
		e.Description == o.Description &&
		e.Amount == o.Amount &&
		e.Payer == o.Payer &&
		e.Payment == o.Payment
}
