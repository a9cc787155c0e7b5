package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-03-05", NewDate(2024, 3, 5), true},
		{" 2024-03-05 ", NewDate(2024, 3, 5), true},
		{"05/03/2024", NewDate(2024, 3, 5), true},
		{"5/3/2024", NewDate(2024, 3, 5), true},
		{"2024-03-05 18:20:00", NewDate(2024, 3, 5), true},
		{"05/03/2024 18:20:00", NewDate(2024, 3, 5), true},
		{"2024/03/05", NewDate(2024, 3, 5), true},
		{"", Date{}, false},
		{"mañana", Date{}, false},
		{"2024-13-01", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || !got.Equal(tc.want.Time) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
		}
	}
}

func TestDateStringAndSameMonth(t *testing.T) {
	d := NewDate(2024, 3, 5)
	if d.String() != "2024-03-05" {
		t.Fatalf("unexpected string %q", d.String())
	}
	if (Date{}).String() != "" {
		t.Fatalf("zero date should render empty")
	}
	if !d.SameMonth(time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected same month")
	}
	if d.SameMonth(time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("different year must not match")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func validExpense() Expense {
	return Expense{
		Date:        NewDate(2025, 1, 1),
		Category:    CategoryGroceries,
		Description: "",
		Amount:      Money{Cents: 100},
		Payer:       PayerGustavo,
		Payment:     PaymentCash,
	}
}

func TestExpenseValidate(t *testing.T) {
	if err := validExpense().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"zero amount", func(e *Expense) { e.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"unknown category", func(e *Expense) { e.Category = "Mascotas" }, ErrInvalidCategory},
		{"empty payer", func(e *Expense) { e.Payer = "" }, ErrInvalidPayer},
		{"unknown payment", func(e *Expense) { e.Payment = "Cheque" }, ErrInvalidPayment},
	}
	for _, tc := range cases {
		e := validExpense()
		tc.mutate(&e)
		if err := e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestExpenseEqualIgnoresTimestamp(t *testing.T) {
	a := validExpense()
	b := validExpense()
	b.Timestamp = time.Now()
	if !a.Equal(b) {
		t.Fatalf("expected equal records")
	}
	b.Description = "pan"
	if a.Equal(b) {
		t.Fatalf("description must be compared")
	}
}
