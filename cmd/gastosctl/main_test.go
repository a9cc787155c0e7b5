package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/budget"
	"gastos/internal/core"
	"gastos/internal/store/memory"
)

func memoryOpener(st *memory.Store) opener {
	return func(context.Context) (*session, error) {
		return &session{
			Store:    st,
			Budgets:  budget.Default(),
			Location: time.UTC,
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
			Now:      func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) },
		}, nil
	}
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAddRecordsExpense(t *testing.T) {
	st := memory.New()

	out, err := run(t, memoryOpener(st), "add",
		"--amount", "250.00",
		"--category", "Súper",
		"--payer", "Fabiola",
		"--payment", "Efectivo",
		"--note", "tianguis")
	require.NoError(t, err)
	assert.Contains(t, out, "Guardado 2024-03-15")
	assert.Contains(t, out, "$250.00")

	recs, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, core.CategoryGroceries, recs[0].Category)
	assert.Equal(t, "tianguis", recs[0].Description)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	st := memory.New()

	_, err := run(t, memoryOpener(st), "add",
		"--amount", "0",
		"--category", "Súper",
		"--payer", "Fabiola",
		"--payment", "Efectivo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))
	assert.Equal(t, 0, st.Len())
}

func TestReport(t *testing.T) {
	st := memory.New(
		core.Expense{
			Date:     core.NewDate(2024, 3, 2),
			Amount:   core.Money{Cents: 150000},
			Category: core.CategoryGroceries,
			Payer:    core.PayerGustavo,
			Payment:  core.PaymentCash,
		},
		core.Expense{
			Date:     core.NewDate(2023, 12, 24),
			Amount:   core.Money{Cents: 90000},
			Category: core.CategoryGroceries,
			Payer:    core.PayerFabiola,
			Payment:  core.PaymentCash,
		},
	)

	out, err := run(t, memoryOpener(st), "report")
	require.NoError(t, err)
	assert.Contains(t, out, "Total (marzo 2024): $1,500.00")
	assert.Contains(t, out, "Registros: 1")

	out, err = run(t, memoryOpener(st), "report", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "$2,400.00")
	assert.Contains(t, out, "Registros: 2")
}

func TestReportEmptyStore(t *testing.T) {
	out, err := run(t, memoryOpener(memory.New()), "report")
	require.NoError(t, err)
	assert.Contains(t, out, "Aún no hay gastos registrados.")
}

func TestReportUnreadableStore(t *testing.T) {
	st := memory.New()
	st.LoadErr = errors.New("disk gone")

	_, err := run(t, memoryOpener(st), "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestBudgets(t *testing.T) {
	out, err := run(t, memoryOpener(memory.New()), "budgets")
	require.NoError(t, err)
	assert.Contains(t, out, "Presupuesto")
	assert.Contains(t, out, budget.Default().Total().Display())
}

func TestOpenFailure(t *testing.T) {
	failing := func(context.Context) (*session, error) { return nil, errors.New("bad config") }
	_, err := run(t, failing, "budgets")
	assert.EqualError(t, err, "bad config")
}
