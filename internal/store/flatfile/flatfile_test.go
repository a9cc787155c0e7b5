package flatfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func sample(desc string, cents int64) core.Expense {
	return core.Expense{
		Date:        core.NewDate(2024, 3, 5),
		Category:    core.CategoryTransport,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Payer:       core.PayerFabiola,
		Payment:     core.PaymentDebit,
	}
}

func TestAppendCreatesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "gastos.csv")
	s, err := New(path, nil)
	require.NoError(t, err)

	_, err = s.Append(context.Background(), sample("gasolina", 50000))
	require.NoError(t, err)
	_, err = s.Append(context.Background(), sample("metro, ida y vuelta", 1000))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Fecha,Categoría,Descripción,Monto,Usuario,Pago", lines[0])
	assert.Equal(t, `2024-03-05,Transporte,"metro, ida y vuelta",10.00,Fabiola,Tarjeta de Débito`, lines[2])

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, sample("metro, ida y vuelta", 1000).Equal(got[1]))
}

func TestAppendNeverRewritesExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.csv")
	// A row written by hand with a format this app never produces.
	seed := "Fecha,Categoría,Descripción,Monto,Usuario,Pago\n05/03/2024,🛒 Súper / Despensa,pan,\"$1,000.00\",Gustavo,Efectivo\n"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s, err := New(path, nil)
	require.NoError(t, err)
	_, err = s.Append(context.Background(), sample("taxi", 9000))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), seed), "existing bytes must be untouched")

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(100000), got[0].Amount.Cents)
	assert.Equal(t, core.CategoryGroceries, got[0].Category)
}

func TestAppendRejectsInvalidWithoutTouchingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.csv")
	s, err := New(path, nil)
	require.NoError(t, err)

	_, err = s.Append(context.Background(), sample("nada", 0))
	require.ErrorIs(t, err, core.ErrInvalidAmount)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "none.csv"), nil)
	require.NoError(t, err)
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConcurrentAppendsKeepEveryRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.csv")
	a, err := New(path, nil)
	require.NoError(t, err)
	b, err := New(path, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		s := a
		if i%2 == 1 {
			s = b
		}
		go func() {
			defer wg.Done()
			_, _ = s.Append(context.Background(), sample("x", 100))
		}()
	}
	wg.Wait()

	got, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 40)
}

func TestTypedNoteLoadsBackEqual(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "gastos.csv"), nil)
	require.NoError(t, err)

	in := core.ExpenseInput{
		Amount:   "120",
		Category: "Transporte",
		Payer:    "Fabiola",
		Payment:  "Efectivo",
		Note:     "  taxi\r\nregreso  ",
	}
	e, err := in.Expense(core.NewDate(2024, 3, 5))
	require.NoError(t, err)
	_, err = s.Append(context.Background(), e)
	require.NoError(t, err)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "taxi\nregreso", got[0].Description)
	assert.True(t, e.Equal(got[0]))
}
