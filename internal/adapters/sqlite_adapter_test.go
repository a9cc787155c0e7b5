package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/services"
	"gastos/internal/storage"
	"gastos/internal/store"
)

func TestSQLiteAdapter(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "gastos.db"))
	require.NoError(t, err)
	svc := services.NewExpenseService(repo, nil, nil)
	t.Cleanup(func() { _ = svc.Close() })

	a := NewSQLiteAdapter(repo, svc)
	assert.Equal(t, "sqlite", store.NameOf(a))
	require.NoError(t, a.Ping(ctx))

	e := core.Expense{
		Date:     core.NewDate(2024, 5, 3),
		Category: core.CategoryHousing,
		Amount:   core.Money{Cents: 1500000},
		Payer:    core.PayerFabiola,
		Payment:  core.PaymentTransfer,
	}
	ref, err := a.Append(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "1", ref)

	recs, err := a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Equal(e))
}
