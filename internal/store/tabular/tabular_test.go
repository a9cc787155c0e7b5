package tabular

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func TestDecodePlainLayout(t *testing.T) {
	rows := [][]string{
		{"Fecha", "Categoría", "Descripción", "Monto", "Usuario", "Pago"},
		{"2024-03-05", "🛒 Súper / Despensa", "leche", "$1,234.50", "Gustavo", "💳 Tarjeta de Crédito"},
		{"06/03/2024", "Salud", "", "80", "Fabiola", "Efectivo"},
		{"", "", "", "", "", ""},
	}
	got, err := Decode(rows)
	require.NoError(t, err)
	assert.False(t, got.Timestamped)
	assert.Zero(t, got.Skipped)
	require.Len(t, got.Records, 2)

	first := got.Records[0]
	assert.Equal(t, core.NewDate(2024, 3, 5), first.Date)
	assert.Equal(t, core.CategoryGroceries, first.Category)
	assert.Equal(t, "leche", first.Description)
	assert.Equal(t, int64(123450), first.Amount.Cents)
	assert.Equal(t, core.PayerGustavo, first.Payer)
	assert.Equal(t, core.PaymentCredit, first.Payment)

	assert.Equal(t, core.NewDate(2024, 3, 6), got.Records[1].Date)
	assert.Equal(t, core.CategoryHealth, got.Records[1].Category)
}

func TestDecodeFormLayoutRelabelsTimestamp(t *testing.T) {
	rows := [][]string{
		{"Submitted at", "Fecha", "Categoría", "Descripción", "Monto", "Usuario", "Pago"},
		{"05/03/2024 18:20:00", "2024-03-05", "Ocio", "cine", "150", "Fabiola", "Transferencia"},
	}
	got, err := Decode(rows)
	require.NoError(t, err)
	assert.True(t, got.Timestamped)
	require.Len(t, got.Records, 1)
	assert.Equal(t, time.Date(2024, 3, 5, 18, 20, 0, 0, time.UTC), got.Records[0].Timestamp)
	assert.Equal(t, int64(15000), got.Records[0].Amount.Cents)
}

func TestDecodeFormQuestionHeaders(t *testing.T) {
	rows := [][]string{
		{"Marca temporal", "¿Cuándo?", "Categoría", "Nota", "Monto ($)", "¿Quién pagó?", "Método de Pago"},
		{"2024-03-05 10:00:00", "2024-03-05", "Renta", "marzo", "9000", "Gustavo", "Transferencia"},
	}
	got, err := Decode(rows)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Equal(t, core.CategoryHousing, got.Records[0].Category)
	assert.Equal(t, "marzo", got.Records[0].Description)
	assert.Equal(t, core.PayerGustavo, got.Records[0].Payer)
}

func TestDecodeTolerantRows(t *testing.T) {
	rows := [][]string{
		Header,
		{"not a date", "Súper", "", "10", "Gustavo", "Efectivo"},
		{"2024-03-05", "Súper", "", "diez", "Gustavo", "Efectivo"},
		{"2024-03-05", "Mascotas", "croquetas", "10", "Pedro", "Cheque"},
		{"2024-03-07", "Súper"},
	}
	got, err := Decode(rows)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Skipped)
	require.Len(t, got.Records, 1)

	e := got.Records[0]
	assert.Equal(t, core.CategoryOther, e.Category, "unknown category falls back")
	assert.Equal(t, core.Payer(""), e.Payer)
	assert.Equal(t, core.PaymentMethod(""), e.Payment)
}

func TestDecodeEmptyAndMissingColumns(t *testing.T) {
	got, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, got.Records)

	got, err = Decode([][]string{Header})
	require.NoError(t, err)
	assert.Empty(t, got.Records)

	_, err = Decode([][]string{{"Categoría", "Descripción"}})
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestEncodeRowMatchesHeader(t *testing.T) {
	e := core.Expense{
		Date:        core.NewDate(2024, 3, 5),
		Category:    core.CategoryEatingOut,
		Description: "tacos",
		Amount:      core.Money{Cents: 25050},
		Payer:       core.PayerFabiola,
		Payment:     core.PaymentDebit,
	}
	row := EncodeRow(e)
	require.Len(t, row, len(Header))
	assert.Equal(t, []string{"2024-03-05", "Comida fuera", "tacos", "250.50", "Fabiola", "Tarjeta de Débito"}, row)

	got, err := Decode([][]string{Header, row})
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.True(t, e.Equal(got.Records[0]))
}
