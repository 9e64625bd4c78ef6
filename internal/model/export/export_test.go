package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/model/period"
	"expense-tracker/internal/model/storage"
)

func seed(t *testing.T) *storage.MemStorage {
	t.Helper()
	ctx := context.Background()
	s := storage.NewMemStorage()

	for _, e := range []expense.Record{
		{OwnerID: 1, Category: "food", Amount: decimal.RequireFromString("12.50"), Description: "groceries",
			Date: time.Date(2024, time.August, 3, 0, 0, 0, 0, time.UTC)},
		{OwnerID: 1, Category: "rent", Amount: decimal.NewFromInt(700),
			Date: time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC), Recurring: true},
		{OwnerID: 1, Category: "food", Amount: decimal.NewFromInt(40),
			Date: time.Date(2024, time.August, 20, 0, 0, 0, 0, time.UTC)},
	} {
		_, err := s.SaveExpense(ctx, e)
		require.NoError(t, err)
	}
	return s
}

func Test_Write_AllExpenses(t *testing.T) {
	e := NewExporter(seed(t), "")

	var buf bytes.Buffer
	n, err := e.Write(context.Background(), &buf, 1, period.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Amount", "Category", "Description", "Date", "Recurring"}, rows[0])
	// ordered by date
	assert.Equal(t, []string{"700.00", "rent", "", "2024-08-01", "1"}, rows[1])
	assert.Equal(t, []string{"12.50", "food", "groceries", "2024-08-03", "0"}, rows[2])
	assert.Equal(t, []string{"40.00", "food", "", "2024-08-20", "0"}, rows[3])
}

func Test_Write_CurrentPeriodOnly(t *testing.T) {
	e := NewExporter(seed(t), "")
	e.now = func() time.Time { return time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC) }

	var buf bytes.Buffer
	n, err := e.Write(context.Background(), &buf, 1, period.ScopeCurrent)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows[1:] {
		assert.NotEqual(t, "2024-08-20", row[3])
	}
}

func Test_Filename(t *testing.T) {
	at := time.Date(2024, time.August, 23, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "expenses_alice_20240823_140509.csv", Filename("alice", at))
}
