package summary

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/model/customerr"
	"expense-tracker/internal/model/period"
	"expense-tracker/internal/model/storage"
)

type mapCache struct {
	items map[string]string
	gets  int
	hits  int
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string]string)}
}

func (c *mapCache) GetSummary(_ int64, key string) (string, error) {
	c.gets++
	payload, ok := c.items[key]
	if !ok {
		return "", assert.AnError
	}
	c.hits++
	return payload, nil
}

func (c *mapCache) CacheSummary(_ int64, key, payload string) error {
	c.items[key] = payload
	return nil
}

func seededStorage(t *testing.T) *storage.MemStorage {
	t.Helper()
	ctx := context.Background()
	s := storage.NewMemStorage()

	save := func(d time.Time, category string, amount int64) {
		_, err := s.SaveExpense(ctx, expense.Record{
			OwnerID: 1, Category: category, Amount: decimal.NewFromInt(amount), Date: d,
		})
		require.NoError(t, err)
	}
	save(time.Date(2024, time.August, 3, 0, 0, 0, 0, time.UTC), "food", 120)
	save(time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC), "rent", 700)
	save(time.Date(2024, time.August, 20, 0, 0, 0, 0, time.UTC), "food", 999) // outside first half

	require.NoError(t, s.SetBudget(ctx, expense.Budget{OwnerID: 1, Category: "food", Amount: decimal.NewFromInt(200)}))
	require.NoError(t, s.SetBudget(ctx, expense.Budget{OwnerID: 1, Category: "rent", Amount: decimal.NewFromInt(800)}))
	return s
}

func Test_Generate_CurrentPeriod(t *testing.T) {
	g := NewGenerator(seededStorage(t), nil)
	g.now = func() time.Time { return time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC) }

	res, err := g.Generate(context.Background(), 1, period.ScopeCurrent)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC), res.PeriodStart)
	assert.Equal(t, time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC), res.PeriodEnd)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "rent", res.Records[0].Category) // sorted by amount desc
	assert.Equal(t, "food", res.Records[1].Category)
	assert.True(t, res.Total.Equal(decimal.NewFromInt(820)))
	assert.True(t, res.Budget.Equal(decimal.NewFromInt(1000)))
	assert.True(t, res.Remaining.Equal(decimal.NewFromInt(180)))
}

func Test_Generate_UsesCacheOnSecondCall(t *testing.T) {
	cache := newMapCache()
	g := NewGenerator(seededStorage(t), cache)
	g.now = func() time.Time { return time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC) }

	first, err := g.Generate(context.Background(), 1, period.ScopeCurrent)
	require.NoError(t, err)

	second, err := g.Generate(context.Background(), 1, period.ScopeCurrent)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.hits)
	assert.True(t, first.Total.Equal(second.Total))
	assert.Len(t, second.Records, len(first.Records))
}

func Test_GenerateFor_HistoricalWindow(t *testing.T) {
	g := NewGenerator(seededStorage(t), nil)
	g.now = func() time.Time { return time.Date(2024, time.October, 2, 0, 0, 0, 0, time.UTC) }

	res, err := g.GenerateFor(context.Background(), 1, period.ForMonth(2024, time.August)[1])
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.August, 16, 0, 0, 0, 0, time.UTC), res.PeriodStart)
	assert.Equal(t, time.Date(2024, time.August, 31, 0, 0, 0, 0, time.UTC), res.PeriodEnd)

	require.Len(t, res.Records, 1)
	assert.Equal(t, "food", res.Records[0].Category)
	assert.True(t, res.Total.Equal(decimal.NewFromInt(999)))
}

func Test_GenerateFor_HistoricalWindowIsNotCached(t *testing.T) {
	cache := newMapCache()
	g := NewGenerator(seededStorage(t), cache)
	g.now = func() time.Time { return time.Date(2024, time.October, 2, 0, 0, 0, 0, time.UTC) }

	// writes only invalidate the current and previous windows, so anything
	// older must bypass the cache
	_, err := g.GenerateFor(context.Background(), 1, period.ForMonth(2024, time.August)[0])
	require.NoError(t, err)

	assert.Zero(t, cache.gets)
	assert.Empty(t, cache.items)
}

func Test_Generate_RejectsScopeAll(t *testing.T) {
	g := NewGenerator(seededStorage(t), nil)

	_, err := g.Generate(context.Background(), 1, period.ScopeAll)
	assert.True(t, customerr.IsValidation(err))
}

func Test_Format(t *testing.T) {
	res := Result{
		PeriodStart: time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC),
		Records: []CategoryLine{
			{Category: "rent", Amount: decimal.NewFromInt(700)},
			{Category: "food", Amount: decimal.NewFromInt(120)},
		},
		Total:     decimal.NewFromInt(820),
		Budget:    decimal.NewFromInt(1000),
		Remaining: decimal.NewFromInt(180),
	}

	text := Format(res)
	assert.Contains(t, text, "Biweekly period: 2024-08-01 to 2024-08-15")
	assert.Contains(t, text, "rent: $700.00")
	assert.Contains(t, text, "Total: $820.00")
	assert.Contains(t, text, "Remaining: $180.00")
}
