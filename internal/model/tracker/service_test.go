package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-tracker/internal/model/alerts"
	"expense-tracker/internal/model/customerr"
	"expense-tracker/internal/model/period"
	"expense-tracker/internal/model/storage"
	"expense-tracker/internal/model/summary"
)

// summaryCache is a map-backed stand-in for memcached, shared between the
// tracker (invalidation) and the summary generator (read/write).
type summaryCache struct {
	items map[string]string
}

func newSummaryCache() *summaryCache {
	return &summaryCache{items: make(map[string]string)}
}

func (c *summaryCache) key(ownerID int64, periodKey string) string {
	return fmt.Sprintf("%d:%s", ownerID, periodKey)
}

func (c *summaryCache) GetSummary(ownerID int64, periodKey string) (string, error) {
	payload, ok := c.items[c.key(ownerID, periodKey)]
	if !ok {
		return "", assert.AnError
	}
	return payload, nil
}

func (c *summaryCache) CacheSummary(ownerID int64, periodKey, payload string) error {
	c.items[c.key(ownerID, periodKey)] = payload
	return nil
}

func (c *summaryCache) InvalidateSummaries(ownerID int64, periodKeys []string) error {
	for _, k := range periodKeys {
		delete(c.items, c.key(ownerID, k))
	}
	return nil
}

type capturingPublisher struct {
	messages [][]byte
}

func (p *capturingPublisher) ProduceMessage(message []byte) error {
	p.messages = append(p.messages, message)
	return nil
}

func at(day int) time.Time {
	return time.Date(2024, time.August, day, 0, 0, 0, 0, time.UTC)
}

func newService(s *storage.MemStorage, publisher alertPublisher) *Service {
	evaluator := alerts.NewEvaluator(s).WithClock(func() time.Time { return at(10) })
	svc := NewService(s, evaluator, publisher, nil)
	svc.now = func() time.Time { return at(10) }
	return svc
}

func Test_AddExpense_NormalizesAndSaves(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStorage()
	svc := newService(s, nil)

	rec, msgs, err := svc.AddExpense(ctx, 1, ExpenseInput{
		Category: "  Food ",
		Amount:   decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.Equal(t, "food", rec.Category)
	assert.Equal(t, at(10), rec.Date) // defaults to today
	assert.NotZero(t, rec.ID)
}

func Test_AddExpense_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService(storage.NewMemStorage(), nil)

	_, _, err := svc.AddExpense(ctx, 1, ExpenseInput{Category: " ", Amount: decimal.NewFromInt(5)})
	assert.True(t, customerr.IsValidation(err))

	_, _, err = svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(-5)})
	assert.True(t, customerr.IsValidation(err))

	_, _, err = svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.Zero})
	assert.True(t, customerr.IsValidation(err))
}

func Test_AddExpense_FiresAndPublishesAlerts(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStorage()
	publisher := &capturingPublisher{}
	svc := newService(s, publisher)

	_, err := svc.SetAlertThreshold(ctx, 1, "food", decimal.NewFromInt(100))
	require.NoError(t, err)

	_, msgs, err := svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(120), Date: at(9)})
	require.NoError(t, err)

	require.Len(t, msgs, 1)
	assert.Equal(t, "food", msgs[0].Category)

	require.Len(t, publisher.messages, 1)
	var event alerts.Event
	require.NoError(t, json.Unmarshal(publisher.messages[0], &event))
	assert.Equal(t, int64(1), event.OwnerID)
	assert.Equal(t, "120.00", event.Spent)
	assert.Equal(t, "100.00", event.Threshold)
	assert.Equal(t, "2024-08-01", event.PeriodStart)
	assert.Equal(t, "2024-08-15", event.PeriodEnd)
}

func Test_UpdateExpense_OtherOwnerIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStorage()
	svc := newService(s, nil)

	rec, _, err := svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	err = svc.UpdateExpense(ctx, 2, rec.ID, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(99)})
	assert.True(t, customerr.IsNotFound(err))

	err = svc.UpdateExpense(ctx, 1, rec.ID, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(99), Date: at(9)})
	require.NoError(t, err)

	listed, err := svc.ListExpenses(ctx, 1, "", period.ScopeAll)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Amount.Equal(decimal.NewFromInt(99)))
}

func Test_DeleteExpense_OwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	svc := newService(storage.NewMemStorage(), nil)

	rec, _, err := svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	assert.True(t, customerr.IsNotFound(svc.DeleteExpense(ctx, 2, rec.ID)))
	assert.NoError(t, svc.DeleteExpense(ctx, 1, rec.ID))
}

type capturingInvalidator struct {
	keys []string
}

func (c *capturingInvalidator) InvalidateSummaries(_ int64, keys []string) error {
	c.keys = append(c.keys, keys...)
	return nil
}

func Test_UpdateExpense_InvalidatesMovedFromWindow(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStorage()
	inv := &capturingInvalidator{}
	svc := newService(s, nil).WithCache(inv)

	rec, _, err := svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(10), Date: at(10)})
	require.NoError(t, err)

	inv.keys = nil
	err = svc.UpdateExpense(ctx, 1, rec.ID, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(10), Date: at(20)})
	require.NoError(t, err)

	assert.Contains(t, inv.keys, "2024-08-16") // window of the new date
	assert.Contains(t, inv.keys, "2024-08-01") // window the expense moved out of
}

func Test_UpdateExpense_RefreshesCachedSummary(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStorage()
	c := newSummaryCache()
	evaluator := alerts.NewEvaluator(s)
	svc := NewService(s, evaluator, nil, c)
	gen := summary.NewGenerator(s, c)

	rec, _, err := svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	before, err := gen.Generate(ctx, 1, period.ScopeCurrent)
	require.NoError(t, err)
	require.True(t, before.Total.Equal(decimal.NewFromInt(10)))

	// move the expense out of the current window
	err = svc.UpdateExpense(ctx, 1, rec.ID, ExpenseInput{
		Category: "food",
		Amount:   decimal.NewFromInt(10),
		Date:     time.Date(2020, time.January, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	after, err := gen.Generate(ctx, 1, period.ScopeCurrent)
	require.NoError(t, err)
	assert.True(t, after.Total.IsZero())
}

func Test_ListExpensesIn_ExplicitWindow(t *testing.T) {
	ctx := context.Background()
	svc := newService(storage.NewMemStorage(), nil)

	_, _, err := svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(10), Date: at(3)})
	require.NoError(t, err)
	_, _, err = svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(20), Date: at(20)})
	require.NoError(t, err)

	recs, err := svc.ListExpensesIn(ctx, 1, "", period.ForMonth(2024, time.August)[1])
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, at(20), recs[0].Date)
}

func Test_ListExpenses_ScopeCurrent(t *testing.T) {
	ctx := context.Background()
	svc := newService(storage.NewMemStorage(), nil)

	_, _, err := svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(10), Date: at(3)})
	require.NoError(t, err)
	_, _, err = svc.AddExpense(ctx, 1, ExpenseInput{Category: "food", Amount: decimal.NewFromInt(20), Date: at(20)})
	require.NoError(t, err)

	current, err := svc.ListExpenses(ctx, 1, "", period.ScopeCurrent)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, at(3), current[0].Date)
}

func Test_SetAlertThreshold_RejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	svc := newService(storage.NewMemStorage(), nil)

	_, err := svc.SetAlertThreshold(ctx, 1, "food", decimal.Zero)
	assert.True(t, customerr.IsValidation(err))

	_, err = svc.SetAlertThreshold(ctx, 1, "food", decimal.NewFromInt(-10))
	assert.True(t, customerr.IsValidation(err))
}

func Test_SetBudget_UpsertSemantics(t *testing.T) {
	ctx := context.Background()
	svc := newService(storage.NewMemStorage(), nil)

	_, err := svc.SetBudget(ctx, 1, "Food", decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = svc.SetBudget(ctx, 1, "food", decimal.NewFromInt(250))
	require.NoError(t, err)

	budgets, err := svc.Budgets(ctx, 1)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.True(t, budgets[0].Amount.Equal(decimal.NewFromInt(250)))
}
