// Package summary builds per-period spending overviews: category totals,
// grand total and how the spend compares to the configured budgets.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/logger"
	"expense-tracker/internal/model/customerr"
	"expense-tracker/internal/model/period"
)

type expensesStorage interface {
	SumExpensesByCategory(ctx context.Context, ownerID int64, from, to time.Time) (map[string]decimal.Decimal, error)
	ListBudgets(ctx context.Context, ownerID int64) ([]expense.Budget, error)
}

type summaryCache interface {
	GetSummary(ownerID int64, key string) (string, error)
	CacheSummary(ownerID int64, key string, payload string) error
}

type CategoryLine struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type Result struct {
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Records     []CategoryLine  `json:"records"`
	Total       decimal.Decimal `json:"total"`
	Budget      decimal.Decimal `json:"budget"`
	Remaining   decimal.Decimal `json:"remaining"`
}

type Generator struct {
	storage expensesStorage
	cache   summaryCache // optional
	now     func() time.Time
}

func NewGenerator(storage expensesStorage, cache summaryCache) *Generator {
	return &Generator{storage: storage, cache: cache, now: time.Now}
}

// WithCache attaches a cache after construction. Needed when the cache is
// only conditionally configured.
func (g *Generator) WithCache(cache summaryCache) *Generator {
	g.cache = cache
	return g
}

// Generate builds the summary for the current or previous window.
func (g *Generator) Generate(ctx context.Context, ownerID int64, scope period.Scope) (Result, error) {
	p, ok := period.ForScope(scope, g.now())
	if !ok {
		return Result{}, &customerr.ValidationError{Err: "summary scope must be current or previous"}
	}
	return g.GenerateFor(ctx, ownerID, p)
}

// GenerateFor builds the summary for an explicit window, serving historical
// month lookups as well as the scoped path. Results are cached per owner and
// period start, but only for the current and previous windows: those are the
// ones expense writes know to invalidate. Cache trouble is logged and
// otherwise ignored.
func (g *Generator) GenerateFor(ctx context.Context, ownerID int64, p period.Period) (Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "generateSummary")
	defer span.Finish()
	span.SetTag("period", p.Key())

	cacheable := g.cacheable(p)
	if cacheable {
		if cached, ok := g.fromCache(ownerID, p.Key()); ok {
			return cached, nil
		}
	}

	totals, err := g.storage.SumExpensesByCategory(ctx, ownerID, p.Start, p.End)
	if err != nil {
		return Result{}, errors.Wrap(err, "generate summary")
	}
	budgets, err := g.storage.ListBudgets(ctx, ownerID)
	if err != nil {
		return Result{}, errors.Wrap(err, "generate summary")
	}

	res := Result{
		PeriodStart: p.Start,
		PeriodEnd:   p.End,
		Records:     make([]CategoryLine, 0, len(totals)),
	}
	for category, amount := range totals {
		res.Records = append(res.Records, CategoryLine{Category: category, Amount: amount})
		res.Total = res.Total.Add(amount)
	}
	sort.Slice(res.Records, func(i, j int) bool {
		if res.Records[i].Amount.Equal(res.Records[j].Amount) {
			return res.Records[i].Category < res.Records[j].Category
		}
		return res.Records[i].Amount.GreaterThan(res.Records[j].Amount)
	})

	for _, b := range budgets {
		res.Budget = res.Budget.Add(b.Amount)
	}
	res.Remaining = res.Budget.Sub(res.Total)

	if cacheable {
		g.toCache(ownerID, p.Key(), res)
	}
	return res, nil
}

func (g *Generator) cacheable(p period.Period) bool {
	at := g.now()
	return p.Key() == period.Current(at).Key() || p.Key() == period.Previous(at).Key()
}

func (g *Generator) fromCache(ownerID int64, key string) (Result, bool) {
	if g.cache == nil {
		return Result{}, false
	}
	payload, err := g.cache.GetSummary(ownerID, key)
	if err != nil {
		return Result{}, false
	}
	var res Result
	if err = json.Unmarshal([]byte(payload), &res); err != nil {
		logger.Warn("cannot decode cached summary", zap.Error(err))
		return Result{}, false
	}
	return res, true
}

func (g *Generator) toCache(ownerID int64, key string, res Result) {
	if g.cache == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		logger.Warn("cannot encode summary for cache", zap.Error(err))
		return
	}
	if err = g.cache.CacheSummary(ownerID, key, string(payload)); err != nil {
		logger.Warn("cannot cache summary", zap.Error(err))
	}
}

// Format renders the summary as plain text for the command-line view.
func Format(res Result) string {
	lines := make([]string, 0, len(res.Records)+5)
	lines = append(lines, fmt.Sprintf("Biweekly period: %s to %s",
		res.PeriodStart.Format(period.DateLayout), res.PeriodEnd.Format(period.DateLayout)))
	for _, rec := range res.Records {
		lines = append(lines, fmt.Sprintf("%s: $%s", rec.Category, rec.Amount.StringFixed(2)))
	}
	lines = append(lines, "",
		fmt.Sprintf("Total: $%s", res.Total.StringFixed(2)),
		fmt.Sprintf("Budget: $%s", res.Budget.StringFixed(2)),
		fmt.Sprintf("Remaining: $%s", res.Remaining.StringFixed(2)))
	return strings.Join(lines, "\n")
}
