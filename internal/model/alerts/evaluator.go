// Package alerts evaluates configured spend thresholds against the current
// half-month window. Alerts are advisory: evaluation failures never block
// the operation that triggered them.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/shopspring/decimal"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/model/customerr"
	"expense-tracker/internal/model/period"
)

type expensesStorage interface {
	SumExpensesByCategory(ctx context.Context, ownerID int64, from, to time.Time) (map[string]decimal.Decimal, error)
	ListAlertThresholds(ctx context.Context, ownerID int64) ([]expense.ThresholdAlert, error)
}

// Message is one fired alert.
type Message struct {
	Category  string
	Spent     decimal.Decimal
	Threshold decimal.Decimal
}

func (m Message) String() string {
	return fmt.Sprintf("⚠️ %s: $%s spent (threshold: $%s)",
		m.Category, m.Spent.StringFixed(2), m.Threshold.StringFixed(2))
}

type Evaluator struct {
	storage expensesStorage
	now     func() time.Time
}

func NewEvaluator(storage expensesStorage) *Evaluator {
	return &Evaluator{storage: storage, now: time.Now}
}

// WithClock overrides the time source the current window is resolved from.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Evaluate fires one message per configured category whose spend in the
// current window meets or exceeds its threshold. Categories with no
// expenses in the window fire nothing, whatever their threshold. Messages
// follow the stored threshold order (by category); never by magnitude.
func (e *Evaluator) Evaluate(ctx context.Context, ownerID int64) ([]Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "evaluateAlerts")
	defer span.Finish()

	p := period.Current(e.now())

	spent, err := e.storage.SumExpensesByCategory(ctx, ownerID, p.Start, p.End)
	if err != nil {
		ext.Error.Set(span, true)
		return nil, &customerr.EvaluationError{Cause: err}
	}

	thresholds, err := e.storage.ListAlertThresholds(ctx, ownerID)
	if err != nil {
		ext.Error.Set(span, true)
		return nil, &customerr.EvaluationError{Cause: err}
	}

	msgs := make([]Message, 0)
	for _, t := range thresholds {
		total, ok := spent[t.Category]
		if ok && total.GreaterThanOrEqual(t.Threshold) {
			msgs = append(msgs, Message{
				Category:  t.Category,
				Spent:     total,
				Threshold: t.Threshold,
			})
		}
	}
	return msgs, nil
}
