// Package recurring re-posts flagged expenses at the start of each
// half-month window, so a rent expense marked recurring shows up in every
// period without manual entry.
package recurring

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/logger"
	"expense-tracker/internal/model/period"
)

// CronSpec fires at midnight on the 1st and the 16th, the two period starts.
const CronSpec = "0 0 1,16 * *"

type expensesStorage interface {
	ListRecurringExpenses(ctx context.Context) ([]expense.Record, error)
	ListExpenses(ctx context.Context, ownerID int64, category string, from, to time.Time) ([]expense.Record, error)
	SaveExpense(ctx context.Context, rec expense.Record) (int64, error)
}

type Materializer struct {
	storage expensesStorage
	now     func() time.Time
}

func NewMaterializer(storage expensesStorage) *Materializer {
	return &Materializer{storage: storage, now: time.Now}
}

// Run posts one copy of every recurring template into the window containing
// today. Copies are dated today and not themselves recurring. A template
// that already has a copy in the window is skipped, so re-runs within the
// same period are harmless.
func (m *Materializer) Run(ctx context.Context) error {
	today := period.DateOf(m.now())
	p := period.Resolve(today)

	templates, err := m.storage.ListRecurringExpenses(ctx)
	if err != nil {
		return errors.Wrap(err, "materialize recurring")
	}

	posted := 0
	for _, tpl := range templates {
		if p.Contains(tpl.Date) {
			// the template itself already counts toward this window
			continue
		}
		exists, err := m.alreadyPosted(ctx, tpl, p)
		if err != nil {
			return errors.Wrap(err, "materialize recurring")
		}
		if exists {
			continue
		}

		_, err = m.storage.SaveExpense(ctx, expense.Record{
			OwnerID:     tpl.OwnerID,
			Category:    tpl.Category,
			Amount:      tpl.Amount,
			Description: tpl.Description,
			Date:        today,
			Recurring:   false,
		})
		if err != nil {
			return errors.Wrap(err, "materialize recurring")
		}
		posted++
	}

	logger.Info("recurring expenses materialized",
		zap.Int("templates", len(templates)),
		zap.Int("posted", posted),
		zap.String("period", p.String()))
	return nil
}

func (m *Materializer) alreadyPosted(ctx context.Context, tpl expense.Record, p period.Period) (bool, error) {
	existing, err := m.storage.ListExpenses(ctx, tpl.OwnerID, tpl.Category, p.Start, p.End)
	if err != nil {
		return false, err
	}
	for _, rec := range existing {
		if !rec.Recurring && rec.Description == tpl.Description && rec.Amount.Equal(tpl.Amount) {
			return true, nil
		}
	}
	return false, nil
}
