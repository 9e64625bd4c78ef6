// Package tracker is the service layer behind both presentation adapters:
// expense CRUD with ownership checks, budget and alert-threshold upserts,
// summary-cache invalidation and best-effort alert evaluation after writes.
package tracker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/logger"
	"expense-tracker/internal/model/alerts"
	"expense-tracker/internal/model/customerr"
	"expense-tracker/internal/model/period"
)

type trackerStorage interface {
	SaveExpense(ctx context.Context, rec expense.Record) (int64, error)
	UpdateExpense(ctx context.Context, rec expense.Record) error
	DeleteExpense(ctx context.Context, id, ownerID int64) error
	ListExpenses(ctx context.Context, ownerID int64, category string, from, to time.Time) ([]expense.Record, error)

	SetBudget(ctx context.Context, b expense.Budget) error
	DeleteBudget(ctx context.Context, ownerID int64, category string) error
	ListBudgets(ctx context.Context, ownerID int64) ([]expense.Budget, error)

	SetAlertThreshold(ctx context.Context, a expense.ThresholdAlert) error
	DeleteAlertThreshold(ctx context.Context, ownerID int64, category string) error
	ListAlertThresholds(ctx context.Context, ownerID int64) ([]expense.ThresholdAlert, error)
}

type alertEvaluator interface {
	Evaluate(ctx context.Context, ownerID int64) ([]alerts.Message, error)
}

// alertPublisher pushes fired alerts onto the notifications topic.
type alertPublisher interface {
	ProduceMessage(message []byte) error
}

// summaryInvalidator drops cached summaries touched by a write.
type summaryInvalidator interface {
	InvalidateSummaries(ownerID int64, keys []string) error
}

type Service struct {
	storage   trackerStorage
	evaluator alertEvaluator
	publisher alertPublisher     // optional
	cache     summaryInvalidator // optional
	now       func() time.Time
}

func NewService(storage trackerStorage, evaluator alertEvaluator, publisher alertPublisher, cache summaryInvalidator) *Service {
	return &Service{
		storage:   storage,
		evaluator: evaluator,
		publisher: publisher,
		cache:     cache,
		now:       time.Now,
	}
}

// WithPublisher attaches an alert event publisher. Without one, fired
// alerts are only returned to the caller.
func (s *Service) WithPublisher(publisher alertPublisher) *Service {
	s.publisher = publisher
	return s
}

// WithCache attaches a summary cache to invalidate on writes.
func (s *Service) WithCache(cache summaryInvalidator) *Service {
	s.cache = cache
	return s
}

// ExpenseInput is what the adapters collect from the user.
type ExpenseInput struct {
	Category    string
	Amount      decimal.Decimal
	Description string
	Date        time.Time // zero means today
	Recurring   bool
}

func (s *Service) normalizeInput(in ExpenseInput) (ExpenseInput, error) {
	in.Category = expense.NormalizeCategory(in.Category)
	if in.Category == "" {
		return in, &customerr.ValidationError{Err: "category is required"}
	}
	if !in.Amount.IsPositive() {
		return in, &customerr.ValidationError{Err: "amount must be positive"}
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	in.Date = period.DateOf(in.Date)
	return in, nil
}

// AddExpense records an expense and then evaluates alerts. Alert failures
// are logged, not returned: the expense is saved either way.
func (s *Service) AddExpense(ctx context.Context, ownerID int64, in ExpenseInput) (rec expense.Record, msgs []alerts.Message, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "addExpense")
	defer span.Finish()
	start := s.now()
	defer func() { observeOp("add_expense", start, err != nil) }()

	in, err = s.normalizeInput(in)
	if err != nil {
		return expense.Record{}, nil, err
	}

	rec = expense.Record{
		OwnerID:     ownerID,
		Category:    in.Category,
		Amount:      in.Amount,
		Description: in.Description,
		Date:        in.Date,
		Recurring:   in.Recurring,
	}
	rec.ID, err = s.storage.SaveExpense(ctx, rec)
	if err != nil {
		return expense.Record{}, nil, errors.Wrap(err, "add expense")
	}

	s.invalidateSummaries(ownerID, rec.Date)
	msgs = s.checkAlertsAfterWrite(ctx, ownerID)
	return rec, msgs, nil
}

func (s *Service) UpdateExpense(ctx context.Context, ownerID, id int64, in ExpenseInput) (err error) {
	start := s.now()
	defer func() { observeOp("update_expense", start, err != nil) }()

	in, err = s.normalizeInput(in)
	if err != nil {
		return err
	}

	err = s.storage.UpdateExpense(ctx, expense.Record{
		ID:          id,
		OwnerID:     ownerID,
		Category:    in.Category,
		Amount:      in.Amount,
		Description: in.Description,
		Date:        in.Date,
		Recurring:   in.Recurring,
	})
	if err != nil {
		return err
	}
	// the pre-edit date is unknown here, so drop the new window and both
	// windows we may serve
	s.invalidateSummaries(ownerID, in.Date, s.now(), s.now().AddDate(0, 0, -15))
	return nil
}

func (s *Service) DeleteExpense(ctx context.Context, ownerID, id int64) (err error) {
	start := s.now()
	defer func() { observeOp("delete_expense", start, err != nil) }()

	if err = s.storage.DeleteExpense(ctx, id, ownerID); err != nil {
		return err
	}
	// the deleted row's date is gone, so drop both windows we may serve
	s.invalidateSummaries(ownerID, s.now(), s.now().AddDate(0, 0, -15))
	return nil
}

func (s *Service) ListExpenses(ctx context.Context, ownerID int64, category string, scope period.Scope) ([]expense.Record, error) {
	var from, to time.Time
	if p, ok := period.ForScope(scope, s.now()); ok {
		from, to = p.Start, p.End
	}
	return s.storage.ListExpenses(ctx, ownerID, expense.NormalizeCategory(category), from, to)
}

// ListExpensesIn lists the owner's expenses inside an explicit window,
// serving historical month lookups.
func (s *Service) ListExpensesIn(ctx context.Context, ownerID int64, category string, p period.Period) ([]expense.Record, error) {
	return s.storage.ListExpenses(ctx, ownerID, expense.NormalizeCategory(category), p.Start, p.End)
}

func (s *Service) SetBudget(ctx context.Context, ownerID int64, category string, amount decimal.Decimal) (expense.Budget, error) {
	category = expense.NormalizeCategory(category)
	if category == "" {
		return expense.Budget{}, &customerr.ValidationError{Err: "category is required"}
	}
	if !amount.IsPositive() {
		return expense.Budget{}, &customerr.ValidationError{Err: "budget amount must be positive"}
	}

	b := expense.Budget{OwnerID: ownerID, Category: category, Amount: amount}
	if err := s.storage.SetBudget(ctx, b); err != nil {
		return expense.Budget{}, errors.Wrap(err, "set budget")
	}
	return b, nil
}

func (s *Service) DeleteBudget(ctx context.Context, ownerID int64, category string) error {
	return s.storage.DeleteBudget(ctx, ownerID, expense.NormalizeCategory(category))
}

func (s *Service) Budgets(ctx context.Context, ownerID int64) ([]expense.Budget, error) {
	return s.storage.ListBudgets(ctx, ownerID)
}

// SetAlertThreshold configures an advisory ceiling. Thresholds must be
// strictly positive, otherwise a period with no expenses would still fire.
func (s *Service) SetAlertThreshold(ctx context.Context, ownerID int64, category string, threshold decimal.Decimal) (expense.ThresholdAlert, error) {
	category = expense.NormalizeCategory(category)
	if category == "" {
		return expense.ThresholdAlert{}, &customerr.ValidationError{Err: "category is required"}
	}
	if !threshold.IsPositive() {
		return expense.ThresholdAlert{}, &customerr.ValidationError{Err: "alert threshold must be positive"}
	}

	a := expense.ThresholdAlert{OwnerID: ownerID, Category: category, Threshold: threshold}
	if err := s.storage.SetAlertThreshold(ctx, a); err != nil {
		return expense.ThresholdAlert{}, errors.Wrap(err, "set alert")
	}
	return a, nil
}

func (s *Service) DeleteAlertThreshold(ctx context.Context, ownerID int64, category string) error {
	return s.storage.DeleteAlertThreshold(ctx, ownerID, expense.NormalizeCategory(category))
}

func (s *Service) AlertThresholds(ctx context.Context, ownerID int64) ([]expense.ThresholdAlert, error) {
	return s.storage.ListAlertThresholds(ctx, ownerID)
}

// CheckAlerts runs the evaluator on demand.
func (s *Service) CheckAlerts(ctx context.Context, ownerID int64) ([]alerts.Message, error) {
	return s.evaluator.Evaluate(ctx, ownerID)
}

func (s *Service) invalidateSummaries(ownerID int64, dates ...time.Time) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, period.Resolve(d).Key())
	}
	if err := s.cache.InvalidateSummaries(ownerID, keys); err != nil {
		logger.Warn("cannot invalidate summary cache", zap.Error(err), zap.Int64("ownerID", ownerID))
	}
}

func (s *Service) checkAlertsAfterWrite(ctx context.Context, ownerID int64) []alerts.Message {
	msgs, err := s.evaluator.Evaluate(ctx, ownerID)
	if err != nil {
		logger.Warn("alert evaluation failed", zap.Error(err), zap.Int64("ownerID", ownerID))
		return nil
	}
	s.publishAlerts(ownerID, msgs)
	return msgs
}

func (s *Service) publishAlerts(ownerID int64, msgs []alerts.Message) {
	if s.publisher == nil || len(msgs) == 0 {
		return
	}
	p := period.Current(s.now())
	for _, m := range msgs {
		event := alerts.Event{
			OwnerID:     ownerID,
			Category:    m.Category,
			Spent:       m.Spent.StringFixed(2),
			Threshold:   m.Threshold.StringFixed(2),
			PeriodStart: p.Start.Format(period.DateLayout),
			PeriodEnd:   p.End.Format(period.DateLayout),
			FiredAt:     s.now(),
		}
		payload, err := json.Marshal(event)
		if err != nil {
			logger.Error("cannot encode alert event", zap.Error(err))
			continue
		}
		if err = s.publisher.ProduceMessage(payload); err != nil {
			logger.Warn("cannot publish alert event", zap.Error(err), zap.String("category", m.Category))
		}
	}
}
