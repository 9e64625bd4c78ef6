package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/entity/user"
	"expense-tracker/internal/model/customerr"
)

type ownerCategory struct {
	ownerID  int64
	category string
}

// MemStorage keeps everything in maps. Used as the default backend and as
// the test double. A single mutex serializes writers; per-owner ordering is
// all the callers need.
type MemStorage struct {
	mu sync.Mutex

	users      map[int64]user.Record
	userIDs    map[string]int64
	nextUserID int64

	expenses      map[int64]expense.Record
	nextExpenseID int64

	budgets map[ownerCategory]expense.Budget
	alerts  map[ownerCategory]expense.ThresholdAlert
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		users:         make(map[int64]user.Record),
		userIDs:       make(map[string]int64),
		nextUserID:    1,
		expenses:      make(map[int64]expense.Record),
		nextExpenseID: 1,
		budgets:       make(map[ownerCategory]expense.Budget),
		alerts:        make(map[ownerCategory]expense.ThresholdAlert),
	}
}

func (s *MemStorage) CreateUser(_ context.Context, username, passwordHash string) (user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userIDs[username]; ok {
		return user.Record{}, &customerr.ValidationError{Err: "username is already taken"}
	}
	rec := user.Record{ID: s.nextUserID, Username: username, PasswordHash: passwordHash}
	s.nextUserID++
	s.users[rec.ID] = rec
	s.userIDs[username] = rec.ID
	return rec, nil
}

func (s *MemStorage) GetUserByName(_ context.Context, username string) (user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.userIDs[username]
	if !ok {
		return user.Record{}, &customerr.NotFoundError{Err: "user not found"}
	}
	return s.users[id], nil
}

func (s *MemStorage) GetUserByID(_ context.Context, id int64) (user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return user.Record{}, &customerr.NotFoundError{Err: "user not found"}
	}
	return rec, nil
}

func (s *MemStorage) SaveExpense(_ context.Context, rec expense.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextExpenseID
	s.nextExpenseID++
	s.expenses[rec.ID] = rec
	return rec.ID, nil
}

func (s *MemStorage) UpdateExpense(_ context.Context, rec expense.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.expenses[rec.ID]
	if !ok || cur.OwnerID != rec.OwnerID {
		return &customerr.NotFoundError{Err: "expense not found"}
	}
	s.expenses[rec.ID] = rec
	return nil
}

func (s *MemStorage) DeleteExpense(_ context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.expenses[id]
	if !ok || cur.OwnerID != ownerID {
		return &customerr.NotFoundError{Err: "expense not found"}
	}
	delete(s.expenses, id)
	return nil
}

func inBounds(d, from, to time.Time) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

func (s *MemStorage) ListExpenses(_ context.Context, ownerID int64, category string, from, to time.Time) ([]expense.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]expense.Record, 0)
	for _, rec := range s.expenses {
		if rec.OwnerID != ownerID {
			continue
		}
		if category != "" && rec.Category != category {
			continue
		}
		if !inBounds(rec.Date, from, to) {
			continue
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Date.Equal(res[j].Date) {
			return res[i].ID < res[j].ID
		}
		return res[i].Date.Before(res[j].Date)
	})
	return res, nil
}

func (s *MemStorage) ListRecurringExpenses(_ context.Context) ([]expense.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]expense.Record, 0)
	for _, rec := range s.expenses {
		if rec.Recurring {
			res = append(res, rec)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemStorage) SumExpensesByCategory(_ context.Context, ownerID int64, from, to time.Time) (map[string]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make(map[string]decimal.Decimal)
	for _, rec := range s.expenses {
		if rec.OwnerID != ownerID || !inBounds(rec.Date, from, to) {
			continue
		}
		totals[rec.Category] = totals[rec.Category].Add(rec.Amount)
	}
	return totals, nil
}

func (s *MemStorage) SetBudget(_ context.Context, b expense.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.budgets[ownerCategory{b.OwnerID, b.Category}] = b
	return nil
}

func (s *MemStorage) DeleteBudget(_ context.Context, ownerID int64, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerCategory{ownerID, category}
	if _, ok := s.budgets[key]; !ok {
		return &customerr.NotFoundError{Err: "budget not found"}
	}
	delete(s.budgets, key)
	return nil
}

func (s *MemStorage) ListBudgets(_ context.Context, ownerID int64) ([]expense.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]expense.Budget, 0)
	for key, b := range s.budgets {
		if key.ownerID == ownerID {
			res = append(res, b)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Category < res[j].Category })
	return res, nil
}

func (s *MemStorage) SetAlertThreshold(_ context.Context, a expense.ThresholdAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts[ownerCategory{a.OwnerID, a.Category}] = a
	return nil
}

func (s *MemStorage) DeleteAlertThreshold(_ context.Context, ownerID int64, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerCategory{ownerID, category}
	if _, ok := s.alerts[key]; !ok {
		return &customerr.NotFoundError{Err: "alert not found"}
	}
	delete(s.alerts, key)
	return nil
}

func (s *MemStorage) ListAlertThresholds(_ context.Context, ownerID int64) ([]expense.ThresholdAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]expense.ThresholdAlert, 0)
	for key, a := range s.alerts {
		if key.ownerID == ownerID {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Category < res[j].Category })
	return res, nil
}

func (s *MemStorage) Close() error {
	return nil
}
