// Package storage persists users, expenses, budgets and alert thresholds.
// Three backends share the same behavior: an in-memory map store, SQLite and
// Postgres. The SQL backends run the same squirrel-built query set and only
// differ in driver, placeholder format and migrations.
package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/entity/user"
)

// Storage is the full persistence surface consumed by the service layer.
// Every call is one logical unit of work; no transaction spans two calls.
type Storage interface {
	CreateUser(ctx context.Context, username, passwordHash string) (user.Record, error)
	GetUserByName(ctx context.Context, username string) (user.Record, error)
	GetUserByID(ctx context.Context, id int64) (user.Record, error)

	SaveExpense(ctx context.Context, rec expense.Record) (int64, error)
	UpdateExpense(ctx context.Context, rec expense.Record) error
	DeleteExpense(ctx context.Context, id, ownerID int64) error
	// ListExpenses filters by owner, then optionally by category (empty =
	// all) and date bounds (zero = unbounded, inclusive otherwise).
	// Results come back ordered by date.
	ListExpenses(ctx context.Context, ownerID int64, category string, from, to time.Time) ([]expense.Record, error)
	ListRecurringExpenses(ctx context.Context) ([]expense.Record, error)
	// SumExpensesByCategory aggregates the owner's spend per category over
	// inclusive date bounds. Categories without expenses do not appear.
	SumExpensesByCategory(ctx context.Context, ownerID int64, from, to time.Time) (map[string]decimal.Decimal, error)

	SetBudget(ctx context.Context, b expense.Budget) error
	DeleteBudget(ctx context.Context, ownerID int64, category string) error
	ListBudgets(ctx context.Context, ownerID int64) ([]expense.Budget, error)

	SetAlertThreshold(ctx context.Context, a expense.ThresholdAlert) error
	DeleteAlertThreshold(ctx context.Context, ownerID int64, category string) error
	ListAlertThresholds(ctx context.Context, ownerID int64) ([]expense.ThresholdAlert, error)

	Close() error
}

type sqliteConfig interface {
	Path() string
}

type postgresConfig interface {
	Host() string
	Username() string
	Password() string
	Database() string
}

// New picks the backend configured under app.storage-backend.
func New(backend string, sqliteCfg sqliteConfig, pgCfg postgresConfig) (Storage, error) {
	switch backend {
	case "memory", "":
		return NewMemStorage(), nil
	case "sqlite":
		return NewSQLiteStorage(sqliteCfg)
	case "postgres":
		return NewPostgresStorage(pgCfg)
	default:
		return nil, errors.Errorf("unknown storage backend %q", backend)
	}
}
