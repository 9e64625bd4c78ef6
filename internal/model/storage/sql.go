package storage

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/entity/user"
	"expense-tracker/internal/model/customerr"
	"expense-tracker/internal/model/period"
)

// sqlStorage is the query set shared by the SQLite and Postgres backends.
// Dates travel as ISO YYYY-MM-DD text, which keeps BETWEEN comparisons
// correct on both engines; amounts live in NUMERIC columns and scan straight
// into decimal.Decimal.
type sqlStorage struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func dataErr(op string, err error) error {
	return &customerr.DataAccessError{Err: op, Cause: err}
}

func (s *sqlStorage) CreateUser(ctx context.Context, username, passwordHash string) (user.Record, error) {
	query := s.sb.Insert("users").
		Columns("username", "password_hash").
		Values(username, passwordHash).
		Suffix("RETURNING id")

	rec := user.Record{Username: username, PasswordHash: passwordHash}
	err := query.RunWith(s.db).QueryRowContext(ctx).Scan(&rec.ID)
	if err != nil {
		return user.Record{}, dataErr("create user", err)
	}
	return rec, nil
}

func (s *sqlStorage) getUser(ctx context.Context, pred sq.Eq) (user.Record, error) {
	query := s.sb.Select("id", "username", "password_hash").
		From("users").
		Where(pred)

	var rec user.Record
	err := query.RunWith(s.db).QueryRowContext(ctx).Scan(&rec.ID, &rec.Username, &rec.PasswordHash)
	if err == sql.ErrNoRows {
		return user.Record{}, &customerr.NotFoundError{Err: "user not found"}
	}
	if err != nil {
		return user.Record{}, dataErr("get user", err)
	}
	return rec, nil
}

func (s *sqlStorage) GetUserByName(ctx context.Context, username string) (user.Record, error) {
	return s.getUser(ctx, sq.Eq{"username": username})
}

func (s *sqlStorage) GetUserByID(ctx context.Context, id int64) (user.Record, error) {
	return s.getUser(ctx, sq.Eq{"id": id})
}

func (s *sqlStorage) SaveExpense(ctx context.Context, rec expense.Record) (int64, error) {
	query := s.sb.Insert("expenses").
		Columns("user_id", "category", "amount", "description", "date", "is_recurring").
		Values(rec.OwnerID, rec.Category, rec.Amount, rec.Description, rec.Date.Format(period.DateLayout), rec.Recurring).
		Suffix("RETURNING id")

	var id int64
	err := query.RunWith(s.db).QueryRowContext(ctx).Scan(&id)
	if err != nil {
		return 0, dataErr("save expense", err)
	}
	return id, nil
}

func (s *sqlStorage) UpdateExpense(ctx context.Context, rec expense.Record) error {
	query := s.sb.Update("expenses").
		Set("category", rec.Category).
		Set("amount", rec.Amount).
		Set("description", rec.Description).
		Set("date", rec.Date.Format(period.DateLayout)).
		Set("is_recurring", rec.Recurring).
		Where(sq.Eq{"id": rec.ID, "user_id": rec.OwnerID})

	res, err := query.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return dataErr("update expense", err)
	}
	return requireRow(res, "expense not found")
}

func (s *sqlStorage) DeleteExpense(ctx context.Context, id, ownerID int64) error {
	query := s.sb.Delete("expenses").
		Where(sq.Eq{"id": id, "user_id": ownerID})

	res, err := query.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return dataErr("delete expense", err)
	}
	return requireRow(res, "expense not found")
}

func requireRow(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dataErr("rows affected", err)
	}
	if n == 0 {
		return &customerr.NotFoundError{Err: notFound}
	}
	return nil
}

func (s *sqlStorage) ListExpenses(ctx context.Context, ownerID int64, category string, from, to time.Time) ([]expense.Record, error) {
	query := s.sb.Select("id", "user_id", "category", "amount", "description", "date", "is_recurring").
		From("expenses").
		Where(sq.Eq{"user_id": ownerID})
	if category != "" {
		query = query.Where(sq.Eq{"category": category})
	}
	if !from.IsZero() {
		query = query.Where(sq.GtOrEq{"date": from.Format(period.DateLayout)})
	}
	if !to.IsZero() {
		query = query.Where(sq.LtOrEq{"date": to.Format(period.DateLayout)})
	}
	query = query.OrderBy("date", "id")

	return s.scanExpenses(ctx, query)
}

func (s *sqlStorage) ListRecurringExpenses(ctx context.Context) ([]expense.Record, error) {
	query := s.sb.Select("id", "user_id", "category", "amount", "description", "date", "is_recurring").
		From("expenses").
		Where(sq.Eq{"is_recurring": true}).
		OrderBy("id")

	return s.scanExpenses(ctx, query)
}

func (s *sqlStorage) scanExpenses(ctx context.Context, query sq.SelectBuilder) ([]expense.Record, error) {
	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, dataErr("list expenses", err)
	}
	defer rows.Close()

	res := make([]expense.Record, 0)
	for rows.Next() {
		var rec expense.Record
		var date string
		if err = rows.Scan(&rec.ID, &rec.OwnerID, &rec.Category, &rec.Amount, &rec.Description, &date, &rec.Recurring); err != nil {
			return nil, dataErr("list expenses", err)
		}
		rec.Date, err = time.ParseInLocation(period.DateLayout, date, time.UTC)
		if err != nil {
			return nil, dataErr("list expenses", err)
		}
		res = append(res, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, dataErr("list expenses", err)
	}
	return res, nil
}

func (s *sqlStorage) SumExpensesByCategory(ctx context.Context, ownerID int64, from, to time.Time) (map[string]decimal.Decimal, error) {
	query := s.sb.Select("category", "SUM(amount)").
		From("expenses").
		Where(sq.Eq{"user_id": ownerID}).
		Where(sq.GtOrEq{"date": from.Format(period.DateLayout)}).
		Where(sq.LtOrEq{"date": to.Format(period.DateLayout)}).
		GroupBy("category")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, dataErr("sum expenses", err)
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category string
		var total decimal.Decimal
		if err = rows.Scan(&category, &total); err != nil {
			return nil, dataErr("sum expenses", err)
		}
		totals[category] = total
	}
	if err = rows.Err(); err != nil {
		return nil, dataErr("sum expenses", err)
	}
	return totals, nil
}

func (s *sqlStorage) SetBudget(ctx context.Context, b expense.Budget) error {
	query := s.sb.Insert("budgets").
		Columns("user_id", "category", "amount").
		Values(b.OwnerID, b.Category, b.Amount).
		Suffix("ON CONFLICT(user_id, category) DO UPDATE SET amount = excluded.amount")

	_, err := query.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return dataErr("set budget", err)
	}
	return nil
}

func (s *sqlStorage) DeleteBudget(ctx context.Context, ownerID int64, category string) error {
	query := s.sb.Delete("budgets").
		Where(sq.Eq{"user_id": ownerID, "category": category})

	res, err := query.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return dataErr("delete budget", err)
	}
	return requireRow(res, "budget not found")
}

func (s *sqlStorage) ListBudgets(ctx context.Context, ownerID int64) ([]expense.Budget, error) {
	query := s.sb.Select("user_id", "category", "amount").
		From("budgets").
		Where(sq.Eq{"user_id": ownerID}).
		OrderBy("category")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, dataErr("list budgets", err)
	}
	defer rows.Close()

	res := make([]expense.Budget, 0)
	for rows.Next() {
		var b expense.Budget
		if err = rows.Scan(&b.OwnerID, &b.Category, &b.Amount); err != nil {
			return nil, dataErr("list budgets", err)
		}
		res = append(res, b)
	}
	if err = rows.Err(); err != nil {
		return nil, dataErr("list budgets", err)
	}
	return res, nil
}

func (s *sqlStorage) SetAlertThreshold(ctx context.Context, a expense.ThresholdAlert) error {
	query := s.sb.Insert("budget_alerts").
		Columns("user_id", "category", "threshold").
		Values(a.OwnerID, a.Category, a.Threshold).
		Suffix("ON CONFLICT(user_id, category) DO UPDATE SET threshold = excluded.threshold")

	_, err := query.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return dataErr("set alert", err)
	}
	return nil
}

func (s *sqlStorage) DeleteAlertThreshold(ctx context.Context, ownerID int64, category string) error {
	query := s.sb.Delete("budget_alerts").
		Where(sq.Eq{"user_id": ownerID, "category": category})

	res, err := query.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return dataErr("delete alert", err)
	}
	return requireRow(res, "alert not found")
}

func (s *sqlStorage) ListAlertThresholds(ctx context.Context, ownerID int64) ([]expense.ThresholdAlert, error) {
	query := s.sb.Select("user_id", "category", "threshold").
		From("budget_alerts").
		Where(sq.Eq{"user_id": ownerID}).
		OrderBy("category")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, dataErr("list alerts", err)
	}
	defer rows.Close()

	res := make([]expense.ThresholdAlert, 0)
	for rows.Next() {
		var a expense.ThresholdAlert
		if err = rows.Scan(&a.OwnerID, &a.Category, &a.Threshold); err != nil {
			return nil, dataErr("list alerts", err)
		}
		res = append(res, a)
	}
	if err = rows.Err(); err != nil {
		return nil, dataErr("list alerts", err)
	}
	return res, nil
}

func (s *sqlStorage) Close() error {
	return s.db.Close()
}
