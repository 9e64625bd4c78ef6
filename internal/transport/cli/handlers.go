package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/model/customerr"
	"expense-tracker/internal/model/period"
	"expense-tracker/internal/model/summary"
	"expense-tracker/internal/model/tracker"
)

const helpMessage = `Commands:
  register <username> <password>
  login <username> <password>
  logout
  expense <category> <amount> [date] [description]   add an expense (date YYYY-MM-DD, default today)
  recurring <category> <amount> [date] [description] add a recurring expense template
  expenses [current|previous|all] [category]         list expenses (default all)
  expenses <YYYY-MM> <1|2> [category]                list a historical half-month
  edit <id> <category> <amount> [date] [description] replace an expense
  delete <id>                                        remove an expense
  budget <category> <amount>                         set a biweekly budget
  budgets                                            list budgets
  unbudget <category>                                remove a budget
  alert <category> <threshold>                       set an alert threshold
  alerts                                             list alert thresholds
  unalert <category>                                 remove an alert threshold
  check                                              evaluate alerts for the current period
  summary [current|previous]                         biweekly summary (default current)
  summary <YYYY-MM> <1|2>                            summary for a historical half-month
  export [current|previous|all]                      write expenses to a CSV file (default all)
  quit`

// monthLayout parses the year-month of a historical period selection.
const monthLayout = "2006-01"

type handler func(ctx context.Context, arg string) (string, error)

type handlerMap map[string]handler

func newMap(s *Service) handlerMap {
	return handlerMap{
		"help":      s.helpHandler,
		"register":  s.registerHandler,
		"login":     s.loginHandler,
		"logout":    s.logoutHandler,
		"expense":   s.addExpenseHandler,
		"recurring": s.addRecurringHandler,
		"expenses":  s.listExpensesHandler,
		"edit":      s.editExpenseHandler,
		"delete":    s.deleteExpenseHandler,
		"budget":    s.setBudgetHandler,
		"budgets":   s.listBudgetsHandler,
		"unbudget":  s.deleteBudgetHandler,
		"alert":     s.setAlertHandler,
		"alerts":    s.listAlertsHandler,
		"unalert":   s.deleteAlertHandler,
		"check":     s.checkAlertsHandler,
		"summary":   s.summaryHandler,
		"export":    s.exportHandler,
	}
}

func (s *Service) helpHandler(_ context.Context, _ string) (string, error) {
	return helpMessage, nil
}

func (s *Service) registerHandler(ctx context.Context, arg string) (string, error) {
	username, password, err := credentials(arg, "register")
	if err != nil {
		return "", err
	}

	u, err := s.auth.Register(ctx, username, password)
	if err != nil {
		return "", err
	}
	s.session = session{loggedIn: true, userID: u.ID, username: u.Username}
	return fmt.Sprintf("Welcome, %s! You are now logged in", u.Username), nil
}

func (s *Service) loginHandler(ctx context.Context, arg string) (string, error) {
	username, password, err := credentials(arg, "login")
	if err != nil {
		return "", err
	}

	u, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return "", err
	}
	s.session = session{loggedIn: true, userID: u.ID, username: u.Username}
	return fmt.Sprintf("Logged in as %s", u.Username), nil
}

func (s *Service) logoutHandler(_ context.Context, _ string) (string, error) {
	if !s.session.loggedIn {
		return "You are not logged in", nil
	}
	s.session = session{}
	return "Logged out", nil
}

func (s *Service) addExpenseHandler(ctx context.Context, arg string) (string, error) {
	return s.addExpense(ctx, arg, false)
}

func (s *Service) addRecurringHandler(ctx context.Context, arg string) (string, error) {
	return s.addExpense(ctx, arg, true)
}

func (s *Service) addExpense(ctx context.Context, arg string, recurring bool) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	in, err := parseExpenseInput(arg)
	if err != nil {
		return "", err
	}
	in.Recurring = recurring

	rec, msgs, err := s.tracker.AddExpense(ctx, s.session.userID, in)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Saved: %s $%s on %s (id %d)",
		rec.Category, rec.Amount.StringFixed(2), rec.Date.Format(period.DateLayout), rec.ID)
	for _, m := range msgs {
		sb.WriteString("\n")
		sb.WriteString(m.String())
	}
	return sb.String(), nil
}

func (s *Service) listExpensesHandler(ctx context.Context, arg string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}

	var recs []expense.Record
	if p, rest, ok, err := parseMonthHalf(arg); err != nil {
		return "", err
	} else if ok {
		recs, err = s.tracker.ListExpensesIn(ctx, s.session.userID, strings.TrimSpace(rest), p)
		if err != nil {
			return "", err
		}
	} else {
		scope, rest := parseScope(arg, period.ScopeAll)
		recs, err = s.tracker.ListExpenses(ctx, s.session.userID, strings.TrimSpace(rest), scope)
		if err != nil {
			return "", err
		}
	}
	if len(recs) == 0 {
		return "No expenses found", nil
	}

	var sb strings.Builder
	for i, r := range recs {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s  %s  $%s", r.ID, r.Date.Format(period.DateLayout), r.Category, r.Amount.StringFixed(2))
		if r.Description != "" {
			fmt.Fprintf(&sb, "  %s", r.Description)
		}
		if r.Recurring {
			sb.WriteString("  (recurring)")
		}
	}
	return sb.String(), nil
}

func (s *Service) editExpenseHandler(ctx context.Context, arg string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	idStr, rest := splitFirst(arg)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", &customerr.ValidationError{Err: incorrectIDMessage}
	}
	in, err := parseExpenseInput(rest)
	if err != nil {
		return "", err
	}

	if err = s.tracker.UpdateExpense(ctx, s.session.userID, id, in); err != nil {
		return "", err
	}
	return fmt.Sprintf("Expense %d updated", id), nil
}

func (s *Service) deleteExpenseHandler(ctx context.Context, arg string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return "", &customerr.ValidationError{Err: incorrectIDMessage}
	}

	if err = s.tracker.DeleteExpense(ctx, s.session.userID, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Expense %d deleted", id), nil
}

func (s *Service) setBudgetHandler(ctx context.Context, arg string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	category, amount, err := categoryAmount(arg, "budget")
	if err != nil {
		return "", err
	}

	b, err := s.tracker.SetBudget(ctx, s.session.userID, category, amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Budget for %s set to $%s per period", b.Category, b.Amount.StringFixed(2)), nil
}

func (s *Service) listBudgetsHandler(ctx context.Context, _ string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	budgets, err := s.tracker.Budgets(ctx, s.session.userID)
	if err != nil {
		return "", err
	}
	if len(budgets) == 0 {
		return "No budgets configured", nil
	}

	lines := make([]string, 0, len(budgets))
	for _, b := range budgets {
		lines = append(lines, fmt.Sprintf("%s: $%s", b.Category, b.Amount.StringFixed(2)))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) deleteBudgetHandler(ctx context.Context, arg string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	category := strings.TrimSpace(arg)
	if category == "" {
		return "", &customerr.ValidationError{Err: "usage: unbudget <category>"}
	}

	if err := s.tracker.DeleteBudget(ctx, s.session.userID, category); err != nil {
		return "", err
	}
	return fmt.Sprintf("Budget for %s removed", category), nil
}

func (s *Service) setAlertHandler(ctx context.Context, arg string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	category, threshold, err := categoryAmount(arg, "alert")
	if err != nil {
		return "", err
	}

	a, err := s.tracker.SetAlertThreshold(ctx, s.session.userID, category, threshold)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Alert for %s set at $%s per period", a.Category, a.Threshold.StringFixed(2)), nil
}

func (s *Service) listAlertsHandler(ctx context.Context, _ string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	thresholds, err := s.tracker.AlertThresholds(ctx, s.session.userID)
	if err != nil {
		return "", err
	}
	if len(thresholds) == 0 {
		return "No alerts configured", nil
	}

	lines := make([]string, 0, len(thresholds))
	for _, a := range thresholds {
		lines = append(lines, fmt.Sprintf("%s: $%s", a.Category, a.Threshold.StringFixed(2)))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) deleteAlertHandler(ctx context.Context, arg string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	category := strings.TrimSpace(arg)
	if category == "" {
		return "", &customerr.ValidationError{Err: "usage: unalert <category>"}
	}

	if err := s.tracker.DeleteAlertThreshold(ctx, s.session.userID, category); err != nil {
		return "", err
	}
	return fmt.Sprintf("Alert for %s removed", category), nil
}

func (s *Service) checkAlertsHandler(ctx context.Context, _ string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	msgs, err := s.tracker.CheckAlerts(ctx, s.session.userID)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "All good, no alerts triggered", nil
	}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.String())
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) summaryHandler(ctx context.Context, arg string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}

	if p, _, ok, err := parseMonthHalf(arg); err != nil {
		return "", err
	} else if ok {
		res, err := s.summary.GenerateFor(ctx, s.session.userID, p)
		if err != nil {
			return "", err
		}
		return summary.Format(res), nil
	}

	scope, _ := parseScope(arg, period.ScopeCurrent)
	if scope == period.ScopeAll {
		return "", &customerr.ValidationError{Err: "summary covers one period, use current, previous or a year-month"}
	}

	res, err := s.summary.Generate(ctx, s.session.userID, scope)
	if err != nil {
		return "", err
	}
	return summary.Format(res), nil
}

func (s *Service) exportHandler(ctx context.Context, arg string) (string, error) {
	if err := s.requireLogin(); err != nil {
		return "", err
	}
	scope, _ := parseScope(arg, period.ScopeAll)

	path, n, err := s.exporter.ToFile(ctx, s.session.userID, s.session.username, scope)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Exported %d expenses to %s", n, path), nil
}

func splitFirst(arg string) (first, rest string) {
	split := strings.SplitN(strings.TrimSpace(arg), " ", 2)
	if len(split) == 2 {
		return split[0], strings.TrimSpace(split[1])
	}
	return split[0], ""
}

func credentials(arg, cmd string) (username, password string, err error) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return "", "", &customerr.ValidationError{Err: fmt.Sprintf("usage: %s <username> <password>", cmd)}
	}
	return fields[0], fields[1], nil
}

func categoryAmount(arg, cmd string) (string, decimal.Decimal, error) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return "", decimal.Decimal{}, &customerr.ValidationError{Err: fmt.Sprintf("usage: %s <category> <amount>", cmd)}
	}
	amount, err := decimal.NewFromString(fields[1])
	if err != nil {
		return "", decimal.Decimal{}, &customerr.ValidationError{Err: incorrectAmountMessage}
	}
	return fields[0], amount, nil
}

// parseExpenseInput reads "<category> <amount> [date] [description...]".
// The third token counts as a date only when it parses as one, so
// descriptions do not need quoting.
func parseExpenseInput(arg string) (tracker.ExpenseInput, error) {
	fields := strings.Fields(arg)
	if len(fields) < 2 {
		return tracker.ExpenseInput{}, &customerr.ValidationError{Err: "usage: expense <category> <amount> [date] [description]"}
	}

	amount, err := decimal.NewFromString(fields[1])
	if err != nil {
		return tracker.ExpenseInput{}, &customerr.ValidationError{Err: incorrectAmountMessage}
	}

	in := tracker.ExpenseInput{Category: fields[0], Amount: amount}
	rest := fields[2:]
	if len(rest) > 0 {
		if d, derr := time.Parse(period.DateLayout, rest[0]); derr == nil {
			in.Date = d
			rest = rest[1:]
		} else if looksLikeDate(rest[0]) {
			return tracker.ExpenseInput{}, &customerr.ValidationError{Err: incorrectDateMessage}
		}
	}
	in.Description = strings.Join(rest, " ")
	return in, nil
}

func looksLikeDate(s string) bool {
	return strings.Count(s, "-") == 2 && len(s) >= 8
}

// parseMonthHalf reads "<YYYY-MM> <1|2>" from the front of arg, selecting
// one half of a historical month. Reports ok=false when arg does not start
// with a year-month.
func parseMonthHalf(arg string) (period.Period, string, bool, error) {
	first, rest := splitFirst(arg)
	m, err := time.Parse(monthLayout, first)
	if err != nil {
		return period.Period{}, arg, false, nil
	}

	half, rest := splitFirst(rest)
	windows := period.ForMonth(m.Year(), m.Month())
	switch half {
	case "1":
		return windows[0], rest, true, nil
	case "2":
		return windows[1], rest, true, nil
	default:
		return period.Period{}, "", false, &customerr.ValidationError{Err: incorrectHalfMessage}
	}
}

func parseScope(arg string, def period.Scope) (period.Scope, string) {
	first, rest := splitFirst(arg)
	switch strings.ToLower(first) {
	case "current":
		return period.ScopeCurrent, rest
	case "previous":
		return period.ScopePrevious, rest
	case "all":
		return period.ScopeAll, rest
	default:
		return def, strings.TrimSpace(arg)
	}
}
