package cli

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-tracker/internal/model/alerts"
	"expense-tracker/internal/model/auth"
	"expense-tracker/internal/model/export"
	"expense-tracker/internal/model/storage"
	"expense-tracker/internal/model/summary"
	"expense-tracker/internal/model/tracker"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	st := storage.NewMemStorage()
	evaluator := alerts.NewEvaluator(st)
	trackerSvc := tracker.NewService(st, evaluator, nil, nil)
	summaryGen := summary.NewGenerator(st, nil)
	exporter := export.NewExporter(st, t.TempDir())

	return NewService(auth.NewService(st), trackerSvc, summaryGen, exporter)
}

func run(t *testing.T, s *Service, line string) string {
	t.Helper()
	resp, quit := s.HandleCommand(context.Background(), line)
	require.False(t, quit)
	return resp
}

func TestService_UnknownCommand(t *testing.T) {
	s := newTestService(t)

	resp := run(t, s, "frobnicate now")

	assert.Equal(t, dontUnderstandMessage, resp)
}

func TestService_QuitCommand(t *testing.T) {
	s := newTestService(t)

	_, quit := s.HandleCommand(context.Background(), "quit")

	assert.True(t, quit)
}

func TestService_RequiresLogin(t *testing.T) {
	s := newTestService(t)

	resp := run(t, s, "expense food 12.50")

	assert.Equal(t, notLoggedInMessage, resp)
}

func TestService_RegisterLoginLogout(t *testing.T) {
	s := newTestService(t)

	resp := run(t, s, "register alice secret1")
	assert.Contains(t, resp, "alice")
	assert.True(t, s.session.loggedIn)

	resp = run(t, s, "logout")
	assert.Equal(t, "Logged out", resp)
	assert.False(t, s.session.loggedIn)

	resp = run(t, s, "login alice secret1")
	assert.Equal(t, "Logged in as alice", resp)

	resp = run(t, s, "login alice wrongpass")
	assert.Contains(t, resp, "invalid username or password")
}

func TestService_AddAndListExpenses(t *testing.T) {
	s := newTestService(t)
	run(t, s, "register alice secret1")

	resp := run(t, s, "expense Food 12.50 2024-08-03 groceries at the market")
	assert.Contains(t, resp, "food")
	assert.Contains(t, resp, "$12.50")
	assert.Contains(t, resp, "2024-08-03")

	run(t, s, "expense taxi 30 2024-08-20")

	resp = run(t, s, "expenses")
	assert.Contains(t, resp, "food")
	assert.Contains(t, resp, "groceries at the market")
	assert.Contains(t, resp, "taxi")

	resp = run(t, s, "expenses all food")
	assert.Contains(t, resp, "food")
	assert.NotContains(t, resp, "taxi")
}

func TestService_AddExpense_BadInput(t *testing.T) {
	s := newTestService(t)
	run(t, s, "register alice secret1")

	assert.Equal(t, incorrectAmountMessage, run(t, s, "expense food twelve"))
	assert.Equal(t, incorrectDateMessage, run(t, s, "expense food 10 2024-13-99"))
	assert.Contains(t, run(t, s, "expense food"), "usage:")
}

func TestService_ListExpenses_MonthHalf(t *testing.T) {
	s := newTestService(t)
	run(t, s, "register alice secret1")
	run(t, s, "expense food 10 2024-08-03")
	run(t, s, "expense taxi 30 2024-08-20")

	resp := run(t, s, "expenses 2024-08 1")
	assert.Contains(t, resp, "food")
	assert.NotContains(t, resp, "taxi")

	resp = run(t, s, "expenses 2024-08 2")
	assert.Contains(t, resp, "taxi")
	assert.NotContains(t, resp, "food")

	resp = run(t, s, "expenses 2024-08 2 taxi")
	assert.Contains(t, resp, "taxi")

	assert.Equal(t, incorrectHalfMessage, run(t, s, "expenses 2024-08 3"))
	assert.Equal(t, incorrectHalfMessage, run(t, s, "expenses 2024-08"))
}

func TestService_Summary_MonthHalf(t *testing.T) {
	s := newTestService(t)
	run(t, s, "register alice secret1")
	run(t, s, "expense food 10 2024-08-03")
	run(t, s, "expense taxi 30 2024-08-20")

	resp := run(t, s, "summary 2024-08 2")
	assert.Contains(t, resp, "Biweekly period: 2024-08-16 to 2024-08-31")
	assert.Contains(t, resp, "taxi: $30.00")
	assert.NotContains(t, resp, "food")
}

func TestService_EditAndDelete(t *testing.T) {
	s := newTestService(t)
	run(t, s, "register alice secret1")
	run(t, s, "expense food 10 2024-08-03")

	resp := run(t, s, "edit 1 food 15 2024-08-03")
	assert.Equal(t, "Expense 1 updated", resp)

	resp = run(t, s, "expenses")
	assert.Contains(t, resp, "$15.00")

	resp = run(t, s, "delete 1")
	assert.Equal(t, "Expense 1 deleted", resp)

	resp = run(t, s, "expenses")
	assert.Equal(t, "No expenses found", resp)

	resp = run(t, s, "delete 42")
	assert.Contains(t, resp, "not found")

	assert.Equal(t, incorrectIDMessage, run(t, s, "delete abc"))
}

func TestService_BudgetsAndAlerts(t *testing.T) {
	s := newTestService(t)
	run(t, s, "register alice secret1")

	resp := run(t, s, "budget food 200")
	assert.Contains(t, resp, "$200.00")

	resp = run(t, s, "budgets")
	assert.Contains(t, resp, "food: $200.00")

	resp = run(t, s, "unbudget food")
	assert.Contains(t, resp, "removed")
	assert.Equal(t, "No budgets configured", run(t, s, "budgets"))

	resp = run(t, s, "alert taxi -5")
	assert.Contains(t, resp, "positive")

	run(t, s, "alert taxi 25")
	resp = run(t, s, "alerts")
	assert.Contains(t, resp, "taxi: $25.00")
}

func TestService_AlertFiresOnAdd(t *testing.T) {
	s := newTestService(t)
	run(t, s, "register alice secret1")
	run(t, s, "alert food 20")

	today := time.Now().Format("2006-01-02")
	resp := run(t, s, fmt.Sprintf("expense food 30 %s", today))

	assert.Contains(t, resp, "⚠️")
	assert.Contains(t, resp, "threshold: $20.00")

	resp = run(t, s, "check")
	assert.Contains(t, resp, "⚠️")
}

func TestService_Summary(t *testing.T) {
	s := newTestService(t)
	run(t, s, "register alice secret1")

	today := time.Now().Format("2006-01-02")
	run(t, s, fmt.Sprintf("expense food 30 %s", today))
	run(t, s, "budget food 100")

	resp := run(t, s, "summary")
	assert.Contains(t, resp, "food: $30.00")
	assert.Contains(t, resp, "Total: $30.00")

	resp = run(t, s, "summary all")
	assert.Contains(t, resp, "one period")
}

func TestService_Export(t *testing.T) {
	s := newTestService(t)
	run(t, s, "register alice secret1")
	run(t, s, "expense food 10 2024-08-03")

	resp := run(t, s, "export")

	assert.True(t, strings.HasPrefix(resp, "Exported 1 expenses to "), resp)
	assert.Contains(t, resp, "expenses_alice_")
}
