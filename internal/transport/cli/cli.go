// Package cli is the interactive command-line adapter. One command per
// line, dispatched through a handler map; every error path prints a message
// and returns to the prompt.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/entity/user"
	"expense-tracker/internal/logger"
	"expense-tracker/internal/model/alerts"
	"expense-tracker/internal/model/customerr"
	"expense-tracker/internal/model/period"
	"expense-tracker/internal/model/summary"
	"expense-tracker/internal/model/tracker"
)

const (
	welcomeMessage        = "Expense tracker. Type 'help' to list commands."
	goodbyeMessage        = "Bye!"
	dontUnderstandMessage = "I don't understand that command. Type 'help'."
	notLoggedInMessage    = "Please login first"
	storeTroubleMessage   = "Can't reach the store right now. Try again later"
	genericTroubleMessage = "Sorry, something went wrong..."

	incorrectAmountMessage = "The amount is incorrect. Should be a positive number"
	incorrectDateMessage   = "The date is incorrect. Should be YYYY-MM-DD"
	incorrectIDMessage     = "The id is incorrect. Should be a number"
	incorrectHalfMessage   = "The half is incorrect. Should be 1 or 2"
)

type authService interface {
	Register(ctx context.Context, username, password string) (user.Record, error)
	Login(ctx context.Context, username, password string) (user.Record, error)
}

type trackerService interface {
	AddExpense(ctx context.Context, ownerID int64, in tracker.ExpenseInput) (expense.Record, []alerts.Message, error)
	UpdateExpense(ctx context.Context, ownerID, id int64, in tracker.ExpenseInput) error
	DeleteExpense(ctx context.Context, ownerID, id int64) error
	ListExpenses(ctx context.Context, ownerID int64, category string, scope period.Scope) ([]expense.Record, error)
	ListExpensesIn(ctx context.Context, ownerID int64, category string, p period.Period) ([]expense.Record, error)

	SetBudget(ctx context.Context, ownerID int64, category string, amount decimal.Decimal) (expense.Budget, error)
	Budgets(ctx context.Context, ownerID int64) ([]expense.Budget, error)
	DeleteBudget(ctx context.Context, ownerID int64, category string) error

	SetAlertThreshold(ctx context.Context, ownerID int64, category string, threshold decimal.Decimal) (expense.ThresholdAlert, error)
	DeleteAlertThreshold(ctx context.Context, ownerID int64, category string) error
	AlertThresholds(ctx context.Context, ownerID int64) ([]expense.ThresholdAlert, error)

	CheckAlerts(ctx context.Context, ownerID int64) ([]alerts.Message, error)
}

type summaryGenerator interface {
	Generate(ctx context.Context, ownerID int64, scope period.Scope) (summary.Result, error)
	GenerateFor(ctx context.Context, ownerID int64, p period.Period) (summary.Result, error)
}

type exporter interface {
	ToFile(ctx context.Context, ownerID int64, username string, scope period.Scope) (string, int, error)
}

type session struct {
	loggedIn bool
	userID   int64
	username string
}

type Service struct {
	handlersMap handlerMap
	auth        authService
	tracker     trackerService
	summary     summaryGenerator
	exporter    exporter
	session     session
}

func NewService(auth authService, trackerSvc trackerService, summaryGen summaryGenerator, exp exporter) *Service {
	res := &Service{
		auth:     auth,
		tracker:  trackerSvc,
		summary:  summaryGen,
		exporter: exp,
	}
	res.handlersMap = newMap(res)
	return res
}

// Run reads commands until EOF, ctx cancellation or 'quit'. It never
// returns a user mistake as an error: those are printed and the loop
// continues.
func (s *Service) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, welcomeMessage)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out, goodbyeMessage)
			return scanner.Err()
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, goodbyeMessage)
			return nil
		default:
		}

		resp, quit := s.HandleCommand(ctx, scanner.Text())
		if resp != "" {
			fmt.Fprintln(out, resp)
		}
		if quit {
			fmt.Fprintln(out, goodbyeMessage)
			return nil
		}
	}
}

// HandleCommand dispatches a single input line and renders the outcome.
func (s *Service) HandleCommand(ctx context.Context, line string) (resp string, quit bool) {
	cmd, arg := parseCommand(line)
	if cmd == "quit" || cmd == "exit" {
		return "", true
	}

	handler, ok := s.handlersMap[cmd]
	if !ok {
		return dontUnderstandMessage, false
	}

	resp, err := handler(ctx, arg)
	if err != nil {
		return renderError(resp, err), false
	}
	return resp, false
}

func parseCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	split := strings.SplitN(text, " ", 2)

	if len(split) == 2 {
		return split[0], strings.TrimSpace(split[1])
	}
	return text, ""
}

// renderError maps the error taxonomy onto what the user sees. A handler
// may have supplied its own message already; keep it in that case.
func renderError(resp string, err error) string {
	if resp != "" {
		return resp
	}
	switch {
	case customerr.IsValidation(err), customerr.IsNotFound(err):
		return err.Error()
	case customerr.IsDataAccess(err):
		logger.Error("store failure", zap.Error(err))
		return storeTroubleMessage
	default:
		logger.Error("command failed", zap.Error(err))
		return genericTroubleMessage
	}
}

func (s *Service) requireLogin() error {
	if !s.session.loggedIn {
		return &customerr.ValidationError{Err: notLoggedInMessage}
	}
	return nil
}
