package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/entity/user"
	"expense-tracker/internal/logger"
	"expense-tracker/internal/model/alerts"
	"expense-tracker/internal/model/customerr"
	"expense-tracker/internal/model/export"
	"expense-tracker/internal/model/period"
	"expense-tracker/internal/model/summary"
	"expense-tracker/internal/model/tracker"
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

type csvExporter interface {
	Write(ctx context.Context, w io.Writer, ownerID int64, scope period.Scope) (int, error)
}

type Handler struct {
	auth     authService
	tracker  trackerService
	summary  summaryGenerator
	exporter csvExporter
}

func NewHandler(auth authService, trackerSvc trackerService, summaryGen summaryGenerator, exporter csvExporter) *Handler {
	return &Handler{
		auth:     auth,
		tracker:  trackerSvc,
		summary:  summaryGen,
		exporter: exporter,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type expenseRequest struct {
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date,omitempty"` // YYYY-MM-DD, empty means today
	Recurring   bool            `json:"recurring,omitempty"`
}

type expenseResponse struct {
	ID          int64            `json:"id"`
	Category    string           `json:"category"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description,omitempty"`
	Date        string           `json:"date"`
	Recurring   bool             `json:"recurring"`
	Alerts      []alertsResponse `json:"alerts,omitempty"`
}

type alertsResponse struct {
	Category  string          `json:"category"`
	Spent     decimal.Decimal `json:"spent"`
	Threshold decimal.Decimal `json:"threshold"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type categoryAmountResponse struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &customerr.ValidationError{Err: "invalid request payload"})
		return
	}

	u, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: u.ID, Username: u.Username})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &customerr.ValidationError{Err: "invalid request payload"})
		return
	}

	u, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: u.ID, Username: u.Username})
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &customerr.ValidationError{Err: "invalid request payload"})
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	rec, msgs, err := h.tracker.AddExpense(r.Context(), u.ID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := toExpenseResponse(rec)
	for _, m := range msgs {
		resp.Alerts = append(resp.Alerts, alertsResponse{Category: m.Category, Spent: m.Spent, Threshold: m.Threshold})
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())
	category := r.URL.Query().Get("category")

	var recs []expense.Record
	if p, ok, err := monthWindowParam(r); err != nil {
		writeError(w, err)
		return
	} else if ok {
		recs, err = h.tracker.ListExpensesIn(r.Context(), u.ID, category, p)
		if err != nil {
			writeError(w, err)
			return
		}
	} else {
		scope, err := scopeParam(r, period.ScopeAll)
		if err != nil {
			writeError(w, err)
			return
		}
		recs, err = h.tracker.ListExpenses(r.Context(), u.ID, category, scope)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	resp := make([]expenseResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, toExpenseResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req expenseRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &customerr.ValidationError{Err: "invalid request payload"})
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	if err = h.tracker.UpdateExpense(r.Context(), u.ID, id, in); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err = h.tracker.DeleteExpense(r.Context(), u.ID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &customerr.ValidationError{Err: "invalid request payload"})
		return
	}

	b, err := h.tracker.SetBudget(r.Context(), u.ID, chi.URLParam(r, "category"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryAmountResponse{Category: b.Category, Amount: b.Amount})
}

func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	budgets, err := h.tracker.Budgets(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]categoryAmountResponse, 0, len(budgets))
	for _, b := range budgets {
		resp = append(resp, categoryAmountResponse{Category: b.Category, Amount: b.Amount})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	if err := h.tracker.DeleteBudget(r.Context(), u.ID, chi.URLParam(r, "category")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetAlert(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &customerr.ValidationError{Err: "invalid request payload"})
		return
	}

	a, err := h.tracker.SetAlertThreshold(r.Context(), u.ID, chi.URLParam(r, "category"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryAmountResponse{Category: a.Category, Amount: a.Threshold})
}

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	thresholds, err := h.tracker.AlertThresholds(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]categoryAmountResponse, 0, len(thresholds))
	for _, a := range thresholds {
		resp = append(resp, categoryAmountResponse{Category: a.Category, Amount: a.Threshold})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	if err := h.tracker.DeleteAlertThreshold(r.Context(), u.ID, chi.URLParam(r, "category")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CheckAlerts(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	msgs, err := h.tracker.CheckAlerts(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]alertsResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, alertsResponse{Category: m.Category, Spent: m.Spent, Threshold: m.Threshold})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	if p, ok, err := monthWindowParam(r); err != nil {
		writeError(w, err)
		return
	} else if ok {
		res, err := h.summary.GenerateFor(r.Context(), u.ID, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	scope, err := scopeParam(r, period.ScopeCurrent)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.summary.Generate(r.Context(), u.ID, scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	scope, err := scopeParam(r, period.ScopeAll)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(u.Username, time.Now())))

	if _, err = h.exporter.Write(r.Context(), w, u.ID, scope); err != nil {
		// headers are gone already, all we can do is log
		logger.Error("csv export failed", zap.Error(err), zap.Int64("ownerID", u.ID))
	}
}

func (r expenseRequest) toInput() (tracker.ExpenseInput, error) {
	in := tracker.ExpenseInput{
		Category:    r.Category,
		Amount:      r.Amount,
		Description: r.Description,
		Recurring:   r.Recurring,
	}
	if r.Date != "" {
		d, err := time.Parse(period.DateLayout, r.Date)
		if err != nil {
			return tracker.ExpenseInput{}, &customerr.ValidationError{Err: "date must be YYYY-MM-DD"}
		}
		in.Date = d
	}
	return in, nil
}

func toExpenseResponse(rec expense.Record) expenseResponse {
	return expenseResponse{
		ID:          rec.ID,
		Category:    rec.Category,
		Amount:      rec.Amount,
		Description: rec.Description,
		Date:        rec.Date.Format(period.DateLayout),
		Recurring:   rec.Recurring,
	}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &customerr.ValidationError{Err: "invalid expense id"}
	}
	return id, nil
}

// monthWindowParam reads scope=YYYY-MM plus half=1|2, selecting one half of
// a historical month. Reports ok=false when scope is not a year-month.
func monthWindowParam(r *http.Request) (period.Period, bool, error) {
	m, err := time.Parse("2006-01", r.URL.Query().Get("scope"))
	if err != nil {
		return period.Period{}, false, nil
	}

	windows := period.ForMonth(m.Year(), m.Month())
	switch r.URL.Query().Get("half") {
	case "1":
		return windows[0], true, nil
	case "2":
		return windows[1], true, nil
	default:
		return period.Period{}, false, &customerr.ValidationError{Err: "half must be 1 or 2 for a year-month scope"}
	}
}

func scopeParam(r *http.Request, def period.Scope) (period.Scope, error) {
	switch strings.ToLower(r.URL.Query().Get("scope")) {
	case "":
		return def, nil
	case "current":
		return period.ScopeCurrent, nil
	case "previous":
		return period.ScopePrevious, nil
	case "all":
		return period.ScopeAll, nil
	default:
		return def, &customerr.ValidationError{Err: "scope must be current, previous or all"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("cannot encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case customerr.IsValidation(err):
		status = http.StatusBadRequest
		msg = err.Error()
	case customerr.IsNotFound(err):
		status = http.StatusNotFound
		msg = err.Error()
	case customerr.IsDataAccess(err):
		status = http.StatusServiceUnavailable
		msg = "storage unavailable"
		logger.Error("store failure", zap.Error(err))
	default:
		logger.Error("request failed", zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: msg})
}
