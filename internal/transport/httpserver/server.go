// Package httpserver exposes the tracker over JSON HTTP. All domain routes
// sit behind basic auth; /metrics and the auth endpoints are open.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"expense-tracker/internal/logger"
)

type Server struct {
	router chi.Router
	port   int
}

func NewServer(h *Handler, port int) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	r.Route("/api", func(api chi.Router) {
		api.Use(h.basicAuth)

		api.Post("/expenses", h.CreateExpense)
		api.Get("/expenses", h.ListExpenses)
		api.Put("/expenses/{id}", h.UpdateExpense)
		api.Delete("/expenses/{id}", h.DeleteExpense)

		api.Put("/budgets/{category}", h.SetBudget)
		api.Get("/budgets", h.ListBudgets)
		api.Delete("/budgets/{category}", h.DeleteBudget)

		api.Put("/alerts/{category}", h.SetAlert)
		api.Get("/alerts", h.ListAlerts)
		api.Delete("/alerts/{category}", h.DeleteAlert)
		api.Post("/alerts/check", h.CheckAlerts)

		api.Get("/summary", h.Summary)
		api.Get("/export", h.Export)
	})

	return &Server{router: r, port: port}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", s.port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
