package httpserver

import (
	"context"
	"net/http"

	"expense-tracker/internal/entity/user"
)

type contextKey struct{}

var userKey contextKey

// basicAuth verifies credentials on every request. There are no sessions
// or tokens, so each call carries the username and password.
func (h *Handler) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			unauthorized(w)
			return
		}

		u, err := h.auth.Login(r.Context(), username, password)
		if err != nil {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="expense-tracker"`)
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
}

// currentUser is only called from routes behind basicAuth, so the value is
// always present there.
func currentUser(ctx context.Context) user.Record {
	u, _ := ctx.Value(userKey).(user.Record)
	return u
}
