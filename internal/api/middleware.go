// Package api implements the mindmaps REST API using chi.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/mindmaps/internal/authservice"
	"github.com/starford/mindmaps/internal/models"
)

type ctxKey struct{}

// UserFromContext returns the user attached by AuthMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// AuthMiddleware resolves "Authorization: Bearer <token>" to a live user and
// stores it in the request context. Every credential failure gets the same 401.
func AuthMiddleware(auth *authservice.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w)
				return
			}
			u, err := auth.Authenticate(r.Context(), tok)
			if err != nil {
				writeError(w, "authenticate", err, slog.String("path", r.URL.Path))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
