package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/viradabrew/storefront/internal/httpx"
)

type contextKey string

const claimsKey contextKey = "auth.claims"

// WithClaims stamps verified claims onto a request context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// UserID returns the authenticated user's id, or "" when unauthenticated.
func UserID(ctx context.Context) string {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c.Subject
	}
	return ""
}

func UserEmail(ctx context.Context) string {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c.Email
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c.Admin
	}
	return false
}

type Middleware struct {
	issuer *TokenIssuer
	logger *slog.Logger
}

func NewMiddleware(issuer *TokenIssuer, logger *slog.Logger) *Middleware {
	return &Middleware{issuer: issuer, logger: logger}
}

// Require rejects requests without a valid bearer token.
func (m *Middleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			httpx.Fail(w, m.logger, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := m.issuer.Verify(tokenString)
		if err != nil {
			m.logger.Warn("rejected token", "error", err)
			httpx.Fail(w, m.logger, http.StatusUnauthorized, "invalid token")
			return
		}

		next(w, r.WithContext(WithClaims(r.Context(), claims)))
	}
}

// RequireAdmin additionally checks the admin claim.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.Require(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			httpx.Fail(w, m.logger, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}
