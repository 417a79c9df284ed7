package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/hongminglow/cabinet-be/internal/apperr"
	"github.com/hongminglow/cabinet-be/internal/auth"
	"github.com/hongminglow/cabinet-be/internal/http/respond"
)

// SessionParser verifies session tokens. *auth.TokenManager satisfies it.
type SessionParser interface {
	ParseSession(token string) (*auth.SessionClaims, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the session claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*auth.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*auth.SessionClaims)
	return claims, ok
}

// WithClaims stores claims on ctx.
func WithClaims(ctx context.Context, claims *auth.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// Authenticate rejects requests without a valid session bearer token.
func Authenticate(tokens SessionParser, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				respond.Err(w, logger, apperr.ErrInvalidToken)
				return
			}
			claims, err := tokens.ParseSession(token)
			if err != nil {
				respond.Err(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAny lets the request through when the session carries at least one
// of perms. It must run after Authenticate.
func RequireAny(logger *slog.Logger, perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				respond.Err(w, logger, apperr.ErrInvalidToken)
				return
			}
			for _, p := range perms {
				if slices.Contains(claims.Permissions, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			respond.Err(w, logger, apperr.ErrForbidden)
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	const bearer = "bearer "
	value := r.Header.Get("Authorization")
	if len(value) <= len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	return token, token != ""
}
