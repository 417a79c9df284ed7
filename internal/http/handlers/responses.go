package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/apperr"
	"github.com/hongminglow/cabinet-be/internal/middleware"
	"github.com/hongminglow/cabinet-be/internal/models/dto"
	"github.com/hongminglow/cabinet-be/internal/rbac"
)

const maxBodyBytes = 1 << 20

// Guards are the route middlewares a handler needs. Nil entries are skipped.
type Guards struct {
	Session   func(http.Handler) http.Handler
	RateLimit func(http.Handler) http.Handler
	Mutations func(http.Handler) http.Handler
}

func pass(next http.Handler) http.Handler { return next }

func orPass(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return pass
	}
	return mw
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, v *dto.Validator, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("body", "request body is required")
		}
		return apperr.Invalid("body", "invalid JSON payload")
	}
	return v.Struct(dst)
}

func uuidParam(r *http.Request, name, entity string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.NotFound(entity, raw)
	}
	return id, nil
}

// actor names the authenticated caller for audit columns.
func actor(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok && claims.Email != "" {
		return claims.Email
	}
	return rbac.SystemActor
}
