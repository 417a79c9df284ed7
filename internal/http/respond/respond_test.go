package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/cabinet-be/internal/apperr"
)

type envelope struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    []apperr.FieldError `json:"data"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

func TestErrStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: apperr.NotFound("role", "42"), want: http.StatusNotFound},
		{name: "already assigned", err: apperr.AlreadyAssigned("p1"), want: http.StatusBadRequest},
		{name: "already exists", err: fmt.Errorf("create: %w", apperr.ErrAlreadyExists), want: http.StatusConflict},
		{name: "bad credentials", err: apperr.ErrAuthenticationFailed, want: http.StatusUnauthorized},
		{name: "bad token", err: fmt.Errorf("parse: %w", apperr.ErrInvalidToken), want: http.StatusUnauthorized},
		{name: "forbidden", err: apperr.ErrForbidden, want: http.StatusForbidden},
		{name: "validation", err: apperr.Invalid("email", "required"), want: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Err(rr, nil, tc.err)
			assert.Equal(t, tc.want, rr.Code)
			assert.Equal(t, tc.want, decode(t, rr).Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		})
	}
}

func TestErrNotFoundNamesID(t *testing.T) {
	rr := httptest.NewRecorder()
	Err(rr, nil, apperr.NotFound("role", "7f1c"))
	assert.Contains(t, decode(t, rr).Message, "7f1c")
}

func TestErrValidationCarriesFields(t *testing.T) {
	rr := httptest.NewRecorder()
	Err(rr, nil, &apperr.ValidationError{Fields: []apperr.FieldError{
		{Field: "email", Message: "must be a valid email"},
		{Field: "password", Message: "is required"},
	}})
	env := decode(t, rr)
	assert.Equal(t, "validation failed", env.Message)
	require.Len(t, env.Data, 2)
	assert.Equal(t, "password", env.Data[1].Field)
}

func TestErrHidesInternalCause(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	rr := httptest.NewRecorder()
	Err(rr, logger, errors.New("pq: connection refused on 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "10.0.0.3")
	assert.Contains(t, logs.String(), "10.0.0.3")
}

func TestJSONOmitsEmptyData(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusOK, "ok", nil)
	assert.JSONEq(t, `{"code":200,"message":"ok"}`, rr.Body.String())
}
