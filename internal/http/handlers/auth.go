package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/apperr"
	"github.com/hongminglow/cabinet-be/internal/auth"
	"github.com/hongminglow/cabinet-be/internal/http/respond"
	"github.com/hongminglow/cabinet-be/internal/middleware"
	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/models/dto"
)

// AuthHandler owns registration, login and password reset endpoints.
type AuthHandler struct {
	svc      *auth.Service
	validate *dto.Validator
	logger   *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *auth.Service, validate *dto.Validator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, validate: validate, logger: logger}
}

// Register attaches auth routes under /auth.
func (h *AuthHandler) Register(r chi.Router, guards Guards) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register/{kind}", h.handleRegister)
		r.Group(func(r chi.Router) {
			r.Use(orPass(guards.RateLimit))
			r.Post("/login", h.handleLogin)
			r.Post("/login/{kind}", h.handleLoginAs)
			r.Post("/forgot-password", h.handleForgotPassword)
		})
		r.Post("/reset-password", h.handleResetPassword)
		r.With(orPass(guards.Session)).Get("/me", h.handleMe)
	})
}

var registerKinds = map[string]models.Kind{
	"user":      models.KindUser,
	"patient":   models.KindPatient,
	"medecin":   models.KindMedecin,
	"assistant": models.KindAssistant,
}

var loginKinds = map[string]models.Kind{
	"patient":   models.KindPatient,
	"medecin":   models.KindMedecin,
	"assistant": models.KindAssistant,
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	kind, ok := registerKinds[strings.ToLower(chi.URLParam(r, "kind"))]
	if !ok {
		respond.Error(w, http.StatusNotFound, "unknown account kind")
		return
	}
	var req dto.RegisterRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	created, err := h.svc.Register(r.Context(), "", req.Input(kind))
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "account created", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	token, err := h.svc.Login(r.Context(), req.Input())
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token})
}

func (h *AuthHandler) handleLoginAs(w http.ResponseWriter, r *http.Request) {
	kind, ok := loginKinds[strings.ToLower(chi.URLParam(r, "kind"))]
	if !ok {
		respond.Error(w, http.StatusNotFound, "unknown account kind")
		return
	}
	var req dto.LoginRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	token, err := h.svc.LoginAs(r.Context(), kind, req.Input())
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token})
}

func (h *AuthHandler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "reset link sent", nil)
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		respond.Err(w, h.logger, apperr.ErrInvalidToken)
		return
	}
	var req dto.ResetPasswordRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), token, req.Password, req.ConfirmPassword); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "password updated", nil)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Err(w, h.logger, apperr.ErrInvalidToken)
		return
	}
	id, err := uuid.Parse(claims.PrincipalID)
	if err != nil {
		respond.Err(w, h.logger, apperr.ErrInvalidToken)
		return
	}
	profile, err := h.svc.Me(r.Context(), id)
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", profile)
}
