package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/cabinet-be/internal/http/respond"
	"github.com/hongminglow/cabinet-be/internal/models/dto"
	"github.com/hongminglow/cabinet-be/internal/rbac"
)

// UserRoleHandler manages the roles assigned to a principal.
type UserRoleHandler struct {
	authz    *rbac.Authorizer
	validate *dto.Validator
	logger   *slog.Logger
}

func NewUserRoleHandler(authz *rbac.Authorizer, validate *dto.Validator, logger *slog.Logger) *UserRoleHandler {
	return &UserRoleHandler{authz: authz, validate: validate, logger: logger}
}

// Register mounts /users/{userId}/roles on r.
func (h *UserRoleHandler) Register(r chi.Router, guards Guards) {
	r.Route("/users/{userId}/roles", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Group(func(r chi.Router) {
			r.Use(orPass(guards.Mutations))
			r.Put("/", h.handleReplace)
			r.Post("/{roleId}", h.handleAdd)
			r.Delete("/{roleId}", h.handleRemove)
		})
	})
}

func (h *UserRoleHandler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, err := uuidParam(r, "userId", "principal")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	roles, err := h.authz.Roles(r.Context(), userID)
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", roles)
}

func (h *UserRoleHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	userID, err := uuidParam(r, "userId", "principal")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	roleID, err := uuidParam(r, "roleId", "role")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	if err := h.authz.AddRole(r.Context(), actor(r), userID, roleID); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "role assigned", nil)
}

func (h *UserRoleHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	userID, err := uuidParam(r, "userId", "principal")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	roleID, err := uuidParam(r, "roleId", "role")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	if err := h.authz.RemoveRole(r.Context(), actor(r), userID, roleID); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "role removed", nil)
}

func (h *UserRoleHandler) handleReplace(w http.ResponseWriter, r *http.Request) {
	userID, err := uuidParam(r, "userId", "principal")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	var req dto.RoleIDsRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	roles, err := h.authz.ReplaceRoles(r.Context(), actor(r), userID, req.RoleIDs)
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "roles replaced", roles)
}
