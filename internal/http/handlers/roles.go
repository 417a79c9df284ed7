package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/cabinet-be/internal/http/respond"
	"github.com/hongminglow/cabinet-be/internal/models/dto"
	"github.com/hongminglow/cabinet-be/internal/rbac"
)

// RoleHandler exposes role and permission management.
type RoleHandler struct {
	roles    *rbac.Manager
	validate *dto.Validator
	logger   *slog.Logger
}

func NewRoleHandler(roles *rbac.Manager, validate *dto.Validator, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{roles: roles, validate: validate, logger: logger}
}

// Register mounts /permissions and /roles on r. Callers mount r behind the
// session guard.
func (h *RoleHandler) Register(r chi.Router, guards Guards) {
	r.Get("/permissions", h.handleListPermissions)
	r.Get("/permissions/{id}", h.handleGetPermission)

	r.Route("/roles", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Group(func(r chi.Router) {
			r.Use(orPass(guards.Mutations))
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
			r.Post("/{id}/permissions", h.handleAddPermissions)
		})
	})
}

func (h *RoleHandler) handleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.ListRoles(r.Context())
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", roles)
}

func (h *RoleHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "role")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	role, err := h.roles.GetRole(r.Context(), id)
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", role)
}

func (h *RoleHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.RoleRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	role, err := h.roles.CreateRole(r.Context(), actor(r), req.Input())
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "role created", role)
}

func (h *RoleHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "role")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	var req dto.RoleRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	role, err := h.roles.UpdateRole(r.Context(), actor(r), id, req.Input())
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "role updated", role)
}

func (h *RoleHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "role")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	if err := h.roles.DeleteRole(r.Context(), id); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "role deleted", nil)
}

func (h *RoleHandler) handleAddPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "role")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	var req dto.PermissionIDsRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	role, err := h.roles.AddPermissionsToRole(r.Context(), actor(r), id, req.PermissionIDs)
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "permissions added", role)
}

func (h *RoleHandler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.roles.ListPermissions(r.Context())
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", perms)
}

func (h *RoleHandler) handleGetPermission(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "permission")
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	perm, err := h.roles.GetPermission(r.Context(), id)
	if err != nil {
		respond.Err(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", perm)
}
