package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/apperr"
	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/storage"
)

// RoleInput carries the writable fields of a role. A nil Permissions slice on
// update leaves the current permission set untouched.
type RoleInput struct {
	Name        string
	Description string
	Permissions []string
}

// Manager serves role and permission administration.
type Manager struct {
	store storage.Store
}

// NewManager builds a Manager over store.
func NewManager(store storage.Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := m.store.Repositories().Roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	if roles == nil {
		roles = []models.Role{}
	}
	return roles, nil
}

func (m *Manager) GetRole(ctx context.Context, id uuid.UUID) (models.Role, error) {
	role, err := m.store.Repositories().Roles.FindByID(ctx, id)
	if err != nil {
		return models.Role{}, roleErr(err, id)
	}
	return role, nil
}

// CreateRole stores a new role. Every permission name must already exist.
func (m *Manager) CreateRole(ctx context.Context, actor string, in RoleInput) (models.Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Role{}, apperr.Invalid("name", "name is required")
	}
	var created models.Role
	err := m.store.WithinTx(ctx, func(repos storage.Repositories) error {
		perms, err := resolveNames(ctx, repos.Permissions, in.Permissions)
		if err != nil {
			return err
		}
		created, err = repos.Roles.Save(ctx, models.Role{
			Name:        name,
			Description: in.Description,
			Permissions: perms,
		}, actor)
		return saveErr(err, name)
	})
	return created, err
}

// UpdateRole renames a role, rewrites its description and, when in.Permissions
// is non-nil, replaces its permission set.
func (m *Manager) UpdateRole(ctx context.Context, actor string, id uuid.UUID, in RoleInput) (models.Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Role{}, apperr.Invalid("name", "name is required")
	}
	var updated models.Role
	err := m.store.WithinTx(ctx, func(repos storage.Repositories) error {
		role, err := repos.Roles.FindByID(ctx, id)
		if err != nil {
			return roleErr(err, id)
		}
		role.Name = name
		role.Description = in.Description
		if in.Permissions != nil {
			if role.Permissions, err = resolveNames(ctx, repos.Permissions, in.Permissions); err != nil {
				return err
			}
		}
		updated, err = repos.Roles.Save(ctx, role, actor)
		return saveErr(err, name)
	})
	return updated, err
}

func (m *Manager) DeleteRole(ctx context.Context, id uuid.UUID) error {
	if err := m.store.Repositories().Roles.Delete(ctx, id); err != nil {
		return roleErr(err, id)
	}
	return nil
}

// AddPermissionsToRole grants the permissions with the given ids in addition to
// the ones the role already has. Unknown ids are ignored.
func (m *Manager) AddPermissionsToRole(ctx context.Context, actor string, roleID uuid.UUID, permissionIDs []uuid.UUID) (models.Role, error) {
	var updated models.Role
	err := m.store.WithinTx(ctx, func(repos storage.Repositories) error {
		role, err := repos.Roles.FindByID(ctx, roleID)
		if err != nil {
			return roleErr(err, roleID)
		}
		for _, id := range permissionIDs {
			p, err := repos.Permissions.FindByID(ctx, id)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("find permission: %w", err)
			}
			role.Permissions = append(role.Permissions, p.Name)
		}
		role.Permissions = Union([]models.Role{role})
		updated, err = repos.Roles.Save(ctx, role, actor)
		return saveErr(err, role.Name)
	})
	return updated, err
}

func (m *Manager) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	perms, err := m.store.Repositories().Permissions.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	if perms == nil {
		perms = []models.Permission{}
	}
	return perms, nil
}

func (m *Manager) GetPermission(ctx context.Context, id uuid.UUID) (models.Permission, error) {
	p, err := m.store.Repositories().Permissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Permission{}, apperr.NotFound("permission", id)
		}
		return models.Permission{}, fmt.Errorf("find permission: %w", err)
	}
	return p, nil
}

func resolveNames(ctx context.Context, store storage.PermissionStore, requested []string) ([]string, error) {
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		p, err := store.FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, apperr.NotFound("permission", name)
			}
			return nil, fmt.Errorf("find permission %s: %w", name, err)
		}
		out = append(out, p.Name)
	}
	return out, nil
}

func roleErr(err error, id uuid.UUID) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("role", id)
	}
	return fmt.Errorf("role %s: %w", id, err)
}

func saveErr(err error, name string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrAlreadyExists):
		return fmt.Errorf("role %q: %w", name, apperr.ErrAlreadyExists)
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("role", name)
	}
	return fmt.Errorf("save role: %w", err)
}
