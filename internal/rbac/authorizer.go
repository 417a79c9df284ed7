package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/apperr"
	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/storage"
)

// Authorizer derives effective permissions and mutates role assignments.
type Authorizer struct {
	store storage.Store
}

// NewAuthorizer builds an Authorizer over store.
func NewAuthorizer(store storage.Store) *Authorizer {
	return &Authorizer{store: store}
}

// Union returns the deduplicated, sorted permission names granted by roles.
func Union(roles []models.Role) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, role := range roles {
		for _, name := range role.Permissions {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// EffectivePermissions is the union of the permissions of every role assigned to
// the principal.
func (a *Authorizer) EffectivePermissions(ctx context.Context, principalID uuid.UUID) ([]string, error) {
	roles, err := a.Roles(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return Union(roles), nil
}

// Roles lists the roles assigned to a principal.
func (a *Authorizer) Roles(ctx context.Context, principalID uuid.UUID) ([]models.Role, error) {
	repos := a.store.Repositories()
	if err := requirePrincipal(ctx, repos.Principals, principalID); err != nil {
		return nil, err
	}
	return assignedRoles(ctx, repos, principalID)
}

// AddRole assigns a role. Assigning a role the principal already holds fails with
// apperr.ErrAlreadyAssigned.
func (a *Authorizer) AddRole(ctx context.Context, actor string, principalID, roleID uuid.UUID) error {
	return a.store.WithinTx(ctx, func(repos storage.Repositories) error {
		if err := lockPrincipal(ctx, repos.Principals, principalID); err != nil {
			return err
		}
		if err := requireRole(ctx, repos.Roles, roleID); err != nil {
			return err
		}
		held, err := repos.Principals.RoleIDs(ctx, principalID)
		if err != nil {
			return fmt.Errorf("list roles: %w", err)
		}
		for _, id := range held {
			if id == roleID {
				return apperr.AlreadyAssigned(principalID)
			}
		}
		if err := repos.Principals.AddRole(ctx, principalID, roleID, actor); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return apperr.AlreadyAssigned(principalID)
			}
			return fmt.Errorf("assign role: %w", err)
		}
		return nil
	})
}

// RemoveRole unassigns a role. Removing a role the principal does not hold is a
// no-op.
func (a *Authorizer) RemoveRole(ctx context.Context, actor string, principalID, roleID uuid.UUID) error {
	return a.store.WithinTx(ctx, func(repos storage.Repositories) error {
		if err := lockPrincipal(ctx, repos.Principals, principalID); err != nil {
			return err
		}
		if err := requireRole(ctx, repos.Roles, roleID); err != nil {
			return err
		}
		if err := repos.Principals.RemoveRole(ctx, principalID, roleID); err != nil {
			return fmt.Errorf("unassign role: %w", err)
		}
		return nil
	})
}

// ReplaceRoles sets the principal's roles to roleIDs. Ids that do not resolve to
// a role are dropped.
func (a *Authorizer) ReplaceRoles(ctx context.Context, actor string, principalID uuid.UUID, roleIDs []uuid.UUID) ([]models.Role, error) {
	var roles []models.Role
	err := a.store.WithinTx(ctx, func(repos storage.Repositories) error {
		if err := lockPrincipal(ctx, repos.Principals, principalID); err != nil {
			return err
		}
		found, err := repos.Roles.FindAllByID(ctx, roleIDs)
		if err != nil {
			return fmt.Errorf("resolve roles: %w", err)
		}
		ids := make([]uuid.UUID, 0, len(found))
		for _, role := range found {
			ids = append(ids, role.ID)
		}
		if err := repos.Principals.SetRoles(ctx, principalID, ids, actor); err != nil {
			return fmt.Errorf("replace roles: %w", err)
		}
		roles = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func assignedRoles(ctx context.Context, repos storage.Repositories, principalID uuid.UUID) ([]models.Role, error) {
	ids, err := repos.Principals.RoleIDs(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("list role ids: %w", err)
	}
	if len(ids) == 0 {
		return []models.Role{}, nil
	}
	roles, err := repos.Roles.FindAllByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return roles, nil
}

func requirePrincipal(ctx context.Context, store storage.PrincipalStore, id uuid.UUID) error {
	ok, err := store.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("check principal: %w", err)
	}
	if !ok {
		return apperr.NotFound("principal", id)
	}
	return nil
}

func lockPrincipal(ctx context.Context, store storage.PrincipalStore, id uuid.UUID) error {
	if err := store.LockForUpdate(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("principal", id)
		}
		return fmt.Errorf("lock principal: %w", err)
	}
	return nil
}

func requireRole(ctx context.Context, store storage.RoleStore, id uuid.UUID) error {
	if _, err := store.FindByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("role", id)
		}
		return fmt.Errorf("find role: %w", err)
	}
	return nil
}
