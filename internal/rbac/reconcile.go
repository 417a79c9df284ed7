package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/storage"
)

// SystemActor stamps rows written by bootstrap code.
const SystemActor = "system"

// Reconciler syncs the persisted permission and role baseline to the in-code mapping.
type Reconciler struct {
	tx     storage.Transactor
	logger *slog.Logger
}

// NewReconciler builds a Reconciler. A nil logger discards output.
func NewReconciler(tx storage.Transactor, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{tx: tx, logger: logger}
}

// Run inserts missing mapped permissions, then creates each built-in role or
// replaces its permission set with exactly the mapped one. It is idempotent and
// runs in a single transaction.
func (r *Reconciler) Run(ctx context.Context) error {
	return r.tx.WithinTx(ctx, func(repos storage.Repositories) error {
		added, err := r.syncPermissions(ctx, repos.Permissions)
		if err != nil {
			return err
		}
		if added > 0 {
			r.logger.Info("permissions seeded", slog.Int("added", added))
		}
		for _, kind := range RoleKinds() {
			if err := r.syncRole(ctx, repos.Roles, kind); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Reconciler) syncPermissions(ctx context.Context, store storage.PermissionStore) (int, error) {
	existing, err := store.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list permissions: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		have[p.Name] = struct{}{}
	}

	var missing []models.Permission
	for _, p := range MappedPermissions() {
		if _, ok := have[string(p)]; ok {
			continue
		}
		missing = append(missing, models.Permission{Name: string(p), Description: p.Description()})
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := store.SaveAll(ctx, missing); err != nil {
		return 0, fmt.Errorf("save permissions: %w", err)
	}
	return len(missing), nil
}

func (r *Reconciler) syncRole(ctx context.Context, store storage.RoleStore, kind RoleKind) error {
	want := names(Resolve(kind))

	role, err := store.FindByName(ctx, string(kind))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		role = models.Role{Name: string(kind), Description: kind.DisplayName()}
	case err != nil:
		return fmt.Errorf("find role %s: %w", kind, err)
	default:
		current := slices.Clone(role.Permissions)
		slices.Sort(current)
		if slices.Equal(current, want) {
			return nil
		}
	}

	created := role.ID == uuid.Nil
	role.Permissions = want
	saved, err := store.Save(ctx, role, SystemActor)
	if err != nil {
		return fmt.Errorf("save role %s: %w", kind, err)
	}
	if created {
		r.logger.Info("role created", slog.String("role", saved.Name), slog.Int("permissions", len(saved.Permissions)))
	} else {
		r.logger.Info("role updated", slog.String("role", saved.Name), slog.Int("permissions", len(saved.Permissions)))
	}
	return nil
}
