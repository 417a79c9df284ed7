package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/rbac"
	"github.com/hongminglow/cabinet-be/internal/storage"
	"github.com/hongminglow/cabinet-be/internal/storage/memory"
)

func snapshot(t *testing.T, store storage.Store) ([]models.Permission, []models.Role) {
	t.Helper()
	ctx := context.Background()
	perms, err := store.Repositories().Permissions.FindAll(ctx)
	require.NoError(t, err)
	roles, err := store.Repositories().Roles.List(ctx)
	require.NoError(t, err)
	return perms, roles
}

func TestReconcileSeedsMappedBaseline(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, rbac.NewReconciler(store, nil).Run(context.Background()))

	perms, roles := snapshot(t, store)
	assert.Len(t, perms, len(rbac.MappedPermissions()))
	require.Len(t, roles, 3)
	for _, role := range roles {
		kind := rbac.RoleKind(role.Name)
		assert.Equal(t, kind.DisplayName(), role.Description)
		want := make([]string, 0)
		for _, p := range rbac.Resolve(kind) {
			want = append(want, string(p))
		}
		assert.Equal(t, want, role.Permissions, "role %s", role.Name)
		assert.Equal(t, rbac.SystemActor, role.CreatedBy)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	reconciler := rbac.NewReconciler(store, nil)

	require.NoError(t, reconciler.Run(context.Background()))
	permsBefore, rolesBefore := snapshot(t, store)

	require.NoError(t, reconciler.Run(context.Background()))
	permsAfter, rolesAfter := snapshot(t, store)

	assert.Equal(t, permsBefore, permsAfter)
	assert.Equal(t, rolesBefore, rolesAfter)
}

func TestReconcileReplacesDriftedRolePermissions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()

	require.NoError(t, repos.Permissions.SaveAll(ctx, []models.Permission{
		{Name: string(rbac.ManageStaff)}, {Name: string(rbac.AppointmentCreate)},
	}))
	_, err := repos.Roles.Save(ctx, models.Role{
		Name:        string(rbac.RoleAssistant),
		Permissions: []string{string(rbac.ManageStaff), string(rbac.AppointmentCreate)},
	}, "someone")
	require.NoError(t, err)

	require.NoError(t, rbac.NewReconciler(store, nil).Run(ctx))

	role, err := repos.Roles.FindByName(ctx, string(rbac.RoleAssistant))
	require.NoError(t, err)
	assert.Equal(t, []string{string(rbac.AppointmentCreate), string(rbac.ViewPatients)}, role.Permissions)
	assert.Equal(t, "someone", role.CreatedBy)
	assert.Equal(t, rbac.SystemActor, role.UpdatedBy)

	// Existing rows outside the mapping are never removed.
	_, err = repos.Permissions.FindByName(ctx, string(rbac.ManageStaff))
	assert.NoError(t, err)
}

type failingTx struct{ err error }

func (f failingTx) WithinTx(context.Context, func(storage.Repositories) error) error { return f.err }

func TestReconcilePropagatesStorageErrors(t *testing.T) {
	boom := errors.New("connection refused")
	err := rbac.NewReconciler(failingTx{err: boom}, nil).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}
