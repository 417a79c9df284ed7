package rbac_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/cabinet-be/internal/apperr"
	"github.com/hongminglow/cabinet-be/internal/rbac"
	"github.com/hongminglow/cabinet-be/internal/storage/memory"
)

func seededManager(t *testing.T) (*rbac.Manager, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, rbac.NewReconciler(store, nil).Run(context.Background()))
	return rbac.NewManager(store), store
}

func TestCreateRole(t *testing.T) {
	m, _ := seededManager(t)
	ctx := context.Background()

	role, err := m.CreateRole(ctx, "admin@example.com", rbac.RoleInput{
		Name:        " RECEPTION ",
		Description: "Front desk",
		Permissions: []string{"VIEW_AGENDA", "APPOINTMENT_CREATE"},
	})
	require.NoError(t, err)
	assert.Equal(t, "RECEPTION", role.Name)
	assert.Equal(t, []string{"APPOINTMENT_CREATE", "VIEW_AGENDA"}, role.Permissions)
	assert.Equal(t, "admin@example.com", role.CreatedBy)

	_, err = m.CreateRole(ctx, "admin@example.com", rbac.RoleInput{Name: "RECEPTION"})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestCreateRoleRejectsUnknownPermission(t *testing.T) {
	m, _ := seededManager(t)

	_, err := m.CreateRole(context.Background(), "admin", rbac.RoleInput{
		Name:        "BROKEN",
		Permissions: []string{"VIEW_AGENDA", "NOPE"},
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "NOPE")

	roles, err := m.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Len(t, roles, 3)
}

func TestCreateRoleRequiresName(t *testing.T) {
	m, _ := seededManager(t)
	_, err := m.CreateRole(context.Background(), "admin", rbac.RoleInput{Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateRoleKeepsPermissionsWhenNil(t *testing.T) {
	m, store := seededManager(t)
	ctx := context.Background()
	assistant, err := store.Repositories().Roles.FindByName(ctx, "ASSISTANT")
	require.NoError(t, err)

	updated, err := m.UpdateRole(ctx, "admin", assistant.ID, rbac.RoleInput{Name: "ASSISTANT", Description: "Secrétariat"})
	require.NoError(t, err)
	assert.Equal(t, "Secrétariat", updated.Description)
	assert.Equal(t, assistant.Permissions, updated.Permissions)

	updated, err = m.UpdateRole(ctx, "admin", assistant.ID, rbac.RoleInput{Name: "ASSISTANT", Permissions: []string{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Permissions)

	_, err = m.UpdateRole(ctx, "admin", uuid.New(), rbac.RoleInput{Name: "X"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddPermissionsToRoleIsAdditive(t *testing.T) {
	m, store := seededManager(t)
	ctx := context.Background()
	repos := store.Repositories()

	assistant, err := repos.Roles.FindByName(ctx, "ASSISTANT")
	require.NoError(t, err)
	agenda, err := repos.Permissions.FindByName(ctx, "VIEW_AGENDA")
	require.NoError(t, err)

	updated, err := m.AddPermissionsToRole(ctx, "admin", assistant.ID, []uuid.UUID{agenda.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, []string{"APPOINTMENT_CREATE", "VIEW_AGENDA", "VIEW_PATIENTS"}, updated.Permissions)

	_, err = m.AddPermissionsToRole(ctx, "admin", uuid.New(), []uuid.UUID{agenda.ID})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteRole(t *testing.T) {
	m, store := seededManager(t)
	ctx := context.Background()
	patient, err := store.Repositories().Roles.FindByName(ctx, "PATIENT")
	require.NoError(t, err)

	require.NoError(t, m.DeleteRole(ctx, patient.ID))
	_, err = m.GetRole(ctx, patient.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, m.DeleteRole(ctx, patient.ID), apperr.ErrNotFound)
}

func TestPermissions(t *testing.T) {
	m, _ := seededManager(t)
	ctx := context.Background()

	perms, err := m.ListPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, perms, len(rbac.MappedPermissions()))

	got, err := m.GetPermission(ctx, perms[0].ID)
	require.NoError(t, err)
	assert.Equal(t, perms[0], got)

	_, err = m.GetPermission(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
