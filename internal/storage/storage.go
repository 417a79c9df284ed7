package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// PrincipalStore captures persistence operations on principals and their role assignments.
type PrincipalStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.Principal, error)
	FindByEmail(ctx context.Context, email string) (models.Principal, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, principal models.Principal) (models.Principal, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, actor string) error
	// LockForUpdate serialises concurrent role mutations on the same principal
	// for the rest of the enclosing transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) error
	RoleIDs(ctx context.Context, principalID uuid.UUID) ([]uuid.UUID, error)
	// AddRole returns ErrAlreadyExists when the pair is already stored.
	AddRole(ctx context.Context, principalID, roleID uuid.UUID, actor string) error
	RemoveRole(ctx context.Context, principalID, roleID uuid.UUID) error
	SetRoles(ctx context.Context, principalID uuid.UUID, roleIDs []uuid.UUID, actor string) error
}

// RoleStore captures persistence operations on roles. Returned roles carry their
// permission names, loaded by an explicit query.
type RoleStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.Role, error)
	FindByName(ctx context.Context, name string) (models.Role, error)
	FindAllByID(ctx context.Context, ids []uuid.UUID) ([]models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	// Save inserts the role when its ID is zero, updates it otherwise, and replaces
	// its permission set with role.Permissions.
	Save(ctx context.Context, role models.Role, actor string) (models.Role, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PermissionStore captures persistence operations on permissions.
type PermissionStore interface {
	FindAll(ctx context.Context) ([]models.Permission, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.Permission, error)
	FindByName(ctx context.Context, name string) (models.Permission, error)
	// SaveAll inserts the permissions, skipping names that already exist.
	SaveAll(ctx context.Context, permissions []models.Permission) error
}

// Repositories bundles the stores bound to one connection or transaction.
type Repositories struct {
	Principals  PrincipalStore
	Roles       RoleStore
	Permissions PermissionStore
}

// Transactor runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

// Store is the full persistence surface used by the application.
type Store interface {
	Transactor
	Repositories() Repositories
	Close()
}
