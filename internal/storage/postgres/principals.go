package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/storage"
)

var _ storage.PrincipalStore = (*principalRepo)(nil)

type principalRepo struct {
	q querier
}

const principalColumns = `id, kind, email, password_hash, first_name, last_name, phone_number,
	created_by, updated_by, created_at, updated_at`

// FindByID fetches a principal by id.
func (r *principalRepo) FindByID(ctx context.Context, id uuid.UUID) (models.Principal, error) {
	row := r.q.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = $1`, id.String())
	return scanPrincipal(row)
}

// FindByEmail fetches a principal by its normalised email address.
func (r *principalRepo) FindByEmail(ctx context.Context, email string) (models.Principal, error) {
	row := r.q.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE email = $1`, models.NormalizeEmail(email))
	return scanPrincipal(row)
}

// ExistsByID reports whether a principal row exists.
func (r *principalRepo) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM principals WHERE id = $1)`, id.String()).Scan(&exists)
	return exists, err
}

// Create inserts a new principal row.
func (r *principalRepo) Create(ctx context.Context, p models.Principal) (models.Principal, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	const query = `
		INSERT INTO principals (id, kind, email, password_hash, first_name, last_name, phone_number, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING ` + principalColumns
	row := r.q.QueryRow(ctx, query, p.ID.String(), string(p.Kind), models.NormalizeEmail(p.Email), p.PasswordHash,
		p.FirstName, p.LastName, p.PhoneNumber, p.CreatedBy)
	created, err := scanPrincipal(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Principal{}, storage.ErrAlreadyExists
		}
		return models.Principal{}, err
	}
	return created, nil
}

// UpdatePassword replaces the stored credential hash.
func (r *principalRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, actor string) error {
	tag, err := r.q.Exec(ctx, `UPDATE principals SET password_hash = $2, updated_by = $3, updated_at = NOW() WHERE id = $1`,
		id.String(), passwordHash, actor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// LockForUpdate takes a row lock on the principal until the transaction ends.
func (r *principalRepo) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := r.q.QueryRow(ctx, `SELECT id FROM principals WHERE id = $1 FOR UPDATE`, id.String()).Scan(&locked)
	return noRows(err)
}

// RoleIDs lists the ids of the roles assigned to a principal.
func (r *principalRepo) RoleIDs(ctx context.Context, principalID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.q.Query(ctx, `SELECT role_id FROM principal_roles WHERE principal_id = $1 ORDER BY role_id`, principalID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddRole inserts a principal/role pair. The composite primary key rejects duplicates.
func (r *principalRepo) AddRole(ctx context.Context, principalID, roleID uuid.UUID, actor string) error {
	_, err := r.q.Exec(ctx, `INSERT INTO principal_roles (principal_id, role_id, created_by) VALUES ($1, $2, $3)`,
		principalID.String(), roleID.String(), actor)
	if isUniqueViolation(err) {
		return storage.ErrAlreadyExists
	}
	return err
}

// RemoveRole deletes a principal/role pair; a missing pair is not an error.
func (r *principalRepo) RemoveRole(ctx context.Context, principalID, roleID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `DELETE FROM principal_roles WHERE principal_id = $1 AND role_id = $2`,
		principalID.String(), roleID.String())
	return err
}

// SetRoles replaces the full assignment set of a principal.
func (r *principalRepo) SetRoles(ctx context.Context, principalID uuid.UUID, roleIDs []uuid.UUID, actor string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM principal_roles WHERE principal_id = $1`, principalID.String()); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO principal_roles (principal_id, role_id, created_by)
		SELECT $1::uuid, id, $3 FROM roles WHERE id = ANY($2::uuid[])
		ON CONFLICT DO NOTHING`,
		principalID.String(), uuidStrings(roleIDs), actor)
	if err != nil {
		return fmt.Errorf("insert roles: %w", err)
	}
	return nil
}

func scanPrincipal(row pgx.Row) (models.Principal, error) {
	var p models.Principal
	var kind string
	if err := row.Scan(&p.ID, &kind, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName, &p.PhoneNumber,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Principal{}, noRows(err)
	}
	p.Kind = models.Kind(kind)
	return p, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
