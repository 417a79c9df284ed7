package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/storage"
)

var _ storage.RoleStore = (*roleRepo)(nil)

type roleRepo struct {
	q querier
}

const roleSelect = `
	SELECT r.id, r.name, r.description, r.created_by, r.updated_by, r.created_at, r.updated_at,
	(
		SELECT COALESCE(array_agg(p.name ORDER BY p.name), '{}')
		FROM role_permissions rp
		JOIN permissions p ON rp.permission_id = p.id
		WHERE rp.role_id = r.id
	)
	FROM roles r`

// FindByID fetches a role and its permission names.
func (r *roleRepo) FindByID(ctx context.Context, id uuid.UUID) (models.Role, error) {
	return scanRole(r.q.QueryRow(ctx, roleSelect+` WHERE r.id = $1`, id.String()))
}

// FindByName fetches a role by its unique name.
func (r *roleRepo) FindByName(ctx context.Context, name string) (models.Role, error) {
	return scanRole(r.q.QueryRow(ctx, roleSelect+` WHERE r.name = $1`, name))
}

// FindAllByID returns the roles matching ids; unknown ids are skipped.
func (r *roleRepo) FindAllByID(ctx context.Context, ids []uuid.UUID) ([]models.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, roleSelect+` WHERE r.id = ANY($1::uuid[]) ORDER BY r.name`, uuidStrings(ids))
}

// List returns every role ordered by name.
func (r *roleRepo) List(ctx context.Context) ([]models.Role, error) {
	return r.list(ctx, roleSelect+` ORDER BY r.name`)
}

// Save inserts or updates a role and replaces its permission set.
func (r *roleRepo) Save(ctx context.Context, role models.Role, actor string) (models.Role, error) {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
		_, err := r.q.Exec(ctx, `
			INSERT INTO roles (id, name, description, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $4)`,
			role.ID.String(), role.Name, role.Description, actor)
		if err != nil {
			if isUniqueViolation(err) {
				return models.Role{}, storage.ErrAlreadyExists
			}
			return models.Role{}, fmt.Errorf("insert role: %w", err)
		}
	} else {
		tag, err := r.q.Exec(ctx, `
			UPDATE roles SET name = $2, description = $3, updated_by = $4, updated_at = NOW()
			WHERE id = $1`,
			role.ID.String(), role.Name, role.Description, actor)
		if err != nil {
			if isUniqueViolation(err) {
				return models.Role{}, storage.ErrAlreadyExists
			}
			return models.Role{}, fmt.Errorf("update role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return models.Role{}, storage.ErrNotFound
		}
	}

	if _, err := r.q.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID.String()); err != nil {
		return models.Role{}, fmt.Errorf("clear role permissions: %w", err)
	}
	if len(role.Permissions) > 0 {
		_, err := r.q.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1::uuid, id FROM permissions WHERE name = ANY($2::text[])`,
			role.ID.String(), role.Permissions)
		if err != nil {
			return models.Role{}, fmt.Errorf("attach role permissions: %w", err)
		}
	}
	return r.FindByID(ctx, role.ID)
}

// Delete removes a role; assignments cascade.
func (r *roleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *roleRepo) list(ctx context.Context, query string, args ...any) ([]models.Role, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanRole(row pgx.Row) (models.Role, error) {
	var role models.Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedBy, &role.UpdatedBy,
		&role.CreatedAt, &role.UpdatedAt, &role.Permissions); err != nil {
		return models.Role{}, noRows(err)
	}
	return role, nil
}
