package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/storage"
)

var _ storage.PermissionStore = (*permissionRepo)(nil)

type permissionRepo struct {
	q querier
}

// FindAll returns every permission ordered by name.
func (r *permissionRepo) FindAll(ctx context.Context) ([]models.Permission, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []models.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// FindByID fetches a permission by id.
func (r *permissionRepo) FindByID(ctx context.Context, id uuid.UUID) (models.Permission, error) {
	return scanPermission(r.q.QueryRow(ctx, `SELECT id, name, description FROM permissions WHERE id = $1`, id.String()))
}

// FindByName fetches a permission by its unique name.
func (r *permissionRepo) FindByName(ctx context.Context, name string) (models.Permission, error) {
	return scanPermission(r.q.QueryRow(ctx, `SELECT id, name, description FROM permissions WHERE name = $1`, name))
}

// SaveAll inserts permissions, leaving rows with an existing name untouched.
func (r *permissionRepo) SaveAll(ctx context.Context, permissions []models.Permission) error {
	batch := &pgx.Batch{}
	for _, p := range permissions {
		id := p.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(`INSERT INTO permissions (id, name, description) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
			id.String(), p.Name, p.Description)
	}
	if batch.Len() == 0 {
		return nil
	}
	results := r.q.SendBatch(ctx, batch)
	defer results.Close()
	for range permissions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert permission: %w", err)
		}
	}
	return nil
}

func scanPermission(row pgx.Row) (models.Permission, error) {
	var p models.Permission
	if err := row.Scan(&p.ID, &p.Name, &p.Description); err != nil {
		return models.Permission{}, noRows(err)
	}
	return p, nil
}
