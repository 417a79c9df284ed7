package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/storage"
)

type principalRepo struct{ v view }

func (r *principalRepo) FindByID(_ context.Context, id uuid.UUID) (models.Principal, error) {
	var out models.Principal
	err := r.v.do(func(st *state) error {
		p, ok := st.principals[id]
		if !ok {
			return storage.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *principalRepo) FindByEmail(_ context.Context, email string) (models.Principal, error) {
	email = models.NormalizeEmail(email)
	var out models.Principal
	err := r.v.do(func(st *state) error {
		for _, p := range st.principals {
			if p.Email == email {
				out = p
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return out, err
}

func (r *principalRepo) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.v.do(func(st *state) error {
		_, exists = st.principals[id]
		return nil
	})
	return exists, err
}

func (r *principalRepo) Create(_ context.Context, p models.Principal) (models.Principal, error) {
	err := r.v.do(func(st *state) error {
		p.Email = models.NormalizeEmail(p.Email)
		for _, existing := range st.principals {
			if existing.Email == p.Email {
				return storage.ErrAlreadyExists
			}
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if _, ok := st.principals[p.ID]; ok {
			return storage.ErrAlreadyExists
		}
		now := r.v.now()
		p.CreatedAt, p.UpdatedAt = now, now
		p.UpdatedBy = p.CreatedBy
		st.principals[p.ID] = p
		return nil
	})
	if err != nil {
		return models.Principal{}, err
	}
	return p, nil
}

func (r *principalRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash, actor string) error {
	return r.v.do(func(st *state) error {
		p, ok := st.principals[id]
		if !ok {
			return storage.ErrNotFound
		}
		p.PasswordHash = passwordHash
		p.UpdatedBy = actor
		p.UpdatedAt = r.v.now()
		st.principals[id] = p
		return nil
	})
}

// LockForUpdate only checks existence; WithinTx already serialises writers.
func (r *principalRepo) LockForUpdate(_ context.Context, id uuid.UUID) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.principals[id]; !ok {
			return storage.ErrNotFound
		}
		return nil
	})
}

func (r *principalRepo) RoleIDs(_ context.Context, principalID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.v.do(func(st *state) error {
		for id := range st.principalRoles[principalID] {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, err
}

func (r *principalRepo) AddRole(_ context.Context, principalID, roleID uuid.UUID, _ string) error {
	return r.v.do(func(st *state) error {
		set, ok := st.principalRoles[principalID]
		if !ok {
			set = make(map[uuid.UUID]struct{})
			st.principalRoles[principalID] = set
		}
		if _, dup := set[roleID]; dup {
			return storage.ErrAlreadyExists
		}
		set[roleID] = struct{}{}
		return nil
	})
}

func (r *principalRepo) RemoveRole(_ context.Context, principalID, roleID uuid.UUID) error {
	return r.v.do(func(st *state) error {
		delete(st.principalRoles[principalID], roleID)
		return nil
	})
}

func (r *principalRepo) SetRoles(_ context.Context, principalID uuid.UUID, roleIDs []uuid.UUID, _ string) error {
	return r.v.do(func(st *state) error {
		set := make(map[uuid.UUID]struct{}, len(roleIDs))
		for _, id := range roleIDs {
			if _, ok := st.roles[id]; ok {
				set[id] = struct{}{}
			}
		}
		st.principalRoles[principalID] = set
		return nil
	})
}

type roleRepo struct{ v view }

func (r *roleRepo) FindByID(_ context.Context, id uuid.UUID) (models.Role, error) {
	var out models.Role
	err := r.v.do(func(st *state) error {
		if _, ok := st.roles[id]; !ok {
			return storage.ErrNotFound
		}
		out = st.role(id)
		return nil
	})
	return out, err
}

func (r *roleRepo) FindByName(_ context.Context, name string) (models.Role, error) {
	var out models.Role
	err := r.v.do(func(st *state) error {
		for id, row := range st.roles {
			if row.Name == name {
				out = st.role(id)
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return out, err
}

func (r *roleRepo) FindAllByID(_ context.Context, ids []uuid.UUID) ([]models.Role, error) {
	var out []models.Role
	err := r.v.do(func(st *state) error {
		seen := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if _, ok := st.roles[id]; ok {
				out = append(out, st.role(id))
			}
		}
		return nil
	})
	sortRoles(out)
	return out, err
}

func (r *roleRepo) List(_ context.Context) ([]models.Role, error) {
	var out []models.Role
	err := r.v.do(func(st *state) error {
		for id := range st.roles {
			out = append(out, st.role(id))
		}
		return nil
	})
	sortRoles(out)
	return out, err
}

func (r *roleRepo) Save(_ context.Context, role models.Role, actor string) (models.Role, error) {
	var out models.Role
	err := r.v.do(func(st *state) error {
		for id, row := range st.roles {
			if row.Name == role.Name && id != role.ID {
				return storage.ErrAlreadyExists
			}
		}
		now := r.v.now()
		var row roleRow
		if role.ID == uuid.Nil {
			role.ID = uuid.New()
			row = roleRow{ID: role.ID, CreatedBy: actor, CreatedAt: now}
		} else {
			existing, ok := st.roles[role.ID]
			if !ok {
				return storage.ErrNotFound
			}
			row = existing
		}
		row.Name = role.Name
		row.Description = role.Description
		row.UpdatedBy = actor
		row.UpdatedAt = now
		st.roles[role.ID] = row

		wanted := make(map[string]struct{}, len(role.Permissions))
		for _, name := range role.Permissions {
			wanted[name] = struct{}{}
		}
		perms := make(map[uuid.UUID]struct{}, len(wanted))
		for pid, p := range st.permissions {
			if _, ok := wanted[p.Name]; ok {
				perms[pid] = struct{}{}
			}
		}
		st.rolePerms[role.ID] = perms
		out = st.role(role.ID)
		return nil
	})
	return out, err
}

func (r *roleRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.roles[id]; !ok {
			return storage.ErrNotFound
		}
		delete(st.roles, id)
		delete(st.rolePerms, id)
		for _, set := range st.principalRoles {
			delete(set, id)
		}
		return nil
	})
}

type permissionRepo struct{ v view }

func (r *permissionRepo) FindAll(_ context.Context) ([]models.Permission, error) {
	var out []models.Permission
	err := r.v.do(func(st *state) error {
		for _, p := range st.permissions {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *permissionRepo) FindByID(_ context.Context, id uuid.UUID) (models.Permission, error) {
	var out models.Permission
	err := r.v.do(func(st *state) error {
		p, ok := st.permissions[id]
		if !ok {
			return storage.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *permissionRepo) FindByName(_ context.Context, name string) (models.Permission, error) {
	var out models.Permission
	err := r.v.do(func(st *state) error {
		for _, p := range st.permissions {
			if p.Name == name {
				out = p
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return out, err
}

func (r *permissionRepo) SaveAll(_ context.Context, permissions []models.Permission) error {
	return r.v.do(func(st *state) error {
		names := make(map[string]struct{}, len(st.permissions))
		for _, p := range st.permissions {
			names[p.Name] = struct{}{}
		}
		for _, p := range permissions {
			if _, ok := names[p.Name]; ok {
				continue
			}
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			st.permissions[p.ID] = p
			names[p.Name] = struct{}{}
		}
		return nil
	})
}

func sortRoles(roles []models.Role) {
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
}
