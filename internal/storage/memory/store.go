// Package memory provides an in-process implementation of the storage interfaces,
// used for local development (STORAGE_DRIVER=memory) and unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/models"
	"github.com/hongminglow/cabinet-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type roleRow struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type state struct {
	principals     map[uuid.UUID]models.Principal
	roles          map[uuid.UUID]roleRow
	permissions    map[uuid.UUID]models.Permission
	rolePerms      map[uuid.UUID]map[uuid.UUID]struct{}
	principalRoles map[uuid.UUID]map[uuid.UUID]struct{}
}

func newState() *state {
	return &state{
		principals:     make(map[uuid.UUID]models.Principal),
		roles:          make(map[uuid.UUID]roleRow),
		permissions:    make(map[uuid.UUID]models.Permission),
		rolePerms:      make(map[uuid.UUID]map[uuid.UUID]struct{}),
		principalRoles: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.principals {
		c.principals[k] = v
	}
	for k, v := range s.roles {
		c.roles[k] = v
	}
	for k, v := range s.permissions {
		c.permissions[k] = v
	}
	for k, set := range s.rolePerms {
		c.rolePerms[k] = cloneSet(set)
	}
	for k, set := range s.principalRoles {
		c.principalRoles[k] = cloneSet(set)
	}
	return c
}

func cloneSet(in map[uuid.UUID]struct{}) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// Store keeps all records in memory behind a single mutex.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// Close is a no-op.
func (s *Store) Close() {}

// Repositories returns stores that lock per call.
func (s *Store) Repositories() storage.Repositories {
	return s.bind(view{store: s})
}

// WithinTx runs fn against a private copy of the data and publishes the copy
// only when fn succeeds. Transactions are serialised.
func (s *Store) WithinTx(ctx context.Context, fn func(storage.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.st.clone()
	if err := fn(s.bind(view{store: s, tx: working})); err != nil {
		return err
	}
	s.st = working
	return nil
}

func (s *Store) bind(v view) storage.Repositories {
	return storage.Repositories{
		Principals:  &principalRepo{v},
		Roles:       &roleRepo{v},
		Permissions: &permissionRepo{v},
	}
}

type view struct {
	store *Store
	tx    *state
}

func (v view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

func (v view) now() time.Time {
	return v.store.now().UTC()
}

func (s *state) role(id uuid.UUID) models.Role {
	row := s.roles[id]
	names := make([]string, 0, len(s.rolePerms[id]))
	for pid := range s.rolePerms[id] {
		if p, ok := s.permissions[pid]; ok {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return models.Role{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Permissions: names,
		CreatedBy:   row.CreatedBy,
		UpdatedBy:   row.UpdatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
