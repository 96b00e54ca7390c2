package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/somaedu/soma-backend/core/identity"
)

type parentRepository struct {
	db *table[identity.Parent]
}

var _ identity.ParentRepository = (*parentRepository)(nil)

func NewParentRepository(db *DB) *parentRepository {
	return &parentRepository{db: db.parent}
}

func (repo *parentRepository) CreateParent(_ context.Context, p identity.Parent) (identity.Parent, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.t {
		if existing.Email == p.Email {
			return identity.Parent{}, identity.ErrEmailExists
		}
	}
	repo.db.t[p.ID] = &p
	return p, nil
}

func (repo *parentRepository) GetParentByID(_ context.Context, id string) (identity.Parent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.t[id]; ok {
		return *p, nil
	}
	return identity.Parent{}, identity.ErrNotFound
}

func (repo *parentRepository) GetParentByEmail(_ context.Context, email string) (identity.Parent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.db.t {
		if p.Email == email {
			return *p, nil
		}
	}
	return identity.Parent{}, identity.ErrNotFound
}

func (repo *parentRepository) SetParentLastLogin(_ context.Context, id string, t time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.t[id]
	if !ok {
		return identity.ErrNotFound
	}
	p.LastLogin = t
	p.UpdatedAt = t
	return nil
}

func (repo *parentRepository) SetParentPassword(_ context.Context, id string, hash []byte, t time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.t[id]
	if !ok {
		return identity.ErrNotFound
	}
	p.PasswordHash = hash
	p.UpdatedAt = t
	return nil
}

type childRepository struct {
	db *table[identity.Child]
}

var _ identity.ChildRepository = (*childRepository)(nil)

func NewChildRepository(db *DB) *childRepository {
	return &childRepository{db: db.child}
}

func (repo *childRepository) CreateChild(_ context.Context, c identity.Child) (identity.Child, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.t[c.ID] = &c
	return c, nil
}

func (repo *childRepository) GetChildByID(_ context.Context, id string) (identity.Child, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.t[id]; ok {
		return *c, nil
	}
	return identity.Child{}, identity.ErrNotFound
}

func (repo *childRepository) QueryChildrenByParentID(_ context.Context, parentID string) ([]identity.Child, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	children := make([]identity.Child, 0)
	for _, c := range repo.db.t {
		if c.ParentID == parentID {
			children = append(children, *c)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].CreatedAt.Before(children[j].CreatedAt) })
	return children, nil
}
