package identity

import (
	"context"
	"errors"
	"time"

	"github.com/somaedu/soma-backend/core"
)

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

var (
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("a parent with this email already exists")

	// ErrNotOwner is returned when a parent acts on a child they do not own.
	ErrNotOwner = errors.New("child does not belong to this parent")

	errAuthenticationFailed = errors.New("authentication failed")
)

type (
	ParentRepository interface {
		CreateParent(ctx context.Context, p Parent) (Parent, error)
		GetParentByID(ctx context.Context, id string) (Parent, error)
		GetParentByEmail(ctx context.Context, email string) (Parent, error)
		SetParentLastLogin(ctx context.Context, id string, t time.Time) error
		SetParentPassword(ctx context.Context, id string, hash []byte, t time.Time) error
	}

	ChildRepository interface {
		CreateChild(ctx context.Context, c Child) (Child, error)
		GetChildByID(ctx context.Context, id string) (Child, error)
		QueryChildrenByParentID(ctx context.Context, parentID string) ([]Child, error)
	}

	Service struct {
		parentRepo ParentRepository
		childRepo  ChildRepository
		idFunc     func() string
	}
)

func NewService(parentRepo ParentRepository, childRepo ChildRepository, idFunc func() string) *Service {
	return &Service{
		parentRepo: parentRepo,
		childRepo:  childRepo,
		idFunc:     idFunc,
	}
}

func (svc *Service) RegisterParent(ctx context.Context, np NewParent) (Parent, error) {
	email := core.CleanString(np.Email, true /* lower */)
	if _, err := svc.parentRepo.GetParentByEmail(ctx, email); err == nil {
		return Parent{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if err != ErrNotFound {
		return Parent{}, err
	}

	now := NowFunc().UTC()
	p := Parent{
		ID:        svc.idFunc(),
		Name:      core.CleanString(np.Name),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.SetPassword(np.Password); err != nil {
		return Parent{}, err
	}
	return svc.parentRepo.CreateParent(ctx, p)
}

// Authenticate checks a parent's credentials. Unknown email and wrong
// password are indistinguishable to the caller.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Parent, error) {
	p, err := svc.parentRepo.GetParentByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if err == ErrNotFound {
			return Parent{}, errAuthenticationFailed
		}
		return Parent{}, err
	}
	if err := p.CheckPassword(pwd); err != nil {
		return Parent{}, errAuthenticationFailed
	}

	now := NowFunc().UTC()
	if err := svc.parentRepo.SetParentLastLogin(ctx, p.ID, now); err != nil {
		return Parent{}, err
	}
	p.LastLogin = now
	return p, nil
}

// IsAuthenticationFailure reports whether err is a failed credential check.
func IsAuthenticationFailure(err error) bool {
	return err == errAuthenticationFailed
}

func (svc *Service) GetParent(ctx context.Context, id string) (Parent, error) {
	return svc.parentRepo.GetParentByID(ctx, id)
}

func (svc *Service) CreateChild(ctx context.Context, parentID string, nc NewChild) (Child, error) {
	now := NowFunc().UTC()
	c := Child{
		ID:         svc.idFunc(),
		ParentID:   parentID,
		Name:       core.CleanString(nc.Name),
		GradeLevel: nc.GradeLevel,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.childRepo.CreateChild(ctx, c)
}

func (svc *Service) GetChild(ctx context.Context, id string) (Child, error) {
	return svc.childRepo.GetChildByID(ctx, id)
}

func (svc *Service) QueryChildren(ctx context.Context, parentID string) ([]Child, error) {
	return svc.childRepo.QueryChildrenByParentID(ctx, parentID)
}

// ResetParentPassword replaces a parent's password out of band.
func (svc *Service) ResetParentPassword(ctx context.Context, email, pwd string) error {
	p, err := svc.parentRepo.GetParentByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = p.SetPassword(pwd); err != nil {
		return err
	}
	return svc.parentRepo.SetParentPassword(ctx, p.ID, p.PasswordHash, NowFunc().UTC())
}

// DeriveChildSession mints a ChildSession from a valid ParentSession.
// This is the only path by which a ChildSession comes into existence;
// it succeeds only when the parent owns the target child.
func (svc *Service) DeriveChildSession(ctx context.Context, ps ParentSession, childID string, ttl time.Duration) (ChildSession, error) {
	if ps.Expired(NowFunc()) {
		return ChildSession{}, errAuthenticationFailed
	}
	child, err := svc.childRepo.GetChildByID(ctx, childID)
	if err != nil {
		return ChildSession{}, err
	}
	if child.ParentID != ps.ParentID {
		return ChildSession{}, ErrNotOwner
	}

	now := NowFunc()
	return ChildSession{
		ChildID:   child.ID,
		ParentID:  child.ParentID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// NewParentSession mints a ParentSession for an authenticated parent.
func (svc *Service) NewParentSession(p Parent, ttl time.Duration) ParentSession {
	now := NowFunc()
	return ParentSession{
		ParentID:  p.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}
