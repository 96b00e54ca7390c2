package notification

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("notification not found")

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		QueryNotificationsByParentID(ctx context.Context, parentID string) ([]Notification, error)
		MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error
	}

	Service struct {
		repo   Repository
		idFunc func() string
	}
)

func NewService(repo Repository, idFunc func() string) *Service {
	return &Service{repo: repo, idFunc: idFunc}
}

func (svc *Service) Create(ctx context.Context, parentID string, kind Kind, title, body string) (Notification, error) {
	n := Notification{
		ID:        svc.idFunc(),
		ParentID:  parentID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: NowFunc().UTC(),
	}
	return svc.repo.CreateNotification(ctx, n)
}

func (svc *Service) Get(ctx context.Context, id string) (Notification, error) {
	return svc.repo.GetNotificationByID(ctx, id)
}

func (svc *Service) QueryByParent(ctx context.Context, parentID string) ([]Notification, error) {
	return svc.repo.QueryNotificationsByParentID(ctx, parentID)
}

func (svc *Service) MarkRead(ctx context.Context, id string) error {
	return svc.repo.MarkNotificationRead(ctx, id, NowFunc().UTC())
}
