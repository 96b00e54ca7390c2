package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/somaedu/soma-backend/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

type notificationRow struct {
	ID        string    `db:"id"`
	ParentID  string    `db:"parent_id"`
	Kind      string    `db:"kind"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	ReadAt    null.Time `db:"read_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (repo notificationRepository) unrow(r notificationRow) notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		ParentID:  r.ParentID,
		Kind:      notification.Kind(r.Kind),
		Title:     r.Title,
		Body:      r.Body,
		ReadAt:    r.ReadAt.Ptr(),
		CreatedAt: r.CreatedAt,
	}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	row := notificationRow{
		ID:        n.ID,
		ParentID:  n.ParentID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		ReadAt:    null.TimeFromPtr(n.ReadAt),
		CreatedAt: n.CreatedAt.UTC(),
	}
	q := `INSERT INTO notification (id, parent_id, kind, title, body, read_at, created_at)
	      VALUES (:id, :parent_id, :kind, :title, :body, :read_at, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return repo.unrow(row), nil
}

func (repo notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM notification WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "finding notification by ID")
	}
	return repo.unrow(row), nil
}

func (repo notificationRepository) QueryNotificationsByParentID(ctx context.Context, parentID string) ([]notification.Notification, error) {
	var rows []notificationRow
	q := `SELECT * FROM notification WHERE parent_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, parentID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, repo.unrow(r))
	}
	return notifs, nil
}

func (repo notificationRepository) MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error {
	q := `UPDATE notification SET read_at = $2 WHERE id = $1 AND read_at IS NULL`
	if _, err := repo.db.ExecContext(ctx, q, id, readAt.UTC()); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return nil
}
