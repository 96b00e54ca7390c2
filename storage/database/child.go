package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/somaedu/soma-backend/core/identity"
)

type childRepository struct {
	db *sqlx.DB
}

var _ identity.ChildRepository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(db *sqlx.DB) *childRepository {
	return &childRepository{db: db}
}

type childRow struct {
	ID         string    `db:"id"`
	ParentID   string    `db:"parent_id"`
	Name       string    `db:"name"`
	GradeLevel int       `db:"grade_level"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (repo childRepository) unrow(r childRow) identity.Child {
	return identity.Child{
		ID:         r.ID,
		ParentID:   r.ParentID,
		Name:       r.Name,
		GradeLevel: r.GradeLevel,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (repo childRepository) CreateChild(ctx context.Context, c identity.Child) (identity.Child, error) {
	row := childRow{
		ID:         c.ID,
		ParentID:   c.ParentID,
		Name:       c.Name,
		GradeLevel: c.GradeLevel,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
	q := `INSERT INTO child (id, parent_id, name, grade_level, created_at, updated_at)
	      VALUES (:id, :parent_id, :name, :grade_level, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return identity.Child{}, errors.Wrap(err, "inserting child")
	}
	return repo.unrow(row), nil
}

func (repo childRepository) GetChildByID(ctx context.Context, id string) (identity.Child, error) {
	if _, err := uuid.Parse(id); err != nil {
		return identity.Child{}, identity.ErrNotFound
	}
	var row childRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM child WHERE id = $1`, id); err != nil {
		return identity.Child{}, trapNoRowsErr(err, "finding child by ID")
	}
	return repo.unrow(row), nil
}

func (repo childRepository) QueryChildrenByParentID(ctx context.Context, parentID string) ([]identity.Child, error) {
	var rows []childRow
	q := `SELECT * FROM child WHERE parent_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, parentID); err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	children := make([]identity.Child, 0, len(rows))
	for _, r := range rows {
		children = append(children, repo.unrow(r))
	}
	return children, nil
}
