package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/somaedu/soma-backend/core/identity"
)

type parentRepository struct {
	db *sqlx.DB
}

var _ identity.ParentRepository = (*parentRepository)(nil) // interface compliance check

func NewParentRepository(db *sqlx.DB) *parentRepository {
	return &parentRepository{db: db}
}

type parentRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (repo parentRepository) row(p identity.Parent) parentRow {
	return parentRow{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(p.LastLogin.UTC(), !p.LastLogin.IsZero()),
	}
}

func (repo parentRepository) unrow(r parentRow) identity.Parent {
	return identity.Parent{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to identity.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return identity.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo parentRepository) CreateParent(ctx context.Context, p identity.Parent) (identity.Parent, error) {
	row := repo.row(p)
	q := `INSERT INTO parent (id, name, email, password_hash, created_at, updated_at, last_login)
	      VALUES (:id, :name, :email, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return identity.Parent{}, errors.Wrap(err, "inserting parent")
	}
	return repo.unrow(row), nil
}

func (repo parentRepository) GetParentByID(ctx context.Context, id string) (identity.Parent, error) {
	if _, err := uuid.Parse(id); err != nil {
		return identity.Parent{}, identity.ErrNotFound
	}
	var row parentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM parent WHERE id = $1`, id); err != nil {
		return identity.Parent{}, trapNoRowsErr(err, "finding parent by ID")
	}
	return repo.unrow(row), nil
}

func (repo parentRepository) GetParentByEmail(ctx context.Context, email string) (identity.Parent, error) {
	var row parentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM parent WHERE email = $1`, email); err != nil {
		return identity.Parent{}, trapNoRowsErr(err, "finding parent by email")
	}
	return repo.unrow(row), nil
}

func (repo parentRepository) SetParentLastLogin(ctx context.Context, id string, t time.Time) error {
	q := `UPDATE parent SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, q, id, t.UTC()); err != nil {
		return errors.Wrap(err, "updating parent last login")
	}
	return nil
}

func (repo parentRepository) SetParentPassword(ctx context.Context, id string, hash []byte, t time.Time) error {
	q := `UPDATE parent SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, q, id, hash, t.UTC()); err != nil {
		return errors.Wrap(err, "updating parent password")
	}
	return nil
}
