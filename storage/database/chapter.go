package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/somaedu/soma-backend/core/chapter"
)

type chapterRepository struct {
	db *sqlx.DB
}

var _ chapter.Repository = (*chapterRepository)(nil) // interface compliance check

func NewChapterRepository(db *sqlx.DB) *chapterRepository {
	return &chapterRepository{db: db}
}

type chapterRow struct {
	ID          string      `db:"id"`
	ChildID     string      `db:"child_id"`
	ParentID    string      `db:"parent_id"`
	Subject     string      `db:"subject"`
	GradeLevel  int         `db:"grade_level"`
	Status      string      `db:"status"`
	Content     null.JSON   `db:"content"`
	ErrorDetail null.String `db:"error_detail"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (repo chapterRepository) row(ch chapter.Chapter) (chapterRow, error) {
	row := chapterRow{
		ID:          ch.ID,
		ChildID:     ch.ChildID,
		ParentID:    ch.ParentID,
		Subject:     string(ch.Subject),
		GradeLevel:  ch.GradeLevel,
		Status:      string(ch.Status),
		ErrorDetail: null.NewString(ch.ErrorDetail, ch.ErrorDetail != ""),
		CreatedAt:   ch.CreatedAt.UTC(),
		UpdatedAt:   ch.UpdatedAt.UTC(),
	}
	if ch.Content != nil {
		raw, err := json.Marshal(ch.Content)
		if err != nil {
			return chapterRow{}, errors.Wrap(err, "marshaling chapter content")
		}
		row.Content = null.JSONFrom(raw)
	}
	return row, nil
}

func (repo chapterRepository) unrow(r chapterRow) (chapter.Chapter, error) {
	ch := chapter.Chapter{
		ID:          r.ID,
		ChildID:     r.ChildID,
		ParentID:    r.ParentID,
		Subject:     chapter.Subject(r.Subject),
		GradeLevel:  r.GradeLevel,
		Status:      chapter.Status(r.Status),
		ErrorDetail: r.ErrorDetail.String,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Content.Valid {
		var content chapter.LessonContent
		if err := json.Unmarshal(r.Content.JSON, &content); err != nil {
			return chapter.Chapter{}, errors.Wrap(err, "unmarshaling chapter content")
		}
		ch.Content = &content
	}
	return ch, nil
}

func (repo chapterRepository) CreateChapter(ctx context.Context, ch chapter.Chapter) (chapter.Chapter, error) {
	row, err := repo.row(ch)
	if err != nil {
		return chapter.Chapter{}, err
	}
	q := `INSERT INTO chapter (id, child_id, parent_id, subject, grade_level, status, content, error_detail, created_at, updated_at)
	      VALUES (:id, :child_id, :parent_id, :subject, :grade_level, :status, :content, :error_detail, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return chapter.Chapter{}, errors.Wrap(err, "inserting chapter")
	}
	return ch, nil
}

func (repo chapterRepository) GetChapterByID(ctx context.Context, id string) (chapter.Chapter, error) {
	if _, err := uuid.Parse(id); err != nil {
		return chapter.Chapter{}, chapter.ErrNotFound
	}
	var row chapterRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM chapter WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return chapter.Chapter{}, chapter.ErrNotFound
		}
		return chapter.Chapter{}, errors.Wrap(err, "finding chapter by ID")
	}
	return repo.unrow(row)
}

func (repo chapterRepository) QueryChaptersByChildID(ctx context.Context, childID string) ([]chapter.Chapter, error) {
	var rows []chapterRow
	q := `SELECT * FROM chapter WHERE child_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, childID); err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}
	chapters := make([]chapter.Chapter, 0, len(rows))
	for _, r := range rows {
		ch, err := repo.unrow(r)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, nil
}

func (repo chapterRepository) UpdateChapterContent(ctx context.Context, id string, content chapter.LessonContent, updatedAt time.Time) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return errors.Wrap(err, "marshaling chapter content")
	}
	q := `UPDATE chapter SET status = $2, content = $3, error_detail = NULL, updated_at = $4 WHERE id = $1`
	if _, err = repo.db.ExecContext(ctx, q, id, string(chapter.StatusReady), raw, updatedAt.UTC()); err != nil {
		return errors.Wrap(err, "updating chapter content")
	}
	return nil
}

func (repo chapterRepository) UpdateChapterStatus(ctx context.Context, id string, status chapter.Status, detail string, updatedAt time.Time) error {
	q := `UPDATE chapter SET status = $2, error_detail = $3, updated_at = $4 WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, q, id, string(status), null.NewString(detail, detail != ""), updatedAt.UTC()); err != nil {
		return errors.Wrap(err, "updating chapter status")
	}
	return nil
}
