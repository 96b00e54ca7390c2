package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/somaedu/soma-backend/core/learning"
)

type learningSessionRepository struct {
	db *sqlx.DB
}

var _ learning.SessionRepository = (*learningSessionRepository)(nil) // interface compliance check

func NewLearningSessionRepository(db *sqlx.DB) *learningSessionRepository {
	return &learningSessionRepository{db: db}
}

type learningSessionRow struct {
	ID          string    `db:"id"`
	ChildID     string    `db:"child_id"`
	ChapterID   string    `db:"chapter_id"`
	StartedAt   time.Time `db:"started_at"`
	CompletedAt null.Time `db:"completed_at"`
}

func (repo learningSessionRepository) unrow(r learningSessionRow) learning.LearningSession {
	return learning.LearningSession{
		ID:          r.ID,
		ChildID:     r.ChildID,
		ChapterID:   r.ChapterID,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt.Ptr(),
	}
}

func (repo learningSessionRepository) CreateLearningSession(ctx context.Context, ls learning.LearningSession) (learning.LearningSession, error) {
	row := learningSessionRow{
		ID:          ls.ID,
		ChildID:     ls.ChildID,
		ChapterID:   ls.ChapterID,
		StartedAt:   ls.StartedAt.UTC(),
		CompletedAt: null.TimeFromPtr(ls.CompletedAt),
	}
	q := `INSERT INTO learning_session (id, child_id, chapter_id, started_at, completed_at)
	      VALUES (:id, :child_id, :chapter_id, :started_at, :completed_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return learning.LearningSession{}, errors.Wrap(err, "inserting learning session")
	}
	return repo.unrow(row), nil
}

func (repo learningSessionRepository) GetLearningSessionByID(ctx context.Context, id string) (learning.LearningSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return learning.LearningSession{}, learning.ErrSessionNotFound
	}
	var row learningSessionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM learning_session WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return learning.LearningSession{}, learning.ErrSessionNotFound
		}
		return learning.LearningSession{}, errors.Wrap(err, "finding learning session by ID")
	}
	return repo.unrow(row), nil
}

func (repo learningSessionRepository) CompleteLearningSession(ctx context.Context, id string, completedAt time.Time) error {
	q := `UPDATE learning_session SET completed_at = $2 WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, q, id, completedAt.UTC()); err != nil {
		return errors.Wrap(err, "completing learning session")
	}
	return nil
}

type resultRepository struct {
	db *sqlx.DB
}

var _ learning.ResultRepository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *sqlx.DB) *resultRepository {
	return &resultRepository{db: db}
}

type resultRow struct {
	ID               string    `db:"id"`
	ChildID          string    `db:"child_id"`
	ChapterID        string    `db:"chapter_id"`
	PracticeScore    int       `db:"practice_score"`
	TestScore        int       `db:"test_score"`
	TotalScore       int       `db:"total_score"`
	Stars            int       `db:"stars"`
	TimeSpentSeconds int       `db:"time_spent_seconds"`
	CreatedAt        time.Time `db:"created_at"`
}

func (repo resultRepository) unrow(r resultRow) learning.Result {
	return learning.Result{
		ID:               r.ID,
		ChildID:          r.ChildID,
		ChapterID:        r.ChapterID,
		PracticeScore:    r.PracticeScore,
		TestScore:        r.TestScore,
		TotalScore:       r.TotalScore,
		Stars:            r.Stars,
		TimeSpentSeconds: r.TimeSpentSeconds,
		CreatedAt:        r.CreatedAt,
	}
}

func (repo resultRepository) CreateResult(ctx context.Context, res learning.Result) (learning.Result, error) {
	row := resultRow{
		ID:               res.ID,
		ChildID:          res.ChildID,
		ChapterID:        res.ChapterID,
		PracticeScore:    res.PracticeScore,
		TestScore:        res.TestScore,
		TotalScore:       res.TotalScore,
		Stars:            res.Stars,
		TimeSpentSeconds: res.TimeSpentSeconds,
		CreatedAt:        res.CreatedAt.UTC(),
	}
	q := `INSERT INTO result (id, child_id, chapter_id, practice_score, test_score, total_score, stars, time_spent_seconds, created_at)
	      VALUES (:id, :child_id, :chapter_id, :practice_score, :test_score, :total_score, :stars, :time_spent_seconds, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return learning.Result{}, errors.Wrap(err, "inserting result")
	}
	return repo.unrow(row), nil
}

func (repo resultRepository) GetResultByChapterID(ctx context.Context, chapterID string) (learning.Result, error) {
	var row resultRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM result WHERE chapter_id = $1`, chapterID); err != nil {
		if err == sql.ErrNoRows {
			return learning.Result{}, learning.ErrResultNotFound
		}
		return learning.Result{}, errors.Wrap(err, "finding result by chapter ID")
	}
	return repo.unrow(row), nil
}
