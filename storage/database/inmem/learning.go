package inmemdb

import (
	"context"
	"time"

	"github.com/somaedu/soma-backend/core/learning"
)

type learningSessionRepository struct {
	db *table[learning.LearningSession]
}

var _ learning.SessionRepository = (*learningSessionRepository)(nil)

func NewLearningSessionRepository(db *DB) *learningSessionRepository {
	return &learningSessionRepository{db: db.session}
}

func (repo *learningSessionRepository) CreateLearningSession(_ context.Context, ls learning.LearningSession) (learning.LearningSession, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.t[ls.ID] = &ls
	return ls, nil
}

func (repo *learningSessionRepository) GetLearningSessionByID(_ context.Context, id string) (learning.LearningSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ls, ok := repo.db.t[id]; ok {
		return *ls, nil
	}
	return learning.LearningSession{}, learning.ErrSessionNotFound
}

func (repo *learningSessionRepository) CompleteLearningSession(_ context.Context, id string, completedAt time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ls, ok := repo.db.t[id]
	if !ok {
		return learning.ErrSessionNotFound
	}
	ls.CompletedAt = &completedAt
	return nil
}

type resultRepository struct {
	db *table[learning.Result]
}

var _ learning.ResultRepository = (*resultRepository)(nil)

func NewResultRepository(db *DB) *resultRepository {
	return &resultRepository{db: db.result}
}

func (repo *resultRepository) CreateResult(_ context.Context, r learning.Result) (learning.Result, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.t {
		if existing.ChapterID == r.ChapterID {
			return learning.Result{}, learning.ErrResultExists
		}
	}
	repo.db.t[r.ID] = &r
	return r, nil
}

func (repo *resultRepository) GetResultByChapterID(_ context.Context, chapterID string) (learning.Result, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, r := range repo.db.t {
		if r.ChapterID == chapterID {
			return *r, nil
		}
	}
	return learning.Result{}, learning.ErrResultNotFound
}
