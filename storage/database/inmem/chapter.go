package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/somaedu/soma-backend/core/chapter"
)

type chapterRepository struct {
	db *table[chapter.Chapter]
}

var _ chapter.Repository = (*chapterRepository)(nil)

func NewChapterRepository(db *DB) *chapterRepository {
	return &chapterRepository{db: db.chapter}
}

func (repo *chapterRepository) CreateChapter(_ context.Context, ch chapter.Chapter) (chapter.Chapter, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.t[ch.ID] = &ch
	return ch, nil
}

func (repo *chapterRepository) GetChapterByID(_ context.Context, id string) (chapter.Chapter, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ch, ok := repo.db.t[id]; ok {
		return *ch, nil
	}
	return chapter.Chapter{}, chapter.ErrNotFound
}

func (repo *chapterRepository) QueryChaptersByChildID(_ context.Context, childID string) ([]chapter.Chapter, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	chapters := make([]chapter.Chapter, 0)
	for _, ch := range repo.db.t {
		if ch.ChildID == childID {
			chapters = append(chapters, *ch)
		}
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].CreatedAt.After(chapters[j].CreatedAt) })
	return chapters, nil
}

func (repo *chapterRepository) UpdateChapterContent(_ context.Context, id string, content chapter.LessonContent, updatedAt time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ch, ok := repo.db.t[id]
	if !ok {
		return chapter.ErrNotFound
	}
	ch.Status = chapter.StatusReady
	ch.Content = &content
	ch.ErrorDetail = ""
	ch.UpdatedAt = updatedAt
	return nil
}

func (repo *chapterRepository) UpdateChapterStatus(_ context.Context, id string, status chapter.Status, detail string, updatedAt time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ch, ok := repo.db.t[id]
	if !ok {
		return chapter.ErrNotFound
	}
	ch.Status = status
	ch.ErrorDetail = detail
	ch.UpdatedAt = updatedAt
	return nil
}
