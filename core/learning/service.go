package learning

import (
	"context"
	"errors"
	"time"

	"github.com/somaedu/soma-backend/core"
	"github.com/somaedu/soma-backend/core/chapter"
)

var (
	ErrSessionNotFound = errors.New("learning session not found")
	ErrResultNotFound  = errors.New("result not found")
	ErrResultExists    = errors.New("this chapter already has a result")

	errChapterNotReady = errors.New("chapter content is not ready yet")
)

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

type (
	SessionRepository interface {
		CreateLearningSession(ctx context.Context, ls LearningSession) (LearningSession, error)
		GetLearningSessionByID(ctx context.Context, id string) (LearningSession, error)
		CompleteLearningSession(ctx context.Context, id string, completedAt time.Time) error
	}

	ResultRepository interface {
		CreateResult(ctx context.Context, r Result) (Result, error)
		GetResultByChapterID(ctx context.Context, chapterID string) (Result, error)
	}

	Service struct {
		sessionRepo SessionRepository
		resultRepo  ResultRepository
		idFunc      func() string
	}
)

func NewService(sessionRepo SessionRepository, resultRepo ResultRepository, idFunc func() string) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		resultRepo:  resultRepo,
		idFunc:      idFunc,
	}
}

// StartSession opens a sitting of childID working through ch.
func (svc *Service) StartSession(ctx context.Context, childID string, ch chapter.Chapter) (LearningSession, error) {
	if ch.Status != chapter.StatusReady {
		return LearningSession{}, core.NewValidationError(errChapterNotReady)
	}
	ls := LearningSession{
		ID:        svc.idFunc(),
		ChildID:   childID,
		ChapterID: ch.ID,
		StartedAt: NowFunc().UTC(),
	}
	return svc.sessionRepo.CreateLearningSession(ctx, ls)
}

func (svc *Service) GetSession(ctx context.Context, id string) (LearningSession, error) {
	return svc.sessionRepo.GetLearningSessionByID(ctx, id)
}

// Submit grades the answers against the chapter's question sets and
// persists the result. One result per chapter.
func (svc *Service) Submit(ctx context.Context, childID string, ch chapter.Chapter, sub SubmitAnswers) (Result, error) {
	if ch.Status != chapter.StatusReady || ch.Content == nil {
		return Result{}, core.NewValidationError(errChapterNotReady)
	}
	if _, err := svc.resultRepo.GetResultByChapterID(ctx, ch.ID); err == nil {
		return Result{}, core.NewValidationError(ErrResultExists)
	} else if err != ErrResultNotFound {
		return Result{}, err
	}

	score := CalculateScores(sub.PracticeAnswers, sub.TestAnswers, ch.Content.Practice, ch.Content.Test)
	r := Result{
		ID:            svc.idFunc(),
		ChildID:       childID,
		ChapterID:     ch.ID,
		PracticeScore: score.Practice,
		TestScore:     score.Test,
		TotalScore:    score.Total,
		Stars:         score.Stars,
		// The submitted time_spent_seconds is deliberately ignored.
		TimeSpentSeconds: 0,
		CreatedAt:        NowFunc().UTC(),
	}
	return svc.resultRepo.CreateResult(ctx, r)
}

func (svc *Service) GetResultByChapter(ctx context.Context, chapterID string) (Result, error) {
	return svc.resultRepo.GetResultByChapterID(ctx, chapterID)
}

// CompleteSession stamps a sitting as finished.
func (svc *Service) CompleteSession(ctx context.Context, id string) error {
	return svc.sessionRepo.CompleteLearningSession(ctx, id, NowFunc().UTC())
}
