package learning

import (
	"time"

	"github.com/somaedu/soma-backend/core/chapter"
	"github.com/somaedu/soma-backend/core/identity"
)

// LearningSession tracks one sitting of a child working through a chapter.
type LearningSession struct {
	ID          string     `json:"id"`
	ChildID     string     `json:"child_id"`
	ChapterID   string     `json:"chapter_id"`
	StartedAt   time.Time  `json:"started_at"` // UTC
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AccessibleBy requires the session's chapter for the cross-check: the
// chapter's owning child must match the learning session's child, and the
// caller must own either side.
func (ls LearningSession) AccessibleBy(s identity.Session, ch chapter.Chapter) bool {
	if ch.ChildID != ls.ChildID {
		return false
	}
	switch s := s.(type) {
	case identity.ChildSession:
		return ls.ChildID == s.ChildID
	case identity.ParentSession:
		return ch.ParentID == s.ParentID
	}
	return false
}

// Result is the scored outcome of a chapter's question sets.
type Result struct {
	ID            string    `json:"id"`
	ChildID       string    `json:"child_id"`
	ChapterID     string    `json:"chapter_id"`
	PracticeScore int       `json:"practice_score"`
	TestScore     int       `json:"test_score"`
	TotalScore    int       `json:"total_score"`
	Stars         int       `json:"stars"`
	// TimeSpentSeconds is accepted from clients but recorded as 0: actual
	// time tracking is unspecified upstream.
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	CreatedAt        time.Time `json:"created_at"` // UTC
}

// AccessibleBy requires the result's chapter: the child sees their own
// results, the parent sees results on chapters they own.
func (r Result) AccessibleBy(s identity.Session, ch chapter.Chapter) bool {
	switch s := s.(type) {
	case identity.ChildSession:
		return r.ChildID == s.ChildID
	case identity.ParentSession:
		return ch.ParentID == s.ParentID
	}
	return false
}

// SubmitAnswers is the answer-submission request body. Answers are option
// letters "A"-"D" in question order.
type SubmitAnswers struct {
	PracticeAnswers  []string `json:"practice_answers" validate:"required,len=5"`
	TestAnswers      []string `json:"test_answers" validate:"required,len=10"`
	TimeSpentSeconds int      `json:"time_spent_seconds" validate:"min=0"`
}
