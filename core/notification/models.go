package notification

import (
	"time"

	"github.com/somaedu/soma-backend/core/identity"
)

type Kind string

const (
	KindChapterReady  Kind = "chapter_ready"
	KindChapterFailed Kind = "chapter_failed"
)

// Notification is an in-app message for a parent. Children never see
// notifications.
type Notification struct {
	ID        string     `json:"id"`
	ParentID  string     `json:"parent_id"`
	Kind      Kind       `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"` // UTC
}

// AccessibleBy grants access to the owning parent only.
func (n Notification) AccessibleBy(s identity.Session) bool {
	switch s := s.(type) {
	case identity.ParentSession:
		return n.ParentID == s.ParentID
	case identity.ChildSession:
		return false
	}
	return false
}
