package identity

import "time"

// Session is the caller's authenticated identity, a closed sum of
// ParentSession and ChildSession. Every authorization gate type-switches
// over both variants so a missed case is a compile-visible gap, not a
// silent pass.
type Session interface {
	// OwnerParentID is the parent the session ultimately belongs to:
	// the parent itself, or the owning parent of a child session.
	OwnerParentID() string
	Expired(now time.Time) bool

	sealed()
}

// ParentSession is minted on parent login; valid for 7 days.
type ParentSession struct {
	ParentID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ChildSession is minted only by derivation from a valid ParentSession
// of the owning parent; valid for 24 hours.
type ChildSession struct {
	ChildID   string
	ParentID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (s ParentSession) OwnerParentID() string { return s.ParentID }
func (s ChildSession) OwnerParentID() string  { return s.ParentID }

func (s ParentSession) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }
func (s ChildSession) Expired(now time.Time) bool  { return !now.Before(s.ExpiresAt) }

func (ParentSession) sealed() {}
func (ChildSession) sealed()  {}
