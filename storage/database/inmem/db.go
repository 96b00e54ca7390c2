// Package inmemdb provides map-backed repositories used by tests.
package inmemdb

import (
	"sync"

	"github.com/somaedu/soma-backend/core/chapter"
	"github.com/somaedu/soma-backend/core/identity"
	"github.com/somaedu/soma-backend/core/learning"
	"github.com/somaedu/soma-backend/core/notification"
)

type (
	DB struct {
		parent       *table[identity.Parent]
		child        *table[identity.Child]
		chapter      *table[chapter.Chapter]
		session      *table[learning.LearningSession]
		result       *table[learning.Result]
		notification *table[notification.Notification]
	}

	table[T any] struct {
		t     map[string]*T
		mutex sync.RWMutex
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{t: make(map[string]*T)}
}

func Open() *DB {
	return &DB{
		parent:       newTable[identity.Parent](),
		child:        newTable[identity.Child](),
		chapter:      newTable[chapter.Chapter](),
		session:      newTable[learning.LearningSession](),
		result:       newTable[learning.Result](),
		notification: newTable[notification.Notification](),
	}
}
