//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_store.go -package=mocks
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/google/uuid"

	"docgpt/api/internal/diagnose"
)

var ErrNotFound = errors.New("session not found")

// Store keeps one diagnose workflow per session id.
type Store interface {
	Load(ctx context.Context, id string) (*diagnose.Workflow, error)
	Save(ctx context.Context, id string, w *diagnose.Workflow) error
	Delete(ctx context.Context, id string) error
}

func NewID() string { return uuid.NewString() }

// ValidID filters cookie values before they reach a store.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// LogKey derives a stable, non-reversible key for a session id. Store it where
// the id itself would be a usable credential, such as the journal.
func LogKey(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}

// Locker serializes workflow transitions per session inside this process.
// The zero value is ready to use.
type Locker struct {
	mu sync.Mutex
	m  map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until the session is free and returns its unlock func.
func (l *Locker) Lock(id string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*entry)
	}
	e, ok := l.m[id]
	if !ok {
		e = &entry{}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

// Held reports how many sessions currently have a holder or waiter.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
