package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"labstock-backend/internal/store"
)

// ErrSessionNotFound is returned for unknown ids and for sessions owned by
// someone else.
var ErrSessionNotFound = fmt.Errorf("scan session: %w", store.ErrNotFound)

type entry struct {
	session *Session
	touched time.Time
}

// Sessions holds the open scan sessions. Sessions untouched for longer than
// the idle timeout are dropped on the next Create.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*entry
	idle     time.Duration
	now      func() time.Time
}

func NewSessions(idle time.Duration) *Sessions {
	return &Sessions{
		sessions: make(map[string]*entry),
		idle:     idle,
		now:      time.Now,
	}
}

func (r *Sessions) Create(ownerID uint) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	s := &Session{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		state:   StateIdle,
	}
	r.sessions[s.ID] = &entry{session: s, touched: now}
	return s
}

func (r *Sessions) Get(id string, ownerID uint) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok || e.session.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	e.touched = r.now()
	return e.session, nil
}

func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Sessions) prune(now time.Time) {
	if r.idle <= 0 {
		return
	}
	for id, e := range r.sessions {
		if now.Sub(e.touched) > r.idle {
			delete(r.sessions, id)
		}
	}
}
