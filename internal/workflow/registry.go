package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"headshot/internal/domain"
)

// Registry owns the live sessions. A session is only visible to the identity
// that created it.
type Registry struct {
	deps *Deps
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	cron *cron.Cron
}

func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	d := deps
	return &Registry{
		deps:     &d,
		ttl:      ttl,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create starts a new session in Upload.
func (r *Registry) Create(identityID string) *Session {
	s := newSession(r.deps, identityID)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	r.deps.Logger.Debug().Str("identity", identityID).Str("session_id", s.ID.String()).Msg("session created")
	return s
}

// Get returns the session if it exists and belongs to identityID.
func (r *Registry) Get(identityID string, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || s.IdentityID != identityID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

// Delete discards a session. An in-flight generation finishes on its own; its
// result is dropped with the session.
func (r *Registry) Delete(identityID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.IdentityID != identityID {
		return domain.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Evict removes sessions idle for longer than the TTL. Sessions with a
// generation in flight are kept. Identities left without any session have
// their cached usage record dropped from the ledger.
func (r *Registry) Evict(now time.Time) int {
	r.mu.Lock()
	evicted := 0
	owners := make(map[string]struct{})
	for id, s := range r.sessions {
		idle, busy := s.idleSince(now)
		if busy || idle <= r.ttl {
			continue
		}
		delete(r.sessions, id)
		owners[s.IdentityID] = struct{}{}
		evicted++
	}
	for _, s := range r.sessions {
		delete(owners, s.IdentityID)
	}
	r.mu.Unlock()

	if r.deps.Ledger != nil {
		for identityID := range owners {
			r.deps.Ledger.Forget(identityID)
		}
	}
	return evicted
}

// StartJanitor schedules Evict every minute.
func (r *Registry) StartJanitor() error {
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", r.sweep); err != nil {
		return err
	}
	r.cron = c
	c.Start()
	return nil
}

// StopJanitor stops the schedule and waits for a running sweep.
func (r *Registry) StopJanitor() context.Context {
	if r.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return r.cron.Stop()
}

func (r *Registry) sweep() {
	if n := r.Evict(r.deps.now()); n > 0 {
		r.deps.Logger.Info().Int("evicted", n).Int("live", r.Len()).Msg("idle sessions evicted")
	}
}
