package usage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"headshot/internal/domain"
	"headshot/internal/identity"
)

// Ledger owns the usage counters. Each identity has its own lock, held across
// the metadata write, so a CanGenerate never observes a counter whose write is
// still in flight.
type Ledger struct {
	dir    identity.Directory
	plans  *PlanResolver
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu     sync.Mutex
	loaded bool
	record domain.UsageRecord
	meta   domain.Metadata
	// reserved counts generations admitted by Reserve and not yet
	// committed by Increment or returned by Release.
	reserved int
}

// Summary is the caller-facing view of a usage record.
type Summary struct {
	Tier            domain.PlanTier `json:"tier"`
	GenerationsUsed int             `json:"generationsUsed"`
	Limit           *int            `json:"limit"`
	Remaining       *int            `json:"remaining"`
	Unlimited       bool            `json:"unlimited"`
	Watermarked     bool            `json:"watermarked"`
	LastResetDate   *time.Time      `json:"lastResetDate,omitempty"`
}

func NewLedger(dir identity.Directory, plans *PlanResolver, logger zerolog.Logger) *Ledger {
	return &Ledger{
		dir:     dir,
		plans:   plans,
		now:     time.Now,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// WithClock replaces the time source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) entryFor(id string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		e = &entry{}
		l.entries[id] = e
	}
	return e
}

// lockEntry returns the current entry for id with its lock held. An entry
// dropped by Forget between lookup and lock is retried.
func (l *Ledger) lockEntry(id string) *entry {
	for {
		e := l.entryFor(id)
		e.mu.Lock()
		l.mu.Lock()
		current := l.entries[id] == e
		l.mu.Unlock()
		if current {
			return e
		}
		e.mu.Unlock()
	}
}

// Load reads tier and counters from the directory and applies the monthly
// reset. It always refreshes the cached record. A *domain.PersistenceError
// from the reset write is returned alongside a usable record.
func (l *Ledger) Load(ctx context.Context, id string) (domain.UsageRecord, error) {
	e := l.lockEntry(id)
	defer e.mu.Unlock()
	if err := l.fetchLocked(ctx, id, e); err != nil {
		return domain.UsageRecord{}, err
	}
	err := l.resetLocked(ctx, e)
	return e.record, err
}

func (l *Ledger) fetchLocked(ctx context.Context, id string, e *entry) error {
	tier, err := l.plans.Resolve(ctx, id)
	if err != nil {
		return err
	}
	md, err := l.dir.Metadata(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		md = domain.Metadata{}
	}
	e.meta = md
	e.record = recordFromMetadata(id, tier, md)
	e.loaded = true
	return nil
}

func (l *Ledger) ensureLocked(ctx context.Context, id string, e *entry) error {
	if e.loaded {
		return nil
	}
	if err := l.fetchLocked(ctx, id, e); err != nil {
		return err
	}
	if err := l.resetLocked(ctx, e); err != nil {
		var perr *domain.PersistenceError
		if !errors.As(err, &perr) {
			return err
		}
	}
	return nil
}

// CanGenerate reports whether the identity may start another generation.
func (l *Ledger) CanGenerate(ctx context.Context, id string) (bool, error) {
	e := l.lockEntry(id)
	defer e.mu.Unlock()
	if err := l.ensureLocked(ctx, id, e); err != nil {
		return false, err
	}
	return e.record.CanGenerate(), nil
}

// Reserve admits one generation if the quota still has room once the
// generations already in flight are counted. An admitted slot must be
// committed with Increment or returned with Release.
func (l *Ledger) Reserve(ctx context.Context, id string) (bool, error) {
	e := l.lockEntry(id)
	defer e.mu.Unlock()
	if err := l.ensureLocked(ctx, id, e); err != nil {
		return false, err
	}
	limit, unbounded := QuotaFor(e.record.Tier)
	if !unbounded && e.record.GenerationsUsed+e.reserved >= limit {
		return false, nil
	}
	e.reserved++
	return true, nil
}

// Release returns a slot taken by Reserve when no image was produced.
func (l *Ledger) Release(id string) {
	e := l.lockEntry(id)
	defer e.mu.Unlock()
	if e.reserved > 0 {
		e.reserved--
	}
}

// Tier returns the resolved plan tier of the identity.
func (l *Ledger) Tier(ctx context.Context, id string) (domain.PlanTier, error) {
	e := l.lockEntry(id)
	defer e.mu.Unlock()
	if err := l.ensureLocked(ctx, id, e); err != nil {
		return domain.PlanFree, err
	}
	return e.record.Tier, nil
}

// MaybeReset zeroes a standard-tier counter when lastResetDate is unset or
// falls in an earlier calendar month. Other tiers are untouched.
func (l *Ledger) MaybeReset(ctx context.Context, id string) (domain.UsageRecord, error) {
	e := l.lockEntry(id)
	defer e.mu.Unlock()
	if !e.loaded {
		if err := l.fetchLocked(ctx, id, e); err != nil {
			return domain.UsageRecord{}, err
		}
	}
	err := l.resetLocked(ctx, e)
	return e.record, err
}

func (l *Ledger) resetLocked(ctx context.Context, e *entry) error {
	if e.record.Tier != domain.PlanStandard {
		return nil
	}
	now := l.now().UTC()
	if last := e.record.LastResetDate; last != nil && sameMonth(*last, now) {
		return nil
	}
	next := e.record
	next.GenerationsUsed = 0
	next.LastResetDate = &now
	return l.persistLocked(ctx, e, next)
}

// Increment charges one generation and commits the slot taken by Reserve,
// if any. On a failed write the local counter is
// rolled back and a *domain.PersistenceError is returned; the caller keeps
// whatever image it already produced.
func (l *Ledger) Increment(ctx context.Context, id string) (domain.UsageRecord, error) {
	e := l.lockEntry(id)
	defer e.mu.Unlock()
	if e.reserved > 0 {
		e.reserved--
	}
	if err := l.ensureLocked(ctx, id, e); err != nil {
		return domain.UsageRecord{}, err
	}
	next := e.record
	next.GenerationsUsed++
	if next.Tier == domain.PlanStandard && next.LastResetDate == nil {
		now := l.now().UTC()
		next.LastResetDate = &now
	}
	err := l.persistLocked(ctx, e, next)
	return e.record, err
}

func (l *Ledger) persistLocked(ctx context.Context, e *entry, next domain.UsageRecord) error {
	prev := e.record
	e.record = next
	reloaded, err := l.dir.UpdateMetadata(ctx, next.IdentityID, applyRecord(e.meta, next))
	if err != nil {
		e.record = prev
		l.logger.Warn().Err(err).
			Str("identity", next.IdentityID).
			Int("generations_used", prev.GenerationsUsed).
			Msg("usage write failed, counter rolled back")
		return &domain.PersistenceError{IdentityID: next.IdentityID, Err: err}
	}
	e.meta = reloaded
	e.record = recordFromMetadata(next.IdentityID, next.Tier, reloaded)
	return nil
}

// Summary returns the identity's usage as shown on the pricing and result screens.
func (l *Ledger) Summary(ctx context.Context, id string) (Summary, error) {
	e := l.lockEntry(id)
	defer e.mu.Unlock()
	if err := l.ensureLocked(ctx, id, e); err != nil {
		return Summary{}, err
	}
	return summarize(e.record), nil
}

func summarize(rec domain.UsageRecord) Summary {
	s := Summary{
		Tier:            rec.Tier,
		GenerationsUsed: rec.GenerationsUsed,
		Watermarked:     rec.Tier.IsFree(),
		LastResetDate:   rec.LastResetDate,
	}
	limit, unbounded := QuotaFor(rec.Tier)
	if unbounded {
		s.Unlimited = true
		return s
	}
	remaining, _ := rec.Remaining()
	s.Limit = &limit
	s.Remaining = &remaining
	return s
}

// Forget drops the cached record so the next call reloads from the directory.
// An entry that is busy or holds reserved slots is kept.
func (l *Ledger) Forget(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok || !e.mu.TryLock() {
		return
	}
	if e.reserved == 0 {
		delete(l.entries, id)
	}
	e.mu.Unlock()
}

func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}
