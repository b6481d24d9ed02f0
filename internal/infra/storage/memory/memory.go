// Package memory implements the storage repositories in process memory.
// Used by demo deployments and tests that run without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage"
)

// Storage holds all in-memory repositories behind one lock.
type Storage struct {
	mu        sync.RWMutex
	cards     map[domain.CardID]*domain.Card
	snapshots map[domain.CardID][]*domain.HealthSnapshot
	verdicts  map[domain.CardID][]*domain.HealthVerdict
	attempts  map[domain.CardID][]*domain.RecoveryAttempt
	pending   []*domain.PendingRecovery
}

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{
		cards:     make(map[domain.CardID]*domain.Card),
		snapshots: make(map[domain.CardID][]*domain.HealthSnapshot),
		verdicts:  make(map[domain.CardID][]*domain.HealthVerdict),
		attempts:  make(map[domain.CardID][]*domain.RecoveryAttempt),
	}
}

// Cards returns the card repository view.
func (s *Storage) Cards() storage.CardRepository { return (*cardRepo)(s) }

// Snapshots returns the snapshot repository view.
func (s *Storage) Snapshots() storage.SnapshotRepository { return (*snapshotRepo)(s) }

// Verdicts returns the verdict repository view.
func (s *Storage) Verdicts() storage.VerdictRepository { return (*verdictRepo)(s) }

// Attempts returns the recovery attempt repository view.
func (s *Storage) Attempts() storage.AttemptRepository { return (*attemptRepo)(s) }

// Queue returns the recovery queue view.
func (s *Storage) Queue() storage.RecoveryQueue { return (*recoveryQueue)(s) }

// ==== cards ====

type cardRepo Storage

func (r *cardRepo) Upsert(ctx context.Context, card *domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *card
	r.cards[card.ID] = &c
	return nil
}

func (r *cardRepo) Get(ctx context.Context, cardID domain.CardID) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, ok := r.cards[cardID]
	if !ok {
		return nil, storage.ErrCardNotFound
	}
	c := *card
	return &c, nil
}

func (r *cardRepo) GetAll(ctx context.Context) ([]*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cards := make([]*domain.Card, 0, len(r.cards))
	for _, card := range r.cards {
		c := *card
		cards = append(cards, &c)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, nil
}

// ==== snapshots ====

type snapshotRepo Storage

func (r *snapshotRepo) Save(ctx context.Context, snap *domain.HealthSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := *snap
	r.snapshots[snap.CardID] = append(r.snapshots[snap.CardID], &s)
	return nil
}

func (r *snapshotRepo) GetLatest(ctx context.Context, cardID domain.CardID) (*domain.HealthSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.snapshots[cardID]
	if len(history) == 0 {
		return nil, nil
	}
	s := *history[len(history)-1]
	return &s, nil
}

func (r *snapshotRepo) DeleteOlderThan(ctx context.Context, cardID domain.CardID, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := make([]*domain.HealthSnapshot, 0)
	for _, s := range r.snapshots[cardID] {
		if !s.CollectedAt.Before(before) {
			kept = append(kept, s)
		}
	}
	r.snapshots[cardID] = kept
	return nil
}

// ==== verdicts ====

type verdictRepo Storage

func (r *verdictRepo) Save(ctx context.Context, v *domain.HealthVerdict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *v
	r.verdicts[v.CardID] = append(r.verdicts[v.CardID], &c)
	return nil
}

func (r *verdictRepo) GetLatest(ctx context.Context, cardID domain.CardID) (*domain.HealthVerdict, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.verdicts[cardID]
	if len(history) == 0 {
		return nil, nil
	}
	v := *history[len(history)-1]
	return &v, nil
}

// ==== attempts ====

type attemptRepo Storage

func (r *attemptRepo) Save(ctx context.Context, attempt *domain.RecoveryAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := *attempt
	r.attempts[attempt.CardID] = append(r.attempts[attempt.CardID], &a)
	return nil
}

func (r *attemptRepo) GetRecent(ctx context.Context, cardID domain.CardID, limit int) ([]*domain.RecoveryAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.attempts[cardID]
	recent := make([]*domain.RecoveryAttempt, 0, limit)
	for i := len(history) - 1; i >= 0 && len(recent) < limit; i-- {
		a := *history[i]
		recent = append(recent, &a)
	}
	return recent, nil
}

func (r *attemptRepo) DeleteOlderThan(ctx context.Context, cardID domain.CardID, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := make([]*domain.RecoveryAttempt, 0)
	for _, a := range r.attempts[cardID] {
		if !a.FinishedAt.Before(before) {
			kept = append(kept, a)
		}
	}
	r.attempts[cardID] = kept
	return nil
}

// ==== recovery queue ====

type recoveryQueue Storage

func (q *recoveryQueue) Enqueue(ctx context.Context, pr *domain.PendingRecovery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	p := *pr
	q.pending = append(q.pending, &p)
	return nil
}

// Next returns the pending entry with the fewest retries, oldest first on ties.
func (q *recoveryQueue) Next(ctx context.Context) (*domain.PendingRecovery, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var next *domain.PendingRecovery
	for _, pr := range q.pending {
		if pr.Status != domain.PendingRecoveryPending {
			continue
		}
		if next == nil ||
			pr.RetryCount < next.RetryCount ||
			(pr.RetryCount == next.RetryCount && pr.CreatedAt.Before(next.CreatedAt)) {
			next = pr
		}
	}
	if next == nil {
		return nil, nil
	}
	p := *next
	return &p, nil
}

func (q *recoveryQueue) IncrementRetry(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, pr := range q.pending {
		if pr.ID == id {
			pr.RetryCount++
			pr.LastAttempt = time.Now()
		}
	}
	return nil
}

func (q *recoveryQueue) MarkResolved(ctx context.Context, id string) error {
	return q.setStatus(id, domain.PendingRecoveryResolved)
}

func (q *recoveryQueue) MarkExhausted(ctx context.Context, id string) error {
	return q.setStatus(id, domain.PendingRecoveryExhausted)
}

func (q *recoveryQueue) setStatus(id string, status domain.PendingRecoveryStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := make([]*domain.PendingRecovery, 0, len(q.pending))
	for _, pr := range q.pending {
		if pr.ID == id {
			pr.Status = status
			continue
		}
		kept = append(kept, pr)
	}
	q.pending = kept
	return nil
}

func (q *recoveryQueue) Depth(ctx context.Context) (int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	n := 0
	for _, pr := range q.pending {
		if pr.Status == domain.PendingRecoveryPending {
			n++
		}
	}
	return n, nil
}
