package fx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

// MemoryQuoteStore is the single-node QuoteStore. Entries live until Sweep
// removes them after expiry; consumed locks stay until their quote expires.
type MemoryQuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]*domain.FXQuote
	locks  map[string]*domain.LockedQuote
	now    func() time.Time
}

func NewMemoryQuoteStore() *MemoryQuoteStore {
	return &MemoryQuoteStore{
		quotes: make(map[string]*domain.FXQuote),
		locks:  make(map[string]*domain.LockedQuote),
		now:    time.Now,
	}
}

func (s *MemoryQuoteStore) SaveQuote(_ context.Context, quote *domain.FXQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *quote
	s.quotes[quote.ID] = &stored
	return nil
}

func (s *MemoryQuoteStore) GetQuote(_ context.Context, quoteID string) (*domain.FXQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, ok := s.quotes[quoteID]
	if !ok {
		return nil, domain.NotFoundf("quote %s", quoteID)
	}
	copied := *quote
	return &copied, nil
}

// SaveLock keeps an existing lock with the same id while it is live or
// consumed.
func (s *MemoryQuoteStore) SaveLock(_ context.Context, lock *domain.LockedQuote) (*domain.LockedQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.locks[lock.LockID]; ok && (existing.Consumed() || !existing.Expired(s.now())) {
		copied := *existing
		return &copied, nil
	}
	stored := *lock
	s.locks[lock.LockID] = &stored
	copied := stored
	return &copied, nil
}

func (s *MemoryQuoteStore) GetLock(_ context.Context, lockID string) (*domain.LockedQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lock, ok := s.locks[lockID]
	if !ok {
		return nil, domain.NotFoundf("lock %s", lockID)
	}
	copied := *lock
	return &copied, nil
}

func (s *MemoryQuoteStore) ConsumeLock(_ context.Context, lockID string, at time.Time) (*domain.LockedQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[lockID]
	if !ok {
		return nil, domain.NotFoundf("lock %s", lockID)
	}
	if lock.Consumed() {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockConsumed, lockID)
	}
	consumedAt := at
	lock.ConsumedAt = &consumedAt
	copied := *lock
	return &copied, nil
}

// Sweep drops expired quotes and locks and reports how many were removed.
func (s *MemoryQuoteStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, quote := range s.quotes {
		if quote.Expired(now) {
			delete(s.quotes, id)
			removed++
		}
	}
	for id, lock := range s.locks {
		if !now.Before(lock.RetainUntil()) {
			delete(s.locks, id)
			removed++
		}
	}
	return removed
}
