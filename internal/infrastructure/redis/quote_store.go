package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	quoteKeyPrefix = "settlement:fx:quote:"
	lockKeyPrefix  = "settlement:fx:lock:"
	minKeyTTL      = time.Second
	maxTxAttempts  = 5
)

// QuoteStore shares quotes and locks between service instances. Entries
// expire with their Redis key TTL; a lock key lives as long as its quote.
type QuoteStore struct {
	client goredis.UniversalClient
	now    func() time.Time
}

func NewQuoteStore(client goredis.UniversalClient) *QuoteStore {
	return &QuoteStore{client: client, now: time.Now}
}

func (s *QuoteStore) SaveQuote(ctx context.Context, quote *domain.FXQuote) error {
	payload, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	if err := s.client.Set(ctx, quoteKeyPrefix+quote.ID, payload, s.ttl(quote.ExpiresAt)).Err(); err != nil {
		return fmt.Errorf("%w: redis set quote: %v", domain.ErrStoreError, err)
	}
	return nil
}

func (s *QuoteStore) GetQuote(ctx context.Context, quoteID string) (*domain.FXQuote, error) {
	var quote domain.FXQuote
	if err := s.get(ctx, quoteKeyPrefix+quoteID, &quote); err != nil {
		return nil, fmt.Errorf("quote %s: %w", quoteID, err)
	}
	return &quote, nil
}

// SaveLock writes the lock unless a live or consumed lock with the same id is
// stored, then returns whichever lock is stored.
func (s *QuoteStore) SaveLock(ctx context.Context, lock *domain.LockedQuote) (*domain.LockedQuote, error) {
	key := lockKeyPrefix + lock.LockID
	var stored *domain.LockedQuote

	err := s.update(ctx, key, func(tx *goredis.Tx) error {
		existing, err := s.readLock(ctx, tx, key)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil && (existing.Consumed() || !existing.Expired(s.now())) {
			stored = existing
			return nil
		}
		if err := s.writeLock(ctx, tx, key, lock); err != nil {
			return err
		}
		copied := *lock
		stored = &copied
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save lock %s: %w", lock.LockID, err)
	}
	return stored, nil
}

func (s *QuoteStore) GetLock(ctx context.Context, lockID string) (*domain.LockedQuote, error) {
	var lock domain.LockedQuote
	if err := s.get(ctx, lockKeyPrefix+lockID, &lock); err != nil {
		return nil, fmt.Errorf("lock %s: %w", lockID, err)
	}
	return &lock, nil
}

// ConsumeLock marks the lock used and keeps it until the quote expires.
func (s *QuoteStore) ConsumeLock(ctx context.Context, lockID string, at time.Time) (*domain.LockedQuote, error) {
	key := lockKeyPrefix + lockID
	var consumed *domain.LockedQuote

	err := s.update(ctx, key, func(tx *goredis.Tx) error {
		lock, err := s.readLock(ctx, tx, key)
		if err != nil {
			return err
		}
		if lock.Consumed() {
			return domain.ErrLockConsumed
		}
		consumedAt := at
		lock.ConsumedAt = &consumedAt
		if err := s.writeLock(ctx, tx, key, lock); err != nil {
			return err
		}
		consumed = lock
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lockID, err)
	}
	return consumed, nil
}

// update runs fn under WATCH on key, retrying when another writer wins.
func (s *QuoteStore) update(ctx context.Context, key string, fn func(tx *goredis.Tx) error) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, fn, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: redis lock %s contended", domain.ErrStoreError, key)
}

func (s *QuoteStore) readLock(ctx context.Context, tx *goredis.Tx, key string) (*domain.LockedQuote, error) {
	payload, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", domain.ErrStoreError, err)
	}
	var lock domain.LockedQuote
	if err := json.Unmarshal(payload, &lock); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrStoreError, key, err)
	}
	return &lock, nil
}

func (s *QuoteStore) writeLock(ctx context.Context, tx *goredis.Tx, key string, lock *domain.LockedQuote) error {
	payload, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("encode lock: %w", err)
	}
	_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, key, payload, s.ttl(lock.RetainUntil()))
		return nil
	})
	if err != nil && !errors.Is(err, goredis.TxFailedErr) {
		return fmt.Errorf("%w: redis set lock: %v", domain.ErrStoreError, err)
	}
	return err
}

func (s *QuoteStore) get(ctx context.Context, key string, dst any) error {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: redis get: %v", domain.ErrStoreError, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrStoreError, key, err)
	}
	return nil
}

func (s *QuoteStore) ttl(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(s.now())
	if ttl < minKeyTTL {
		return minKeyTTL
	}
	return ttl
}
