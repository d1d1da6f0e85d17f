package domain

import (
	"context"
	"time"
)

// LiveRateSource returns rates quoted against base, e.g. {"BRL": 5.85} for USD.
type LiveRateSource interface {
	FetchRates(ctx context.Context, base string) (map[string]float64, error)
	GetName() string
}

// QuoteStore keeps quotes and locks until they expire.
type QuoteStore interface {
	SaveQuote(ctx context.Context, quote *FXQuote) error
	GetQuote(ctx context.Context, quoteID string) (*FXQuote, error)
	// SaveLock stores the lock unless a live or consumed lock with the same
	// id exists; it returns the stored lock either way.
	SaveLock(ctx context.Context, lock *LockedQuote) (*LockedQuote, error)
	GetLock(ctx context.Context, lockID string) (*LockedQuote, error)
	// ConsumeLock marks the lock used at the given time. Exactly one caller
	// succeeds; later callers get ErrLockConsumed.
	ConsumeLock(ctx context.Context, lockID string, at time.Time) (*LockedQuote, error)
}
