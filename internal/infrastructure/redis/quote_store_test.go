package redis

import (
	"context"
	"testing"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase/fx"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*QuoteStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQuoteStore(client), mr
}

func TestQuoteStore_QuoteTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	quote := &domain.FXQuote{ID: "q1", SourceCurrency: "USD", DestinationCurrency: "BRL", Rate: 5.85, ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.SaveQuote(ctx, quote))

	got, err := store.GetQuote(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, 5.85, got.Rate)
	assert.InDelta(t, time.Minute.Seconds(), mr.TTL(quoteKeyPrefix+"q1").Seconds(), 1)

	mr.FastForward(61 * time.Second)
	_, err = store.GetQuote(ctx, "q1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteStore_LockIsWrittenOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := &domain.LockedQuote{LockID: "lock_q1", LockedAt: now, LockExpiresAt: now.Add(30 * time.Second)}
	first.Rate = 5.85
	stored, err := store.SaveLock(ctx, first)
	require.NoError(t, err)
	assert.True(t, now.Equal(stored.LockedAt))

	second := &domain.LockedQuote{LockID: "lock_q1", LockedAt: now.Add(time.Second), LockExpiresAt: now.Add(31 * time.Second)}
	stored, err = store.SaveLock(ctx, second)
	require.NoError(t, err)
	assert.True(t, now.Equal(stored.LockedAt))
	assert.Equal(t, 5.85, stored.Rate)

	// An expired, unused lock gives way to a new one.
	store.now = func() time.Time { return now.Add(40 * time.Second) }
	third := &domain.LockedQuote{LockID: "lock_q1", LockedAt: now.Add(40 * time.Second), LockExpiresAt: now.Add(70 * time.Second)}
	stored, err = store.SaveLock(ctx, third)
	require.NoError(t, err)
	assert.True(t, third.LockedAt.Equal(stored.LockedAt))
}

func TestQuoteStore_ConsumedLockOutlivesItsWindow(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	store.now = func() time.Time { return now }

	lock := &domain.LockedQuote{LockID: "lock_q1", LockedAt: now, LockExpiresAt: now.Add(30 * time.Second)}
	lock.ExpiresAt = now.Add(time.Minute)
	_, err := store.SaveLock(ctx, lock)
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), mr.TTL(lockKeyPrefix+"lock_q1").Seconds(), 1)

	consumed, err := store.ConsumeLock(ctx, "lock_q1", now)
	require.NoError(t, err)
	assert.True(t, consumed.Consumed())

	_, err = store.ConsumeLock(ctx, "lock_q1", now)
	assert.ErrorIs(t, err, domain.ErrLockConsumed)
	_, err = store.ConsumeLock(ctx, "lock_missing", now)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	store.now = func() time.Time { return now.Add(45 * time.Second) }
	mr.FastForward(45 * time.Second)
	fresh := &domain.LockedQuote{LockID: "lock_q1", LockedAt: now.Add(45 * time.Second), LockExpiresAt: now.Add(75 * time.Second)}
	stored, err := store.SaveLock(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, stored.Consumed())
	assert.True(t, now.Equal(stored.LockedAt))

	mr.FastForward(16 * time.Second)
	_, err = store.GetLock(ctx, "lock_q1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteStore_BacksQuoteService(t *testing.T) {
	store, _ := newTestStore(t)
	svc := fx.NewQuoteService(fx.NewRateResolver(nil, fx.ResolverConfig{}, nil), store, fx.QuoteConfig{}, nil)
	ctx := context.Background()

	source := 100.0
	quote, err := svc.GetQuote(ctx, domain.QuoteRequest{SourceCurrency: "USD", DestinationCurrency: "MXN", SourceAmount: &source})
	require.NoError(t, err)

	lock, err := svc.LockQuote(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.Rate, lock.Rate)

	again, err := svc.LockQuote(ctx, quote.ID)
	require.NoError(t, err)
	assert.True(t, lock.LockedAt.Equal(again.LockedAt))

	_, err = svc.ConsumeLock(ctx, lock.LockID)
	require.NoError(t, err)
	_, err = svc.ConsumeLock(ctx, lock.LockID)
	assert.ErrorIs(t, err, domain.ErrLockConsumed)
}

func TestQuoteStore_ConsumedQuoteCannotBeRelocked(t *testing.T) {
	store, _ := newTestStore(t)
	cfg := fx.QuoteConfig{QuoteTTL: time.Minute, LockTTL: 50 * time.Millisecond}
	svc := fx.NewQuoteService(fx.NewRateResolver(nil, fx.ResolverConfig{}, nil), store, cfg, nil)
	ctx := context.Background()

	source := 100.0
	quote, err := svc.GetQuote(ctx, domain.QuoteRequest{SourceCurrency: "USD", DestinationCurrency: "BRL", SourceAmount: &source})
	require.NoError(t, err)
	lock, err := svc.LockQuote(ctx, quote.ID)
	require.NoError(t, err)
	_, err = svc.ConsumeLock(ctx, lock.LockID)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	_, err = svc.LockQuote(ctx, quote.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockConsumed)
	assert.Equal(t, domain.CodeValidation, domain.Code(err))

	_, err = svc.ConsumeLock(ctx, lock.LockID)
	assert.ErrorIs(t, err, domain.ErrLockConsumed)
}

func TestQuoteStore_UnavailableRedis(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	err := store.SaveQuote(context.Background(), &domain.FXQuote{ID: "q1", ExpiresAt: time.Now().Add(time.Minute)})
	assert.ErrorIs(t, err, domain.ErrStoreError)
}
