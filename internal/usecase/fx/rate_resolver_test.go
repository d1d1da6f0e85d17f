package fx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	rates map[string]float64
	err   error
	calls int
}

func (f *fakeSource) FetchRates(_ context.Context, base string) (map[string]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

func (f *fakeSource) GetName() string { return "fake-live" }

func TestRateResolver_Rate(t *testing.T) {
	r := NewRateResolver(nil, ResolverConfig{}, nil)

	rate, err := r.Rate("BRL", "brl")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)

	rate, err = r.Rate("USD", "BRL")
	require.NoError(t, err)
	assert.Equal(t, 5.85, rate)

	rate, err = r.Rate("BRL", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 1/5.85, rate, 1e-12)

	rate, err = r.Rate("BRL", "MXN")
	require.NoError(t, err)
	assert.InDelta(t, 17.25/5.85, rate, 1e-12)

	_, err = r.Rate("USD", "XYZ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateUnavailable))

	_, err = r.Rate("XYZ", "BRL")
	assert.True(t, errors.Is(err, domain.ErrRateUnavailable))
}

func TestRateResolver_CrossRateMatchesDirect(t *testing.T) {
	r := NewRateResolver(nil, ResolverConfig{}, nil)

	cross, err := r.Rate("EUR", "MXN")
	require.NoError(t, err)

	require.NoError(t, r.SetRate("EUR", "MXN", 17.25/0.92))
	direct, err := r.Rate("EUR", "MXN")
	require.NoError(t, err)

	r.RemoveRate("EUR", "MXN")
	again, err := r.Rate("EUR", "MXN")
	require.NoError(t, err)

	assert.InDelta(t, direct, cross, 1e-9)
	assert.InDelta(t, cross, again, 1e-12)
}

func TestRateResolver_DirectEntryWinsOverInverse(t *testing.T) {
	r := NewRateResolver(nil, ResolverConfig{}, nil)
	require.NoError(t, r.SetRate("BRL", "USD", 0.2))

	rate, err := r.Rate("BRL", "USD")
	require.NoError(t, err)
	assert.Equal(t, 0.2, rate)

	assert.Error(t, r.SetRate("BRL", "USD", 0))
}

func TestRateResolver_Refresh(t *testing.T) {
	source := &fakeSource{rates: map[string]float64{"BRL": 5.5, "JPY": 150, "USD": 1, "BAD": -1}}
	r := NewRateResolver(source, ResolverConfig{CacheTTL: time.Minute}, nil)
	clock := time.Now()
	r.now = func() time.Time { return clock }

	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, "fake-live", r.Provider())

	rate, err := r.Rate("USD", "BRL")
	require.NoError(t, err)
	assert.Equal(t, 5.5, rate)

	rate, err = r.Rate("JPY", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/150, rate, 1e-12)

	_, err = r.Rate("USD", "BAD")
	assert.Error(t, err)

	// Still inside the TTL: no second fetch.
	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, 1, source.calls)

	// Expired TTL and a failing source: last known good stays.
	clock = clock.Add(2 * time.Minute)
	source.err = errors.New("connection refused")
	err = r.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, source.calls)

	rate, err = r.Rate("USD", "BRL")
	require.NoError(t, err)
	assert.Equal(t, 5.5, rate)
	assert.Equal(t, "fake-live", r.Provider())
}

func TestRateResolver_RefreshFailureFallsBackToBaseline(t *testing.T) {
	source := &fakeSource{err: errors.New("timeout")}
	r := NewRateResolver(source, ResolverConfig{}, nil)

	assert.Error(t, r.Refresh(context.Background()))
	assert.Equal(t, BaselineProvider, r.Provider())

	rate, err := r.Rate("USD", "MXN")
	require.NoError(t, err)
	assert.Equal(t, 17.25, rate)
}
