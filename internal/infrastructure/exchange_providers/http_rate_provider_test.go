package exchangeproviders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(url string) *HTTPRateProvider {
	return NewHTTPRateProvider(HTTPRateProviderConfig{BaseURL: url, RequestsPerMin: 6000}, nil)
}

func TestHTTPRateProvider_FetchRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/USD", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"USD":1,"BRL":5.61,"MXN":18.02}}`))
	}))
	defer server.Close()

	rates, err := newProvider(server.URL + "/").FetchRates(context.Background(), "usd")
	require.NoError(t, err)
	assert.Equal(t, 5.61, rates["BRL"])
	assert.Equal(t, 18.02, rates["MXN"])
}

func TestHTTPRateProvider_RejectsBadResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non 2xx", http.StatusBadGateway, `{}`},
		{"malformed", http.StatusOK, `{"result":`},
		{"error result", http.StatusOK, `{"result":"error","error-type":"unsupported-code"}`},
		{"wrong base", http.StatusOK, `{"result":"success","base_code":"EUR","rates":{"BRL":6}}`},
		{"empty rates", http.StatusOK, `{"result":"success","base_code":"USD","rates":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newProvider(server.URL).FetchRates(context.Background(), "USD")
			assert.Error(t, err)
		})
	}
}

func TestHTTPRateProvider_BreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := newProvider(server.URL)
	for i := 0; i < 3; i++ {
		_, err := provider.FetchRates(context.Background(), "USD")
		require.Error(t, err)
	}

	_, err := provider.FetchRates(context.Background(), "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, int32(3), hits.Load())
}
