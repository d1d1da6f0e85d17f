package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRailsClient_Dispatch(t *testing.T) {
	var (
		gotKey  string
		gotAuth string
		gotBody settlementRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/settlements", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"settlement_id":"stl_remote","status":"accepted"}`))
	}))
	defer srv.Close()

	c := NewHTTPRailsClient(srv.URL+"/", "secret", time.Second)
	lock := &domain.LockedQuote{LockID: "lock_q1"}
	lock.Rate = 5.85
	id, err := c.Dispatch(context.Background(), domain.DispatchRequest{
		IdempotencyKey: "exec-1",
		Rail:           domain.RailPix,
		PriorityClass:  domain.PriorityExpedited,
		Amount:         582.08,
		Currency:       "BRL",
		Destination:    &domain.Destination{Rail: domain.RailPix, Name: "Maria", Details: map[string]string{"pix_key": "maria@email.com"}},
		LockedQuote:    lock,
	})
	require.NoError(t, err)
	assert.Equal(t, "stl_remote", id)
	assert.Equal(t, "exec-1", gotKey)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "pix", gotBody.Rail)
	assert.Equal(t, "expedited", gotBody.PriorityClass)
	assert.Equal(t, "lock_q1", gotBody.LockID)
	assert.Equal(t, "maria@email.com", gotBody.Destination["pix_key"])
}

func TestHTTPRailsClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		wantID string
	}{
		{"rejected", http.StatusUnprocessableEntity, `{"success":false,"error":"invalid clabe"}`, ""},
		{"server error", http.StatusBadGateway, `oops`, ""},
		{"replay with id", http.StatusConflict, `{"settlement_id":"stl_prev"}`, "stl_prev"},
		{"replay without id", http.StatusConflict, `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			id, err := NewHTTPRailsClient(srv.URL, "", time.Second).Dispatch(context.Background(), domain.DispatchRequest{IdempotencyKey: "k"})
			if tt.wantID != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDispatchFailed)
		})
	}
}

func TestHTTPWalletClient_GetWalletBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tenants/t1/wallets/w1/balance":
			_, _ = w.Write([]byte(`{"tenant_id":"t1","wallet_id":"w1","currency":"usd","balance":1200.5}`))
		case "/tenants/t1/wallets/missing/balance":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"ledger offline"}`))
		}
	}))
	defer srv.Close()

	c := NewHTTPWalletClient(srv.URL, time.Second)

	balance, currency, err := c.GetWalletBalance(context.Background(), "t1", "w1")
	require.NoError(t, err)
	assert.Equal(t, 1200.5, balance)
	assert.Equal(t, "USD", currency)

	_, _, err = c.GetWalletBalance(context.Background(), "t1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = c.GetWalletBalance(context.Background(), "t1", "other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger offline")
}
