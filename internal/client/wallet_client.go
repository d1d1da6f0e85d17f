package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

// HTTPWalletClient reads wallet balances for scheduled settlements.
type HTTPWalletClient struct {
	address string
	client  *http.Client
}

func NewHTTPWalletClient(address string, timeout time.Duration) *HTTPWalletClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPWalletClient{
		address: strings.TrimRight(address, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPWalletClient) GetWalletBalance(ctx context.Context, tenantID, walletID string) (float64, string, error) {
	endpoint := fmt.Sprintf("%s/tenants/%s/wallets/%s/balance", c.address, url.PathEscape(tenantID), url.PathEscape(walletID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, "", err
	}

	response, err := c.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("wallet balance request: %w", err)
	}
	defer response.Body.Close()
	responseBodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, "", err
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		var balance balanceResponse
		if err := json.Unmarshal(responseBodyBytes, &balance); err != nil {
			return 0, "", fmt.Errorf("decode wallet balance: %w", err)
		}
		return balance.Balance, strings.ToUpper(balance.Currency), nil
	}
	if response.StatusCode == http.StatusNotFound {
		return 0, "", domain.NotFoundf("wallet %s", walletID)
	}
	return 0, "", remoteError(response.StatusCode, responseBodyBytes)
}

func remoteError(status int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("status %d: %w", status, errors.New(errResp.Error))
	}
	return fmt.Errorf("unexpected status %d", status)
}
