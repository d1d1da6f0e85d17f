package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

// HTTPRailsClient submits settlements to the payout rails gateway.
type HTTPRailsClient struct {
	address string
	apiKey  string
	client  *http.Client
}

func NewHTTPRailsClient(address, apiKey string, timeout time.Duration) *HTTPRailsClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPRailsClient{
		address: strings.TrimRight(address, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Dispatch posts the settlement with the idempotency key as a header, so a
// retried request is deduplicated by the gateway.
func (c *HTTPRailsClient) Dispatch(ctx context.Context, req domain.DispatchRequest) (string, error) {
	body := settlementRequest{
		Rail:          string(req.Rail),
		PriorityClass: string(req.PriorityClass),
		Amount:        req.Amount,
		Currency:      req.Currency,
		Metadata:      req.Metadata,
	}
	if req.Destination != nil {
		body.Beneficiary = req.Destination.Name
		body.Destination = req.Destination.Details
	}
	if req.LockedQuote != nil {
		body.LockID = req.LockedQuote.LockID
		body.Rate = req.LockedQuote.Rate
	}

	requestBodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address+"/settlements", bytes.NewReader(requestBodyBytes))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	response, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
	}
	defer response.Body.Close()
	responseBodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrDispatchFailed, err)
	}

	// 409 is a replay of an idempotency key the gateway already accepted.
	if (response.StatusCode >= 200 && response.StatusCode < 300) || response.StatusCode == http.StatusConflict {
		var settlement settlementResponse
		if err := json.Unmarshal(responseBodyBytes, &settlement); err != nil {
			return "", fmt.Errorf("%w: decode response: %v", domain.ErrDispatchFailed, err)
		}
		if settlement.SettlementID != "" || response.StatusCode != http.StatusConflict {
			return settlement.SettlementID, nil
		}
	}
	return "", fmt.Errorf("%w: %v", domain.ErrDispatchFailed, remoteError(response.StatusCode, responseBodyBytes))
}
