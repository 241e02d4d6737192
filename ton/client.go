// Package ton talks to the external TON payment gateway used for
// balance top-ups and withdrawals.
package ton

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrPaymentRejected  = errors.New("payment rejected by gateway")
	ErrInvalidSignature = errors.New("invalid payment signature")
)

// Gateway abstracts the payment provider so the ledger service can be
// tested without network access.
type Gateway interface {
	Deposit(ctx context.Context, userID string, amount float64) (string, error)
	Withdraw(ctx context.Context, userID, wallet string, amount float64) (string, error)
	Balance(ctx context.Context, userID string) (float64, error)
	Verify(ctx context.Context, paymentID string) (bool, error)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type paymentRequest struct {
	UserID string  `json:"user_id"`
	Wallet string  `json:"wallet,omitempty"`
	Amount float64 `json:"amount"`
}

type paymentResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*paymentResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, ErrPaymentRejected
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidSignature
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return &out, nil
}

func (c *Client) Deposit(ctx context.Context, userID string, amount float64) (string, error) {
	resp, err := c.post(ctx, "/v1/payments/deposit", paymentRequest{UserID: userID, Amount: amount})
	if err != nil {
		return "", err
	}
	return resp.PaymentID, nil
}

func (c *Client) Withdraw(ctx context.Context, userID, wallet string, amount float64) (string, error) {
	resp, err := c.post(ctx, "/v1/payments/withdraw", paymentRequest{UserID: userID, Wallet: wallet, Amount: amount})
	if err != nil {
		return "", err
	}
	return resp.PaymentID, nil
}

// Balance reports the user's on-chain wallet balance as the gateway
// sees it. This is the external wallet, not the tournament ledger.
func (c *Client) Balance(ctx context.Context, userID string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/wallets/"+userID+"/balance", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return 0, ErrInvalidSignature
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out struct {
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *Client) Verify(ctx context.Context, paymentID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return false, ErrInvalidSignature
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Status == "confirmed", nil
}
