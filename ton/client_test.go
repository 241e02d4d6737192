package ton

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositReturnsPaymentID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/deposit", r.URL.Path)
		assert.Equal(t, "Bearer key1", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"payment_id":"pay-7","status":"pending"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key1")
	paymentID, err := client.Deposit(context.Background(), "alice", 100)
	require.NoError(t, err)
	assert.Equal(t, "pay-7", paymentID)
}

func TestDepositRejectedByGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rejected", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key1")
	_, err := client.Deposit(context.Background(), "alice", 100)
	assert.ErrorIs(t, err, ErrPaymentRejected)
}

func TestBadCredentialsMapToInvalidSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad signature", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "wrong-key")
	ctx := context.Background()

	_, err := client.Withdraw(ctx, "alice", "wallet1", 50)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = client.Balance(ctx, "alice")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = client.Verify(ctx, "pay-7")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyReportsConfirmation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay-7", r.URL.Path)
		fmt.Fprint(w, `{"payment_id":"pay-7","status":"confirmed"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key1")
	confirmed, err := client.Verify(context.Background(), "pay-7")
	require.NoError(t, err)
	assert.True(t, confirmed)
}

func TestBalanceReadsWallet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/wallets/alice/balance", r.URL.Path)
		fmt.Fprint(w, `{"balance":321.5}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key1")
	balance, err := client.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 321.5, balance)
}
