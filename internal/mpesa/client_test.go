package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afyakart/storefront-backend/pkg/config"
)

func testConfig() config.MpesaConfig {
	return config.MpesaConfig{
		Env:            "sandbox",
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://api.afyakart.co.ke/api/v1/payments/mpesa/callback",
		Timeout:        5 * time.Second,
	}
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(testConfig(), append([]Option{WithBaseURL(baseURL)}, opts...)...)
	require.NoError(t, err)
	return client
}

func TestAccessTokenSendsBasicAuthAndCaches(t *testing.T) {
	tokenCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/v1/generate", r.URL.Path)
		require.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
		require.Equal(t, expected, r.Header.Get("Authorization"))
		tokenCalls++
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "token-abc",
			"expires_in":   "3599",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	token, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-abc", token)

	token, err = client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-abc", token)
	assert.Equal(t, 1, tokenCalls, "second call hits the cache")
}

func TestAccessTokenRefreshesAfterExpiry(t *testing.T) {
	tokenCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "token-abc",
			"expires_in":   "3599",
		})
	}))
	defer server.Close()

	now := time.Date(2026, 8, 29, 14, 30, 0, 0, time.Local)
	client := newTestClient(t, server.URL, WithClock(func() time.Time { return now }))

	_, err := client.AccessToken(context.Background())
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tokenCalls)
}

func TestSTKPushBuildsDarajaPayload(t *testing.T) {
	fixed := time.Date(2026, 8, 29, 14, 30, 0, 0, time.Local)
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "token-abc", "expires_in": "3599"})
		case "/mpesa/stkpush/v1/processrequest":
			require.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"MerchantRequestID":   "merchant-1",
				"CheckoutRequestID":   "ws_CO_TEST_1",
				"ResponseCode":        "0",
				"ResponseDescription": "Success. Request accepted for processing",
				"CustomerMessage":     "Enter your M-PESA PIN",
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithClock(func() time.Time { return fixed }))

	resp, err := client.STKPush(context.Background(), STKPushRequest{
		PhoneNumber:      "254712345678",
		Amount:           2500,
		AccountReference: "ORDER-ABC123",
		TransactionDesc:  "Payment for order ABC123",
	})
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
	assert.Equal(t, "ws_CO_TEST_1", resp.CheckoutRequestID)
	assert.NotEmpty(t, resp.Raw)

	timestamp := fixed.Format("20060102150405")
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + timestamp))
	assert.Equal(t, "174379", captured["BusinessShortCode"])
	assert.Equal(t, wantPassword, captured["Password"])
	assert.Equal(t, timestamp, captured["Timestamp"])
	assert.Equal(t, "CustomerPayBillOnline", captured["TransactionType"])
	assert.Equal(t, float64(2500), captured["Amount"])
	assert.Equal(t, "254712345678", captured["PartyA"])
	assert.Equal(t, "174379", captured["PartyB"])
	assert.Equal(t, "254712345678", captured["PhoneNumber"])
	assert.Equal(t, "https://api.afyakart.co.ke/api/v1/payments/mpesa/callback", captured["CallBackURL"])
	assert.Equal(t, "ORDER-ABC123", captured["AccountReference"])
}

func TestSTKPushReturnsDarajaRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "token-abc", "expires_in": "3599"})
			return
		}
		// Daraja reports request errors as JSON on non-200 statuses
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode":        "1",
			"ResponseDescription": "Invalid Amount",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.STKPush(context.Background(), STKPushRequest{
		PhoneNumber:      "254712345678",
		Amount:           0,
		AccountReference: "ORDER-ABC123",
		TransactionDesc:  "Payment",
	})
	require.NoError(t, err)
	assert.False(t, resp.Accepted())
	assert.Equal(t, "Invalid Amount", resp.ResponseDescription)
}

func TestQueryStatusRequiresCheckoutID(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")
	_, err := client.QueryStatus(context.Background(), "  ")
	require.Error(t, err)
}

func TestNewClientValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Passkey = ""
	_, err := NewClient(cfg)
	require.Error(t, err)
}
