package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/afyakart/storefront-backend/pkg/config"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	// Daraja timestamps are local time in this exact layout.
	timestampLayout = "20060102150405"

	transactionTypePayBill = "CustomerPayBillOnline"

	responseBodyReadLimit int64 = 8192

	// tokens last an hour; refresh slightly early
	tokenExpirySlack = 60 * time.Second
)

// Client wraps the Daraja OAuth, STK push and STK query APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	callbackURL    string
	now            func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the environment-derived base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithClock overrides the time source used for password timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a Daraja client from the loaded configuration.
func NewClient(cfg config.MpesaConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.ConsumerKey) == "" || strings.TrimSpace(cfg.ConsumerSecret) == "" {
		return nil, fmt.Errorf("mpesa consumer credentials are required")
	}
	if strings.TrimSpace(cfg.ShortCode) == "" {
		return nil, fmt.Errorf("mpesa short code is required")
	}
	if strings.TrimSpace(cfg.Passkey) == "" {
		return nil, fmt.Errorf("mpesa passkey is required")
	}
	if strings.TrimSpace(cfg.CallbackURL) == "" {
		return nil, fmt.Errorf("mpesa callback url is required")
	}

	baseURL := sandboxBaseURL
	if cfg.Environment() == "production" {
		baseURL = productionBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		consumerKey:    strings.TrimSpace(cfg.ConsumerKey),
		consumerSecret: strings.TrimSpace(cfg.ConsumerSecret),
		shortCode:      strings.TrimSpace(cfg.ShortCode),
		passkey:        strings.TrimSpace(cfg.Passkey),
		callbackURL:    strings.TrimSpace(cfg.CallbackURL),
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// STKPushRequest carries one push-to-phone payment prompt.
type STKPushRequest struct {
	PhoneNumber      string
	Amount           int
	AccountReference string
	TransactionDesc  string
}

// STKPushResponse is Daraja's acknowledgement of an STK push request. A
// ResponseCode of "0" means the prompt was queued to the handset, not that
// the customer paid.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	Raw                 string `json:"-"`
}

// Accepted reports whether Daraja queued the prompt.
func (r *STKPushResponse) Accepted() bool {
	return r != nil && r.ResponseCode == "0"
}

// QueryResponse is the synchronous status of a previously pushed prompt.
type QueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
	Raw                 string `json:"-"`
}

// AccessToken returns a cached OAuth token, fetching a new one when the
// cached token is missing or near expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	url := c.buildURL("oauth/v1/generate?grant_type=client_credentials")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build token request")
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.consumerKey + ":" + c.consumerSecret))
	httpReq.Header.Set("Authorization", "Basic "+credentials)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute token request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "token request failed")
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode token response")
	}
	if tokenResp.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "token response missing access_token")
	}

	ttl := time.Hour
	if seconds, err := strconv.Atoi(tokenResp.ExpiresIn); err == nil && seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}
	c.token = tokenResp.AccessToken
	c.tokenExpiry = c.now().Add(ttl - tokenExpirySlack)
	return c.token, nil
}

// STKPush sends the payment prompt to the customer's handset.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	timestamp, password := c.password()

	payload := map[string]any{
		"BusinessShortCode": c.shortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   transactionTypePayBill,
		"Amount":            req.Amount,
		"PartyA":            req.PhoneNumber,
		"PartyB":            c.shortCode,
		"PhoneNumber":       req.PhoneNumber,
		"CallBackURL":       c.callbackURL,
		"AccountReference":  req.AccountReference,
		"TransactionDesc":   req.TransactionDesc,
	}

	var out STKPushResponse
	raw, err := c.postJSON(ctx, "mpesa/stkpush/v1/processrequest", token, payload, &out)
	if err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// QueryStatus asks Daraja for the outcome of a previously pushed prompt.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResponse, error) {
	if strings.TrimSpace(checkoutRequestID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout request id is required")
	}
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	timestamp, password := c.password()

	payload := map[string]any{
		"BusinessShortCode": c.shortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	var out QueryResponse
	raw, err := c.postJSON(ctx, "mpesa/stkpushquery/v1/query", token, payload, &out)
	if err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// postJSON executes one authenticated Daraja POST. Daraja reports rejections
// as JSON bodies on non-200 statuses too, so any parseable body is returned
// to the caller rather than treated as a transport failure.
func (c *Client) postJSON(ctx context.Context, path, token string, payload any, out any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read response")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), "decode response")
	}
	return string(raw), nil
}

// password derives the Lipa Na M-Pesa password for the current timestamp.
func (c *Client) password() (timestamp, password string) {
	timestamp = c.now().Format(timestampLayout)
	password = base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passkey + timestamp))
	return timestamp, password
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
