// Package daraja implements the M-Pesa Daraja API client: OAuth token
// exchange with a cached bearer token, STK push initiation, and STK status
// query. The client is the only component allowed to talk to the provider.
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/noloji/payments-service/internal/config"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	tokenEndpoint    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushEndpoint  = "/mpesa/stkpush/v1/processrequest"
	stkQueryEndpoint = "/mpesa/stkpushquery/v1/query"

	transactionType = "CustomerPayBillOnline"

	// Tokens are refreshed this long before the provider-reported expiry
	tokenExpiryMargin = 5 * time.Minute
)

// Client talks to the Daraja API. The token cache is the only mutable state;
// the refresh critical section is protected so concurrent callers perform a
// single credential exchange.
type Client struct {
	cfg        config.DarajaConfig
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Daraja client for the configured environment
func NewClient(logger *slog.Logger, cfg config.DarajaConfig) *Client {
	baseURL := sandboxBaseURL
	if cfg.Environment == "production" {
		baseURL = productionBaseURL
	}

	return &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// Configured reports whether the credentials required to initiate payments
// are present.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// Environment returns the configured provider environment
func (c *Client) Environment() string {
	return c.cfg.Environment
}

// AccessToken returns the cached bearer token, performing a credential
// exchange when the cache is empty or within the expiry margin. Failure
// yields an error wrapping ErrAuth.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenEndpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrAuth, resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token in response", ErrAuth)
	}

	c.token = tr.AccessToken
	c.tokenExpiry = c.now().Add(tr.ttl() - tokenExpiryMargin)

	c.logger.Debug("Refreshed Daraja access token", "expires_at", c.tokenExpiry)

	return c.token, nil
}

// InitiateSTKPush submits a signed push request. The phone number must
// already be normalized; the amount must be whole currency units. A body-level
// non-zero response code yields a RejectionError.
func (c *Client) InitiateSTKPush(ctx context.Context, phoneNumber string, amount int64, accountReference, description string) (*STKPushResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := Timestamp(c.now())
	request := STKPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          StkPassword(c.cfg.ShortCode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            phoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	}

	var response STKPushResponse
	if err := c.postSigned(ctx, stkPushEndpoint, token, request, &response); err != nil {
		return nil, err
	}

	if response.ResponseCode != "0" {
		return nil, RejectionError{Code: response.ResponseCode, Description: response.ResponseDescription}
	}

	return &response, nil
}

// QuerySTKStatus asks the provider for the current state of a previously
// initiated push. The request is signed with the same shortcode/passkey
// scheme as the push itself.
func (c *Client) QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := Timestamp(c.now())
	request := STKQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          StkPassword(c.cfg.ShortCode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	var response STKQueryResponse
	if err := c.postSigned(ctx, stkQueryEndpoint, token, request, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// postSigned sends an authenticated JSON POST and decodes the response body
func (c *Client) postSigned(ctx context.Context, endpoint, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		return RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	return nil
}
