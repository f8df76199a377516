// Package betfair implements the typed exchange API client: market
// discovery, book retrieval, order placement and account queries over
// the JSON-RPC surface.
package betfair

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/lay-engine/internal/config"
	"github.com/yourusername/lay-engine/internal/transport"
)

const (
	sportsPrefix  = "SportsAPING/v1.0/"
	accountPrefix = "AccountAPING/v1.0/"

	sessionLifetime     = 4 * time.Hour
	sessionRefreshSlack = 30 * time.Minute
	balanceCacheTTL     = 30 * time.Second
	balanceCacheKey     = "available_balance"
)

// Client is the exchange API client. Safe for concurrent use.
type Client struct {
	httpClient *transport.RateLimitedHTTPClient
	cfg        config.BetfairConfig
	logger     logrus.FieldLogger

	mu             sync.RWMutex
	sessionToken   string
	sessionExpiry  time.Time
	lastLoginError string

	balanceCache *cache.Cache
}

// JSONRPCRequest represents a JSON-RPC request
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewClient creates a new exchange API client
func NewClient(cfg config.BetfairConfig, httpClient *transport.RateLimitedHTTPClient, logger logrus.FieldLogger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		httpClient:   httpClient,
		cfg:          cfg,
		logger:       logger.WithField("component", "betfair"),
		balanceCache: cache.New(balanceCacheTTL, time.Minute),
	}
}

// callSports performs a JSON-RPC call against the betting endpoint
func (c *Client) callSports(ctx context.Context, method string, params interface{}, out interface{}) error {
	return c.call(ctx, c.cfg.APIURL, sportsPrefix+method, params, out)
}

// callAccount performs a JSON-RPC call against the account endpoint
func (c *Client) callAccount(ctx context.Context, method string, params interface{}, out interface{}) error {
	return c.call(ctx, c.cfg.AccountAPIURL, accountPrefix+method, params, out)
}

func (c *Client) call(ctx context.Context, endpoint, method string, params interface{}, out interface{}) error {
	c.mu.RLock()
	sessionToken := c.sessionToken
	c.mu.RUnlock()

	if sessionToken == "" {
		return NewAuthenticationError("no active session token", nil)
	}

	reqBody := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(jsonData)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Application", c.cfg.AppKey)
	req.Header.Set("X-Authentication", sessionToken)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d on %s", resp.StatusCode, method)
	}

	var jsonResp JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&jsonResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if jsonResp.Error != nil {
		code := apiErrorCode(jsonResp.Error)
		if code == ErrorInvalidSessionInformation || code == ErrorNoSession {
			return NewAuthenticationError("session rejected by exchange", nil)
		}
		return &APIError{Method: method, ErrorCode: code, Message: jsonResp.Error.Message}
	}

	if out != nil && len(jsonResp.Result) > 0 {
		if err := json.Unmarshal(jsonResp.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// apiErrorCode digs the APING error code out of the error data blob
func apiErrorCode(e *JSONRPCError) string {
	var data struct {
		APINGException struct {
			ErrorCode string `json:"errorCode"`
		} `json:"APINGException"`
	}
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &data); err == nil && data.APINGException.ErrorCode != "" {
			return data.APINGException.ErrorCode
		}
	}
	return fmt.Sprintf("JSONRPC_%d", e.Code)
}

// SetSessionToken installs a session token directly, bypassing login
func (c *Client) SetSessionToken(token string, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = token
	c.sessionExpiry = expiry
}

// SessionToken returns the current session token
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken
}

// IsAuthenticated checks if the client has an unexpired session
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken != "" && time.Now().Before(c.sessionExpiry)
}

// LastLoginError returns the most recent login failure, empty when the
// last login succeeded.
func (c *Client) LastLoginError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastLoginError
}

// HasCredentials reports whether live login is configured
func (c *Client) HasCredentials() bool {
	return c.cfg.AppKey != "" && c.cfg.Username != "" && c.cfg.Password != ""
}
