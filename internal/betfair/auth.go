package betfair

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type loginResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Error  string `json:"error"`
}

type keepAliveResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Error  string `json:"error"`
}

// Login authenticates with the exchange using interactive login
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Application", c.cfg.AppKey)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		c.recordLoginError(err.Error())
		return NewAuthenticationError("login request failed", err)
	}
	defer resp.Body.Close()

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.recordLoginError("malformed login response")
		return NewAuthenticationError("malformed login response", err)
	}

	if body.Status != "SUCCESS" {
		c.recordLoginError(body.Error)
		return NewAuthenticationError(fmt.Sprintf("login rejected: %s", body.Error), nil)
	}

	c.mu.Lock()
	c.sessionToken = body.Token
	c.sessionExpiry = time.Now().Add(sessionLifetime)
	c.lastLoginError = ""
	c.mu.Unlock()

	c.logger.Info("exchange login successful")
	return nil
}

// KeepAlive extends the current session's lifetime
func (c *Client) KeepAlive(ctx context.Context) error {
	c.mu.RLock()
	token := c.sessionToken
	c.mu.RUnlock()
	if token == "" {
		return NewAuthenticationError("no session to keep alive", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.KeepAliveURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create keepalive request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Application", c.cfg.AppKey)
	req.Header.Set("X-Authentication", token)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("keepalive request failed: %w", err)
	}
	defer resp.Body.Close()

	var body keepAliveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("malformed keepalive response: %w", err)
	}
	if body.Status != "SUCCESS" {
		return NewAuthenticationError(fmt.Sprintf("keepalive rejected: %s", body.Error), nil)
	}

	c.mu.Lock()
	c.sessionExpiry = time.Now().Add(sessionLifetime)
	c.mu.Unlock()
	return nil
}

// EnsureSession guarantees a usable session, extending or re-logging
// in as needed. Sessions are refreshed 30 minutes before expiry.
func (c *Client) EnsureSession(ctx context.Context) error {
	c.mu.RLock()
	token := c.sessionToken
	expiry := c.sessionExpiry
	c.mu.RUnlock()

	if token != "" {
		if time.Now().Before(expiry.Add(-sessionRefreshSlack)) {
			return nil
		}
		if err := c.KeepAlive(ctx); err == nil {
			return nil
		}
		c.logger.Warn("keepalive failed, re-authenticating")
	}

	if !c.HasCredentials() {
		return NewAuthenticationError("exchange credentials not configured", nil)
	}
	return c.Login(ctx)
}

func (c *Client) recordLoginError(msg string) {
	c.mu.Lock()
	c.lastLoginError = msg
	c.mu.Unlock()
	c.logger.WithField("error", msg).Error("exchange login failed")
}
