// Package superset is a client for the Apache Superset REST API.
package superset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"
)

// StatusError is a non-2xx answer from the platform.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Config holds platform connection settings.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client is an authenticated platform API client. It logs in lazily and
// re-authenticates once when a request is rejected with 401.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	token string
	csrf  string
}

// New creates a Client. No request is made until first use.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	// The CSRF token is bound to the session cookie.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout, Jar: jar},
		logger:     logger,
	}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Provider string `json:"provider"`
	Refresh  bool   `json:"refresh"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type csrfResponse struct {
	Result string `json:"result"`
}

// credentials returns the current bearer and CSRF tokens, logging in first
// if needed.
func (c *Client) credentials(ctx context.Context) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, c.csrf, nil
	}

	var login loginResponse
	err := c.send(ctx, http.MethodPost, "/api/v1/security/login", nil, loginRequest{
		Username: c.cfg.Username,
		Password: c.cfg.Password,
		Provider: "db",
		Refresh:  true,
	}, &login, "", "")
	if err != nil {
		return "", "", fmt.Errorf("login: %w", err)
	}
	if login.AccessToken == "" {
		return "", "", errors.New("login: empty access token")
	}

	var csrf csrfResponse
	if err := c.send(ctx, http.MethodGet, "/api/v1/security/csrf_token/", nil, nil, &csrf, login.AccessToken, ""); err != nil {
		return "", "", fmt.Errorf("fetching csrf token: %w", err)
	}

	c.token = login.AccessToken
	c.csrf = csrf.Result
	c.logger.Info("Authenticated with Superset", "user", c.cfg.Username)
	return c.token, c.csrf, nil
}

func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
		c.csrf = ""
	}
}

// do performs an authenticated API call, decoding the JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, csrf, err := c.credentials(ctx)
	if err != nil {
		return err
	}
	err = c.send(ctx, method, path, query, body, out, token, csrf)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusUnauthorized {
		c.logger.Info("Superset token rejected, re-authenticating", "path", path)
		c.invalidate(token)
		if token, csrf, err = c.credentials(ctx); err != nil {
			return err
		}
		return c.send(ctx, method, path, query, body, out, token, csrf)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body, out any, token, csrf string) error {
	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRFToken", csrf)
		req.Header.Set("Referer", c.cfg.BaseURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

// rison query parameters accept JSON objects.
func queryParam(v any) url.Values {
	encoded, _ := json.Marshal(v)
	return url.Values{"q": []string{string(encoded)}}
}
