// Package client is the typed HTTP client for the auth core. It holds the
// current token pair, injects the access token into requests, and refreshes
// transparently when the server reports an expired token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/forkful/authcore/internal/common"
)

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SessionInfo describes one active session as reported by the server.
type SessionInfo struct {
	FamilyID    string    `json:"familyId"`
	DeviceLabel string    `json:"deviceLabel"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}

// Client talks to the auth core server. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	coalescer *Coalescer
}

// New constructs a Client for the given base URL (e.g. "http://127.0.0.1:8080").
func New(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	c.coalescer = NewCoalescer(c.refreshOnce)
	return c
}

// SetTimeout overrides the default per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

func (c *Client) tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

func (c *Client) setTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

// Register creates an account and returns the new user id.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/api/register", body, &out, ""); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Login authenticates and stores the resulting token pair.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var pair tokenPair
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/session", body, &pair, ""); err != nil {
		return err
	}
	c.setTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

// Refresh rotates the stored refresh token. Concurrent callers share one
// rotation through the coalescer.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.coalescer.Refresh(ctx, "")
	return err
}

// refreshOnce is the coalescer's leader body: one POST /session/refresh with
// the currently stored token. On any authentication failure the stored pair
// is cleared; the caller must log in again.
func (c *Client) refreshOnce(ctx context.Context) (string, error) {
	_, refresh := c.tokens()
	if refresh == "" {
		return "", ErrUnauthorized
	}

	var pair tokenPair
	err := c.post(ctx, "/session/refresh", map[string]string{"refreshToken": refresh}, &pair, "")
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrReuseDetected) {
			c.setTokens("", "")
		}
		return "", err
	}

	c.setTokens(pair.AccessToken, pair.RefreshToken)
	return pair.AccessToken, nil
}

// Revoke logs out the current session and clears the stored pair.
func (c *Client) Revoke(ctx context.Context) error {
	_, refresh := c.tokens()
	if refresh == "" {
		return nil
	}
	if err := c.post(ctx, "/session/revoke", map[string]string{"refreshToken": refresh}, nil, ""); err != nil {
		return err
	}
	c.setTokens("", "")
	return nil
}

// RevokeAll revokes every session of the authenticated user, then clears the
// stored pair.
func (c *Client) RevokeAll(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/session/revoke-all", nil, nil); err != nil {
		return err
	}
	c.setTokens("", "")
	return nil
}

// ActiveSessions lists the user's active sessions.
func (c *Client) ActiveSessions(ctx context.Context) ([]SessionInfo, error) {
	var out struct {
		Sessions []SessionInfo `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/session/active", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// do performs an authenticated request. When the server answers 401 with the
// "token_expired" code, it refreshes through the coalescer and replays the
// request once with the new access token.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	access, _ := c.tokens()

	code, err := c.send(ctx, method, path, body, out, access)
	if err != nil {
		return err
	}
	if code != common.CodeTokenExpired {
		return mapErrorCode(code)
	}

	access, err = c.coalescer.Refresh(ctx, access)
	if err != nil {
		return err
	}

	code, err = c.send(ctx, method, path, body, out, access)
	if err != nil {
		return err
	}
	return mapErrorCode(code)
}

// post performs one unauthenticated-or-explicitly-authenticated request and
// maps error codes, with no refresh-and-replay.
func (c *Client) post(ctx context.Context, path string, body, out any, access string) error {
	code, err := c.send(ctx, http.MethodPost, path, body, out, access)
	if err != nil {
		return err
	}
	return mapErrorCode(code)
}

// send issues the request and returns the server's error code ("" on
// success). Transport-level failures map to ErrUnavailable.
func (c *Client) send(ctx context.Context, method, path string, body, out any, access string) (string, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return "", err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if access != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return "", err
			}
		}
		return "", nil
	}

	var e struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&e)
	if e.Code == "" {
		e.Code = common.CodeInternal
	}
	return e.Code, nil
}

func mapErrorCode(code string) error {
	switch code {
	case "":
		return nil
	case common.CodeReuseDetected:
		return ErrReuseDetected
	case common.CodeStoreUnavailable:
		return ErrUnavailable
	case common.CodeTokenExpired, common.CodeInvalidToken,
		common.CodeInvalidRefreshToken, common.CodeUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("server error: %s", code)
	}
}
