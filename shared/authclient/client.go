package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	authtypes "github.com/vasapolrittideah/social-login-api/services/auth-service/pkg/types"
)

const refreshPath = "/auth/refresh"

var (
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrRefreshFailed  = errors.New("refresh failed")
)

// Client keeps an application token pair and refreshes it against the auth
// service. Concurrent Refresh calls on one Client share a single request.
type Client struct {
	baseURL    string
	httpClient *http.Client

	refreshGroup singleflight.Group

	mu     sync.RWMutex
	tokens authtypes.Tokens
}

// New creates a Client for the auth service at baseURL holding tokens.
func New(baseURL string, httpClient *http.Client, tokens authtypes.Tokens) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// Tokens returns the current token pair.
func (c *Client) Tokens() authtypes.Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// Refresh rotates the token pair. Callers that arrive while a refresh is in
// flight receive that refresh's result. The shared request is not cancelled
// when one waiting caller's context is.
func (c *Client) Refresh(ctx context.Context) (authtypes.Tokens, error) {
	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return authtypes.Tokens{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return authtypes.Tokens{}, res.Err
		}
		return res.Val.(authtypes.Tokens), nil
	}
}

func (c *Client) refresh(ctx context.Context) (authtypes.Tokens, error) {
	refreshToken := c.Tokens().RefreshToken
	if refreshToken == "" {
		return authtypes.Tokens{}, ErrNoRefreshToken
	}

	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return authtypes.Tokens{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return authtypes.Tokens{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return authtypes.Tokens{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp authtypes.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return authtypes.Tokens{}, fmt.Errorf("%w: status %d %s", ErrRefreshFailed, resp.StatusCode, errResp.Code)
	}

	var result authtypes.RefreshResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return authtypes.Tokens{}, err
	}

	c.mu.Lock()
	c.tokens = result.Tokens
	c.mu.Unlock()

	return result.Tokens, nil
}
