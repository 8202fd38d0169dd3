package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
	kakaoRefreshTokenTTL   = 60 * 24 * time.Hour
)

var (
	errEmptyAccessToken = errors.New("empty access token in response")
	errUnexpectedStatus = errors.New("unexpected status code")
)

var now = time.Now

// tokenRequest describes how one provider's token endpoint is called.
type tokenRequest struct {
	provider   Name
	client     ClientConfig
	tokenURL   string
	sendSecret bool
	refreshTTL time.Duration
}

// exchangeCode posts a form-encoded authorization_code grant to the token endpoint.
func exchangeCode(ctx context.Context, httpClient *http.Client, req tokenRequest, code string) (*TokenSet, error) {
	conf := &oauth2.Config{
		ClientID:    req.client.ClientID,
		RedirectURL: req.client.RedirectURL,
		Endpoint: oauth2.Endpoint{
			TokenURL:  req.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if req.sendSecret {
		conf.ClientSecret = req.client.ClientSecret
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, &TokenExchangeError{Provider: req.provider, Err: err}
	}
	if token.AccessToken == "" {
		return nil, &TokenExchangeError{Provider: req.provider, Err: errEmptyAccessToken}
	}

	tokens := &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		tokens.Scope = scope
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		tokens.IDToken = idToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		tokens.AccessExpiresAt = &expiry
	}
	if tokens.RefreshToken != "" {
		ttl := req.refreshTTL
		if seconds := extraSeconds(token.Extra("refresh_token_expires_in")); seconds > 0 {
			ttl = time.Duration(seconds) * time.Second
		}
		refreshExpiry := now().Add(ttl)
		tokens.RefreshExpiresAt = &refreshExpiry
	}

	return tokens, nil
}

// extraSeconds reads a numeric token response field that may arrive as a
// JSON number or as a string.
func extraSeconds(v any) int64 {
	switch value := v.(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case string:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// getJSON issues a GET authorized with the provider access token and
// decodes the JSON response into out.
func getJSON(ctx context.Context, httpClient *http.Client, url, accessToken string, out any) error {
	authorized := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, httpClient),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := authorized.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
