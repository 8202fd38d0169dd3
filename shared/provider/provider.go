package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Name identifies a supported social identity provider.
type Name string

const (
	Google Name = "google"
	Kakao  Name = "kakao"
	Naver  Name = "naver"
	Apple  Name = "apple"
)

var (
	ErrUnsupportedProvider  = errors.New("unsupported provider")
	ErrProviderDisabled     = errors.New("provider is not configured")
	ErrInvalidIdentityToken = errors.New("invalid identity token")
	ErrInvalidAppleAudience = errors.New("invalid apple audience")
)

// ParseName converts a raw provider identifier into a Name.
func ParseName(raw string) (Name, error) {
	switch name := Name(strings.ToLower(strings.TrimSpace(raw))); name {
	case Google, Kakao, Naver, Apple:
		return name, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, raw)
	}
}

// InvalidLabel is recorded in place of any name outside the supported set.
const InvalidLabel = "invalid"

// Label returns the canonical name of raw, or InvalidLabel.
func Label(raw string) string {
	name, err := ParseName(raw)
	if err != nil {
		return InvalidLabel
	}
	return string(name)
}

// TokenSet holds the credentials issued by an identity provider.
type TokenSet struct {
	AccessToken      string
	RefreshToken     string
	IDToken          string
	Scope            string
	AccessExpiresAt  *time.Time
	RefreshExpiresAt *time.Time
}

// SocialProfile is the provider profile mapped into one canonical shape.
type SocialProfile struct {
	Provider       Name
	ProviderUserID string
	Email          string
	DisplayName    string
	AvatarURL      string
}

// Provider is implemented by every provider adapter.
type Provider interface {
	Name() Name
	// ExchangeToken trades an authorization code for provider tokens.
	ExchangeToken(ctx context.Context, code string) (*TokenSet, error)
	// FetchProfile returns the normalized profile of the token owner.
	FetchProfile(ctx context.Context, tokens *TokenSet) (*SocialProfile, error)
}

// TokenExchangeError is returned when the token endpoint call fails.
type TokenExchangeError struct {
	Provider Name
	Err      error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s: token exchange failed: %v", e.Provider, e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// ProfileError is returned when the profile cannot be fetched or decoded.
type ProfileError struct {
	Provider Name
	Err      error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("%s: fetch profile failed: %v", e.Provider, e.Err)
}

func (e *ProfileError) Unwrap() error { return e.Err }

// ClientConfig holds the OAuth client registration for one provider.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint overrides, only set by tests.
	TokenURL   string
	ProfileURL string
}

func (c ClientConfig) enabled() bool {
	return c.ClientID != ""
}

// Config holds the client registrations of every provider.
type Config struct {
	Google ClientConfig
	Kakao  ClientConfig
	Naver  ClientConfig
	Apple  ClientConfig
}

// Registry is the closed lookup table of configured providers.
type Registry struct {
	providers map[Name]Provider
}

// NewRegistry builds adapters for every provider with a client id.
func NewRegistry(cfg Config, httpClient *http.Client) *Registry {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	r := &Registry{providers: make(map[Name]Provider)}
	if cfg.Google.enabled() {
		r.providers[Google] = NewGoogleProvider(cfg.Google, httpClient)
	}
	if cfg.Kakao.enabled() {
		r.providers[Kakao] = NewKakaoProvider(cfg.Kakao, httpClient)
	}
	if cfg.Naver.enabled() {
		r.providers[Naver] = NewNaverProvider(cfg.Naver, httpClient)
	}
	if cfg.Apple.enabled() {
		r.providers[Apple] = NewAppleProvider(cfg.Apple, httpClient)
	}

	return r
}

// NewRegistryWith builds a registry from already constructed providers.
func NewRegistryWith(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[Name]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the adapter registered for name.
func (r *Registry) Get(name Name) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderDisabled, name)
	}
	return p, nil
}

// Enabled lists the configured provider names.
func (r *Registry) Enabled() []Name {
	names := make([]Name, 0, len(r.providers))
	for _, name := range []Name{Google, Kakao, Naver, Apple} {
		if _, ok := r.providers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
