package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

const appleTokenURL = "https://appleid.apple.com/auth/token"

var errMissingIDToken = errors.New("token response has no id_token")

// AppleProvider implements Sign in with Apple. Apple has no profile
// endpoint: the profile is read from the id_token claims.
type AppleProvider struct {
	client     ClientConfig
	httpClient *http.Client
	parser     *jwt.Parser
}

// NewAppleProvider creates a new AppleProvider instance.
func NewAppleProvider(client ClientConfig, httpClient *http.Client) *AppleProvider {
	return &AppleProvider{
		client:     client,
		httpClient: httpClient,
		parser:     jwt.NewParser(),
	}
}

func (p *AppleProvider) Name() Name { return Apple }

func (p *AppleProvider) ExchangeToken(ctx context.Context, code string) (*TokenSet, error) {
	return exchangeCode(ctx, p.httpClient, tokenRequest{
		provider:   Apple,
		client:     p.client,
		tokenURL:   firstNonEmpty(p.client.TokenURL, appleTokenURL),
		sendSecret: false,
		refreshTTL: defaultRefreshTokenTTL,
	}, code)
}

func (p *AppleProvider) FetchProfile(_ context.Context, tokens *TokenSet) (*SocialProfile, error) {
	claims, err := p.decodeIdentityToken(tokens.IDToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", Apple, ErrInvalidIdentityToken, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("%s: %w: %v", Apple, ErrInvalidIdentityToken, errMissingSubject)
	}
	email, _ := claims["email"].(string)

	profile := Normalize(SocialProfile{
		Provider:       Apple,
		ProviderUserID: subject,
		Email:          email,
	})

	return &profile, nil
}

// decodeIdentityToken reads the claim set of an id_token. The token arrives
// directly from the token endpoint over TLS, so only its shape and audience
// are checked here.
func (p *AppleProvider) decodeIdentityToken(idToken string) (jwt.MapClaims, error) {
	if idToken == "" {
		return nil, errMissingIDToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := p.parser.ParseUnverified(idToken, claims); err != nil {
		return nil, err
	}

	audience, err := claims.GetAudience()
	if err != nil {
		return nil, err
	}
	if p.client.ClientID != "" && !slices.Contains(audience, p.client.ClientID) {
		return nil, ErrInvalidAppleAudience
	}

	return claims, nil
}
