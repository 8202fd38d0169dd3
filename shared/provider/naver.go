package provider

import (
	"context"
	"fmt"
	"net/http"
)

const (
	naverTokenURL   = "https://nid.naver.com/oauth2.0/token"
	naverProfileURL = "https://openapi.naver.com/v1/nid/me"

	naverResultOK = "00"
)

// NaverProvider implements the Naver Login flow.
type NaverProvider struct {
	client     ClientConfig
	httpClient *http.Client
}

// NewNaverProvider creates a new NaverProvider instance.
func NewNaverProvider(client ClientConfig, httpClient *http.Client) *NaverProvider {
	return &NaverProvider{client: client, httpClient: httpClient}
}

type naverUser struct {
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	Response   struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		Name         string `json:"name"`
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"response"`
}

func (p *NaverProvider) Name() Name { return Naver }

func (p *NaverProvider) ExchangeToken(ctx context.Context, code string) (*TokenSet, error) {
	return exchangeCode(ctx, p.httpClient, tokenRequest{
		provider:   Naver,
		client:     p.client,
		tokenURL:   firstNonEmpty(p.client.TokenURL, naverTokenURL),
		sendSecret: true,
		refreshTTL: defaultRefreshTokenTTL,
	}, code)
}

func (p *NaverProvider) FetchProfile(ctx context.Context, tokens *TokenSet) (*SocialProfile, error) {
	var user naverUser
	if err := getJSON(ctx, p.httpClient, firstNonEmpty(p.client.ProfileURL, naverProfileURL), tokens.AccessToken, &user); err != nil {
		return nil, &ProfileError{Provider: Naver, Err: err}
	}
	if user.ResultCode != naverResultOK {
		return nil, &ProfileError{
			Provider: Naver,
			Err:      fmt.Errorf("%w: resultcode %q", errUnexpectedStatus, user.ResultCode),
		}
	}
	if user.Response.ID == "" {
		return nil, &ProfileError{Provider: Naver, Err: errMissingSubject}
	}

	profile := Normalize(SocialProfile{
		Provider:       Naver,
		ProviderUserID: user.Response.ID,
		Email:          user.Response.Email,
		DisplayName:    firstNonEmpty(user.Response.Name, user.Response.Nickname),
		AvatarURL:      user.Response.ProfileImage,
	})

	return &profile, nil
}
