package provider

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleAPIEndpoint = "https://www.googleapis.com/"
)

var errMissingSubject = errors.New("profile response has no user id")

// GoogleProvider implements the Google OAuth 2.0 flow.
type GoogleProvider struct {
	client     ClientConfig
	httpClient *http.Client
}

// NewGoogleProvider creates a new GoogleProvider instance.
func NewGoogleProvider(client ClientConfig, httpClient *http.Client) *GoogleProvider {
	return &GoogleProvider{client: client, httpClient: httpClient}
}

func (p *GoogleProvider) Name() Name { return Google }

func (p *GoogleProvider) ExchangeToken(ctx context.Context, code string) (*TokenSet, error) {
	return exchangeCode(ctx, p.httpClient, tokenRequest{
		provider:   Google,
		client:     p.client,
		tokenURL:   firstNonEmpty(p.client.TokenURL, googleTokenURL),
		sendSecret: true,
		refreshTTL: defaultRefreshTokenTTL,
	}, code)
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, tokens *TokenSet) (*SocialProfile, error) {
	userInfo, err := p.getUserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return nil, &ProfileError{Provider: Google, Err: err}
	}
	if userInfo.Id == "" {
		return nil, &ProfileError{Provider: Google, Err: errMissingSubject}
	}

	profile := Normalize(SocialProfile{
		Provider:       Google,
		ProviderUserID: userInfo.Id,
		Email:          userInfo.Email,
		DisplayName:    userInfo.Name,
		AvatarURL:      userInfo.Picture,
	})

	return &profile, nil
}

// getUserInfo calls the userinfo endpoint of the Google OAuth2 API on behalf
// of the access token owner.
func (p *GoogleProvider) getUserInfo(ctx context.Context, accessToken string) (*googleoauth2.Userinfo, error) {
	authorized := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, p.httpClient),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	)

	oauth2Service, err := googleoauth2.NewService(ctx,
		option.WithHTTPClient(authorized),
		option.WithEndpoint(firstNonEmpty(p.client.ProfileURL, googleAPIEndpoint)),
	)
	if err != nil {
		return nil, err
	}

	return oauth2Service.Userinfo.Get().Context(ctx).Do()
}
