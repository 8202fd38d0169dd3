package provider

import (
	"context"
	"net/http"
	"strconv"
)

const (
	kakaoTokenURL   = "https://kauth.kakao.com/oauth/token"
	kakaoProfileURL = "https://kapi.kakao.com/v2/user/me"
)

// KakaoProvider implements the Kakao Login flow.
type KakaoProvider struct {
	client     ClientConfig
	httpClient *http.Client
}

// NewKakaoProvider creates a new KakaoProvider instance.
func NewKakaoProvider(client ClientConfig, httpClient *http.Client) *KakaoProvider {
	return &KakaoProvider{client: client, httpClient: httpClient}
}

type kakaoUser struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func (p *KakaoProvider) Name() Name { return Kakao }

func (p *KakaoProvider) ExchangeToken(ctx context.Context, code string) (*TokenSet, error) {
	return exchangeCode(ctx, p.httpClient, tokenRequest{
		provider:   Kakao,
		client:     p.client,
		tokenURL:   firstNonEmpty(p.client.TokenURL, kakaoTokenURL),
		sendSecret: true,
		refreshTTL: kakaoRefreshTokenTTL,
	}, code)
}

func (p *KakaoProvider) FetchProfile(ctx context.Context, tokens *TokenSet) (*SocialProfile, error) {
	var user kakaoUser
	if err := getJSON(ctx, p.httpClient, firstNonEmpty(p.client.ProfileURL, kakaoProfileURL), tokens.AccessToken, &user); err != nil {
		return nil, &ProfileError{Provider: Kakao, Err: err}
	}
	if user.ID == 0 {
		return nil, &ProfileError{Provider: Kakao, Err: errMissingSubject}
	}

	profile := Normalize(SocialProfile{
		Provider:       Kakao,
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Email:          user.KakaoAccount.Email,
		DisplayName:    user.KakaoAccount.Profile.Nickname,
		AvatarURL:      user.KakaoAccount.Profile.ProfileImageURL,
	})

	return &profile, nil
}
