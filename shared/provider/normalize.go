package provider

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var defaultDisplayNames = map[Name]string{
	Google: "Google User",
	Kakao:  "Kakao User",
	Naver:  "Naver User",
	Apple:  "Apple User",
}

// DefaultDisplayName returns the name used when a provider supplies none.
func DefaultDisplayName(name Name) string {
	if displayName, ok := defaultDisplayNames[name]; ok {
		return displayName
	}
	return "Social User"
}

// Normalize maps raw provider values into canonical form. Normalizing an
// already normalized profile returns it unchanged.
func Normalize(p SocialProfile) SocialProfile {
	p.ProviderUserID = strings.TrimSpace(p.ProviderUserID)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))

	p.DisplayName = collapseWhitespace(norm.NFC.String(p.DisplayName))
	if p.DisplayName == "" {
		p.DisplayName = DefaultDisplayName(p.Provider)
	}

	p.AvatarURL = normalizeAvatarURL(p.AvatarURL)

	return p
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeAvatarURL drops anything that is not an absolute http(s) URL.
func normalizeAvatarURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}

	return raw
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
