package usecase

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/vasapolrittideah/social-login-api/shared/provider"
)

// ProfileValidator rejects malformed or hostile provider profiles before
// they reach storage.
type ProfileValidator interface {
	Validate(profile provider.SocialProfile, requested provider.Name) error
}

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile("['\"`]"),
	regexp.MustCompile(`(?i)union\s+(all\s+)?select`),
	regexp.MustCompile(`(?i)drop\s+table`),
	regexp.MustCompile(`(?i)<\s*/?\s*script`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
}

type profileValidator struct {
	validate *validator.Validate
	policy   *bluemonday.Policy
}

func NewProfileValidator(validate *validator.Validate) ProfileValidator {
	return &profileValidator{
		validate: validate,
		policy:   bluemonday.StrictPolicy(),
	}
}

func (v *profileValidator) Validate(profile provider.SocialProfile, requested provider.Name) error {
	if strings.TrimSpace(profile.ProviderUserID) == "" {
		return fmt.Errorf("%w: missing provider user id", ErrProfileValidation)
	}

	if profile.Provider != requested {
		return fmt.Errorf("%w: profile from %s returned for %s", ErrProfileValidation, profile.Provider, requested)
	}

	if profile.Email != "" {
		if err := v.validate.Var(profile.Email, "email"); err != nil {
			return fmt.Errorf("%w: malformed email", ErrProfileValidation)
		}
		if containsInjection(profile.Email) {
			return fmt.Errorf("%w: unsafe email", ErrProfileValidation)
		}
	}

	if containsInjection(profile.DisplayName) || v.containsMarkup(profile.DisplayName) {
		return fmt.Errorf("%w: unsafe display name", ErrProfileValidation)
	}

	return nil
}

func containsInjection(value string) bool {
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// containsMarkup reports whether the strict policy would strip anything.
func (v *profileValidator) containsMarkup(value string) bool {
	return html.UnescapeString(v.policy.Sanitize(value)) != value
}
