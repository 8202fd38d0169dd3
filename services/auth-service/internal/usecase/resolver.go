package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/social-login-api/shared/logger"
	"github.com/vasapolrittideah/social-login-api/shared/provider"
)

// IdentityResolver maps a validated provider profile onto a local user.
type IdentityResolver interface {
	Resolve(ctx context.Context, profile provider.SocialProfile, tokens *provider.TokenSet) (*model.User, error)
	// LinkedProviders lists the providers linked to userID, oldest link first.
	LinkedProviders(ctx context.Context, userID string) ([]string, error)
}

type identityResolver struct {
	userRepo     repository.UserRepository
	identityRepo repository.IdentityRepository
	roleRepo     repository.RoleRepository
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewIdentityResolver(
	userRepo repository.UserRepository,
	identityRepo repository.IdentityRepository,
	roleRepo repository.RoleRepository,
	logger *zerolog.Logger,
) IdentityResolver {
	return &identityResolver{
		userRepo:     userRepo,
		identityRepo: identityRepo,
		roleRepo:     roleRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Resolve returns the user for profile. A unique index violation means a
// concurrent login created the identity or user first, so resolution runs
// once more and picks up the existing records.
func (r *identityResolver) Resolve(
	ctx context.Context,
	profile provider.SocialProfile,
	tokens *provider.TokenSet,
) (*model.User, error) {
	user, err := r.resolve(ctx, profile, tokens)
	if errors.Is(err, repository.ErrDuplicateKey) {
		r.logger.Info().
			Str("provider", string(profile.Provider)).
			Str("provider_user_id", profile.ProviderUserID).
			Msg("concurrent first login detected, resolving existing records")

		return r.resolve(ctx, profile, tokens)
	}

	return user, err
}

func (r *identityResolver) resolve(
	ctx context.Context,
	profile provider.SocialProfile,
	tokens *provider.TokenSet,
) (*model.User, error) {
	var (
		identity   *model.Identity
		emailOwner *model.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := r.identityRepo.GetIdentityByProvider(gctx, string(profile.Provider), profile.ProviderUserID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up identity: %w", err)
		}
		identity = found
		return nil
	})
	if profile.Email != "" {
		g.Go(func() error {
			found, err := r.userRepo.GetUserByEmail(gctx, profile.Email)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to look up user by email: %w", err)
			}
			emailOwner = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case identity != nil:
		return r.loginLinkedUser(ctx, identity, emailOwner, profile, tokens)
	case emailOwner != nil:
		return r.linkExistingUser(ctx, emailOwner, profile, tokens)
	default:
		return r.createUser(ctx, profile, tokens)
	}
}

func (r *identityResolver) loginLinkedUser(
	ctx context.Context,
	identity *model.Identity,
	emailOwner *model.User,
	profile provider.SocialProfile,
	tokens *provider.TokenSet,
) (*model.User, error) {
	user, err := r.userRepo.GetUser(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked user %s: %w", identity.UserID, err)
	}

	if err := checkStatus(user); err != nil {
		return nil, err
	}

	patch := profilePatch(user, emailOwner, profile)
	if !patch.IsEmpty() {
		user, err = r.userRepo.UpdateUser(ctx, user.ID.Hex(), patch)
		if err != nil {
			return nil, fmt.Errorf("failed to update user profile: %w", err)
		}
	}

	now := r.now()
	if err := r.identityRepo.UpdateLogin(ctx, identity.ID.Hex(), repository.UpdateIdentityLoginParams{
		Email:                 profile.Email,
		DisplayName:           profile.DisplayName,
		AvatarURL:             profile.AvatarURL,
		AccessToken:           tokens.AccessToken,
		RefreshToken:          tokens.RefreshToken,
		Scope:                 tokens.Scope,
		AccessTokenExpiresAt:  tokens.AccessExpiresAt,
		RefreshTokenExpiresAt: tokens.RefreshExpiresAt,
		LastLoginAt:           now,
		UpdatedAt:             now,
	}); err != nil {
		return nil, fmt.Errorf("failed to update identity tokens: %w", err)
	}

	return user, nil
}

func (r *identityResolver) linkExistingUser(
	ctx context.Context,
	user *model.User,
	profile provider.SocialProfile,
	tokens *provider.TokenSet,
) (*model.User, error) {
	if err := checkStatus(user); err != nil {
		return nil, err
	}

	if _, err := r.identityRepo.CreateIdentity(ctx, newIdentity(user.ID.Hex(), profile, tokens)); err != nil {
		return nil, fmt.Errorf("failed to link identity: %w", err)
	}

	r.logger.Info().
		Str("user_id", user.ID.Hex()).
		Str("provider", string(profile.Provider)).
		Msg("linked provider to existing user")

	return user, nil
}

func (r *identityResolver) createUser(
	ctx context.Context,
	profile provider.SocialProfile,
	tokens *provider.TokenSet,
) (*model.User, error) {
	email := profile.Email
	if email == "" {
		email = model.PlaceholderEmail(string(profile.Provider), profile.ProviderUserID)
	}

	user, err := r.userRepo.CreateUserWithIdentity(ctx, &model.User{
		Email:          email,
		DisplayName:    profile.DisplayName,
		AvatarURL:      profile.AvatarURL,
		Status:         model.UserStatusActive,
		Roles:          []string{},
		TermsAccepted:  true,
		MarketingOptIn: false,
	}, newIdentity("", profile, tokens))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	r.assignDefaultRole(ctx, user)

	r.logger.Info().
		Str("user_id", user.ID.Hex()).
		Str("email", logger.MaskEmail(user.Email)).
		Str("provider", string(profile.Provider)).
		Msg("created user from social profile")

	return user, nil
}

// assignDefaultRole never fails the login.
func (r *identityResolver) assignDefaultRole(ctx context.Context, user *model.User) {
	role, err := r.roleRepo.FindOrCreateRole(ctx, model.DefaultRole)
	if err != nil {
		r.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to ensure default role")
		return
	}

	if err := r.userRepo.AddRole(ctx, user.ID.Hex(), role.Name); err != nil {
		r.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to assign default role")
		return
	}

	user.Roles = append(user.Roles, role.Name)
}

func checkStatus(user *model.User) error {
	if user.Status == model.UserStatusActive {
		return nil
	}

	return &AccountStatusError{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Status: user.Status,
	}
}

// profilePatch returns the user fields the provider profile should change.
// The email is replaced only when the stored one is a placeholder and no
// other user owns the new address. A provider default name never replaces
// a stored name.
func profilePatch(user, emailOwner *model.User, profile provider.SocialProfile) repository.UpdateUserParams {
	var patch repository.UpdateUserParams

	if user.HasPlaceholderEmail() && profile.Email != "" && profile.Email != user.Email {
		if emailOwner == nil || emailOwner.ID == user.ID {
			patch.Email = &profile.Email
		}
	}

	if profile.DisplayName != "" &&
		profile.DisplayName != user.DisplayName &&
		profile.DisplayName != provider.DefaultDisplayName(profile.Provider) {
		patch.DisplayName = &profile.DisplayName
	}

	if profile.AvatarURL != "" && profile.AvatarURL != user.AvatarURL {
		patch.AvatarURL = &profile.AvatarURL
	}

	return patch
}

func newIdentity(userID string, profile provider.SocialProfile, tokens *provider.TokenSet) *model.Identity {
	return &model.Identity{
		UserID:                userID,
		Provider:              string(profile.Provider),
		ProviderUserID:        profile.ProviderUserID,
		Email:                 profile.Email,
		DisplayName:           profile.DisplayName,
		AvatarURL:             profile.AvatarURL,
		AccessToken:           tokens.AccessToken,
		RefreshToken:          tokens.RefreshToken,
		Scope:                 tokens.Scope,
		AccessTokenExpiresAt:  tokens.AccessExpiresAt,
		RefreshTokenExpiresAt: tokens.RefreshExpiresAt,
	}
}

func (r *identityResolver) LinkedProviders(ctx context.Context, userID string) ([]string, error) {
	identities, err := r.identityRepo.GetIdentitiesByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities of user %s: %w", userID, err)
	}

	providers := make([]string, 0, len(identities))
	for _, identity := range identities {
		providers = append(providers, identity.Provider)
	}
	return providers, nil
}
