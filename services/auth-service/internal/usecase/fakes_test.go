package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/social-login-api/shared/auth"
	"github.com/vasapolrittideah/social-login-api/shared/metrics"
	"github.com/vasapolrittideah/social-login-api/shared/provider"
)

// memStore implements every repository in memory and enforces the same
// unique indexes as the Mongo collections.
type memStore struct {
	mu         sync.Mutex
	users      map[bson.ObjectID]model.User
	identities map[bson.ObjectID]model.Identity
	linkOrder  []bson.ObjectID
	sessions   map[string]model.Session
	roles      map[string]model.Role
	history    []model.LoginHistory

	roleErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[bson.ObjectID]model.User),
		identities: make(map[bson.ObjectID]model.Identity),
		sessions:   make(map[string]model.Session),
		roles:      make(map[string]model.Role),
	}
}

func (s *memStore) emailTaken(email string, except bson.ObjectID) bool {
	for id, u := range s.users {
		if u.Email == email && id != except {
			return true
		}
	}
	return false
}

func (s *memStore) identityTaken(provider, providerUserID string) bool {
	for _, i := range s.identities {
		if i.Provider == provider && i.ProviderUserID == providerUserID {
			return true
		}
	}
	return false
}

func (s *memStore) seedUser(u model.User) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = bson.NewObjectID()
	s.users[u.ID] = u
	return &u
}

func (s *memStore) seedIdentity(i model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = bson.NewObjectID()
	s.identities[i.ID] = i
}

func (s *memStore) CreateUserWithIdentity(_ context.Context, user *model.User, identity *model.Identity) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(user.Email, bson.NilObjectID) || s.identityTaken(identity.Provider, identity.ProviderUserID) {
		return nil, repository.ErrDuplicateKey
	}

	user.ID = bson.NewObjectID()
	identity.ID = bson.NewObjectID()
	identity.UserID = user.ID.Hex()
	s.users[user.ID] = *user
	s.identities[identity.ID] = *identity

	created := *user
	return &created, nil
}

func (s *memStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrInvalidID
	}
	u, ok := s.users[objectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) UpdateUser(_ context.Context, id string, params repository.UpdateUserParams) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objectID, _ := bson.ObjectIDFromHex(id)
	u, ok := s.users[objectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if params.IsEmpty() {
		return nil, repository.ErrNoChanges
	}
	if params.Email != nil {
		if s.emailTaken(*params.Email, objectID) {
			return nil, repository.ErrDuplicateKey
		}
		u.Email = *params.Email
	}
	if params.DisplayName != nil {
		u.DisplayName = *params.DisplayName
	}
	if params.AvatarURL != nil {
		u.AvatarURL = *params.AvatarURL
	}
	s.users[objectID] = u
	return &u, nil
}

func (s *memStore) AddRole(_ context.Context, id string, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objectID, _ := bson.ObjectIDFromHex(id)
	u, ok := s.users[objectID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, r := range u.Roles {
		if r == role {
			return nil
		}
	}
	u.Roles = append(u.Roles, role)
	s.users[objectID] = u
	return nil
}

func (s *memStore) CreateIdentity(_ context.Context, identity *model.Identity) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identityTaken(identity.Provider, identity.ProviderUserID) {
		return nil, repository.ErrDuplicateKey
	}
	identity.ID = bson.NewObjectID()
	s.identities[identity.ID] = *identity
	s.linkOrder = append(s.linkOrder, identity.ID)
	return identity, nil
}

func (s *memStore) GetIdentityByProvider(_ context.Context, provider, providerUserID string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, i := range s.identities {
		if i.Provider == provider && i.ProviderUserID == providerUserID {
			return &i, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) GetIdentitiesByUserID(_ context.Context, userID string) ([]model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.Identity{}
	for _, id := range s.linkOrder {
		if i := s.identities[id]; i.UserID == userID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (s *memStore) UpdateLogin(_ context.Context, id string, params repository.UpdateIdentityLoginParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objectID, _ := bson.ObjectIDFromHex(id)
	i, ok := s.identities[objectID]
	if !ok {
		return repository.ErrNotFound
	}
	i.Email = params.Email
	i.DisplayName = params.DisplayName
	i.AvatarURL = params.AvatarURL
	i.AccessToken = params.AccessToken
	if params.RefreshToken != "" {
		i.RefreshToken = params.RefreshToken
	}
	i.LastLoginAt = params.LastLoginAt
	s.identities[objectID] = i
	return nil
}

func (s *memStore) FindOrCreateRole(_ context.Context, name string) (*model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roleErr != nil {
		return nil, s.roleErr
	}
	role, ok := s.roles[name]
	if !ok {
		role = model.Role{ID: bson.NewObjectID(), Name: name, CreatedAt: time.Now()}
		s.roles[name] = role
	}
	return &role, nil
}

func (s *memStore) CreateSession(_ context.Context, session *model.Session) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return nil, repository.ErrDuplicateKey
	}
	s.sessions[session.ID] = *session
	return session, nil
}

func (s *memStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (s *memStore) RotateRefreshToken(_ context.Context, id, currentHash, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || !session.Active || session.RefreshTokenHash != currentHash {
		return repository.ErrNotFound
	}
	session.RefreshTokenHash = newHash
	s.sessions[id] = session
	return nil
}

func (s *memStore) DeactivateSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.Active = false
	s.sessions[id] = session
	return nil
}

func (s *memStore) CreateLoginHistory(_ context.Context, entry *model.LoginHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, *entry)
	return nil
}

func (s *memStore) counts() (users, identities, sessions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), len(s.identities), len(s.sessions)
}

func (s *memStore) loginHistory() []model.LoginHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LoginHistory(nil), s.history...)
}

func (s *memStore) onlyIdentity(t *testing.T) model.Identity {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.identities) != 1 {
		t.Fatalf("expected exactly one identity, got %d", len(s.identities))
	}
	for _, i := range s.identities {
		return i
	}
	return model.Identity{}
}

// fakeProvider returns canned tokens and profiles.
type fakeProvider struct {
	name        provider.Name
	accessToken atomic.Value
	profile     provider.SocialProfile
	exchangeErr error
	profileErr  error
	exchanges   atomic.Int32
}

func newFakeProvider(name provider.Name, profile provider.SocialProfile) *fakeProvider {
	p := &fakeProvider{name: name, profile: profile}
	p.accessToken.Store("provider-access-1")
	return p
}

func (p *fakeProvider) Name() provider.Name { return p.name }

func (p *fakeProvider) ExchangeToken(_ context.Context, code string) (*provider.TokenSet, error) {
	p.exchanges.Add(1)
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &provider.TokenSet{
		AccessToken:  p.accessToken.Load().(string),
		RefreshToken: "provider-refresh",
	}, nil
}

func (p *fakeProvider) FetchProfile(_ context.Context, _ *provider.TokenSet) (*provider.SocialProfile, error) {
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	profile := provider.Normalize(p.profile)
	return &profile, nil
}

var testTokenConfig = config.TokenConfig{
	AccessTokenSecret:    "access-secret",
	RefreshTokenSecret:   "refresh-secret",
	AccessTokenExpiresIn: 15 * time.Minute,
	SessionExpiresIn:     7 * 24 * time.Hour,
}

func newTestUsecase(store *memStore, providers ...provider.Provider) SocialAuthUsecase {
	return newTestUsecaseWithRecorder(store, nil, providers...)
}

func newTestUsecaseWithRecorder(store *memStore, recorder metrics.LoginRecorder, providers ...provider.Provider) SocialAuthUsecase {
	logger := zerolog.Nop()
	jwtAuth := auth.NewJWTAuthenticator("social-login", "auth-service")

	return NewSocialAuthUsecase(
		provider.NewRegistryWith(providers...),
		NewProfileValidator(validator.New()),
		NewIdentityResolver(store, store, store, &logger),
		NewSessionIssuer(store, store, jwtAuth, testTokenConfig, &logger),
		NewAuditRecorder(store, &logger),
		recorder,
		&logger,
	)
}

func googleProfile(id, email, name string) provider.SocialProfile {
	return provider.SocialProfile{Provider: provider.Google, ProviderUserID: id, Email: email, DisplayName: name}
}

var errBoom = errors.New("boom")
