package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/social-login-api/shared/provider"
	"github.com/vasapolrittideah/social-login-api/shared/utilities"
)

// AuthServiceConfig holds every setting of the auth service.
type AuthServiceConfig struct {
	ServiceName string `env:"AUTH_SERVICE_NAME" envDefault:"auth-service"`
	Environment string `env:"APP_ENV"           envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"         envDefault:"info"`

	Host     string `env:"AUTH_SERVICE_HOST" envDefault:"localhost"`
	HTTPPort int    `env:"AUTH_HTTP_PORT"    envDefault:"8080"`
	GRPCPort int    `env:"AUTH_GRPC_PORT"    envDefault:"9090"`

	// TrustedProxies lists the CIDRs or addresses whose forwarding headers
	// are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	Mongo     MongoConfig     `envPrefix:"MONGO_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Token     TokenConfig     `envPrefix:"TOKEN_"`
	Callback  CallbackConfig  `envPrefix:"CALLBACK_"`
	Consul    ConsulConfig    `envPrefix:"CONSUL_"`
	Providers ProvidersConfig
}

type MongoConfig struct {
	URI      string `env:"URI"      envDefault:"mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"DATABASE" envDefault:"auth"`
}

type RedisConfig struct {
	URL string `env:"URL"`
}

type TokenConfig struct {
	Issuer               string        `env:"ISSUER"             envDefault:"auth-service"`
	Audience             string        `env:"AUDIENCE"           envDefault:"social-login"`
	AccessTokenSecret    string        `env:"ACCESS_SECRET"`
	RefreshTokenSecret   string        `env:"REFRESH_SECRET"`
	AccessTokenExpiresIn time.Duration `env:"ACCESS_EXPIRES_IN"  envDefault:"15m"`
	SessionExpiresIn     time.Duration `env:"SESSION_EXPIRES_IN" envDefault:"168h"`
}

// CallbackConfig selects the idempotency guard backend: "redis" or "memory".
type CallbackConfig struct {
	GuardBackend string        `env:"GUARD_BACKEND" envDefault:"memory"`
	GuardTTL     time.Duration `env:"GUARD_TTL"     envDefault:"10m"`
}

type ConsulConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	Address string `env:"ADDRESS" envDefault:"localhost:8500"`
}

type ProvidersConfig struct {
	Google ProviderCredentials `envPrefix:"GOOGLE_"`
	Kakao  ProviderCredentials `envPrefix:"KAKAO_"`
	Naver  ProviderCredentials `envPrefix:"NAVER_"`
	Apple  ProviderCredentials `envPrefix:"APPLE_"`
}

type ProviderCredentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// NewAuthServiceConfig reads the configuration from the environment and
// stops the process when it is unusable.
func NewAuthServiceConfig(logger *zerolog.Logger) *AuthServiceConfig {
	cfg, err := Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load auth service configuration")
	}

	return cfg
}

// Load parses and validates the configuration.
func Load() (*AuthServiceConfig, error) {
	cfg, err := env.ParseAs[AuthServiceConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *AuthServiceConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// ProviderConfig maps credentials onto the provider registry configuration.
func (c *AuthServiceConfig) ProviderConfig() provider.Config {
	toClient := func(p ProviderCredentials) provider.ClientConfig {
		return provider.ClientConfig{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.RedirectURL,
		}
	}

	return provider.Config{
		Google: toClient(c.Providers.Google),
		Kakao:  toClient(c.Providers.Kakao),
		Naver:  toClient(c.Providers.Naver),
		Apple:  toClient(c.Providers.Apple),
	}
}

func (c *AuthServiceConfig) validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("missing MONGO_URI environment variable")
	}
	if c.Token.AccessTokenSecret == "" {
		return fmt.Errorf("missing TOKEN_ACCESS_SECRET environment variable")
	}
	if c.Token.RefreshTokenSecret == "" {
		return fmt.Errorf("missing TOKEN_REFRESH_SECRET environment variable")
	}
	if c.Token.AccessTokenSecret == c.Token.RefreshTokenSecret {
		return fmt.Errorf("TOKEN_ACCESS_SECRET and TOKEN_REFRESH_SECRET must differ")
	}
	if c.Token.AccessTokenExpiresIn <= 0 || c.Token.SessionExpiresIn <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}

	if _, err := utilities.NewClientIPResolver(c.TrustedProxies); err != nil {
		return fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	switch c.Callback.GuardBackend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("missing REDIS_URL environment variable for redis callback guard")
		}
	default:
		return fmt.Errorf("unknown CALLBACK_GUARD_BACKEND %q", c.Callback.GuardBackend)
	}

	providers := c.Providers
	for name, creds := range map[provider.Name]ProviderCredentials{
		provider.Google: providers.Google,
		provider.Kakao:  providers.Kakao,
		provider.Naver:  providers.Naver,
		provider.Apple:  providers.Apple,
	} {
		if creds.ClientID == "" {
			continue
		}
		if creds.RedirectURL == "" {
			return fmt.Errorf("missing %s redirect url", name)
		}
		if name != provider.Apple && creds.ClientSecret == "" {
			return fmt.Errorf("missing %s client secret", name)
		}
	}

	return nil
}
