package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/handler"
	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/social-login-api/shared/auth"
	"github.com/vasapolrittideah/social-login-api/shared/discovery"
	"github.com/vasapolrittideah/social-login-api/shared/idempotency"
	"github.com/vasapolrittideah/social-login-api/shared/logger"
	"github.com/vasapolrittideah/social-login-api/shared/metrics"
	"github.com/vasapolrittideah/social-login-api/shared/middleware"
	"github.com/vasapolrittideah/social-login-api/shared/provider"
	"github.com/vasapolrittideah/social-login-api/shared/utilities"
)

const shutdownTimeout = 15 * time.Second

func serve(ctx context.Context) error {
	cfg := config.NewAuthServiceConfig(logger.New("auth-service", "info", false))
	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.IsDevelopment())

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	db := mongoClient.Database(cfg.Mongo.Database)

	userRepo := repository.NewUserMongoRepository(ctx, log, db)
	identityRepo := repository.NewIdentityMongoRepository(ctx, log, db)
	sessionRepo := repository.NewSessionMongoRepository(ctx, log, db)
	roleRepo := repository.NewRoleMongoRepository(ctx, log, db)
	historyRepo := repository.NewLoginHistoryMongoRepository(ctx, log, db)

	registry := provider.NewRegistry(cfg.ProviderConfig(), &http.Client{Timeout: 10 * time.Second})
	if len(registry.Enabled()) == 0 {
		log.Warn().Msg("no social login provider is configured")
	}
	log.Info().Interface("providers", registry.Enabled()).Msg("social login providers enabled")

	guard, closeGuard, err := newCallbackGuard(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeGuard()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(promRegistry)

	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Audience, cfg.Token.Issuer)

	socialAuthUsecase := usecase.NewSocialAuthUsecase(
		registry,
		usecase.NewProfileValidator(validator.New(validator.WithRequiredStructEnabled())),
		usecase.NewIdentityResolver(userRepo, identityRepo, roleRepo, log),
		usecase.NewSessionIssuer(sessionRepo, userRepo, jwtAuth, cfg.Token, log),
		usecase.NewAuditRecorder(historyRepo, log),
		collector,
		log,
	)

	clientIP, err := utilities.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	authHandler := handler.NewAuthHTTPHandler(
		socialAuthUsecase,
		guard,
		collector,
		middleware.NewJWTMiddleware(jwtAuth, cfg.Token.AccessTokenSecret),
		clientIP,
		log,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler.NewRouter(authHandler, metrics.Handler(promRegistry), log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}
	grpcServer := grpc.NewServer()
	healthServer := utilities.RegisterHealthServer(grpcServer, cfg.ServiceName)

	if cfg.Consul.Enabled {
		deregister, err := registerWithConsul(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := deregister(); err != nil {
				log.Error().Err(err).Msg("failed to deregister from consul")
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", grpcListener.Addr().String()).Msg("grpc health server listening")
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve grpc: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		healthServer.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}

func newCallbackGuard(ctx context.Context, cfg *config.AuthServiceConfig, log *zerolog.Logger) (idempotency.Guard, func(), error) {
	if cfg.Callback.GuardBackend != "redis" {
		log.Info().Dur("ttl", cfg.Callback.GuardTTL).Msg("using in-memory callback guard")
		return idempotency.NewMemoryGuard(cfg.Callback.GuardTTL), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis is unreachable, callback guard will fail open until it recovers")
	}

	closeClient := func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}
	return idempotency.NewRedisGuard(client, cfg.Callback.GuardTTL), closeClient, nil
}

func registerWithConsul(cfg *config.AuthServiceConfig) (func() error, error) {
	registry, err := discovery.NewConsulRegistry(cfg.Consul.Address)
	if err != nil {
		return nil, err
	}

	return registry.Register(discovery.Registration{
		ServiceName: cfg.ServiceName,
		Host:        cfg.Host,
		HTTPPort:    cfg.HTTPPort,
		GRPCPort:    cfg.GRPCPort,
		Tags:        []string{"http", "social-login"},
	})
}
