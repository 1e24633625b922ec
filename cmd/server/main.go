// Command server runs the multi-tenant authentication API.
//
//	@title						Hikari Auth Core API
//	@version					1.0
//	@description				Multi-tenant authentication and session service.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hikari-health/auth-core/internal/api"
	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
	"github.com/hikari-health/auth-core/internal/core/service"
	"github.com/hikari-health/auth-core/internal/infrastructure/captcha"
	"github.com/hikari-health/auth-core/internal/infrastructure/config"
	mongostore "github.com/hikari-health/auth-core/internal/infrastructure/db/mongo"
	pgstore "github.com/hikari-health/auth-core/internal/infrastructure/db/postgres"
	redisstore "github.com/hikari-health/auth-core/internal/infrastructure/db/redis"
	"github.com/hikari-health/auth-core/internal/infrastructure/http/handlers"
	"github.com/hikari-health/auth-core/internal/infrastructure/memory"
	"github.com/hikari-health/auth-core/internal/infrastructure/queue"
	"github.com/hikari-health/auth-core/internal/infrastructure/token"
	"github.com/hikari-health/auth-core/pkg/logger"
)

const (
	serviceName     = "hikari-auth-core"
	shutdownTimeout = 10 * time.Second
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	log.Info().Str("database", cfg.Mongo.Database).Msg("Connected to MongoDB")

	users := mongostore.NewUserRepository(db)
	tenants := mongostore.NewTenantRepository(db)
	checks := []handlers.Check{handlers.MongoCheck(db)}
	indexed := []mongostore.Indexed{users, tenants}

	var tokens ports.RefreshTokenStore
	switch cfg.RefreshStore {
	case config.StorePostgres:
		sqlDB, err := pgstore.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		if err := pgstore.EnsureSchema(ctx, sqlDB); err != nil {
			return err
		}
		tokens = pgstore.NewRefreshTokenStore(sqlDB)
		checks = append(checks, handlers.SQLCheck("postgres", sqlDB))
	case config.StoreMemory:
		log.Warn().Msg("Refresh tokens kept in memory; sessions will not survive a restart")
		tokens = memory.NewRefreshTokenStore()
	default:
		store := mongostore.NewRefreshTokenStore(db)
		indexed = append(indexed, store)
		tokens = store
	}

	if err := mongostore.EnsureIndexes(ctx, indexed...); err != nil {
		return err
	}

	var (
		counter ports.RateCounter
		windows queue.WindowCleaner
	)
	switch cfg.RateLimitStore {
	case config.StoreRedis:
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		counter = redisstore.NewRateCounter(rdb)
		checks = append(checks, handlers.RedisCheck(rdb))
	default:
		mem := memory.NewCounter()
		counter = mem
		windows = mem
	}

	issuer, err := token.NewIssuer(token.Config{
		PrivateKey: cfg.JWT.PrivateKey,
		PublicKey:  cfg.JWT.PublicKey,
		HMACSecret: cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		TTL:        cfg.JWT.Expiration,
		Production: cfg.IsProduction(),
	})
	if errors.Is(err, domain.ErrInsecureSigningConfig) {
		log.Error().Msg("JWT_PRIVATE_KEY is required in production; refusing to sign with a shared secret")
		return err
	}
	if err != nil {
		return err
	}
	if issuer.Algorithm() != "RS256" {
		log.Warn().Str("alg", issuer.Algorithm()).Msg("Signing access tokens with a shared secret; development only")
	}

	sessions := service.NewSessionService(users, tenants, tokens, issuer, service.SessionConfig{
		RefreshTTL: cfg.RefreshTTL(),
		BcryptCost: cfg.BcryptCost,
	}, log.With().Str("component", "sessions").Logger())

	verifier := captcha.NewVerifier(captcha.Config{
		Enabled:  cfg.Captcha.Enabled,
		Secret:   cfg.Captcha.Secret,
		MinScore: cfg.Captcha.MinScore,
		Timeout:  cfg.Captcha.Timeout,
	}, log)

	dispatcher := queue.NewAuditDispatcher(cfg.AuditWorkers, log)
	sweeper := queue.NewSweeper(sessions, windows, cfg.SweepInterval, log)

	e := api.NewRouter(api.Deps{
		Sessions: sessions,
		Issuer:   issuer,
		Captcha:  verifier,
		Counter:  counter,
		Audit:    dispatcher,
		Checks:   checks,
		Logger:   log,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	return g.Wait()
}
