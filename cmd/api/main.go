// @title          Auth Service API
// @version        1.0
// @description    Registration, login and bearer token lifecycle.
// @BasePath       /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	mongostore "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	pgstore "github.com/99minutos/auth-service/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/denylist"
	"github.com/99minutos/auth-service/internal/pkg/config"
	"github.com/99minutos/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// best-effort: a missing .env just means the real environment is used
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: cfg.ServiceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped")
	}
	log.Info().Msg("goodbye")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	secrets, err := cfg.SecretStore()
	if err != nil {
		return err
	}

	clock := service.SystemClock{}
	checks := make(map[string]handler.DependencyCheck)
	var closers []func(context.Context) error
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](closeCtx); err != nil {
				log.Warn().Err(err).Msg("close failed")
			}
		}
	}()

	// --- User store ---
	var users ports.UserRepository
	switch cfg.UserStore {
	case config.StorePostgres:
		if err := pgstore.RunMigrations(cfg.Postgres.URL); err != nil {
			return err
		}
		db, err := pgstore.Connect(ctx, pgstore.Config{DSN: cfg.Postgres.URL})
		if err != nil {
			return err
		}
		closers = append(closers, func(context.Context) error { return db.Close() })
		checks["postgres"] = db.PingContext
		users = pgstore.NewUserRepository(db)
	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: cfg.ServiceName})
		if err != nil {
			return err
		}
		closers = append(closers, client.Disconnect)
		checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		repo := mongostore.NewUserRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		users = repo
	}
	log.Info().Str("store", cfg.UserStore).Msg("user store ready")

	// --- Denylist ---
	var deny ports.Denylist
	switch cfg.Denylist.Backend {
	case config.DenylistRedis:
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		closers = append(closers, func(context.Context) error { return rdb.Close() })
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		deny = redisstore.NewDenylist(rdb)
	default:
		mem := denylist.NewMemory(clock.Now)
		metrics.RegisterDenylistSize(mem.Len)
		go mem.Run(ctx, cfg.Denylist.SweepInterval, log)
		deny = mem
	}
	log.Info().Str("backend", cfg.Denylist.Backend).Msg("denylist ready")

	// --- Services ---
	hasher, err := service.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens := service.NewTokenService(secrets, clock, deny, log)
	auth, err := service.NewAuthService(users, tokens, hasher, clock, log)
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Dependencies{
		BasePath: cfg.BasePath,
		Auth:     auth,
		Tokens:   tokens,
		Users:    users,
		Checks:   checks,
		Logger:   log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("issuer", secrets.Issuer()).Dur("ttl", secrets.TTL()).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
