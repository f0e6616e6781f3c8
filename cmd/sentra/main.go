// Command sentra runs the identity provider. With SENTRA_STORE=inmem it
// keeps everything in process memory, which is handy for development;
// otherwise it expects PostgreSQL and Redis.
package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentra-id/sentra/pkg/api"
	"github.com/sentra-id/sentra/pkg/auth"
	"github.com/sentra-id/sentra/pkg/config"
	"github.com/sentra-id/sentra/pkg/device"
	"github.com/sentra-id/sentra/pkg/notification"
	"github.com/sentra-id/sentra/pkg/oauth"
	"github.com/sentra-id/sentra/pkg/password"
	"github.com/sentra-id/sentra/pkg/ratelimit"
	"github.com/sentra-id/sentra/pkg/revocation"
	"github.com/sentra-id/sentra/pkg/router"
	"github.com/sentra-id/sentra/pkg/session"
	"github.com/sentra-id/sentra/pkg/tokengenerator"
	"github.com/sentra-id/sentra/pkg/twofa"
	"github.com/sentra-id/sentra/pkg/user"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := buildCodec(cfg.JWT)
	if err != nil {
		return err
	}

	cache, err := revocation.NewCacheFromConfig(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer cache.Close()

	handler, err := buildHandler(ctx, cfg, codec, cache)
	if err != nil {
		return err
	}

	mux := router.New(router.Config{
		Mode:     cfg.Mode,
		Features: cfg.Features,
		Handler:  handler,
		Guard:    ratelimit.NewGuard(cfg.RateLimit),
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func buildCodec(cfg config.JWTConfig) (*tokengenerator.Codec, error) {
	key, err := loadOrCreateSigningKey(cfg.PrivateKeyFile)
	if err != nil {
		return nil, err
	}

	accessExpiry, err := cfg.ParseAccessTokenExpiry()
	if err != nil {
		return nil, err
	}
	refreshExpiry, err := cfg.ParseRefreshTokenExpiry()
	if err != nil {
		return nil, err
	}

	return tokengenerator.NewCodec(key, cfg.KeyID, cfg.Issuer, cfg.Audience,
		tokengenerator.WithAccessTokenExpiry(accessExpiry),
		tokengenerator.WithRefreshTokenExpiry(refreshExpiry),
	), nil
}

// loadOrCreateSigningKey loads the configured signing key, generating and
// persisting a fresh one when the file does not exist yet. Issued tokens
// survive restarts because the generated key is written back to disk.
func loadOrCreateSigningKey(path string) (*rsa.PrivateKey, error) {
	key, err := tokengenerator.LoadPrivateKeyFromPEM(path)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	slog.Warn("signing key not found, generating one", "path", path)
	key, err = tokengenerator.GenerateRSAKeyPair(2048)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(tokengenerator.EncodePrivateKeyToPEM(key)), 0o600); err != nil {
		return nil, err
	}
	return key, nil
}

func buildHandler(ctx context.Context, cfg *config.Config, codec *tokengenerator.Codec, cache *revocation.Cache) (*api.Handler, error) {
	var (
		users    user.Repository
		sessions session.Repository
		twofaDB  twofa.Repository
		devices  device.Repository
		codes    oauth.CodeStore
	)

	if config.GetEnvOrDefault("SENTRA_STORE", "postgres") == "inmem" {
		slog.Warn("using in-memory repositories, all data is lost on restart")
		users = user.NewInMemoryRepository()
		sessions = session.NewInMemoryRepository()
		twofaDB = twofa.NewInMemoryRepository()
		devices = device.NewInMemoryRepository()
		codes = oauth.NewInMemoryCodeStore()
	} else {
		pool, err := pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, err
		}
		users = user.NewPostgresRepository(pool)
		sessions = session.NewPostgresRepository(pool)
		twofaDB = twofa.NewPostgresRepository(pool)
		devices = device.NewPostgresRepository(pool)
		codes = oauth.NewPostgresCodeStore(pool)
	}

	hasher := password.NewManager(password.WithLegacyHasher(&password.BcryptHasher{}))

	options := []auth.IssuerOption{}
	if cfg.Features.TwoFactor {
		options = append(options, auth.WithTwoFactorEngine(twofa.NewEngine(twofaDB, cfg.JWT.Issuer)))
	}
	if cfg.Features.DeviceManagement {
		options = append(options, auth.WithDeviceTracker(device.NewTracker(devices, sessions, cache)))
	}
	if cfg.Features.Email {
		notifier, err := notification.NewFromConfig(cfg.Email)
		if err != nil {
			return nil, err
		}
		options = append(options, auth.WithNotifier(notifier))
	}

	issuer := auth.NewIssuer(users, sessions, hasher, codec, cache, options...)

	clients, err := oauth.NewStaticClientRepository(cfg.OAuth.Clients)
	if err != nil {
		return nil, err
	}
	codeExpiry, err := config.ParseDuration(cfg.OAuth.AuthCodeExpiry)
	if err != nil {
		return nil, err
	}
	bridge := oauth.NewBridge(codes, clients, oauth.WithCodeExpiry(codeExpiry))

	cookies := tokengenerator.NewCookieSetter(cfg.JWT.CookieDomain, cfg.JWT.CookieHttpOnly, cfg.JWT.CookieSecure, cfg.JWT.CookieSameSite())

	return api.NewHandler(issuer, bridge, codec, cookies), nil
}
