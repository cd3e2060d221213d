package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	adapthttp "diary/internal/adapter/http"
	"diary/internal/adapter/memory"
	"diary/internal/adapter/postgres"
	"diary/internal/adapter/sqlite"
	"diary/internal/app"
	"diary/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

func main() {
	logger := newLogger(env("DIARY_LOG_LEVEL", "info"))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	addr := env("ADDR", ":8080")
	webDir := os.Getenv("DIARY_WEB_DIR")

	st, err := openStores(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.closer.Close(); err != nil {
			logger.Warn("store close", "error", err)
		}
	}()

	entrySvc := app.NewEntryService(st.entries)
	calendarSvc := app.NewCalendarService(st.entries)
	authSvc := app.NewAuthService(st.users, st.sessions)
	defer authSvc.Close()

	if u, p := os.Getenv("DIARY_USERNAME"), os.Getenv("DIARY_PASSWORD"); u != "" && p != "" {
		err := authSvc.CreateInitialUser(context.Background(), u, p)
		switch {
		case err == nil:
			logger.Info("created initial user", "user", u)
		case errors.Is(err, app.ErrUsersExist):
		default:
			return fmt.Errorf("seed user: %w", err)
		}
	}

	oidcCfg, err := oidcFromEnv(context.Background())
	if err != nil {
		return err
	}

	srv := adapthttp.New(entrySvc, calendarSvc, authSvc, oidcCfg, logger, webDir)
	if env("DIARY_AUTH", "on") == "off" {
		logger.Warn("authentication disabled")
		srv = srv.WithoutAuth()
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "store", env("DIARY_STORE", "sqlite"))
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	authSvc.SweepNow()
	return httpSrv.Shutdown(ctx)
}

type stores struct {
	entries  domain.EntryRepository
	users    domain.UserRepository
	sessions domain.SessionRepository
	closer   io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStores picks the backing store from DIARY_STORE. Entries, accounts and
// sessions always live in the same store.
func openStores(logger *slog.Logger) (stores, error) {
	switch kind := env("DIARY_STORE", "sqlite"); kind {
	case "sqlite":
		dir, err := sqlite.ResolveDataDir()
		if err != nil {
			return stores{}, fmt.Errorf("data dir: %w", err)
		}
		opts := []sqlite.Option{sqlite.WithLogger(logger)}
		if ms, err := strconv.Atoi(os.Getenv("DIARY_SLOW_QUERY_MS")); err == nil && ms > 0 {
			opts = append(opts, sqlite.WithSlowQueryThreshold(time.Duration(ms)*time.Millisecond))
		}
		gw := sqlite.Open(dir, opts...)
		logger.Info("using sqlite store", "path", gw.Path())

		return stores{entries: gw, users: gw, sessions: gw.NewSessionRepo(), closer: gw}, nil

	case "memory":
		db := memory.New()
		return stores{entries: db, users: db, sessions: db.NewSessionRepo(), closer: nopCloser{}}, nil

	case "postgres":
		connStr := os.Getenv("DATABASE_URL")
		if connStr == "" {
			return stores{}, errors.New("DATABASE_URL is required for the postgres store")
		}
		db, err := postgres.Open(connStr)
		if err != nil {
			return stores{}, fmt.Errorf("db open: %w", err)
		}
		return stores{entries: db, users: db, sessions: postgres.NewSessionRepo(db), closer: db}, nil

	default:
		return stores{}, fmt.Errorf("unknown DIARY_STORE %q", kind)
	}
}

// oidcFromEnv enables SSO when OIDC_ISSUER and OIDC_CLIENT_ID are set.
func oidcFromEnv(ctx context.Context) (adapthttp.OIDCConfig, error) {
	issuer := os.Getenv("OIDC_ISSUER")
	clientID := os.Getenv("OIDC_CLIENT_ID")
	if issuer == "" || clientID == "" {
		return adapthttp.OIDCConfig{}, nil
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return adapthttp.OIDCConfig{}, fmt.Errorf("oidc provider: %w", err)
	}
	return adapthttp.OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
