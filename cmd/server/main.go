package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"chatserver/internal/config"
	"chatserver/internal/domain"
	"chatserver/internal/httpserver"
	"chatserver/internal/logging"
	"chatserver/internal/security"
	"chatserver/internal/store/postgres"
	"chatserver/internal/store/sqlite"
	"chatserver/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(cfg.Env, cfg.Debug)

	db, repos, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	tokenSvc := security.NewTokenService(
		cfg.JWTSecret,
		cfg.RefreshTokenSecret,
		time.Duration(cfg.AccessTokenMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenDays)*24*time.Hour,
	)
	passwordHasher := security.NewPasswordHasher(0)

	hub := ws.NewHub()

	router := httpserver.NewRouter(cfg, repos, hub, tokenSvc, passwordHasher)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Str("driver", cfg.DatabaseDriver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStore(cfg *config.Config) (*sql.DB, *domain.Repositories, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, sqlite.NewRepositories(db), nil
	default:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, postgres.NewRepositories(db), nil
	}
}
