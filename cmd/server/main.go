package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/config"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/httpapi"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/hub"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/logging"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger(false).Fatalf("config: %v", err)
	}

	log := logging.NewLogger(cfg.Debug)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	db, err := storage.Open(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(); err != nil {
		return err
	}
	if err := seedAdmin(db, cfg, log); err != nil {
		return err
	}

	records, err := storage.NewRecords(db, cfg.RecordCacheSize)
	if err != nil {
		return err
	}

	h := hub.NewHub(ctx, log)
	api := httpapi.New(h, db, records, cfg.JWTSecret, cfg.TokenTTL, cfg.OperationTime, log)

	srv := &http.Server{Addr: cfg.Addr, Handler: api.Routes()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func seedAdmin(db *storage.DB, cfg *config.Config, log *zap.SugaredLogger) error {
	if cfg.AdminPassword == "" {
		return nil
	}
	if _, err := db.AdminByUsername(cfg.AdminUser); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	hash, err := httpapi.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	log.Infow("seeding admin account", "username", cfg.AdminUser)
	return db.Create(&storage.Admin{Username: cfg.AdminUser, PasswordHash: hash}).Error
}
