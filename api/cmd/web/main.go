package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/config"
	"docgpt/api/internal/landing"
	"docgpt/api/internal/predict"
	"docgpt/api/internal/session"
	"docgpt/api/internal/store"
	"docgpt/api/internal/upload"
	"docgpt/api/internal/web"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.SetupLogging()
	gin.SetMode(ginMode(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var checks []func(context.Context) error

	sessions, closeSessions, err := openSessions(ctx, cfg, &checks)
	if err != nil {
		return err
	}
	defer closeSessions()

	var journal store.Recorder = store.Nop{}
	if cfg.DatabaseURL != "" {
		db, err := openJournal(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			_ = db.Close()
		}()
		journal = store.NewJournalRepo(db)
		checks = append(checks, db.PingContext)
	} else {
		log.Info("DATABASE_URL not set, analysis journal disabled")
	}

	client := predict.New(cfg.PredictBaseURL, predict.WithTimeout(cfg.PredictTimeout))
	h := web.NewHandler(web.Deps{
		Sessions:     sessions,
		Predictor:    client,
		Journal:      journal,
		Inspector:    upload.New(cfg.MaxUploadBytes),
		Landing:      landing.Default(),
		StaleAfter:   cfg.StaleAfter(),
		CookieSecure: cfg.CookieSecure,
		CookieMaxAge: cfg.SessionTTL,
		Health:       healthCheck(checks),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": srv.Addr, "predict": client.Endpoint()}).Info("web listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.PredictTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("web stopped cleanly")
	return nil
}

func openSessions(ctx context.Context, cfg *config.Config, checks *[]func(context.Context) error) (session.Store, func(), error) {
	switch cfg.SessionBackend {
	case "redis":
		rs, err := session.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis sessions: %w", err)
		}
		log.WithField("addr", cfg.RedisAddr).Info("redis sessions connected")
		*checks = append(*checks, rs.Ping)
		return rs, func() { _ = rs.Close() }, nil
	default:
		ms := session.NewMemory(cfg.SessionTTL)
		go ms.RunSweeper(ctx, time.Minute)
		return ms, func() {}, nil
	}
}

func openJournal(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	log.Infof("db connected: %s", store.SafeDSNSummary(dsn))

	if err := store.NewJournalRepo(db).Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal migrate: %w", err)
	}
	return db, nil
}

// healthCheck runs every configured ping; nil when there is nothing to check.
func healthCheck(checks []func(context.Context) error) func(context.Context) error {
	if len(checks) == 0 {
		return nil
	}
	return func(ctx context.Context) error {
		for _, ping := range checks {
			if err := ping(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// ginMode keeps gin's route dump and debug warnings for debug logging only.
func ginMode(logLevel string) string {
	switch logLevel {
	case "debug", "trace":
		return gin.DebugMode
	default:
		return gin.ReleaseMode
	}
}
