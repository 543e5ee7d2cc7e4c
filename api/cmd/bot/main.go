package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/config"
	"docgpt/api/internal/predict"
	"docgpt/api/internal/store"
	"docgpt/api/internal/telegram"
	"docgpt/api/internal/upload"
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
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		return errors.New("config error: TELEGRAM_BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Postgres (optional) ---
	var (
		journal store.Recorder = store.Nop{}
		ping    func(context.Context) error
	)
	if dsn := resolveDSN(cfg.DatabaseURL); dsn != "" {
		db, err := store.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Infof("db connected: %s", store.SafeDSNSummary(dsn))
		repo := store.NewJournalRepo(db)
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("journal migrate: %w", err)
		}
		journal, ping = repo, db.PingContext
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:       bot,
		Predictor: predict.New(cfg.PredictBaseURL, predict.WithTimeout(cfg.PredictTimeout), predict.WithUserAgent("docgpt-bot")),
		Journal:   journal,
		Inspector: upload.New(cfg.MaxUploadBytes),
	}

	var wg sync.WaitGroup
	dispatch := func(upd tgbotapi.Update) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.HandleUpdate(ctx, upd)
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		if ping != nil {
			pctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(pctx); err != nil {
				c.String(http.StatusServiceUnavailable, "db: not ok\n%s", err.Error())
				return
			}
		}
		c.String(http.StatusOK, "ok")
	})

	// --- Choose mode: Webhook vs Polling ---
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL != "" {
		if err := registerWebhook(bot, engine, webhookURL, dispatch); err != nil {
			return err
		}
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Warn("delete webhook")
		}
		go runPolling(ctx, bot, dispatch)
	}

	srv := &http.Server{Addr: cfg.Addr(), Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	errChan := make(chan error, 1)
	go func() {
		log.Infof("health server listening on %s/healthz", srv.Addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	wg.Wait()
	log.Info("bot stopped cleanly")
	return nil
}

// ---------------- Modes -----------------

func registerWebhook(bot *tgbotapi.BotAPI, engine *gin.Engine, baseURL string, dispatch func(tgbotapi.Update)) error {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	engine.POST(path, func(c *gin.Context) {
		upd, err := bot.HandleUpdate(c.Request)
		if err != nil {
			log.WithError(err).Warn("bad webhook update")
			c.Status(http.StatusBadRequest)
			return
		}
		dispatch(*upd)
		c.Status(http.StatusOK)
	})
	log.Infof("webhook registered at %s", path)
	return nil
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.WithError(err).Warnf("polling error; retry in %v", d)
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

// resolveDSN prefers DATABASE_URL and falls back to POSTGRES_* / PG* when PGHOST is set.
func resolveDSN(databaseURL string) string {
	if v := strings.TrimSpace(databaseURL); v != "" {
		return v
	}
	host := strings.TrimSpace(os.Getenv("PGHOST"))
	if host == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getenvDefault("POSTGRES_USER", "docgpt"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(host, getenvDefault("PGPORT", "5432")),
		Path:     "/" + getenvDefault("POSTGRES_DB", "docgpt"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func shortHash(s string) string {
	// FNV-1a, стабильно для токена
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
