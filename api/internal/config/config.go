package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Host string `env:"HOST,default=0.0.0.0"`
	Port int    `env:"PORT,default=8080" validate:"gt=0,lte=65535"`

	PredictBaseURL string        `env:"PREDICT_BASE_URL,default=http://localhost:8000" validate:"required,url"`
	PredictTimeout time.Duration `env:"PREDICT_TIMEOUT,default=60s" validate:"gte=0"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES,default=10485760" validate:"gt=0"`

	LogLevel string `env:"LOG_LEVEL,default=info" validate:"oneof=trace debug info warn warning error fatal panic"`

	SessionBackend string        `env:"SESSION_BACKEND,default=memory" validate:"oneof=memory redis"`
	SessionTTL     time.Duration `env:"SESSION_TTL,default=24h" validate:"gt=0"`
	RedisAddr      string        `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB,default=0" validate:"gte=0"`
	CookieSecure   bool          `env:"COOKIE_SECURE,default=false"`

	// Empty disables the analysis journal.
	DatabaseURL string `env:"DATABASE_URL"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	WebhookURL       string `env:"WEBHOOK_URL" validate:"omitempty,url"`
}

var validate = validator.New()

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StaleAfter is how long a pending submission may stay pending before it is failed.
// Zero means the prediction client has no timeout, so nothing is expired.
func (c *Config) StaleAfter() time.Duration {
	return 2 * c.PredictTimeout
}

// SetupLogging applies LOG_LEVEL to the standard logrus logger.
func (c *Config) SetupLogging() {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
