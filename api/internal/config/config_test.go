package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	for _, k := range []string{"HOST", "PORT", "PREDICT_BASE_URL", "PREDICT_TIMEOUT", "MAX_UPLOAD_BYTES",
		"LOG_LEVEL", "SESSION_BACKEND", "SESSION_TTL", "DATABASE_URL", "WEBHOOK_URL"} {
		t.Setenv(k, "unset")
		req.NoError(os.Unsetenv(k))
	}

	cfg, err := Load()
	req.NoError(err)
	req.Equal("0.0.0.0:8080", cfg.Addr())
	req.Equal("http://localhost:8000", cfg.PredictBaseURL)
	req.Equal(60*time.Second, cfg.PredictTimeout)
	req.Equal(int64(10<<20), cfg.MaxUploadBytes)
	req.Equal("memory", cfg.SessionBackend)
	req.Equal(24*time.Hour, cfg.SessionTTL)
	req.Equal(2*time.Minute, cfg.StaleAfter())
	req.Empty(cfg.DatabaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "9090")
	t.Setenv("PREDICT_BASE_URL", "http://model:8000")
	t.Setenv("PREDICT_TIMEOUT", "15s")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(9090, cfg.Port)
	req.Equal("http://model:8000", cfg.PredictBaseURL)
	req.Equal(15*time.Second, cfg.PredictTimeout)
	req.Equal("redis", cfg.SessionBackend)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		description string
		key, value  string
	}{
		{"Should reject an unknown session backend", "SESSION_BACKEND", "memcached"},
		{"Should reject a bad predict url", "PREDICT_BASE_URL", "not a url"},
		{"Should reject an unknown log level", "LOG_LEVEL", "loud"},
		{"Should reject a non numeric port", "PORT", "eighty"},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err, tt.description)
		})
	}
}
