package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryDelayFromError(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		description string
		err         error
		want        time.Duration
	}{
		{"Should not wait without an error", nil, 0},
		{"Should honor retry after", errors.New("Too Many Requests: retry after 7"), 7 * time.Second},
		{"Should back off on 429 without a hint", errors.New("too many requests"), 3 * time.Second},
		{"Should wait on timeouts", timeoutErr{}, 2 * time.Second},
		{"Should default to one second", errors.New("bad gateway"), time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req.Equal(tt.want, retryDelayFromError(tt.err))
		})
	}
}

func TestShortHash(t *testing.T) {
	req := require.New(t)
	a := shortHash("123:abc")
	req.Len(a, 16)
	req.Equal(a, shortHash("123:abc"))
	req.NotEqual(a, shortHash("123:abd"))
}

func TestResolveDSN(t *testing.T) {
	req := require.New(t)
	t.Setenv("PGHOST", "")
	req.Equal("postgres://u@h/db", resolveDSN(" postgres://u@h/db "))
	req.Empty(resolveDSN(""))

	t.Setenv("PGHOST", "db")
	t.Setenv("PGPORT", "")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_DB", "")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	req.Equal("postgres://docgpt:secret@db:5432/docgpt?sslmode=disable", resolveDSN(""))
}
