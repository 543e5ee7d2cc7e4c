//go:generate go run go.uber.org/mock/mockgen -source=journal.go -destination=../mocks/mock_recorder.go -package=mocks
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Channel is the front end a submission came through.
type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelTelegram Channel = "telegram"
)

type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// Entry is one analysis round trip. Detail holds the internal failure reason;
// it is never shown to users.
type Entry struct {
	ID          int64
	CreatedAt   time.Time
	Channel     Channel
	SessionKey  string
	Category    string
	FileName    string
	ContentType string
	SizeBytes   int
	Outcome     Outcome
	Condition   string
	Confidence  float64
	Severity    string
	Latency     time.Duration
	Detail      string
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop is used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

type JournalRepo struct{ DB *sql.DB }

func NewJournalRepo(db *sql.DB) *JournalRepo { return &JournalRepo{DB: db} }

var schema = []string{`
create table if not exists analysis_journal (
  id            bigserial primary key,
  created_at    timestamptz not null default now(),
  channel       text not null,
  session_key   text not null,
  category      text not null,
  file_name     text,
  content_type  text,
  size_bytes    integer not null default 0,
  outcome       text not null,
  condition     text,
  confidence    double precision,
  severity      text,
  latency_ms    bigint not null default 0,
  detail        text
)`,
	`create index if not exists analysis_journal_created_at_idx on analysis_journal (created_at desc)`,
}

func (r *JournalRepo) Migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (r *JournalRepo) Record(ctx context.Context, e Entry) error {
	const q = `
insert into analysis_journal (
  channel, session_key, category, file_name, content_type, size_bytes,
  outcome, condition, confidence, severity, latency_ms, detail
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.DB.ExecContext(ctx, q,
		string(e.Channel), e.SessionKey, e.Category, e.FileName, e.ContentType, e.SizeBytes,
		string(e.Outcome), nullable(e.Condition), e.Confidence, nullable(e.Severity),
		e.Latency.Milliseconds(), nullable(e.Detail),
	)
	return err
}

// Recent returns the newest n entries, newest first.
func (r *JournalRepo) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	const q = `
select id, created_at, channel, session_key, category,
       coalesce(file_name,''), coalesce(content_type,''), size_bytes,
       outcome, coalesce(condition,''), coalesce(confidence,0), coalesce(severity,''),
       latency_ms, coalesce(detail,'')
from analysis_journal
order by created_at desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			channel   string
			outcome   string
			latencyMs int64
		)
		if err := rows.Scan(&e.ID, &e.CreatedAt, &channel, &e.SessionKey, &e.Category,
			&e.FileName, &e.ContentType, &e.SizeBytes,
			&outcome, &e.Condition, &e.Confidence, &e.Severity,
			&latencyMs, &e.Detail); err != nil {
			return nil, err
		}
		e.Channel = Channel(channel)
		e.Outcome = Outcome(outcome)
		e.Latency = time.Duration(latencyMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeOlderThan keeps the journal bounded.
func (r *JournalRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from analysis_journal where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
