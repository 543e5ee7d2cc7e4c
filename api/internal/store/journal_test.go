package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*JournalRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewJournalRepo(db), mock
}

func TestJournalRepo_Migrate(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("create table if not exists analysis_journal")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("create index if not exists analysis_journal_created_at_idx")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	req.NoError(repo.Migrate(context.Background()))
	req.NoError(mock.ExpectationsWereMet())
}

func TestJournalRepo_Record(t *testing.T) {
	req := require.New(t)

	insert := regexp.QuoteMeta("insert into analysis_journal ( " +
		"channel, session_key, category, file_name, content_type, size_bytes, " +
		"outcome, condition, confidence, severity, latency_ms, detail " +
		") values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)")

	tests := []struct {
		description string
		entry       Entry
		args        []driver.Value
	}{
		{
			"Should store a successful analysis",
			Entry{
				Channel: ChannelWeb, SessionKey: "3f2a9c1d0b7e6a54", Category: "eye",
				FileName: "fundus.png", ContentType: "image/png", SizeBytes: 42,
				Outcome: OutcomeOK, Condition: "cataract", Confidence: 0.95, Severity: "moderate",
				Latency: 1200 * time.Millisecond,
			},
			[]driver.Value{"web", "3f2a9c1d0b7e6a54", "eye", "fundus.png", "image/png", 42,
				"ok", "cataract", 0.95, "moderate", int64(1200), nil},
		},
		{
			"Should store empty result columns as null on failure",
			Entry{
				Channel: ChannelTelegram, SessionKey: "1001", Category: "skin",
				FileName: "photo.jpg", ContentType: "image/jpeg", SizeBytes: 7,
				Outcome: OutcomeFailed, Latency: 30 * time.Millisecond, Detail: "predict 502: bad gateway",
			},
			[]driver.Value{"telegram", "1001", "skin", "photo.jpg", "image/jpeg", 7,
				"failed", nil, 0.0, nil, int64(30), "predict 502: bad gateway"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(insert).
				WithArgs(tt.args...).
				WillReturnResult(sqlmock.NewResult(1, 1))

			req.NoError(repo.Record(context.Background(), tt.entry))
			req.NoError(mock.ExpectationsWereMet())
		})
	}
}

func TestJournalRepo_Recent(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepo(t)
	at := time.Date(2025, 2, 5, 9, 33, 12, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "created_at", "channel", "session_key", "category",
		"file_name", "content_type", "size_bytes",
		"outcome", "condition", "confidence", "severity",
		"latency_ms", "detail",
	}).
		AddRow(2, at, "web", "3f2a9c1d0b7e6a54", "eye", "fundus.png", "image/png", 42,
			"ok", "cataract", 0.95, "moderate", 1200, "").
		AddRow(1, at.Add(-time.Minute), "telegram", "1001", "skin", "photo.jpg", "image/jpeg", 7,
			"failed", "", 0.0, "", 30, "timeout")

	mock.ExpectQuery(regexp.QuoteMeta("from analysis_journal order by created_at desc limit $1")).
		WithArgs(5).
		WillReturnRows(rows)

	got, err := repo.Recent(context.Background(), 5)
	req.NoError(err)
	req.Len(got, 2)
	req.Equal(int64(2), got[0].ID)
	req.Equal(ChannelWeb, got[0].Channel)
	req.Equal(OutcomeOK, got[0].Outcome)
	req.Equal(0.95, got[0].Confidence)
	req.Equal(1200*time.Millisecond, got[0].Latency)
	req.Equal(ChannelTelegram, got[1].Channel)
	req.Equal(OutcomeFailed, got[1].Outcome)
	req.Equal("timeout", got[1].Detail)
	req.NoError(mock.ExpectationsWereMet())
}

func TestJournalRepo_RecentNone(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepo(t)

	got, err := repo.Recent(context.Background(), 0)
	req.NoError(err)
	req.Empty(got)
	req.NoError(mock.ExpectationsWereMet(), "no query for n <= 0")
}

func TestJournalRepo_PurgeOlderThan(t *testing.T) {
	req := require.New(t)
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("delete from analysis_journal where created_at < $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeOlderThan(context.Background(), 24*time.Hour)
	req.NoError(err)
	req.Equal(int64(3), n)

	_, err = repo.PurgeOlderThan(context.Background(), 0)
	req.Error(err)
	req.NoError(mock.ExpectationsWereMet())
}
