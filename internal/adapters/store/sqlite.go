package store

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS emails (
	id TEXT PRIMARY KEY,
	provider_message_id TEXT,
	source TEXT,
	listserv TEXT,
	from_email TEXT,
	from_name TEXT,
	reply_to TEXT,
	to_emails_json TEXT,
	subject TEXT NOT NULL,
	body_text TEXT NOT NULL,
	body_html TEXT,
	sent_at INTEGER NOT NULL,
	category TEXT NOT NULL,
	tags_json TEXT NOT NULL,
	confidence REAL NOT NULL,
	reasons_json TEXT NOT NULL,
	is_bump BOOLEAN NOT NULL DEFAULT 0,
	thread_key TEXT,
	canonical_id TEXT,
	dates_json TEXT,
	contacts_json TEXT,
	grant_status TEXT,
	grant_deadline_at INTEGER,
	eligibility TEXT,
	scope TEXT,
	review_note TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_emails_sent_at ON emails(sent_at);
CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category);
CREATE INDEX IF NOT EXISTS idx_emails_thread_key ON emails(thread_key, sent_at);

CREATE TABLE IF NOT EXISTS opportunities (
	id TEXT PRIMARY KEY,
	email_id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	deadline_at INTEGER,
	eligibility TEXT,
	scope TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opportunities_deadline ON opportunities(deadline_at);
`

const sqliteUpsertOppSQL = `INSERT INTO opportunities
	(id, email_id, title, status, deadline_at, eligibility, scope, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(email_id) DO UPDATE SET
		title = excluded.title,
		status = excluded.status,
		deadline_at = excluded.deadline_at,
		eligibility = excluded.eligibility,
		scope = excluded.scope,
		updated_at = excluded.updated_at`

// SqliteStore is the EmailStore backed by a local SQLite file.
type SqliteStore struct {
	sqlStore
}

// NewSqliteStore opens (and if needed bootstraps) the database at path.
func NewSqliteStore(path string, logger *zap.Logger) (*SqliteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	logger.Info("SQLite store ready", zap.String("path", path))
	return &SqliteStore{sqlStore{
		db:           db,
		logger:       logger,
		upsertOppSQL: sqliteUpsertOppSQL,
		isDuplicateFn: func(err error) bool {
			return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
		},
	}}, nil
}
