package store

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS emails (
		id VARCHAR(64) PRIMARY KEY,
		provider_message_id VARCHAR(512),
		source VARCHAR(64),
		listserv VARCHAR(255),
		from_email VARCHAR(320),
		from_name VARCHAR(255),
		reply_to VARCHAR(320),
		to_emails_json TEXT,
		subject TEXT NOT NULL,
		body_text MEDIUMTEXT NOT NULL,
		body_html MEDIUMTEXT,
		sent_at BIGINT NOT NULL,
		category VARCHAR(16) NOT NULL,
		tags_json TEXT NOT NULL,
		confidence DOUBLE NOT NULL,
		reasons_json TEXT NOT NULL,
		is_bump BOOLEAN NOT NULL DEFAULT FALSE,
		thread_key VARCHAR(512),
		canonical_id VARCHAR(64),
		dates_json TEXT,
		contacts_json TEXT,
		grant_status VARCHAR(16),
		grant_deadline_at BIGINT,
		eligibility VARCHAR(16),
		scope VARCHAR(16),
		review_note TEXT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		INDEX idx_emails_sent_at (sent_at),
		INDEX idx_emails_category (category),
		INDEX idx_emails_thread_key (thread_key(191), sent_at)
	)`,
	`CREATE TABLE IF NOT EXISTS opportunities (
		id VARCHAR(64) PRIMARY KEY,
		email_id VARCHAR(64) NOT NULL UNIQUE,
		title TEXT NOT NULL,
		status VARCHAR(16) NOT NULL,
		deadline_at BIGINT,
		eligibility VARCHAR(16),
		scope VARCHAR(16),
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		INDEX idx_opportunities_deadline (deadline_at)
	)`,
}

const mysqlUpsertOppSQL = `INSERT INTO opportunities
	(id, email_id, title, status, deadline_at, eligibility, scope, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		title = VALUES(title),
		status = VALUES(status),
		deadline_at = VALUES(deadline_at),
		eligibility = VALUES(eligibility),
		scope = VALUES(scope),
		updated_at = VALUES(updated_at)`

// MysqlStore is the EmailStore backed by a MySQL server.
type MysqlStore struct {
	sqlStore
}

// NewMysqlStore connects with the given DSN and bootstraps the schema.
func NewMysqlStore(dsn string, logger *zap.Logger) (*MysqlStore, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql db: %w", err)
	}
	for _, stmt := range mysqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	logger.Info("MySQL store ready")
	return &MysqlStore{sqlStore{
		db:           db,
		logger:       logger,
		upsertOppSQL: mysqlUpsertOppSQL,
		isDuplicateFn: func(err error) bool {
			var me *mysql.MySQLError
			return errors.As(err, &me) && me.Number == 1062
		},
	}}, nil
}
