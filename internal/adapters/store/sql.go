package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mikey/listserv-triage/internal/core"
	"go.uber.org/zap"
)

// rowRecord is the database shape of a core.Record. List-valued fields
// are stored as JSON text.
type rowRecord struct {
	ID                string          `db:"id"`
	ProviderMessageID sql.NullString  `db:"provider_message_id"`
	Source            sql.NullString  `db:"source"`
	Listserv          sql.NullString  `db:"listserv"`
	FromEmail         sql.NullString  `db:"from_email"`
	FromName          sql.NullString  `db:"from_name"`
	ReplyTo           sql.NullString  `db:"reply_to"`
	ToEmailsJSON      sql.NullString  `db:"to_emails_json"`
	Subject           string          `db:"subject"`
	BodyText          string          `db:"body_text"`
	BodyHTML          sql.NullString  `db:"body_html"`
	SentAt            int64           `db:"sent_at"`
	Category          string          `db:"category"`
	TagsJSON          string          `db:"tags_json"`
	Confidence        float64         `db:"confidence"`
	ReasonsJSON       string          `db:"reasons_json"`
	IsBump            bool            `db:"is_bump"`
	ThreadKey         sql.NullString  `db:"thread_key"`
	CanonicalID       sql.NullString  `db:"canonical_id"`
	DatesJSON         sql.NullString  `db:"dates_json"`
	ContactsJSON      sql.NullString  `db:"contacts_json"`
	GrantStatus       sql.NullString  `db:"grant_status"`
	GrantDeadlineAt   sql.NullInt64   `db:"grant_deadline_at"`
	Eligibility       sql.NullString  `db:"eligibility"`
	Scope             sql.NullString  `db:"scope"`
	ReviewNote        sql.NullString  `db:"review_note"`
	CreatedAt         int64           `db:"created_at"`
	UpdatedAt         int64           `db:"updated_at"`
}

func toRow(rec *core.Record) (*rowRecord, error) {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	reasons, err := json.Marshal(rec.Reasons)
	if err != nil {
		return nil, fmt.Errorf("marshal reasons: %w", err)
	}

	row := &rowRecord{
		ID:                rec.ID,
		ProviderMessageID: nullStr(rec.ProviderMessageID),
		Source:            nullStr(rec.Source),
		Listserv:          nullStr(rec.Listserv),
		FromEmail:         nullStr(rec.FromEmail),
		FromName:          nullStr(rec.FromName),
		ReplyTo:           nullStr(rec.ReplyTo),
		Subject:           rec.Subject,
		BodyText:          rec.BodyText,
		BodyHTML:          nullStr(rec.BodyHTML),
		SentAt:            rec.SentAt,
		Category:          string(rec.Category),
		TagsJSON:          string(tags),
		Confidence:        rec.Confidence,
		ReasonsJSON:       string(reasons),
		IsBump:            rec.IsBump,
		ThreadKey:         nullStr(rec.ThreadKey),
		CanonicalID:       nullStr(rec.CanonicalID),
		GrantStatus:       nullStr(rec.GrantStatus),
		Eligibility:       nullStr(rec.Eligibility),
		Scope:             nullStr(rec.Scope),
		ReviewNote:        nullStr(rec.ReviewNote),
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if rec.GrantDeadlineAt != 0 {
		row.GrantDeadlineAt = sql.NullInt64{Int64: rec.GrantDeadlineAt, Valid: true}
	}
	if len(rec.ToEmails) > 0 {
		b, err := json.Marshal(rec.ToEmails)
		if err != nil {
			return nil, fmt.Errorf("marshal to_emails: %w", err)
		}
		row.ToEmailsJSON = nullStr(string(b))
	}
	if len(rec.Dates) > 0 {
		b, err := json.Marshal(rec.Dates)
		if err != nil {
			return nil, fmt.Errorf("marshal dates: %w", err)
		}
		row.DatesJSON = nullStr(string(b))
	}
	if len(rec.Contacts) > 0 {
		b, err := json.Marshal(rec.Contacts)
		if err != nil {
			return nil, fmt.Errorf("marshal contacts: %w", err)
		}
		row.ContactsJSON = nullStr(string(b))
	}
	return row, nil
}

func (r *rowRecord) toRecord() (*core.Record, error) {
	rec := &core.Record{
		ID:                r.ID,
		ProviderMessageID: r.ProviderMessageID.String,
		Source:            r.Source.String,
		Listserv:          r.Listserv.String,
		FromEmail:         r.FromEmail.String,
		FromName:          r.FromName.String,
		ReplyTo:           r.ReplyTo.String,
		Subject:           r.Subject,
		BodyText:          r.BodyText,
		BodyHTML:          r.BodyHTML.String,
		SentAt:            r.SentAt,
		Category:          core.Category(r.Category),
		Confidence:        r.Confidence,
		IsBump:            r.IsBump,
		ThreadKey:         r.ThreadKey.String,
		CanonicalID:       r.CanonicalID.String,
		GrantStatus:       r.GrantStatus.String,
		GrantDeadlineAt:   r.GrantDeadlineAt.Int64,
		Eligibility:       r.Eligibility.String,
		Scope:             r.Scope.String,
		ReviewNote:        r.ReviewNote.String,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.TagsJSON), &rec.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(r.ReasonsJSON), &rec.Reasons); err != nil {
		return nil, fmt.Errorf("unmarshal reasons: %w", err)
	}
	if r.ToEmailsJSON.Valid {
		if err := json.Unmarshal([]byte(r.ToEmailsJSON.String), &rec.ToEmails); err != nil {
			return nil, fmt.Errorf("unmarshal to_emails: %w", err)
		}
	}
	if r.DatesJSON.Valid {
		if err := json.Unmarshal([]byte(r.DatesJSON.String), &rec.Dates); err != nil {
			return nil, fmt.Errorf("unmarshal dates: %w", err)
		}
	}
	if r.ContactsJSON.Valid {
		if err := json.Unmarshal([]byte(r.ContactsJSON.String), &rec.Contacts); err != nil {
			return nil, fmt.Errorf("unmarshal contacts: %w", err)
		}
	}
	return rec, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const recordColumns = `id, provider_message_id, source, listserv,
	from_email, from_name, reply_to, to_emails_json,
	subject, body_text, body_html, sent_at,
	category, tags_json, confidence, reasons_json,
	is_bump, thread_key, canonical_id,
	dates_json, contacts_json,
	grant_status, grant_deadline_at, eligibility, scope, review_note,
	created_at, updated_at`

const insertRecordSQL = `INSERT INTO emails (` + recordColumns + `) VALUES (
	:id, :provider_message_id, :source, :listserv,
	:from_email, :from_name, :reply_to, :to_emails_json,
	:subject, :body_text, :body_html, :sent_at,
	:category, :tags_json, :confidence, :reasons_json,
	:is_bump, :thread_key, :canonical_id,
	:dates_json, :contacts_json,
	:grant_status, :grant_deadline_at, :eligibility, :scope, :review_note,
	:created_at, :updated_at)`

// sqlStore holds the EmailStore logic shared by the SQLite and MySQL
// adapters. Placeholder style and upsert syntax are the only dialect
// differences, carried in the constructor-set fields.
type sqlStore struct {
	db            *sqlx.DB
	logger        *zap.Logger
	upsertOppSQL  string
	isDuplicateFn func(error) bool
}

// Get returns the record with the given id.
func (s *sqlStore) Get(ctx context.Context, id string) (*core.Record, error) {
	var row rowRecord
	err := s.db.GetContext(ctx, &row, `SELECT `+recordColumns+` FROM emails WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return row.toRecord()
}

// Insert stores a new record; a unique-key conflict maps to ErrDuplicate.
func (s *sqlStore) Insert(ctx context.Context, rec *core.Record) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.NamedExecContext(ctx, insertRecordSQL, row); err != nil {
		if s.isDuplicateFn(err) {
			return core.ErrDuplicate
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Touch bumps updated_at on an existing record.
func (s *sqlStore) Touch(ctx context.Context, id string, at int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE emails SET updated_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("touch record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// LatestByThreadKey returns the newest non-DO_NOT_CARE record in the
// thread within the window.
func (s *sqlStore) LatestByThreadKey(ctx context.Context, threadKey string, minSentAt, before int64) (*core.Record, error) {
	var row rowRecord
	err := s.db.GetContext(ctx, &row, `SELECT `+recordColumns+`
		FROM emails
		WHERE thread_key = ? AND sent_at >= ? AND sent_at < ? AND category != 'DO_NOT_CARE'
		ORDER BY sent_at DESC
		LIMIT 1`, threadKey, minSentAt, before)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest by thread key: %w", err)
	}
	return row.toRecord()
}

// Search returns records matching the query, newest first.
func (s *sqlStore) Search(ctx context.Context, q core.Query) ([]core.Record, error) {
	var where []string
	var args []any

	if !q.IncludeDoNotCare {
		where = append(where, `category != 'DO_NOT_CARE'`)
	}
	if q.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, q.Category)
	}
	if q.Since != 0 {
		where = append(where, `sent_at >= ?`)
		args = append(args, q.Since)
	}
	if q.Until != 0 {
		where = append(where, `sent_at <= ?`)
		args = append(args, q.Until)
	}
	if q.Text != "" {
		where = append(where, `(subject LIKE ? OR body_text LIKE ?)`)
		args = append(args, "%"+q.Text+"%", "%"+q.Text+"%")
	}
	if q.Tag != "" {
		where = append(where, `tags_json LIKE ?`)
		args = append(args, `%"`+q.Tag+`"%`)
	}

	query := `SELECT ` + recordColumns + ` FROM emails`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY sent_at DESC LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	var rows []rowRecord
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}

	out := make([]core.Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			s.logger.Warn("Skipping undecodable record", zap.String("id", rows[i].ID), zap.Error(err))
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

// DeleteOlderThan removes records sent before the cutoff.
func (s *sqlStore) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM emails WHERE sent_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// UpsertOpportunity inserts or overwrites the opportunity for its email.
func (s *sqlStore) UpsertOpportunity(ctx context.Context, opp *core.Opportunity) error {
	var deadline sql.NullInt64
	if opp.DeadlineAt != 0 {
		deadline = sql.NullInt64{Int64: opp.DeadlineAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.upsertOppSQL,
		opp.ID, opp.EmailID, opp.Title, opp.Status, deadline,
		opp.Eligibility, opp.Scope, opp.CreatedAt, opp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert opportunity: %w", err)
	}
	return nil
}

// GetOpportunity returns the opportunity owned by the given email id.
func (s *sqlStore) GetOpportunity(ctx context.Context, emailID string) (*core.Opportunity, error) {
	var opp struct {
		ID          string         `db:"id"`
		EmailID     string         `db:"email_id"`
		Title       string         `db:"title"`
		Status      string         `db:"status"`
		DeadlineAt  sql.NullInt64  `db:"deadline_at"`
		Eligibility sql.NullString `db:"eligibility"`
		Scope       sql.NullString `db:"scope"`
		CreatedAt   int64          `db:"created_at"`
		UpdatedAt   int64          `db:"updated_at"`
	}
	err := s.db.GetContext(ctx, &opp, `SELECT id, email_id, title, status, deadline_at,
		eligibility, scope, created_at, updated_at
		FROM opportunities WHERE email_id = ?`, emailID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	return &core.Opportunity{
		ID:          opp.ID,
		EmailID:     opp.EmailID,
		Title:       opp.Title,
		Status:      opp.Status,
		DeadlineAt:  opp.DeadlineAt.Int64,
		Eligibility: opp.Eligibility.String,
		Scope:       opp.Scope.String,
		CreatedAt:   opp.CreatedAt,
		UpdatedAt:   opp.UpdatedAt,
	}, nil
}

// PurgeOpportunities removes opportunities that are closed, past their
// deadline, or whose owning record is gone.
func (s *sqlStore) PurgeOpportunities(ctx context.Context, now int64) (int64, error) {
	var total int64
	statements := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM opportunities WHERE status = 'closed'`, nil},
		{`DELETE FROM opportunities WHERE deadline_at IS NOT NULL AND deadline_at < ?`, []any{now}},
		{`DELETE FROM opportunities WHERE email_id NOT IN (SELECT id FROM emails)`, nil},
	}
	for _, st := range statements {
		res, err := s.db.ExecContext(ctx, st.query, st.args...)
		if err != nil {
			return total, fmt.Errorf("purge opportunities: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}

// Close closes the database handle.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
