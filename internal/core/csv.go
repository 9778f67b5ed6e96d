package core

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// importMaxRowAge: rows older than this are skipped entirely, not stored
// and not counted as failed.
const importMaxRowAge = 5 * 30 * 24 * time.Hour

// ErrEmptyCSV is returned when the CSV has no header or no data rows.
var ErrEmptyCSV = errors.New("csv needs header + at least 1 row")

// fieldAliases maps a canonical field name to the header spellings
// accepted for it, in priority order.
var fieldAliases = map[string][]string{
	"subject":             {"subject", "Subject"},
	"body_text":           {"body_text", "body", "text", "Body", "content"},
	"body_html":           {"body_html", "html", "BodyHTML"},
	"from_email":          {"from_email", "from", "From", "sender"},
	"from_name":           {"from_name", "FromName", "sender_name"},
	"reply_to":            {"reply_to", "ReplyTo"},
	"listserv":            {"listserv", "Listserv", "list", "list_id"},
	"source":              {"source", "Source"},
	"provider_message_id": {"provider_message_id", "message_id", "Message-Id", "message-id"},
	"sent_at":             {"sent_at", "SentAt", "date", "Date", "timestamp", "Timestamp"},
}

// csvRow is one data row keyed by header name.
type csvRow map[string]string

// pick returns the first non-blank value among the accepted aliases for
// the field.
func (r csvRow) pick(field string) string {
	for _, alias := range fieldAliases[field] {
		if v, ok := r[alias]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ImportCSV ingests a bulk CSV export sequentially, one fully persisted
// row at a time. Malformed rows and per-row storage failures are counted
// and skipped; rows older than the import horizon are skipped without
// counting as failures. Inserted+Deduped+Failed+SkippedOld == Total.
func (s *IngestService) ImportCSV(ctx context.Context, r io.Reader) (*ImportStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a row we cannot even tokenize; skip it and keep reading
			rows = append(rows, nil)
			continue
		}
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) < 2 {
		return nil, ErrEmptyCSV
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	dataRows := rows[1:]

	batchID := uuid.NewString()
	stats := &ImportStats{Total: len(dataRows)}
	oldestAllowed := s.now().Unix() - int64(importMaxRowAge.Seconds())

	for _, raw := range dataRows {
		if raw == nil {
			stats.Failed++
			continue
		}

		row := make(csvRow, len(header))
		for i, name := range header {
			if i < len(raw) {
				row[name] = raw[i]
			}
		}

		msg := messageFromRow(row, s.now)
		if msg.SentAt < oldestAllowed {
			stats.SkippedOld++
			continue
		}

		res, err := s.IngestOne(ctx, msg)
		if err != nil {
			s.logger.Warn("CSV row ingestion failed",
				zap.String("batch_id", batchID),
				zap.String("subject", msg.Subject),
				zap.Error(err))
			stats.Failed++
			continue
		}
		if res.Deduped {
			stats.Deduped++
		} else {
			stats.Inserted++
		}
	}

	s.logger.Info("CSV import complete",
		zap.String("batch_id", batchID),
		zap.Int("total", stats.Total),
		zap.Int("inserted", stats.Inserted),
		zap.Int("deduped", stats.Deduped),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped_old", stats.SkippedOld))

	return stats, nil
}

// messageFromRow maps a CSV row onto a Message, applying the same
// defaults the listserv export webhook always used.
func messageFromRow(row csvRow, now func() time.Time) *Message {
	subject := row.pick("subject")
	if subject == "" {
		subject = "(no subject)"
	}
	listserv := row.pick("listserv")
	if listserv == "" {
		listserv = "csv-import"
	}
	source := row.pick("source")
	if source == "" {
		source = "manual"
	}

	return &Message{
		ProviderMessageID: row.pick("provider_message_id"),
		Source:            source,
		Listserv:          listserv,
		FromEmail:         row.pick("from_email"),
		FromName:          row.pick("from_name"),
		ReplyTo:           row.pick("reply_to"),
		Subject:           subject,
		BodyText:          row.pick("body_text"),
		BodyHTML:          row.pick("body_html"),
		SentAt:            ParseSentAt(row.pick("sent_at"), now),
	}
}

var digitsRe = regexp.MustCompile(`^\d+$`)

// sentAtLayouts are tried in order for non-epoch timestamps.
var sentAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// ParseSentAt converts a CSV timestamp value to epoch seconds: bare
// digits are taken as an epoch, otherwise common date layouts are tried.
// Unparseable or missing values fall back to now.
func ParseSentAt(v string, now func() time.Time) int64 {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return now().Unix()
	}
	if digitsRe.MatchString(trimmed) {
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n
		}
	}
	for _, layout := range sentAtLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Unix()
		}
	}
	return now().Unix()
}

func isBlankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
