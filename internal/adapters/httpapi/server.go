package httpapi

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mikey/listserv-triage/internal/core"
	"go.uber.org/zap"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Server exposes the read API and the CSV webhook over HTTP.
type Server struct {
	app           *fiber.App
	store         core.EmailStore
	ingest        *core.IngestService
	listenAddress string
	webhookSecret string
	logger        *zap.Logger
}

// NewServer builds the HTTP transport. The webhook rejects every write
// until a non-empty webhookSecret is configured.
func NewServer(store core.EmailStore, ingest *core.IngestService, listenAddress, webhookSecret string, logger *zap.Logger) *Server {
	s := &Server{
		store:         store,
		ingest:        ingest,
		listenAddress: listenAddress,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", s.handleHealth)
	app.Get("/api/emails", s.handleListEmails)
	app.Post("/webhook/email", s.handleWebhook)
	s.app = app
	return s
}

// Start begins serving in the background.
func (s *Server) Start() error {
	go func() {
		if err := s.app.Listen(s.listenAddress); err != nil {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("HTTP server listening", zap.String("address", s.listenAddress))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// emailRow is the wire shape of one record in the listing response.
type emailRow struct {
	ID          string               `json:"id"`
	Listserv    string               `json:"listserv,omitempty"`
	FromEmail   string               `json:"from_email,omitempty"`
	FromName    string               `json:"from_name,omitempty"`
	Subject     string               `json:"subject"`
	SentAt      int64                `json:"sent_at"`
	Category    string               `json:"category"`
	Tags        []string             `json:"tags"`
	Confidence  float64              `json:"confidence"`
	Reasons     []string             `json:"reasons"`
	IsBump      bool                 `json:"is_bump"`
	ThreadKey   string               `json:"thread_key,omitempty"`
	CanonicalID string               `json:"canonical_id,omitempty"`
	Dates       []core.DateCandidate `json:"dates,omitempty"`
	Contacts    []core.Contact       `json:"contacts,omitempty"`
	GrantStatus string               `json:"grant_status,omitempty"`
	ReviewNote  string               `json:"review_note,omitempty"`
}

func (s *Server) handleListEmails(c *fiber.Ctx) error {
	q := core.Query{
		Category:         c.Query("category"),
		Tag:              c.Query("tag"),
		Text:             c.Query("q"),
		IncludeDoNotCare: c.Query("includeDoNotCare") == "true",
		Limit:            defaultLimit,
	}

	if v := c.Query("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "since must be epoch seconds")
		}
		q.Since = n
	}
	if v := c.Query("until"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "until must be epoch seconds")
		}
		q.Until = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return badRequest(c, "limit must be a positive integer")
		}
		if n > maxLimit {
			n = maxLimit
		}
		q.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest(c, "offset must be a non-negative integer")
		}
		q.Offset = n
	}

	records, err := s.store.Search(c.Context(), q)
	if err != nil {
		s.logger.Error("Search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "internal error"})
	}

	rows := make([]emailRow, 0, len(records))
	for i := range records {
		rows = append(rows, toEmailRow(&records[i]))
	}
	return c.JSON(fiber.Map{
		"ok":     true,
		"rows":   rows,
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

func toEmailRow(rec *core.Record) emailRow {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	reasons := rec.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return emailRow{
		ID:          rec.ID,
		Listserv:    rec.Listserv,
		FromEmail:   rec.FromEmail,
		FromName:    rec.FromName,
		Subject:     rec.Subject,
		SentAt:      rec.SentAt,
		Category:    string(rec.Category),
		Tags:        tags,
		Confidence:  rec.Confidence,
		Reasons:     reasons,
		IsBump:      rec.IsBump,
		ThreadKey:   rec.ThreadKey,
		CanonicalID: rec.CanonicalID,
		Dates:       rec.Dates,
		Contacts:    rec.Contacts,
		GrantStatus: rec.GrantStatus,
		ReviewNote:  rec.ReviewNote,
	}
}

func (s *Server) handleWebhook(c *fiber.Ctx) error {
	if s.webhookSecret == "" || c.Get("X-Webhook-Secret") != s.webhookSecret {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": "unauthorized"})
	}

	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))
	if !strings.Contains(contentType, "text/csv") && !strings.Contains(contentType, "application/octet-stream") {
		return badRequest(c, "content type must be text/csv or application/octet-stream")
	}

	stats, err := s.ingest.ImportCSV(context.Background(), bytes.NewReader(c.Body()))
	if err != nil {
		if errors.Is(err, core.ErrEmptyCSV) {
			return badRequest(c, core.ErrEmptyCSV.Error())
		}
		s.logger.Error("CSV import failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "internal error"})
	}

	return c.JSON(fiber.Map{
		"ok":         true,
		"mode":       "csv_via_webhook",
		"inserted":   stats.Inserted,
		"deduped":    stats.Deduped,
		"failed":     stats.Failed,
		"skippedOld": stats.SkippedOld,
		"total":      stats.Total,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": msg})
}
