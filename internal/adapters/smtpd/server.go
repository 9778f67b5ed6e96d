package smtpd

import (
	"bytes"
	"context"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/listserv-triage/internal/core"
	"github.com/mikey/listserv-triage/internal/whitelist"
	"go.uber.org/zap"
)

// Server accepts listserv mail over SMTP and feeds it into the
// ingestion pipeline. It never rejects accepted mail; messages from
// unlisted sources are dropped after accepting.
type Server struct {
	ingest     *core.IngestService
	allowlist  *whitelist.Checker
	logger     *zap.Logger
	listenAddr string
	domain     string
	server     *smtp.Server
}

// NewServer creates the SMTP ingestion listener.
func NewServer(ingest *core.IngestService, allowlist *whitelist.Checker, listenAddr, domain string, logger *zap.Logger) *Server {
	return &Server{
		ingest:     ingest,
		allowlist:  allowlist,
		logger:     logger,
		listenAddr: listenAddr,
		domain:     domain,
	}
}

// Start starts the SMTP listener in a goroutine.
func (s *Server) Start() error {
	s.server = smtp.NewServer(&smtpBackend{ingestor: s})

	s.server.Addr = s.listenAddr
	s.server.Domain = s.domain
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = 10 * 1024 * 1024 // 10MB
	s.server.MaxRecipients = 50
	s.server.AllowInsecureAuth = true

	s.logger.Info("SMTP listener starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				s.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP listener.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	ingestor *Server
}

func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		ingestor:   b.ingestor,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	ingestor   *Server
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

func (s *smtpSession) Logout() error {
	return nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data reads the message, converts it into an ingestion request and
// hands it to the pipeline. Parse and ingest failures are logged but
// never reported back to the sender; the listserv should not see
// bounces from a triage box.
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.ingestor.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.ingestor.logger.Error("Failed to parse email message", zap.Error(err))
		return nil
	}

	m := messageFromMail(msg, s.sender, s.recipients)

	if !s.ingestor.allowlist.IsAllowed(m.Listserv, m.FromEmail) {
		s.ingestor.logger.Debug("Dropping mail from unlisted source",
			zap.String("listserv", m.Listserv),
			zap.String("from", m.FromEmail))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.ingestor.ingest.IngestOne(ctx, m)
	if err != nil {
		s.ingestor.logger.Error("Failed to ingest message",
			zap.Error(err),
			zap.String("from", m.FromEmail),
			zap.String("subject", m.Subject))
		return nil
	}

	s.ingestor.logger.Info("Ingested SMTP message",
		zap.String("id", res.ID),
		zap.Bool("deduped", res.Deduped))
	return nil
}

// messageFromMail maps a parsed email onto the ingestion message shape.
// The listserv name comes from List-Id when present, else the sender
// domain.
func messageFromMail(msg *mail.Message, envelopeFrom string, recipients []string) *core.Message {
	m := &core.Message{
		Source:   "smtp",
		Subject:  msg.Header.Get("Subject"),
		ToEmails: recipients,
	}

	m.ProviderMessageID = strings.Trim(msg.Header.Get("Message-Id"), "<> ")

	from := msg.Header.Get("From")
	if addr, err := mail.ParseAddress(from); err == nil {
		m.FromEmail = addr.Address
		m.FromName = addr.Name
	} else {
		m.FromEmail = envelopeFrom
	}
	if m.FromEmail == "" {
		m.FromEmail = envelopeFrom
	}

	if replyTo, err := mail.ParseAddress(msg.Header.Get("Reply-To")); err == nil {
		m.ReplyTo = replyTo.Address
	}

	m.Listserv = listIDName(msg.Header.Get("List-Id"))
	if m.Listserv == "" {
		if parts := strings.Split(m.FromEmail, "@"); len(parts) == 2 {
			m.Listserv = parts[1]
		}
	}

	if date, err := msg.Header.Date(); err == nil {
		m.SentAt = date.Unix()
	} else {
		m.SentAt = time.Now().Unix()
	}

	text, html, err := extractParts(msg)
	if err == nil {
		m.BodyText = text
		m.BodyHTML = html
	}
	if m.BodyText == "" && m.BodyHTML != "" {
		m.BodyText = m.BodyHTML
	}

	return m
}

// listIDName extracts the address part of a List-Id header value, e.g.
// "Film Crew <crew.lists.example.edu>" -> "crew.lists.example.edu".
func listIDName(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if start := strings.LastIndex(v, "<"); start != -1 {
		if end := strings.Index(v[start:], ">"); end != -1 {
			return v[start+1 : start+end]
		}
	}
	return strings.Trim(v, "<>")
}
