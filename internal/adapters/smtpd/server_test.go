package smtpd

import (
	"net/mail"
	"strings"
	"testing"
)

func TestMessageFromMail(t *testing.T) {
	raw := "From: Jane Doe <jane@school.edu>\r\n" +
		"To: film-l@lists.school.edu\r\n" +
		"Subject: Crew call for thesis film\r\n" +
		"Message-Id: <abc123@lists.school.edu>\r\n" +
		"List-Id: Film Crew <film-l.lists.school.edu>\r\n" +
		"Date: Mon, 02 Feb 2026 10:00:00 -0500\r\n" +
		"\r\n" +
		"We need a gaffer.\r\n"

	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	m := messageFromMail(msg, "bounce@lists.school.edu", []string{"me@school.edu"})

	if m.FromEmail != "jane@school.edu" {
		t.Errorf("from = %q", m.FromEmail)
	}
	if m.FromName != "Jane Doe" {
		t.Errorf("from name = %q", m.FromName)
	}
	if m.Subject != "Crew call for thesis film" {
		t.Errorf("subject = %q", m.Subject)
	}
	if m.ProviderMessageID != "abc123@lists.school.edu" {
		t.Errorf("provider message id = %q", m.ProviderMessageID)
	}
	if m.Listserv != "film-l.lists.school.edu" {
		t.Errorf("listserv = %q", m.Listserv)
	}
	if m.SentAt == 0 {
		t.Error("sent at not parsed from Date header")
	}
	if !strings.Contains(m.BodyText, "We need a gaffer.") {
		t.Errorf("body = %q", m.BodyText)
	}
}

func TestMessageFromMailFallbacks(t *testing.T) {
	raw := "Subject: hello\r\n" +
		"\r\n" +
		"body\r\n"

	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	m := messageFromMail(msg, "sender@dept.school.edu", nil)

	if m.FromEmail != "sender@dept.school.edu" {
		t.Errorf("from = %q, want envelope sender fallback", m.FromEmail)
	}
	if m.Listserv != "dept.school.edu" {
		t.Errorf("listserv = %q, want sender domain fallback", m.Listserv)
	}
	if m.SentAt == 0 {
		t.Error("sent at should fall back to now")
	}
}

func TestListIDName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Film Crew <film-l.lists.school.edu>", "film-l.lists.school.edu"},
		{"<film-l.lists.school.edu>", "film-l.lists.school.edu"},
		{"film-l.lists.school.edu", "film-l.lists.school.edu"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := listIDName(tt.in); got != tt.want {
			t.Errorf("listIDName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractPartsMultipart(t *testing.T) {
	raw := "From: a@b.edu\r\n" +
		"Content-Type: multipart/alternative; boundary=\"sep\"\r\n" +
		"\r\n" +
		"--sep\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain body\r\n" +
		"--sep\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html body</p>\r\n" +
		"--sep--\r\n"

	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	text, html, err := extractParts(msg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "plain body") {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(html, "html body") {
		t.Errorf("html = %q", html)
	}
}
