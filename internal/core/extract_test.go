package core

import (
	"testing"
	"time"
)

func TestExtractDates(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantISO []string
	}{
		{
			name:    "bare iso date defaults to midnight utc",
			text:    "submit by 2026-03-01 please",
			wantISO: []string{"2026-03-01T00:00:00Z"},
		},
		{
			name:    "iso date with time and no zone",
			text:    "screening starts 2026-03-01 17:00",
			wantISO: []string{"2026-03-01T17:00Z"},
		},
		{
			name:    "iso date with explicit zone",
			text:    "due 2026-03-01T09:30:00-05:00",
			wantISO: []string{"2026-03-01T09:30:00-05:00"},
		},
		{
			name:    "long form date is end of day",
			text:    "applications close March 1st, 2026",
			wantISO: []string{"2026-03-01T23:59:59Z"},
		},
		{
			name:    "abbreviated month",
			text:    "due Feb 28 2026",
			wantISO: []string{"2026-02-28T23:59:59Z"},
		},
		{
			name:    "no dates",
			text:    "no dates here at all",
			wantISO: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDates(tt.text)
			if len(got) != len(tt.wantISO) {
				t.Fatalf("ExtractDates(%q) = %v, want %d candidates", tt.text, got, len(tt.wantISO))
			}
			for i, want := range tt.wantISO {
				if got[i].ISO != want {
					t.Errorf("candidate %d ISO = %q, want %q", i, got[i].ISO, want)
				}
				if got[i].Text == "" {
					t.Errorf("candidate %d has empty source text", i)
				}
			}
		})
	}
}

func TestParseISOToEpoch(t *testing.T) {
	tests := []struct {
		iso  string
		want int64
	}{
		{"2026-03-01T00:00:00Z", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()},
		{"2026-03-01T17:00Z", time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC).Unix()},
		{"", 0},
		{"not a date", 0},
	}

	for _, tt := range tests {
		if got := ParseISOToEpoch(tt.iso); got != tt.want {
			t.Errorf("ParseISOToEpoch(%q) = %d, want %d", tt.iso, got, tt.want)
		}
	}
}

func TestExtractContacts(t *testing.T) {
	text := "Email jane@school.edu or visit https://example.edu/form for details. Call 212-555-1234."

	got := ExtractContacts(text)
	want := []Contact{
		{Type: ContactEmail, Value: "jane@school.edu"},
		{Type: ContactURL, Value: "https://example.edu/form"},
		{Type: ContactPhone, Value: "212-555-1234"},
	}

	if len(got) != len(want) {
		t.Fatalf("ExtractContacts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("contact %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestExtractContactsEmpty(t *testing.T) {
	if got := ExtractContacts("nothing to see"); len(got) != 0 {
		t.Errorf("ExtractContacts = %v, want none", got)
	}
}
