package whitelist

import "testing"

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		listservs []string
		listserv  string
		from      string
		want      bool
	}{
		{"empty list accepts all", nil, "anything", "a@b.edu", true},
		{"listserv name match", []string{"film-l"}, "film-l", "a@b.edu", true},
		{"listserv name mismatch", []string{"film-l"}, "other-l", "a@b.edu", false},
		{"case and whitespace normalized", []string{" Film-L "}, "film-l", "", true},
		{"sender domain fallback", []string{"lists.example.edu"}, "", "bot@lists.example.edu", true},
		{"sender domain mismatch", []string{"lists.example.edu"}, "", "bot@other.edu", false},
		{"malformed sender ignored", []string{"lists.example.edu"}, "", "not-an-address", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(tt.listservs, nil)
			if got := c.IsAllowed(tt.listserv, tt.from); got != tt.want {
				t.Errorf("IsAllowed(%q, %q) = %v, want %v", tt.listserv, tt.from, got, tt.want)
			}
		})
	}
}
