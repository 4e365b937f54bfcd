package filter

import (
	"testing"
)

func TestQueryFilter_Match(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		location  string
		title     string
		jobLoc    string
		wantMatch bool
	}{
		{
			name:      "both match",
			role:      "engineer",
			location:  "india",
			title:     "Software Engineer II",
			jobLoc:    "Bangalore, India",
			wantMatch: true,
		},
		{
			name:      "case insensitive",
			role:      "BACKEND",
			location:  "Chennai",
			title:     "Senior backend developer",
			jobLoc:    "CHENNAI",
			wantMatch: true,
		},
		{
			name:      "title mismatch",
			role:      "engineer",
			location:  "",
			title:     "Product Designer",
			jobLoc:    "India",
			wantMatch: false,
		},
		{
			name:      "location mismatch",
			role:      "engineer",
			location:  "india",
			title:     "Software Engineer",
			jobLoc:    "Seattle, WA",
			wantMatch: false,
		},
		{
			name:      "empty query matches all",
			title:     "Anything",
			jobLoc:    "",
			wantMatch: true,
		},
		{
			name:      "location required but missing",
			location:  "india",
			title:     "Software Engineer",
			jobLoc:    "",
			wantMatch: false,
		},
		{
			name:      "whitespace is trimmed",
			role:      "  developer ",
			title:     "Java Developer",
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.role, tt.location).Match(tt.title, tt.jobLoc)
			if got != tt.wantMatch {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.title, tt.jobLoc, got, tt.wantMatch)
			}
		})
	}
}

func TestQueryFilter_BlankQueryPassesEverything(t *testing.T) {
	f := New(" ", "")
	for _, title := range []string{"", "Developer", "Chef"} {
		if !f.Match(title, "Anywhere") {
			t.Errorf("Match(%q) = false, want true for blank query", title)
		}
	}
}
