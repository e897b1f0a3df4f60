package driftbox

import (
	"regexp"
	"testing"
	"time"
)

func TestResolveExpirationThreshold(t *testing.T) {
	def := 60 * time.Second

	tests := map[string]struct {
		path      string
		overrides []PatternOverride
		want      time.Duration
	}{
		"no overrides": {
			path: "/foo/bar.mp4",
			want: def,
		},
		"single match": {
			path: "/tmp/scratch.log",
			overrides: []PatternOverride{
				{Pattern: regexp.MustCompile(`\.log$`), Duration: 5 * time.Second},
			},
			want: 5 * time.Second,
		},
		"no match falls back to default": {
			path: "/foo/bar.mp4",
			overrides: []PatternOverride{
				{Pattern: regexp.MustCompile(`\.log$`), Duration: 5 * time.Second},
			},
			want: def,
		},
		"ambiguous match falls back to default": {
			path: "/tmp/scratch.log",
			overrides: []PatternOverride{
				{Pattern: regexp.MustCompile(`\.log$`), Duration: 5 * time.Second},
				{Pattern: regexp.MustCompile(`^/tmp/`), Duration: 30 * time.Second},
			},
			want: def,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := resolveExpirationThreshold(tc.path, def, tc.overrides)
			if got != tc.want {
				t.Errorf("resolveExpirationThreshold(%q) = %s, want %s", tc.path, got, tc.want)
			}
		})
	}
}
