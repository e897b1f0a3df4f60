package diagnostics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/driftbox/driftbox"
)

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, nil); err != nil {
		t.Fatalf("Render: %s", err)
	}
	if !strings.Contains(buf.String(), "0 entries") {
		t.Fatalf("expected an empty-state count, got:\n%s", buf.String())
	}
}

func TestRender_EscapesPath(t *testing.T) {
	rows := []driftbox.SnapshotRow{
		{
			Path:        "/<script>alert(1)</script>",
			ContentType: "text/plain",
			Length:      3,
			AccessCount: 1,
			ExpiresAt:   time.Unix(0, 0).UTC(),
			Generation:  "gen-1",
		},
	}

	var buf bytes.Buffer
	if err := Render(&buf, rows); err != nil {
		t.Fatalf("Render: %s", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Fatal("expected the path to be HTML-escaped")
	}
	if !strings.Contains(buf.String(), "1 entry") {
		t.Fatalf("expected a singular entry count, got:\n%s", buf.String())
	}
}
