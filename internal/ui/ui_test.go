package ui

import (
	"strings"
	"testing"

	"github.com/desertthunder/setlistx/internal/formatter"
	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/tasks"
)

func TestPalette(t *testing.T) {
	tc := []struct {
		status models.MatchStatus
		want   string
	}{
		{models.Matched, "✓ matched"},
		{models.Unmatched, "✗ unmatched"},
		{models.Skipped, "– skipped"},
	}
	for _, tt := range tc {
		t.Run(tt.want, func(t *testing.T) {
			if got := Styles().Status(tt.status); !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
		})
	}
}

func TestPhaseLabel(t *testing.T) {
	got := PhaseLabel(tasks.ProgressUpdate{Phase: tasks.SearchTracks, Step: 2, Total: 5})
	if got != "Searching tracks (2/5)" {
		t.Errorf("unexpected label %q", got)
	}
	if PhaseLabel(tasks.ProgressUpdate{Phase: tasks.Phase(99)}) != "Processing..." {
		t.Error("expected fallback label")
	}
}

func TestPrintProgress(t *testing.T) {
	progress := make(chan tasks.ProgressUpdate, 2)
	progress <- tasks.ProgressUpdate{Phase: tasks.FetchSetlist, Message: "Fetching setlist abcd from setlist.fm..."}
	progress <- tasks.ProgressUpdate{
		Phase:   tasks.SearchTracks,
		Message: "[1/1] ✓ Yesterday → Yesterday",
		Data:    models.MatchRow{Status: models.Matched},
	}
	close(progress)

	var sb strings.Builder
	PrintProgress(&sb, progress)

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", sb.String())
	}
	if !strings.Contains(lines[1], "matched") || !strings.Contains(lines[1], "Yesterday") {
		t.Errorf("expected status-prefixed row, got %q", lines[1])
	}
}

func TestSummary(t *testing.T) {
	r := &formatter.Report{
		Rows: []models.MatchRow{
			{Entry: models.SetlistEntry{Name: "Yesterday", Artist: "The Beatles"}, Status: models.Matched},
			{Entry: models.SetlistEntry{Name: "Help!", Artist: "The Beatles"}, Status: models.Unmatched},
		},
		PartialFailure: true,
	}

	out := Summary(r)
	for _, want := range []string{"Matching Complete", "Matched: 1/2", "The Beatles - Help!", "Re-run"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	if out := Summary(&formatter.Report{}); !strings.Contains(out, "No tracks matched") {
		t.Errorf("expected no-match title, got %q", out)
	}
}
