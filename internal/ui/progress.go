package ui

import (
	"fmt"
	"io"

	"github.com/desertthunder/setlistx/internal/formatter"
	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/tasks"
)

// PhaseLabel is the heading shown for a progress phase.
func PhaseLabel(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.FetchSetlist:
		return "Fetching setlist..."
	case tasks.MapSetlist:
		return "Reading setlist..."
	case tasks.SearchTracks:
		return fmt.Sprintf("Searching tracks (%d/%d)", u.Step, u.Total)
	case tasks.CreatePlaylist:
		return "Creating playlist on Apple Music..."
	case tasks.AddTracks:
		return "Adding tracks..."
	default:
		return "Processing..."
	}
}

// PrintProgress writes each update as one line until progress is closed.
//
// Match results are coloured by status; other updates print their message.
func PrintProgress(w io.Writer, progress <-chan tasks.ProgressUpdate) {
	for u := range progress {
		if row, ok := u.Data.(models.MatchRow); ok {
			fmt.Fprintf(w, "%s %s\n", styles.Status(row.Status), u.Message)
			continue
		}
		fmt.Fprintln(w, styles.Help(u.Message))
	}
}

// Summary renders the closing block for a match report.
func Summary(r *formatter.Report) string {
	matched, unmatched, skipped := r.Counts()
	title := styles.Success("✓ Matching Complete!")
	if matched == 0 {
		title = styles.Error("✗ No tracks matched")
	}

	out := fmt.Sprintf("%s\n\nMatched: %d/%d", title, matched, len(r.Rows))
	if skipped > 0 {
		out += fmt.Sprintf("  Skipped: %d", skipped)
	}
	if unmatched > 0 {
		out += "\n\n" + styles.Warning(fmt.Sprintf("No match for %d tracks:", unmatched))
		for _, row := range r.Rows {
			if row.Status == models.Unmatched {
				out += fmt.Sprintf("\n  • %s - %s", row.Entry.Artist, row.Entry.Name)
			}
		}
	}
	if r.PartialFailure {
		out += "\n\n" + styles.Warning("Some catalog searches failed. Re-run the command to retry them.")
	}
	return out
}
