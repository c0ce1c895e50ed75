// package formatter renders match results to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/goccy/go-json"
)

// Format names an output format.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat accepts a format name, plus "md" and "txt" aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (text, markdown, csv, json)", shared.ErrInvalidFlag, name)
	}
}

// Report is a setlist with its match rows.
type Report struct {
	Setlist        *models.Setlist   `json:"setlist"`
	Rows           []models.MatchRow `json:"rows"`
	PartialFailure bool              `json:"partialFailure,omitempty"`
}

// Counts tallies rows by status.
func (r *Report) Counts() (matched, unmatched, skipped int) {
	for _, row := range r.Rows {
		switch row.Status {
		case models.Matched:
			matched++
		case models.Skipped:
			skipped++
		default:
			unmatched++
		}
	}
	return
}

func (r *Report) title() string {
	if r.Setlist == nil {
		return "Setlist"
	}
	return r.Setlist.PlaylistName()
}

// Render dispatches to the exporter for f.
func Render(r *Report, f Format) ([]byte, error) {
	switch f {
	case Markdown:
		return ExportToMarkdown(r)
	case CSV:
		return ExportToCSV(r)
	case JSON:
		return ExportToJSON(r, true)
	case Text, "":
		return ExportToText(r)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// ExportToCSV writes one record per row with columns: Position, Song, Artist, Info, Status, Catalog ID,
// Catalog Name, Catalog Artist
func ExportToCSV(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Song", "Artist", "Info", "Status", "Catalog ID", "Catalog Name", "Catalog Artist"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, row := range r.Rows {
		record := []string{
			strconv.Itoa(i + 1),
			row.Entry.Name,
			row.Entry.Artist,
			row.Entry.Info,
			row.Status.String(),
			"", "", "",
		}
		if row.Track != nil {
			record[5], record[6], record[7] = row.Track.ID, row.Track.Name, row.Track.ArtistName
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a heading, the show details, and a numbered list grouped by set.
func ExportToMarkdown(r *Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", r.title())
	if s := r.Setlist; s != nil {
		if s.Venue != "" {
			fmt.Fprintf(&buf, "**Venue**: %s\n", s.Venue)
		}
		if s.URL != "" {
			fmt.Fprintf(&buf, "**Source**: %s\n", s.URL)
		}
	}

	matched, unmatched, skipped := r.Counts()
	fmt.Fprintf(&buf, "**Matched**: %d of %d", matched, len(r.Rows))
	if unmatched+skipped > 0 {
		fmt.Fprintf(&buf, " (%d unmatched, %d skipped)", unmatched, skipped)
	}
	buf.WriteString("\n\n")
	if r.PartialFailure {
		buf.WriteString("> Some catalog searches failed; unmatched songs may be found on retry.\n\n")
	}

	buf.WriteString("## Tracks\n\n")
	for i, row := range r.Rows {
		fmt.Fprintf(&buf, "%d. %s", i+1, row.Entry.Name)
		if row.Entry.Info != "" {
			fmt.Fprintf(&buf, " _(%s)_", row.Entry.Info)
		}
		switch {
		case row.Status == models.Matched && row.Track != nil:
			fmt.Fprintf(&buf, " → %s - %s", row.Track.ArtistName, row.Track.Name)
		case row.Status == models.Skipped:
			buf.WriteString(" → ~~skipped~~")
		default:
			buf.WriteString(" → _no match_")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a report to plain text format
func ExportToText(r *Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", r.title())
	if r.Setlist != nil && r.Setlist.Venue != "" {
		fmt.Fprintf(&buf, "Venue: %s\n", r.Setlist.Venue)
	}
	matched, _, _ := r.Counts()
	fmt.Fprintf(&buf, "Matched: %d/%d\n\n", matched, len(r.Rows))

	for i, row := range r.Rows {
		target := "-"
		if row.Track != nil {
			target = fmt.Sprintf("%s - %s [%s]", row.Track.ArtistName, row.Track.Name, row.Track.ID)
		}
		fmt.Fprintf(&buf, "%d. [%s] %s => %s\n", i+1, row.Status, row.Entry.Name, target)
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes the whole report.
func ExportToJSON(r *Report, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}

// WriteExport renders r in format f to path, or to w when path is empty.
func WriteExport(w io.Writer, r *Report, f Format, path string) error {
	data, err := Render(r, f)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", f, err)
	}

	if path == "" {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return nil
}
