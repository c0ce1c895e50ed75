package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/setlistx/internal/formatter"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/desertthunder/setlistx/internal/tasks"
	"github.com/desertthunder/setlistx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Match imports a setlist, suggests a catalog track for each song and writes the report.
//
// With --playlist the matched tracks are also saved to a new library playlist. Progress and the
// summary are only printed when stdout is not carrying a machine-readable report.
func (r *Runner) Match(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("input")
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: setlist URL or id", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	outputPath := cmd.String("output")
	interactive := outputPath != "" || format == formatter.Text

	printer := func(ch <-chan tasks.ProgressUpdate) {
		for range ch {
		}
	}
	if interactive {
		printer = func(ch <-chan tasks.ProgressUpdate) { ui.PrintProgress(r.output, ch) }
	}
	progressCh, wait := r.progress(printer)

	setlist, err := r.importer().Import(ctx, input, progressCh)
	if err != nil {
		wait()
		return fmt.Errorf("failed to import setlist: %w", err)
	}

	matcher := r.matcher()
	snap, err := matcher.Run(ctx, setlist, progressCh)
	if err != nil {
		wait()
		return fmt.Errorf("matching stopped: %w", err)
	}
	if err := snap.Err(); err != nil {
		r.logger.Warn("matching finished with errors", "error", err)
	}

	if cmd.Bool("skip-unmatched") {
		skipped := matcher.SkipUnmatched()
		r.logger.Debug("skipped unmatched songs", "count", skipped)
		snap = matcher.Snapshot()
	}

	var result *tasks.ExportResult
	var exportErr error
	if cmd.Bool("playlist") {
		result, exportErr = r.exporter().Export(ctx, setlist, snap.Rows, progressCh)
	}
	wait()

	report := &formatter.Report{Setlist: setlist, Rows: snap.Rows, PartialFailure: snap.PartialFailure}
	if format != formatter.Text || outputPath != "" {
		if err := formatter.WriteExport(r.output, report, format, outputPath); err != nil {
			return err
		}
	}

	if interactive {
		r.writePlainln("%s", ui.Summary(report))
		if outputPath != "" {
			r.writePlain("Report written to %s\n", outputPath)
		}
		if result != nil {
			r.writePlaylist(result)
		}
	}

	if cmd.Bool("open") && result != nil && result.Playlist.URL != "" {
		if err := r.openURL(result.Playlist.URL); err != nil {
			r.logger.Warn("could not open playlist", "url", result.Playlist.URL, "error", err)
		}
	}

	switch {
	case exportErr != nil && result != nil:
		return fmt.Errorf("playlist %q was created but is incomplete: %w", result.Playlist.Name, exportErr)
	case exportErr != nil:
		return fmt.Errorf("failed to create playlist: %w", exportErr)
	}
	return nil
}

func (r *Runner) writePlaylist(result *tasks.ExportResult) {
	r.writePlain("\n")
	r.writePlainHeader("Playlist Created")
	r.writePlain("Name: %s\n", result.Playlist.Name)
	r.writePlain("Tracks: %d\n", result.TrackCount)
	if result.Playlist.URL != "" {
		r.writePlain("URL: %s\n", result.Playlist.URL)
	}
}
