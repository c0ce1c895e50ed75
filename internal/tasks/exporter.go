package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/services"
	"github.com/desertthunder/setlistx/internal/shared"
)

// ExportResult describes a created playlist.
type ExportResult struct {
	Playlist   *services.LibraryPlaylist
	TrackIDs   []string
	TrackCount int
}

// Exporter writes matched rows to a library playlist.
type Exporter struct {
	writer services.PlaylistWriter
	logger *log.Logger
}

func NewExporter(writer services.PlaylistWriter, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{writer: writer, logger: shared.WithLogger(logger, "component", "exporter")}
}

// Export creates the playlist for setlist and adds the matched tracks.
//
// When adding tracks fails the created playlist is still returned alongside the error.
func (e *Exporter) Export(ctx context.Context, setlist *models.Setlist, rows []models.MatchRow, progress chan<- ProgressUpdate) (*ExportResult, error) {
	if e.writer == nil {
		return nil, fmt.Errorf("%w: playlist writer not initialized", shared.ErrServiceUnavailable)
	}
	if setlist == nil {
		return nil, fmt.Errorf("%w: setlist", shared.ErrMissingArgument)
	}

	ids := models.MatchedTrackIDs(rows)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no tracks were matched - cannot create empty playlist", shared.ErrInvalidArgument)
	}

	name := setlist.PlaylistName()
	sendProgress(progress, createPlaylistUpdate(name))
	pl, err := e.writer.CreatePlaylist(ctx, name)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{Playlist: pl, TrackIDs: ids}
	sendProgress(progress, addTracksUpdate(pl, len(ids)))
	if err := e.writer.AddTracks(ctx, pl.ID, ids); err != nil {
		e.logger.Warn("playlist created but adding tracks failed", "playlist", pl.ID, "error", err)
		return result, err
	}

	result.TrackCount = len(ids)
	e.logger.Info("playlist exported", "playlist", pl.ID, "tracks", len(ids))
	return result, nil
}
