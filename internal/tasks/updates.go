package tasks

import (
	"fmt"

	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or server layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchSetlist Phase = iota
	MapSetlist
	SearchTracks
	CreatePlaylist
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case FetchSetlist:
		return "fetch_setlist"
	case MapSetlist:
		return "map_setlist"
	case SearchTracks:
		return "search_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

// sendProgress sends without blocking; a full or nil channel drops the update.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchSetlistUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSetlist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching setlist %s from setlist.fm...", id),
	}
}

func mappedSetlistUpdate(setlist *models.Setlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MapSetlist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found setlist: %s (%d songs)", setlist.PlaylistName(), len(setlist.Entries())),
		Data:    setlist,
	}
}

func searchTrackUpdate(step, total int, entry *models.SetlistEntry) ProgressUpdate {
	if entry == nil {
		return ProgressUpdate{
			Phase:   SearchTracks,
			Step:    step,
			Total:   total,
			Message: "Searching for tracks on Apple Music...",
		}
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, entry.Artist, entry.Name),
	}
}

func matchedTrackUpdate(step, total int, row models.MatchRow) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✗ %s", step, total, row.Entry.Name)
	if row.Track != nil {
		msg = fmt.Sprintf("[%d/%d] ✓ %s → %s", step, total, row.Entry.Name, row.Track.Name)
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    row,
	}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q on Apple Music...", name),
	}
}

func addTracksUpdate(pl *services.LibraryPlaylist, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks to %s (ID: %s)", count, pl.Name, pl.ID),
		Data:    pl,
	}
}
