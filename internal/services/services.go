// package services implements the outbound clients: setlist.fm, the Apple Music catalog and library, and
// the developer token endpoint.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/goccy/go-json"
)

// SetlistSource fetches a raw setlist payload by id.
type SetlistSource interface {
	FetchByID(ctx context.Context, id, apiKey string) (json.RawMessage, error)
}

// Catalog searches the streaming catalog.
type Catalog interface {
	Search(ctx context.Context, term string, limit int) ([]models.CatalogTrack, error)
}

// PlaylistWriter creates library playlists and fills them.
type PlaylistWriter interface {
	CreatePlaylist(ctx context.Context, name string) (*LibraryPlaylist, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// LibraryPlaylist is a playlist created in the user's library.
type LibraryPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// FetchError is the typed failure returned by upstream calls.
//
// Status is the upstream HTTP status, or the status synthesized for transport and body failures.
type FetchError struct {
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("upstream request failed (status %d): %s", e.Status, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PublicStatus maps the upstream status onto the one surfaced to our own callers.
func (e *FetchError) PublicStatus() int {
	return PublicStatus(e.Status)
}

// PublicStatus maps 404 to 404, 5xx to 503, and 429 to 429. Everything else passes through.
func PublicStatus(upstream int) int {
	switch {
	case upstream == http.StatusNotFound:
		return http.StatusNotFound
	case upstream == http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case upstream >= 500:
		return http.StatusServiceUnavailable
	default:
		return upstream
	}
}

// AsFetchError unwraps err into a *FetchError when it carries one.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

func sentinelFor(status int) error {
	switch {
	case status == http.StatusNotFound:
		return shared.ErrUpstreamNotFound
	case status == http.StatusTooManyRequests:
		return shared.ErrUpstreamRateLimited
	case status >= 500:
		return shared.ErrUpstreamUnavailable
	default:
		return shared.ErrAPIRequest
	}
}

// isJSONObject reports whether body decodes to a non-null JSON object.
func isJSONObject(body []byte) bool {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return false
	}
	return m != nil
}
