package tasks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/services"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/goccy/go-json"
)

type mockSource struct {
	mu      sync.Mutex
	bodies  map[string]string
	err     error
	gates   map[string]chan struct{}
	started chan string
	calls   int
	apiKey  string
}

func (m *mockSource) FetchByID(ctx context.Context, id, apiKey string) (json.RawMessage, error) {
	m.mu.Lock()
	m.calls++
	m.apiKey = apiKey
	gate := m.gates[id]
	body, err := m.bodies[id], m.err
	m.mu.Unlock()

	if m.started != nil {
		m.started <- id
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

const beatlesPayload = `{"id":"63de4613","eventDate":"23-08-1964","artist":{"name":"The Beatles"},
"venue":{"name":"Hollywood Bowl"},"sets":{"set":[{"song":[{"name":"Yesterday"},{"name":"Help! (live)"}]},
{"encore":1,"song":[{"name":"Twist and Shout"}]}]}}`

func TestImporter(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("imports by url", func(t *testing.T) {
		src := &mockSource{bodies: map[string]string{"63de4613": beatlesPayload}}
		im := NewImporter(src, "key", logger)
		progress := make(chan ProgressUpdate, 4)

		setlist, err := im.Import(ctx, "https://www.setlist.fm/setlist/the-beatles/1964/hollywood-bowl-hollywood-ca-63de4613.html", progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(setlist.Sets) != 2 || setlist.Sets[1][0].Name != "Twist and Shout" {
			t.Errorf("unexpected setlist %+v", setlist)
		}
		if src.apiKey != "key" {
			t.Errorf("expected api key forwarded, got %q", src.apiKey)
		}
		if len(progress) != 2 {
			t.Errorf("expected fetch and map updates, got %d", len(progress))
		}
	})

	t.Run("rejects invalid input before fetching", func(t *testing.T) {
		tc := []struct {
			name     string
			input    string
			sentinel error
		}{
			{name: "invalid", input: "not-a-valid-id!!!", sentinel: shared.ErrInvalidInput},
			{name: "spoofed host", input: "https://setlist.fm.evil.net/setlist/a/b-c1.html", sentinel: shared.ErrInvalidInput},
			{name: "too long", input: string(make([]byte, services.MaxInputLength+1)), sentinel: shared.ErrInputTooLong},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				src := &mockSource{}
				_, err := NewImporter(src, "key", logger).Import(ctx, tt.input, nil)
				if !errors.Is(err, tt.sentinel) {
					t.Errorf("expected %v, got %v", tt.sentinel, err)
				}
				if src.calls != 0 {
					t.Errorf("expected no fetch, got %d", src.calls)
				}
			})
		}
	})

	t.Run("propagates fetch errors", func(t *testing.T) {
		fetchErr := &services.FetchError{Status: http.StatusNotFound, Message: "not found", Err: shared.ErrUpstreamNotFound}
		src := &mockSource{err: fetchErr}

		_, err := NewImporter(src, "key", logger).Import(ctx, "63de4613", nil)
		fe, ok := services.AsFetchError(err)
		if !ok || fe.PublicStatus() != http.StatusNotFound {
			t.Errorf("expected 404 fetch error, got %v", err)
		}
	})

	t.Run("mapping failure", func(t *testing.T) {
		src := &mockSource{bodies: map[string]string{"abcd": `{"id":"abcd"}`}}
		_, err := NewImporter(src, "key", logger).Import(ctx, "abcd", nil)
		if !errors.Is(err, shared.ErrInvalidSetlist) {
			t.Errorf("expected ErrInvalidSetlist, got %v", err)
		}
	})

	t.Run("newer import supersedes older", func(t *testing.T) {
		gate := make(chan struct{})
		src := &mockSource{
			bodies:  map[string]string{"aaaa": beatlesPayload, "bbbb": beatlesPayload},
			gates:   map[string]chan struct{}{"aaaa": gate},
			started: make(chan string, 4),
		}
		im := NewImporter(src, "key", logger)

		first := make(chan error, 1)
		go func() {
			_, err := im.Import(ctx, "aaaa", nil)
			first <- err
		}()
		<-src.started

		setlist, err := im.Import(ctx, "bbbb", nil)
		if err != nil || setlist == nil {
			t.Fatalf("expected newer import to succeed, got %v", err)
		}

		close(gate)
		if err := <-first; !errors.Is(err, shared.ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := NewImporter(nil, "", logger).Import(ctx, "abcd", nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

type mockWriter struct {
	created   string
	playlist  string
	added     []string
	createErr error
	addErr    error
}

func (m *mockWriter) CreatePlaylist(ctx context.Context, name string) (*services.LibraryPlaylist, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = name
	return &services.LibraryPlaylist{ID: "p.1", Name: name}, nil
}

func (m *mockWriter) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	m.playlist = playlistID
	m.added = ids
	return m.addErr
}

func TestExporter(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)
	setlist := beatles()

	rows := []models.MatchRow{
		{Entry: models.SetlistEntry{Name: "Yesterday"}, Track: &models.CatalogTrack{ID: "1"}, Status: models.Matched},
		{Entry: models.SetlistEntry{Name: "Help!"}, Status: models.Skipped},
		{Entry: models.SetlistEntry{Name: "Yesterday"}, Track: &models.CatalogTrack{ID: "1"}, Status: models.Matched},
		{Entry: models.SetlistEntry{Name: "Twist and Shout"}, Track: &models.CatalogTrack{ID: "3"}, Status: models.Matched},
	}

	t.Run("creates and fills playlist", func(t *testing.T) {
		w := &mockWriter{}
		res, err := NewExporter(w, logger).Export(ctx, setlist, rows, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if w.created != "Setlist – The Beatles – 23-08-1964" {
			t.Errorf("unexpected playlist name %q", w.created)
		}
		if len(w.added) != 2 || w.added[0] != "1" || w.added[1] != "3" {
			t.Errorf("expected de-duplicated ids [1 3], got %v", w.added)
		}
		if res.TrackCount != 2 || res.Playlist.ID != "p.1" || w.playlist != "p.1" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("nothing matched", func(t *testing.T) {
		w := &mockWriter{}
		_, err := NewExporter(w, logger).Export(ctx, setlist, rows[1:2], nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if w.created != "" {
			t.Error("expected no playlist to be created")
		}
	})

	t.Run("add failure returns created playlist", func(t *testing.T) {
		w := &mockWriter{addErr: shared.ErrUpstreamUnavailable}
		res, err := NewExporter(w, logger).Export(ctx, setlist, rows, nil)
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected add error, got %v", err)
		}
		if res == nil || res.Playlist.ID != "p.1" || res.TrackCount != 0 {
			t.Errorf("expected partial result, got %+v", res)
		}
	})

	t.Run("create failure", func(t *testing.T) {
		w := &mockWriter{createErr: shared.ErrMissingCredentials}
		if _, err := NewExporter(w, logger).Export(ctx, setlist, rows, nil); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
