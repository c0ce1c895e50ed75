package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistx/internal/cache"
	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/desertthunder/setlistx/internal/telemetry"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

const (
	DefaultAppleMusicURL = "https://api.music.apple.com"
	DefaultStorefront    = "us"
	catalogUpstream      = "catalog"
	userTokenHeader      = "Music-User-Token"
)

// AppleMusicOpts configures an [AppleMusicService].
type AppleMusicOpts struct {
	BaseURL     string
	Storefront  string
	TokenSource oauth2.TokenSource // developer token, sent as a bearer token
	UserToken   string             // required for library writes only
	HTTPClient  *http.Client       // base client wrapped by the token transport
	Cache       *cache.Cache[[]models.CatalogTrack]
	CacheTTL    time.Duration
	Logger      *log.Logger
	Metrics     *telemetry.Metrics
}

// AppleMusicService implements [Catalog] and [PlaylistWriter] against the Apple Music API.
type AppleMusicService struct {
	baseURL    string
	storefront string
	hasSource  bool
	userToken  string
	httpClient *http.Client
	cache      *cache.Cache[[]models.CatalogTrack]
	ttl        time.Duration
	logger     *log.Logger
	metrics    *telemetry.Metrics
}

// NewAppleMusicService creates a catalog client. Search results are cached for five minutes in a
// 500-entry cache unless overridden.
func NewAppleMusicService(opts AppleMusicOpts) *AppleMusicService {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAppleMusicURL
	}
	if opts.Storefront == "" {
		opts.Storefront = DefaultStorefront
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Cache == nil {
		opts.Cache = cache.New[[]models.CatalogTrack](500)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	client := &http.Client{
		Timeout: opts.HTTPClient.Timeout,
		Transport: &oauth2.Transport{
			Source: opts.TokenSource,
			Base:   opts.HTTPClient.Transport,
		},
	}

	return &AppleMusicService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		storefront: opts.Storefront,
		hasSource:  opts.TokenSource != nil,
		userToken:  opts.UserToken,
		httpClient: client,
		cache:      opts.Cache,
		ttl:        opts.CacheTTL,
		logger:     shared.WithLogger(opts.Logger, "service", catalogUpstream),
		metrics:    opts.Metrics,
	}
}

type apiError struct {
	Detail string `json:"detail"`
	Status string `json:"status"`
}

type catalogSearchResponse struct {
	Results struct {
		Songs struct {
			Data []struct {
				ID         string `json:"id"`
				Attributes struct {
					Name       string `json:"name"`
					ArtistName string `json:"artistName"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"songs"`
	} `json:"results"`
	Errors []apiError `json:"errors"`
}

type libraryResource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes *struct {
		Name string `json:"name,omitempty"`
		URL  string `json:"url,omitempty"`
	} `json:"attributes,omitempty"`
}

type libraryResponse struct {
	Data   []libraryResource `json:"data"`
	Errors []apiError        `json:"errors"`
}

// Search returns up to limit songs matching term in the configured storefront.
//
// A non-empty errors array in the response is a failure regardless of HTTP status.
func (s *AppleMusicService) Search(ctx context.Context, term string, limit int) ([]models.CatalogTrack, error) {
	key := fmt.Sprintf("%s:%s:%d", s.storefront, term, limit)
	if tracks, ok := s.cache.Get(key); ok {
		s.metrics.CacheLookup(catalogUpstream, true)
		return tracks, nil
	}
	s.metrics.CacheLookup(catalogUpstream, false)

	params := url.Values{}
	params.Set("term", term)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("types", "songs")
	endpoint := fmt.Sprintf("%s/v1/catalog/%s/search?%s", s.baseURL, url.PathEscape(s.storefront), params.Encode())

	status, body, err := s.doRequest(ctx, http.MethodGet, endpoint, nil, false)
	if err != nil {
		return nil, err
	}

	var resp catalogSearchResponse
	decodeErr := json.Unmarshal(body, &resp)
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrCatalogSearch, joinDetails(resp.Errors))
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Status: status, Message: upstreamMessage(status, body), Err: sentinelFor(status)}
	}
	if decodeErr != nil {
		return nil, &FetchError{
			Status:  http.StatusBadGateway,
			Message: shared.ErrInvalidUpstreamBody.Error(),
			Err:     fmt.Errorf("%w: %v", shared.ErrInvalidUpstreamBody, decodeErr),
		}
	}

	tracks := make([]models.CatalogTrack, 0, len(resp.Results.Songs.Data))
	for _, song := range resp.Results.Songs.Data {
		tracks = append(tracks, models.CatalogTrack{
			ID:         song.ID,
			Name:       song.Attributes.Name,
			ArtistName: song.Attributes.ArtistName,
		})
	}
	s.cache.Set(key, tracks, s.ttl)
	return tracks, nil
}

// CreatePlaylist creates an empty library playlist.
func (s *AppleMusicService) CreatePlaylist(ctx context.Context, name string) (*LibraryPlaylist, error) {
	payload := map[string]any{
		"data": []map[string]any{
			{"type": "playlists", "attributes": map[string]string{"name": name}},
		},
	}

	resp, err := s.library(ctx, "/v1/me/library/playlists", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].ID == "" {
		return nil, fmt.Errorf("failed to create playlist: %w", shared.ErrInvalidUpstreamBody)
	}

	created := &LibraryPlaylist{ID: resp.Data[0].ID, Name: name}
	if attrs := resp.Data[0].Attributes; attrs != nil {
		created.URL = attrs.URL
	}
	return created, nil
}

// AddTracks appends songs to a library playlist in the given order. Blank ids are rejected.
func (s *AppleMusicService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	if strings.TrimSpace(playlistID) == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	data := make([]libraryResource, 0, len(trackIDs))
	for _, id := range trackIDs {
		if id = strings.TrimSpace(id); id != "" {
			data = append(data, libraryResource{ID: id, Type: "songs"})
		}
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: no valid song ids", shared.ErrInvalidArgument)
	}

	path := fmt.Sprintf("/v1/me/library/playlists/%s/tracks", url.PathEscape(playlistID))
	if _, err := s.library(ctx, path, map[string]any{"data": data}); err != nil {
		return fmt.Errorf("adding tracks to playlist failed: %w", err)
	}
	if dropped := len(trackIDs) - len(data); dropped > 0 {
		return fmt.Errorf("%w: %d of %d ids were blank and skipped", shared.ErrInvalidArgument, dropped, len(trackIDs))
	}
	return nil
}

func (s *AppleMusicService) library(ctx context.Context, path string, payload any) (*libraryResponse, error) {
	status, body, err := s.doRequest(ctx, http.MethodPost, s.baseURL+path, payload, true)
	if err != nil {
		return nil, err
	}

	var resp libraryResponse
	if len(bytes.TrimSpace(body)) > 0 {
		_ = json.Unmarshal(body, &resp)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", sentinelFor(status), joinDetails(resp.Errors))
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Status: status, Message: upstreamMessage(status, body), Err: sentinelFor(status)}
	}
	return &resp, nil
}

func (s *AppleMusicService) doRequest(ctx context.Context, method, endpoint string, payload any, user bool) (int, []byte, error) {
	if !s.hasSource {
		return 0, nil, fmt.Errorf("%w: developer token", shared.ErrMissingCredentials)
	}
	if user && s.userToken == "" {
		return 0, nil, fmt.Errorf("%w: music user token", shared.ErrMissingCredentials)
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user {
		req.Header.Set(userTokenHeader, s.userToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, &FetchError{
			Status:  http.StatusServiceUnavailable,
			Message: err.Error(),
			Err:     fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	s.metrics.UpstreamRequest(catalogUpstream, resp.StatusCode)
	s.logger.Debug("apple music request", "method", method, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

func joinDetails(errs []apiError) string {
	details := make([]string, len(errs))
	for i, e := range errs {
		switch {
		case e.Detail != "":
			details[i] = e.Detail
		case e.Status != "":
			details[i] = e.Status
		default:
			details[i] = "Unknown"
		}
	}
	return strings.Join(details, "; ")
}
