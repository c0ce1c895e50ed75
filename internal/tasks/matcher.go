package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/normalize"
	"github.com/desertthunder/setlistx/internal/services"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/desertthunder/setlistx/internal/telemetry"
	"golang.org/x/time/rate"
)

// RunState is the lifecycle of a matching session.
type RunState int

const (
	Idle RunState = iota
	Running
	Completed
	Superseded
	Canceled
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Superseded:
		return "superseded"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Generation     uint64
	State          RunState
	Signature      string
	Rows           []models.MatchRow
	PartialFailure bool
}

// Err returns [shared.ErrPartialMatchFailure] when at least one search failed.
func (s Snapshot) Err() error {
	if s.PartialFailure {
		return shared.ErrPartialMatchFailure
	}
	return nil
}

// Matched counts rows with a chosen track.
func (s Snapshot) Matched() int {
	n := 0
	for _, r := range s.Rows {
		if r.Status == models.Matched {
			n++
		}
	}
	return n
}

// MatcherOpts configures a [Matcher].
type MatcherOpts struct {
	Catalog services.Catalog
	Limiter *rate.Limiter // paces searches; nil for no pacing
	Logger  *log.Logger
	Metrics *telemetry.Metrics

	// SearchLimit is the number of results requested per search. Only the first is suggested.
	SearchLimit int
}

// Matcher drives catalog suggestions for one setlist session.
//
// Every mutation made on behalf of a run goes through apply, which drops it once a newer generation
// exists. User actions bypass the guard and pin their row so later suggestions leave it alone.
type Matcher struct {
	catalog services.Catalog
	limiter *rate.Limiter
	logger  *log.Logger
	metrics *telemetry.Metrics
	limit   int

	mu        sync.Mutex
	gen       uint64
	state     RunState
	signature string
	rows      []models.MatchRow
	pinned    []bool
	partial   bool
	cancel    context.CancelFunc
}

// NewMatcher creates an idle matcher.
func NewMatcher(opts MatcherOpts) *Matcher {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 1
	}
	return &Matcher{
		catalog: opts.Catalog,
		limiter: opts.Limiter,
		logger:  shared.WithLogger(opts.Logger, "component", "matcher"),
		metrics: opts.Metrics,
		limit:   opts.SearchLimit,
	}
}

// Run starts a new matching run for setlist, superseding any run in progress, and blocks until this
// run completes, is superseded, or ctx ends.
//
// The returned error is [shared.ErrSuperseded] when a newer run or Reset took over, and ctx.Err() when
// the caller canceled. A completed run with failed searches returns a nil error; check [Snapshot.Err].
func (m *Matcher) Run(ctx context.Context, setlist *models.Setlist, progress chan<- ProgressUpdate) (Snapshot, error) {
	if m.catalog == nil {
		return Snapshot{}, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if setlist == nil {
		return Snapshot{}, fmt.Errorf("%w: setlist", shared.ErrMissingArgument)
	}

	entries := setlist.Entries()
	gen, runCtx := m.begin(ctx, setlist.Signature(), entries)
	defer m.finish(gen)

	total := len(entries)
	sendProgress(progress, searchTrackUpdate(0, total, nil))

	for i := range entries {
		entry := entries[i]
		if !m.current(gen) {
			return m.Snapshot(), shared.ErrSuperseded
		}

		query := normalize.Query(entry.Name, entry.Artist)
		if query == "" {
			m.metrics.MatchResult("skipped")
			continue
		}

		sendProgress(progress, searchTrackUpdate(i+1, total, &entry))
		if m.limiter != nil {
			if err := m.limiter.Wait(runCtx); err != nil {
				return m.stopped(ctx, gen, err)
			}
		}

		tracks, err := m.catalog.Search(runCtx, query, m.limit)
		if cerr := runCtx.Err(); cerr != nil {
			return m.stopped(ctx, gen, cerr)
		}

		var row models.MatchRow
		ok := m.apply(gen, func() {
			switch {
			case err != nil:
				m.partial = true
				m.metrics.MatchResult("error")
				m.logger.Warn("catalog search failed", "entry", entry.Name, "error", err)
			case len(tracks) == 0:
				m.metrics.MatchResult("unmatched")
			case m.pinned[i]:
				m.metrics.MatchResult("pinned")
			default:
				track := tracks[0]
				m.rows[i].Track = &track
				m.rows[i].Status = models.Matched
				m.metrics.MatchResult("matched")
			}
			row = m.rows[i]
		})
		if !ok {
			return m.Snapshot(), shared.ErrSuperseded
		}
		sendProgress(progress, matchedTrackUpdate(i+1, total, row))
	}

	if !m.apply(gen, func() { m.state = Completed }) {
		return m.Snapshot(), shared.ErrSuperseded
	}
	m.logger.Debug("matching completed", "generation", gen, "entries", total)
	return m.Snapshot(), nil
}

// RunIfChanged runs only when setlist's signature differs from the current session's, or the
// previous run for it did not complete.
func (m *Matcher) RunIfChanged(ctx context.Context, setlist *models.Setlist, progress chan<- ProgressUpdate) (Snapshot, error) {
	if setlist != nil {
		m.mu.Lock()
		same := m.signature == setlist.Signature() && m.state == Completed
		m.mu.Unlock()
		if same {
			return m.Snapshot(), nil
		}
	}
	return m.Run(ctx, setlist, progress)
}

func (m *Matcher) begin(ctx context.Context, signature string, entries []models.SetlistEntry) (uint64, context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)

	m.gen++
	m.cancel = cancel
	m.state = Running
	m.signature = signature
	m.rows = models.NewMatchRows(entries)
	m.pinned = make([]bool, len(entries))
	m.partial = false
	return m.gen, runCtx
}

func (m *Matcher) finish(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == gen && m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// stopped resolves why a run's context ended: a newer generation, or the caller.
func (m *Matcher) stopped(ctx context.Context, gen uint64, cause error) (Snapshot, error) {
	if ok := m.apply(gen, func() { m.state = Canceled }); !ok {
		return m.Snapshot(), shared.ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return m.Snapshot(), err
	}
	return m.Snapshot(), cause
}

// apply runs fn under the lock only if gen is still current and reports whether it ran.
func (m *Matcher) apply(gen uint64, fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	fn()
	return true
}

func (m *Matcher) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

// SetMatch records the user's choice for row index: Matched with track, or Skipped when track is nil.
func (m *Matcher) SetMatch(index int, track *models.CatalogTrack) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.rows) {
		return fmt.Errorf("%w: row %d out of range [0,%d)", shared.ErrInvalidArgument, index, len(m.rows))
	}

	if track == nil {
		m.rows[index].Track = nil
		m.rows[index].Status = models.Skipped
	} else {
		t := *track
		m.rows[index].Track = &t
		m.rows[index].Status = models.Matched
	}
	m.pinned[index] = true
	return nil
}

// SkipUnmatched marks every Unmatched row Skipped and returns how many changed.
func (m *Matcher) SkipUnmatched() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for i := range m.rows {
		if m.rows[i].Status == models.Unmatched {
			m.rows[i].Status = models.Skipped
			m.pinned[i] = true
			n++
		}
	}
	return n
}

// Reset supersedes the current run and returns every row to Unmatched.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.state == Running {
		m.state = Superseded
	}
	m.gen++
	for i := range m.rows {
		m.rows[i] = models.MatchRow{Entry: m.rows[i].Entry, Status: models.Unmatched}
		m.pinned[i] = false
	}
	m.partial = false
}

// Snapshot copies the current session state.
func (m *Matcher) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]models.MatchRow, len(m.rows))
	for i, r := range m.rows {
		rows[i] = r
		if r.Track != nil {
			t := *r.Track
			rows[i].Track = &t
		}
	}
	return Snapshot{
		Generation:     m.gen,
		State:          m.state,
		Signature:      m.signature,
		Rows:           rows,
		PartialFailure: m.partial,
	}
}

// IsSuperseded reports whether err came from a run that lost to a newer one.
func IsSuperseded(err error) bool {
	return errors.Is(err, shared.ErrSuperseded)
}
