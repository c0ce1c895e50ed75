package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/services"
	"github.com/desertthunder/setlistx/internal/shared"
)

// Importer turns user input into a mapped setlist. Only the latest Import may deliver a result.
type Importer struct {
	source services.SetlistSource
	apiKey string
	logger *log.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewImporter creates an importer fetching through source with apiKey.
func NewImporter(source services.SetlistSource, apiKey string, logger *log.Logger) *Importer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Importer{
		source: source,
		apiKey: apiKey,
		logger: shared.WithLogger(logger, "component", "importer"),
	}
}

// Import validates input, fetches the setlist and maps it.
//
// Starting a new Import cancels the previous one; the older call then returns [shared.ErrSuperseded]
// even if its fetch succeeded.
func (im *Importer) Import(ctx context.Context, input string, progress chan<- ProgressUpdate) (*models.Setlist, error) {
	if im.source == nil {
		return nil, fmt.Errorf("%w: setlist source not initialized", shared.ErrServiceUnavailable)
	}

	id, err := services.ValidateInput(input)
	if err != nil {
		return nil, err
	}

	gen, reqCtx := im.begin(ctx)
	defer im.finish(gen)

	sendProgress(progress, fetchSetlistUpdate(id))
	raw, err := im.source.FetchByID(reqCtx, id, im.apiKey)
	if !im.current(gen) {
		im.logger.Debug("discarding superseded import", "id", id)
		return nil, shared.ErrSuperseded
	}
	if err != nil {
		return nil, err
	}

	setlist, err := services.MapSetlist(raw)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, mappedSetlistUpdate(setlist))
	return setlist, nil
}

func (im *Importer) begin(ctx context.Context) (uint64, context.Context) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.cancel != nil {
		im.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	im.gen++
	im.cancel = cancel
	return im.gen, reqCtx
}

func (im *Importer) finish(gen uint64) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.gen == gen && im.cancel != nil {
		im.cancel()
		im.cancel = nil
	}
}

func (im *Importer) current(gen uint64) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.gen == gen
}
