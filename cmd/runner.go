package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistx/internal/cache"
	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/services"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/desertthunder/setlistx/internal/tasks"
	"github.com/desertthunder/setlistx/internal/telemetry"
	"github.com/desertthunder/setlistx/internal/token"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators not supplied through [RunnerOpts] are built from the config on first use, so the
// root Before hook can swap the config before anything is wired.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	metrics    *telemetry.Metrics
	openURL    func(string) error

	setlists services.SetlistSource
	catalog  services.Catalog
	writer   services.PlaylistWriter
	mint     token.MintFunc
	tokens   *token.Cache
	apple    *services.AppleMusicService
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Metrics    *telemetry.Metrics
	Setlists   services.SetlistSource
	Catalog    services.Catalog
	Writer     services.PlaylistWriter
	Mint       token.MintFunc
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.New()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		metrics:    opts.Metrics,
		openURL:    shared.OpenBrowser,
		setlists:   opts.Setlists,
		catalog:    opts.Catalog,
		writer:     opts.Writer,
		mint:       opts.Mint,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setlistCommand, matchCommand, tokenCommand, serveCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config named by --config, applies environment overrides and validates it.
//
// A missing file falls back to the current config so that `config init` can create it.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	r.configPath = path

	config, err := shared.LoadConfig(path)
	switch {
	case err == nil:
		r.config = config
	case !errors.Is(err, shared.ErrMissingConfig):
		return ctx, err
	case cmd.IsSet("config"):
		r.logger.Warn("config file not found, using defaults", "path", path)
	default:
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	r.config.ApplyEnv()
	if err := r.config.Validate(); err != nil {
		return ctx, err
	}

	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	} else {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	}
	return ctx, nil
}

func (r *Runner) setlistSource() services.SetlistSource {
	if r.setlists == nil {
		cfg := r.config.SetlistFM
		r.setlists = services.NewSetlistFMService(services.SetlistFMOpts{
			BaseURL:    cfg.BaseURL,
			HTTPClient: r.httpClient,
			Cache:      cache.New[json.RawMessage](cfg.CacheCapacity),
			CacheTTL:   cfg.CacheTTL(),
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.Backoff(),
			Logger:     r.logger,
			Metrics:    r.metrics,
		})
	}
	return r.setlists
}

// tokenCache mints through the token endpoint when one is configured, else serves the static token.
func (r *Runner) tokenCache() *token.Cache {
	if r.tokens == nil {
		mint := r.mint
		if mint == nil {
			if url := r.config.Apple.TokenURL; url != "" {
				mint = services.NewDevTokenService(url, r.httpClient).Mint
			} else {
				mint = services.StaticToken(r.config.Apple.DeveloperToken)
			}
		}
		r.tokens = token.New(mint, token.WithMetrics(r.metrics), token.WithLogger(r.logger))
	}
	return r.tokens
}

func (r *Runner) appleMusic() *services.AppleMusicService {
	if r.apple == nil {
		cfg := r.config.Apple
		r.apple = services.NewAppleMusicService(services.AppleMusicOpts{
			BaseURL:     cfg.BaseURL,
			Storefront:  cfg.Storefront,
			TokenSource: r.tokenCache().TokenSource(context.Background()),
			UserToken:   cfg.UserToken,
			HTTPClient:  r.httpClient,
			Cache:       cache.New[[]models.CatalogTrack](cfg.SearchCacheCapacity),
			CacheTTL:    cfg.SearchCacheTTL(),
			Logger:      r.logger,
			Metrics:     r.metrics,
		})
	}
	return r.apple
}

func (r *Runner) catalogClient() services.Catalog {
	if r.catalog == nil {
		r.catalog = r.appleMusic()
	}
	return r.catalog
}

func (r *Runner) playlistWriter() services.PlaylistWriter {
	if r.writer == nil {
		r.writer = r.appleMusic()
	}
	return r.writer
}

func (r *Runner) importer() *tasks.Importer {
	return tasks.NewImporter(r.setlistSource(), r.config.SetlistFM.APIKey, r.logger)
}

// matcher paces searches at the configured rate; zero disables pacing.
func (r *Runner) matcher() *tasks.Matcher {
	var limiter *rate.Limiter
	if rps := r.config.Matching.RequestsPerSecond; rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return tasks.NewMatcher(tasks.MatcherOpts{
		Catalog:     r.catalogClient(),
		Limiter:     limiter,
		Logger:      r.logger,
		Metrics:     r.metrics,
		SearchLimit: r.config.Apple.SearchLimit,
	})
}

func (r *Runner) exporter() *tasks.Exporter {
	return tasks.NewExporter(r.playlistWriter(), r.logger)
}

// progress starts printer on a buffered update channel. The returned func closes the channel and
// waits for printer to drain it.
func (r *Runner) progress(printer func(<-chan tasks.ProgressUpdate)) (chan tasks.ProgressUpdate, func()) {
	ch := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		printer(ch)
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
