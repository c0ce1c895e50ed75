package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override secrets in the config file.
const (
	EnvSetlistFMKey   = "SETLISTFM_API_KEY"
	EnvDeveloperToken = "APPLE_DEVELOPER_TOKEN"
	EnvUserToken      = "APPLE_MUSIC_USER_TOKEN"
	EnvTokenURL       = "SETLISTX_TOKEN_URL"
	EnvFile           = "ENV_FILE"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	SetlistFM SetlistFMConfig `toml:"setlistfm"`
	Apple     AppleConfig     `toml:"apple"`
	Matching  MatchingConfig  `toml:"matching"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// SetlistFMConfig contains setlist.fm API settings.
type SetlistFMConfig struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url" validate:"required,url"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds" validate:"gt=0"`
	CacheCapacity   int    `toml:"cache_capacity" validate:"gt=0"`
	MaxRetries      int    `toml:"max_retries" validate:"gte=0,lte=10"`
	BackoffMillis   int    `toml:"backoff_ms" validate:"gte=0"`
}

// AppleConfig contains Apple Music catalog and library settings.
type AppleConfig struct {
	BaseURL               string `toml:"base_url" validate:"required,url"`
	Storefront            string `toml:"storefront" validate:"required,alpha,len=2"`
	DeveloperToken        string `toml:"developer_token"`
	UserToken             string `toml:"user_token"`
	TokenURL              string `toml:"token_url" validate:"omitempty,url"`
	SearchLimit           int    `toml:"search_limit" validate:"gt=0,lte=25"`
	SearchCacheTTLSeconds int    `toml:"search_cache_ttl_seconds" validate:"gt=0"`
	SearchCacheCapacity   int    `toml:"search_cache_capacity" validate:"gt=0"`
}

// MatchingConfig controls pacing of catalog searches.
type MatchingConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gte=0"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host                   string `toml:"host"`
	Port                   int    `toml:"port" validate:"gt=0,lte=65535"`
	RateLimitRequests      int    `toml:"rate_limit_requests" validate:"gt=0"`
	RateLimitWindowSeconds int    `toml:"rate_limit_window_seconds" validate:"gt=0"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error fatal"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitWindow returns the configured window as a [time.Duration].
func (s ServerConfig) RateLimitWindow() time.Duration {
	return time.Duration(s.RateLimitWindowSeconds) * time.Second
}

// CacheTTL returns the setlist cache lifetime.
func (s SetlistFMConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// Backoff returns the base retry backoff.
func (s SetlistFMConfig) Backoff() time.Duration {
	return time.Duration(s.BackoffMillis) * time.Millisecond
}

// SearchCacheTTL returns the catalog search cache lifetime.
func (a AppleConfig) SearchCacheTTL() time.Duration {
	return time.Duration(a.SearchCacheTTLSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads variables from the file named by ENV_FILE, or .env.
//
// A missing file is not an error.
func LoadEnvFile() error {
	path := os.Getenv(EnvFile)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides secrets with values from the environment when set.
func (c *Config) ApplyEnv() {
	for env, target := range map[string]*string{
		EnvSetlistFMKey:   &c.SetlistFM.APIKey,
		EnvDeveloperToken: &c.Apple.DeveloperToken,
		EnvUserToken:      &c.Apple.UserToken,
		EnvTokenURL:       &c.Apple.TokenURL,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*target = v
		}
	}
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
