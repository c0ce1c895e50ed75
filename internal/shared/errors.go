package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Upstream errors
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrUpstreamRateLimited = fmt.Errorf("rate limit exceeded")
	ErrUpstreamUnavailable = fmt.Errorf("upstream unavailable")
	ErrUpstreamNotFound    = fmt.Errorf("not found")
	ErrInvalidUpstreamBody = fmt.Errorf("invalid upstream body")
	ErrInvalidSetlist      = fmt.Errorf("invalid setlist response")
	ErrCatalogSearch       = fmt.Errorf("catalog search failed")
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")

	// Credential errors
	ErrCredentialMint = fmt.Errorf("credential mint failed")
	ErrEmptyToken     = fmt.Errorf("empty token")

	// Matching errors
	ErrPartialMatchFailure = fmt.Errorf("some suggestions could not be loaded")
	ErrSuperseded          = fmt.Errorf("superseded by a newer request")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInputTooLong    = fmt.Errorf("input too long")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
