package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/goccy/go-json"
)

// DevTokenResponse is the body served by a developer token endpoint: exactly one field is set.
type DevTokenResponse struct {
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

// DevTokenService fetches signed developer tokens from a token endpoint.
type DevTokenService struct {
	endpoint   string
	httpClient *http.Client
}

// NewDevTokenService creates a client for the token endpoint at endpoint.
func NewDevTokenService(endpoint string, client *http.Client) *DevTokenService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &DevTokenService{
		endpoint:   endpoint,
		httpClient: client,
	}
}

// Mint requests a fresh token. Its signature matches token.MintFunc.
func (d *DevTokenService) Mint(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var data DevTokenResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", &FetchError{
			Status:  resp.StatusCode,
			Message: upstreamMessage(resp.StatusCode, body),
			Err:     fmt.Errorf("%w: %v", shared.ErrInvalidUpstreamBody, err),
		}
	}
	if data.Error != "" {
		return "", &FetchError{Status: resp.StatusCode, Message: data.Error, Err: sentinelFor(resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{Status: resp.StatusCode, Message: upstreamMessage(resp.StatusCode, body), Err: sentinelFor(resp.StatusCode)}
	}
	if strings.TrimSpace(data.Token) == "" {
		return "", shared.ErrEmptyToken
	}
	return data.Token, nil
}

// StaticToken returns a mint function serving a fixed, pre-signed token.
func StaticToken(token string) func(context.Context) (string, error) {
	token = strings.TrimSpace(token)
	return func(context.Context) (string, error) {
		if token == "" {
			return "", fmt.Errorf("%w: developer token not configured", shared.ErrMissingCredentials)
		}
		return token, nil
	}
}
