package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

type tokenInfo struct {
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expiresAt"`
	Token     string    `json:"token,omitempty"`
}

// Token mints (or loads) the developer token and reports when it expires.
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	tokens := r.tokenCache()
	tok, err := tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain developer token: %w", err)
	}

	info := tokenInfo{State: tokens.State().String(), ExpiresAt: tokens.ExpiresAt()}
	if cmd.Bool("show") {
		info.Token = tok
	}

	if cmd.Bool("json") {
		return r.writeJSON(info, false)
	}

	r.writePlain("State: %s\n", info.State)
	r.writePlain("Expires: %s\n", info.ExpiresAt.Format(time.RFC3339))
	if info.Token != "" {
		r.writePlain("Token: %s\n", info.Token)
	}
	return nil
}
