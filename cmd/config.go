package main

import (
	"context"

	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/urfave/cli/v3"
)

const redacted = "[redacted]"

// ConfigInit writes the example config to the --config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlain("Created %s\n", path)
}

// ConfigShow prints the effective configuration, after environment overrides, without secrets.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config := *r.config
	for _, secret := range []*string{
		&config.SetlistFM.APIKey,
		&config.Apple.DeveloperToken,
		&config.Apple.UserToken,
	} {
		if *secret != "" {
			*secret = redacted
		}
	}
	return r.writeJSON(config, cmd.Bool("pretty"))
}
