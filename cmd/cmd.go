// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setlistCommand handles setlist.fm lookups
func setlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "setlist",
		Aliases: []string{"sl"},
		Usage:   "setlist.fm operations",
		Commands: []*cli.Command{
			{
				Name:  "parse",
				Usage: "Extract the setlist id from a setlist.fm URL or bare id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "input",
					},
				},
				Action: r.SetlistParse,
			},
			{
				Name:  "fetch",
				Usage: "Fetch and display a setlist",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "input",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the mapped setlist as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SetlistFetch,
			},
		},
	}
}

// matchCommand runs the full import, match and export flow
func matchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Match a setlist against the Apple Music catalog",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "input",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-unmatched",
				Usage: "Mark songs without a suggestion as skipped",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Report format (text, markdown, csv, json)",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "playlist",
				Usage: "Create an Apple Music library playlist from the matched songs",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the created playlist in the browser",
			},
		},
		Action: r.Match,
	}
}

// tokenCommand inspects the developer token cache
func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint or load the Apple Music developer token",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "show",
				Usage: "Print the token itself",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Token,
	}
}

// serveCommand starts the HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the setlist proxy and developer token endpoints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// configCommand handles configuration files
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write an example config.toml",
				Action: r.ConfigInit,
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration with secrets redacted",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ConfigShow,
			},
		},
	}
}
