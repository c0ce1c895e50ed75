package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/setlistx/internal/services"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetlistParse prints the id extracted from a URL or bare id.
func (r *Runner) SetlistParse(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("input")
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: setlist URL or id", shared.ErrMissingArgument)
	}

	id, err := services.ValidateInput(input)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", id)
}

// SetlistFetch fetches a setlist and prints it as a numbered list or JSON.
func (r *Runner) SetlistFetch(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("input")
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: setlist URL or id", shared.ErrMissingArgument)
	}

	setlist, err := r.importer().Import(ctx, input, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch setlist: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(setlist, cmd.Bool("pretty"))
	}

	r.writePlainHeader(setlist.Artist)
	if setlist.Venue != "" {
		r.writePlain("Venue: %s\n", setlist.Venue)
	}
	if setlist.EventDate != "" {
		r.writePlain("Date: %s\n", setlist.EventDate)
	}

	entries := setlist.Entries()
	if len(entries) == 0 {
		return r.writePlainln("No songs in this setlist.")
	}

	r.writePlain("\n")
	for i, entry := range entries {
		if entry.Info != "" {
			r.writePlain("%3d. %s (%s)\n", i+1, entry.Name, entry.Info)
		} else {
			r.writePlain("%3d. %s\n", i+1, entry.Name)
		}
	}
	return r.writePlainln("%d songs in %d sets", len(entries), len(setlist.Sets))
}
