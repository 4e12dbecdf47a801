package main

import (
	"context"
	"fmt"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/urfave/cli/v3"
)

// AppleMusicSearch searches the Apple Music catalog by free text or ISRC.
func (r *Runner) AppleMusicSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	isrc := cmd.String("isrc")
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")

	if r.appleMusic == nil {
		return fmt.Errorf("%w: Apple Music service not initialized", shared.ErrServiceUnavailable)
	}

	if query == "" && isrc == "" {
		return fmt.Errorf("%w: a query argument or --isrc is required", shared.ErrMissingArgument)
	}

	var tracks []models.Track
	var err error
	if isrc != "" {
		r.logger.Infof("searching apple music by ISRC %v", isrc)
		tracks, err = r.appleMusic.SearchByISRC(ctx, isrc)
	} else {
		r.logger.Infof("searching apple music for %q", query)
		tracks, err = r.appleMusic.SearchTracks(ctx, query, limit)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(tracks, true)
	}

	if len(tracks) == 0 {
		return r.writePlain("No results.\n")
	}

	r.writePlain("Found %d tracks:\n\n", len(tracks))
	for i, track := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, track.Artist, track.Title)
		if track.Album != "" {
			r.writePlain("   Album: %s\n", track.Album)
		}
		if track.ISRC != "" {
			r.writePlain("   ISRC: %s\n", track.ISRC)
		}
		if track.DurationMS > 0 {
			r.writePlain("   Duration: %s\n", shared.FormatDuration(track.DurationMS))
		}
		r.writePlain("   ID: %s\n\n", track.ID)
	}

	return nil
}
