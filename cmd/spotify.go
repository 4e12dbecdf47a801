package main

import (
	"context"
	"fmt"
	"os"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/formatter"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SpotifyPlaylists lists the authenticated user's Spotify playlists.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	playlists, err := r.spotify.GetPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		r.writePlain("   Visibility: %s\n", shared.VisibilityString(p.Public))
		r.writePlain("\n")
	}

	return nil
}

// SpotifyExport exports a playlist with all tracks.
func (r *Runner) SpotifyExport(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	outputFile := cmd.String("output")
	format := cmd.String("format")

	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Infof("exporting spotify playlist %v", playlistID)

	export, err := r.spotify.ExportPlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	var data []byte
	ext := ".json"
	switch format {
	case "csv":
		data, err = formatter.ExportToCSV(export)
		ext = ".csv"
	case "txt", "text":
		data, err = formatter.ExportToText(export)
		ext = ".txt"
	case "json", "":
		data, err = shared.MarshalJSON(export, true)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return fmt.Errorf("failed to render export: %w", err)
	}

	if outputFile == "" {
		outputFile = fmt.Sprintf("spotify_%s%s", export.Playlist.ID, ext)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	r.logger.Infof("playlist exported to %v with %v tracks", outputFile, len(export.Tracks))

	r.writePlain("✓ Playlist exported to %s\n", outputFile)
	r.writePlain("  Playlist: %s\n", export.Playlist.Name)
	r.writePlain("  Tracks: %d\n", len(export.Tracks))
	return nil
}
