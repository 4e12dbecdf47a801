// package services defines interface Service for interacting with music provider HTTP APIs
//
// Spotify (source), Apple Music (destination)
package services

import (
	"context"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
)

// Provider ids used for rate limiter scoping and configuration keys.
const (
	ProviderSpotify    = "spotify"
	ProviderAppleMusic = "apple_music"
)

// Service defines the interface for music service providers that can export,
// search, and write playlists and songs.
type Service interface {
	// Name returns the display name of the service (e.g., "Spotify", "Apple Music")
	Name() string

	// Authenticate performs OAuth or token authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ExportPlaylist exports a playlist with all its tracks in playlist order.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// SearchByISRC searches the catalog for tracks carrying the given ISRC.
	SearchByISRC(ctx context.Context, isrc string) ([]models.Track, error)

	// SearchTracks searches the catalog by free-text query, returning up to limit results.
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)

	// CreatePlaylist creates a new playlist owned by the authenticated user.
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// AddTracks adds tracks to a playlist by provider-scoped track id.
	// The returned slice reports one outcome per input id, in input order;
	// a batch is never all-or-nothing.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) ([]AddResult, error)
}

// AddResult is the per-item outcome of a batch add operation.
type AddResult struct {
	TrackID string
	Err     error
}

// Factory builds an authenticated Service for a provider id. Credential
// refresh is the factory's concern, not the engine's.
type Factory func(ctx context.Context, providerID string) (Service, error)
