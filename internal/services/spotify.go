// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/ratelimit"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	spotifyAddBatchSize = 100
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Product     string    `json:"product"` // premium, free, etc.
	Followers   followers `json:"followers"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	ExternalIDs  externalIDs     `json:"external_ids"`
	ExternalURLs externalURLs    `json:"external_urls"`
	Popularity   int             `json:"popularity"`
	URI          string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	TotalTracks int    `json:"total_tracks"`
	URI         string `json:"uri"`
}

type spotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

type spotifyPlaylistTracks struct {
	Total int                    `json:"total"`
	Next  *string                `json:"next"`
	Items []SpotifyPlaylistTrack `json:"items"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Owner       spotifyOwner          `json:"owner"`
	Public      bool                  `json:"public"`
	Tracks      spotifyPlaylistTracks `json:"tracks"`
	URI         string                `json:"uri"`
}

type simplePlaylistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Owner       spotifyOwner         `json:"owner"`
	Public      bool                 `json:"public"`
	Tracks      simplePlaylistTracks `json:"tracks"`
	URI         string               `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifySimplePlaylist `json:"items"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
	Next     *string                 `json:"next"`
	Previous *string                 `json:"previous"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyService implements the Service interface for Spotify API interactions.
// Uses [oauth2] for authentication and the shared requester for rate-limited calls.
type SpotifyService struct {
	config    *oauth2.Config
	token     *oauth2.Token
	requester *requester
	userID    string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, limiter *ratelimit.Limiter) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:    config,
		requester: newRequester(ProviderSpotify, limiter, http.DefaultClient),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the OAuth2 configuration for callback handling.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.token = &oauth2.Token{AccessToken: accessToken}
		if refresh, ok := credentials["refresh_token"]; ok {
			s.token.RefreshToken = refresh
		}
		s.requester.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.token = token
		s.requester.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// SetToken installs an already-acquired OAuth2 token (e.g., from the CLI auth flow).
func (s *SpotifyService) SetToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	s.requester.httpClient = s.config.Client(ctx, token)
}

func (s *SpotifyService) get(ctx context.Context, endpoint string, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return s.requester.do(ctx, &call{method: http.MethodGet, url: spotifyBaseURL + endpoint}, result)
}

func (s *SpotifyService) post(ctx context.Context, endpoint string, payload, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return s.requester.do(ctx, &call{method: http.MethodPost, url: spotifyBaseURL + endpoint, payload: payload}, result)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	s.userID = user.ID
	return &user, nil
}

// Playlist retrieves a playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	var playlist SpotifyPlaylist
	if err := s.get(ctx, fmt.Sprintf("/playlists/%s", playlistID), &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	var response SpotifyPaginatedPlaylists
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)
	if err := s.get(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func trackFromSpotify(st SpotifyTrack) models.Track {
	track := models.Track{
		ID:          st.ID,
		Title:       st.Name,
		Album:       st.Album.Name,
		DurationMS:  st.DurationMS,
		ISRC:        st.ExternalIDs.ISRC,
		ExternalURL: st.ExternalURLs.Spotify,
	}
	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}
	return track
}

// Service interface implementation

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var allPlaylists []models.Playlist
	limit := 50
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			allPlaylists = append(allPlaylists, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  sp.Tracks.Total,
				Public:      sp.Public,
			})
		}

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return allPlaylists, nil
}

// GetPlaylist retrieves a specific playlist by ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	sp, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
	}, nil
}

// ExportPlaylist exports a playlist with all its tracks, following pagination
// so track order matches the playlist.
func (s *SpotifyService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	sp, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	export := &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:          sp.ID,
			Name:        sp.Name,
			Description: sp.Description,
			TrackCount:  sp.Tracks.Total,
			Public:      sp.Public,
		},
	}

	for _, item := range sp.Tracks.Items {
		export.Tracks = append(export.Tracks, trackFromSpotify(item.Track))
	}

	next := sp.Tracks.Next
	for next != nil {
		var page spotifyPlaylistTracks
		offset := len(export.Tracks)
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=100&offset=%d", playlistID, offset)
		if err := s.get(ctx, endpoint, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			export.Tracks = append(export.Tracks, trackFromSpotify(item.Track))
		}
		next = page.Next
	}

	return export, nil
}

// SearchByISRC searches the Spotify catalog by ISRC.
func (s *SpotifyService) SearchByISRC(ctx context.Context, isrc string) ([]models.Track, error) {
	query := url.QueryEscape(fmt.Sprintf("isrc:%s", isrc))
	var response spotifySearchResponse
	if err := s.get(ctx, fmt.Sprintf("/search?q=%s&type=track&limit=10", query), &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		tracks = append(tracks, trackFromSpotify(item))
	}
	return tracks, nil
}

// SearchTracks searches the Spotify catalog by free-text query.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var response spotifySearchResponse
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)
	if err := s.get(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		tracks = append(tracks, trackFromSpotify(item))
	}
	return tracks, nil
}

// CreatePlaylist creates a new private playlist owned by the authenticated user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if s.userID == "" {
		if _, err := s.UserProfile(ctx); err != nil {
			return nil, err
		}
	}

	payload := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var created SpotifyPlaylist
	if err := s.post(ctx, fmt.Sprintf("/users/%s/playlists", s.userID), payload, &created); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          created.ID,
		Name:        created.Name,
		Description: created.Description,
		Public:      created.Public,
	}, nil
}

// AddTracks adds tracks to a playlist in batches of up to 100 URIs.
// Spotify applies each batch atomically, so a batch failure is attributed to
// every track in that batch while other batches proceed.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) ([]AddResult, error) {
	results := make([]AddResult, 0, len(trackIDs))

	for start := 0; start < len(trackIDs); start += spotifyAddBatchSize {
		end := min(start+spotifyAddBatchSize, len(trackIDs))
		batch := trackIDs[start:end]

		uris := make([]string, len(batch))
		for i, id := range batch {
			uris[i] = "spotify:track:" + id
		}

		err := s.post(ctx, fmt.Sprintf("/playlists/%s/tracks", playlistID), map[string]any{"uris": uris}, nil)
		for _, id := range batch {
			results = append(results, AddResult{TrackID: id, Err: err})
		}
	}

	return results, nil
}
