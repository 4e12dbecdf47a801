// Apple Music API implementation of [Service]
//
// Response types based on https://developer.apple.com/documentation/applemusicapi
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/ratelimit"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

const (
	appleMusicBaseURL = "https://api.music.apple.com/v1"

	// Apple Music limits playlist track batch operations.
	appleMusicAddBatchSize = 25

	// Developer tokens may live up to six months; keep a shorter horizon so
	// a long-running process rotates well before expiry.
	appleMusicTokenTTL = 12 * time.Hour

	defaultStorefront = "us"
)

type appleMusicPlayParams struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// AppleMusicSongAttributes holds the catalog attributes of a song resource.
type AppleMusicSongAttributes struct {
	Name             string               `json:"name"`
	ArtistName       string               `json:"artistName"`
	AlbumName        string               `json:"albumName"`
	DurationInMillis int                  `json:"durationInMillis"`
	ISRC             string               `json:"isrc"`
	URL              string               `json:"url"`
	PlayParams       appleMusicPlayParams `json:"playParams"`
}

// AppleMusicSong represents a song resource from the catalog.
type AppleMusicSong struct {
	ID         string                   `json:"id"`
	Type       string                   `json:"type"`
	Attributes AppleMusicSongAttributes `json:"attributes"`
}

type appleMusicSongList struct {
	Data []AppleMusicSong `json:"data"`
}

type appleMusicSearchResponse struct {
	Results struct {
		Songs appleMusicSongList `json:"songs"`
	} `json:"results"`
}

// AppleMusicPlaylistAttributes holds the attributes of a library playlist.
type AppleMusicPlaylistAttributes struct {
	Name        string `json:"name"`
	Description struct {
		Standard string `json:"standard"`
	} `json:"description"`
	IsPublic bool `json:"isPublic"`
}

// AppleMusicPlaylist represents a library playlist resource.
type AppleMusicPlaylist struct {
	ID         string                       `json:"id"`
	Type       string                       `json:"type"`
	Attributes AppleMusicPlaylistAttributes `json:"attributes"`
}

type appleMusicPlaylistList struct {
	Data []AppleMusicPlaylist `json:"data"`
	Next string               `json:"next"`
}

// AppleMusicService implements the Service interface for Apple Music API interactions.
//
// Catalog reads authenticate with a developer token (an ES256-signed JWT built
// from the configured key id, team id, and private key). Library writes
// additionally require the user's Music-User-Token.
type AppleMusicService struct {
	keyID      string
	teamID     string
	privateKey []byte
	storefront string

	// tokenMu guards the cached developer token; the sync worker pool hits
	// headers concurrently.
	tokenMu        sync.Mutex
	devToken       string
	devTokenExpiry time.Time
	userToken      string

	requester *requester
}

// NewAppleMusicService creates a new Apple Music service from developer credentials.
func NewAppleMusicService(cfg shared.AppleMusicConfig, limiter *ratelimit.Limiter) (*AppleMusicService, error) {
	if cfg.KeyID == "" || cfg.TeamID == "" || cfg.PrivateKeyPath == "" {
		return nil, fmt.Errorf("%w: apple music key_id, team_id, and private_key_path are required", shared.ErrMissingCredentials)
	}

	keyData, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read private key: %v", shared.ErrInvalidCredentials, err)
	}

	storefront := cfg.Storefront
	if storefront == "" {
		storefront = defaultStorefront
	}

	return &AppleMusicService{
		keyID:      cfg.KeyID,
		teamID:     cfg.TeamID,
		privateKey: keyData,
		storefront: storefront,
		requester:  newRequester(ProviderAppleMusic, limiter, http.DefaultClient),
	}, nil
}

func (a *AppleMusicService) Name() string {
	return "Apple Music"
}

// generateDeveloperToken signs a new ES256 developer token.
func (a *AppleMusicService) generateDeveloperToken() (string, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM(a.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse private key: %v", shared.ErrInvalidCredentials, err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": a.teamID,
		"iat": now.Unix(),
		"exp": now.Add(appleMusicTokenTTL).Unix(),
	})
	token.Header["kid"] = a.keyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign developer token: %v", shared.ErrAuthFailed, err)
	}
	return signed, nil
}

func (a *AppleMusicService) developerToken() (string, error) {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()

	if a.devToken != "" && time.Now().Before(a.devTokenExpiry.Add(-time.Minute)) {
		return a.devToken, nil
	}

	token, err := a.generateDeveloperToken()
	if err != nil {
		return "", err
	}

	a.devToken = token
	a.devTokenExpiry = time.Now().Add(appleMusicTokenTTL)
	return token, nil
}

// Authenticate validates developer credentials and stores the Music-User-Token
// from credentials["music_user_token"] for library operations.
func (a *AppleMusicService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if _, err := a.developerToken(); err != nil {
		return err
	}

	if userToken, ok := credentials["music_user_token"]; ok && userToken != "" {
		a.userToken = userToken
	}
	return nil
}

func (a *AppleMusicService) headers(needUserToken bool) (http.Header, error) {
	devToken, err := a.developerToken()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+devToken)

	if needUserToken {
		if a.userToken == "" {
			return nil, fmt.Errorf("%w: music user token required for library operations", shared.ErrNotAuthenticated)
		}
		header.Set("Music-User-Token", a.userToken)
	}

	return header, nil
}

func (a *AppleMusicService) get(ctx context.Context, endpoint string, needUserToken bool, result any) error {
	header, err := a.headers(needUserToken)
	if err != nil {
		return err
	}
	return a.requester.do(ctx, &call{method: http.MethodGet, url: appleMusicBaseURL + endpoint, header: header}, result)
}

func (a *AppleMusicService) post(ctx context.Context, endpoint string, payload, result any) error {
	header, err := a.headers(true)
	if err != nil {
		return err
	}
	return a.requester.do(ctx, &call{method: http.MethodPost, url: appleMusicBaseURL + endpoint, header: header, payload: payload}, result)
}

func trackFromAppleMusic(song AppleMusicSong) models.Track {
	return models.Track{
		ID:          song.ID,
		Title:       song.Attributes.Name,
		Artist:      song.Attributes.ArtistName,
		Album:       song.Attributes.AlbumName,
		DurationMS:  song.Attributes.DurationInMillis,
		ISRC:        song.Attributes.ISRC,
		ExternalURL: song.Attributes.URL,
	}
}

func playlistFromAppleMusic(pl AppleMusicPlaylist) models.Playlist {
	return models.Playlist{
		ID:          pl.ID,
		Name:        pl.Attributes.Name,
		Description: pl.Attributes.Description.Standard,
		Public:      pl.Attributes.IsPublic,
	}
}

// Service interface implementation

// GetPlaylists retrieves all library playlists for the authenticated user.
func (a *AppleMusicService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	endpoint := "/me/library/playlists?limit=100"

	for endpoint != "" {
		var page appleMusicPlaylistList
		if err := a.get(ctx, endpoint, true, &page); err != nil {
			return nil, err
		}
		for _, pl := range page.Data {
			playlists = append(playlists, playlistFromAppleMusic(pl))
		}
		endpoint = page.Next
	}

	return playlists, nil
}

// GetPlaylist retrieves a specific library playlist by ID.
func (a *AppleMusicService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var response appleMusicPlaylistList
	if err := a.get(ctx, fmt.Sprintf("/me/library/playlists/%s", playlistID), true, &response); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	playlist := playlistFromAppleMusic(response.Data[0])
	return &playlist, nil
}

// ExportPlaylist exports a library playlist with all its tracks in order.
func (a *AppleMusicService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	playlist, err := a.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	export := &models.PlaylistExport{Playlist: *playlist}

	endpoint := fmt.Sprintf("/me/library/playlists/%s/tracks?limit=100", playlistID)
	for endpoint != "" {
		var page struct {
			Data []AppleMusicSong `json:"data"`
			Next string           `json:"next"`
		}
		if err := a.get(ctx, endpoint, true, &page); err != nil {
			return nil, err
		}
		for _, song := range page.Data {
			export.Tracks = append(export.Tracks, trackFromAppleMusic(song))
		}
		endpoint = page.Next
	}

	export.Playlist.TrackCount = len(export.Tracks)
	return export, nil
}

// SearchByISRC queries the catalog for songs carrying the given ISRC.
func (a *AppleMusicService) SearchByISRC(ctx context.Context, isrc string) ([]models.Track, error) {
	var response appleMusicSongList
	endpoint := fmt.Sprintf("/catalog/%s/songs?filter[isrc]=%s", a.storefront, url.QueryEscape(isrc))
	if err := a.get(ctx, endpoint, false, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Data))
	for _, song := range response.Data {
		tracks = append(tracks, trackFromAppleMusic(song))
	}
	return tracks, nil
}

// SearchTracks searches the catalog by free-text term.
func (a *AppleMusicService) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if limit <= 0 || limit > 25 {
		limit = 10
	}

	var response appleMusicSearchResponse
	endpoint := fmt.Sprintf("/catalog/%s/search?term=%s&types=songs&limit=%d",
		a.storefront, url.QueryEscape(query), limit)
	if err := a.get(ctx, endpoint, false, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Results.Songs.Data))
	for _, song := range response.Results.Songs.Data {
		tracks = append(tracks, trackFromAppleMusic(song))
	}
	return tracks, nil
}

// CreatePlaylist creates a new library playlist.
func (a *AppleMusicService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	payload := map[string]any{
		"attributes": map[string]any{
			"name":        name,
			"description": description,
		},
	}

	var response appleMusicPlaylistList
	if err := a.post(ctx, "/me/library/playlists", payload, &response); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, shared.NewProviderError(ProviderAppleMusic, shared.KindDataError, 0,
			fmt.Errorf("create playlist returned no data"))
	}

	playlist := playlistFromAppleMusic(response.Data[0])
	playlist.Name = name
	return &playlist, nil
}

// AddTracks adds songs to a library playlist in batches of up to 25.
// A failed batch is attributed to each track in it; remaining batches still run.
func (a *AppleMusicService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) ([]AddResult, error) {
	results := make([]AddResult, 0, len(trackIDs))

	for start := 0; start < len(trackIDs); start += appleMusicAddBatchSize {
		end := min(start+appleMusicAddBatchSize, len(trackIDs))
		batch := trackIDs[start:end]

		data := make([]map[string]string, len(batch))
		for i, id := range batch {
			data[i] = map[string]string{"id": id, "type": "songs"}
		}

		err := a.post(ctx, fmt.Sprintf("/me/library/playlists/%s/tracks", playlistID), map[string]any{"data": data}, nil)
		for _, id := range batch {
			results = append(results, AddResult{TrackID: id, Err: err})
		}
	}

	return results, nil
}
