// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/services"
)

// MockService is a configurable test double for [services.Service]. Any nil
// function field falls back to a benign default.
type MockService struct {
	ServiceName      string
	AuthenticateFn   func(ctx context.Context, credentials map[string]string) error
	GetPlaylistsFn   func(ctx context.Context) ([]models.Playlist, error)
	GetPlaylistFn    func(ctx context.Context, playlistID string) (*models.Playlist, error)
	ExportPlaylistFn func(ctx context.Context, playlistID string) (*models.PlaylistExport, error)
	SearchByISRCFn   func(ctx context.Context, isrc string) ([]models.Track, error)
	SearchTracksFn   func(ctx context.Context, query string, limit int) ([]models.Track, error)
	CreatePlaylistFn func(ctx context.Context, name, description string) (*models.Playlist, error)
	AddTracksFn      func(ctx context.Context, playlistID string, trackIDs []string) ([]services.AddResult, error)
}

func (m *MockService) Name() string {
	if m.ServiceName != "" {
		return m.ServiceName
	}
	return "mock"
}

func (m *MockService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if m.AuthenticateFn != nil {
		return m.AuthenticateFn(ctx, credentials)
	}
	return nil
}

func (m *MockService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.GetPlaylistsFn != nil {
		return m.GetPlaylistsFn(ctx)
	}
	return []models.Playlist{}, nil
}

func (m *MockService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if m.GetPlaylistFn != nil {
		return m.GetPlaylistFn(ctx, playlistID)
	}
	return &models.Playlist{ID: playlistID}, nil
}

func (m *MockService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	if m.ExportPlaylistFn != nil {
		return m.ExportPlaylistFn(ctx, playlistID)
	}
	return &models.PlaylistExport{Playlist: models.Playlist{ID: playlistID}}, nil
}

func (m *MockService) SearchByISRC(ctx context.Context, isrc string) ([]models.Track, error) {
	if m.SearchByISRCFn != nil {
		return m.SearchByISRCFn(ctx, isrc)
	}
	return nil, nil
}

func (m *MockService) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if m.SearchTracksFn != nil {
		return m.SearchTracksFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if m.CreatePlaylistFn != nil {
		return m.CreatePlaylistFn(ctx, name, description)
	}
	return &models.Playlist{ID: "created", Name: name, Description: description}, nil
}

func (m *MockService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) ([]services.AddResult, error) {
	if m.AddTracksFn != nil {
		return m.AddTracksFn(ctx, playlistID, trackIDs)
	}
	results := make([]services.AddResult, len(trackIDs))
	for i, id := range trackIDs {
		results[i] = services.AddResult{TrackID: id}
	}
	return results, nil
}

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// JSONResponse builds a canned *http.Response carrying a JSON body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
