package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Credentials.Spotify.RedirectURI == "" {
		t.Error("default config missing spotify redirect URI")
	}
	if config.Credentials.AppleMusic.Storefront != "us" {
		t.Errorf("default storefront = %q, want us", config.Credentials.AppleMusic.Storefront)
	}

	spotify, ok := config.Providers["spotify"]
	if !ok {
		t.Fatal("default config missing spotify provider limits")
	}
	if spotify.MaxRequests != 100 || spotify.WindowSeconds != 60 {
		t.Errorf("spotify limits = %d/%ds", spotify.MaxRequests, spotify.WindowSeconds)
	}

	apple, ok := config.Providers["apple_music"]
	if !ok {
		t.Fatal("default config missing apple_music provider limits")
	}
	if apple.MaxRequests != 333 {
		t.Errorf("apple_music ceiling = %d, want 333", apple.MaxRequests)
	}

	if config.Matcher.FuzzyThreshold != 0.75 {
		t.Errorf("fuzzy threshold = %f, want 0.75", config.Matcher.FuzzyThreshold)
	}
	if config.Matcher.DurationToleranceSeconds != 3 {
		t.Errorf("duration tolerance = %d, want 3", config.Matcher.DurationToleranceSeconds)
	}
	if config.Sync.Workers != 4 {
		t.Errorf("sync workers = %d, want 4", config.Sync.Workers)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[credentials.spotify]
client_id = "abc"
client_secret = "def"

[providers.spotify]
max_requests = 50
window_seconds = 30

[database]
path = "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if config.Credentials.Spotify.ClientID != "abc" {
		t.Errorf("client_id = %q", config.Credentials.Spotify.ClientID)
	}
	if config.Providers["spotify"].MaxRequests != 50 {
		t.Errorf("max_requests = %d", config.Providers["spotify"].MaxRequests)
	}
	if got := config.Providers["spotify"].Window().Seconds(); got != 30 {
		t.Errorf("window = %fs", got)
	}
	if config.Database.Path != "test.db" {
		t.Errorf("database path = %q", config.Database.Path)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
		t.Error("expected error for missing file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	os.WriteFile(path, []byte("not [valid toml"), 0644)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestSpotifyConfigTokens(t *testing.T) {
	var spotify SpotifyConfig

	if spotify.Token() != nil {
		t.Error("empty config should have no token")
	}

	if err := spotify.Update(&oauth2.Token{}); err == nil {
		t.Error("expected error for empty token")
	}

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	err := spotify.Update(&oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       expiry,
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	token := spotify.Token()
	if token == nil {
		t.Fatal("expected rebuilt token")
	}
	if token.AccessToken != "access" || token.RefreshToken != "refresh" {
		t.Errorf("token fields lost: %+v", token)
	}
	if !token.Expiry.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", token.Expiry, expiry)
	}
}

func TestSaveConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	config := DefaultConfig()
	config.Credentials.Spotify.ClientID = "abc"
	config.Credentials.Spotify.AccessToken = "tok"

	if err := SaveConfig(path, config); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("saved config should parse: %v", err)
	}
	if loaded.Credentials.Spotify.ClientID != "abc" {
		t.Errorf("client_id = %q", loaded.Credentials.Spotify.ClientID)
	}
	if loaded.Credentials.Spotify.AccessToken != "tok" {
		t.Errorf("access_token = %q", loaded.Credentials.Spotify.AccessToken)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestCreateConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("CreateConfigFile() error: %v", err)
	}

	if _, err := LoadConfig(path); err != nil {
		t.Errorf("created config should parse: %v", err)
	}

	if err := CreateConfigFile(path); err == nil {
		t.Error("expected error when config already exists")
	}
}
