package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig         `toml:"credentials"`
	Providers   map[string]ProviderConfig `toml:"providers"`
	Matcher     MatcherConfig             `toml:"matcher"`
	Sync        SyncConfig                `toml:"sync"`
	Database    DatabaseConfig            `toml:"database"`
	Server      ServerConfig              `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify    SpotifyConfig    `toml:"spotify"`
	AppleMusic AppleMusicConfig `toml:"apple_music"`
}

// SpotifyConfig contains Spotify API credentials. The token fields are
// written back after a successful OAuth flow.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token,omitempty"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	TokenExpiry  time.Time `toml:"token_expiry,omitempty"`
}

// Map flattens the client credentials for service construction.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Update stores a freshly acquired OAuth token on the config.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredentials)
	}
	s.AccessToken = token.AccessToken
	s.RefreshToken = token.RefreshToken
	s.TokenExpiry = token.Expiry
	return nil
}

// Token rebuilds the stored OAuth token, or nil when no token is saved.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Expiry:       s.TokenExpiry,
	}
}

// AppleMusicConfig contains Apple Music API credentials.
//
// KeyID, TeamID, and the private key sign the developer token (ES256 JWT).
// The storefront scopes catalog searches to a region.
type AppleMusicConfig struct {
	KeyID          string `toml:"key_id"`
	TeamID         string `toml:"team_id"`
	PrivateKeyPath string `toml:"private_key_path"`
	Storefront     string `toml:"storefront"`

	// MusicUserToken authorizes library writes (playlist creation, adds).
	// Obtained through MusicKit on a user device and pasted into the config.
	MusicUserToken string `toml:"music_user_token,omitempty"`
}

// ProviderConfig contains the per-provider rate limit ceiling.
type ProviderConfig struct {
	MaxRequests   int `toml:"max_requests"`
	WindowSeconds int `toml:"window_seconds"`
}

// Window returns the configured rolling window as a duration.
func (p ProviderConfig) Window() time.Duration {
	return time.Duration(p.WindowSeconds) * time.Second
}

// MatcherConfig contains track matching thresholds.
type MatcherConfig struct {
	FuzzyThreshold           float64 `toml:"fuzzy_threshold"`
	DurationToleranceSeconds int     `toml:"duration_tolerance_seconds"`
}

// DurationTolerance returns the fuzzy-match duration tolerance as a duration.
func (m MatcherConfig) DurationTolerance() time.Duration {
	return time.Duration(m.DurationToleranceSeconds) * time.Second
}

// SyncConfig contains sync engine tuning.
type SyncConfig struct {
	Workers      int     `toml:"workers"`
	DispatchRate float64 `toml:"dispatch_rate"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration back to the given path, preserving
// file permissions suitable for stored credentials.
func SaveConfig(path string, config *Config) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
