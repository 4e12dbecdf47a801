package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/ratelimit"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/services"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := "config.toml"
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	factory := newServiceFactory(config, newLimiter(config))

	var spotifyService services.Service
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := factory(context.Background(), services.ProviderSpotify); err == nil {
			spotifyService = svc
		} else {
			logger.Warn("spotify service unavailable", "error", err)
		}
	}

	var appleMusicService services.Service
	if config.Credentials.AppleMusic.KeyID != "" {
		if svc, err := factory(context.Background(), services.ProviderAppleMusic); err == nil {
			appleMusicService = svc
		} else {
			logger.Warn("apple music service unavailable", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Spotify:    spotifyService,
		AppleMusic: appleMusicService,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "spamsync",
		Usage:    "Sync playlists from Spotify to Apple Music",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// newServiceFactory builds provider clients keyed by provider id, sharing one
// rate limiter and loading stored credentials from the config.
func newServiceFactory(config *shared.Config, limiter *ratelimit.Limiter) services.Factory {
	return func(ctx context.Context, providerID string) (services.Service, error) {
		switch providerID {
		case services.ProviderSpotify:
			svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map(), limiter)
			if err != nil {
				return nil, err
			}
			if token := config.Credentials.Spotify.Token(); token != nil {
				svc.SetToken(ctx, token)
			}
			return svc, nil

		case services.ProviderAppleMusic:
			svc, err := services.NewAppleMusicService(config.Credentials.AppleMusic, limiter)
			if err != nil {
				return nil, err
			}
			if userToken := config.Credentials.AppleMusic.MusicUserToken; userToken != "" {
				if err := svc.Authenticate(ctx, map[string]string{"music_user_token": userToken}); err != nil {
					return nil, err
				}
			}
			return svc, nil

		default:
			return nil, fmt.Errorf("%w: unknown provider %q", shared.ErrInvalidArgument, providerID)
		}
	}
}

// newLimiter builds the provider rate limiter from the configured ceilings.
func newLimiter(config *shared.Config) *ratelimit.Limiter {
	configs := map[string]ratelimit.Config{}
	for id, provider := range config.Providers {
		if provider.MaxRequests > 0 && provider.WindowSeconds > 0 {
			configs[id] = ratelimit.Config{
				MaxRequests: provider.MaxRequests,
				Window:      provider.Window(),
			}
		}
	}
	return ratelimit.New(configs)
}
