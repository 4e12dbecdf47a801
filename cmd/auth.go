package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/server"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/services"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// SpotifyAuth performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens, which are saved back to the config.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		var err error
		if _, statErr := os.Stat(configPath); statErr == nil {
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warnf("failed to load config, using defaults %v", err)
				config = shared.DefaultConfig()
			}
		} else {
			config = shared.DefaultConfig()
		}
	}

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrInvalidArgument)
	}

	spotifyService, ok := r.spotify.(*services.SpotifyService)
	if !ok || spotifyService == nil {
		var err error
		if spotifyService, err = services.NewSpotifyService(config.Credentials.Spotify.Map(), nil); err != nil {
			return fmt.Errorf("failed to create Spotify service: %w", err)
		}
	}

	token, err := r.doOAuth(config, spotifyService)
	if err != nil {
		return err
	}

	if err := config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	spotifyService.SetToken(ctx, token)
	r.spotify = spotifyService
	r.config = config

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: spamsync sync run --source <playlist-id>\n")

	return nil
}

// AuthStatus reports which providers are configured and hold credentials.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("Provider Status")

	if r.spotify == nil {
		r.writePlain("Spotify:     ✗ not configured\n")
	} else if r.config.Credentials.Spotify.AccessToken == "" {
		r.writePlain("Spotify:     ⚠ configured, not authenticated (run 'spamsync auth spotify')\n")
	} else {
		r.writePlain("Spotify:     ✓ authenticated\n")
	}

	if r.appleMusic == nil {
		r.writePlain("Apple Music: ✗ not configured\n")
	} else if r.config.Credentials.AppleMusic.MusicUserToken == "" {
		r.writePlain("Apple Music: ⚠ developer key configured, music_user_token missing\n")
	} else {
		r.writePlain("Apple Music: ✓ configured\n")
	}

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server.
func (r *Runner) doOAuth(config *shared.Config, spotifyService *services.SpotifyService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	authURL := spotifyService.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(spotifyService.OAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("authorization timed out after 2 minutes")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
