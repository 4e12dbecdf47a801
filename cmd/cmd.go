// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles configuration and database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize configuration, database, and migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles provider authentication.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Provider authentication",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SpotifyAuth,
			},
			{
				Name:   "status",
				Usage:  "Show which providers are configured and authenticated",
				Action: r.AuthStatus,
			},
		},
	}
}

// spotifyCommand handles Spotify playlist operations.
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List Spotify playlists",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:  "export",
				Usage: "Export a playlist with all tracks",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format (json, csv, txt)",
						Value: "json",
					},
				},
				Action: r.SpotifyExport,
			},
		},
	}
}

// applemusicCommand handles Apple Music catalog operations.
func applemusicCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "applemusic",
		Aliases: []string{"am"},
		Usage:   "Apple Music catalog operations",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "Search the Apple Music catalog",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "isrc",
						Usage: "Search by ISRC instead of free text",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AppleMusicSearch,
			},
		},
	}
}

// syncCommand handles playlist sync operations.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync playlists from Spotify to Apple Music",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a full Spotify to Apple Music playlist sync",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Source playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "dest",
						Usage: "Existing destination playlist ID (created when omitted)",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Name for the created destination playlist",
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "User ID recorded on the task",
						Value: "local",
					},
					&cli.BoolFlag{
						Name:  "include-unavailable",
						Usage: "Keep unmatched tracks in status output and reports",
						Value: true,
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "status",
				Usage: "Show the state of a sync task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task_id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncStatus,
			},
			{
				Name:  "history",
				Usage: "List past sync tasks, newest first",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "user",
						Usage: "User ID to list tasks for",
						Value: "local",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tasks to return",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncHistory,
			},
			{
				Name:  "report",
				Usage: "Write a per-track report for a finished sync task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task_id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Report format (csv, markdown, txt, json)",
						Value: "txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.SyncReport,
			},
			{
				Name:  "cancel",
				Usage: "Cancel a pending or running sync task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task_id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.SyncCancel,
			},
		},
	}
}

// serveCommand starts the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the sync HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (overrides config)",
			},
		},
		Action: r.Serve,
	}
}
