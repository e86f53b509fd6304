// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/repositories"
)

func kindNames() string {
	names := make([]string, len(models.Kinds))
	for i, k := range models.Kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

// setupCommand handles setup operations for config and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file if missing, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Print applied migrations instead of running setup",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration",
			},
			&cli.StringFlag{
				Name:  "client-id",
				Usage: "Trakt application client ID to store in the config file",
			},
			&cli.StringFlag{
				Name:  "client-secret",
				Usage: "Trakt application client secret to store in the config file",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles the Trakt session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Trakt session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Trakt using OAuth2",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check whether the stored Trakt session is still valid",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Revoke and forget the stored Trakt session",
				Action: r.AuthLogout,
			},
		},
	}
}

// queueCommand manages pending local mutations
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Inspect and schedule pending sync items",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Schedule items for the next sync (kinds: " + kindNames() + ")",
				ArgsUsage: "<kind> <trakt-id>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "clear-progress",
						Usage: "Clear the show's remote watch history before exporting these episodes",
					},
					&cli.Int64Flag{
						Name:  "show",
						Usage: "Trakt ID of the parent show (required with --clear-progress)",
					},
					&cli.StringFlag{
						Name:  "at",
						Usage: "Local mutation time in RFC 3339 format (default: now)",
					},
				},
				Action: r.QueueAdd,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List pending items",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Usage:   "Only list items of this kind (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the queue as CSV to this file",
					},
				},
				Action: r.QueueList,
			},
			{
				Name:   "count",
				Usage:  "Count pending items per kind",
				Action: r.QueueCount,
			},
			{
				Name:  "clear",
				Usage: "Remove every pending item without exporting it",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the removal",
					},
				},
				Action: r.QueueClear,
			},
		},
	}
}

// syncCommand runs the export
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Export all pending items to Trakt",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the run summary as JSON",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Do not log per-batch progress",
			},
		},
		Action: r.Sync,
	}
}

// settingsCommand toggles persisted features
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change feature toggles",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Show every setting",
				Action: r.SettingsList,
			},
			{
				Name:      "get",
				Usage:     "Print the effective value of one setting",
				ArgsUsage: "<key>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Action: r.SettingsGet,
			},
			{
				Name:      "set",
				Usage:     "Change a setting (" + strings.Join(repositories.SettingKeys, ", ") + ")",
				ArgsUsage: "<key> <true|false>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Action: r.SettingsSet,
			},
		},
	}
}

// historyCommand shows recorded sync runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: table, json, csv or md",
				Value: "table",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to this file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command for interactive syncing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI to review the queue and run a sync",
		Action:  r.TUI,
	}
}
