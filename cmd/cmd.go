// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/genie/internal/formatter"
	"github.com/urfave/cli/v3"
)

func outputFlags(prettyDefault bool) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: prettyDefault,
		},
	}
}

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml populated with defaults",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles sign-in and the stored session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in through the browser and store the session",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser redirect",
						Value: defaultLoginTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the sign-in URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "token",
				Usage:  "Print a current bearer token, refreshing it if needed",
				Action: r.AuthToken,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in principal and backend health",
				Flags:  outputFlags(true),
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: r.AuthLogout,
			},
		},
	}
}

// plansCommand handles meal plan generation jobs
func plansCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "plans",
		Aliases: []string{"plan", "mp"},
		Usage:   "Meal plan operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List meal plans, newest first",
				Flags: append(outputFlags(false),
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "Read the local cache instead of the backend",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show plans with this status (pending, completed, error)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of plans to show",
					},
				),
				Action: r.PlansList,
			},
			{
				Name:  "get",
				Usage: "Show a meal plan",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  outputFlags(true),
				Action: r.PlansGet,
			},
			{
				Name:  "create",
				Usage: "Request a new meal plan",
				Flags: append(outputFlags(true),
					&cli.StringFlag{
						Name:     "start",
						Usage:    "First day, YYYY-MM-DD",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "end",
						Usage: "Last day, YYYY-MM-DD (default: start)",
					},
					&cli.StringSliceFlag{
						Name:    "meal",
						Aliases: []string{"m"},
						Usage:   "Meal type to include (Breakfast, Lunch, Dinner, Snack)",
						Value:   []string{"Breakfast", "Lunch", "Dinner"},
					},
					&cli.StringSliceFlag{
						Name:  "diet",
						Usage: "Dietary preference, e.g. vegetarian",
					},
					&cli.StringSliceFlag{
						Name:  "restriction",
						Usage: "Dietary restriction, e.g. nut-free",
					},
					&cli.StringSliceFlag{
						Name:  "cuisine",
						Usage: "Cuisine, e.g. italian",
					},
					&cli.StringSliceFlag{
						Name:  "complexity",
						Usage: "Complexity level: simple, moderate, complex, gourmet",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Wait for generation to finish",
					},
				),
				Action: r.PlansCreate,
			},
			{
				Name:  "watch",
				Usage: "Wait for a pending meal plan to finish",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlansWatch,
			},
			{
				Name:  "export",
				Usage: "Export meal plans to files",
				Arguments: []cli.Argument{
					&cli.StringArgs{Name: "ids", Min: 0, Max: -1},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: " + strings.Join(formatter.Formats, ", "),
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: meal_plans_export_{timestamp})",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every plan",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 4,
					},
				},
				Action: r.PlansExport,
			},
		},
	}
}

// chatsCommand handles "Ask Genie" conversations
func chatsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "chats",
		Aliases: []string{"chat", "ask"},
		Usage:   "Ask Genie conversations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List chats",
				Flags: append(outputFlags(false),
					&cli.StringFlag{
						Name:  "order-by",
						Usage: "Sort key: updatedAt or createdAt",
						Value: "updatedAt",
					},
				),
				Action: r.ChatsList,
			},
			{
				Name:  "get",
				Usage: "Show a chat and its messages",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  outputFlags(true),
				Action: r.ChatsGet,
			},
			{
				Name:   "create",
				Usage:  "Start a new chat",
				Flags:  outputFlags(true),
				Action: r.ChatsCreate,
			},
			{
				Name:  "delete",
				Usage: "Delete a chat",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.ChatsDelete,
			},
			{
				Name:  "send",
				Usage: "Send a message to Genie",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "message"},
				},
				Flags:  outputFlags(true),
				Action: r.ChatsSend,
			},
		},
	}
}

// cacheCommand handles the local meal plan cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and prune the local meal plan cache",
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Fetch every plan from the backend into the cache",
				Action: r.CacheSync,
			},
			{
				Name:  "forget",
				Usage: "Remove a plan from the cache",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.CacheForget,
			},
		},
	}
}

// apiCommand handles direct backend calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct authenticated calls to the backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive meal plan and chat TUI",
		Action:  r.TUI,
	}
}
