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

// setupCommand initializes the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.SetupDatabase,
	}
}

// serveCommand runs the HTTP API and the background sweep.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the translation task service",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

// tasksCommand handles task inspection and expiry from the terminal.
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Inspect and manage translation tasks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks, newest first",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by task status",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tasks to return",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.TasksList,
			},
			{
				Name:  "show",
				Usage: "Show a single task",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.TasksShow,
			},
			{
				Name:  "expire",
				Usage: "Expire one or more tasks and release their files",
				Arguments: []cli.Argument{
					&cli.StringArgs{
						Name: "ids",
						Max:  -1,
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "older-than",
						Usage: "Expire all terminal tasks older than this many hours",
					},
				},
				Action: r.TasksExpire,
			},
		},
	}
}

// cacheCommand handles translation cache maintenance.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Translation cache operations",
		Commands: []*cli.Command{
			{
				Name:  "lookup",
				Usage: "Look up a cached translation",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "text",
						Usage:    "Source text to look up",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "lang",
						Usage:    "Target language",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Record type filter",
					},
					&cli.StringFlag{
						Name:     "subtype",
						Usage:    "Subrecord type",
						Required: true,
					},
				},
				Action: r.CacheLookup,
			},
		},
	}
}

// tuiCommand launches the task monitor dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive task monitor",
		Flags:  []cli.Flag{configFlag()},
		Action: r.TUI,
	}
}
