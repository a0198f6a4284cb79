// Package cmd wires the superlifter CLI: a daemon serving the scheduler
// over JSON-RPC, and a local demo exercising the batching core.
package cmd

import (
	"fmt"

	"github.com/urfave/cli"
)

// BuildArgs carries build-time metadata injected by the linker.
type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// Execute runs the CLI with the given arguments.
func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:        "superlifter",
		HelpName:    "superlifter",
		Usage:       "a request-batching scheduler for asynchronous fetches",
		Version:     fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:   "superlifter <command> [arguments...]",
		Description: Description,
		Commands: []cli.Command{
			{
				Name:        "serve",
				Usage:       "run the batching daemon",
				Description: ServeDescription,
				Action:      serve,
				Flags:       serveFlags,
			},
			{
				Name:        "demo",
				Usage:       "run a local batching demonstration",
				Description: DemoDescription,
				Action:      demo,
				Flags:       demoFlags,
			},
			{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "prints the installed version",
				Action: func(ctx *cli.Context) error {
					fmt.Printf("superlifter %s-%s\n", bArgs.Version, bArgs.BuildType)
					return nil
				},
			},
		},
	}
	return app.Run(args)
}
