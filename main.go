package main

import (
	"context"
	stdlog "log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Roguelazer/advsearch/cmd"
	"github.com/Roguelazer/advsearch/pkg/config"
	"github.com/Roguelazer/advsearch/pkg/log"
)

func main() {
	app := &cli.Command{
		Name:  "advsearch",
		Usage: "Federated full-text search over pluggable backends",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			log.SetGlobalDebug(c.Bool("debug"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.ServeCommand(),
			cmd.SearchCommand(),
			cmd.IndexCommand(),
			cmd.DeleteCommand(),
			cmd.ProvidersCommand(),
			cmd.StatsCommand(),
			cmd.VersionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		stdlog.Fatal(err)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		stdlog.Fatalf("Failed to get default config path: %v", err)
	}
	return path
}
