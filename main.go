package main

import (
	"context"
	"os"

	"github.com/martinsuchenak/camdash/cmd/probe"
	"github.com/martinsuchenak/camdash/cmd/report"
	"github.com/martinsuchenak/camdash/cmd/server"
	"github.com/martinsuchenak/camdash/internal/log"
	"github.com/paularlott/cli"
	"github.com/paularlott/cli/env"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists
	env.Load()

	// Initialize structured logging
	log.Configure("info", "console")

	rootCmd := &cli.Command{
		Name:        "camdash",
		Version:     version,
		Usage:       "Camera and NVR inventory dashboard",
		Description: "Reads the camera/NVR inventory from a Google Sheet or an uploaded spreadsheet and reports age alerts, coverage, status and firmware",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "log-level",
				Usage:        "Log level (trace, debug, info, warn, error)",
				DefaultValue: "info",
				EnvVars:      []string{"CAMDASH_LOG_LEVEL"},
				Global:       true,
			},
			&cli.StringFlag{
				Name:         "log-format",
				Usage:        "Log format (console, json)",
				DefaultValue: "console",
				EnvVars:      []string{"CAMDASH_LOG_FORMAT"},
				Global:       true,
			},
		},
		PreRun: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.Configure(cmd.GetString("log-level"), cmd.GetString("log-format"))
			log.Debug("Starting camdash", "version", version, "commit", commit, "date", date)
			return ctx, nil
		},
		Commands: []*cli.Command{
			server.Command(),
			report.Command(),
			probe.Command(),
		},
	}

	if err := rootCmd.Execute(context.Background()); err != nil {
		log.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
