package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func newApp() *cli.Command {
	return &cli.Command{
		EnableShellCompletion: true,
		Suggest:               true,
		Name:                  "vegaorm",
		Version:               Version,
		Usage:                 "vegaorm [command]",
		Description:           `Inspect tables and keep them in sync with JSON model declarations on SQLite, PostgreSQL and MySQL`,
		DefaultCommand:        "help",
		Flags:                 globalFlags(),
		Commands:              commands(),
	}
}

func main() {
	cmd := newApp()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
