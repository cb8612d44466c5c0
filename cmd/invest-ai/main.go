package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range commands(os.Stdout, os.Stderr) {
		commander.Register(c, "calculation")
	}
	commander.Register(&versionCmd{stdout: os.Stdout}, "")

	flag.StringVar(&configPath, "config", "", "Path to invest-ai.toml (default: $INVESTAI_CONFIG, then next to the binary)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()

	os.Exit(int(status))
}
