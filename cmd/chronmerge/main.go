package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/MikeSquared-Agency/chronmerge/internal/config"
	"github.com/MikeSquared-Agency/chronmerge/internal/reconcile"
)

func main() {
	cfg := config.Load()

	app := &cli.App{
		Name:      "chronmerge",
		Usage:     "merge chat history files or directories into one ordered, deduplicated log",
		ArgsUsage: "SRC1 SRC2 [OUT]",
		Description: "SRC1 and SRC2 must both be files or both be directories.\n" +
			"If OUT is omitted the merge is done in place, into SRC1.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Value:   cfg.LogLevel,
				EnvVars: []string{"CHRONMERGE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "log format (text, json)",
				Value:   cfg.LogFormat,
				EnvVars: []string{"CHRONMERGE_LOG_FORMAT"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("chronmerge failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		cli.ShowAppHelp(c)
		return fmt.Errorf("expected SRC1 SRC2 [OUT], got %d arguments", c.NArg())
	}

	setupLogging(c.String("log-level"), c.String("log-format"))

	out := ""
	if c.NArg() == 3 {
		out = c.Args().Get(2)
	}

	rec := reconcile.New(slog.Default())
	return rec.Run(c.Args().Get(0), c.Args().Get(1), out)
}

func setupLogging(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
