package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"dmo/internal/backend"
	"dmo/internal/cli"
	"dmo/internal/services"
)

var CLI struct {
	Version kong.VersionFlag
	Db      string `help:"SQLite database path." env:"DMO_DB" type:"path" default:"~/.dmo/dmo.db"`

	Create  cli.CreateCmd  `cmd:"" help:"Create a new DMO."`
	List    cli.ListCmd    `cmd:"" help:"List DMOs."`
	Done    cli.DoneCmd    `cmd:"" help:"Mark a DMO completed for a date."`
	Miss    cli.MissCmd    `cmd:"" help:"Mark a DMO explicitly not completed for a date."`
	Today   cli.TodayCmd   `cmd:"" help:"Show the daily report." default:"1"`
	Month   cli.MonthCmd   `cmd:"" help:"Show monthly reports."`
	Summary cli.SummaryCmd `cmd:"" help:"Summarize a DMO over a date range."`
	Delete  cli.DeleteCmd  `cmd:"" help:"Delete a DMO and all its history."`
	Activity struct {
		Add  cli.ActivityAddCmd  `cmd:"" help:"Add an activity to a DMO."`
		List cli.ActivityListCmd `cmd:"" help:"List a DMO's activities."`
	} `cmd:"" help:"Manage activities."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("dmo"),
		kong.Description("Daily Method of Operation tracker"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	// Keep CLI output clean: only warnings and errors reach the terminal.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, backend.Config{
		Type:         backend.SQLiteBackend,
		SQLiteDBPath: CLI.Db,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	appCtx := &cli.Context{
		Ctx:     ctx,
		Service: services.NewDmoService(result.Backend, nil, logger),
		Out:     os.Stdout,
	}

	if err := kctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
