package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// Globals are flags shared by every command.
type Globals struct {
	Config   string `short:"c" type:"path" env:"REPORTBOARD_CONFIG" help:"Path to reportboard.yaml (defaults to ./, ./configs, /etc/reportboard)."`
	LogLevel string `name:"log-level" help:"Override log.level (debug, info, warn, error)."`
}

type cli struct {
	Globals

	Serve   serveCmd   `cmd:"" help:"Run the report dashboard HTTP API."`
	Inspect inspectCmd `cmd:"" help:"Print the stored dashboard of a user as YAML."`
	Repair  repairCmd  `cmd:"" help:"Drop layout entries that reference missing reports."`
	Export  exportCmd  `cmd:"" help:"Write the dataset behind a report as CSV."`
	Catalog catalogCmd `cmd:"" help:"List the selectable data sources and visualizations."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("reportctl"),
		kong.Description("Operate per-user report dashboards."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&c.Globals)
	kctx.FatalIfErrorf(err)
}
