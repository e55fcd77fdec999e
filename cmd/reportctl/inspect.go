package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-reports-dashboard/components/dashboard"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/queries"
)

type inspectCmd struct {
	User string `required:"" help:"User whose dashboard to print."`
}

type repairCmd struct {
	User   string `required:"" help:"User whose dashboard to repair."`
	DryRun bool   `name:"dry-run" help:"Only list the orphaned layout entries."`
}

type exportCmd struct {
	User   string `required:"" help:"Owner of the report."`
	Report string `required:"" help:"Report id to export."`
	Out    string `help:"Destination file; '-' writes to stdout. Defaults to the suggested file name."`
}

type catalogCmd struct{}

// inspection is the YAML view printed by inspect.
type inspection struct {
	UserID  string                      `yaml:"user_id"`
	Found   bool                        `yaml:"found"`
	Version uint64                      `yaml:"version"`
	Layouts dashboard.Layouts           `yaml:"layouts"`
	Reports map[string]dashboard.Report `yaml:"reports"`
	Orphans []string                    `yaml:"orphans,omitempty"`
}

func (c *inspectCmd) Run(ctx context.Context, g *Globals) error {
	a, err := newApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return inspect(ctx, a.store, c.User, os.Stdout)
}

func inspect(ctx context.Context, store dashboard.LayoutStore, userID string, w io.Writer) error {
	doc, err := store.Get(ctx, userID)
	found := true
	switch {
	case errors.Is(err, dashboard.ErrDocumentNotFound):
		found = false
		doc = dashboard.Document{Layouts: dashboard.Layouts{}, Reports: map[string]dashboard.Report{}}
	case err != nil:
		return err
	}
	view := inspection{
		UserID:  userID,
		Found:   found,
		Version: doc.Version,
		Layouts: doc.Layouts,
		Reports: doc.Reports,
		Orphans: dashboard.Dashboard{Layouts: doc.Layouts, Reports: doc.Reports}.Orphans(),
	}
	return encodeYAML(w, view)
}

func (c *repairCmd) Run(ctx context.Context, g *Globals) error {
	a, err := newApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	removed, err := repair(ctx, a.service, a.notifier, c.User, c.DryRun)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Fprintf(os.Stdout, "dashboard of %s has no orphaned entries\n", c.User)
		return nil
	}
	verb := "removed"
	if c.DryRun {
		verb = "would remove"
	}
	fmt.Fprintf(os.Stdout, "%s %d orphaned entries from %s: %v\n", verb, len(removed), c.User, removed)
	return nil
}

// repair drops orphaned layout entries and waits for the single write to
// settle, surfacing a failed write as an error.
func repair(ctx context.Context, service *dashboard.Service, notifier *dashboard.BroadcastNotifier, userID string, dryRun bool) ([]string, error) {
	ctrl, err := service.Session(ctx, dashboard.ViewerContext{UserID: userID})
	if err != nil {
		return nil, err
	}
	if dryRun {
		return ctrl.Orphans(), nil
	}
	events, cancel := notifier.Subscribe(userID)
	defer cancel()

	removed, err := ctrl.Repair(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Flush(ctx); err != nil {
		return nil, err
	}
	for {
		select {
		case n := <-events:
			if n.Level == dashboard.NotificationError {
				return nil, fmt.Errorf("reportctl: repair write failed: %w", n.Err)
			}
		default:
			return removed, nil
		}
	}
}

func (c *exportCmd) Run(ctx context.Context, g *Globals) error {
	a, err := newApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	path, err := export(ctx, a.service, c.User, c.Report, c.Out, os.Stdout)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	}
	return nil
}

// export writes the CSV of reportID to out, or to the suggested file name
// when out is empty. It returns the written path, empty for stdout.
func export(ctx context.Context, service *dashboard.Service, userID, reportID, out string, stdout io.Writer) (string, error) {
	var buf bytes.Buffer
	filename, err := service.Export(ctx, dashboard.ViewerContext{UserID: userID}, reportID, &buf)
	if err != nil {
		return "", err
	}
	if out == "-" {
		_, err := stdout.Write(buf.Bytes())
		return "", err
	}
	if out == "" {
		out = filename
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("reportctl: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("reportctl: write %s: %w", out, err)
	}
	return out, nil
}

func (c *catalogCmd) Run(ctx context.Context) error {
	view, err := queries.NewCatalogQuery(dashboard.DefaultCatalog()).Query(ctx, struct{}{})
	if err != nil {
		return err
	}
	return encodeYAML(os.Stdout, view)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("reportctl: encode yaml: %w", err)
	}
	return enc.Close()
}
