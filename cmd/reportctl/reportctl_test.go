package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-reports-dashboard/components/dashboard"
	"github.com/goliatone/go-reports-dashboard/pkg/config"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Log.Level = "error"

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestParseCommands(t *testing.T) {
	var c cli
	parser, err := kong.New(&c, kong.Name("reportctl"))
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{"export", "--user", "u-1", "--report", "r-1", "--out", "-"})
	require.NoError(t, err)
	assert.Equal(t, "export", kctx.Command())
	assert.Equal(t, "u-1", c.Export.User)
	assert.Equal(t, "r-1", c.Export.Report)

	_, err = parser.Parse([]string{"inspect"})
	assert.Error(t, err, "--user is required")
}

func TestInspectPrintsStoredDocument(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.store.Put(ctx, "u-1", dashboard.Document{
		Layouts: dashboard.Layouts{dashboard.BreakpointLarge: {
			{ID: "r-1", W: 4, H: 4},
			{ID: "r-404", X: 4, W: 4, H: 4},
		}},
		Reports: map[string]dashboard.Report{
			"r-1": {DataSource: dashboard.DataSourceCompanies, Visualization: dashboard.VisualizationPie, Title: "Companies"},
		},
		Version: 7,
	}))

	var out bytes.Buffer
	require.NoError(t, inspect(ctx, a.store, "u-1", &out))

	var view inspection
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &view))
	assert.True(t, view.Found)
	assert.Equal(t, uint64(7), view.Version)
	assert.Equal(t, []string{"r-404"}, view.Orphans)
	assert.Equal(t, "Companies", view.Reports["r-1"].Title)
}

func TestInspectMissingDocument(t *testing.T) {
	a := newTestApp(t)
	var out bytes.Buffer
	require.NoError(t, inspect(context.Background(), a.store, "nobody", &out))
	assert.Contains(t, out.String(), "found: false")
}

func TestRepairRemovesOrphans(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.store.Put(ctx, "u-1", dashboard.Document{
		Layouts: dashboard.Layouts{dashboard.BreakpointLarge: {
			{ID: "r-1", W: 4, H: 4},
			{ID: "r-404", X: 4, W: 4, H: 4},
		}},
		Reports: map[string]dashboard.Report{
			"r-1": {DataSource: dashboard.DataSourceGraduates, Visualization: dashboard.VisualizationBar},
		},
	}))

	preview, err := repair(ctx, a.service, a.notifier, "u-1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"r-404"}, preview)

	removed, err := repair(ctx, a.service, a.notifier, "u-1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"r-404"}, removed)

	doc, err := a.store.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, doc.Layouts[dashboard.BreakpointLarge], 1)
	assert.Empty(t, dashboard.Dashboard{Layouts: doc.Layouts, Reports: doc.Reports}.Orphans())
}

func TestExportWritesCSV(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	item, err := a.service.AddReport(ctx, dashboard.ViewerContext{UserID: "u-1"}, dashboard.Report{
		DataSource:    dashboard.DataSourceApplications,
		Visualization: dashboard.VisualizationCount,
		Title:         "Applications",
	})
	require.NoError(t, err)

	var stdout bytes.Buffer
	path, err := export(ctx, a.service, "u-1", item.ID, "-", &stdout)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.True(t, strings.HasPrefix(stdout.String(), "name,value\n"))

	dest := filepath.Join(t.TempDir(), "out", "apps.csv")
	path, err = export(ctx, a.service, "u-1", item.ID, dest, &stdout)
	require.NoError(t, err)
	assert.Equal(t, dest, path)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, stdout.String(), string(data))

	_, err = export(ctx, a.service, "u-1", "missing", "-", &stdout)
	assert.ErrorIs(t, err, dashboard.ErrReportNotFound)
}
