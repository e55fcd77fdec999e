package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"go.uber.org/zap"
)

const defaultChartHeight = "360px"

// WidgetKind is the rendered variant of a widget.
type WidgetKind string

const (
	WidgetBar         WidgetKind = "bar"
	WidgetPie         WidgetKind = "pie"
	WidgetCount       WidgetKind = "count"
	WidgetCorrupted   WidgetKind = "corrupted"
	WidgetUnavailable WidgetKind = "unavailable"
)

// WidgetAction is a user action offered on a widget.
type WidgetAction string

const (
	ActionExport    WidgetAction = "export"
	ActionRemove    WidgetAction = "remove"
	ActionConfigure WidgetAction = "configure"
)

var (
	healthyActions = []WidgetAction{ActionExport, ActionRemove, ActionConfigure}
	removeOnly     = []WidgetAction{ActionRemove}
)

// Widget is the rendered output of one layout item.
type Widget struct {
	ID        string         `json:"id"`
	Item      LayoutItem     `json:"layout"`
	Report    *Report        `json:"report,omitempty"`
	Kind      WidgetKind     `json:"kind"`
	Title     string         `json:"title"`
	ChartHTML string         `json:"chartHtml,omitempty"`
	Count     float64        `json:"count,omitempty"`
	Points    []DataPoint    `json:"points,omitempty"`
	Actions   []WidgetAction `json:"actions"`
	Corrupted bool           `json:"corrupted"`
	Message   string         `json:"message,omitempty"`
}

// Allows reports whether the widget offers action.
func (w Widget) Allows(action WidgetAction) bool {
	for _, candidate := range w.Actions {
		if candidate == action {
			return true
		}
	}
	return false
}

type visualRenderer func(r *Renderer, report Report, points []DataPoint, w *Widget) error

var visualRenderers = map[Visualization]visualRenderer{
	VisualizationBar:   renderBar,
	VisualizationPie:   renderPie,
	VisualizationCount: renderCount,
}

// Renderer turns a layout item and its report into a Widget.
type Renderer struct {
	datasets   DatasetProvider
	cache      RenderCache
	theme      string
	assetsHost string
	logger     *zap.Logger
	telemetry  Telemetry
}

// RendererOption customizes a Renderer.
type RendererOption func(*Renderer)

// WithChartCache injects a render cache.
func WithChartCache(cache RenderCache) RendererOption {
	return func(r *Renderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the ECharts theme (defaults to Westeros).
func WithChartTheme(theme string) RendererOption {
	return func(r *Renderer) {
		if theme != "" {
			r.theme = theme
		}
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) RendererOption {
	return func(r *Renderer) {
		r.assetsHost = host
	}
}

// WithRendererLogger sets the logger.
func WithRendererLogger(logger *zap.Logger) RendererOption {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRendererTelemetry sets the telemetry sink.
func WithRendererTelemetry(t Telemetry) RendererOption {
	return func(r *Renderer) {
		r.telemetry = normalizeTelemetry(t)
	}
}

// NewRenderer builds a renderer reading datasets from provider.
func NewRenderer(provider DatasetProvider, options ...RendererOption) *Renderer {
	r := &Renderer{
		datasets:  provider,
		cache:     NewChartCache(5 * time.Minute),
		theme:     types.ThemeWesteros,
		logger:    zap.NewNop(),
		telemetry: noopTelemetry{},
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Render never fails: a nil report yields a corrupted placeholder and a
// dataset error yields an unavailable widget. Both only offer removal.
func (r *Renderer) Render(ctx context.Context, item LayoutItem, report *Report) Widget {
	widget := Widget{ID: item.ID, Item: item}
	if report == nil {
		r.logger.Warn("corrupted widget reference", zap.String("id", item.ID))
		r.telemetry.Record(ctx, EventWidgetCorrupted, map[string]any{"id": item.ID})
		widget.Kind = WidgetCorrupted
		widget.Corrupted = true
		widget.Title = "Corrupted widget"
		widget.Message = "This widget references a report that no longer exists."
		widget.Actions = removeOnly
		return widget
	}
	widget.Report = report
	widget.Title = report.Title

	render, ok := visualRenderers[report.Visualization]
	if !ok {
		return unavailable(widget, fmt.Sprintf("unsupported visualization %q", report.Visualization))
	}
	points, err := r.dataset(ctx, report.DataSource)
	if err != nil {
		r.logger.Error("dataset fetch failed",
			zap.String("id", item.ID),
			zap.String("data_source", string(report.DataSource)),
			zap.Error(err),
		)
		r.telemetry.Record(ctx, EventDatasetFailure, map[string]any{
			"id":          item.ID,
			"data_source": string(report.DataSource),
			"error":       err.Error(),
		})
		return unavailable(widget, "data is temporarily unavailable")
	}
	widget.Points = points
	if err := render(r, *report, points, &widget); err != nil {
		r.logger.Error("chart render failed", zap.String("id", item.ID), zap.Error(err))
		return unavailable(widget, "chart could not be rendered")
	}
	widget.Actions = healthyActions
	return widget
}

// Export writes the report dataset as CSV.
func (r *Renderer) Export(ctx context.Context, report Report, w io.Writer) error {
	points, err := r.dataset(ctx, report.DataSource)
	if err != nil {
		return err
	}
	return ExportCSV(w, points)
}

func (r *Renderer) dataset(ctx context.Context, source DataSource) ([]DataPoint, error) {
	if r.datasets == nil {
		return nil, fmt.Errorf("dashboard: no dataset provider for %s", source)
	}
	return r.datasets.Dataset(ctx, source)
}

func unavailable(widget Widget, message string) Widget {
	widget.Kind = WidgetUnavailable
	widget.Message = message
	widget.Actions = removeOnly
	widget.ChartHTML = ""
	return widget
}

func renderBar(r *Renderer, report Report, points []DataPoint, w *Widget) error {
	html, err := r.cached(w.ID, report, points, func() (string, error) {
		bar := charts.NewBar()
		bar.SetGlobalOptions(r.globalChartOptions(w.ID, report.Title)...)
		names := make([]string, len(points))
		data := make([]opts.BarData, len(points))
		for i, point := range points {
			names[i] = point.Name
			data[i] = opts.BarData{Name: point.Name, Value: point.Value}
		}
		bar.SetXAxis(names)
		bar.AddSeries(report.Title, data)
		return renderChart(bar)
	})
	if err != nil {
		return err
	}
	w.Kind = WidgetBar
	w.ChartHTML = html
	return nil
}

func renderPie(r *Renderer, report Report, points []DataPoint, w *Widget) error {
	html, err := r.cached(w.ID, report, points, func() (string, error) {
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalChartOptions(w.ID, report.Title)...)
		data := make([]opts.PieData, len(points))
		for i, point := range points {
			name := point.Name
			if name == "" {
				name = fmt.Sprintf("Slice %d", i+1)
			}
			data[i] = opts.PieData{Name: name, Value: point.Value}
		}
		pie.AddSeries(report.Title, data)
		return renderChart(pie)
	})
	if err != nil {
		return err
	}
	w.Kind = WidgetPie
	w.ChartHTML = html
	return nil
}

func renderCount(_ *Renderer, _ Report, points []DataPoint, w *Widget) error {
	w.Kind = WidgetCount
	w.Count = Total(points)
	return nil
}

// Total sums the values of points.
func Total(points []DataPoint) float64 {
	var sum float64
	for _, point := range points {
		sum += point.Value
	}
	return sum
}

func (r *Renderer) cached(widgetID string, report Report, points []DataPoint, render func() (string, error)) (string, error) {
	if r.cache == nil {
		return render()
	}
	return r.cache.Chart(widgetID, chartFingerprint(report, points, r.theme), render)
}

// Forget drops the cached chart of a removed widget.
func (r *Renderer) Forget(widgetID string) {
	if r.cache != nil {
		r.cache.Forget(widgetID)
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) globalChartOptions(widgetID, title string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		ChartID: chartElementID(widgetID),
		Theme:   r.theme,
		Width:   "100%",
		Height:  defaultChartHeight,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}
