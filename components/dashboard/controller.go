package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the lifecycle stage of a Controller.
type State int

const (
	StateLoading State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "loading"
}

// ConfigureFunc handles the configure action of a widget.
type ConfigureFunc func(ctx context.Context, id string, report Report) error

// ControllerOptions wires a Controller. UserID and Store are required.
type ControllerOptions struct {
	UserID       string
	Store        LayoutStore
	Renderer     *Renderer
	Validator    ReportValidator
	Notifier     Notifier
	Telemetry    Telemetry
	Logger       *zap.Logger
	WriteTimeout time.Duration
	IDGenerator  func() string
	Clock        func() time.Time
	Configure    ConfigureFunc
}

// Controller owns one user's dashboard: it loads it, applies add/remove/
// rearrange operations and sends every committed state to the store.
type Controller struct {
	opts   ControllerOptions
	writer *writeQueue

	mu        sync.Mutex
	state     State
	dash      Dashboard
	persisted Layouts
	version   uint64
}

// NewController builds a controller in the Loading state.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.UserID == "" {
		return nil, ErrMissingUser
	}
	if opts.Store == nil {
		return nil, ErrMissingStore
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Logger = opts.Logger.With(zap.String("user_id", opts.UserID))
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	opts.Notifier = normalizeNotifier(opts.Notifier)
	if opts.Validator == nil {
		opts.Validator = NewJSONSchemaValidator(DefaultCatalog())
	}
	if opts.Renderer == nil {
		opts.Renderer = NewRenderer(nil, WithRendererLogger(opts.Logger), WithRendererTelemetry(opts.Telemetry))
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = func() string { return "report-" + uuid.NewString() }
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	c := &Controller{
		opts:  opts,
		state: StateLoading,
		dash:  NewDashboard(),
	}
	c.writer = newWriteQueue(opts.Store, opts.UserID, opts.WriteTimeout, opts.Notifier, opts.Telemetry, opts.Logger)
	return c, nil
}

// UserID returns the owner of the dashboard.
func (c *Controller) UserID() string { return c.opts.UserID }

// State returns the current lifecycle stage.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load reads the dashboard from the store. A missing document yields an
// empty dashboard. Load never writes.
func (c *Controller) Load(ctx context.Context) error {
	doc, err := c.opts.Store.Get(ctx, c.opts.UserID)
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		doc = Document{UserID: c.opts.UserID}
	case err != nil:
		return fmt.Errorf("dashboard: load dashboard for %s: %w", c.opts.UserID, err)
	}

	dash := dashboardFromDocument(doc)
	c.reconcileLoaded(&dash)

	c.mu.Lock()
	c.dash = dash
	c.persisted = dash.Layouts.Clone()
	if doc.Version > c.version {
		c.version = doc.Version
	}
	c.state = StateReady
	c.mu.Unlock()

	orphans := dash.Orphans()
	if len(orphans) > 0 {
		c.opts.Logger.Warn("dashboard loaded with corrupted references", zap.Strings("ids", orphans))
	}
	c.opts.Telemetry.Record(ctx, EventLoad, map[string]any{
		"user_id": c.opts.UserID,
		"items":   len(dash.Layouts[BreakpointLarge]),
		"orphans": len(orphans),
	})
	return nil
}

// reconcileLoaded derives a missing lg layout and places reports that have
// no layout item, so every report stays reachable.
func (c *Controller) reconcileLoaded(dash *Dashboard) {
	if len(dash.Layouts[BreakpointLarge]) == 0 {
		for _, spec := range breakpoints[1:] {
			if items := dash.Layouts[spec.Name]; len(items) > 0 {
				dash.Layouts[BreakpointLarge] = append([]LayoutItem{}, items...)
				break
			}
		}
	}
	placed := make(map[string]struct{}, len(dash.Layouts[BreakpointLarge]))
	for _, item := range dash.Layouts[BreakpointLarge] {
		placed[item.ID] = struct{}{}
	}
	for _, id := range sortedReportIDs(dash.Reports) {
		if _, ok := placed[id]; ok {
			continue
		}
		c.opts.Logger.Warn("report without layout item", zap.String("id", id))
		placeItem(dash, id)
	}
}

// AddReport validates report, places it with the cascade rule and persists
// the new state. Nothing changes when validation fails.
func (c *Controller) AddReport(ctx context.Context, report Report) (LayoutItem, error) {
	if err := c.opts.Validator.Validate(report); err != nil {
		c.opts.Telemetry.Record(ctx, EventValidationReject, map[string]any{
			"data_source":   string(report.DataSource),
			"visualization": string(report.Visualization),
		})
		return LayoutItem{}, err
	}

	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return LayoutItem{}, ErrNotReady
	}
	id := c.freshID()
	next := c.dash.Clone()
	item := placeItem(&next, id)
	next.Reports[id] = report
	err := c.commitLocked(next)
	c.mu.Unlock()
	if err != nil {
		return LayoutItem{}, err
	}

	c.opts.Logger.Debug("report added", zap.String("id", id), zap.Int("x", item.X), zap.Int("y", item.Y))
	c.opts.Telemetry.Record(ctx, EventReportAdd, map[string]any{
		"id":            id,
		"data_source":   string(report.DataSource),
		"visualization": string(report.Visualization),
	})
	return item, nil
}

// RemoveReport deletes the layout entries and the report for id. Removing an
// unknown id succeeds and still persists the current state.
func (c *Controller) RemoveReport(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	next := c.dash.Clone()
	for bp, items := range next.Layouts {
		next.Layouts[bp] = withoutID(items, id)
	}
	delete(next.Reports, id)
	err := c.commitLocked(next)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.opts.Renderer.Forget(id)
	c.opts.Telemetry.Record(ctx, EventReportRemove, map[string]any{"id": id})
	return nil
}

// Repair drops every layout entry that has no report and persists the
// result with a single write. It returns the removed ids; nothing is written
// when the dashboard has no orphans.
func (c *Controller) Repair(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	orphans := c.dash.Orphans()
	if len(orphans) == 0 {
		c.mu.Unlock()
		return nil, nil
	}
	next := c.dash.Clone()
	for _, id := range orphans {
		for bp, items := range next.Layouts {
			next.Layouts[bp] = withoutID(items, id)
		}
	}
	err := c.commitLocked(next)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.opts.Telemetry.Record(ctx, EventRepair, map[string]any{"removed": len(orphans)})
	return orphans, nil
}

// OnLayoutChanged applies a geometry event from the grid layer. Hydration
// events are ignored, move frames only update memory, and commits are
// written when they differ from the last persisted layout.
func (c *Controller) OnLayoutChanged(ctx context.Context, event LayoutEvent) error {
	bp := event.Breakpoint
	if bp == "" {
		bp = BreakpointLarge
	}
	if !IsKnownBreakpoint(bp) {
		return &ValidationError{Field: "breakpoint", Value: string(bp), Reason: "unknown breakpoint"}
	}
	if event.Phase == PhaseHydrate {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return nil
	}
	items := c.reconcileEvent(bp, Sanitize(event.Items, ColumnsFor(bp)))

	if event.Phase == PhaseMove {
		c.dash.Layouts[bp] = items
		return nil
	}
	if IsNoOpChange(c.persistedLayout(bp), items) {
		c.dash.Layouts[bp] = items
		c.opts.Telemetry.Record(ctx, EventLayoutNoop, map[string]any{"breakpoint": string(bp)})
		return nil
	}
	next := c.dash.Clone()
	next.Layouts[bp] = items
	if err := c.commitLocked(next); err != nil {
		return err
	}
	c.opts.Telemetry.Record(ctx, EventLayoutChange, map[string]any{
		"breakpoint": string(bp),
		"items":      len(items),
	})
	return nil
}

// persistedLayout is the last written layout of bp. A breakpoint that was
// never stored is derived from the stored lg layout, the same way the grid
// derives it on mount.
func (c *Controller) persistedLayout(bp Breakpoint) []LayoutItem {
	if items, ok := c.persisted[bp]; ok || bp == BreakpointLarge {
		return items
	}
	return fitLayout(c.persisted[BreakpointLarge], ColumnsFor(bp))
}

// reconcileEvent keeps layout membership owned by add/remove: ids unknown to
// the dashboard are dropped and items missing from the event keep their
// current geometry.
func (c *Controller) reconcileEvent(bp Breakpoint, items []LayoutItem) []LayoutItem {
	current := c.dash.Layouts[bp]
	if current == nil && bp != BreakpointLarge {
		current = fitLayout(c.dash.Layouts[BreakpointLarge], ColumnsFor(bp))
	}
	known := make(map[string]struct{}, len(current))
	for _, item := range current {
		known[item.ID] = struct{}{}
	}
	out := make([]LayoutItem, 0, len(current))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := known[item.ID]; !ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	for _, item := range current {
		if _, ok := seen[item.ID]; !ok {
			out = append(out, item)
		}
	}
	return out
}

// Render renders every widget of the widest layout in reading order.
func (c *Controller) Render(ctx context.Context) ([]Widget, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	items := sortForDisplay(c.dash.Layouts[BreakpointLarge])
	reports := make(map[string]Report, len(c.dash.Reports))
	for id, report := range c.dash.Reports {
		reports[id] = report
	}
	c.mu.Unlock()

	widgets := make([]Widget, 0, len(items))
	for _, item := range items {
		var ref *Report
		if report, ok := reports[item.ID]; ok {
			ref = &report
		}
		widgets = append(widgets, c.opts.Renderer.Render(ctx, item, ref))
	}
	return widgets, nil
}

// Export writes the dataset of report id as CSV and returns the report.
func (c *Controller) Export(ctx context.Context, id string, w io.Writer) (Report, error) {
	report, err := c.report(id)
	if err != nil {
		return Report{}, err
	}
	if err := c.opts.Renderer.Export(ctx, report, w); err != nil {
		return Report{}, fmt.Errorf("dashboard: export %s: %w", id, err)
	}
	c.opts.Telemetry.Record(ctx, EventReportExport, map[string]any{"id": id})
	return report, nil
}

// Configure runs the configure hook for id. Without a hook it does nothing.
func (c *Controller) Configure(ctx context.Context, id string) error {
	report, err := c.report(id)
	if err != nil {
		return err
	}
	if c.opts.Configure == nil {
		return nil
	}
	return c.opts.Configure(ctx, id, report)
}

func (c *Controller) report(id string) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return Report{}, ErrNotReady
	}
	report, ok := c.dash.Reports[id]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return report, nil
}

// Snapshot returns a copy of the in-memory dashboard.
func (c *Controller) Snapshot() Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dash.Clone()
}

// Orphans lists layout ids that have no report.
func (c *Controller) Orphans() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dash.Orphans()
}

// Flush waits until every write issued so far has settled.
func (c *Controller) Flush(ctx context.Context) error {
	return c.writer.flush(ctx)
}

// Close drains pending writes and stops the writer.
func (c *Controller) Close() {
	c.writer.close()
}

// commitLocked stamps a new version on next and hands the full state to the
// writer. next becomes the current state only once the writer accepted it.
// Callers hold c.mu.
func (c *Controller) commitLocked(next Dashboard) error {
	version := c.version + 1
	if err := c.writer.enqueue(next.document(c.opts.UserID, version, c.opts.Clock())); err != nil {
		return err
	}
	c.version = version
	c.dash = next
	c.persisted = next.Layouts.Clone()
	return nil
}

func (c *Controller) freshID() string {
	for {
		id := c.opts.IDGenerator()
		if id == "" {
			continue
		}
		if _, taken := c.dash.Reports[id]; taken {
			continue
		}
		if containsID(c.dash.Layouts[BreakpointLarge], id) {
			continue
		}
		return id
	}
}

// placeItem appends a default-sized item for id to every stored breakpoint
// and returns the lg item.
func placeItem(dash *Dashboard, id string) LayoutItem {
	lg := dash.Layouts[BreakpointLarge]
	pos := ComputeCascadePosition(len(lg), ColumnsFor(BreakpointLarge))
	pos = ResolvePosition(pos, DefaultWidgetW, DefaultWidgetH, lg)
	item := LayoutItem{ID: id, X: pos.X, Y: pos.Y, W: DefaultWidgetW, H: DefaultWidgetH}
	dash.Layouts[BreakpointLarge] = append(append([]LayoutItem{}, lg...), item)

	for bp, items := range dash.Layouts {
		if bp == BreakpointLarge {
			continue
		}
		columns := ColumnsFor(bp)
		fitted := fitItem(item, columns)
		at := ResolvePosition(Position{X: fitted.X, Y: AppendRow}, fitted.W, fitted.H, items)
		fitted.Y = at.Y
		dash.Layouts[bp] = append(append([]LayoutItem{}, items...), fitted)
	}
	return item
}

func fitLayout(items []LayoutItem, columns int) []LayoutItem {
	out := make([]LayoutItem, len(items))
	for i, item := range items {
		out[i] = fitItem(item, columns)
	}
	return out
}

func withoutID(items []LayoutItem, id string) []LayoutItem {
	out := make([]LayoutItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

func containsID(items []LayoutItem, id string) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}
