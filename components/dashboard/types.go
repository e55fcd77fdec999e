package dashboard

import (
	"context"
	"sort"
	"time"
)

// LayoutStore persists the full dashboard document of a single user.
// Put always overwrites the whole document; it is never a patch.
type LayoutStore interface {
	Get(ctx context.Context, userID string) (Document, error)
	Put(ctx context.Context, userID string, doc Document) error
}

// DatasetProvider returns the ordered data points for a data source.
type DatasetProvider interface {
	Dataset(ctx context.Context, source DataSource) ([]DataPoint, error)
}

// DatasetProviderFunc adapts a function into a DatasetProvider.
type DatasetProviderFunc func(ctx context.Context, source DataSource) ([]DataPoint, error)

// Dataset calls f.
func (f DatasetProviderFunc) Dataset(ctx context.Context, source DataSource) ([]DataPoint, error) {
	return f(ctx, source)
}

// Notifier surfaces the outcome of persistence writes to the owning user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// DataSource enumerates the supported report data sources.
type DataSource string

const (
	DataSourceGraduates    DataSource = "graduates"
	DataSourceCompanies    DataSource = "companies"
	DataSourceApplications DataSource = "applications"
)

// Visualization enumerates the supported widget renderings.
type Visualization string

const (
	VisualizationBar   Visualization = "bar"
	VisualizationPie   Visualization = "pie"
	VisualizationCount Visualization = "count"
)

// Report identifies what a widget shows. Reports are immutable once created.
type Report struct {
	DataSource    DataSource    `json:"dataSource" bson:"data_source" yaml:"data_source"`
	Visualization Visualization `json:"visualization" bson:"visualization" yaml:"visualization"`
	Title         string        `json:"title" bson:"title" yaml:"title"`
}

// LayoutItem describes where a widget sits in the grid. ID joins it to a Report.
type LayoutItem struct {
	ID string `json:"id" bson:"id" yaml:"id"`
	X  int    `json:"x" bson:"x" yaml:"x"`
	Y  int    `json:"y" bson:"y" yaml:"y"`
	W  int    `json:"w" bson:"w" yaml:"w"`
	H  int    `json:"h" bson:"h" yaml:"h"`
}

// Layouts maps a breakpoint to the items placed at that breakpoint.
type Layouts map[Breakpoint][]LayoutItem

// Dashboard is the in-memory state of one user's dashboard.
type Dashboard struct {
	Layouts Layouts           `json:"layouts"`
	Reports map[string]Report `json:"reports"`
}

// Document is the stored form of a Dashboard.
type Document struct {
	UserID    string            `json:"userId" bson:"user_id" yaml:"user_id"`
	Layouts   Layouts           `json:"layouts" bson:"layouts" yaml:"layouts"`
	Reports   map[string]Report `json:"reports" bson:"reports" yaml:"reports"`
	Version   uint64            `json:"version" bson:"version" yaml:"version"`
	UpdatedAt time.Time         `json:"updatedAt" bson:"updated_at" yaml:"updated_at"`
}

// DataPoint is one entry of a dataset. Fill is cosmetic and never exported.
type DataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Fill  string  `json:"fill,omitempty"`
}

// ViewerContext identifies the user whose dashboard is being served.
type ViewerContext struct {
	UserID string
	Roles  []string
	Locale string
}

// NotificationLevel classifies a Notification.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

// Notification reports the result of a dashboard write.
type Notification struct {
	UserID  string            `json:"userId"`
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
	Version uint64            `json:"version"`
	Err     error             `json:"-"`
}

// LayoutPhase tells the controller which part of a gesture produced a layout event.
type LayoutPhase string

const (
	// PhaseCommit is a settled layout (drop, resize stop). It may be persisted.
	PhaseCommit LayoutPhase = "commit"
	// PhaseMove is an intermediate frame of a drag or resize.
	PhaseMove LayoutPhase = "move"
	// PhaseHydrate is the callback grid libraries fire after mounting.
	PhaseHydrate LayoutPhase = "hydrate"
)

// LayoutEvent is a geometry update emitted by the grid layer.
type LayoutEvent struct {
	Breakpoint Breakpoint       `json:"breakpoint"`
	Items      []map[string]any `json:"items"`
	Phase      LayoutPhase      `json:"phase"`
}

// NewDashboard returns an empty dashboard.
func NewDashboard() Dashboard {
	return Dashboard{
		Layouts: Layouts{BreakpointLarge: {}},
		Reports: map[string]Report{},
	}
}

// Clone returns a deep copy of the dashboard.
func (d Dashboard) Clone() Dashboard {
	out := Dashboard{
		Layouts: d.Layouts.Clone(),
		Reports: make(map[string]Report, len(d.Reports)),
	}
	for id, report := range d.Reports {
		out.Reports[id] = report
	}
	return out
}

// Clone returns a deep copy of the layouts.
func (l Layouts) Clone() Layouts {
	out := make(Layouts, len(l))
	for bp, items := range l {
		out[bp] = append([]LayoutItem{}, items...)
	}
	return out
}

// Orphans lists layout ids that have no matching report. Every stored
// breakpoint is scanned, widest first, and each id is listed once in the
// order it is first seen.
func (d Dashboard) Orphans() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, bp := range d.Layouts.breakpoints() {
		for _, item := range d.Layouts[bp] {
			if _, ok := d.Reports[item.ID]; ok {
				continue
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			out = append(out, item.ID)
		}
	}
	return out
}

// breakpoints returns the stored breakpoints: known ones widest first, then
// any unknown keys in lexical order.
func (l Layouts) breakpoints() []Breakpoint {
	out := make([]Breakpoint, 0, len(l))
	for _, spec := range breakpoints {
		if _, ok := l[spec.Name]; ok {
			out = append(out, spec.Name)
		}
	}
	var extra []string
	for bp := range l {
		if !IsKnownBreakpoint(bp) {
			extra = append(extra, string(bp))
		}
	}
	sort.Strings(extra)
	for _, bp := range extra {
		out = append(out, Breakpoint(bp))
	}
	return out
}

func (d Dashboard) document(userID string, version uint64, now time.Time) Document {
	clone := d.Clone()
	return Document{
		UserID:    userID,
		Layouts:   clone.Layouts,
		Reports:   clone.Reports,
		Version:   version,
		UpdatedAt: now,
	}
}

func dashboardFromDocument(doc Document) Dashboard {
	out := NewDashboard()
	for bp, items := range doc.Layouts {
		out.Layouts[bp] = append([]LayoutItem{}, items...)
	}
	for id, report := range doc.Reports {
		out.Reports[id] = report
	}
	return out
}

func sortedReportIDs(reports map[string]Report) []string {
	ids := make([]string, 0, len(reports))
	for id := range reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
