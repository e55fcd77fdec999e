package dashboard

import (
	"math"
	"sort"
)

// Breakpoint names a viewport-width tier of the responsive grid.
type Breakpoint string

const (
	BreakpointLarge       Breakpoint = "lg"
	BreakpointMedium      Breakpoint = "md"
	BreakpointSmall       Breakpoint = "sm"
	BreakpointExtraSmall  Breakpoint = "xs"
	BreakpointExtraSmall2 Breakpoint = "xxs"
)

const (
	// AppendRow is the cascade sentinel for "below every existing row".
	AppendRow = -1

	DefaultWidgetW = 4
	DefaultWidgetH = 4

	cascadeStep = 4
)

// BreakpointSpec pairs a breakpoint with its minimum width and column count.
type BreakpointSpec struct {
	Name     Breakpoint `json:"name"`
	MinWidth int        `json:"minWidth"`
	Columns  int        `json:"columns"`
}

// widest first
var breakpoints = []BreakpointSpec{
	{Name: BreakpointLarge, MinWidth: 1200, Columns: 12},
	{Name: BreakpointMedium, MinWidth: 996, Columns: 10},
	{Name: BreakpointSmall, MinWidth: 768, Columns: 6},
	{Name: BreakpointExtraSmall, MinWidth: 480, Columns: 4},
	{Name: BreakpointExtraSmall2, MinWidth: 0, Columns: 2},
}

// Position is a grid cell. Y may be AppendRow until resolved.
type Position struct {
	X int
	Y int
}

// Breakpoints returns the breakpoint table, widest first.
func Breakpoints() []BreakpointSpec {
	return append([]BreakpointSpec{}, breakpoints...)
}

// ColumnsFor returns the column count of bp, falling back to the widest tier.
func ColumnsFor(bp Breakpoint) int {
	for _, spec := range breakpoints {
		if spec.Name == bp {
			return spec.Columns
		}
	}
	return breakpoints[0].Columns
}

// IsKnownBreakpoint reports whether bp is part of the breakpoint table.
func IsKnownBreakpoint(bp Breakpoint) bool {
	for _, spec := range breakpoints {
		if spec.Name == bp {
			return true
		}
	}
	return false
}

// BreakpointFor returns the breakpoint active at the given viewport width.
func BreakpointFor(width int) Breakpoint {
	for _, spec := range breakpoints {
		if width >= spec.MinWidth {
			return spec.Name
		}
	}
	return breakpoints[len(breakpoints)-1].Name
}

// ComputeCascadePosition places the next widget left to right, wrapping
// every columns/4 widgets, always below the existing rows.
func ComputeCascadePosition(existingCount, columns int) Position {
	if columns <= 0 {
		columns = breakpoints[0].Columns
	}
	if existingCount < 0 {
		existingCount = 0
	}
	return Position{X: (existingCount * cascadeStep) % columns, Y: AppendRow}
}

// ResolvePosition replaces the AppendRow sentinel for a w×h widget. The
// widget starts at max(y+h) and floats up while the cells above it are
// free, but never above the top of the last row. Gaps left higher up by
// removals are not refilled.
func ResolvePosition(pos Position, w, h int, items []LayoutItem) Position {
	if pos.Y != AppendRow {
		return pos
	}
	floor := lastRow(items)
	pos.Y = bottom(items)
	for pos.Y > floor && !collides(LayoutItem{X: pos.X, Y: pos.Y - 1, W: w, H: h}, items) {
		pos.Y--
	}
	return pos
}

func lastRow(items []LayoutItem) int {
	top := 0
	for _, item := range items {
		if item.Y > top {
			top = item.Y
		}
	}
	return top
}

func collides(candidate LayoutItem, items []LayoutItem) bool {
	for _, item := range items {
		if candidate.X+candidate.W <= item.X || item.X+item.W <= candidate.X {
			continue
		}
		if candidate.Y+candidate.H <= item.Y || item.Y+item.H <= candidate.Y {
			continue
		}
		return true
	}
	return false
}

func bottom(items []LayoutItem) int {
	max := 0
	for _, item := range items {
		if edge := item.Y + item.H; edge > max {
			max = edge
		}
	}
	return max
}

// Sanitize keeps only {id,x,y,w,h} from raw grid items. Entries without an
// id and repeated ids are dropped, negatives clamp to zero and widths clamp
// to columns. The result is always a new slice.
func Sanitize(raw []map[string]any, columns int) []LayoutItem {
	if columns <= 0 {
		columns = breakpoints[0].Columns
	}
	out := make([]LayoutItem, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		id := stringValue(entry["id"], stringValue(entry["i"], ""))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		item := LayoutItem{
			ID: id,
			X:  nonNegative(entry["x"]),
			Y:  nonNegative(entry["y"]),
			W:  nonNegative(entry["w"]),
			H:  nonNegative(entry["h"]),
		}
		if item.W > columns {
			item.W = columns
		}
		out = append(out, item)
	}
	return out
}

// IsNoOpChange reports whether next carries the same geometry as prev.
// Item order is ignored; grid libraries reorder freely.
func IsNoOpChange(prev, next []LayoutItem) bool {
	if len(prev) != len(next) {
		return false
	}
	a := sortedByID(prev)
	b := sortedByID(next)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedByID(items []LayoutItem) []LayoutItem {
	out := append([]LayoutItem{}, items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fitItem adapts an lg item to a narrower breakpoint.
func fitItem(item LayoutItem, columns int) LayoutItem {
	if item.W > columns {
		item.W = columns
	}
	if item.X+item.W > columns {
		item.X = (item.X % columns)
		if item.X+item.W > columns {
			item.X = 0
		}
	}
	return item
}

func nonNegative(v any) int {
	f := float64Value(v)
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

func sortForDisplay(items []LayoutItem) []LayoutItem {
	out := append([]LayoutItem{}, items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
