package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestComputeCascadePosition(t *testing.T) {
	cases := []struct {
		count   int
		columns int
		want    int
	}{
		{0, 12, 0},
		{1, 12, 4},
		{2, 12, 8},
		{3, 12, 0},
		{4, 10, 6},
		{2, 6, 2},
		{1, 2, 0},
		{-1, 12, 0},
	}
	for _, tc := range cases {
		pos := ComputeCascadePosition(tc.count, tc.columns)
		assert.Equal(t, tc.want, pos.X, "count=%d columns=%d", tc.count, tc.columns)
		assert.Equal(t, AppendRow, pos.Y)
	}
}

func TestResolvePositionFloatsIntoFreeCells(t *testing.T) {
	items := []LayoutItem{
		{ID: "a", X: 0, Y: 0, W: 4, H: 4},
		{ID: "b", X: 4, Y: 0, W: 4, H: 8},
	}

	assert.Equal(t, Position{X: 8, Y: 0}, ResolvePosition(Position{X: 8, Y: AppendRow}, 4, 4, items))
	assert.Equal(t, Position{X: 0, Y: 4}, ResolvePosition(Position{X: 0, Y: AppendRow}, 4, 4, items))
	assert.Equal(t, Position{X: 4, Y: 8}, ResolvePosition(Position{X: 4, Y: AppendRow}, 4, 4, items))
	assert.Equal(t, Position{X: 2, Y: 3}, ResolvePosition(Position{X: 2, Y: 3}, 4, 4, items))
	assert.Equal(t, Position{X: 0, Y: 0}, ResolvePosition(Position{X: 0, Y: AppendRow}, 4, 4, nil))
}

func TestResolvePositionAppendsBelowGaps(t *testing.T) {
	// b at (4,0) was removed; the row below is already started.
	items := []LayoutItem{
		{ID: "a", X: 0, Y: 0, W: 4, H: 4},
		{ID: "c", X: 8, Y: 0, W: 4, H: 4},
		{ID: "d", X: 0, Y: 4, W: 4, H: 4},
	}

	assert.Equal(t, Position{X: 4, Y: 4}, ResolvePosition(Position{X: 4, Y: AppendRow}, 4, 4, items))
	assert.Equal(t, Position{X: 0, Y: 8}, ResolvePosition(Position{X: 0, Y: AppendRow}, 4, 4, items))
}

func TestSanitizeKeepsOnlyGeometry(t *testing.T) {
	raw := []map[string]any{
		{"i": "a", "x": 1.0, "y": 2, "w": json.Number("4"), "h": "3", "moved": true, "static": false},
		{"id": "b", "x": -3, "y": 0, "w": 40, "h": 2, "minW": 2},
		{"x": 1, "y": 1, "w": 1, "h": 1},
		{"i": "a", "x": 9, "y": 9, "w": 1, "h": 1},
		{"id": "", "i": "c"},
	}

	got := Sanitize(raw, 12)
	want := []LayoutItem{
		{ID: "a", X: 1, Y: 2, W: 4, H: 3},
		{ID: "b", X: 0, Y: 0, W: 12, H: 2},
		{ID: "c"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Sanitize mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Sanitize(nil, 12))
	assert.NotNil(t, Sanitize(nil, 12))
}

func TestIsNoOpChangeIgnoresOrder(t *testing.T) {
	prev := []LayoutItem{{ID: "a", W: 4, H: 4}, {ID: "b", X: 4, W: 4, H: 4}}
	reordered := []LayoutItem{{ID: "b", X: 4, W: 4, H: 4}, {ID: "a", W: 4, H: 4}}
	moved := []LayoutItem{{ID: "a", Y: 1, W: 4, H: 4}, {ID: "b", X: 4, W: 4, H: 4}}

	assert.True(t, IsNoOpChange(prev, reordered))
	assert.False(t, IsNoOpChange(prev, moved))
	assert.False(t, IsNoOpChange(prev, prev[:1]))
	assert.True(t, IsNoOpChange(nil, []LayoutItem{}))
	assert.Equal(t, "a", prev[0].ID, "inputs must not be reordered")
}

func TestBreakpointTable(t *testing.T) {
	assert.Equal(t, BreakpointLarge, BreakpointFor(1920))
	assert.Equal(t, BreakpointMedium, BreakpointFor(1000))
	assert.Equal(t, BreakpointSmall, BreakpointFor(768))
	assert.Equal(t, BreakpointExtraSmall, BreakpointFor(500))
	assert.Equal(t, BreakpointExtraSmall2, BreakpointFor(320))
	assert.Equal(t, 12, ColumnsFor(BreakpointLarge))
	assert.Equal(t, 2, ColumnsFor(BreakpointExtraSmall2))
	assert.Equal(t, 12, ColumnsFor("unknown"))
	assert.False(t, IsKnownBreakpoint("xl"))
	assert.Len(t, Breakpoints(), 5)
}

func TestFitItemKeepsItemsInsideNarrowGrids(t *testing.T) {
	assert.Equal(t, LayoutItem{ID: "a", X: 0, Y: 4, W: 2, H: 4}, fitItem(LayoutItem{ID: "a", X: 8, Y: 4, W: 4, H: 4}, 2))
	assert.Equal(t, LayoutItem{ID: "a", X: 2, W: 4, H: 4}, fitItem(LayoutItem{ID: "a", X: 8, W: 4, H: 4}, 6))
}
