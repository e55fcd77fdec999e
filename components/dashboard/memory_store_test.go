package dashboard

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryLayoutStore(t *testing.T) {
	store := NewInMemoryLayoutStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}

	doc := Document{
		Layouts: Layouts{BreakpointLarge: {{ID: "r1", W: 4, H: 4}}},
		Reports: map[string]Report{"r1": {DataSource: DataSourceGraduates, Visualization: VisualizationBar}},
		Version: 3,
	}
	if err := store.Put(ctx, "user-1", doc); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	doc.Layouts[BreakpointLarge][0].X = 8

	out, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if out.UserID != "user-1" || out.Version != 3 {
		t.Fatalf("unexpected document metadata: %#v", out)
	}
	if out.Layouts[BreakpointLarge][0].X != 0 {
		t.Fatalf("expected stored copy to be isolated from caller mutations")
	}
	if store.Puts() != 1 {
		t.Fatalf("expected 1 put, got %d", store.Puts())
	}
}

func TestInMemoryLayoutStoreRequiresUser(t *testing.T) {
	store := NewInMemoryLayoutStore()
	if err := store.Put(context.Background(), "", Document{}); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}
