package dashboard

import (
	"errors"
	"strings"
	"testing"
)

func TestJSONSchemaValidatorAcceptsCatalogReports(t *testing.T) {
	validator := NewJSONSchemaValidator(DefaultCatalog())
	for _, source := range catalogDataSources {
		for _, kind := range catalogVisualizations {
			if err := validator.Validate(Report{DataSource: source, Visualization: kind}); err != nil {
				t.Fatalf("expected %s/%s to be valid, got %v", source, kind, err)
			}
		}
	}
}

func TestJSONSchemaValidatorRejectsUnknownValues(t *testing.T) {
	validator := NewJSONSchemaValidator(DefaultCatalog())

	err := validator.Validate(Report{DataSource: "", Visualization: VisualizationBar})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "dataSource" {
		t.Fatalf("expected dataSource validation error, got %v", err)
	}

	err = validator.Validate(Report{DataSource: DataSourceCompanies, Visualization: "table"})
	if !errors.As(err, &verr) || verr.Field != "visualization" {
		t.Fatalf("expected visualization validation error, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected error to match ErrValidation")
	}
}

func TestJSONSchemaValidatorEnforcesTitleLength(t *testing.T) {
	validator := NewJSONSchemaValidator(DefaultCatalog())
	report := Report{
		DataSource:    DataSourceGraduates,
		Visualization: VisualizationPie,
		Title:         strings.Repeat("x", 121),
	}
	err := validator.Validate(report)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Err == nil {
		t.Fatalf("expected wrapped jsonschema error, got %#v", err)
	}
}

func TestCatalogListsEntriesInDisplayOrder(t *testing.T) {
	catalog := DefaultCatalog()
	sources := catalog.ListDataSources()
	if len(sources) != 3 || sources[0].ID != "graduates" || sources[0].Label != "Graduates" {
		t.Fatalf("unexpected data sources: %#v", sources)
	}
	kinds := catalog.ListVisualizations()
	if len(kinds) != 3 || kinds[2].ID != "count" || kinds[2].Label != "Count" {
		t.Fatalf("unexpected visualizations: %#v", kinds)
	}
	if catalog.HasDataSource("students") || !catalog.HasVisualization(VisualizationPie) {
		t.Fatalf("unexpected catalog membership")
	}
}
