package dashboard

import "github.com/ettle/strcase"

// CatalogEntry is a selectable option in the report builder.
type CatalogEntry struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

var (
	catalogDataSources = []DataSource{
		DataSourceGraduates,
		DataSourceCompanies,
		DataSourceApplications,
	}
	catalogVisualizations = []Visualization{
		VisualizationBar,
		VisualizationPie,
		VisualizationCount,
	}
)

// Catalog is the static registry of data sources and visualization kinds.
type Catalog struct{}

// DefaultCatalog returns the report catalog.
func DefaultCatalog() Catalog { return Catalog{} }

// ListDataSources returns the supported data sources in display order.
func (Catalog) ListDataSources() []CatalogEntry {
	out := make([]CatalogEntry, len(catalogDataSources))
	for i, source := range catalogDataSources {
		out[i] = CatalogEntry{ID: string(source), Label: strcase.ToPascal(string(source))}
	}
	return out
}

// ListVisualizations returns the supported visualizations in display order.
func (Catalog) ListVisualizations() []CatalogEntry {
	out := make([]CatalogEntry, len(catalogVisualizations))
	for i, kind := range catalogVisualizations {
		out[i] = CatalogEntry{ID: string(kind), Label: strcase.ToPascal(string(kind))}
	}
	return out
}

// HasDataSource reports whether source is part of the catalog.
func (Catalog) HasDataSource(source DataSource) bool {
	for _, candidate := range catalogDataSources {
		if candidate == source {
			return true
		}
	}
	return false
}

// HasVisualization reports whether kind is part of the catalog.
func (Catalog) HasVisualization(kind Visualization) bool {
	for _, candidate := range catalogVisualizations {
		if candidate == kind {
			return true
		}
	}
	return false
}

// ReportSchema describes a valid Report payload as JSON schema.
func (c Catalog) ReportSchema() map[string]any {
	sources := make([]string, 0, len(catalogDataSources))
	for _, entry := range c.ListDataSources() {
		sources = append(sources, entry.ID)
	}
	kinds := make([]string, 0, len(catalogVisualizations))
	for _, entry := range c.ListVisualizations() {
		kinds = append(kinds, entry.ID)
	}
	return map[string]any{
		"type":     "object",
		"required": []string{"dataSource", "visualization"},
		"properties": map[string]any{
			"dataSource":    map[string]any{"type": "string", "enum": sources},
			"visualization": map[string]any{"type": "string", "enum": kinds},
			"title":         map[string]any{"type": "string", "maxLength": 120},
		},
	}
}
