package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

type widgetService interface {
	Render(ctx context.Context, viewer dashboard.ViewerContext) ([]dashboard.Widget, error)
}

// WidgetsQuery renders every widget on the viewer's dashboard.
type WidgetsQuery struct {
	service widgetService
}

// NewWidgetsQuery builds the query.
func NewWidgetsQuery(service widgetService) *WidgetsQuery {
	return &WidgetsQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, []dashboard.Widget] = (*WidgetsQuery)(nil)

// Query renders the widgets in reading order.
func (q *WidgetsQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) ([]dashboard.Widget, error) {
	return q.service.Render(ctx, viewer)
}

// CatalogView is the report builder's option list.
type CatalogView struct {
	DataSources    []dashboard.CatalogEntry   `json:"dataSources" yaml:"data_sources"`
	Visualizations []dashboard.CatalogEntry   `json:"visualizations" yaml:"visualizations"`
	Breakpoints    []dashboard.BreakpointSpec `json:"breakpoints" yaml:"breakpoints"`
}

// CatalogQuery lists the selectable data sources and visualizations.
type CatalogQuery struct {
	catalog dashboard.Catalog
}

// NewCatalogQuery builds the query.
func NewCatalogQuery(catalog dashboard.Catalog) *CatalogQuery {
	return &CatalogQuery{catalog: catalog}
}

var _ gocommand.Querier[struct{}, CatalogView] = (*CatalogQuery)(nil)

// Query returns the catalog.
func (q *CatalogQuery) Query(context.Context, struct{}) (CatalogView, error) {
	return CatalogView{
		DataSources:    q.catalog.ListDataSources(),
		Visualizations: q.catalog.ListVisualizations(),
		Breakpoints:    dashboard.Breakpoints(),
	}, nil
}
