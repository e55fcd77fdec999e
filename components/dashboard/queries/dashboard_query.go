package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

type dashboardService interface {
	Dashboard(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Dashboard, error)
}

// DashboardQuery returns the stored layouts and reports of a viewer.
type DashboardQuery struct {
	service dashboardService
}

// NewDashboardQuery builds the query.
func NewDashboardQuery(service dashboardService) *DashboardQuery {
	return &DashboardQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, dashboard.Dashboard] = (*DashboardQuery)(nil)

// Query loads the viewer's dashboard.
func (q *DashboardQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Dashboard, error) {
	return q.service.Dashboard(ctx, viewer)
}
