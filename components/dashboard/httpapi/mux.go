package httpapi

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-reports-dashboard/components/dashboard"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/queries"
)

// NewHandlers wires every handler to service.
func NewHandlers(service *dashboard.Service, telemetry dashboard.Telemetry, notifications *dashboard.BroadcastNotifier) *Handlers {
	return &Handlers{
		Add:           commands.NewAddReportCommand(service, telemetry),
		Remove:        commands.NewRemoveReportCommand(service, telemetry),
		Layout:        commands.NewUpdateLayoutCommand(service, telemetry),
		Export:        commands.NewExportReportCommand(service, telemetry),
		Widgets:       queries.NewWidgetsQuery(service),
		Dashboard:     queries.NewDashboardQuery(service),
		Catalog:       queries.NewCatalogQuery(service.Catalog()),
		Notifications: notifications,
	}
}

// Mount registers the handlers on mux below base (default "/api").
func (h *Handlers) Mount(mux *http.ServeMux, base string) {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = "/api"
	}
	mux.HandleFunc("GET "+base+"/reports", h.HandleListReports)
	mux.HandleFunc("GET "+base+"/reports/catalog", h.HandleCatalog)
	mux.HandleFunc("POST "+base+"/reports", h.HandleAddReport)
	mux.HandleFunc("GET "+base+"/reports/layout", h.HandleGetLayout)
	mux.HandleFunc("PUT "+base+"/reports/layout", h.HandleUpdateLayout)
	mux.HandleFunc("DELETE "+base+"/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleRemoveReport(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("GET "+base+"/reports/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		h.HandleExportReport(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("GET "+base+"/reports/events", h.HandleEvents)
	mux.HandleFunc("GET "+base+"/reports/ws", h.HandleSocket)
}
