package gorouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-reports-dashboard/components/dashboard"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/httpapi"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/queries"
)

// ViewerResolver converts a router.Context into a dashboard.ViewerContext.
type ViewerResolver func(router.Context) dashboard.ViewerContext

// Config wires go-router with the report dashboard service.
type Config[T any] struct {
	Router         router.Router[T]
	Service        *dashboard.Service
	Telemetry      dashboard.Telemetry
	Notifications  *dashboard.BroadcastNotifier
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	Reports   string
	Catalog   string
	ReportID  string
	Layout    string
	Export    string
	WebSocket string
}

// Register mounts the report dashboard REST and WebSocket routes.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Service == nil {
		return errors.New("gorouter: service is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/api"
	}
	resolver := cfg.ViewerResolver
	if resolver == nil {
		resolver = defaultViewerResolver
	}
	h := newEndpoints(cfg.Service, cfg.Telemetry)

	group := cfg.Router.Group(base)

	group.Get(routes.Reports, router.WrapHandler(func(ctx router.Context) error {
		status, payload := h.listReports(ctx.Context(), resolver(ctx))
		return ctx.JSON(status, payload)
	}))

	group.Get(routes.Catalog, router.WrapHandler(func(ctx router.Context) error {
		status, payload := h.catalog(ctx.Context())
		return ctx.JSON(status, payload)
	}))

	group.Post(routes.Reports, router.WrapHandler(func(ctx router.Context) error {
		status, payload := h.addReport(ctx.Context(), resolver(ctx), ctx.Body())
		return ctx.JSON(status, payload)
	}))

	group.Delete(routes.ReportID, router.WrapHandler(func(ctx router.Context) error {
		status, payload := h.removeReport(ctx.Context(), resolver(ctx), ctx.Param("id"))
		return ctx.JSON(status, payload)
	}))

	group.Get(routes.Layout, router.WrapHandler(func(ctx router.Context) error {
		status, payload := h.layoutState(ctx.Context(), resolver(ctx))
		return ctx.JSON(status, payload)
	}))

	group.Put(routes.Layout, router.WrapHandler(func(ctx router.Context) error {
		status, payload := h.updateLayout(ctx.Context(), resolver(ctx), ctx.Body())
		return ctx.JSON(status, payload)
	}))

	group.Get(routes.Export, router.WrapHandler(func(ctx router.Context) error {
		file, status, payload := h.exportReport(ctx.Context(), resolver(ctx), ctx.Param("id"))
		if payload != nil {
			return ctx.JSON(status, payload)
		}
		ctx.SetHeader("Content-Type", "text/csv; charset=utf-8")
		ctx.SetHeader("Content-Disposition", `attachment; filename="`+file.name+`"`)
		return ctx.Send(file.data)
	}))

	if cfg.Notifications != nil {
		registerWebSocket(group, cfg.Notifications, resolver, routes.WebSocket)
	}
	return nil
}

func registerWebSocket[T any](r router.Router[T], notifier *dashboard.BroadcastNotifier, resolver ViewerResolver, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		viewer := resolver(ws)
		if viewer.UserID == "" {
			return ws.Close()
		}
		events, cancel := notifier.Subscribe(viewer.UserID)
		defer cancel()
		for {
			select {
			case n, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(socketPayload(n)); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

// endpoints holds the transport-independent part of every route so the
// handlers can be exercised without a running router.
type endpoints struct {
	add     *commands.AddReportCommand
	remove  *commands.RemoveReportCommand
	layout  *commands.UpdateLayoutCommand
	export  *commands.ExportReportCommand
	widgets *queries.WidgetsQuery
	state   *queries.DashboardQuery
	list    *queries.CatalogQuery
}

func newEndpoints(service *dashboard.Service, telemetry dashboard.Telemetry) *endpoints {
	return &endpoints{
		add:     commands.NewAddReportCommand(service, telemetry),
		remove:  commands.NewRemoveReportCommand(service, telemetry),
		layout:  commands.NewUpdateLayoutCommand(service, telemetry),
		export:  commands.NewExportReportCommand(service, telemetry),
		widgets: queries.NewWidgetsQuery(service),
		state:   queries.NewDashboardQuery(service),
		list:    queries.NewCatalogQuery(service.Catalog()),
	}
}

type exportFile struct {
	name string
	data []byte
}

func (h *endpoints) listReports(ctx context.Context, viewer dashboard.ViewerContext) (int, any) {
	widgets, err := h.widgets.Query(ctx, viewer)
	if err != nil {
		return errorPayload(err)
	}
	return http.StatusOK, map[string]any{"widgets": widgets}
}

func (h *endpoints) layoutState(ctx context.Context, viewer dashboard.ViewerContext) (int, any) {
	dash, err := h.state.Query(ctx, viewer)
	if err != nil {
		return errorPayload(err)
	}
	return http.StatusOK, dash
}

func (h *endpoints) catalog(ctx context.Context) (int, any) {
	view, err := h.list.Query(ctx, struct{}{})
	if err != nil {
		return errorPayload(err)
	}
	return http.StatusOK, view
}

func (h *endpoints) addReport(ctx context.Context, viewer dashboard.ViewerContext, body []byte) (int, any) {
	var input commands.AddReportInput
	if err := json.Unmarshal(body, &input); err != nil {
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	}
	input.UserID = viewer.UserID
	if err := h.add.Execute(ctx, &input); err != nil {
		return errorPayload(err)
	}
	return http.StatusCreated, input.Item
}

func (h *endpoints) removeReport(ctx context.Context, viewer dashboard.ViewerContext, id string) (int, any) {
	if err := h.remove.Execute(ctx, commands.RemoveReportInput{UserID: viewer.UserID, ReportID: id}); err != nil {
		return errorPayload(err)
	}
	return http.StatusOK, map[string]string{"status": "removed", "id": id}
}

func (h *endpoints) updateLayout(ctx context.Context, viewer dashboard.ViewerContext, body []byte) (int, any) {
	var input commands.UpdateLayoutInput
	if err := json.Unmarshal(body, &input); err != nil {
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	}
	input.UserID = viewer.UserID
	if err := h.layout.Execute(ctx, input); err != nil {
		return errorPayload(err)
	}
	return http.StatusOK, map[string]string{"status": "accepted"}
}

func (h *endpoints) exportReport(ctx context.Context, viewer dashboard.ViewerContext, id string) (exportFile, int, any) {
	var buf bytes.Buffer
	input := &commands.ExportReportInput{UserID: viewer.UserID, ReportID: id, Writer: &buf}
	if err := h.export.Execute(ctx, input); err != nil {
		status, payload := errorPayload(err)
		return exportFile{}, status, payload
	}
	return exportFile{name: input.Filename, data: buf.Bytes()}, http.StatusOK, nil
}

func errorPayload(err error) (int, any) {
	return httpapi.StatusFor(err), map[string]string{"error": err.Error()}
}

func socketPayload(n dashboard.Notification) map[string]any {
	payload := map[string]any{
		"level":   n.Level,
		"message": n.Message,
		"version": n.Version,
	}
	if n.Err != nil {
		payload["error"] = n.Err.Error()
	}
	return payload
}

func defaultViewerResolver(ctx router.Context) dashboard.ViewerContext {
	var viewer dashboard.ViewerContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		viewer.UserID = v
	}
	if viewer.UserID == "" {
		viewer.UserID = strings.TrimSpace(ctx.Header(httpapi.UserHeader))
	}
	if roles, ok := ctx.Locals("roles").([]string); ok {
		viewer.Roles = roles
	}
	viewer.Locale = inferLocale(ctx)
	return viewer
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	return parseAcceptLanguage(ctx.Header("Accept-Language"))
}

func parseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Reports == "" {
		routes.Reports = "/reports"
	}
	if routes.Catalog == "" {
		routes.Catalog = "/reports/catalog"
	}
	if routes.ReportID == "" {
		routes.ReportID = "/reports/:id"
	}
	if routes.Layout == "" {
		routes.Layout = "/reports/layout"
	}
	if routes.Export == "" {
		routes.Export = "/reports/:id/export"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/reports/ws"
	}
	return routes
}
