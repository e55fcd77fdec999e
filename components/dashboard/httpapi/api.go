package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-reports-dashboard/components/dashboard"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/queries"
)

// UserHeader carries the viewer id when no ViewerResolver is configured.
const UserHeader = "X-User-ID"

// ViewerResolver extracts the viewer from a request.
type ViewerResolver func(r *http.Request) (dashboard.ViewerContext, error)

// HeaderViewer reads the viewer id from UserHeader.
func HeaderViewer(r *http.Request) (dashboard.ViewerContext, error) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		return dashboard.ViewerContext{}, dashboard.ErrMissingUser
	}
	return dashboard.ViewerContext{UserID: userID, Locale: r.Header.Get("Accept-Language")}, nil
}

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Add       gocommand.Commander[*commands.AddReportInput]
	Remove    gocommand.Commander[commands.RemoveReportInput]
	Layout    gocommand.Commander[commands.UpdateLayoutInput]
	Export    gocommand.Commander[*commands.ExportReportInput]
	Widgets   gocommand.Querier[dashboard.ViewerContext, []dashboard.Widget]
	Dashboard gocommand.Querier[dashboard.ViewerContext, dashboard.Dashboard]
	Catalog   gocommand.Querier[struct{}, queries.CatalogView]

	Notifications *dashboard.BroadcastNotifier
	Viewer        ViewerResolver
}

// StatusFor maps dashboard errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrMissingUser):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) viewer(r *http.Request) (dashboard.ViewerContext, error) {
	if h.Viewer != nil {
		return h.Viewer(r)
	}
	return HeaderViewer(r)
}

func (h *Handlers) HandleListReports(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	widgets, err := h.Widgets.Query(r.Context(), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"widgets": widgets})
}

// HandleGetLayout returns the raw layouts and reports the grid hydrates from.
func (h *Handlers) HandleGetLayout(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	dash, err := h.Dashboard.Query(r.Context(), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *Handlers) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	view, err := h.Catalog.Query(r.Context(), struct{}{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) HandleAddReport(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload commands.AddReportInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload.UserID = viewer.UserID
	if err := h.Add.Execute(r.Context(), &payload); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payload.Item)
}

func (h *Handlers) HandleRemoveReport(w http.ResponseWriter, r *http.Request, reportID string) {
	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	input := commands.RemoveReportInput{UserID: viewer.UserID, ReportID: reportID}
	if err := h.Remove.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleUpdateLayout(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload commands.UpdateLayoutInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload.UserID = viewer.UserID
	if err := h.Layout.Execute(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleExportReport(w http.ResponseWriter, r *http.Request, reportID string) {
	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	input := &commands.ExportReportInput{UserID: viewer.UserID, ReportID: reportID, Writer: &buf}
	if err := h.Export.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+input.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// HandleEvents streams save notifications of the viewer over SSE.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Notifications == nil {
		http.Error(w, "notifications disabled", http.StatusNotFound)
		return
	}
	h.Notifications.ServeSSE(w, r, viewer.UserID)
}

// HandleSocket streams save notifications of the viewer over WebSocket.
func (h *Handlers) HandleSocket(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Notifications == nil {
		http.Error(w, "notifications disabled", http.StatusNotFound)
		return
	}
	h.Notifications.ServeWebSocket(w, r, viewer.UserID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), map[string]string{"error": err.Error()})
}
