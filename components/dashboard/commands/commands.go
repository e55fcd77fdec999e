// Package commands exposes dashboard mutations as go-command commanders so
// transports can dispatch them without linking against the Service.
package commands

import (
	"context"
	"errors"

	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

const (
	EventCommandAdd    = "command.report.add"
	EventCommandRemove = "command.report.remove"
	EventCommandLayout = "command.layout.update"
	EventCommandExport = "command.report.export"
)

var errMissingService = errors.New("commands: dashboard service not configured")

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t dashboard.Telemetry) dashboard.Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

func viewer(userID string) dashboard.ViewerContext {
	return dashboard.ViewerContext{UserID: userID}
}
