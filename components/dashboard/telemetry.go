package dashboard

import "context"

// Telemetry records dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

const (
	EventReportAdd        = "dashboard.report.add"
	EventReportRemove     = "dashboard.report.remove"
	EventLayoutChange     = "dashboard.layout.change"
	EventLayoutNoop       = "dashboard.layout.noop"
	EventLoad             = "dashboard.load"
	EventWriteSuccess     = "dashboard.write.success"
	EventWriteFailure     = "dashboard.write.failure"
	EventWidgetCorrupted  = "dashboard.widget.corrupted"
	EventDatasetFailure   = "dashboard.widget.dataset_error"
	EventReportExport     = "dashboard.report.export"
	EventValidationReject = "dashboard.report.rejected"
	EventRepair           = "dashboard.repair"
)

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}
