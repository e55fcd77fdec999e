package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

// RemoveReportInput identifies the report to remove.
type RemoveReportInput struct {
	UserID   string `json:"user_id"`
	ReportID string `json:"report_id"`
}

type removeService interface {
	RemoveReport(ctx context.Context, viewer dashboard.ViewerContext, id string) error
}

// RemoveReportCommand wraps Service.RemoveReport. Removing an unknown id is
// not an error.
type RemoveReportCommand struct {
	service   removeService
	telemetry dashboard.Telemetry
}

// NewRemoveReportCommand builds a command instance.
func NewRemoveReportCommand(service removeService, telemetry dashboard.Telemetry) *RemoveReportCommand {
	return &RemoveReportCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RemoveReportInput] = (*RemoveReportCommand)(nil)

// Execute removes the report.
func (c *RemoveReportCommand) Execute(ctx context.Context, msg RemoveReportInput) error {
	if c.service == nil {
		return errMissingService
	}
	if msg.ReportID == "" {
		return &dashboard.ValidationError{Field: "id", Reason: "report id is required"}
	}
	if err := c.service.RemoveReport(ctx, viewer(msg.UserID), msg.ReportID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, EventCommandRemove, map[string]any{
		"user_id": msg.UserID,
		"id":      msg.ReportID,
	})
	return nil
}
