package commands

import (
	"context"
	"errors"
	"io"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

// ExportReportInput streams one report as CSV into Writer. Filename is
// filled with the suggested download name.
type ExportReportInput struct {
	UserID   string
	ReportID string
	Writer   io.Writer

	Filename string
}

type exportService interface {
	Export(ctx context.Context, viewer dashboard.ViewerContext, id string, w io.Writer) (string, error)
}

// ExportReportCommand wraps Service.Export.
type ExportReportCommand struct {
	service   exportService
	telemetry dashboard.Telemetry
}

// NewExportReportCommand creates the command.
func NewExportReportCommand(service exportService, telemetry dashboard.Telemetry) *ExportReportCommand {
	return &ExportReportCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[*ExportReportInput] = (*ExportReportCommand)(nil)

// Execute writes the CSV export.
func (c *ExportReportCommand) Execute(ctx context.Context, msg *ExportReportInput) error {
	if c.service == nil {
		return errMissingService
	}
	if msg.Writer == nil {
		return errors.New("commands: export requires a writer")
	}
	name, err := c.service.Export(ctx, viewer(msg.UserID), msg.ReportID, msg.Writer)
	if err != nil {
		return err
	}
	msg.Filename = name
	c.telemetry.Record(ctx, EventCommandExport, map[string]any{
		"user_id":  msg.UserID,
		"id":       msg.ReportID,
		"filename": name,
	})
	return nil
}
