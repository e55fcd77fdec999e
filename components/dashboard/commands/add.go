package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

// AddReportInput carries a report builder submission. Item is filled with
// the placed layout item on success.
type AddReportInput struct {
	UserID        string                  `json:"user_id"`
	DataSource    dashboard.DataSource    `json:"dataSource"`
	Visualization dashboard.Visualization `json:"visualization"`
	Title         string                  `json:"title"`

	Item dashboard.LayoutItem `json:"-"`
}

type addService interface {
	AddReport(ctx context.Context, viewer dashboard.ViewerContext, report dashboard.Report) (dashboard.LayoutItem, error)
}

// AddReportCommand wraps Service.AddReport.
type AddReportCommand struct {
	service   addService
	telemetry dashboard.Telemetry
}

// NewAddReportCommand creates the command.
func NewAddReportCommand(service addService, telemetry dashboard.Telemetry) *AddReportCommand {
	return &AddReportCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[*AddReportInput] = (*AddReportCommand)(nil)

// Execute validates and places the report.
func (c *AddReportCommand) Execute(ctx context.Context, msg *AddReportInput) error {
	if c.service == nil {
		return errMissingService
	}
	item, err := c.service.AddReport(ctx, viewer(msg.UserID), dashboard.Report{
		DataSource:    msg.DataSource,
		Visualization: msg.Visualization,
		Title:         msg.Title,
	})
	if err != nil {
		return err
	}
	msg.Item = item
	c.telemetry.Record(ctx, EventCommandAdd, map[string]any{
		"user_id": msg.UserID,
		"id":      item.ID,
	})
	return nil
}
