package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

// UpdateLayoutInput is a grid layout event as posted by the browser.
type UpdateLayoutInput struct {
	UserID     string                `json:"user_id"`
	Breakpoint dashboard.Breakpoint  `json:"breakpoint"`
	Phase      dashboard.LayoutPhase `json:"phase"`
	Items      []map[string]any      `json:"items"`
}

type layoutService interface {
	UpdateLayout(ctx context.Context, viewer dashboard.ViewerContext, event dashboard.LayoutEvent) error
}

// UpdateLayoutCommand wraps Service.UpdateLayout.
type UpdateLayoutCommand struct {
	service   layoutService
	telemetry dashboard.Telemetry
}

// NewUpdateLayoutCommand creates the command.
func NewUpdateLayoutCommand(service layoutService, telemetry dashboard.Telemetry) *UpdateLayoutCommand {
	return &UpdateLayoutCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateLayoutInput] = (*UpdateLayoutCommand)(nil)

// Execute forwards the layout event.
func (c *UpdateLayoutCommand) Execute(ctx context.Context, msg UpdateLayoutInput) error {
	if c.service == nil {
		return errMissingService
	}
	event := dashboard.LayoutEvent{
		Breakpoint: msg.Breakpoint,
		Phase:      msg.Phase,
		Items:      msg.Items,
	}
	if err := c.service.UpdateLayout(ctx, viewer(msg.UserID), event); err != nil {
		return err
	}
	c.telemetry.Record(ctx, EventCommandLayout, map[string]any{
		"user_id":    msg.UserID,
		"breakpoint": string(msg.Breakpoint),
		"phase":      string(msg.Phase),
		"items":      len(msg.Items),
	})
	return nil
}
