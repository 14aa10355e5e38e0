package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	personalization "github.com/goliatone/go-personalize/components/personalization"
)

// ReorderWidgetsInput contains the full new order of visible widget ids.
type ReorderWidgetsInput struct {
	Viewer    personalization.ViewerContext `json:"viewer"`
	WidgetIDs []string                      `json:"widget_ids"`
}

// ReorderWidgetsCommand applies a completed drag reordering.
type ReorderWidgetsCommand struct {
	sessions  ControllerResolver
	telemetry Telemetry
}

// NewReorderWidgetsCommand builds the command.
func NewReorderWidgetsCommand(sessions ControllerResolver, telemetry Telemetry) *ReorderWidgetsCommand {
	return &ReorderWidgetsCommand{sessions: sessions, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ReorderWidgetsInput] = (*ReorderWidgetsCommand)(nil)

// Execute applies the new ordering.
func (c *ReorderWidgetsCommand) Execute(ctx context.Context, msg ReorderWidgetsInput) error {
	if c.sessions == nil {
		return errors.New("reorder command requires sessions")
	}
	if msg.Viewer.UserID == "" {
		return errors.New("reorder command requires viewer user id")
	}
	if len(msg.WidgetIDs) == 0 {
		return errors.New("reorder command requires widget ids")
	}
	controller := c.sessions.Controller(ctx, msg.Viewer)
	controller.Reorder(ctx, msg.WidgetIDs)
	c.telemetry.Record(ctx, "personalize.widget.reorder", map[string]any{
		"user_id": msg.Viewer.UserID,
		"count":   len(msg.WidgetIDs),
	})
	return nil
}
