package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	personalization "github.com/goliatone/go-personalize/components/personalization"
)

// ControllerResolver hands commands the layout controller for a viewer.
type ControllerResolver interface {
	Controller(ctx context.Context, viewer personalization.ViewerContext) *personalization.Controller
}

// ToggleWidgetInput identifies the widget to show or hide for a viewer.
type ToggleWidgetInput struct {
	Viewer   personalization.ViewerContext `json:"viewer"`
	WidgetID string                        `json:"widget_id"`
}

// ToggleWidgetCommand flips one widget's visibility.
type ToggleWidgetCommand struct {
	sessions  ControllerResolver
	telemetry Telemetry
}

// NewToggleWidgetCommand builds the command.
func NewToggleWidgetCommand(sessions ControllerResolver, telemetry Telemetry) *ToggleWidgetCommand {
	return &ToggleWidgetCommand{sessions: sessions, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ToggleWidgetInput] = (*ToggleWidgetCommand)(nil)

// Execute applies the toggle through the viewer's controller.
func (c *ToggleWidgetCommand) Execute(ctx context.Context, msg ToggleWidgetInput) error {
	if c.sessions == nil {
		return errors.New("toggle command requires sessions")
	}
	if msg.Viewer.UserID == "" {
		return errors.New("toggle command requires viewer user id")
	}
	if msg.WidgetID == "" {
		return errors.New("toggle command requires widget id")
	}
	controller := c.sessions.Controller(ctx, msg.Viewer)
	controller.ToggleVisibility(ctx, msg.WidgetID)
	c.telemetry.Record(ctx, "personalize.widget.toggle", map[string]any{
		"user_id":   msg.Viewer.UserID,
		"widget_id": msg.WidgetID,
	})
	return nil
}
