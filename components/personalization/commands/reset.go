package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	personalization "github.com/goliatone/go-personalize/components/personalization"
)

// ResetPreferencesInput identifies the viewer whose layout reverts to defaults.
type ResetPreferencesInput struct {
	Viewer personalization.ViewerContext `json:"viewer"`
}

// ResetPreferencesCommand restores the registry defaults for a viewer.
type ResetPreferencesCommand struct {
	sessions  ControllerResolver
	telemetry Telemetry
}

// NewResetPreferencesCommand builds the command.
func NewResetPreferencesCommand(sessions ControllerResolver, telemetry Telemetry) *ResetPreferencesCommand {
	return &ResetPreferencesCommand{sessions: sessions, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ResetPreferencesInput] = (*ResetPreferencesCommand)(nil)

// Execute discards the viewer's preferences and installs defaults.
func (c *ResetPreferencesCommand) Execute(ctx context.Context, msg ResetPreferencesInput) error {
	if c.sessions == nil {
		return errors.New("reset command requires sessions")
	}
	if msg.Viewer.UserID == "" {
		return errors.New("reset command requires viewer user id")
	}
	controller := c.sessions.Controller(ctx, msg.Viewer)
	controller.ResetToDefaults(ctx)
	c.telemetry.Record(ctx, "personalize.preferences.reset", map[string]any{
		"user_id": msg.Viewer.UserID,
	})
	return nil
}
