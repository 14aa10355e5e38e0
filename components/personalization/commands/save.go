package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	personalization "github.com/goliatone/go-personalize/components/personalization"
)

// SavePreferencesInput carries a full replacement document for a viewer.
type SavePreferencesInput struct {
	Viewer      personalization.ViewerContext `json:"viewer"`
	Preferences personalization.Preferences   `json:"preferences"`
}

// SavePreferencesCommand replaces a viewer's document wholesale, for imports
// or cross-device sync.
type SavePreferencesCommand struct {
	sessions  ControllerResolver
	telemetry Telemetry
}

// NewSavePreferencesCommand builds the command.
func NewSavePreferencesCommand(sessions ControllerResolver, telemetry Telemetry) *SavePreferencesCommand {
	return &SavePreferencesCommand{sessions: sessions, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SavePreferencesInput] = (*SavePreferencesCommand)(nil)

// Execute adopts and persists the replacement document.
func (c *SavePreferencesCommand) Execute(ctx context.Context, msg SavePreferencesInput) error {
	if c.sessions == nil {
		return errors.New("save command requires sessions")
	}
	if msg.Viewer.UserID == "" {
		return errors.New("save command requires viewer user id")
	}
	if msg.Preferences.Empty() {
		return errors.New("save command requires a non-empty document")
	}
	controller := c.sessions.Controller(ctx, msg.Viewer)
	controller.ReplacePreferences(ctx, msg.Preferences)
	c.telemetry.Record(ctx, "personalize.preferences.save", map[string]any{
		"user_id": msg.Viewer.UserID,
		"widgets": len(msg.Preferences.Widgets),
	})
	return nil
}
