package activity

import (
	"context"

	personalization "github.com/goliatone/go-personalize/components/personalization"
)

// Recorder translates preference events into activity events and emits them.
// It satisfies personalization.NotifyHook so it can be wired as a controller hook.
type Recorder struct {
	Emitter *Emitter
	// TenantID is attached to every emitted event when set.
	TenantID string
}

// NewRecorder builds a recorder around the given emitter.
func NewRecorder(emitter *Emitter) *Recorder {
	return &Recorder{Emitter: emitter}
}

var _ personalization.NotifyHook = (*Recorder)(nil)

// PreferencesUpdated maps the change into an activity event.
// Toggles record the widget as the object, everything else records the
// preference document keyed by user id.
func (r *Recorder) PreferencesUpdated(ctx context.Context, event personalization.PreferenceEvent) error {
	if r == nil || !r.Emitter.Enabled() {
		return nil
	}

	out := Event{
		Verb:     "preferences." + event.Reason,
		ActorID:  event.UserID,
		UserID:   event.UserID,
		TenantID: r.TenantID,
		Metadata: map[string]any{
			"widget_count": len(event.Preferences.Widgets),
		},
	}
	if event.WidgetID != "" {
		out.ObjectType = "widget"
		out.ObjectID = event.WidgetID
	} else {
		out.ObjectType = "dashboard_preferences"
		out.ObjectID = event.UserID
	}
	return r.Emitter.Emit(ctx, out)
}
