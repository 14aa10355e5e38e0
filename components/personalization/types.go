package personalization

import (
	"context"
	"errors"
	"time"
)

// ViewScope is the coarse permission dimension gating which widgets a viewer's
// current UI mode may show.
type ViewScope string

const (
	ViewPresales  ViewScope = "presales"
	ViewPostsales ViewScope = "postsales"
	ViewBoth      ViewScope = "both"
)

// Valid reports whether the scope is one of the known values.
func (v ViewScope) Valid() bool {
	switch v {
	case ViewPresales, ViewPostsales, ViewBoth:
		return true
	}
	return false
}

// Allows reports whether a viewer in scope v may see a widget requiring the
// given scope. A viewer in ViewBoth sees everything; a widget requiring
// ViewBoth is always eligible.
func (v ViewScope) Allows(required ViewScope) bool {
	if required == ViewBoth || v == ViewBoth {
		return true
	}
	return v == required
}

// WidgetMetadata describes one registered widget. The registry is the single
// source of truth for these entries; they never change at runtime.
type WidgetMetadata struct {
	ID             string    `json:"id" yaml:"id"`
	Label          string    `json:"label" yaml:"label"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	Category       string    `json:"category" yaml:"category"`
	RequiredView   ViewScope `json:"required_view" yaml:"required_view"`
	RequiredRoles  []string  `json:"required_roles,omitempty" yaml:"required_roles,omitempty"`
	DefaultVisible bool      `json:"default_visible" yaml:"default_visible"`
	DefaultOrder   int       `json:"default_order" yaml:"default_order"`
	Component      string    `json:"component" yaml:"component"`
	NavigateTo     string    `json:"navigate_to,omitempty" yaml:"navigate_to,omitempty"`
}

// AllowsRole reports whether a viewer holding the given role may see the
// widget. Widgets with no role restriction are open to everyone.
func (m WidgetMetadata) AllowsRole(role string) bool {
	if len(m.RequiredRoles) == 0 {
		return true
	}
	for _, r := range m.RequiredRoles {
		if r == role {
			return true
		}
	}
	return false
}

// WidgetPlacement is a viewer's visibility+order record for one widget.
type WidgetPlacement struct {
	ID      string `json:"id" yaml:"id"`
	Visible bool   `json:"visible" yaml:"visible"`
	Order   int    `json:"order" yaml:"order"`
}

// Preferences is the persisted per-user aggregate. LastModified is
// observability metadata only; it plays no part in conflict resolution.
type Preferences struct {
	Widgets      []WidgetPlacement `json:"widgets" yaml:"widgets"`
	LastModified time.Time         `json:"last_modified" yaml:"last_modified"`
}

// Placement returns the placement recorded for id. When duplicates exist the
// last entry wins.
func (p Preferences) Placement(id string) (WidgetPlacement, bool) {
	var found WidgetPlacement
	ok := false
	for _, w := range p.Widgets {
		if w.ID == id {
			found = w
			ok = true
		}
	}
	return found, ok
}

// Empty reports whether the document carries no placements at all.
func (p Preferences) Empty() bool {
	return len(p.Widgets) == 0
}

// Clone returns a deep copy so callers can hand preferences across goroutines.
func (p Preferences) Clone() Preferences {
	out := Preferences{LastModified: p.LastModified}
	if p.Widgets != nil {
		out.Widgets = make([]WidgetPlacement, len(p.Widgets))
		copy(out.Widgets, p.Widgets)
	}
	return out
}

// ViewerContext captures the authenticated user and the UI mode they are in.
type ViewerContext struct {
	UserID string    `json:"user_id"`
	Role   string    `json:"role"`
	View   ViewScope `json:"view"`
}

// PreferenceStore is the remote persistence collaborator. Fetch returns
// ok=false when the store has no document for the user; Replace overwrites the
// stored document wholesale.
type PreferenceStore interface {
	Fetch(ctx context.Context, userID string) (Preferences, bool, error)
	Replace(ctx context.Context, userID string, prefs Preferences) error
}

// ResolvedWidget pairs a placement with its registry metadata.
type ResolvedWidget struct {
	Metadata  WidgetMetadata  `json:"metadata"`
	Placement WidgetPlacement `json:"placement"`
}

// Layout is the render-ready payload for a dashboard surface.
type Layout struct {
	Widgets []ResolvedWidget `json:"widgets"`
	Loading bool             `json:"loading"`
	Saving  bool             `json:"saving"`
}

// PreferenceEvent describes a preference mutation that transports or activity
// sinks might care about.
type PreferenceEvent struct {
	UserID      string      `json:"user_id"`
	Reason      string      `json:"reason"`
	WidgetID    string      `json:"widget_id,omitempty"`
	Preferences Preferences `json:"preferences"`
}

// Mutation reasons carried on PreferenceEvent.
const (
	ReasonLoad    = "load"
	ReasonToggle  = "toggle"
	ReasonReorder = "reorder"
	ReasonReset   = "reset"
	ReasonSave    = "save"
)

// NotifyHook receives preference events after a mutation is applied locally.
type NotifyHook interface {
	PreferencesUpdated(ctx context.Context, event PreferenceEvent) error
}

type noopNotifyHook struct{}

func (noopNotifyHook) PreferencesUpdated(context.Context, PreferenceEvent) error {
	return nil
}

// NotifyHooks fans a preference event out to several hooks.
type NotifyHooks []NotifyHook

// PreferencesUpdated forwards the event to every hook, joining any errors.
func (h NotifyHooks) PreferencesUpdated(ctx context.Context, event PreferenceEvent) error {
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.PreferencesUpdated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
