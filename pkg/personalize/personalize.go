package personalize

import (
	core "github.com/goliatone/go-personalize/components/personalization"
)

// Controller exposes the underlying components/personalization.Controller type.
type Controller = core.Controller

// ControllerOptions re-export for convenience.
type ControllerOptions = core.ControllerOptions

// Sessions re-export for convenience.
type Sessions = core.Sessions

// SessionsOptions re-export for convenience.
type SessionsOptions = core.SessionsOptions

// Registry re-export for convenience.
type Registry = core.Registry

// WidgetMetadata re-export for convenience.
type WidgetMetadata = core.WidgetMetadata

// Preferences re-export for convenience.
type Preferences = core.Preferences

// ViewerContext re-export for convenience.
type ViewerContext = core.ViewerContext

// PreferenceStore re-export for convenience.
type PreferenceStore = core.PreferenceStore

// NewController proxies to the internal constructor.
func NewController(opts ControllerOptions) *Controller {
	return core.NewController(opts)
}

// NewSessions proxies to the internal constructor.
func NewSessions(opts SessionsOptions) *Sessions {
	return core.NewSessions(opts)
}

// NewRegistry proxies to the internal constructor.
func NewRegistry() *Registry {
	return core.NewRegistry()
}
