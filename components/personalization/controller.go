package personalization

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionState tracks the controller lifecycle for one viewer session.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateLoading
	StateReady
)

const defaultSaveTimeout = 5 * time.Second

// ControllerOptions configures a layout controller. Every collaborator has a
// safe default so tests and small deployments can construct one with just a
// viewer.
type ControllerOptions struct {
	Registry    *Registry
	Store       PreferenceStore
	Viewer      ViewerContext
	Logger      *zerolog.Logger
	Telemetry   Telemetry
	Notify      NotifyHook
	SaveTimeout time.Duration
}

// Controller owns the in-memory preferences for one viewer session. It loads
// or initializes the document, derives the accessible widget list, and applies
// optimistic mutations that persist asynchronously.
//
// Mutations never roll back on save failure: local state stays authoritative
// until the next successful save or the next reload.
type Controller struct {
	opts      ControllerOptions
	sessionID string

	mu           sync.RWMutex
	state        SessionState
	prefs        *Preferences
	pendingSaves int
	wg           sync.WaitGroup
}

// NewController builds a controller with safe defaults.
func NewController(opts ControllerOptions) *Controller {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Store == nil {
		opts.Store = NewInMemoryPreferenceStore()
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	if opts.Notify == nil {
		opts.Notify = noopNotifyHook{}
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = defaultSaveTimeout
	}
	return &Controller{
		opts:      opts,
		sessionID: uuid.NewString(),
	}
}

// SessionID identifies this controller instance in logs and telemetry.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Viewer returns the viewer this controller was built for.
func (c *Controller) Viewer() ViewerContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts.Viewer
}

// SetView updates the current view scope. The scope only affects derivation;
// stored preferences are untouched.
func (c *Controller) SetView(view ViewScope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Viewer.View = view
}

// State reports the session lifecycle state.
func (c *Controller) State() SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Loading reports whether the initial load is still in flight.
func (c *Controller) Loading() bool {
	return c.State() == StateLoading
}

// Saving reports whether any persistence call is in flight.
func (c *Controller) Saving() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pendingSaves > 0
}

// Preferences returns a snapshot of the in-memory document. ok is false when
// the session has no preferences (anonymous viewer or not yet loaded).
func (c *Controller) Preferences() (Preferences, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.prefs == nil {
		return Preferences{}, false
	}
	return c.prefs.Clone(), true
}

// Load fetches the remote document or synthesizes defaults. Store failures are
// swallowed: the session always reaches StateReady, falling back to defaults
// when the fetch errors. When the store has no document (or an empty one) the
// synthesized defaults are persisted fire-and-forget.
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return
	}
	viewer := c.opts.Viewer
	if viewer.UserID == "" {
		c.state = StateReady
		c.mu.Unlock()
		return
	}
	c.state = StateLoading
	c.mu.Unlock()

	prefs, ok, err := c.opts.Store.Fetch(ctx, viewer.UserID)
	persistDefaults := false
	switch {
	case err != nil:
		c.opts.Logger.Warn().Err(err).
			Str("user_id", viewer.UserID).
			Str("session_id", c.sessionID).
			Msg("preference fetch failed, falling back to defaults")
		prefs = c.opts.Registry.DefaultPreferences()
	case !ok || prefs.Empty():
		prefs = c.opts.Registry.DefaultPreferences()
		persistDefaults = true
	}

	c.mu.Lock()
	adopted := prefs.Clone()
	c.prefs = &adopted
	c.state = StateReady
	if persistDefaults {
		c.pendingSaves++
	}
	c.mu.Unlock()

	c.opts.Telemetry.Record(ctx, "personalize.preferences.load", map[string]any{
		"user_id":   viewer.UserID,
		"widgets":   len(prefs.Widgets),
		"defaulted": persistDefaults || err != nil,
	})
	if persistDefaults {
		c.saveAsync(ctx, prefs.Clone(), ReasonLoad)
	}
}

// AccessibleWidgets resolves each placement against the registry, drops
// unknown ids and entries the viewer's view scope or role excludes, and sorts
// ascending by order (stable for ties). Recomputed on every call.
func (c *Controller) AccessibleWidgets() []ResolvedWidget {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.prefs == nil {
		return nil
	}
	viewer := c.opts.Viewer
	resolved := make([]ResolvedWidget, 0, len(c.prefs.Widgets))
	position := make(map[string]int, len(c.prefs.Widgets))
	for _, placement := range c.prefs.Widgets {
		meta, ok := c.opts.Registry.Definition(placement.ID)
		if !ok {
			continue
		}
		if !viewer.View.Allows(meta.RequiredView) {
			continue
		}
		if !meta.AllowsRole(viewer.Role) {
			continue
		}
		entry := ResolvedWidget{Metadata: meta, Placement: placement}
		if idx, seen := position[placement.ID]; seen {
			// duplicate placement: last entry wins
			resolved[idx] = entry
			continue
		}
		position[placement.ID] = len(resolved)
		resolved = append(resolved, entry)
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Placement.Order < resolved[j].Placement.Order
	})
	return resolved
}

// VisibleWidgets returns the accessible widgets whose placement is visible.
func (c *Controller) VisibleWidgets() []ResolvedWidget {
	accessible := c.AccessibleWidgets()
	visible := make([]ResolvedWidget, 0, len(accessible))
	for _, w := range accessible {
		if w.Placement.Visible {
			visible = append(visible, w)
		}
	}
	return visible
}

// IsVisible returns the recorded visibility for id, defaulting to true when no
// placement exists. The permissive default is deliberate: a widget the
// preferences have never recorded counts as visible until explicitly hidden.
func (c *Controller) IsVisible(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.prefs == nil {
		return true
	}
	placement, ok := c.prefs.Placement(id)
	if !ok {
		return true
	}
	return placement.Visible
}

// ToggleVisibility flips the visible flag on the matching placement. All other
// placements are untouched; unknown ids are a no-op.
func (c *Controller) ToggleVisibility(ctx context.Context, id string) {
	c.mutate(ctx, ReasonToggle, id, func(next *Preferences) bool {
		found := false
		for i := range next.Widgets {
			if next.Widgets[i].ID == id {
				next.Widgets[i].Visible = !next.Widgets[i].Visible
				found = true
			}
		}
		return found
	})
}

// Reorder rebuilds placement order from the provided id list: each listed id
// gets its index as order (keeping its other fields), ids not yet recorded are
// created visible, and placements absent from the list, typically hidden
// widgets, are preserved unchanged.
func (c *Controller) Reorder(ctx context.Context, orderedIDs []string) {
	if len(orderedIDs) == 0 {
		return
	}
	c.mutate(ctx, ReasonReorder, "", func(next *Preferences) bool {
		index := make(map[string]int, len(orderedIDs))
		for i, id := range orderedIDs {
			if _, ok := index[id]; !ok {
				index[id] = i
			}
		}
		seen := make(map[string]struct{}, len(next.Widgets))
		for i := range next.Widgets {
			if pos, ok := index[next.Widgets[i].ID]; ok {
				next.Widgets[i].Order = pos
			}
			seen[next.Widgets[i].ID] = struct{}{}
		}
		for i, id := range orderedIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			next.Widgets = append(next.Widgets, WidgetPlacement{ID: id, Visible: true, Order: i})
			seen[id] = struct{}{}
		}
		return true
	})
}

// ReplacePreferences adopts a full document wholesale, for imports or
// cross-device sync, and persists it like any other mutation.
func (c *Controller) ReplacePreferences(ctx context.Context, prefs Preferences) {
	c.mutate(ctx, ReasonSave, "", func(next *Preferences) bool {
		*next = prefs.Clone()
		return true
	})
}

// ResetToDefaults discards the current document and installs the registry
// defaults.
func (c *Controller) ResetToDefaults(ctx context.Context) {
	defaults := c.opts.Registry.DefaultPreferences()
	c.mutate(ctx, ReasonReset, "", func(next *Preferences) bool {
		*next = defaults
		return true
	})
}

// Close waits for in-flight persistence calls to settle. Call on logout or
// session teardown.
func (c *Controller) Close() {
	c.wg.Wait()
}

// mutate applies fn to a copy of the current document under the lock, adopts
// the result optimistically, and schedules the remote write. fn returning
// false means no change was made.
func (c *Controller) mutate(ctx context.Context, reason, widgetID string, fn func(*Preferences) bool) {
	c.mu.Lock()
	if c.prefs == nil {
		c.mu.Unlock()
		return
	}
	next := c.prefs.Clone()
	if !fn(&next) {
		c.mu.Unlock()
		return
	}
	next.LastModified = time.Now().UTC()
	adopted := next.Clone()
	c.prefs = &adopted
	c.pendingSaves++
	viewer := c.opts.Viewer
	c.mu.Unlock()

	c.opts.Telemetry.Record(ctx, "personalize.preferences."+reason, map[string]any{
		"user_id":   viewer.UserID,
		"widget_id": widgetID,
		"widgets":   len(next.Widgets),
	})
	event := PreferenceEvent{
		UserID:      viewer.UserID,
		Reason:      reason,
		WidgetID:    widgetID,
		Preferences: next.Clone(),
	}
	if err := c.opts.Notify.PreferencesUpdated(ctx, event); err != nil {
		c.opts.Logger.Warn().Err(err).
			Str("user_id", viewer.UserID).
			Str("reason", reason).
			Msg("preference notify hook failed")
	}
	c.saveAsync(ctx, next, reason)
}

// saveAsync writes the document to the store on a detached goroutine with a
// bounded timeout. Failures are logged; the optimistic local state is kept.
// The caller must have incremented pendingSaves.
func (c *Controller) saveAsync(ctx context.Context, prefs Preferences, reason string) {
	userID := c.opts.Viewer.UserID
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.SaveTimeout)
		defer cancel()
		err := c.opts.Store.Replace(saveCtx, userID, prefs)
		c.mu.Lock()
		c.pendingSaves--
		c.mu.Unlock()
		if err != nil {
			c.opts.Logger.Warn().Err(err).
				Str("user_id", userID).
				Str("reason", reason).
				Str("session_id", c.sessionID).
				Msg("preference save failed, keeping optimistic local state")
			return
		}
		c.opts.Telemetry.Record(saveCtx, "personalize.preferences.saved", map[string]any{
			"user_id": userID,
			"reason":  reason,
		})
	}()
}
