package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	gocommand "github.com/goliatone/go-command"

	personalization "github.com/goliatone/go-personalize/components/personalization"
	"github.com/goliatone/go-personalize/components/personalization/commands"
)

// Executor is the transport-facing surface backed by shared commands/queries.
type Executor interface {
	Toggle(ctx context.Context, msg commands.ToggleWidgetInput) error
	Reorder(ctx context.Context, msg commands.ReorderWidgetsInput) error
	Reset(ctx context.Context, msg commands.ResetPreferencesInput) error
	Layout(ctx context.Context, viewer personalization.ViewerContext) (personalization.Layout, error)
	Library(ctx context.Context, viewer personalization.ViewerContext) ([]personalization.LibrarySection, error)
}

// CommandExecutor adapts go-command commanders/queriers to the Executor surface.
type CommandExecutor struct {
	ToggleCommander  gocommand.Commander[commands.ToggleWidgetInput]
	ReorderCommander gocommand.Commander[commands.ReorderWidgetsInput]
	ResetCommander   gocommand.Commander[commands.ResetPreferencesInput]
	LayoutQuerier    gocommand.Querier[personalization.ViewerContext, personalization.Layout]
	LibraryQuerier   gocommand.Querier[personalization.ViewerContext, []personalization.LibrarySection]
}

var _ Executor = (*CommandExecutor)(nil)

func (e *CommandExecutor) Toggle(ctx context.Context, msg commands.ToggleWidgetInput) error {
	if e.ToggleCommander == nil {
		return errors.New("httpapi: toggle commander not configured")
	}
	return e.ToggleCommander.Execute(ctx, msg)
}

func (e *CommandExecutor) Reorder(ctx context.Context, msg commands.ReorderWidgetsInput) error {
	if e.ReorderCommander == nil {
		return errors.New("httpapi: reorder commander not configured")
	}
	return e.ReorderCommander.Execute(ctx, msg)
}

func (e *CommandExecutor) Reset(ctx context.Context, msg commands.ResetPreferencesInput) error {
	if e.ResetCommander == nil {
		return errors.New("httpapi: reset commander not configured")
	}
	return e.ResetCommander.Execute(ctx, msg)
}

func (e *CommandExecutor) Layout(ctx context.Context, viewer personalization.ViewerContext) (personalization.Layout, error) {
	if e.LayoutQuerier == nil {
		return personalization.Layout{}, errors.New("httpapi: layout querier not configured")
	}
	return e.LayoutQuerier.Query(ctx, viewer)
}

func (e *CommandExecutor) Library(ctx context.Context, viewer personalization.ViewerContext) ([]personalization.LibrarySection, error) {
	if e.LibraryQuerier == nil {
		return nil, errors.New("httpapi: library querier not configured")
	}
	return e.LibraryQuerier.Query(ctx, viewer)
}

// ViewerResolver extracts the authenticated viewer from a request.
type ViewerResolver func(r *http.Request) personalization.ViewerContext

// Handlers exposes plain net/http endpoints backed by the executor.
type Handlers struct {
	API    Executor
	Viewer ViewerResolver
}

func (h *Handlers) viewer(r *http.Request) personalization.ViewerContext {
	if h.Viewer == nil {
		return personalization.ViewerContext{}
	}
	return h.Viewer(r)
}

// HandleLayout serves the visible, ordered widget list for the viewer.
func (h *Handlers) HandleLayout(w http.ResponseWriter, r *http.Request) {
	layout, err := h.API.Layout(r.Context(), h.viewer(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, layout)
}

// HandleLibrary serves the customize-view catalog for the viewer.
func (h *Handlers) HandleLibrary(w http.ResponseWriter, r *http.Request) {
	sections, err := h.API.Library(r.Context(), h.viewer(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, sections)
}

// HandleToggle flips one widget's visibility for the viewer.
func (h *Handlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	var payload commands.ToggleWidgetInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload.Viewer = h.viewer(r)
	if err := h.API.Toggle(r.Context(), payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "toggled"})
}

// HandleReorder applies a completed drag reordering for the viewer.
func (h *Handlers) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var payload commands.ReorderWidgetsInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload.Viewer = h.viewer(r)
	if err := h.API.Reorder(r.Context(), payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

// HandleReset restores the registry defaults for the viewer.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.API.Reset(r.Context(), commands.ResetPreferencesInput{Viewer: h.viewer(r)}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
