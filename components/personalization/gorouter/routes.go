package gorouter

import (
	"encoding/json"
	"errors"
	"net/http"

	router "github.com/goliatone/go-router"

	personalization "github.com/goliatone/go-personalize/components/personalization"
	"github.com/goliatone/go-personalize/components/personalization/commands"
	"github.com/goliatone/go-personalize/components/personalization/httpapi"
)

// ViewerResolver converts a router.Context into a personalization.ViewerContext.
type ViewerResolver func(router.Context) personalization.ViewerContext

// Config wires go-router with the personalization API and hooks.
type Config[T any] struct {
	Router         router.Router[T]
	API            httpapi.Executor
	Broadcast      *personalization.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for personalization endpoints.
type RouteConfig struct {
	Layout    string
	Library   string
	Toggle    string
	Reorder   string
	Reset     string
	WebSocket string
}

func (c Config[T]) routes() RouteConfig {
	routes := c.Routes
	if routes.Layout == "" {
		routes.Layout = "/layout"
	}
	if routes.Library == "" {
		routes.Library = "/library"
	}
	if routes.Toggle == "" {
		routes.Toggle = "/widgets/toggle"
	}
	if routes.Reorder == "" {
		routes.Reorder = "/widgets/reorder"
	}
	if routes.Reset == "" {
		routes.Reset = "/reset"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	return routes
}

// Register mounts personalization routes (JSON, REST, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: api executor is required")
	}
	routes := cfg.routes()
	base := cfg.BasePath
	if base == "" {
		base = "/dashboard/preferences"
	}
	viewerResolver := cfg.ViewerResolver
	if viewerResolver == nil {
		viewerResolver = defaultViewerResolver
	}

	group := cfg.Router.Group(base)

	group.Get(routes.Layout, router.WrapHandler(func(ctx router.Context) error {
		layout, err := cfg.API.Layout(ctx.Context(), viewerResolver(ctx))
		if err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, layout)
	}))

	group.Get(routes.Library, router.WrapHandler(func(ctx router.Context) error {
		sections, err := cfg.API.Library(ctx.Context(), viewerResolver(ctx))
		if err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, sections)
	}))

	group.Post(routes.Toggle, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.ToggleWidgetInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		payload.Viewer = viewerResolver(ctx)
		if err := cfg.API.Toggle(ctx.Context(), payload); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "toggled"})
	}))

	group.Post(routes.Reorder, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.ReorderWidgetsInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		payload.Viewer = viewerResolver(ctx)
		if err := cfg.API.Reorder(ctx.Context(), payload); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "reordered"})
	}))

	group.Post(routes.Reset, router.WrapHandler(func(ctx router.Context) error {
		if err := cfg.API.Reset(ctx.Context(), commands.ResetPreferencesInput{Viewer: viewerResolver(ctx)}); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "reset"})
	}))

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}

	return nil
}

func registerWebSocket[T any](r router.Router[T], hook *personalization.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func defaultViewerResolver(ctx router.Context) personalization.ViewerContext {
	var viewer personalization.ViewerContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		viewer.UserID = v
	}
	if v, ok := ctx.Locals("role").(string); ok {
		viewer.Role = v
	}
	if v, ok := ctx.Locals("view").(string); ok {
		viewer.View = personalization.ViewScope(v)
	}
	if !viewer.View.Valid() {
		viewer.View = personalization.ViewPresales
	}
	return viewer
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}
