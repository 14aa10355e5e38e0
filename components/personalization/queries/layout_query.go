package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	personalization "github.com/goliatone/go-personalize/components/personalization"
)

// ControllerResolver hands queries the layout controller for a viewer.
type ControllerResolver interface {
	Controller(ctx context.Context, viewer personalization.ViewerContext) *personalization.Controller
}

// LayoutQuery resolves the visible, ordered widget list for a viewer.
type LayoutQuery struct {
	sessions ControllerResolver
}

// NewLayoutQuery builds the query.
func NewLayoutQuery(sessions ControllerResolver) *LayoutQuery {
	return &LayoutQuery{sessions: sessions}
}

var _ gocommand.Querier[personalization.ViewerContext, personalization.Layout] = (*LayoutQuery)(nil)

// Query derives the render-ready layout for the viewer.
func (q *LayoutQuery) Query(ctx context.Context, viewer personalization.ViewerContext) (personalization.Layout, error) {
	controller := q.sessions.Controller(ctx, viewer)
	return personalization.NewSurface(controller).Layout(), nil
}
