package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	personalization "github.com/goliatone/go-personalize/components/personalization"
)

// LibraryQuery resolves the customize-view catalog for a viewer.
type LibraryQuery struct {
	sessions ControllerResolver
}

// NewLibraryQuery builds the query.
func NewLibraryQuery(sessions ControllerResolver) *LibraryQuery {
	return &LibraryQuery{sessions: sessions}
}

var _ gocommand.Querier[personalization.ViewerContext, []personalization.LibrarySection] = (*LibraryQuery)(nil)

// Query groups every widget the viewer's role could unlock by category.
func (q *LibraryQuery) Query(ctx context.Context, viewer personalization.ViewerContext) ([]personalization.LibrarySection, error) {
	controller := q.sessions.Controller(ctx, viewer)
	return personalization.NewLibrary(controller).Sections(), nil
}
