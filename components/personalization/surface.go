package personalization

import "context"

// Surface is the dashboard rendering model: the visible, ordered widgets plus
// the reorder entry point drag interactions call on drop.
type Surface struct {
	controller *Controller
}

// NewSurface builds a surface over a controller.
func NewSurface(controller *Controller) *Surface {
	return &Surface{controller: controller}
}

// Widgets returns the visible widgets in display order.
func (s *Surface) Widgets() []ResolvedWidget {
	return s.controller.VisibleWidgets()
}

// Layout bundles the visible widgets with the transient load/save indicators.
func (s *Surface) Layout() Layout {
	return Layout{
		Widgets: s.Widgets(),
		Loading: s.controller.Loading(),
		Saving:  s.controller.Saving(),
	}
}

// CompleteDrag applies a finished drag gesture: the widget at position from
// moves to position to within the visible list, and the resulting full id
// order is handed to Reorder. Out-of-range sources are ignored; targets are
// clamped.
func (s *Surface) CompleteDrag(ctx context.Context, from, to int) {
	visible := s.Widgets()
	if from < 0 || from >= len(visible) {
		return
	}
	if to < 0 {
		to = 0
	}
	if to >= len(visible) {
		to = len(visible) - 1
	}
	ids := make([]string, len(visible))
	for i, w := range visible {
		ids[i] = w.Placement.ID
	}
	s.controller.Reorder(ctx, moveWidget(ids, from, to))
}

// Reorder passes a completed external reordering straight through.
func (s *Surface) Reorder(ctx context.Context, orderedIDs []string) {
	s.controller.Reorder(ctx, orderedIDs)
}

func moveWidget(ids []string, from, to int) []string {
	out := make([]string, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)
	out = append(out[:to], append([]string{ids[from]}, out[to:]...)...)
	return out
}
