package personalization

import (
	"context"
	"sort"
)

// LibraryWidget is one catalog entry in the customize view.
type LibraryWidget struct {
	Metadata WidgetMetadata `json:"metadata"`
	// Visible mirrors the controller's permissive visibility lookup, so a
	// hidden widget still appears here (greyed) rather than disappearing.
	Visible bool `json:"visible"`
	// InView reports whether the viewer's current view scope would show the
	// widget on the dashboard surface. Foreign-view widgets stay listed.
	InView bool `json:"in_view"`
}

// LibrarySection groups catalog entries by category.
type LibrarySection struct {
	Category string          `json:"category"`
	Widgets  []LibraryWidget `json:"widgets"`
}

// Library is the customize-view model: every widget the viewer's role could
// ever unlock, grouped by category. Unlike AccessibleWidgets it reads the full
// registry and applies only the role filter; hidden widgets and widgets
// belonging to the other view scope are still listed.
type Library struct {
	controller *Controller
}

// NewLibrary builds the customize view model over a controller.
func NewLibrary(controller *Controller) *Library {
	return &Library{controller: controller}
}

// Sections returns the catalog grouped by category, categories sorted by
// name, widgets inside a section by default order.
func (l *Library) Sections() []LibrarySection {
	registry := l.controller.opts.Registry
	viewer := l.controller.Viewer()

	categories := registry.Categories()
	sort.Strings(categories)

	sections := make([]LibrarySection, 0, len(categories))
	for _, category := range categories {
		widgets := []LibraryWidget{}
		entries := registry.WidgetsByCategory(category)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].DefaultOrder < entries[j].DefaultOrder
		})
		for _, meta := range entries {
			if !meta.AllowsRole(viewer.Role) {
				continue
			}
			widgets = append(widgets, LibraryWidget{
				Metadata: meta,
				Visible:  l.controller.IsVisible(meta.ID),
				InView:   viewer.View.Allows(meta.RequiredView),
			})
		}
		if len(widgets) == 0 {
			continue
		}
		sections = append(sections, LibrarySection{Category: category, Widgets: widgets})
	}
	return sections
}

// Toggle flips one widget's visibility through the controller.
func (l *Library) Toggle(ctx context.Context, id string) {
	l.controller.ToggleVisibility(ctx, id)
}

// Reset restores the registry defaults.
func (l *Library) Reset(ctx context.Context) {
	l.controller.ResetToDefaults(ctx)
}

// Saving exposes the controller's transient saving indicator.
func (l *Library) Saving() bool {
	return l.controller.Saving()
}
