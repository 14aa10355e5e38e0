package personalization

import (
	"fmt"
	"time"
)

// Registry is an immutable table of widget metadata. Entries are fixed at
// construction time; there is no runtime registration.
type Registry struct {
	order []string
	defs  map[string]WidgetMetadata
}

// NewRegistry builds a registry from the built-in widget definitions.
func NewRegistry() *Registry {
	reg, err := NewRegistryFromDefinitions(DefaultWidgetDefinitions())
	if err != nil {
		// built-in definitions are validated by tests; a failure here is a
		// programming error
		panic(err)
	}
	return reg
}

// NewRegistryFromDefinitions builds a registry from the provided metadata.
func NewRegistryFromDefinitions(defs []WidgetMetadata) (*Registry, error) {
	reg := &Registry{
		order: make([]string, 0, len(defs)),
		defs:  make(map[string]WidgetMetadata, len(defs)),
	}
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("personalize: widget id is required")
		}
		if _, exists := reg.defs[def.ID]; exists {
			return nil, fmt.Errorf("personalize: duplicate widget id %s", def.ID)
		}
		if def.RequiredView == "" {
			def.RequiredView = ViewBoth
		}
		if !def.RequiredView.Valid() {
			return nil, fmt.Errorf("personalize: widget %s has unknown view scope %q", def.ID, def.RequiredView)
		}
		reg.order = append(reg.order, def.ID)
		reg.defs[def.ID] = def
	}
	return reg, nil
}

// Definition fetches widget metadata by id.
func (r *Registry) Definition(id string) (WidgetMetadata, bool) {
	def, ok := r.defs[id]
	return def, ok
}

// Definitions returns all entries in registration order.
func (r *Registry) Definitions() []WidgetMetadata {
	out := make([]WidgetMetadata, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

// WidgetsByCategory returns the entries in the given category, in registration
// order. Unknown categories yield an empty list.
func (r *Registry) WidgetsByCategory(category string) []WidgetMetadata {
	out := []WidgetMetadata{}
	for _, id := range r.order {
		if def := r.defs[id]; def.Category == category {
			out = append(out, def)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (r *Registry) Categories() []string {
	seen := make(map[string]struct{}, len(r.order))
	out := []string{}
	for _, id := range r.order {
		cat := r.defs[id].Category
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	return out
}

// DefaultPreferences derives one placement per registry entry from each
// entry's default visibility and order seeds.
func (r *Registry) DefaultPreferences() Preferences {
	prefs := Preferences{
		Widgets:      make([]WidgetPlacement, 0, len(r.order)),
		LastModified: time.Now().UTC(),
	}
	for _, id := range r.order {
		def := r.defs[id]
		prefs.Widgets = append(prefs.Widgets, WidgetPlacement{
			ID:      def.ID,
			Visible: def.DefaultVisible,
			Order:   def.DefaultOrder,
		})
	}
	return prefs
}
