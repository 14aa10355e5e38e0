package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"

	personalization "github.com/goliatone/go-personalize/components/personalization"
)

type cli struct {
	Validate validateCmd `cmd:"" help:"Validate a widget manifest file."`
	Defaults defaultsCmd `cmd:"" help:"Render the default preference document for a manifest."`
	Scaffold scaffoldCmd `cmd:"" help:"Add a widget entry to a manifest."`
}

type validateCmd struct {
	ManifestPath string `arg:"" type:"path" help:"Path to the widget manifest YAML file."`
}

type defaultsCmd struct {
	ManifestPath string `arg:"" optional:"" type:"path" help:"Path to the widget manifest YAML file (built-in catalog when omitted)."`
}

type scaffoldCmd struct {
	ID           string   `required:"" help:"Widget identifier (e.g. pipeline_overview)."`
	Label        string   `required:"" help:"Display label for the widget."`
	Description  string   `help:"One-line description shown in the customize view."`
	Category     string   `default:"general" help:"Library category the widget is grouped under."`
	View         string   `default:"both" help:"Required view scope (presales, postsales, both)."`
	Role         []string `help:"Roles allowed to see the widget (use multiple --role flags)."`
	Hidden       bool     `help:"Register the widget as hidden by default."`
	Component    string   `help:"UI component identifier (defaults to <Id>Widget in camel case)."`
	NavigateTo   string   `help:"Route opened when the widget is activated."`
	ManifestPath string   `required:"" type:"path" help:"Path to the widget manifest YAML file to update."`
	Overwrite    bool     `help:"Overwrite an existing manifest entry with the same id."`
}

func main() {
	ctx := kong.Parse(&cli{},
		kong.Description("Widget manifest utility for dashboard personalization."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background())
	ctx.FatalIfErrorf(err)
}

func (cmd *validateCmd) Run(_ context.Context) error {
	doc, err := personalization.ReadManifest(cmd.ManifestPath)
	if err != nil {
		return err
	}
	if _, err := personalization.NewRegistryFromManifest(doc); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ %s is valid (%d widgets)\n", cmd.ManifestPath, len(doc.Widgets))
	return nil
}

func (cmd *defaultsCmd) Run(_ context.Context) error {
	registry, err := cmd.registry()
	if err != nil {
		return err
	}
	prefs := registry.DefaultPreferences()
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(prefs)
}

func (cmd *defaultsCmd) registry() (*personalization.Registry, error) {
	if cmd.ManifestPath == "" {
		return personalization.NewRegistry(), nil
	}
	doc, err := personalization.ReadManifest(cmd.ManifestPath)
	if err != nil {
		return nil, err
	}
	return personalization.NewRegistryFromManifest(doc)
}

func (cmd *scaffoldCmd) Run(_ context.Context) error {
	scope := personalization.ViewScope(cmd.View)
	if !scope.Valid() {
		return fmt.Errorf("prefsctl: invalid view scope %q (expected presales, postsales, or both)", cmd.View)
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("prefsctl: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}
	if !cmd.Overwrite {
		for _, widget := range doc.Widgets {
			if widget.ID == cmd.ID {
				return fmt.Errorf("prefsctl: manifest already defines widget %s (use --overwrite to replace)", cmd.ID)
			}
		}
	}

	component := cmd.Component
	if component == "" {
		component = strcase.ToCamel(cmd.ID) + "Widget"
	}

	entry := personalization.WidgetMetadata{
		ID:             cmd.ID,
		Label:          cmd.Label,
		Description:    cmd.Description,
		Category:       cmd.Category,
		RequiredView:   scope,
		RequiredRoles:  cmd.Role,
		DefaultVisible: !cmd.Hidden,
		DefaultOrder:   nextOrder(doc.Widgets),
		Component:      component,
		NavigateTo:     cmd.NavigateTo,
	}

	replaced := false
	if cmd.Overwrite {
		for idx := range doc.Widgets {
			if doc.Widgets[idx].ID == cmd.ID {
				entry.DefaultOrder = doc.Widgets[idx].DefaultOrder
				doc.Widgets[idx] = entry
				replaced = true
				break
			}
		}
	}
	if !replaced {
		doc.Widgets = append(doc.Widgets, entry)
	}

	sort.SliceStable(doc.Widgets, func(i, j int) bool {
		return doc.Widgets[i].DefaultOrder < doc.Widgets[j].DefaultOrder
	})

	if err := personalization.WriteManifest(manifestPath, doc); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Added %s to %s\n", cmd.ID, manifestPath)
	return nil
}

func loadOrInitManifest(path string) (*personalization.WidgetManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &personalization.WidgetManifestDocument{
				Version: personalization.ManifestVersion,
				Name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
				Widgets: []personalization.WidgetMetadata{},
			}, nil
		}
		return nil, fmt.Errorf("prefsctl: stat manifest: %w", err)
	}
	return personalization.ReadManifest(path)
}

func nextOrder(widgets []personalization.WidgetMetadata) int {
	next := 0
	for _, widget := range widgets {
		if widget.DefaultOrder >= next {
			next = widget.DefaultOrder + 1
		}
	}
	return next
}
