package personalization

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// WidgetManifestDocument models a YAML manifest describing the widget
// registry. Manifests are load-time configuration: once a registry is built
// from one, the registry never changes.
type WidgetManifestDocument struct {
	Version string           `json:"version" yaml:"version"`
	Name    string           `json:"name,omitempty" yaml:"name,omitempty"`
	Widgets []WidgetMetadata `json:"widgets" yaml:"widgets"`
	Source  string           `json:"-" yaml:"-"`
}

// NewRegistryFromManifest builds an immutable registry from a decoded manifest.
func NewRegistryFromManifest(doc *WidgetManifestDocument) (*Registry, error) {
	if doc == nil {
		return nil, fmt.Errorf("personalize: manifest document is nil")
	}
	reg, err := NewRegistryFromDefinitions(doc.Widgets)
	if err != nil {
		return nil, fmt.Errorf("personalize: manifest %s: %w", doc.Source, err)
	}
	return reg, nil
}

// ReadManifest loads a manifest file from disk.
func ReadManifest(path string) (*WidgetManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("personalize: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("personalize: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*WidgetManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc WidgetManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("personalize: manifest is empty")
		}
		return nil, fmt.Errorf("personalize: parse manifest: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// WriteManifest encodes the document to a manifest file.
func WriteManifest(path string, doc *WidgetManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("personalize: manifest document is nil")
	}
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("personalize: create manifest %s: %w", path, err)
	}
	defer f.Close()

	tmp := *doc
	tmp.Source = ""
	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	defer encoder.Close()
	if err := encoder.Encode(tmp); err != nil {
		return fmt.Errorf("personalize: write manifest: %w", err)
	}
	return nil
}

// Validate ensures the manifest satisfies required fields.
func (doc *WidgetManifestDocument) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("personalize: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Widgets))
	for idx, widget := range doc.Widgets {
		if widget.ID == "" {
			return fmt.Errorf("personalize: manifest widget at index %d is missing id", idx)
		}
		if widget.Label == "" {
			return fmt.Errorf("personalize: manifest widget %s missing label", widget.ID)
		}
		if !widget.RequiredView.Valid() {
			return fmt.Errorf("personalize: manifest widget %s has unknown view scope %q", widget.ID, widget.RequiredView)
		}
		if _, exists := seen[widget.ID]; exists {
			return fmt.Errorf("personalize: manifest duplicates widget id %s", widget.ID)
		}
		seen[widget.ID] = struct{}{}
	}
	return nil
}

func (doc *WidgetManifestDocument) applyDefaults() {
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
	for i := range doc.Widgets {
		if doc.Widgets[i].RequiredView == "" {
			doc.Widgets[i].RequiredView = ViewBoth
		}
	}
}
