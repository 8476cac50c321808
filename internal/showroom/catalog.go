package showroom

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"showroom/internal/model"
)

//go:embed catalog.yaml
var catalogFS embed.FS

// RoomDefinition describes a room as listed in a catalog file.
type RoomDefinition struct {
	ID                    string               `yaml:"id"`
	Name                  string               `yaml:"name"`
	Description           string               `yaml:"description"`
	ImageURL              string               `yaml:"imageUrl"`
	Capacity              int                  `yaml:"capacity"`
	InstalledWidgetID     string               `yaml:"installedWidgetId"`
	InstalledWidgetDomain string               `yaml:"installedWidgetDomain"`
	Models                []model.PlacedObject `yaml:"models"`
}

// Catalog is the set of rooms the server starts with.
type Catalog struct {
	Rooms []RoomDefinition `yaml:"rooms"`
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Rooms))
	for _, def := range c.Rooms {
		if def.ID == "" {
			return Catalog{}, errors.New("parse catalog: room without id")
		}
		if _, dup := seen[def.ID]; dup {
			return Catalog{}, fmt.Errorf("parse catalog: duplicate room %q", def.ID)
		}
		seen[def.ID] = struct{}{}
		if err := validateModels(def); err != nil {
			return Catalog{}, fmt.Errorf("parse catalog: %w", err)
		}
	}
	return c, nil
}

func validateModels(def RoomDefinition) error {
	names := make(map[string]struct{}, len(def.Models))
	for _, obj := range def.Models {
		if obj.Name == "" {
			return fmt.Errorf("room %q: model without name", def.ID)
		}
		if _, dup := names[obj.Name]; dup {
			return fmt.Errorf("room %q: duplicate model %q", def.ID, obj.Name)
		}
		names[obj.Name] = struct{}{}
		if !obj.Position.InBounds() {
			return fmt.Errorf("room %q: model %q: %w", def.ID, obj.Name, model.ErrOutOfBounds)
		}
	}
	return nil
}

// DefaultCatalog returns the embedded room catalog.
func DefaultCatalog() (Catalog, error) {
	data, err := fs.ReadFile(catalogFS, "catalog.yaml")
	if err != nil {
		return Catalog{}, err
	}
	return ParseCatalog(data)
}
