// Package catalog loads dimension and activity catalogs from YAML or JSON
// files, ships the canonical catalog embedded in the binary, seeds it into a
// store and watches catalog files for changes.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/activity-architect/pkg/types"
)

// ErrInvalidCatalog is returned for catalogs that cannot be used: duplicate
// keys or names, blank identifiers, or scores outside the domain.
var ErrInvalidCatalog = errors.New("invalid catalog")

// ErrEmptyStore is returned by FromStore when no catalog has been seeded.
var ErrEmptyStore = errors.New("no catalog in store")

//go:embed default.yaml
var defaultCatalog []byte

// Catalog is a loaded set of dimensions and activities.
type Catalog struct {
	Dimensions types.DimensionCatalog
	Activities []types.Activity
}

// file mirrors the on-disk layout. Order is a pointer so a missing value can
// be told apart from an explicit zero.
type file struct {
	Dimensions []fileDimension `yaml:"dimensions"`
	Activities []fileActivity  `yaml:"activities"`
}

type fileDimension struct {
	Key         string `yaml:"key"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Order       *int   `yaml:"order"`
}

type fileActivity struct {
	Name   string             `yaml:"name"`
	Scores map[string]float64 `yaml:"scores"`
}

// Default returns the embedded canonical catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads and parses the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault loads path, or the embedded catalog when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return Load(path)
}

// Parse decodes a YAML or JSON catalog document. Dimensions without an order
// are ordered by position; the result is sorted into display order.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	dims := make([]types.Dimension, 0, len(f.Dimensions))
	seenKeys := make(map[string]bool, len(f.Dimensions))
	for i, fd := range f.Dimensions {
		key := strings.TrimSpace(fd.Key)
		if key == "" {
			return nil, fmt.Errorf("%w: dimension %d has no key", ErrInvalidCatalog, i)
		}
		if seenKeys[key] {
			return nil, fmt.Errorf("%w: duplicate dimension key %q", ErrInvalidCatalog, key)
		}
		seenKeys[key] = true

		order := (i + 1) * 10
		if fd.Order != nil {
			order = *fd.Order
		}
		label := fd.Label
		if label == "" {
			label = key
		}
		dims = append(dims, types.Dimension{
			Key:         key,
			Label:       label,
			Description: fd.Description,
			Category:    fd.Category,
			Order:       order,
		})
	}

	acts := make([]types.Activity, 0, len(f.Activities))
	seenNames := make(map[string]bool, len(f.Activities))
	for _, fa := range f.Activities {
		a := types.Activity{
			Name:   strings.TrimSpace(fa.Name),
			Scores: types.Scores(fa.Scores),
		}
		if err := types.ValidateActivity(&a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		if seenNames[a.Name] {
			return nil, fmt.Errorf("%w: duplicate activity name %q", ErrInvalidCatalog, a.Name)
		}
		seenNames[a.Name] = true
		if a.Scores == nil {
			a.Scores = types.Scores{}
		}
		acts = append(acts, a)
	}

	return &Catalog{
		Dimensions: types.SortDimensions(dims),
		Activities: acts,
	}, nil
}

// Marshal encodes c in the file layout Parse reads.
func Marshal(c *Catalog) ([]byte, error) {
	f := file{
		Dimensions: make([]fileDimension, len(c.Dimensions)),
		Activities: make([]fileActivity, len(c.Activities)),
	}
	for i, d := range c.Dimensions {
		order := d.Order
		f.Dimensions[i] = fileDimension{
			Key:         d.Key,
			Label:       d.Label,
			Description: d.Description,
			Category:    d.Category,
			Order:       &order,
		}
	}
	for i, a := range c.Activities {
		f.Activities[i] = fileActivity{Name: a.Name, Scores: a.Scores}
	}
	return yaml.Marshal(f)
}

// Activity returns the catalog activity called name.
func (c *Catalog) Activity(name string) (types.Activity, bool) {
	for _, a := range c.Activities {
		if a.Name == name {
			return a, true
		}
	}
	return types.Activity{}, false
}
