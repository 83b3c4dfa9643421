package survey

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownDataset is returned by Resolve for ids not in the catalog.
var ErrUnknownDataset = errors.New("survey: unknown dataset")

// Dataset is what a logical dataset id resolves to.
type Dataset struct {
	ID         string `yaml:"-"`
	Path       string `yaml:"path"`
	Format     string `yaml:"format,omitempty"`
	Survey     string `yaml:"survey,omitempty"`
	Is2D       bool   `yaml:"is2d,omitempty"`
	IsPrestack bool   `yaml:"prestack,omitempty"`
}

// Resolver maps logical dataset ids to storage locations.
type Resolver interface {
	Resolve(id string) (Dataset, error)
}

// Catalog is a YAML-backed Resolver and GeometrySource. Relative dataset
// paths are taken relative to the catalog file's directory.
type Catalog struct {
	mu       sync.RWMutex
	dir      string
	Surveys  map[string]*Survey  `yaml:"surveys,omitempty"`
	Datasets map[string]*Dataset `yaml:"datasets"`
}

// NewCatalog returns an empty catalog rooted at dir.
func NewCatalog(dir string) *Catalog {
	return &Catalog{
		dir:      dir,
		Surveys:  make(map[string]*Survey),
		Datasets: make(map[string]*Dataset),
	}
}

// LoadCatalog reads a catalog file. A missing file yields an empty catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog(filepath.Dir(path))
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	if c.Surveys == nil {
		c.Surveys = make(map[string]*Survey)
	}
	if c.Datasets == nil {
		c.Datasets = make(map[string]*Dataset)
	}
	for name, s := range c.Surveys {
		s.Name = name
	}
	for id, ds := range c.Datasets {
		ds.ID = id
	}
	return c, nil
}

// Save writes the catalog to path.
func (c *Catalog) Save(path string) error {
	c.mu.RLock()
	data, err := yaml.Marshal(c)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Add registers or replaces a dataset entry.
func (c *Catalog) Add(id string, ds Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ds.ID = id
	c.Datasets[id] = &ds
}

// AddSurvey registers or replaces a survey definition.
func (c *Catalog) AddSurvey(name string, s Survey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.Name = name
	c.Surveys[name] = &s
}

// IDs returns the dataset ids in sorted order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.Datasets))
	for id := range c.Datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve implements Resolver.
func (c *Catalog) Resolve(id string) (Dataset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.Datasets[id]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnknownDataset, id)
	}
	out := *ds
	if !filepath.IsAbs(out.Path) && c.dir != "" {
		out.Path = filepath.Join(c.dir, out.Path)
	}
	return out, nil
}

// Geometry implements GeometrySource.
func (c *Catalog) Geometry(name string) (Geometry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.Surveys[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSurvey, name)
	}
	return s, nil
}

// PathResolver resolves every id to itself as a 3D dataset path.
type PathResolver struct{}

// Resolve implements Resolver.
func (PathResolver) Resolve(id string) (Dataset, error) {
	return Dataset{ID: id, Path: id}, nil
}
