package data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/l1jgo/poolmgr/internal/pool"
	"github.com/l1jgo/poolmgr/internal/world"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// KindTemplate holds the prototype data of one poolable kind.
type KindTemplate struct {
	Name     string            `yaml:"name"`
	Position world.Vec3        `yaml:"position"`
	Props    map[string]string `yaml:"props"`
}

type catalogFile struct {
	Kinds []KindTemplate `yaml:"kinds"`
}

// Catalog holds the poolable kinds loaded from YAML, in file order.
// Duplicate names are kept so the pool can reject them.
type Catalog struct {
	templates []*KindTemplate
	scene     *world.Scene
}

// LoadCatalog loads kinds from path. A file holds a `kinds:` list; a
// directory holds one kind per *.yaml file, named after the file unless the
// file sets name. Templates are instantiated into scene.
func LoadCatalog(path string, scene *world.Scene) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat catalog: %w", err)
	}
	var templates []*KindTemplate
	if info.IsDir() {
		templates, err = loadCatalogDir(path)
	} else {
		templates, err = loadCatalogFile(path)
	}
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		t.Name = NormalizeKey(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("catalog %s: kind without name", path)
		}
	}
	return &Catalog{templates: templates, scene: scene}, nil
}

func loadCatalogFile(path string) ([]*KindTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	out := make([]*KindTemplate, len(f.Kinds))
	for i := range f.Kinds {
		out[i] = &f.Kinds[i]
	}
	return out, nil
}

func loadCatalogDir(dir string) ([]*KindTemplate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	out := make([]*KindTemplate, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var t KindTemplate
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if t.Name == "" {
			t.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		out = append(out, &t)
	}
	return out, nil
}

// NormalizeKey trims and NFC-normalizes a kind key so the same name typed
// with different Unicode compositions maps to one kind. Every catalog
// source runs its keys through it.
func NormalizeKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Templates returns the loaded templates in catalog order.
func (c *Catalog) Templates() []*KindTemplate {
	return c.templates
}

// Count returns the number of loaded templates.
func (c *Catalog) Count() int {
	return len(c.templates)
}

// Entries implements pool.Catalog.
func (c *Catalog) Entries(_ context.Context) ([]pool.CatalogEntry, error) {
	out := make([]pool.CatalogEntry, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, pool.CatalogEntry{
			Kind:     t.Name,
			Template: world.NewPrototype(c.scene, t.Name, t.Position, t.Props),
		})
	}
	return out, nil
}
