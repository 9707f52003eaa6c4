package locations

import (
	"context"
	_ "embed"
	"fmt"

	"fm_servicios_backend/platform/slug"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var regionsYAML []byte

type regionsFile struct {
	Regions []struct {
		Name    string   `yaml:"name"`
		Comunas []string `yaml:"comunas"`
	} `yaml:"regions"`
}

// StaticCatalog serves the region table compiled into the binary.
type StaticCatalog struct {
	regions []string
	comunas map[string][]string // keyed by folded region name
}

// NewStaticCatalog parses the embedded region table.
func NewStaticCatalog() (*StaticCatalog, error) {
	var file regionsFile
	if err := yaml.Unmarshal(regionsYAML, &file); err != nil {
		return nil, fmt.Errorf("parse regions.yaml: %w", err)
	}

	c := &StaticCatalog{comunas: make(map[string][]string, len(file.Regions))}
	for _, r := range file.Regions {
		c.regions = append(c.regions, r.Name)
		c.comunas[slug.Fold(r.Name)] = r.Comunas
	}
	return c, nil
}

func (c *StaticCatalog) Regions(context.Context) ([]string, error) {
	return append([]string(nil), c.regions...), nil
}

// Comunas returns nil for an unknown region.
func (c *StaticCatalog) Comunas(_ context.Context, region string) ([]string, error) {
	return append([]string(nil), c.comunas[slug.Fold(region)]...), nil
}

var _ Catalog = (*StaticCatalog)(nil)
