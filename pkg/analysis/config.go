package analysis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/osenergy/gridmend/pkg/catalog"
)

// fileConfig is the on-disk YAML layout: pipeline settings plus
// optional site-specific conductor catalog overrides.
type fileConfig struct {
	Config     `yaml:",inline"`
	Conductors map[string]catalog.Spec `yaml:"conductors"`
}

// LoadConfigFile reads a YAML config file, layering it over the
// defaults, and returns the pipeline config together with a catalog
// extended by any conductor overrides the file declares.
func LoadConfigFile(path string) (Config, *catalog.Catalog, error) {
	cat := catalog.Default()
	fc := fileConfig{Config: DefaultConfig()}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, nil, fmt.Errorf("parse config: %w", err)
	}
	for id, spec := range fc.Conductors {
		cat.Put(id, spec)
	}
	return fc.Config, cat, nil
}
