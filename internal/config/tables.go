package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TableDecl is one entry of the syncable-table declaration document,
// mirrored into oversqlite.TableSpec by the CLI before constructing an
// EngineConfig. Kept separate from the engine's own TableSpec type so the
// config package has no dependency on the engine package.
type TableDecl struct {
	Name     string   `yaml:"name"`
	PKColumn string   `yaml:"pk_column"`
	Columns  []string `yaml:"columns"`
}

type tablesDoc struct {
	Tables []TableDecl `yaml:"tables"`
}

// LoadTableDecls reads a syncable-table declaration YAML document, following
// the host's yaml_config.go convention of a standalone document outside
// viper's own config tree.
func LoadTableDecls(path string) ([]TableDecl, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table declarations %s: %w", path, err)
	}
	var doc tablesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse table declarations %s: %w", path, err)
	}
	for i, t := range doc.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("table declaration %d: name is required", i)
		}
		if t.PKColumn == "" {
			return nil, fmt.Errorf("table declaration %d (%s): pk_column is required", i, t.Name)
		}
	}
	return doc.Tables, nil
}
