package statemachine

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// TableConfig is the file representation of a Table.
type TableConfig struct {
	Name         string  `json:"name"         yaml:"name"`
	InitialState State   `json:"initialState" yaml:"initialState"`
	Transitions  []Entry `json:"transitions"  yaml:"transitions"`
}

// Build turns the configuration into a Table.
func (c *TableConfig) Build() (*Table, error) {
	return NewTable(c.Name, c.InitialState, c.Transitions...)
}

// Config returns the file representation of the table.
func (t *Table) Config() *TableConfig {
	return &TableConfig{
		Name:         t.name,
		InitialState: t.initial,
		Transitions:  t.Entries(),
	}
}

// MarshalYAML writes the table in the same shape LoadTableFromBytes reads.
func (t *Table) MarshalYAML() (any, error) {
	return t.Config(), nil
}

// LoadTable reads a YAML table from the filesystem.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read table file %q: %w", path, err)
	}

	return LoadTableFromBytes(data)
}

// LoadTableFromBytes parses a YAML table. Unknown state, event, effect or
// field names are rejected while decoding.
func LoadTableFromBytes(data []byte) (*Table, error) {
	config, err := ParseTableConfig(data)
	if err != nil {
		return nil, err
	}

	return config.Build()
}

// ParseTableConfig decodes a YAML table without building it, so structural
// problems such as duplicate entries can be reported by a validator.
func ParseTableConfig(data []byte) (*TableConfig, error) {
	var config TableConfig

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

// LoadTableConfig reads and decodes a YAML table file without building it.
func LoadTableConfig(path string) (*TableConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read table file %q: %w", path, err)
	}

	return ParseTableConfig(data)
}

// LoadTableFromFS loads a table from an embedded filesystem.
func LoadTableFromFS(fsys fs.FS, path string) (*Table, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table from FS: %w", err)
	}

	return LoadTableFromBytes(data)
}
