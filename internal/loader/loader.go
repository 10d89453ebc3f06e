// Package loader provides the default file-system collaborators: a YAML
// directory schema loader and an os-backed file writer. The richer schema
// language tooling can replace either through the service interfaces.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"schemaver/internal/snapshot"
)

// DirectoryLoader reads one raw schema per *.yaml/*.yml file in a directory.
type DirectoryLoader struct{}

// LoadSchemas decodes every schema file in dir, keyed by schema name. The
// schema name defaults to the file base name when the file does not declare
// one. A missing directory yields zero schemas.
func (DirectoryLoader) LoadSchemas(dir string) (map[string]snapshot.RawSchema, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]snapshot.RawSchema{}, nil
		}
		return nil, fmt.Errorf("read schemas directory: %w", err)
	}

	schemas := make(map[string]snapshot.RawSchema, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read schema file %q: %w", name, err)
		}
		var raw snapshot.RawSchema
		if err := yaml.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("parse schema file %q: %w", name, err)
		}
		if raw.Name == "" {
			raw.Name = strings.TrimSuffix(name, ext)
		}
		schemas[raw.Name] = raw
	}
	return schemas, nil
}

// OSFileWriter implements the discard service's file-system collaborator
// with plain os calls.
type OSFileWriter struct{}

func (OSFileWriter) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (OSFileWriter) DeleteFile(path string) error {
	return os.Remove(path)
}

func (OSFileWriter) ListDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
