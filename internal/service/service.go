// Package service orchestrates the normalizer, diff engine and version
// store: pending-changes detection, version creation and destructive
// discard.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"schemaver/internal/diff"
	"schemaver/internal/snapshot"
	"schemaver/internal/store"
)

// ErrNoChanges is returned by CreateVersion when the current schemas match
// the latest stored version. A version must represent a real transition.
var ErrNoChanges = errors.New("no changes to create version")

// ErrNoVersions is returned by DiscardChanges when the store is empty:
// there is nothing to restore to.
var ErrNoVersions = errors.New("no version to restore from")

// SchemaLoader loads the current on-disk schema collection. A missing
// directory means zero schemas, not an error.
type SchemaLoader interface {
	LoadSchemas(dir string) (map[string]snapshot.RawSchema, error)
}

// FileWriter is the file-system collaborator used only by discard.
type FileWriter interface {
	WriteFile(path string, data []byte) error
	DeleteFile(path string) error
	ListDirectory(dir string) ([]string, error)
}

// PendingResult reports the diff between the latest stored version and the
// current on-disk schema state. LatestVersion is nil on a fresh project.
type PendingResult struct {
	HasChanges          bool
	Changes             []diff.Change
	CurrentSchemaCount  int
	PreviousSchemaCount int
	LatestVersion       *int
}

// CreateResult reports a newly created version.
type CreateResult struct {
	Version   int
	Migration string
	Changes   []diff.Change
}

// DiscardResult counts the files touched by a discard: schemas restored from
// the latest snapshot and on-disk files deleted because the snapshot does
// not contain them.
type DiscardResult struct {
	Restored int
	Deleted  int
}

// Service wires the collaborators together. Construct once with its
// configuration and pass it around explicitly; there is no global instance.
type Service struct {
	store      *store.Store
	loader     SchemaLoader
	writer     FileWriter
	schemasDir string
	driver     string
	log        *slog.Logger
	now        func() time.Time
}

// New returns a service over the given store and collaborators. A nil
// logger selects slog.Default().
func New(st *store.Store, loader SchemaLoader, writer FileWriter, schemasDir, driver string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:      st,
		loader:     loader,
		writer:     writer,
		schemasDir: schemasDir,
		driver:     driver,
		log:        log,
		now:        time.Now,
	}
}

// PendingChanges loads and normalizes the current schemas and diffs the
// latest stored snapshot against them. With an empty store every current
// schema is reported as added.
func (s *Service) PendingChanges() (*PendingResult, error) {
	current, latest, changes, err := s.pending()
	if err != nil {
		return nil, err
	}
	result := &PendingResult{
		HasChanges:         len(changes) > 0,
		Changes:            changes,
		CurrentSchemaCount: len(current),
	}
	if latest != nil {
		result.PreviousSchemaCount = len(latest.Snapshot)
		result.LatestVersion = &latest.Version
	}
	return result, nil
}

// CreateVersion snapshots the current schemas as the next version. Fails
// with ErrNoChanges when nothing changed since the latest version.
func (s *Service) CreateVersion(description string) (*CreateResult, error) {
	current, _, changes, err := s.pending()
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, ErrNoChanges
	}

	migration := fmt.Sprintf("%s_%s", s.driver, s.now().UTC().Format("20060102150405"))
	v, err := s.store.CreateVersion(current, changes, store.Metadata{
		Driver:      s.driver,
		Migration:   migration,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("version created",
		"version", v.Version,
		"schemas", len(v.Snapshot),
		"changes", len(v.Changes))
	return &CreateResult{Version: v.Version, Migration: v.Migration, Changes: v.Changes}, nil
}

// DiscardChanges restores every schema file from the latest stored snapshot
// and deletes schema files not present in it. Destructive and irreversible
// for anything not in the last saved version.
func (s *Service) DiscardChanges() (*DiscardResult, error) {
	latest, err := s.store.ReadLatestVersion()
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrNoVersions
	}

	result := &DiscardResult{}
	for _, name := range latest.Snapshot.Names() {
		body, err := marshalSchema(latest.Snapshot[name])
		if err != nil {
			return nil, fmt.Errorf("encode schema %q: %w", name, err)
		}
		path := filepath.Join(s.schemasDir, name+".yaml")
		if err := s.writer.WriteFile(path, body); err != nil {
			return nil, fmt.Errorf("restore schema %q: %w", name, err)
		}
		result.Restored++
	}

	files, err := s.writer.ListDirectory(s.schemasDir)
	if err != nil {
		return nil, fmt.Errorf("list schemas directory: %w", err)
	}
	for _, file := range files {
		name, ok := schemaFileName(file)
		if !ok {
			continue
		}
		if _, exists := latest.Snapshot[name]; exists {
			continue
		}
		if err := s.writer.DeleteFile(filepath.Join(s.schemasDir, file)); err != nil {
			return nil, fmt.Errorf("delete schema file %q: %w", file, err)
		}
		result.Deleted++
	}

	s.log.Info("changes discarded",
		"version", latest.Version,
		"restored", result.Restored,
		"deleted", result.Deleted)
	return result, nil
}

// pending is the shared normalize-and-diff step behind PendingChanges and
// CreateVersion.
func (s *Service) pending() (snapshot.Snapshot, *store.Version, []diff.Change, error) {
	raw, err := s.loader.LoadSchemas(s.schemasDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load schemas: %w", err)
	}
	current, err := snapshot.Normalize(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	latest, err := s.store.ReadLatestVersion()
	if err != nil {
		return nil, nil, nil, err
	}
	var previous snapshot.Snapshot
	if latest != nil {
		previous = latest.Snapshot
	}
	return current, latest, diff.Snapshots(previous, current), nil
}

func marshalSchema(schema snapshot.Schema) ([]byte, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(schema); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func schemaFileName(file string) (string, bool) {
	for _, ext := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(file, ext) {
			return strings.TrimSuffix(file, ext), true
		}
	}
	return "", false
}
