// Package schemaver snapshots a schema collection as immutable, numbered
// versions and computes structural diffs between snapshots.
//
// A version captures the full default-elided shape of every schema at one
// instant, plus the typed change list (schema/property/index/option
// added/removed/modified, property renames) for the transition into it.
// Versions are plain YAML files in a directory, gapless from 1, with a
// latest pointer and an oldest-first retention cap.
//
// # Quick Start
//
//	ws := schemaver.Open(schemaver.Config{
//		SchemasDir:  "schemas",
//		VersionsDir: "schemas/.versions",
//		Driver:      "mysql",
//	})
//
//	pending, err := ws.PendingChanges()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if pending.HasChanges {
//		result, err := ws.CreateVersion("add user email")
//		...
//	}
//
// Read paths never fail on absence: a missing version number and an empty
// store both return nil results. Precondition failures (creating a version
// with no changes, discarding with no stored version) are reported as
// service.ErrNoChanges and service.ErrNoVersions.
//
// The workspace assumes a single writer per versions directory. Readers are
// always safe; version files are immutable once written.
package schemaver

import (
	"log/slog"

	"schemaver/internal/diff"
	"schemaver/internal/loader"
	"schemaver/internal/service"
	"schemaver/internal/snapshot"
	"schemaver/internal/store"
)

// Config configures a workspace.
//
// All fields except SchemasDir and VersionsDir are optional:
//   - MaxVersions: retention cap, <= 0 selects store.DefaultMaxVersions
//   - Driver: free-form target database tag recorded on each version
//   - Logger: nil selects slog.Default()
//   - Loader/Writer: nil selects the YAML directory collaborators
type Config struct {
	// SchemasDir is the directory holding the on-disk schema files.
	SchemasDir string

	// VersionsDir is the directory holding version files and the latest
	// pointer.
	VersionsDir string

	// MaxVersions caps the number of retained versions; creating a version
	// beyond the cap evicts the oldest.
	MaxVersions int

	// Driver tags each created version with its target database.
	Driver string

	// Logger receives service-level events.
	Logger *slog.Logger

	// Loader overrides how current schemas are read. Defaults to the YAML
	// directory loader.
	Loader service.SchemaLoader

	// Writer overrides how discard writes and deletes schema files.
	Writer service.FileWriter
}

// Workspace bundles a version store with the pending-changes service over
// one schema directory. Construct it once and pass it around; there is no
// global instance.
type Workspace struct {
	store   *store.Store
	service *service.Service
}

// Open constructs a workspace from its configuration. No I/O happens until
// the first operation; the versions directory is created lazily on the
// first write.
func Open(cfg Config) *Workspace {
	st := store.New(cfg.VersionsDir, cfg.MaxVersions)
	ld := cfg.Loader
	if ld == nil {
		ld = loader.DirectoryLoader{}
	}
	w := cfg.Writer
	if w == nil {
		w = loader.OSFileWriter{}
	}
	return &Workspace{
		store:   st,
		service: service.New(st, ld, w, cfg.SchemasDir, cfg.Driver, cfg.Logger),
	}
}

// PendingChanges diffs the latest stored snapshot against the current
// on-disk schemas. On a fresh project every schema is reported as added and
// LatestVersion is nil.
func (w *Workspace) PendingChanges() (*service.PendingResult, error) {
	return w.service.PendingChanges()
}

// CreateVersion snapshots the current schemas as the next version. Fails
// with service.ErrNoChanges when nothing changed.
func (w *Workspace) CreateVersion(description string) (*service.CreateResult, error) {
	return w.service.CreateVersion(description)
}

// DiscardChanges destructively restores the on-disk schema files from the
// latest stored version, deleting files not present in its snapshot.
func (w *Workspace) DiscardChanges() (*service.DiscardResult, error) {
	return w.service.DiscardChanges()
}

// ListVersions returns summaries of all stored versions, ascending.
func (w *Workspace) ListVersions() ([]store.Summary, error) {
	return w.store.ListVersions()
}

// ReadVersion returns a stored version, or nil when it does not exist.
func (w *Workspace) ReadVersion(number int) (*store.Version, error) {
	return w.store.ReadVersion(number)
}

// ReadLatestVersion returns the newest stored version, or nil on an empty
// store.
func (w *Workspace) ReadLatestVersion() (*store.Version, error) {
	return w.store.ReadLatestVersion()
}

// DiffVersions diffs two stored versions, or returns nil when either is
// missing.
func (w *Workspace) DiffVersions(from, to int) (*store.VersionDiff, error) {
	return w.store.DiffVersions(from, to)
}

// ComputeSnapshotDiff diffs two snapshots directly.
func (w *Workspace) ComputeSnapshotDiff(before, after snapshot.Snapshot) []diff.Change {
	return w.store.ComputeSnapshotDiff(before, after)
}
