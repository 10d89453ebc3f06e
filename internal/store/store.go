// Package store persists numbered, immutable schema versions to a directory:
// one YAML file per version plus a latest pointer file.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"schemaver/internal/diff"
	"schemaver/internal/snapshot"
)

// DefaultMaxVersions caps the number of retained versions when the caller
// does not configure one.
const DefaultMaxVersions = 50

const latestFile = "latest.yaml"

// ErrEmptyChanges is returned by CreateVersion when the change list is
// empty. A version must represent a real transition; callers are expected to
// have diffed already.
var ErrEmptyChanges = errors.New("version must contain at least one change")

// IOError wraps a filesystem failure in the store directory. Not retried
// internally; local disk failures are not transient in any way this store
// could usefully handle.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("version store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Version is one immutable stored version: the full snapshot as of that
// version plus the change list for the transition into it. Never mutated
// after CreateVersion writes it; removed only by retention-cap eviction.
type Version struct {
	Version     int               `yaml:"version"`
	Timestamp   time.Time         `yaml:"timestamp"`
	Driver      string            `yaml:"driver"`
	Migration   string            `yaml:"migration,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Changes     []diff.Change     `yaml:"changes"`
	Snapshot    snapshot.Snapshot `yaml:"snapshot"`
}

// Summary is the listing projection of a Version, computed on read.
type Summary struct {
	Version     int       `yaml:"version"`
	Timestamp   time.Time `yaml:"timestamp"`
	Driver      string    `yaml:"driver"`
	Migration   string    `yaml:"migration,omitempty"`
	Description string    `yaml:"description,omitempty"`
	SchemaCount int       `yaml:"schemaCount"`
	ChangeCount int       `yaml:"changeCount"`
}

// VersionDiff is the result of diffing two stored versions.
type VersionDiff struct {
	Changes []diff.Change `yaml:"changes"`
}

// Metadata carries the caller-supplied fields of a new version.
type Metadata struct {
	Driver      string
	Migration   string
	Description string
}

// Store reads and writes versions under a single directory. Single-writer:
// the store assumes it is the only process writing to its directory.
// Concurrent readers are always safe since version files are immutable.
type Store struct {
	dir         string
	maxVersions int
	now         func() time.Time
}

// New returns a store rooted at dir. maxVersions <= 0 selects
// DefaultMaxVersions. The directory is created lazily on first write.
func New(dir string, maxVersions int) *Store {
	if maxVersions <= 0 {
		maxVersions = DefaultMaxVersions
	}
	return &Store{dir: dir, maxVersions: maxVersions, now: time.Now}
}

// CreateVersion allocates the next version number, writes the version file,
// updates the latest pointer and evicts the oldest versions beyond the
// retention cap. The write is not transactional: a crash between the version
// file and the pointer leaves a stale pointer, which readers tolerate by
// preferring the highest-numbered version file.
func (s *Store) CreateVersion(snap snapshot.Snapshot, changes []diff.Change, meta Metadata) (*Version, error) {
	if len(changes) == 0 {
		return nil, ErrEmptyChanges
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: s.dir, Err: err}
	}

	entries, err := s.versionEntries()
	if err != nil {
		return nil, err
	}
	next := 1
	if len(entries) > 0 {
		next = entries[len(entries)-1].number + 1
	}

	v := &Version{
		Version:     next,
		Timestamp:   s.now().UTC().Truncate(time.Second),
		Driver:      meta.Driver,
		Migration:   meta.Migration,
		Description: meta.Description,
		Changes:     changes,
		Snapshot:    snap,
	}

	body, err := marshal(v)
	if err != nil {
		return nil, &IOError{Op: "encode", Path: s.dir, Err: err}
	}
	name := fmt.Sprintf("%04d_%s.yaml", next, slug(meta.Description))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, &IOError{Op: "write", Path: path, Err: err}
	}
	latestPath := filepath.Join(s.dir, latestFile)
	if err := os.WriteFile(latestPath, body, 0o644); err != nil {
		return nil, &IOError{Op: "write", Path: latestPath, Err: err}
	}

	// Oldest-first eviction back to the cap, inline and synchronous.
	for evict := len(entries) + 1 - s.maxVersions; evict > 0; evict-- {
		oldest := entries[0]
		entries = entries[1:]
		oldestPath := filepath.Join(s.dir, oldest.name)
		if err := os.Remove(oldestPath); err != nil {
			return nil, &IOError{Op: "remove", Path: oldestPath, Err: err}
		}
	}

	return v, nil
}

// ReadVersion returns the stored version with the given number, or (nil,
// nil) when it does not exist. Missing versions are a routine query, not a
// failure.
func (s *Store) ReadVersion(number int) (*Version, error) {
	entries, err := s.versionEntries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.number == number {
			return s.readFile(e.name)
		}
	}
	return nil, nil
}

// ReadLatestVersion returns the highest-numbered stored version, or (nil,
// nil) when the store is empty — the normal state of a fresh project. The
// latest pointer file is treated as a cache; the version files themselves
// are authoritative.
func (s *Store) ReadLatestVersion() (*Version, error) {
	entries, err := s.versionEntries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return s.readFile(entries[len(entries)-1].name)
}

// ListVersions returns summaries of all stored versions, ascending by
// version number.
func (s *Store) ListVersions() ([]Summary, error) {
	entries, err := s.versionEntries()
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(entries))
	for _, e := range entries {
		v, err := s.readFile(e.name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{
			Version:     v.Version,
			Timestamp:   v.Timestamp,
			Driver:      v.Driver,
			Migration:   v.Migration,
			Description: v.Description,
			SchemaCount: len(v.Snapshot),
			ChangeCount: len(v.Changes),
		})
	}
	return summaries, nil
}

// ComputeSnapshotDiff exposes the diff engine on the store so callers need
// no separate dependency.
func (s *Store) ComputeSnapshotDiff(before, after snapshot.Snapshot) []diff.Change {
	return diff.Snapshots(before, after)
}

// DiffVersions diffs the snapshots of two stored versions. Returns (nil,
// nil) when either version does not exist.
func (s *Store) DiffVersions(from, to int) (*VersionDiff, error) {
	fromVersion, err := s.ReadVersion(from)
	if err != nil {
		return nil, err
	}
	toVersion, err := s.ReadVersion(to)
	if err != nil {
		return nil, err
	}
	if fromVersion == nil || toVersion == nil {
		return nil, nil
	}
	return &VersionDiff{Changes: diff.Snapshots(fromVersion.Snapshot, toVersion.Snapshot)}, nil
}

type versionEntry struct {
	number int
	name   string
}

// versionEntries scans the store directory for version files, sorted
// ascending by number. A missing directory is an empty store.
func (s *Store) versionEntries() ([]versionEntry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOError{Op: "readdir", Path: s.dir, Err: err}
	}
	entries := make([]versionEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || name == latestFile || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		base, _, _ := strings.Cut(strings.TrimSuffix(name, ".yaml"), "_")
		number, err := strconv.Atoi(base)
		if err != nil || number <= 0 {
			continue
		}
		entries = append(entries, versionEntry{number: number, name: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].number < entries[j].number })
	return entries, nil
}

func (s *Store) readFile(name string) (*Version, error) {
	path := filepath.Join(s.dir, name)
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	var v Version
	if err := yaml.Unmarshal(body, &v); err != nil {
		return nil, &IOError{Op: "decode", Path: path, Err: err}
	}
	return &v, nil
}

func marshal(v *Version) ([]byte, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// slug derives a short filename fragment from a version description.
func slug(description string) string {
	var sb strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(description) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			sb.WriteRune('_')
			lastUnderscore = true
		}
		if sb.Len() >= 24 {
			break
		}
	}
	out := strings.Trim(sb.String(), "_")
	if out == "" {
		return "version"
	}
	return out
}
