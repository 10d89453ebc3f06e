// Package diff compares two snapshots and produces an ordered list of typed
// change records: the transition a new version captures.
package diff

import (
	"slices"

	"schemaver/internal/snapshot"
)

// Action discriminates change records.
type Action string

const (
	SchemaAdded      Action = "schema_added"
	SchemaRemoved    Action = "schema_removed"
	SchemaModified   Action = "schema_modified"
	PropertyAdded    Action = "property_added"
	PropertyRemoved  Action = "property_removed"
	PropertyModified Action = "property_modified"
	PropertyRenamed  Action = "property_renamed"
	IndexAdded       Action = "index_added"
	IndexRemoved     Action = "index_removed"
	IndexModified    Action = "index_modified"
	OptionChanged    Action = "option_changed"
)

// Change is one record in a version's change list. Immutable once produced.
// Property carries a property name, an option key, or an index display name
// depending on the action. From/To shapes depend on the action: full
// property or index definitions, option values, or enum value lists.
type Change struct {
	Action   Action `yaml:"action"`
	Schema   string `yaml:"schema"`
	Property string `yaml:"property,omitempty"`
	From     any    `yaml:"from,omitempty"`
	To       any    `yaml:"to,omitempty"`
}

// Snapshots diffs before against after. Output order is deterministic for a
// given pair: schemas by sorted name; within a schema options first, then
// properties (modified in name order, then renames, removals, additions),
// then indexes, then enum values. Diffing a snapshot against itself yields
// an empty list.
func Snapshots(before, after snapshot.Snapshot) []Change {
	var changes []Change
	for _, name := range unionNames(before, after) {
		b, inBefore := before[name]
		a, inAfter := after[name]
		switch {
		case !inBefore:
			changes = append(changes, Change{Action: SchemaAdded, Schema: name})
		case !inAfter:
			changes = append(changes, Change{Action: SchemaRemoved, Schema: name})
		default:
			changes = append(changes, diffSchema(name, b, a)...)
		}
	}
	return changes
}

func diffSchema(name string, before, after snapshot.Schema) []Change {
	if before.Kind != after.Kind {
		// Kind change invalidates any finer-grained comparison.
		return []Change{{Action: SchemaModified, Schema: name, From: before.Kind, To: after.Kind}}
	}

	var changes []Change
	changes = append(changes, diffOptions(name, before.Options, after.Options)...)

	switch after.Kind {
	case snapshot.KindEnum:
		if !slices.Equal(before.Values, after.Values) {
			changes = append(changes, Change{
				Action: SchemaModified,
				Schema: name,
				From:   before.Values,
				To:     after.Values,
			})
		}
	default:
		changes = append(changes, diffProperties(name, before.Properties, after.Properties)...)
		if after.Kind == snapshot.KindObject {
			changes = append(changes, diffIndexes(name, before.Options.IndexList(), after.Options.IndexList())...)
		}
	}
	return changes
}

// diffOptions compares scalar options by effective value, so an elided key
// and an explicit default never produce a false positive. Indexes are not an
// option here; they get a structural diff of their own.
func diffOptions(name string, before, after *snapshot.Options) []Change {
	var changes []Change
	for _, key := range snapshot.OptionKeys {
		from := before.OptionValue(key)
		to := after.OptionValue(key)
		if !snapshot.ValuesEqual(from, to) {
			changes = append(changes, Change{
				Action:   OptionChanged,
				Schema:   name,
				Property: key,
				From:     from,
				To:       to,
			})
		}
	}
	return changes
}

func diffProperties(name string, before, after map[string]snapshot.Property) []Change {
	var changes []Change
	var removed, added []string
	for _, propName := range unionPropertyNames(before, after) {
		b, inBefore := before[propName]
		a, inAfter := after[propName]
		switch {
		case !inBefore:
			added = append(added, propName)
		case !inAfter:
			removed = append(removed, propName)
		case !b.Equal(a):
			changes = append(changes, Change{
				Action:   PropertyModified,
				Schema:   name,
				Property: propName,
				From:     b,
				To:       a,
			})
		}
	}

	renames, removed, added := matchRenames(before, after, removed, added)
	for _, r := range renames {
		changes = append(changes, Change{
			Action:   PropertyRenamed,
			Schema:   name,
			Property: r.to,
			From:     r.from,
			To:       r.to,
		})
	}
	for _, propName := range removed {
		changes = append(changes, Change{
			Action:   PropertyRemoved,
			Schema:   name,
			Property: propName,
			From:     before[propName],
		})
	}
	for _, propName := range added {
		changes = append(changes, Change{
			Action:   PropertyAdded,
			Schema:   name,
			Property: propName,
			To:       after[propName],
		})
	}
	return changes
}

type rename struct {
	from string
	to   string
}

// matchRenames pairs a removed property with an added one when they are
// structurally identical except for the name, and the pairing is mutually
// unique: the removed property matches exactly one added property and vice
// versa. Anything ambiguous stays a plain removal/addition rather than
// guessing.
func matchRenames(before, after map[string]snapshot.Property, removed, added []string) ([]rename, []string, []string) {
	if len(removed) == 0 || len(added) == 0 {
		return nil, removed, added
	}

	candidatesFor := make(map[string][]string, len(removed))
	candidatesRev := make(map[string][]string, len(added))
	for _, r := range removed {
		for _, a := range added {
			if before[r].Equal(after[a]) {
				candidatesFor[r] = append(candidatesFor[r], a)
				candidatesRev[a] = append(candidatesRev[a], r)
			}
		}
	}

	var renames []rename
	usedRemoved := make(map[string]bool)
	usedAdded := make(map[string]bool)
	for _, r := range removed {
		cands := candidatesFor[r]
		if len(cands) != 1 {
			continue
		}
		a := cands[0]
		if len(candidatesRev[a]) != 1 {
			continue
		}
		renames = append(renames, rename{from: r, to: a})
		usedRemoved[r] = true
		usedAdded[a] = true
	}

	keepRemoved := removed[:0:0]
	for _, r := range removed {
		if !usedRemoved[r] {
			keepRemoved = append(keepRemoved, r)
		}
	}
	keepAdded := added[:0:0]
	for _, a := range added {
		if !usedAdded[a] {
			keepAdded = append(keepAdded, a)
		}
	}
	return renames, keepRemoved, keepAdded
}

// diffIndexes matches indexes by identity (column-list or explicit-name
// match) and reports additions, removals and definition changes.
func diffIndexes(name string, before, after []snapshot.Index) []Change {
	var changes []Change
	matchedAfter := make([]bool, len(after))

	for _, b := range before {
		found := -1
		for j, a := range after {
			if !matchedAfter[j] && b.SameIndex(a) {
				found = j
				break
			}
		}
		if found < 0 {
			changes = append(changes, Change{
				Action:   IndexRemoved,
				Schema:   name,
				Property: b.DisplayName(),
				From:     b,
			})
			continue
		}
		matchedAfter[found] = true
		if a := after[found]; !b.Equal(a) {
			changes = append(changes, Change{
				Action:   IndexModified,
				Schema:   name,
				Property: a.DisplayName(),
				From:     b,
				To:       a,
			})
		}
	}

	for j, a := range after {
		if !matchedAfter[j] {
			changes = append(changes, Change{
				Action:   IndexAdded,
				Schema:   name,
				Property: a.DisplayName(),
				To:       a,
			})
		}
	}
	return changes
}

func unionNames(before, after snapshot.Snapshot) []string {
	seen := make(map[string]struct{}, len(before)+len(after))
	names := make([]string, 0, len(before)+len(after))
	for name := range before {
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for name := range after {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func unionPropertyNames(before, after map[string]snapshot.Property) []string {
	seen := make(map[string]struct{}, len(before)+len(after))
	names := make([]string, 0, len(before)+len(after))
	for name := range before {
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for name := range after {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
