// Package textdiff renders unified textual diffs between two snapshot
// serializations, for human review alongside the structural change list.
package textdiff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"schemaver/internal/snapshot"
)

// Unified returns a unified diff between two YAML documents.
func Unified(fromName, toName string, a, b []byte) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}

// Snapshots renders both snapshots as YAML and diffs the renderings.
// yaml.v3 encodes map keys sorted, so the output is deterministic.
func Snapshots(fromName, toName string, before, after snapshot.Snapshot) (string, error) {
	a, err := marshalSnapshot(before)
	if err != nil {
		return "", err
	}
	b, err := marshalSnapshot(after)
	if err != nil {
		return "", err
	}
	return Unified(fromName, toName, a, b)
}

func marshalSnapshot(snap snapshot.Snapshot) ([]byte, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}
