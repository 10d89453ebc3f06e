package textdiff

import (
	"strings"
	"testing"

	"schemaver/internal/snapshot"
)

func TestSnapshotsUnifiedDiff(t *testing.T) {
	before := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"email": {Type: "Email"},
			},
		},
	}
	after := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"email": {Type: "Email"},
				"name":  {Type: "String"},
			},
		},
	}

	text, err := Snapshots("version 1", "version 2", before, after)
	if err != nil {
		t.Fatalf("Snapshots failed: %v", err)
	}
	if !strings.Contains(text, "--- version 1") || !strings.Contains(text, "+++ version 2") {
		t.Errorf("Missing file headers:\n%s", text)
	}
	if !strings.Contains(text, "@@") {
		t.Errorf("Expected at least one hunk:\n%s", text)
	}
	if !strings.Contains(text, "+    name:") {
		t.Errorf("Expected added name property line:\n%s", text)
	}
}

func TestSnapshotsIdenticalInputs(t *testing.T) {
	snap := snapshot.Snapshot{"User": {Name: "User", Kind: snapshot.KindObject}}
	text, err := Snapshots("a", "b", snap, snap)
	if err != nil {
		t.Fatalf("Snapshots failed: %v", err)
	}
	if strings.Contains(text, "@@") {
		t.Errorf("Identical snapshots should produce no hunks:\n%s", text)
	}
}
