package diff

import (
	"testing"

	"schemaver/internal/snapshot"
)

func boolp(b bool) *bool { return &b }

func userSchema() snapshot.Schema {
	return snapshot.Schema{
		Name: "User",
		Kind: snapshot.KindObject,
		Properties: map[string]snapshot.Property{
			"email": {Type: "Email", Nullable: boolp(false)},
			"name":  {Type: "String"},
		},
		Options: &snapshot.Options{
			SoftDelete: boolp(true),
			Indexes:    []snapshot.Index{{Columns: []string{"email"}, Unique: boolp(true)}},
		},
	}
}

func TestDiffIdempotence(t *testing.T) {
	snap := snapshot.Snapshot{
		"User": userSchema(),
		"Role": {Name: "Role", Kind: snapshot.KindEnum, Values: []string{"admin", "member"}},
	}
	if changes := Snapshots(snap, snap); len(changes) != 0 {
		t.Errorf("diff(S, S) = %+v, want empty", changes)
	}
}

func TestDiffSchemaPresence(t *testing.T) {
	before := snapshot.Snapshot{"User": userSchema()}
	after := snapshot.Snapshot{"Post": {Name: "Post", Kind: snapshot.KindObject}}

	changes := Snapshots(before, after)
	if len(changes) != 2 {
		t.Fatalf("Expected 2 changes, got %+v", changes)
	}
	if changes[0].Action != SchemaAdded || changes[0].Schema != "Post" {
		t.Errorf("changes[0] = %+v, want schema_added Post", changes[0])
	}
	if changes[1].Action != SchemaRemoved || changes[1].Schema != "User" {
		t.Errorf("changes[1] = %+v, want schema_removed User", changes[1])
	}

	// Symmetry: every added in one direction is a removed in the other.
	reverse := Snapshots(after, before)
	if len(reverse) != 2 {
		t.Fatalf("Expected 2 reverse changes, got %+v", reverse)
	}
	if reverse[0].Action != SchemaAdded || reverse[0].Schema != "User" {
		t.Errorf("reverse[0] = %+v, want schema_added User", reverse[0])
	}
	if reverse[1].Action != SchemaRemoved || reverse[1].Schema != "Post" {
		t.Errorf("reverse[1] = %+v, want schema_removed Post", reverse[1])
	}
}

func TestDiffPropertyChanges(t *testing.T) {
	before := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"email": {Type: "Email"},
				"age":   {Type: "Int"},
			},
		},
	}
	after := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"email": {Type: "Email", Nullable: boolp(true)},
				"bio":   {Type: "Text"},
			},
		},
	}

	changes := Snapshots(before, after)
	if len(changes) != 3 {
		t.Fatalf("Expected 3 changes, got %+v", changes)
	}

	modified := changes[0]
	if modified.Action != PropertyModified || modified.Property != "email" {
		t.Errorf("changes[0] = %+v, want property_modified email", modified)
	}
	from, ok := modified.From.(snapshot.Property)
	if !ok || from.Nullable != nil {
		t.Errorf("property_modified From = %+v, want full previous definition", modified.From)
	}
	to, ok := modified.To.(snapshot.Property)
	if !ok || to.Nullable == nil || !*to.Nullable {
		t.Errorf("property_modified To = %+v, want full new definition", modified.To)
	}

	if changes[1].Action != PropertyRemoved || changes[1].Property != "age" {
		t.Errorf("changes[1] = %+v, want property_removed age", changes[1])
	}
	if changes[2].Action != PropertyAdded || changes[2].Property != "bio" {
		t.Errorf("changes[2] = %+v, want property_added bio", changes[2])
	}
}

func TestDiffRenameDetection(t *testing.T) {
	before := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"email": {Type: "String", Nullable: boolp(false)},
			},
		},
	}
	after := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"emailAddress": {Type: "String", Nullable: boolp(false)},
			},
		},
	}

	changes := Snapshots(before, after)
	if len(changes) != 1 {
		t.Fatalf("Expected exactly 1 change, got %+v", changes)
	}
	c := changes[0]
	if c.Action != PropertyRenamed {
		t.Fatalf("Action = %s, want property_renamed", c.Action)
	}
	if c.From != "email" || c.To != "emailAddress" {
		t.Errorf("Rename = %v -> %v, want email -> emailAddress", c.From, c.To)
	}
}

func TestDiffRenameAmbiguityFallsBack(t *testing.T) {
	before := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"a": {Type: "String"},
				"b": {Type: "String"},
			},
		},
	}
	after := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"c": {Type: "String"},
			},
		},
	}

	changes := Snapshots(before, after)
	var actions []Action
	for _, c := range changes {
		if c.Action == PropertyRenamed {
			t.Fatalf("Ambiguous candidates must not produce a rename: %+v", c)
		}
		actions = append(actions, c.Action)
	}
	want := []Action{PropertyRemoved, PropertyRemoved, PropertyAdded}
	if len(actions) != len(want) {
		t.Fatalf("Actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("Actions = %v, want %v", actions, want)
		}
	}
}

func TestDiffRenameWithAttributeChangeIsNotARename(t *testing.T) {
	before := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"email": {Type: "String"},
			},
		},
	}
	after := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"emailAddress": {Type: "Email"},
			},
		},
	}

	for _, c := range Snapshots(before, after) {
		if c.Action == PropertyRenamed {
			t.Fatalf("Rename requires exact structural equality, got %+v", c)
		}
	}
}

func TestDiffOptionChanges(t *testing.T) {
	tests := []struct {
		name        string
		before      *snapshot.Options
		after       *snapshot.Options
		wantChanges int
		wantKey     string
		wantFrom    any
		wantTo      any
	}{
		{
			name:   "absent equals explicit default",
			before: nil,
			after:  &snapshot.Options{},
		},
		{
			name:        "soft delete enabled",
			before:      nil,
			after:       &snapshot.Options{SoftDelete: boolp(true)},
			wantChanges: 1,
			wantKey:     "softDelete",
			wantFrom:    false,
			wantTo:      true,
		},
		{
			name:        "id type changed",
			before:      &snapshot.Options{IDType: "Uuid"},
			after:       nil,
			wantChanges: 1,
			wantKey:     "idType",
			wantFrom:    "Uuid",
			wantTo:      "BigInt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := snapshot.Snapshot{"User": {Name: "User", Kind: snapshot.KindObject, Options: tt.before}}
			after := snapshot.Snapshot{"User": {Name: "User", Kind: snapshot.KindObject, Options: tt.after}}
			changes := Snapshots(before, after)
			if len(changes) != tt.wantChanges {
				t.Fatalf("Expected %d changes, got %+v", tt.wantChanges, changes)
			}
			if tt.wantChanges == 0 {
				return
			}
			c := changes[0]
			if c.Action != OptionChanged || c.Property != tt.wantKey {
				t.Errorf("change = %+v, want option_changed %s", c, tt.wantKey)
			}
			if c.From != tt.wantFrom || c.To != tt.wantTo {
				t.Errorf("from/to = %v/%v, want %v/%v", c.From, c.To, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestDiffIndexesStructurally(t *testing.T) {
	before := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Options: &snapshot.Options{
				Indexes: []snapshot.Index{
					{Columns: []string{"email"}},
					{Columns: []string{"tenant_id", "email"}, Name: "idx_tenant_email"},
					{Columns: []string{"created_at"}},
				},
			},
		},
	}
	after := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Options: &snapshot.Options{
				Indexes: []snapshot.Index{
					{Columns: []string{"email"}, Unique: boolp(true)},
					{Columns: []string{"tenant_id", "handle"}, Name: "idx_tenant_email"},
					{Columns: []string{"updated_at"}},
				},
			},
		},
	}

	changes := Snapshots(before, after)
	for _, c := range changes {
		if c.Action == OptionChanged {
			t.Fatalf("Indexes must never surface as option_changed: %+v", c)
		}
	}

	counts := map[Action]int{}
	for _, c := range changes {
		counts[c.Action]++
	}
	if counts[IndexModified] != 2 {
		// unique flag flip on [email], column change under the kept name.
		t.Errorf("index_modified count = %d, want 2 (%+v)", counts[IndexModified], changes)
	}
	if counts[IndexRemoved] != 1 || counts[IndexAdded] != 1 {
		t.Errorf("index added/removed = %d/%d, want 1/1 (%+v)", counts[IndexAdded], counts[IndexRemoved], changes)
	}
}

func TestDiffEnumValues(t *testing.T) {
	before := snapshot.Snapshot{
		"Role": {Name: "Role", Kind: snapshot.KindEnum, Values: []string{"admin", "member"}},
	}
	reordered := snapshot.Snapshot{
		"Role": {Name: "Role", Kind: snapshot.KindEnum, Values: []string{"member", "admin"}},
	}

	changes := Snapshots(before, reordered)
	if len(changes) != 1 || changes[0].Action != SchemaModified {
		t.Fatalf("Expected a single schema_modified for value reorder, got %+v", changes)
	}

	if changes := Snapshots(before, before); len(changes) != 0 {
		t.Errorf("Identical enums must not report changes: %+v", changes)
	}
}

func TestDiffNoChangesForBareSchema(t *testing.T) {
	before := snapshot.Snapshot{"Empty": {Name: "Empty", Kind: snapshot.KindObject}}
	after := snapshot.Snapshot{"Empty": {Name: "Empty", Kind: snapshot.KindObject}}
	if changes := Snapshots(before, after); len(changes) != 0 {
		t.Errorf("Bare schema must produce zero changes, got %+v", changes)
	}
}

func TestDiffKindChange(t *testing.T) {
	before := snapshot.Snapshot{"Status": {Name: "Status", Kind: snapshot.KindObject}}
	after := snapshot.Snapshot{"Status": {Name: "Status", Kind: snapshot.KindEnum, Values: []string{"on"}}}
	changes := Snapshots(before, after)
	if len(changes) != 1 || changes[0].Action != SchemaModified {
		t.Fatalf("Expected a single schema_modified for kind change, got %+v", changes)
	}
	if changes[0].From != snapshot.KindObject || changes[0].To != snapshot.KindEnum {
		t.Errorf("from/to = %v/%v, want object/enum", changes[0].From, changes[0].To)
	}
}

func TestDiffMultipleIndependentRenames(t *testing.T) {
	before := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"mail":  {Type: "Email"},
				"login": {Type: "String", Unique: boolp(true)},
			},
		},
	}
	after := snapshot.Snapshot{
		"User": {
			Name: "User",
			Kind: snapshot.KindObject,
			Properties: map[string]snapshot.Property{
				"email":    {Type: "Email"},
				"username": {Type: "String", Unique: boolp(true)},
			},
		},
	}

	changes := Snapshots(before, after)
	if len(changes) != 2 {
		t.Fatalf("Expected 2 renames, got %+v", changes)
	}
	got := map[string]string{}
	for _, c := range changes {
		if c.Action != PropertyRenamed {
			t.Fatalf("Expected only renames, got %+v", c)
		}
		got[c.From.(string)] = c.To.(string)
	}
	if got["mail"] != "email" || got["login"] != "username" {
		t.Errorf("Renames = %v, want mail->email, login->username", got)
	}
}
