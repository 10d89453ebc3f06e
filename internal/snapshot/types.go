// Package snapshot defines the canonical, default-elided representation of a
// schema collection and the normalizer that produces it from raw loader
// output.
package snapshot

import (
	"reflect"
	"slices"
	"strings"
)

// Schema kinds.
const (
	KindObject  = "object"
	KindEnum    = "enum"
	KindPartial = "partial"
	KindPivot   = "pivot"
)

// Documented option defaults. An option key is present in a snapshot only
// when its value differs from these.
const (
	DefaultIDType = "BigInt"
)

// Property is one field of a schema. Only attributes with non-default,
// defined values are set; a zero/nil field means "default for this type".
type Property struct {
	Type        string   `yaml:"type"`
	DisplayName string   `yaml:"displayName,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Nullable    *bool    `yaml:"nullable,omitempty"`
	Unique      *bool    `yaml:"unique,omitempty"`
	Default     any      `yaml:"default,omitempty"`
	Length      *int     `yaml:"length,omitempty"`
	Unsigned    *bool    `yaml:"unsigned,omitempty"`
	Precision   *int     `yaml:"precision,omitempty"`
	Scale       *int     `yaml:"scale,omitempty"`
	Enum        []string `yaml:"enum,omitempty"`
	Relation    string   `yaml:"relation,omitempty"`
	Target      string   `yaml:"target,omitempty"`
	Targets     []string `yaml:"targets,omitempty"`
	MorphName   string   `yaml:"morphName,omitempty"`
	OnDelete    string   `yaml:"onDelete,omitempty"`
	OnUpdate    string   `yaml:"onUpdate,omitempty"`
	MappedBy    string   `yaml:"mappedBy,omitempty"`
	InversedBy  string   `yaml:"inversedBy,omitempty"`
	JoinTable   string   `yaml:"joinTable,omitempty"`
	Owning      *bool    `yaml:"owning,omitempty"`
}

// Equal reports whether two properties are structurally identical. The
// comparison is field by field: a nil pointer and a pointer to the field's
// default are NOT the same here, because the normalizer already elided
// defaults on both sides.
func (p Property) Equal(q Property) bool {
	return p.Type == q.Type &&
		p.DisplayName == q.DisplayName &&
		p.Description == q.Description &&
		boolPtrEqual(p.Nullable, q.Nullable) &&
		boolPtrEqual(p.Unique, q.Unique) &&
		ValuesEqual(p.Default, q.Default) &&
		intPtrEqual(p.Length, q.Length) &&
		boolPtrEqual(p.Unsigned, q.Unsigned) &&
		intPtrEqual(p.Precision, q.Precision) &&
		intPtrEqual(p.Scale, q.Scale) &&
		slices.Equal(p.Enum, q.Enum) &&
		p.Relation == q.Relation &&
		p.Target == q.Target &&
		slices.Equal(p.Targets, q.Targets) &&
		p.MorphName == q.MorphName &&
		p.OnDelete == q.OnDelete &&
		p.OnUpdate == q.OnUpdate &&
		p.MappedBy == q.MappedBy &&
		p.InversedBy == q.InversedBy &&
		p.JoinTable == q.JoinTable &&
		boolPtrEqual(p.Owning, q.Owning)
}

// Index is one index on an object schema. Column order is significant for
// composite index identity.
type Index struct {
	Columns []string `yaml:"columns"`
	Unique  *bool    `yaml:"unique,omitempty"`
	Name    string   `yaml:"name,omitempty"`
	Type    string   `yaml:"type,omitempty"`
}

// SameIndex reports whether two indexes refer to the same index: identical
// column lists (order-sensitive) or matching explicit names.
func (ix Index) SameIndex(other Index) bool {
	if slices.Equal(ix.Columns, other.Columns) {
		return true
	}
	return ix.Name != "" && ix.Name == other.Name
}

// Equal reports whether two indexes have identical definitions. An absent
// unique flag means false.
func (ix Index) Equal(other Index) bool {
	return slices.Equal(ix.Columns, other.Columns) &&
		boolValue(ix.Unique) == boolValue(other.Unique) &&
		ix.Name == other.Name &&
		ix.Type == other.Type
}

// DisplayName returns the explicit index name, or the joined column list
// when no name was given.
func (ix Index) DisplayName() string {
	if ix.Name != "" {
		return ix.Name
	}
	return strings.Join(ix.Columns, "+")
}

// Options holds schema-level flags. A key is set only when it differs from
// its documented default (id=true, idType=BigInt, timestamps=true,
// softDelete=false, translations=false, authenticatable=false).
type Options struct {
	ID              *bool   `yaml:"id,omitempty"`
	IDType          string  `yaml:"idType,omitempty"`
	Timestamps      *bool   `yaml:"timestamps,omitempty"`
	SoftDelete      *bool   `yaml:"softDelete,omitempty"`
	TableName       string  `yaml:"tableName,omitempty"`
	Translations    *bool   `yaml:"translations,omitempty"`
	Authenticatable *bool   `yaml:"authenticatable,omitempty"`
	Indexes         []Index `yaml:"indexes,omitempty"`
}

// OptionKeys lists the scalar option keys in their stable comparison order.
// Indexes are deliberately absent: they are diffed structurally, never as an
// opaque option value.
var OptionKeys = []string{
	"id",
	"idType",
	"timestamps",
	"softDelete",
	"tableName",
	"translations",
	"authenticatable",
}

// OptionValue returns the effective value of a scalar option key, applying
// the documented default when the key is elided. A nil receiver is a valid
// all-defaults options set.
func (o *Options) OptionValue(key string) any {
	switch key {
	case "id":
		if o == nil || o.ID == nil {
			return true
		}
		return *o.ID
	case "idType":
		if o == nil || o.IDType == "" {
			return DefaultIDType
		}
		return o.IDType
	case "timestamps":
		if o == nil || o.Timestamps == nil {
			return true
		}
		return *o.Timestamps
	case "softDelete":
		if o == nil || o.SoftDelete == nil {
			return false
		}
		return *o.SoftDelete
	case "tableName":
		if o == nil {
			return ""
		}
		return o.TableName
	case "translations":
		if o == nil || o.Translations == nil {
			return false
		}
		return *o.Translations
	case "authenticatable":
		if o == nil || o.Authenticatable == nil {
			return false
		}
		return *o.Authenticatable
	}
	return nil
}

// Effective returns every scalar option with defaults applied, keyed by
// option name.
func (o *Options) Effective() map[string]any {
	out := make(map[string]any, len(OptionKeys))
	for _, key := range OptionKeys {
		out[key] = o.OptionValue(key)
	}
	return out
}

// IndexList returns the schema's indexes, tolerating a nil options set.
func (o *Options) IndexList() []Index {
	if o == nil {
		return nil
	}
	return o.Indexes
}

// Schema is the canonical shape of one schema within a collection.
type Schema struct {
	Name       string              `yaml:"name"`
	Kind       string              `yaml:"kind"`
	Properties map[string]Property `yaml:"properties,omitempty"`
	Values     []string            `yaml:"values,omitempty"`
	Options    *Options            `yaml:"options,omitempty"`
}

// Snapshot maps schema name to its canonical shape for an entire collection
// at one instant. Map iteration order is irrelevant; every consumer that
// needs determinism sorts the keys.
type Snapshot map[string]Schema

// Names returns the schema names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValuesEqual compares two open-typed scalar values (property defaults,
// option values carried through change records).
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func boolValue(b *bool) bool {
	return b != nil && *b
}
