package snapshot

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// NormalizeError reports malformed raw schema input. A corrupt snapshot would
// poison every future diff, so normalization fails loudly instead of
// producing an incomplete result.
type NormalizeError struct {
	Schema   string
	Property string
	Reason   string
}

func (e *NormalizeError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("normalize schema %q: property %q: %s", e.Schema, e.Property, e.Reason)
	}
	return fmt.Sprintf("normalize schema %q: %s", e.Schema, e.Reason)
}

// RawSchema is the shape produced by the schema loader. Pointer fields keep
// "absent" distinguishable from "explicit default", which is the whole point
// of the elision rules.
type RawSchema struct {
	Name       string              `yaml:"name"`
	Kind       string              `yaml:"kind"`
	Properties map[string]Property `yaml:"properties"`
	Values     []string            `yaml:"values"`
	Options    *RawOptions         `yaml:"options"`
}

// RawOptions carries schema options as loaded, explicit defaults included,
// plus the legacy unique-constraint declarations that predate the indexes
// list.
type RawOptions struct {
	ID              *bool       `yaml:"id"`
	IDType          *string     `yaml:"idType"`
	Timestamps      *bool       `yaml:"timestamps"`
	SoftDelete      *bool       `yaml:"softDelete"`
	TableName       *string     `yaml:"tableName"`
	Translations    *bool       `yaml:"translations"`
	Authenticatable *bool       `yaml:"authenticatable"`
	Indexes         []RawIndex  `yaml:"indexes"`
	Unique          []RawUnique `yaml:"unique"`
}

// RawIndex accepts the three index declaration shapes found in schema files:
//
//	indexes: [email]                  # scalar, single column
//	indexes: [[tenant_id, email]]    # sequence, composite columns
//	indexes: [{columns: [a, b], unique: true, name: x, type: btree}]
type RawIndex struct {
	Columns []string
	Unique  *bool
	Name    string
	Type    string
}

// UnmarshalYAML handles the scalar, sequence and mapping variants
// exhaustively.
func (ix *RawIndex) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var col string
		if err := node.Decode(&col); err != nil {
			return err
		}
		ix.Columns = []string{col}
		return nil
	case yaml.SequenceNode:
		return node.Decode(&ix.Columns)
	case yaml.MappingNode:
		var obj struct {
			Columns columnList `yaml:"columns"`
			Unique  *bool      `yaml:"unique"`
			Name    string     `yaml:"name"`
			Type    string     `yaml:"type"`
		}
		if err := node.Decode(&obj); err != nil {
			return err
		}
		ix.Columns = obj.Columns
		ix.Unique = obj.Unique
		ix.Name = obj.Name
		ix.Type = obj.Type
		return nil
	}
	return fmt.Errorf("index entry must be a string, a list of columns, or a mapping (line %d)", node.Line)
}

// RawUnique accepts legacy unique-constraint declarations: a single column
// name, a composite column list, or a mapping with columns and an optional
// explicit name.
type RawUnique struct {
	Columns []string
	Name    string
}

func (u *RawUnique) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var col string
		if err := node.Decode(&col); err != nil {
			return err
		}
		u.Columns = []string{col}
		return nil
	case yaml.SequenceNode:
		return node.Decode(&u.Columns)
	case yaml.MappingNode:
		var obj struct {
			Columns columnList `yaml:"columns"`
			Name    string     `yaml:"name"`
		}
		if err := node.Decode(&obj); err != nil {
			return err
		}
		u.Columns = obj.Columns
		u.Name = obj.Name
		return nil
	}
	return fmt.Errorf("unique entry must be a string, a list of columns, or a mapping (line %d)", node.Line)
}

// columnList decodes either a single scalar column or a sequence of columns.
type columnList []string

func (c *columnList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var col string
		if err := node.Decode(&col); err != nil {
			return err
		}
		*c = []string{col}
		return nil
	}
	var cols []string
	if err := node.Decode(&cols); err != nil {
		return err
	}
	*c = cols
	return nil
}

// Normalize converts a loaded schema collection into its canonical Snapshot:
// kinds defaulted, default-valued options elided, legacy unique declarations
// folded into the indexes list. Pure and deterministic; no I/O.
func Normalize(raw map[string]RawSchema) (Snapshot, error) {
	snap := make(Snapshot, len(raw))
	for key, rs := range raw {
		name := rs.Name
		if name == "" {
			name = key
		}
		schema, err := normalizeSchema(name, rs)
		if err != nil {
			return nil, err
		}
		snap[name] = schema
	}
	return snap, nil
}

func normalizeSchema(name string, rs RawSchema) (Schema, error) {
	out := Schema{
		Name: name,
		Kind: rs.Kind,
	}
	if out.Kind == "" {
		out.Kind = KindObject
	}

	if len(rs.Properties) > 0 {
		props := make(map[string]Property, len(rs.Properties))
		for propName, prop := range rs.Properties {
			if prop.Type == "" {
				return Schema{}, &NormalizeError{Schema: name, Property: propName, Reason: "missing type"}
			}
			props[propName] = prop
		}
		out.Properties = props
	}

	if len(rs.Values) > 0 {
		out.Values = append([]string(nil), rs.Values...)
	}

	opts, err := normalizeOptions(name, rs.Options)
	if err != nil {
		return Schema{}, err
	}
	out.Options = opts
	return out, nil
}

// normalizeOptions applies the elision rule: an option key is written only
// when its incoming value differs from the documented default. Returns nil
// when nothing survives elision, so an all-defaults schema and a bare schema
// compare identically.
func normalizeOptions(schema string, raw *RawOptions) (*Options, error) {
	if raw == nil {
		return nil, nil
	}
	opts := &Options{}
	empty := true

	if raw.ID != nil && !*raw.ID {
		opts.ID = boolPtr(false)
		empty = false
	}
	if raw.IDType != nil && *raw.IDType != DefaultIDType {
		opts.IDType = *raw.IDType
		empty = false
	}
	if raw.Timestamps != nil && !*raw.Timestamps {
		opts.Timestamps = boolPtr(false)
		empty = false
	}
	if raw.SoftDelete != nil && *raw.SoftDelete {
		opts.SoftDelete = boolPtr(true)
		empty = false
	}
	if raw.TableName != nil && *raw.TableName != "" {
		opts.TableName = *raw.TableName
		empty = false
	}
	if raw.Translations != nil && *raw.Translations {
		opts.Translations = boolPtr(true)
		empty = false
	}
	if raw.Authenticatable != nil && *raw.Authenticatable {
		opts.Authenticatable = boolPtr(true)
		empty = false
	}

	indexes, err := normalizeIndexes(schema, raw.Indexes, raw.Unique)
	if err != nil {
		return nil, err
	}
	if len(indexes) > 0 {
		opts.Indexes = indexes
		empty = false
	}

	if empty {
		return nil, nil
	}
	return opts, nil
}

// normalizeIndexes passes explicit index entries through and appends legacy
// unique declarations as synthetic unique indexes, auto-named by position
// when no name was given.
func normalizeIndexes(schema string, indexes []RawIndex, uniques []RawUnique) ([]Index, error) {
	out := make([]Index, 0, len(indexes)+len(uniques))
	for i, ix := range indexes {
		if len(ix.Columns) == 0 {
			return nil, &NormalizeError{Schema: schema, Reason: fmt.Sprintf("index %d has no columns", i)}
		}
		out = append(out, Index{
			Columns: append([]string(nil), ix.Columns...),
			Unique:  ix.Unique,
			Name:    ix.Name,
			Type:    ix.Type,
		})
	}
	for i, u := range uniques {
		if len(u.Columns) == 0 {
			return nil, &NormalizeError{Schema: schema, Reason: fmt.Sprintf("unique constraint %d has no columns", i)}
		}
		name := u.Name
		if name == "" {
			name = fmt.Sprintf("unique_%d", i)
		}
		out = append(out, Index{
			Columns: append([]string(nil), u.Columns...),
			Unique:  boolPtr(true),
			Name:    name,
		})
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func boolPtr(b bool) *bool { return &b }
