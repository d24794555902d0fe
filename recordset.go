package ndk

import (
	"github.com/pkg/errors"
)

// Column is a single named, typed column in a Schema.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is the ordered column set shared by every row of a RecordSet.
type Schema []Column

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column and whether it exists.
func (s Schema) Column(name string) (Column, bool) {
	if i := s.Index(name); i >= 0 {
		return s[i], true
	}
	return Column{}, false
}

func (s Schema) validate() error {
	seen := make(map[string]int, len(s))
	for i, c := range s {
		if c.Name == "" {
			return errors.Errorf("schema contains empty column name at %d", i)
		}
		if pos, exists := seen[c.Name]; exists {
			return errors.Errorf("column '%s' appears at both %d and %d", c.Name, pos, i)
		}
		seen[c.Name] = i
	}
	return nil
}

// Row maps column names to values. A row in a RecordSet always has exactly
// the columns of its schema; a column with no value holds Missing explicitly.
type Row map[string]Value

// Clone returns a copy of the row. Values themselves are immutable apart
// from Strings, which is copied.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		if l, ok := v.(Strings); ok {
			cp := make(Strings, len(l))
			copy(cp, l)
			v = cp
		}
		out[k] = v
	}
	return out
}

// RecordSet is an ordered sequence of rows sharing one fixed schema. Row
// order is not semantically meaningful, but it is preserved so that output is
// reproducible. Each pipeline stage produces a new RecordSet; stages never
// mutate their input.
type RecordSet struct {
	schema Schema
	rows   []Row
}

// NewRecordSet returns an empty RecordSet with the given schema. Schemas with
// duplicate or empty column names are rejected.
func NewRecordSet(schema Schema) (*RecordSet, error) {
	if err := schema.validate(); err != nil {
		return nil, errors.Wrap(err, "validating schema")
	}
	cp := make(Schema, len(schema))
	copy(cp, schema)
	return &RecordSet{schema: cp}, nil
}

// Schema returns the record set's schema. Callers must not modify it.
func (rs *RecordSet) Schema() Schema { return rs.schema }

// Len returns the number of rows.
func (rs *RecordSet) Len() int { return len(rs.rows) }

// Row returns row i. Callers must not modify it; stages clone before
// deriving.
func (rs *RecordSet) Row(i int) Row { return rs.rows[i] }

// Append adds a row. The row must have exactly the schema's columns - no
// partial rows; an absent value must be stated as Missing. Types are not
// checked here; observed-type drift is the Validator's report, not an append
// failure.
func (rs *RecordSet) Append(row Row) error {
	if len(row) != len(rs.schema) {
		return errors.Errorf("row has %d columns, schema has %d", len(row), len(rs.schema))
	}
	for _, c := range rs.schema {
		if _, ok := row[c.Name]; !ok {
			return errors.Errorf("row is missing column '%s'", c.Name)
		}
	}
	rs.rows = append(rs.rows, row)
	return nil
}

// Clone returns an independent copy of the record set, used at stage
// boundaries so each stage owns its output.
func (rs *RecordSet) Clone() *RecordSet {
	out := &RecordSet{
		schema: make(Schema, len(rs.schema)),
		rows:   make([]Row, len(rs.rows)),
	}
	copy(out.schema, rs.schema)
	for i, r := range rs.rows {
		out.rows[i] = r.Clone()
	}
	return out
}

// Equal returns nil if rs and rs2 have the same schema, row count, row order,
// and cell values, and an error describing the first difference otherwise.
func (rs *RecordSet) Equal(rs2 *RecordSet) error {
	if len(rs.schema) != len(rs2.schema) {
		return errors.Errorf("schemas have different sizes: %d and %d", len(rs.schema), len(rs2.schema))
	}
	for i, c := range rs.schema {
		if rs2.schema[i] != c {
			return errors.Errorf("schema differs at %d: %v and %v", i, c, rs2.schema[i])
		}
	}
	if len(rs.rows) != len(rs2.rows) {
		return errors.Errorf("different row counts: %d and %d", len(rs.rows), len(rs2.rows))
	}
	for i, r := range rs.rows {
		r2 := rs2.rows[i]
		for _, c := range rs.schema {
			v, v2 := r[c.Name], r2[c.Name]
			if kindOf(v) != kindOf(v2) || Format(v) != Format(v2) {
				return errors.Errorf("row %d differs at '%s': %v and %v", i, c.Name, v, v2)
			}
		}
	}
	return nil
}

// kindOf is IsMissing-consistent: a nil Value counts as Missing.
func kindOf(v Value) Kind {
	if v == nil {
		return KindMissing
	}
	return v.Kind()
}

// Builder assembles a RecordSet from loosely structured records (decoded
// JSON objects, CSV lines already parsed to values). Declared columns are
// typed by the declared schema; fields which show up without being declared
// are appended to the schema with inferred types, in first-seen order, so
// that validation can flag them. Declared columns absent from a record become
// Missing.
type Builder struct {
	schema Schema
	index  map[string]int
	rows   []Row
}

// NewBuilder returns a Builder over the declared schema.
func NewBuilder(declared Schema) (*Builder, error) {
	if err := declared.validate(); err != nil {
		return nil, errors.Wrap(err, "validating schema")
	}
	b := &Builder{
		schema: make(Schema, len(declared)),
		index:  make(map[string]int, len(declared)),
	}
	copy(b.schema, declared)
	for i, c := range b.schema {
		b.index[c.Name] = i
	}
	return b, nil
}

// AddJSON adds one decoded JSON object as a row.
func (b *Builder) AddJSON(rec map[string]interface{}) {
	row := make(Row, len(b.schema))
	for name, raw := range rec {
		i, ok := b.index[name]
		if !ok {
			v := InferJSON(raw)
			b.index[name] = len(b.schema)
			b.schema = append(b.schema, Column{Name: name, Type: TypeOf(v)})
			row[name] = v
			continue
		}
		row[name] = FromJSON(raw, b.schema[i].Type)
	}
	b.rows = append(b.rows, row)
}

// AddRow adds a row of already-typed values keyed by column name.
func (b *Builder) AddRow(vals map[string]Value) {
	row := make(Row, len(b.schema))
	for name, v := range vals {
		if _, ok := b.index[name]; !ok {
			b.index[name] = len(b.schema)
			b.schema = append(b.schema, Column{Name: name, Type: TypeOf(v)})
		}
		row[name] = v
	}
	b.rows = append(b.rows, row)
}

// RecordSet finalizes the accumulated rows, filling Missing into any column a
// row did not mention, and returns the completed set.
func (b *Builder) RecordSet() (*RecordSet, error) {
	rs, err := NewRecordSet(b.schema)
	if err != nil {
		return nil, err
	}
	for _, row := range b.rows {
		for _, c := range b.schema {
			if _, ok := row[c.Name]; !ok {
				row[c.Name] = Missing
			}
		}
		if err := rs.Append(row); err != nil {
			return nil, errors.Wrap(err, "appending row")
		}
	}
	return rs, nil
}
