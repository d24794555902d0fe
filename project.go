package ndk

import "github.com/pkg/errors"

// Project returns a new RecordSet holding only the requested columns, in the
// requested order. The requested set must be a subset of the schema:
// requesting an absent column is a *ProjectionError, not a silently-empty
// column. Projecting onto the full column set in schema order is the
// identity.
func Project(rs *RecordSet, columns []string) (*RecordSet, error) {
	schema := rs.Schema()
	outSchema := make(Schema, 0, len(columns))
	seen := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		c, ok := schema.Column(name)
		if !ok {
			return nil, &ProjectionError{Column: name, Available: schema.Names()}
		}
		if _, dup := seen[name]; dup {
			return nil, errors.Errorf("column '%s' requested twice", name)
		}
		seen[name] = struct{}{}
		outSchema = append(outSchema, c)
	}
	out, err := NewRecordSet(outSchema)
	if err != nil {
		return nil, err
	}
	for i := 0; i < rs.Len(); i++ {
		row := rs.Row(i)
		outRow := make(Row, len(outSchema))
		for _, c := range outSchema {
			outRow[c.Name] = row[c.Name]
		}
		if err := out.Append(outRow); err != nil {
			return nil, errors.Wrapf(err, "appending row %d", i)
		}
	}
	return out, nil
}
