// Package mem implements an ndk.Source over a pre-loaded in-memory table. It
// is interchangeable with the remote adapters behind the same Fetch contract,
// which makes it the natural source for tests and worked examples.
package mem

import (
	"context"

	"github.com/nodskit/ndk"
	"github.com/pkg/errors"
)

// Source holds a fixed-schema table in memory.
type Source struct {
	name string
	rs   *ndk.RecordSet
}

// NewSource builds a Source named name (used in error messages as the
// endpoint descriptor) over the given schema and rows. Rows must match the
// schema exactly; absent values must be stated as ndk.Missing.
func NewSource(name string, schema ndk.Schema, rows []ndk.Row) (*Source, error) {
	rs, err := ndk.NewRecordSet(schema)
	if err != nil {
		return nil, errors.Wrap(err, "building table")
	}
	for i, row := range rows {
		if err := rs.Append(row); err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
	}
	return &Source{name: name, rs: rs}, nil
}

// Fetch implements ndk.Source. Params are equality filters applied at load
// time; a param naming an unknown field is a *ndk.RequestRejected, exactly as
// a remote endpoint would report it, while a valid field matching nothing is
// a successful empty result.
func (s *Source) Fetch(ctx context.Context, params map[string]string) (*ndk.RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "fetch canceled")
	}
	keep, err := ndk.ParamFilter(s.name, s.rs.Schema(), params)
	if err != nil {
		return nil, err
	}
	out, err := ndk.NewRecordSet(s.rs.Schema())
	if err != nil {
		return nil, err
	}
	for i := 0; i < s.rs.Len(); i++ {
		row := s.rs.Row(i)
		if !keep.Keep(row) {
			continue
		}
		if err := out.Append(row.Clone()); err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
	}
	return out, nil
}
