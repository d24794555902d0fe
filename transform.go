package ndk

import (
	"hash/fnv"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Predicate is a pure keep/drop test applied uniformly to every row. It must
// not mutate the row. Predicates in a pass are conjunctive and
// order-independent: a row survives iff all of them return true.
type Predicate interface {
	Keep(Row) bool
}

// PredicateFunc wraps a bare function as a Predicate, like http.HandlerFunc.
type PredicateFunc func(Row) bool

// Keep implements Predicate.
func (f PredicateFunc) Keep(r Row) bool { return f(r) }

// Where builds a predicate testing the named column's value. A Missing value
// fails the test.
func Where(column string, fn func(Value) bool) Predicate {
	return PredicateFunc(func(r Row) bool {
		v := r[column]
		if IsMissing(v) {
			return false
		}
		return fn(v)
	})
}

// Eq keeps rows whose column formats equal to want.
func Eq(column, want string) Predicate {
	return Where(column, func(v Value) bool { return Format(v) == want })
}

// NotMissing keeps rows which have a value in the named column.
func NotMissing(column string) Predicate {
	return PredicateFunc(func(r Row) bool { return !IsMissing(r[column]) })
}

// Derivation is a named rule computing one new column from existing columns
// of the same row. Derivations run in the caller-declared order, and a rule
// may read columns produced by earlier rules in the same pass. A rule whose
// required inputs are absent fails with a *DerivationError for that row.
type Derivation struct {
	Name   string
	Type   ColumnType
	Derive func(Row) (Value, error)
}

// Apply runs one conjunctive predicate pass and then the derivations, in
// order, over each surviving row. It returns a new RecordSet (the input is
// never mutated) whose schema is the input schema plus one column per
// derivation, along with the per-row errors. A derivation failure drops only
// the offending row - partial-failure semantics; the rest of the batch
// proceeds. The final error is reserved for a malformed call (duplicate or
// colliding derivation names), which rejects the whole pass.
func Apply(rs *RecordSet, preds []Predicate, derivs []Derivation) (*RecordSet, []error, error) {
	schema := rs.Schema()
	outSchema := make(Schema, len(schema), len(schema)+len(derivs))
	copy(outSchema, schema)
	for _, d := range derivs {
		if outSchema.Index(d.Name) >= 0 {
			return nil, nil, errors.Errorf("derivation '%s' collides with an existing column", d.Name)
		}
		outSchema = append(outSchema, Column{Name: d.Name, Type: d.Type})
	}
	out, err := NewRecordSet(outSchema)
	if err != nil {
		return nil, nil, err
	}

	var rowErrs []error
rows:
	for i := 0; i < rs.Len(); i++ {
		row := rs.Row(i)
		for _, p := range preds {
			if !p.Keep(row) {
				continue rows
			}
		}
		row = row.Clone()
		for _, d := range derivs {
			v, derr := d.Derive(row)
			if derr != nil {
				if _, ok := derr.(*DerivationError); !ok {
					derr = &DerivationError{Rule: d.Name, Row: i, Reason: derr.Error()}
				} else {
					derr.(*DerivationError).Row = i
				}
				rowErrs = append(rowErrs, derr)
				continue rows
			}
			if v == nil {
				v = Missing
			}
			row[d.Name] = v
		}
		if aerr := out.Append(row); aerr != nil {
			return nil, nil, errors.Wrapf(aerr, "appending row %d", i)
		}
	}
	return out, rowErrs, nil
}

// input fetches a required input column for a derivation and reports an
// absent column as a rule failure.
func input(rule string, r Row, column string) (Value, error) {
	v, ok := r[column]
	if !ok {
		return nil, &DerivationError{Rule: rule, Reason: "required input '" + column + "' is absent"}
	}
	return v, nil
}

// ToInt derives an integer column named name by coercing from. Reals are
// truncated toward zero; see AsInt for the full coercion rules. Missing
// propagates to Missing.
func ToInt(name, from string) Derivation {
	return Derivation{Name: name, Type: Integer, Derive: func(r Row) (Value, error) {
		v, err := input(name, r, from)
		if err != nil {
			return nil, err
		}
		out, err := AsInt(v)
		if err != nil {
			return nil, &DerivationError{Rule: name, Reason: err.Error()}
		}
		return out, nil
	}}
}

// ToFloat derives a real column named name by coercing from. Missing
// propagates to Missing.
func ToFloat(name, from string) Derivation {
	return Derivation{Name: name, Type: Real, Derive: func(r Row) (Value, error) {
		v, err := input(name, r, from)
		if err != nil {
			return nil, err
		}
		out, err := AsFloat(v)
		if err != nil {
			return nil, &DerivationError{Rule: name, Reason: err.Error()}
		}
		return out, nil
	}}
}

// Log derives the natural logarithm of the numeric column from. A
// non-positive input is a *DerivationError: there is no defined value to
// propagate, and silently producing one is exactly the kind of bug this rule
// exists to surface. Missing propagates to Missing.
func Log(name, from string) Derivation {
	return Derivation{Name: name, Type: Real, Derive: func(r Row) (Value, error) {
		v, err := input(name, r, from)
		if err != nil {
			return nil, err
		}
		fv, err := AsFloat(v)
		if err != nil {
			return nil, &DerivationError{Rule: name, Reason: err.Error()}
		}
		if IsMissing(fv) {
			return Missing, nil
		}
		f := float64(fv.(F))
		if f <= 0 {
			return nil, &DerivationError{Rule: name, Reason: "log of non-positive value " + strconv.FormatFloat(f, 'g', -1, 64)}
		}
		return F(math.Log(f)), nil
	}}
}

// Collapse derives a categorical column by mapping the string value of from
// through mapping; values without an entry collapse to def. Missing
// propagates to Missing.
func Collapse(name, from string, mapping map[string]string, def string) Derivation {
	return Derivation{Name: name, Type: Categorical, Derive: func(r Row) (Value, error) {
		v, err := input(name, r, from)
		if err != nil {
			return nil, err
		}
		if IsMissing(v) {
			return Missing, nil
		}
		s, ok := v.(S)
		if !ok {
			return nil, &DerivationError{Rule: name, Reason: "input '" + from + "' is not a string"}
		}
		if to, ok := mapping[string(s)]; ok {
			return S(to), nil
		}
		return S(def), nil
	}}
}

// PickOne derives a single categorical label from the list-of-string column
// from. When several labels apply, the pick is deterministic: it hashes the
// label set together with the required seed, so the same row yields the same
// label on every run regardless of row order. An empty list derives Missing
// (nothing to pick), which is distinct from a missing list. Missing
// propagates to Missing.
func PickOne(name, from string, seed int64) Derivation {
	return Derivation{Name: name, Type: Categorical, Derive: func(r Row) (Value, error) {
		v, err := input(name, r, from)
		if err != nil {
			return nil, err
		}
		if IsMissing(v) {
			return Missing, nil
		}
		l, ok := v.(Strings)
		if !ok {
			return nil, &DerivationError{Rule: name, Reason: "input '" + from + "' is not a list of strings"}
		}
		if len(l) == 0 {
			return Missing, nil
		}
		h := fnv.New64a()
		var buf [8]byte
		for i := uint(0); i < 8; i++ {
			buf[i] = byte(uint64(seed) >> (8 * i))
		}
		_, _ = h.Write(buf[:])
		for _, s := range l {
			_, _ = h.Write([]byte(s))
			_, _ = h.Write([]byte{0})
		}
		return S(l[h.Sum64()%uint64(len(l))]), nil
	}}
}

// Dict maps labels to stable integer ids within a named space, and back.
// The boltdb and leveldb sub-packages provide persistent implementations.
type Dict interface {
	ID(space, label string) (int64, error)
	Label(space string, id int64) (string, error)
}

// Encode derives an integer code column for the categorical column from,
// assigning codes through dict under the given space. The same label always
// encodes to the same id for the lifetime of the dict. Missing propagates to
// Missing.
func Encode(name, from string, dict Dict, space string) Derivation {
	return Derivation{Name: name, Type: Integer, Derive: func(r Row) (Value, error) {
		v, err := input(name, r, from)
		if err != nil {
			return nil, err
		}
		if IsMissing(v) {
			return Missing, nil
		}
		s, err := AsString(v)
		if err != nil {
			return nil, &DerivationError{Rule: name, Reason: err.Error()}
		}
		id, err := dict.ID(space, string(s.(S)))
		if err != nil {
			return nil, &DerivationError{Rule: name, Reason: err.Error()}
		}
		return I(id), nil
	}}
}
