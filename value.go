package ndk

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies the dynamic type of a Value.
type Kind int

// The supported value kinds. KindMissing is the kind of the Missing marker
// and of nothing else.
const (
	KindMissing Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindStrings
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStrings:
		return "strings"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is the tagged variant type for cell values in a RecordSet. A Value is
// one of S, I, F, B, Strings, or the Missing marker. There is no implicit
// coercion between kinds - use the As* functions, which carry documented
// conversion rules.
type Value interface {
	Kind() Kind
}

// S is a string value.
type S string

// I is an integer value.
type I int64

// F is a real (floating point) value.
type F float64

// B is a boolean value.
type B bool

// Strings is a list-of-string value. An empty Strings is a legitimate empty
// list; it is not Missing.
type Strings []string

// Kind implements Value.
func (S) Kind() Kind { return KindString }

// Kind implements Value.
func (I) Kind() Kind { return KindInt }

// Kind implements Value.
func (F) Kind() Kind { return KindFloat }

// Kind implements Value.
func (B) Kind() Kind { return KindBool }

// Kind implements Value.
func (Strings) Kind() Kind { return KindStrings }

type missing struct{}

func (missing) Kind() Kind { return KindMissing }

// Missing is the distinguished "value not present" marker. It is distinct
// from every legitimate value including the empty string, zero, and the empty
// list.
var Missing Value = missing{}

// IsMissing reports whether v is the Missing marker (or a nil Value, which is
// treated the same way).
func IsMissing(v Value) bool {
	return v == nil || v.Kind() == KindMissing
}

// ColumnType is the declared semantic type of a column. It is fixed at
// ingestion and must remain consistent across all rows.
type ColumnType int

// The supported column types. Categorical values are carried as strings; the
// distinction from String lives in the schema and drives summarization.
const (
	String ColumnType = iota
	Integer
	Real
	Categorical
	Boolean
	StringList
)

func (t ColumnType) String() string {
	switch t {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Categorical:
		return "categorical"
	case Boolean:
		return "boolean"
	case StringList:
		return "stringlist"
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// ParseColumnType parses the string form of a ColumnType as used in flags and
// config files.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return String, nil
	case "integer", "int":
		return Integer, nil
	case "real", "float":
		return Real, nil
	case "categorical", "category":
		return Categorical, nil
	case "boolean", "bool":
		return Boolean, nil
	case "stringlist", "strings":
		return StringList, nil
	}
	return String, errors.Errorf("unknown column type '%s'", s)
}

// Accepts reports whether v is a legal value for a column of type t. Missing
// is legal in every column. An integer observed in a Real column is accepted
// (a whole number is not schema drift); the reverse is not.
func (t ColumnType) Accepts(v Value) bool {
	if IsMissing(v) {
		return true
	}
	switch t {
	case String, Categorical:
		return v.Kind() == KindString
	case Integer:
		return v.Kind() == KindInt
	case Real:
		return v.Kind() == KindFloat || v.Kind() == KindInt
	case Boolean:
		return v.Kind() == KindBool
	case StringList:
		return v.Kind() == KindStrings
	}
	return false
}

// TypeOf returns the ColumnType matching v's kind. It is used to type
// columns which show up in a response without being declared. Missing maps to
// String since it carries no type information of its own.
func TypeOf(v Value) ColumnType {
	switch v.Kind() {
	case KindInt:
		return Integer
	case KindFloat:
		return Real
	case KindBool:
		return Boolean
	case KindStrings:
		return StringList
	}
	return String
}

// AsInt coerces v to an integer value. Reals are truncated toward zero
// (1.9 becomes 1, -1.9 becomes -1); strings are parsed base 10; booleans map
// to 0 and 1. Missing coerces to Missing, never to zero.
func AsInt(v Value) (Value, error) {
	switch v := v.(type) {
	case nil, missing:
		return Missing, nil
	case I:
		return v, nil
	case F:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.Errorf("cannot coerce %v to integer", f)
		}
		if f >= math.MaxInt64 || f <= math.MinInt64 {
			return nil, errors.Errorf("%v out of integer range", f)
		}
		return I(int64(f)), nil // truncation toward zero
	case S:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing '%s' as integer", string(v))
		}
		return I(n), nil
	case B:
		if v {
			return I(1), nil
		}
		return I(0), nil
	}
	return nil, errors.Errorf("cannot coerce %s to integer", v.Kind())
}

// AsFloat coerces v to a real value. Missing coerces to Missing.
func AsFloat(v Value) (Value, error) {
	switch v := v.(type) {
	case nil, missing:
		return Missing, nil
	case F:
		return v, nil
	case I:
		return F(float64(v)), nil
	case S:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing '%s' as real", string(v))
		}
		return F(f), nil
	}
	return nil, errors.Errorf("cannot coerce %s to real", v.Kind())
}

// AsString coerces v to its string form. Missing coerces to Missing. A list
// of strings has no single string form and is an error.
func AsString(v Value) (Value, error) {
	switch v := v.(type) {
	case nil, missing:
		return Missing, nil
	case S:
		return v, nil
	case I:
		return S(strconv.FormatInt(int64(v), 10)), nil
	case F:
		return S(strconv.FormatFloat(float64(v), 'g', -1, 64)), nil
	case B:
		return S(strconv.FormatBool(bool(v))), nil
	}
	return nil, errors.Errorf("cannot coerce %s to string", v.Kind())
}

// AsBool coerces v to a boolean. Strings are parsed with strconv.ParseBool.
// Missing coerces to Missing.
func AsBool(v Value) (Value, error) {
	switch v := v.(type) {
	case nil, missing:
		return Missing, nil
	case B:
		return v, nil
	case S:
		b, err := strconv.ParseBool(string(v))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing '%s' as boolean", string(v))
		}
		return B(b), nil
	}
	return nil, errors.Errorf("cannot coerce %s to boolean", v.Kind())
}

// Format renders v for display and for comparison against textual filter
// parameters. Missing renders as "NA"; lists join their elements with ";".
func Format(v Value) string {
	switch v := v.(type) {
	case nil, missing:
		return "NA"
	case S:
		return string(v)
	case I:
		return strconv.FormatInt(int64(v), 10)
	case F:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case B:
		return strconv.FormatBool(bool(v))
	case Strings:
		return strings.Join(v, ";")
	}
	return fmt.Sprintf("%v", v)
}

// ParseString parses a raw text field (e.g. a CSV cell) into a Value of the
// declared column type. The empty string parses to Missing for every type;
// a CSV cannot distinguish an empty cell from an absent one. List values are
// separated by ";".
func ParseString(field string, t ColumnType) (Value, error) {
	if field == "" {
		return Missing, nil
	}
	switch t {
	case String, Categorical:
		return S(field), nil
	case Integer:
		return AsInt(S(field))
	case Real:
		return AsFloat(S(field))
	case Boolean:
		return AsBool(S(field))
	case StringList:
		return Strings(strings.Split(field, ";")), nil
	}
	return nil, errors.Errorf("unknown column type %v", t)
}

// FromJSON converts a decoded JSON value to a Value of the declared column
// type where possible. A value which does not fit the declared type is
// converted by inference instead, so that schema validation can report the
// mismatch rather than this function hiding it. JSON null becomes Missing.
func FromJSON(x interface{}, t ColumnType) Value {
	if x == nil {
		return Missing
	}
	switch t {
	case String, Categorical:
		if s, ok := x.(string); ok {
			return S(s)
		}
	case Integer:
		if f, ok := x.(float64); ok && isInt64(f) {
			return I(int64(f))
		}
	case Real:
		if f, ok := x.(float64); ok {
			return F(f)
		}
	case Boolean:
		if b, ok := x.(bool); ok {
			return B(b)
		}
	case StringList:
		if l, ok := stringList(x); ok {
			return l
		}
	}
	return InferJSON(x)
}

// InferJSON converts a decoded JSON value to a Value by its JSON kind.
// Whole numbers become I, other numbers F. It is used for response fields
// which were not declared in the schema.
func InferJSON(x interface{}) Value {
	switch x := x.(type) {
	case nil:
		return Missing
	case string:
		return S(x)
	case bool:
		return B(x)
	case float64:
		if isInt64(x) {
			return I(int64(x))
		}
		return F(x)
	case []interface{}:
		if l, ok := stringList(x); ok {
			return l
		}
		return S(fmt.Sprintf("%v", x))
	}
	return S(fmt.Sprintf("%v", x))
}

// isInt64 reports whether f is a whole number which fits in an int64, so the
// int64(f) conversion cannot overflow. Matches AsInt's range guard.
func isInt64(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0) &&
		f < math.MaxInt64 && f > math.MinInt64
}

func stringList(x interface{}) (Strings, bool) {
	l, ok := x.([]interface{})
	if !ok {
		return nil, false
	}
	out := make(Strings, len(l))
	for i, e := range l {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}
