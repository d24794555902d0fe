// Package geohash provides a derivation which hashes latitude/longitude
// columns to geohash strings, so locations can be collapsed into coarse
// categorical buckets.
package geohash

import (
	"github.com/mmcloughlin/geohash"
	"github.com/nodskit/ndk"
)

// Derive returns an ndk.Derivation which reads the numeric latCol and lonCol
// and produces a geohash string of the given precision (in characters) in a
// new categorical column named name. A missing latitude or longitude derives
// Missing; a non-numeric one fails the row.
func Derive(name, latCol, lonCol string, precision uint) ndk.Derivation {
	return ndk.Derivation{Name: name, Type: ndk.Categorical, Derive: func(r ndk.Row) (ndk.Value, error) {
		lat, err := coord(name, r, latCol)
		if err != nil {
			return nil, err
		}
		lon, err := coord(name, r, lonCol)
		if err != nil {
			return nil, err
		}
		if ndk.IsMissing(lat) || ndk.IsMissing(lon) {
			return ndk.Missing, nil
		}
		hsh := geohash.EncodeWithPrecision(float64(lat.(ndk.F)), float64(lon.(ndk.F)), precision)
		return ndk.S(hsh), nil
	}}
}

func coord(rule string, r ndk.Row, column string) (ndk.Value, error) {
	v, ok := r[column]
	if !ok {
		return nil, &ndk.DerivationError{Rule: rule, Reason: "required input '" + column + "' is absent"}
	}
	f, err := ndk.AsFloat(v)
	if err != nil {
		return nil, &ndk.DerivationError{Rule: rule, Reason: err.Error()}
	}
	return f, nil
}
