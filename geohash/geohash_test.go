package geohash

import (
	"testing"

	"github.com/nodskit/ndk"
)

func TestDerive(t *testing.T) {
	d := Derive("cell", "lat", "lon", 6)
	// downtown Austin
	v, err := d.Derive(ndk.Row{"lat": ndk.F(30.2672), "lon": ndk.F(-97.7431)})
	if err != nil {
		t.Fatalf("deriving: %v", err)
	}
	s, ok := v.(ndk.S)
	if !ok || len(s) != 6 {
		t.Fatalf("expected a 6 character geohash, got %v", v)
	}

	// same point, same hash
	again, err := d.Derive(ndk.Row{"lat": ndk.F(30.2672), "lon": ndk.F(-97.7431)})
	if err != nil {
		t.Fatalf("deriving again: %v", err)
	}
	if again != v {
		t.Fatalf("hash changed between runs: %v then %v", v, again)
	}

	// nearby point at coarse precision lands in the same bucket
	coarse := Derive("cell", "lat", "lon", 3)
	a, err := coarse.Derive(ndk.Row{"lat": ndk.F(30.2672), "lon": ndk.F(-97.7431)})
	if err != nil {
		t.Fatalf("deriving coarse: %v", err)
	}
	b, err := coarse.Derive(ndk.Row{"lat": ndk.F(30.27), "lon": ndk.F(-97.74)})
	if err != nil {
		t.Fatalf("deriving coarse neighbor: %v", err)
	}
	if a != b {
		t.Fatalf("nearby points should share a coarse bucket: %v and %v", a, b)
	}
}

func TestDeriveMissingAndBadInputs(t *testing.T) {
	d := Derive("cell", "lat", "lon", 6)

	v, err := d.Derive(ndk.Row{"lat": ndk.Missing, "lon": ndk.F(-97.7431)})
	if err != nil {
		t.Fatalf("deriving: %v", err)
	}
	if !ndk.IsMissing(v) {
		t.Fatalf("missing coordinate should derive Missing, got %v", v)
	}

	_, err = d.Derive(ndk.Row{"lat": ndk.S("north"), "lon": ndk.F(-97.7431)})
	if _, ok := err.(*ndk.DerivationError); !ok {
		t.Fatalf("expected *ndk.DerivationError, got %v", err)
	}

	_, err = d.Derive(ndk.Row{"lat": ndk.F(30.2672)})
	if _, ok := err.(*ndk.DerivationError); !ok {
		t.Fatalf("expected *ndk.DerivationError for absent column, got %v", err)
	}
}

func TestDeriveAcceptsIntegerCoordinates(t *testing.T) {
	d := Derive("cell", "lat", "lon", 4)
	v, err := d.Derive(ndk.Row{"lat": ndk.I(30), "lon": ndk.I(-97)})
	if err != nil {
		t.Fatalf("deriving: %v", err)
	}
	if v.Kind() != ndk.KindString {
		t.Fatalf("expected string geohash, got %v", v)
	}
}
