package csv

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/nodskit/ndk"
	"github.com/pkg/errors"
)

func mustTempFile(t *testing.T, content string) string {
	t.Helper()
	f, err := ioutil.TempFile("", "ndkcsv")
	if err != nil {
		t.Fatalf("getting temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing temp file: %v", err)
	}
	return f.Name()
}

func citySchema() ndk.Schema {
	return ndk.Schema{
		{Name: "city", Type: ndk.Categorical},
		{Name: "pop", Type: ndk.Integer},
	}
}

func TestFetch(t *testing.T) {
	file := mustTempFile(t, `city,pop
Austin,950000
Brillion,

Nowhere,17
`)
	src := NewSource(WithURLs([]string{file}), WithSchema(citySchema()))
	rs, err := src.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("fetching: %v", err)
	}
	if rs.Len() != 3 {
		t.Fatalf("expected 3 rows (empty line skipped), got %d", rs.Len())
	}
	if rs.Row(0)["pop"].Kind() != ndk.KindInt {
		t.Fatalf("declared integer should parse to int, got %v", rs.Row(0)["pop"].Kind())
	}
	if !ndk.IsMissing(rs.Row(1)["pop"]) {
		t.Fatalf("empty cell should parse to Missing, got %v", rs.Row(1)["pop"])
	}
}

func TestFetchMultipleFiles(t *testing.T) {
	f1 := mustTempFile(t, "city,pop\nAustin,950000\n")
	f2 := mustTempFile(t, "city,pop\nBrillion,3000\n")
	src := NewSource(WithURLs([]string{f1, f2}), WithSchema(citySchema()))
	rs, err := src.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("fetching: %v", err)
	}
	if rs.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", rs.Len())
	}
}

func TestFetchFilters(t *testing.T) {
	file := mustTempFile(t, "city,pop\nAustin,950000\nBrillion,3000\n")
	src := NewSource(WithURLs([]string{file}), WithSchema(citySchema()))

	rs, err := src.Fetch(context.Background(), map[string]string{"city": "Brillion"})
	if err != nil {
		t.Fatalf("fetching: %v", err)
	}
	if rs.Len() != 1 || ndk.Format(rs.Row(0)["pop"]) != "3000" {
		t.Fatalf("unexpected filtered result: %d rows", rs.Len())
	}

	rs, err = src.Fetch(context.Background(), map[string]string{"city": "Brox"})
	if err != nil {
		t.Fatalf("no matches must not error: %v", err)
	}
	if rs.Len() != 0 {
		t.Fatalf("expected empty result, got %d rows", rs.Len())
	}

	_, err = src.Fetch(context.Background(), map[string]string{"citty": "Austin"})
	if _, ok := err.(*ndk.RequestRejected); !ok {
		t.Fatalf("expected *ndk.RequestRejected, got %v", err)
	}
}

func TestFetchHeaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "duplicate header field", content: "city,city\nAustin,Austin\n"},
		{name: "empty header field", content: "city,,pop\nAustin,,1\n"},
		{name: "row length mismatch", content: "city,pop\nAustin\n"},
		{name: "bad integer cell", content: "city,pop\nAustin,lots\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			file := mustTempFile(t, test.content)
			src := NewSource(WithURLs([]string{file}), WithSchema(citySchema()))
			if _, err := src.Fetch(context.Background(), nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFetchUndeclaredHeaderFieldsAreStrings(t *testing.T) {
	file := mustTempFile(t, "city,pop,extra\nAustin,950000,7\n")
	src := NewSource(WithURLs([]string{file}), WithSchema(citySchema()))
	rs, err := src.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("fetching: %v", err)
	}
	if rs.Row(0)["extra"].Kind() != ndk.KindString {
		t.Fatalf("undeclared field should stay a string, got %v", rs.Row(0)["extra"].Kind())
	}
}

// flakyOpener fails with a transient error the first failures times, then
// serves content.
type flakyOpener struct {
	content  string
	failures int
	opens    int
}

func (f *flakyOpener) Open() (io.ReadCloser, error) {
	f.opens++
	if f.opens <= f.failures {
		return nil, &ndk.ConnectionError{Endpoint: f.String(), Err: errors.New("flaked")}
	}
	return ioutil.NopCloser(strings.NewReader(f.content)), nil
}

func (f *flakyOpener) String() string { return "flaky" }

func TestFetchRetriesTransientFailures(t *testing.T) {
	f := &flakyOpener{content: "city,pop\nAustin,950000\n", failures: 2}
	src := NewSource(WithOpenStringers([]OpenStringer{f}), WithSchema(citySchema()), WithMaxRetries(3))
	rs, err := src.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("fetching: %v", err)
	}
	if rs.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", rs.Len())
	}
	if f.opens != 3 {
		t.Fatalf("expected 3 opens, got %d", f.opens)
	}
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	f := &flakyOpener{content: "city,pop\n", failures: 10}
	src := NewSource(WithOpenStringers([]OpenStringer{f}), WithMaxRetries(2))
	if _, err := src.Fetch(context.Background(), nil); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if f.opens != 2 {
		t.Fatalf("expected 2 opens, got %d", f.opens)
	}
}

func TestFetchDoesNotRetryParseErrors(t *testing.T) {
	f := &flakyOpener{content: "city,pop\nAustin,lots\n"}
	src := NewSource(WithOpenStringers([]OpenStringer{f}), WithSchema(citySchema()), WithMaxRetries(3))
	if _, err := src.Fetch(context.Background(), nil); err == nil {
		t.Fatal("expected parse error")
	}
	if f.opens != 1 {
		t.Fatalf("parse errors are permanent, expected 1 open, got %d", f.opens)
	}
}

func TestParseColumns(t *testing.T) {
	schema, err := ParseColumns([]string{"city:categorical", "pop:integer"})
	if err != nil {
		t.Fatalf("parsing columns: %v", err)
	}
	if len(schema) != 2 || schema[1].Type != ndk.Integer {
		t.Fatalf("unexpected schema: %v", schema)
	}
	if _, err := ParseColumns([]string{"nocolon"}); err == nil {
		t.Fatal("expected error for pair without colon")
	}
	if _, err := ParseColumns([]string{"city:blob"}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestParseFilters(t *testing.T) {
	params, err := ParseFilters([]string{"city=Austin", "state=TX"})
	if err != nil {
		t.Fatalf("parsing filters: %v", err)
	}
	if params["city"] != "Austin" || params["state"] != "TX" {
		t.Fatalf("unexpected params: %v", params)
	}
	if _, err := ParseFilters([]string{"noequals"}); err == nil {
		t.Fatal("expected error for pair without equals")
	}
	params, err = ParseFilters(nil)
	if err != nil || params != nil {
		t.Fatalf("expected nil params for no filters, got %v, %v", params, err)
	}
}
