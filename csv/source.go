// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package csv implements an ndk.Source over comma separated files, local or
// behind HTTP URLs. The first line of each file is the header; cells are
// parsed into the declared column types and an empty cell is Missing.
package csv

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/nodskit/ndk"
	"github.com/pkg/errors"
)

// Source satisfies ndk.Source for CSV data. Opening or reading a resource may
// fail transiently, so each file is retried up to MaxRetries times; a retry
// rereads the whole file and discards the partial rows, so no partial data
// ever leaks into the result. Header errors and cell parse errors are
// permanent and are never retried.
type Source struct {
	files      []OpenStringer
	schema     ndk.Schema
	maxRetries int
}

// Option is a functional option to pass to NewSource.
type Option func(*Source)

// WithURLs returns an Option which adds the slice of URLs to the set of
// resources a Source will read from. The URLs may be HTTP or local files.
func WithURLs(urls []string) Option {
	return func(s *Source) {
		for _, url := range urls {
			s.files = append(s.files, urlOpener(url))
		}
	}
}

// WithOpenStringers returns an Option which adds the slice of OpenStringers
// to the set of resources a Source will read from.
func WithOpenStringers(os []OpenStringer) Option {
	return func(s *Source) {
		s.files = append(s.files, os...)
	}
}

// WithSchema declares the column types cells are parsed into. Header fields
// outside the declared schema are kept as inferred string columns so
// validation can flag them.
func WithSchema(schema ndk.Schema) Option {
	return func(s *Source) { s.schema = schema }
}

// WithMaxRetries returns an Option which sets the max number of retries per
// file. Only transient open/read failures are retried.
func WithMaxRetries(maxRetries int) Option {
	return func(s *Source) {
		if maxRetries > 0 {
			s.maxRetries = maxRetries
		}
	}
}

// NewSource creates an ndk.Source for CSV data. The raw data locations are
// set with options, e.g.
//
// src := csv.NewSource(csv.WithURLs([]string{"f1.csv", "http://example.com/f2.csv"}))
func NewSource(options ...Option) *Source {
	src := &Source{maxRetries: 3}
	for _, opt := range options {
		opt(src)
	}
	return src
}

// Opener is an interface to a resource which can be repeatedly opened. Each
// call to Open must return a ReadCloser reading from the beginning of the
// resource, so a failed read can retry the whole thing.
type Opener interface {
	Open() (io.ReadCloser, error)
}

// OpenStringer is an Opener which also names the resource being opened (a
// file path or URL) for error messages.
type OpenStringer interface {
	fmt.Stringer
	Opener
}

// urlOpener turns a URL or file path into an OpenStringer.
type urlOpener string

func (u urlOpener) Open() (io.ReadCloser, error) {
	url := string(u)
	if strings.HasPrefix(url, "http") {
		resp, err := http.Get(url)
		if err != nil {
			return nil, &ndk.ConnectionError{Endpoint: url, Err: err}
		}
		return resp.Body, nil
	}
	f, err := os.Open(url)
	if err != nil {
		return nil, &ndk.ConnectionError{Endpoint: url, Err: err}
	}
	return f, nil
}

func (u urlOpener) String() string {
	return string(u)
}

// Fetch implements ndk.Source. Params are equality filters applied at load
// time after cell parsing; an unknown field name is a *ndk.RequestRejected.
func (s *Source) Fetch(ctx context.Context, params map[string]string) (*ndk.RecordSet, error) {
	b, err := ndk.NewBuilder(s.schema)
	if err != nil {
		return nil, errors.Wrap(err, "building record set")
	}
	for _, file := range s.files {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "fetch canceled")
		}
		if err := s.readFile(file, b); err != nil {
			return nil, errors.Wrapf(err, "reading '%s'", file)
		}
	}
	rs, err := b.RecordSet()
	if err != nil {
		return nil, err
	}
	keep, err := ndk.ParamFilter("csv", rs.Schema(), params)
	if err != nil {
		return nil, err
	}
	out, err := ndk.NewRecordSet(rs.Schema())
	if err != nil {
		return nil, err
	}
	for i := 0; i < rs.Len(); i++ {
		if row := rs.Row(i); keep.Keep(row) {
			if err := out.Append(row); err != nil {
				return nil, errors.Wrapf(err, "row %d", i)
			}
		}
	}
	return out, nil
}

// readFile reads one resource into the builder, retrying transient failures.
// Rows are staged per attempt and only committed on success.
func (s *Source) readFile(file OpenStringer, b *ndk.Builder) error {
	var err error
	for try := 0; try < s.maxRetries; try++ {
		var rows []map[string]ndk.Value
		rows, err = s.readTry(file)
		if err == nil {
			for _, row := range rows {
				b.AddRow(row)
			}
			return nil
		}
		if !ndk.Retryable(err) {
			return err
		}
	}
	return errors.Wrapf(err, "tried %d times, latest", s.maxRetries)
}

func (s *Source) readTry(file OpenStringer) ([]map[string]ndk.Value, error) {
	content, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer content.Close()

	scan := bufio.NewScanner(content)
	if !scan.Scan() {
		if err := scan.Err(); err != nil {
			return nil, &ndk.ConnectionError{Endpoint: file.String(), Err: err}
		}
		return nil, errors.New("file has no header line")
	}
	header := strings.Split(scan.Text(), ",")
	if err := validateHeader(header); err != nil {
		return nil, errors.Wrap(err, "validating header")
	}

	var rows []map[string]ndk.Value
	line := 1
	for scan.Scan() {
		line++
		txt := scan.Text()
		if strings.TrimSpace(txt) == "" {
			continue // skip empty lines
		}
		cells := strings.Split(txt, ",")
		if len(cells) != len(header) {
			return nil, errors.Errorf("line %d: header/row len mismatch: %d vs %d", line, len(header), len(cells))
		}
		row := make(map[string]ndk.Value, len(header))
		for i, name := range header {
			t := ndk.String
			if c, ok := s.schema.Column(name); ok {
				t = c.Type
			}
			v, err := ndk.ParseString(cells[i], t)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d, column '%s'", line, name)
			}
			row[name] = v
		}
		rows = append(rows, row)
	}
	if err := scan.Err(); err != nil {
		return nil, &ndk.ConnectionError{Endpoint: file.String(), Err: err}
	}
	return rows, nil
}

func validateHeader(header []string) error {
	fields := make(map[string]int)
	for i, h := range header {
		if h == "" {
			return errors.Errorf("header contains empty string at %d: %v", i, header)
		}
		if pos, exists := fields[h]; exists {
			return errors.Errorf("%s appeared at both %d and %d in header", h, pos, i)
		}
		fields[h] = i
	}
	return nil
}
