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

// Package web implements an ndk.Source over a remote JSON query endpoint: a
// GET request carrying field=value filter parameters as URL query parameters,
// answered by a JSON array of records (a valid empty array for zero matches)
// or an error object with an "error" flag and a "message".
package web

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/nodskit/ndk"
	"github.com/pkg/errors"
)

// Source fetches records from a query endpoint. It is safe for concurrent
// use; every Fetch is an independent request.
type Source struct {
	base     string
	schema   ndk.Schema
	token    string
	tokenErr error
	timeout  time.Duration
	client   *http.Client
}

// Option is a functional option for Source.
type Option func(*Source)

// WithSchema declares the column types the endpoint's records are decoded
// into. Response fields outside the declared schema are kept with inferred
// types so validation can flag them.
func WithSchema(s ndk.Schema) Option {
	return func(src *Source) { src.schema = s }
}

// WithToken sets the access credential sent as a bearer token.
func WithToken(tok string) Option {
	return func(src *Source) { src.token = tok }
}

// WithTimeout sets the per-fetch timeout. A timeout is required - there is no
// silently assumed default - and an expired timeout surfaces as
// *ndk.TimeoutError, distinct from *ndk.ConnectionError.
func WithTimeout(d time.Duration) Option {
	return func(src *Source) { src.timeout = d }
}

// WithClient sets the underlying HTTP client.
func WithClient(c *http.Client) Option {
	return func(src *Source) { src.client = c }
}

// NewSource returns a Source for the endpoint at base.
func NewSource(base string, opts ...Option) (*Source, error) {
	if _, err := url.Parse(base); err != nil {
		return nil, errors.Wrapf(err, "parsing endpoint '%s'", base)
	}
	src := &Source{base: base, client: http.DefaultClient}
	for _, opt := range opts {
		opt(src)
	}
	if src.tokenErr != nil {
		return nil, errors.Wrap(src.tokenErr, "loading credential")
	}
	if src.timeout <= 0 {
		return nil, errors.New("a fetch timeout must be set explicitly (WithTimeout)")
	}
	return src, nil
}

// errBody is the endpoint's error envelope.
type errBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// Fetch implements ndk.Source. Params are serialized as URL query parameters
// and applied server-side; nothing is filtered client-side. A 200 with an
// empty array is a successful empty result, which is not an error and must
// never be confused with a rejected request.
func (s *Source) Fetch(ctx context.Context, params map[string]string) (*ndk.RecordSet, error) {
	u, err := url.Parse(s.base)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing endpoint '%s'", s.base)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequest("GET", u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req = req.WithContext(ctx)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &ndk.TimeoutError{Endpoint: s.base, Err: err}
		}
		if ctx.Err() == context.Canceled {
			// whole-pipeline cancellation: abandon, no partial result
			return nil, errors.Wrap(err, "fetch canceled")
		}
		return nil, &ndk.ConnectionError{Endpoint: s.base, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		msg := serverMessage(body)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &ndk.AuthenticationError{Endpoint: s.base, Reason: msg}
		default:
			return nil, &ndk.RequestRejected{
				Endpoint: s.base,
				Params:   params,
				Status:   resp.StatusCode,
				Message:  msg,
			}
		}
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &ndk.ConnectionError{Endpoint: s.base, Err: err}
	}
	var recs []map[string]interface{}
	if err := json.Unmarshal(body, &recs); err != nil {
		// some endpoints report a rejected request in the body under a 200
		var eb errBody
		if jerr := json.Unmarshal(body, &eb); jerr == nil && eb.Error {
			return nil, &ndk.RequestRejected{
				Endpoint: s.base,
				Params:   params,
				Status:   resp.StatusCode,
				Message:  eb.Message,
			}
		}
		return nil, errors.Wrap(err, "decoding response body")
	}
	b, err := ndk.NewBuilder(s.schema)
	if err != nil {
		return nil, errors.Wrap(err, "building record set")
	}
	for _, rec := range recs {
		b.AddJSON(rec)
	}
	return b.RecordSet()
}

// serverMessage pulls the raw message out of an error envelope, falling back
// to the raw body so typos in field names stay visible to the user.
func serverMessage(body []byte) string {
	var eb errBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		return eb.Message
	}
	return string(body)
}
