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

// Package s3 implements an ndk.Source over line separated JSON objects
// stored in an S3 bucket.
package s3

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/nodskit/ndk"
	"github.com/pkg/errors"
)

// SrcOption is a functional option type for s3.Source.
type SrcOption func(s *Source)

// OptSrcBucket is a SrcOption which sets the S3 bucket for a Source.
func OptSrcBucket(bucket string) SrcOption {
	return func(s *Source) {
		s.bucket = bucket
	}
}

// OptSrcRegion is a SrcOption which sets the AWS region for a Source.
func OptSrcRegion(region string) SrcOption {
	return func(s *Source) {
		s.region = region
	}
}

// OptSrcPrefix tells the source to list only the objects in the bucket that
// match the specified prefix.
func OptSrcPrefix(prefix string) SrcOption {
	return func(s *Source) {
		s.prefix = prefix
	}
}

// OptSrcSchema declares the column types records are decoded into.
func OptSrcSchema(schema ndk.Schema) SrcOption {
	return func(s *Source) {
		s.schema = schema
	}
}

// Source is an ndk.Source which reads line separated JSON records from S3.
// The AWS session is established lazily on the first Fetch, so constructing a
// Source is cheap and does not touch the network.
type Source struct {
	bucket string
	prefix string
	region string
	schema ndk.Schema

	svc *s3.S3
}

// NewSource returns a new Source with the options applied.
func NewSource(opts ...SrcOption) (*Source, error) {
	s := &Source{}
	for _, opt := range opts {
		opt(s)
	}
	if s.bucket == "" {
		return nil, errors.New("a bucket is required")
	}
	return s, nil
}

func (s *Source) connect() error {
	if s.svc != nil {
		return nil
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(s.region)})
	if err != nil {
		return &ndk.ConnectionError{Endpoint: s.endpoint(), Err: err}
	}
	s.svc = s3.New(sess)
	return nil
}

func (s *Source) endpoint() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}

// Fetch implements ndk.Source. It lists the bucket under the prefix, decodes
// every object's lines as JSON records, and applies params as load-time
// equality filters (an unknown field name is a *ndk.RequestRejected).
func (s *Source) Fetch(ctx context.Context, params map[string]string) (*ndk.RecordSet, error) {
	if err := s.connect(); err != nil {
		return nil, err
	}
	resp, err := s.svc.ListObjects(&s3.ListObjectsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	if err != nil {
		return nil, &ndk.ConnectionError{Endpoint: s.endpoint(), Err: err}
	}

	b, err := ndk.NewBuilder(s.schema)
	if err != nil {
		return nil, errors.Wrap(err, "building record set")
	}
	for _, obj := range resp.Contents {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "fetch canceled")
		}
		if err := s.readObject(*obj.Key, b); err != nil {
			return nil, errors.Wrapf(err, "reading object '%s'", *obj.Key)
		}
	}
	rs, err := b.RecordSet()
	if err != nil {
		return nil, err
	}
	keep, err := ndk.ParamFilter(s.endpoint(), rs.Schema(), params)
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

func (s *Source) readObject(key string, b *ndk.Builder) error {
	obj, err := s.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &ndk.ConnectionError{Endpoint: s.endpoint(), Err: err}
	}
	defer obj.Body.Close()

	scan := bufio.NewScanner(obj.Body)
	line := 0
	for scan.Scan() {
		line++
		rec := make(map[string]interface{})
		if err := json.Unmarshal(scan.Bytes(), &rec); err != nil {
			return errors.Wrapf(err, "unmarshaling line %d", line)
		}
		b.AddJSON(rec)
	}
	if err := scan.Err(); err != nil {
		return &ndk.ConnectionError{Endpoint: s.endpoint(), Err: err}
	}
	return nil
}
