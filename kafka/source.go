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

// Package kafka implements an ndk.Source which consumes JSON records from
// Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Shopify/sarama"
	cluster "github.com/bsm/sarama-cluster"
	"github.com/nodskit/ndk"
	"github.com/pkg/errors"
)

// Source consumes JSON messages from Kafka and assembles them into record
// sets. Each Fetch drains up to MaxMsgs messages (or blocks until the context
// is canceled), so repeated fetches page through the stream.
type Source struct {
	Hosts   []string
	Topics  []string
	Group   string
	MaxMsgs int
	Schema  ndk.Schema

	consumer *cluster.Consumer
}

// NewSource returns a new Source with sane defaults for a local single node
// Kafka.
func NewSource() *Source {
	return &Source{
		Hosts:   []string{"localhost:9092"},
		Topics:  []string{"test"},
		Group:   "group0",
		MaxMsgs: 1000,
	}
}

// Open initializes the kafka consumer.
func (s *Source) Open() error {
	config := cluster.NewConfig()
	config.Version = sarama.V0_10_0_0
	config.Consumer.Return.Errors = true
	config.Group.Return.Notifications = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumer, err := cluster.NewConsumer(s.Hosts, s.Group, s.Topics, config)
	if err != nil {
		return &ndk.ConnectionError{Endpoint: s.endpoint(), Err: err}
	}
	s.consumer = consumer
	return nil
}

func (s *Source) endpoint() string {
	return "kafka://" + strings.Join(s.Hosts, ",")
}

// Fetch implements ndk.Source. It consumes up to MaxMsgs messages, decoding
// each as a JSON object, and applies params as equality filters over the
// assembled records.
func (s *Source) Fetch(ctx context.Context, params map[string]string) (*ndk.RecordSet, error) {
	if s.consumer == nil {
		if err := s.Open(); err != nil {
			return nil, errors.Wrap(err, "opening consumer")
		}
	}
	b, err := ndk.NewBuilder(s.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "building record set")
	}
	err = drain(ctx, b, s.MaxMsgs, s.endpoint(),
		s.consumer.Messages(), s.consumer.Errors(), s.consumer.Notifications(),
		func(msg *sarama.ConsumerMessage) { s.consumer.MarkOffset(msg, "") })
	if err != nil {
		return nil, err
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

// drain decodes up to max JSON messages into b, acknowledging each through
// mark. Closed error/notification channels are nil'd out so the loop never
// spins on them; a closed messages channel ends the fetch.
func drain(ctx context.Context, b *ndk.Builder, max int, endpoint string,
	msgs <-chan *sarama.ConsumerMessage, errs <-chan error, notes <-chan *cluster.Notification,
	mark func(*sarama.ConsumerMessage)) error {
	for n := 0; n < max; {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return &ndk.ConnectionError{Endpoint: endpoint, Err: errors.New("messages channel closed")}
			}
			rec := make(map[string]interface{})
			if err := json.Unmarshal(msg.Value, &rec); err != nil {
				return errors.Wrapf(err, "unmarshaling message at offset %d", msg.Offset)
			}
			b.AddJSON(rec)
			mark(msg)
			n++
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return &ndk.ConnectionError{Endpoint: endpoint, Err: err}
			}
		case _, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			// rebalance, keep consuming
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "fetch canceled")
		}
	}
	return nil
}

// Close closes the underlying consumer.
func (s *Source) Close() error {
	if s.consumer == nil {
		return nil
	}
	return errors.Wrap(s.consumer.Close(), "closing consumer")
}
