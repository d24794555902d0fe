package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	cluster "github.com/bsm/sarama-cluster"
	"github.com/nodskit/ndk"
)

func TestNewSourceDefaults(t *testing.T) {
	src := NewSource()
	if len(src.Hosts) != 1 || src.Hosts[0] != "localhost:9092" {
		t.Fatalf("unexpected hosts: %v", src.Hosts)
	}
	if len(src.Topics) != 1 || src.Topics[0] != "test" {
		t.Fatalf("unexpected topics: %v", src.Topics)
	}
	if src.Group != "group0" {
		t.Fatalf("unexpected group: %v", src.Group)
	}
	if src.MaxMsgs <= 0 {
		t.Fatalf("expected a positive message cap, got %d", src.MaxMsgs)
	}
	if src.endpoint() != "kafka://localhost:9092" {
		t.Fatalf("unexpected endpoint: %s", src.endpoint())
	}
}

func TestCloseWithoutOpen(t *testing.T) {
	src := NewSource()
	if err := src.Close(); err != nil {
		t.Fatalf("closing unopened source: %v", err)
	}
}

func TestDrainSurvivesClosedSideChannels(t *testing.T) {
	msgs := make(chan *sarama.ConsumerMessage, 2)
	msgs <- &sarama.ConsumerMessage{Value: []byte(`{"city":"Austin"}`), Offset: 0}
	msgs <- &sarama.ConsumerMessage{Value: []byte(`{"city":"Brillion"}`), Offset: 1}
	errs := make(chan error)
	notes := make(chan *cluster.Notification)
	close(errs)
	close(notes)

	b, err := ndk.NewBuilder(ndk.Schema{{Name: "city", Type: ndk.Categorical}})
	if err != nil {
		t.Fatalf("getting builder: %v", err)
	}
	marked := 0
	err = drain(context.Background(), b, 2, "kafka://test",
		msgs, errs, notes, func(*sarama.ConsumerMessage) { marked++ })
	if err != nil {
		t.Fatalf("draining: %v", err)
	}
	if marked != 2 {
		t.Fatalf("expected 2 offsets marked, got %d", marked)
	}
	rs, err := b.RecordSet()
	if err != nil {
		t.Fatalf("finalizing: %v", err)
	}
	if rs.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", rs.Len())
	}
}

func TestDrainStopsOnClosedMessages(t *testing.T) {
	msgs := make(chan *sarama.ConsumerMessage)
	close(msgs)
	b, err := ndk.NewBuilder(nil)
	if err != nil {
		t.Fatalf("getting builder: %v", err)
	}
	err = drain(context.Background(), b, 1, "kafka://test", msgs, nil, nil, func(*sarama.ConsumerMessage) {})
	if _, ok := err.(*ndk.ConnectionError); !ok {
		t.Fatalf("expected *ndk.ConnectionError, got %v", err)
	}
}

func TestDrainHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	b, err := ndk.NewBuilder(nil)
	if err != nil {
		t.Fatalf("getting builder: %v", err)
	}
	err = drain(ctx, b, 1, "kafka://test", nil, nil, nil, func(*sarama.ConsumerMessage) {})
	if err == nil {
		t.Fatal("expected error for expired context")
	}
}
