package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/testutil"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_WritesCLEFMessages(t *testing.T) {
	w := &fakeWriter{}
	sink, err := NewKafkaSink(KafkaOptions{Writer: w, KeyProperty: "Tenant"})
	testutil.AssertNoError(t, err, "NewKafkaSink")

	events := []*core.LogEvent{
		testutil.Event(t, core.InformationLevel, "Tenant {Tenant} active", "acme"),
		testutil.Event(t, core.InformationLevel, "No tenant here"),
	}
	if err := sink.Emit(context.Background(), events); err != nil {
		t.Fatal(err)
	}

	if len(w.msgs) != 2 {
		t.Fatalf("wrote %d messages", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "acme" {
		t.Errorf("key = %q", w.msgs[0].Key)
	}
	if w.msgs[1].Key != nil {
		t.Errorf("expected no key, got %q", w.msgs[1].Key)
	}

	var rec map[string]any
	if err := json.Unmarshal(w.msgs[0].Value, &rec); err != nil {
		t.Fatal(err)
	}
	if rec["@m"] != "Tenant acme active" {
		t.Errorf("@m = %v", rec["@m"])
	}
	if !w.msgs[0].Time.Equal(events[0].Timestamp) {
		t.Errorf("message time = %v", w.msgs[0].Time)
	}

	_ = sink.Close()
	if !w.closed {
		t.Error("Close did not close the writer")
	}
}

func TestKafkaSink_PropagatesWriteErrors(t *testing.T) {
	boom := errors.New("leader not available")
	sink, _ := NewKafkaSink(KafkaOptions{Writer: &fakeWriter{err: boom}})

	if err := sink.Emit(context.Background(), testutil.Numbered(t, 0, 1)); !errors.Is(err, boom) {
		t.Errorf("Emit() = %v", err)
	}
}

func TestNewKafkaSink_RequiresBrokersAndTopic(t *testing.T) {
	if _, err := NewKafkaSink(KafkaOptions{Topic: "logs"}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("missing brokers: %v", err)
	}
	sink, err := NewKafkaSink(KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "logs"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sink.writer.(*kafka.Writer); !ok {
		t.Errorf("expected a kafka.Writer, got %T", sink.writer)
	}
	_ = sink.Close()
}
