package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/parser"
	"github.com/willibrandon/stlog/selflog"
)

// MessageWriter is the part of *kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOptions configures a KafkaSink.
type KafkaOptions struct {
	// Brokers and Topic are used to build a kafka.Writer when Writer is nil.
	Brokers []string
	Topic   string

	// Writer overrides the writer built from Brokers and Topic.
	Writer MessageWriter

	// KeyProperty names the property used as the message key. Events
	// without it are written with no key.
	KeyProperty string
}

// KafkaSink publishes each event as a CLEF-encoded Kafka message.
type KafkaSink struct {
	writer      MessageWriter
	keyProperty string
}

// NewKafkaSink creates a sink from opts.
func NewKafkaSink(opts KafkaOptions) (*KafkaSink, error) {
	w := opts.Writer
	if w == nil {
		if len(opts.Brokers) == 0 || opts.Topic == "" {
			return nil, fmt.Errorf("%w: kafka sink needs brokers and a topic", core.ErrInvalidArgument)
		}
		w = &kafka.Writer{
			Addr:         kafka.TCP(opts.Brokers...),
			Topic:        opts.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	return &KafkaSink{writer: w, keyProperty: opts.KeyProperty}, nil
}

// Emit writes the batch in a single WriteMessages call.
func (s *KafkaSink) Emit(ctx context.Context, events []*core.LogEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := FormatCLEF(e)
		if err != nil {
			selflog.Printf("[kafka] encode event %q: %v", e.TemplateText(), err)
			continue
		}
		msg := kafka.Message{Value: value, Time: e.Timestamp}
		if s.keyProperty != "" {
			if key, ok := e.Properties[s.keyProperty]; ok {
				msg.Key = []byte(parser.ToText(key))
			}
		}
		if msg.Time.IsZero() {
			msg.Time = time.Now()
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	return s.writer.WriteMessages(ctx, msgs...)
}

// Flush is a no-op: writes are synchronous.
func (s *KafkaSink) Flush(context.Context) error {
	return nil
}

// Close closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
