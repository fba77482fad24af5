// Package nats publishes processed-command events to NATS JetStream with
// at-least-once delivery. The command id doubles as the JetStream message id,
// so broker-side deduplication lines up with the pipeline's idempotency.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/plaenen/commandsource/pkg/events"
)

// Config holds configuration for the NATS publisher.
type Config struct {
	// URL is the NATS server URL.
	URL string

	// StreamName is the JetStream stream name for command events.
	StreamName string

	// StreamSubjects are the subjects the stream captures.
	StreamSubjects []string

	// MaxAge is how long to retain events in the stream.
	MaxAge time.Duration

	// MaxBytes is the maximum bytes the stream can store.
	MaxBytes int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:            nats.DefaultURL,
		StreamName:     "COMMANDS",
		StreamSubjects: []string{"commands.>"},
		MaxAge:         7 * 24 * time.Hour,
		MaxBytes:       1024 * 1024 * 1024, // 1 GB
	}
}

// Publisher implements events.Publisher over JetStream.
type Publisher struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the command event stream exists.
func NewPublisher(config Config) (*Publisher, error) {
	nc, err := nats.Connect(config.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &Publisher{nc: nc, js: js}
	if err := p.ensureStream(config); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *Publisher) ensureStream(config Config) error {
	streamConfig := &nats.StreamConfig{
		Name:      config.StreamName,
		Subjects:  config.StreamSubjects,
		Retention: nats.LimitsPolicy,
		MaxAge:    config.MaxAge,
		MaxBytes:  config.MaxBytes,
		Storage:   nats.FileStorage,
		Replicas:  1,
	}

	stream, err := p.js.StreamInfo(config.StreamName)
	if err != nil {
		if _, err := p.js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		return nil
	}

	if stream.Config.MaxAge != config.MaxAge || stream.Config.MaxBytes != config.MaxBytes {
		if _, err := p.js.UpdateStream(streamConfig); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
	}
	return nil
}

// Publish implements events.Publisher. The subject encodes the command's
// target, e.g. commands.CLIENT.CREATE.
func (p *Publisher) Publish(ctx context.Context, event events.CommandEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize command event %s: %w", event.CommandID, err)
	}

	subject := fmt.Sprintf("commands.%s.%s", event.EntityName, event.ActionName)
	if _, err := p.js.Publish(subject, payload, nats.MsgId(event.CommandID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish command event %s: %w", event.CommandID, err)
	}
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() error {
	p.nc.Close()
	return nil
}
