package natsadapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// ErrChannelUnavailable is returned when the bus connection is down. Records
// are not buffered for later delivery: a stale boundary is worse than none.
var ErrChannelUnavailable = errors.New("boundary channel unavailable")

const (
	headerContentType = "Content-Type"
	headerFrameID     = "Frame-Id"
)

// PublisherOptions configures a BoundaryPublisher.
type PublisherOptions struct {
	// JetStream publishes through a memory stream and waits for the ack.
	JetStream bool
	// Channel is bound to the stream when JetStream is enabled.
	Channel string
	// AckTimeout bounds the wait for a JetStream ack when the caller's
	// context carries no deadline. Defaults to one second.
	AckTimeout time.Duration
}

// BoundaryPublisher implements ports.BoundarySink over NATS.
type BoundaryPublisher struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	codec      Codec
	ackTimeout time.Duration
}

// NewBoundaryPublisher connects to NATS and, if requested, ensures the
// boundary stream exists.
func NewBoundaryPublisher(url string, codec Codec, opts PublisherOptions) (*BoundaryPublisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	p := &BoundaryPublisher{conn: conn, codec: codec, ackTimeout: opts.AckTimeout}
	if p.ackTimeout <= 0 {
		p.ackTimeout = time.Second
	}
	if !opts.JetStream {
		return p, nil
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:              "SAFETY_BOUNDS",
		Subjects:          []string{opts.Channel},
		Retention:         nats.LimitsPolicy,
		MaxAge:            time.Minute,
		MaxMsgsPerSubject: 1024,
		Discard:           nats.DiscardOld,
		Storage:           nats.MemoryStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	p.js = js
	return p, nil
}

// PublishBoundary encodes rec and publishes it on channel.
func (p *BoundaryPublisher) PublishBoundary(ctx context.Context, channel string, rec *domain.BoundaryRecord) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("%w: nats status %s", ErrChannelUnavailable, p.conn.Status())
	}

	data, err := p.codec.Encode(rec)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(channel)
	msg.Data = data
	msg.Header.Set(headerContentType, p.codec.ContentType())
	msg.Header.Set(headerFrameID, rec.FrameID)

	if p.js != nil {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.ackTimeout)
			defer cancel()
		}
		if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
			return fmt.Errorf("jetstream publish %s: %w", channel, err)
		}
		return nil
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Connected reports whether the bus connection is up.
func (p *BoundaryPublisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *BoundaryPublisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection that keeps reconnecting forever.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("navfence"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
