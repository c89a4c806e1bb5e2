package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/pkg/metrics"
)

// Subscriber listens for zone commands and boundary records.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Subscriber{conn: conn}, nil
}

// ServeZoneCommands answers request/reply zone commands on subject. All
// instances share a queue group so each command is applied once.
func (s *Subscriber) ServeZoneCommands(ctx context.Context, subject string, cmds ZoneCommands) error {
	sub, err := s.conn.QueueSubscribe(subject, "navfence-commands", func(msg *nats.Msg) {
		reply := HandleCommand(ctx, cmds, msg.Data)

		result := "ok"
		if !reply.OK {
			result = reply.Code
			slog.WarnContext(ctx, "zone command rejected", "subject", subject, "error", reply.Error)
		}
		metrics.ZoneCommands.WithLabelValues(commandAction(msg.Data), result).Inc()

		if msg.Reply == "" {
			return
		}
		data, err := json.Marshal(reply)
		if err != nil {
			return
		}
		if err := msg.Respond(data); err != nil {
			slog.WarnContext(ctx, "zone command reply failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeBoundaries delivers every record published on channel. The codec
// is chosen per message from its Content-Type header.
func (s *Subscriber) SubscribeBoundaries(ctx context.Context, channel string, handler func(ctx context.Context, rec *domain.BoundaryRecord) error) error {
	sub, err := s.conn.Subscribe(channel, func(msg *nats.Msg) {
		codec := CodecForContentType(msg.Header.Get(headerContentType))
		rec, err := codec.Decode(msg.Data)
		if err != nil {
			slog.WarnContext(ctx, "undecodable boundary record", "channel", channel, "error", err)
			return
		}
		if err := handler(ctx, rec); err != nil {
			slog.WarnContext(ctx, "boundary handler failed", "channel", channel, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}

func commandAction(data []byte) string {
	var cmd struct {
		Action string `json:"action"`
	}
	if json.Unmarshal(data, &cmd) != nil {
		return "invalid"
	}
	switch cmd.Action {
	case "add", "remove", "toggle", "set_points", "rename":
		return cmd.Action
	default:
		return "unknown"
	}
}
