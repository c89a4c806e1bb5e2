package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/navfence/internal/adapters/nats"
	"github.com/samirrijal/navfence/internal/pkg/metrics"
)

// wsMessage is sent from client to narrow or widen the relayed zones.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Zone   string `json:"zone"`   // zone name filter ("" = all)
}

// WebSocketHandler returns a handler that relays boundary records from the
// publish channel to dashboard clients as JSON, whatever the wire encoding.
// Clients send {"action":"subscribe","zone":"A"} to receive only zone A;
// with no filters every record is relayed.
func WebSocketHandler(nc *nats.Conn, channel string) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		zones := make(map[string]bool) // name filter; empty relays all

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		wanted := func(zone string) bool {
			mu.Lock()
			defer mu.Unlock()
			return len(zones) == 0 || zones[zone]
		}

		sub, err := nc.Subscribe(channel, func(msg *nats.Msg) {
			codec := natsadapter.CodecForContentType(msg.Header.Get("Content-Type"))
			rec, err := codec.Decode(msg.Data)
			if err != nil || !wanted(rec.ZoneName) {
				return
			}
			_ = writeJSON(rec)
		})
		if err != nil {
			slog.Error("ws subscribe failed", "channel", channel, "error", err)
			return
		}
		defer func() { _ = sub.Unsubscribe() }()

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()
		defer close(done)

		// Read client messages for subscribe/unsubscribe
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "subscribe":
				mu.Lock()
				if m.Zone == "" {
					clear(zones)
				} else {
					zones[m.Zone] = true
				}
				mu.Unlock()
				_ = writeJSON(map[string]string{"status": "subscribed", "zone": m.Zone})

			case "unsubscribe":
				mu.Lock()
				_, exists := zones[m.Zone]
				delete(zones, m.Zone)
				mu.Unlock()
				if exists {
					_ = writeJSON(map[string]string{"status": "unsubscribed", "zone": m.Zone})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + m.Zone})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
