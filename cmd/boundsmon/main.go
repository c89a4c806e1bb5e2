package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/navfence/internal/adapters/nats"
	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/pkg/config"
	"github.com/samirrijal/navfence/internal/pkg/logging"
)

// boundsmon stands in for the navigation stack: it subscribes to the boundary
// channel and logs every record, flagging gaps in the sequence numbers.
func main() {
	cfg, err := config.Load("navfence-boundsmon")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	var (
		lastSeq  atomic.Uint64
		received atomic.Uint64
	)
	err = sub.SubscribeBoundaries(ctx, cfg.Publisher.Channel, func(ctx context.Context, rec *domain.BoundaryRecord) error {
		received.Add(1)
		if prev := lastSeq.Swap(rec.Seq); prev != 0 && rec.Seq != prev+1 {
			slog.WarnContext(ctx, "sequence gap", "expected", prev+1, "got", rec.Seq)
		}
		slog.InfoContext(ctx, "boundary",
			"zone", rec.ZoneName,
			"frame_id", rec.FrameID,
			"seq", rec.Seq,
			"points", len(rec.Points),
			"age", time.Since(rec.Stamp).Round(time.Millisecond).String(),
		)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("monitoring boundary channel", "channel", cfg.Publisher.Channel)
	<-ctx.Done()
	slog.Info("monitor stopped", "received", received.Load())
}
