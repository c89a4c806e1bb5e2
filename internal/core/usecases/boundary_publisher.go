package usecases

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/core/ports"
	"github.com/samirrijal/navfence/internal/pkg/geospatial"
	"github.com/samirrijal/navfence/internal/pkg/metrics"
)

// ZoneSource is the read side of the registry used by the publisher.
type ZoneSource interface {
	ListActiveValid() iter.Seq[domain.Zone]
}

// PublisherConfig configures a BoundaryPublisher.
type PublisherConfig struct {
	Channel string
	Rate    float64 // cycles per second
	FrameID string
	// Tick is the period of the loop driving Tick. At most one cycle fires
	// per tick, so rates with an interval shorter than Tick are rejected.
	// Zero disables the check.
	Tick time.Duration
}

// PublishReport describes the outcome of one Tick.
type PublishReport struct {
	Fired   bool
	Emitted int
	Failed  int
	Err     error // joined emission errors, nil when nothing failed
}

// BoundaryPublisher periodically emits the active, valid zones to the
// boundary channel. Tick is meant to be driven by a single loop; the
// configuration setters may be called from other goroutines.
//
// The elapsed accumulator is phase-preserving: on firing it subtracts one
// interval instead of resetting, so a 1 Hz publisher fed uneven ticks still
// averages one cycle per second. If the loop stalls for several intervals the
// backlog is dropped rather than published in a burst.
type BoundaryPublisher struct {
	zones    ZoneSource
	sink     ports.BoundarySink
	observer ports.BoundaryObserver
	now      func() time.Time

	tick time.Duration

	mu       sync.Mutex
	channel  string
	frameID  string
	interval time.Duration
	elapsed  time.Duration
	seq      uint64
}

// PublisherOption customizes a BoundaryPublisher.
type PublisherOption func(*BoundaryPublisher)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *BoundaryPublisher) { p.now = now }
}

// WithObserver registers an observer for completed batches.
func WithObserver(o ports.BoundaryObserver) PublisherOption {
	return func(p *BoundaryPublisher) { p.observer = o }
}

// NewBoundaryPublisher creates a publisher. A non-positive rate is rejected.
func NewBoundaryPublisher(zones ZoneSource, sink ports.BoundarySink, cfg PublisherConfig, opts ...PublisherOption) (*BoundaryPublisher, error) {
	interval, err := rateInterval(cfg.Rate, cfg.Tick)
	if err != nil {
		return nil, err
	}
	p := &BoundaryPublisher{
		zones:    zones,
		sink:     sink,
		now:      time.Now,
		tick:     cfg.Tick,
		channel:  cfg.Channel,
		frameID:  cfg.FrameID,
		interval: interval,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func rateInterval(rate float64, tick time.Duration) (time.Duration, error) {
	if !(rate > 0) || math.IsInf(rate, 1) {
		return 0, fmt.Errorf("%w: got %v", domain.ErrInvalidRate, rate)
	}
	interval := time.Duration(float64(time.Second) / rate)
	if interval <= 0 {
		return 0, fmt.Errorf("%w: %v Hz is too fast", domain.ErrInvalidRate, rate)
	}
	if tick > 0 && interval < tick {
		return 0, fmt.Errorf("%w: %v Hz exceeds the %v tick (max %v Hz)",
			domain.ErrInvalidRate, rate, tick, MaxRate(tick))
	}
	return interval, nil
}

// MaxRate is the fastest publish rate a loop ticking every tick can deliver.
func MaxRate(tick time.Duration) float64 {
	return float64(time.Second) / float64(tick)
}

// SetRate changes the publish frequency. The accumulator is kept.
func (p *BoundaryPublisher) SetRate(rate float64) error {
	interval, err := rateInterval(rate, p.tick)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.interval = interval
	p.mu.Unlock()
	return nil
}

// SetChannel changes the channel used from the next cycle on.
func (p *BoundaryPublisher) SetChannel(channel string) {
	p.mu.Lock()
	p.channel = channel
	p.mu.Unlock()
}

// Interval returns the current publish interval.
func (p *BoundaryPublisher) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Channel returns the current channel name.
func (p *BoundaryPublisher) Channel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel
}

// Tick advances the accumulator by delta and publishes when a full interval
// has elapsed. Emission failures are logged and returned in the report; they
// never abort the caller's loop.
func (p *BoundaryPublisher) Tick(ctx context.Context, delta time.Duration) PublishReport {
	p.mu.Lock()
	if delta > 0 {
		p.elapsed += delta
	}
	if p.elapsed < p.interval {
		p.mu.Unlock()
		return PublishReport{}
	}
	p.elapsed -= p.interval
	if p.elapsed >= p.interval {
		p.elapsed %= p.interval
	}
	channel, frameID, interval := p.channel, p.frameID, p.interval
	p.mu.Unlock()

	return p.publish(ctx, channel, frameID, interval)
}

// publish runs one cycle. The whole cycle must finish within one interval so
// a stalled sink cannot hold up the tick loop.
func (p *BoundaryPublisher) publish(ctx context.Context, channel, frameID string, interval time.Duration) PublishReport {
	ctx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()
	ctx, span := otel.Tracer("navfence/publisher").Start(ctx, "boundary.publish")
	defer span.End()

	start := time.Now()
	stamp := p.now()
	report := PublishReport{Fired: true}
	batch := &domain.BoundaryBatch{Channel: channel, Stamp: stamp, Records: []domain.BoundaryRecord{}}
	var errs []error

	for z := range p.zones.ListActiveValid() {
		p.mu.Lock()
		p.seq++
		seq := p.seq
		p.mu.Unlock()

		rec := domain.BoundaryRecord{
			FrameID:  frameID,
			Stamp:    stamp,
			Seq:      seq,
			ZoneName: z.Name,
			Points:   geospatial.ConvertPoints(z.Points),
		}
		if err := p.sink.PublishBoundary(ctx, channel, &rec); err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("zone %q: %w", z.Name, err))
			metrics.BoundaryEmitErrors.WithLabelValues(channel).Inc()
			continue
		}
		report.Emitted++
		batch.Records = append(batch.Records, rec)
		metrics.BoundaryRecordsPublished.WithLabelValues(channel).Inc()
	}

	metrics.PublishCycles.WithLabelValues(channel).Inc()
	metrics.PublishCycleDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("channel", channel),
		attribute.Int("emitted", report.Emitted),
		attribute.Int("failed", report.Failed),
	)

	if len(errs) > 0 {
		report.Err = errors.Join(errs...)
		span.SetStatus(codes.Error, "boundary emission failed")
		slog.WarnContext(ctx, "boundary publish failed",
			"channel", channel,
			"failed", report.Failed,
			"emitted", report.Emitted,
			"error", report.Err,
		)
	}

	if p.observer != nil {
		p.observer.ObserveBatch(ctx, batch)
	}
	return report
}

// Run drives Tick from a wall-clock ticker until ctx is cancelled. Each tick
// passes the real time elapsed since the previous one. every defaults to the
// configured Tick when zero, or to the current interval without one.
func (p *BoundaryPublisher) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = p.tick
	}
	if every <= 0 {
		every = p.Interval()
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			delta := t.Sub(last)
			last = t
			p.Tick(ctx, delta)
		}
	}
}
