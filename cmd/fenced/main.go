package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/navfence/internal/adapters/http"
	natsadapter "github.com/samirrijal/navfence/internal/adapters/nats"
	"github.com/samirrijal/navfence/internal/adapters/postgres"
	"github.com/samirrijal/navfence/internal/adapters/valkey"
	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/core/ports"
	"github.com/samirrijal/navfence/internal/core/usecases"
	"github.com/samirrijal/navfence/internal/pkg/config"
	"github.com/samirrijal/navfence/internal/pkg/logging"
	"github.com/samirrijal/navfence/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("navfence-fenced")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database (optional)
	var (
		db   *postgres.DB
		repo ports.ZoneRepository
	)
	if cfg.Database.Enabled {
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewZoneRepo(db)
	}

	// Cache (optional)
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// Boundary channel
	codec, err := natsadapter.NewCodec(cfg.Publisher.Encoding)
	if err != nil {
		log.Fatalf("codec: %v", err)
	}
	sink, err := natsadapter.NewBoundaryPublisher(cfg.NATS.URL, codec, natsadapter.PublisherOptions{
		JetStream: cfg.Publisher.JetStream,
		Channel:   cfg.Publisher.Channel,
	})
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sink.Close()

	// Zones
	registry := usecases.NewZoneRegistry()
	zones := usecases.NewZoneService(registry, repo, cacheSvc, domain.ZoneStyle{
		Height: cfg.Zones.Height,
		Color:  cfg.Zones.Color,
	})
	if err := seedZones(ctx, zones, cfg.Zones.SeedFile); err != nil {
		log.Fatalf("zones: %v", err)
	}

	publisher, err := usecases.NewBoundaryPublisher(registry, sink, usecases.PublisherConfig{
		Channel: cfg.Publisher.Channel,
		Rate:    cfg.Publisher.Rate,
		FrameID: cfg.Publisher.FrameID,
		Tick:    time.Duration(cfg.Publisher.TickMS) * time.Millisecond,
	}, usecases.WithObserver(zones))
	if err != nil {
		log.Fatalf("publisher: %v", err)
	}
	go publisher.Run(ctx, 0)
	slog.Info("boundary publisher started",
		"channel", cfg.Publisher.Channel,
		"rate_hz", cfg.Publisher.Rate,
		"encoding", codec.Name(),
	)

	// Remote zone commands
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()
	if err := sub.ServeZoneCommands(ctx, cfg.Publisher.CommandSubject, zones); err != nil {
		log.Fatalf("zone commands: %v", err)
	}

	// Raw NATS connection for WebSocket relay and readiness
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Drain()
	}

	if db != nil {
		go reportPoolMetrics(ctx, db)
	}

	deps := &http.Dependencies{
		Zones:     zones,
		Publisher: publisher,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "navfence",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, If-None-Match",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	if repo != nil {
		if err := zones.Save(shutdownCtx); err != nil {
			slog.Error("final zone save failed", "error", err)
		} else {
			slog.Info("zones saved", "count", registry.Len())
		}
	}

	slog.Info("server stopped")
}

// seedZones loads the persisted zone set, falling back to the seed file when
// the store is empty or disabled.
func seedZones(ctx context.Context, zones *usecases.ZoneService, seedFile string) error {
	n, err := zones.Load(ctx)
	if err != nil {
		return err
	}
	if n > 0 || seedFile == "" {
		slog.Info("zones loaded", "count", n)
		return nil
	}

	seed, err := config.LoadZoneFile(seedFile)
	if err != nil {
		return err
	}
	if err := zones.Replace(ctx, seed); err != nil {
		return fmt.Errorf("seed file %s: %w", seedFile, err)
	}
	slog.Info("zones seeded from file", "file", seedFile, "count", len(seed))
	return nil
}

func reportPoolMetrics(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			db.ReportPoolMetrics()
		}
	}
}
