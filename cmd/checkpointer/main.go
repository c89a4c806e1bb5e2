package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/navfence/internal/adapters/postgres"
	"github.com/samirrijal/navfence/internal/adapters/valkey"
	"github.com/samirrijal/navfence/internal/pkg/config"
	"github.com/samirrijal/navfence/internal/pkg/logging"
	"github.com/samirrijal/navfence/internal/workflows"
)

func main() {
	cfg, err := config.Load("navfence-checkpointer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Telemetry.ServiceName)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
		Logger:   slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.CheckpointWorkflow)
	w.RegisterActivity(&workflows.CheckpointActivities{
		Cache: cache,
		Zones: postgres.NewZoneRepo(db),
	})

	// Fixed workflow ID: a second worker finds the cron already running.
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           workflows.WorkflowID,
		TaskQueue:    cfg.Temporal.TaskQueue,
		CronSchedule: cfg.Temporal.Cron,
	}, workflows.CheckpointWorkflow)
	if err != nil {
		slog.Warn("checkpoint cron not started", "error", err)
	} else {
		slog.Info("checkpoint cron scheduled", "workflow_id", run.GetID(), "cron", cfg.Temporal.Cron)
	}

	slog.Info("checkpointer worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
