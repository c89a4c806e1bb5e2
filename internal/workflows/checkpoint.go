package workflows

import (
	"slices"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// WorkflowID is the fixed ID of the cron checkpoint workflow, so starting the
// worker twice does not schedule two crons.
const WorkflowID = "navfence-zone-checkpoint"

// SnapshotResult is returned by LoadSnapshot.
type SnapshotResult struct {
	Zones []domain.Zone
	Found bool
}

// CheckpointResult summarises one checkpoint run.
type CheckpointResult struct {
	Zones   int
	Skipped bool
	Reason  string
}

// CheckpointWorkflow copies the cached zone snapshot into the persistent
// store. It skips the write when no snapshot is cached or the store already
// holds the same set.
func CheckpointWorkflow(ctx workflow.Context) (CheckpointResult, error) {
	logger := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var snap SnapshotResult
	if err := workflow.ExecuteActivity(ctx, "LoadSnapshot").Get(ctx, &snap); err != nil {
		return CheckpointResult{}, err
	}
	if !snap.Found {
		return CheckpointResult{Skipped: true, Reason: "no snapshot cached"}, nil
	}

	var stored []domain.Zone
	if err := workflow.ExecuteActivity(ctx, "LoadStored").Get(ctx, &stored); err != nil {
		return CheckpointResult{}, err
	}
	if sameZones(stored, snap.Zones) {
		return CheckpointResult{Zones: len(stored), Skipped: true, Reason: "unchanged"}, nil
	}

	if err := workflow.ExecuteActivity(ctx, "SaveZones", snap.Zones).Get(ctx, nil); err != nil {
		return CheckpointResult{}, err
	}

	// Best effort; the zones are already stored.
	if err := workflow.ExecuteActivity(ctx, "MarkCheckpoint", workflow.Now(ctx), len(snap.Zones)).Get(ctx, nil); err != nil {
		logger.Warn("mark checkpoint failed", "error", err)
	}

	logger.Info("zone checkpoint written", "zones", len(snap.Zones))
	return CheckpointResult{Zones: len(snap.Zones)}, nil
}

func sameZones(a, b []domain.Zone) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Handle != b[i].Handle || a[i].Name != b[i].Name || a[i].Active != b[i].Active {
			return false
		}
		if !slices.Equal(a[i].Points, b[i].Points) {
			return false
		}
	}
	return true
}
