package workflows_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/core/usecases"
	"github.com/samirrijal/navfence/internal/workflows"
)

// --- Fakes ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type memRepo struct {
	mu       sync.Mutex
	zones    []domain.Zone
	replaces int
	failErr  error
}

func (r *memRepo) List(ctx context.Context) ([]domain.Zone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zones, nil
}

func (r *memRepo) ReplaceAll(ctx context.Context, zones []domain.Zone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.zones = zones
	r.replaces++
	return nil
}

func snapshotZones() []domain.Zone {
	return []domain.Zone{
		{Handle: domain.NewZoneHandle(), Name: "A", Active: true, Points: []domain.Vec3{{X: -2, Z: -2}, {X: 2, Z: -2}, {X: 2, Z: 2}}},
		{Handle: domain.NewZoneHandle(), Name: "B", Active: false},
	}
}

func runCheckpoint(t *testing.T, acts *workflows.CheckpointActivities) (workflows.CheckpointResult, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(acts)
	env.ExecuteWorkflow(workflows.CheckpointWorkflow)

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		return workflows.CheckpointResult{}, err
	}
	var res workflows.CheckpointResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatalf("result: %v", err)
	}
	return res, nil
}

func TestCheckpointWorkflow_WritesSnapshot(t *testing.T) {
	zones := snapshotZones()
	data, _ := json.Marshal(zones)
	cache := &memCache{data: map[string][]byte{usecases.ZoneSnapshotKey: data}}
	repo := &memRepo{}

	res, err := runCheckpoint(t, &workflows.CheckpointActivities{Cache: cache, Zones: repo})
	if err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if res.Skipped || res.Zones != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if repo.replaces != 1 || len(repo.zones) != 2 || repo.zones[0].Handle != zones[0].Handle {
		t.Errorf("expected snapshot to be stored, got %+v", repo.zones)
	}
	if _, ok := cache.data[workflows.CheckpointKey]; !ok {
		t.Error("expected checkpoint marker in cache")
	}
}

func TestCheckpointWorkflow_SkipsWithoutSnapshot(t *testing.T) {
	repo := &memRepo{}
	res, err := runCheckpoint(t, &workflows.CheckpointActivities{
		Cache: &memCache{data: map[string][]byte{}},
		Zones: repo,
	})
	if err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if !res.Skipped {
		t.Errorf("expected skip, got %+v", res)
	}
	if repo.replaces != 0 {
		t.Error("store must not be written without a snapshot")
	}
}

func TestCheckpointWorkflow_SkipsUnchanged(t *testing.T) {
	zones := snapshotZones()
	data, _ := json.Marshal(zones)
	repo := &memRepo{zones: zones}

	res, err := runCheckpoint(t, &workflows.CheckpointActivities{
		Cache: &memCache{data: map[string][]byte{usecases.ZoneSnapshotKey: data}},
		Zones: repo,
	})
	if err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if !res.Skipped || res.Reason != "unchanged" {
		t.Errorf("expected unchanged skip, got %+v", res)
	}
	if repo.replaces != 0 {
		t.Error("unchanged set must not be rewritten")
	}
}

func TestCheckpointWorkflow_StoreFailure(t *testing.T) {
	data, _ := json.Marshal(snapshotZones())
	cache := &memCache{data: map[string][]byte{usecases.ZoneSnapshotKey: data}}
	repo := &memRepo{failErr: errors.New("connection refused")}

	if _, err := runCheckpoint(t, &workflows.CheckpointActivities{Cache: cache, Zones: repo}); err == nil {
		t.Fatal("expected workflow error")
	}
	if _, ok := cache.data[workflows.CheckpointKey]; ok {
		t.Error("checkpoint must not be marked when the store write failed")
	}
}
