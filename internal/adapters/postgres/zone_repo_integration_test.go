//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/samirrijal/navfence/internal/adapters/postgres"
	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/pkg/config"
)

func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("navfence-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestZoneRepo_ReplaceAllThenList(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewZoneRepo(db)
	ctx := context.Background()

	want := []domain.Zone{
		{Handle: domain.NewZoneHandle(), Name: "B", Active: false, Points: []domain.Vec3{{X: 1}}},
		{Handle: domain.NewZoneHandle(), Name: "A", Active: true, Points: []domain.Vec3{
			{X: -2, Y: 0, Z: -2}, {X: 2, Y: 0, Z: -2}, {X: 2, Y: 0, Z: 2},
		}},
	}
	if err := repo.ReplaceAll(ctx, want); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d zones, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Handle != want[i].Handle || got[i].Name != want[i].Name || got[i].Active != want[i].Active {
			t.Errorf("zone %d: expected %+v, got %+v", i, want[i], got[i])
		}
		if len(got[i].Points) != len(want[i].Points) {
			t.Errorf("zone %d: expected %d points, got %d", i, len(want[i].Points), len(got[i].Points))
		}
	}

	if err := repo.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty set, got %d zones", len(got))
	}
}
