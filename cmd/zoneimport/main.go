package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/samirrijal/navfence/internal/adapters/postgres"
	"github.com/samirrijal/navfence/internal/adapters/valkey"
	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/core/usecases"
	"github.com/samirrijal/navfence/internal/pkg/config"
)

// zoneimport replaces the persisted zone set with the contents of a seed file
// (yaml, json or toml). Running instances pick it up on restart; the cached
// snapshot is updated too so the next checkpoint does not overwrite it.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: zoneimport <zones.yaml>")
	}

	cfg, err := config.Load("navfence-zoneimport")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zones, err := config.LoadZoneFile(os.Args[1])
	if err != nil {
		log.Fatalf("zones: %v", err)
	}
	for i := range zones {
		if zones[i].Handle.IsZero() {
			zones[i].Handle = domain.NewZoneHandle()
		}
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	if err := postgres.NewZoneRepo(db).ReplaceAll(ctx, zones); err != nil {
		log.Fatalf("import: %v", err)
	}

	publishable := 0
	for _, z := range zones {
		if z.Publishable() {
			publishable++
		}
	}
	log.Printf("imported %d zones (%d publishable)", len(zones), publishable)

	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Printf("valkey unavailable, cached snapshot left as is: %v", err)
		return
	}
	defer cache.Close()

	data, err := json.Marshal(zones)
	if err != nil {
		log.Fatalf("encode snapshot: %v", err)
	}
	if err := cache.Set(ctx, usecases.ZoneSnapshotKey, data, 24*3600); err != nil {
		log.Printf("update cached snapshot: %v", err)
	}
}
