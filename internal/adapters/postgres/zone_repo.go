package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// ZoneRepo implements ports.ZoneRepository with pgx.
type ZoneRepo struct {
	db *DB
}

// NewZoneRepo creates a new ZoneRepo.
func NewZoneRepo(db *DB) *ZoneRepo {
	return &ZoneRepo{db: db}
}

// List returns every stored zone in registry order.
func (r *ZoneRepo) List(ctx context.Context) ([]domain.Zone, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT handle::text, name, active, points
		FROM geofence_zones
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		var (
			z      domain.Zone
			handle string
			points []byte
		)
		if err := rows.Scan(&handle, &z.Name, &z.Active, &points); err != nil {
			return nil, err
		}
		if z.Handle, err = domain.ParseZoneHandle(handle); err != nil {
			return nil, fmt.Errorf("zone handle %q: %w", handle, err)
		}
		if err := json.Unmarshal(points, &z.Points); err != nil {
			return nil, fmt.Errorf("zone %s points: %w", handle, err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// ReplaceAll swaps the stored set for zones inside one transaction, so a
// reader never sees a half-written set.
func (r *ZoneRepo) ReplaceAll(ctx context.Context, zones []domain.Zone) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM geofence_zones`); err != nil {
		return fmt.Errorf("clear zones: %w", err)
	}

	batch := &pgx.Batch{}
	for i, z := range zones {
		points, err := json.Marshal(z.Points)
		if err != nil {
			return fmt.Errorf("zone %s points: %w", z.Handle, err)
		}
		if z.Handle.IsZero() {
			z.Handle = domain.NewZoneHandle()
		}
		batch.Queue(`
			INSERT INTO geofence_zones (position, handle, name, active, points, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`, i, z.Handle.String(), z.Name, z.Active, points)
	}
	br := tx.SendBatch(ctx, batch)
	for range zones {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	return tx.Commit(ctx)
}
