package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// ZoneEntry is one zone in a seed file. Active defaults to true.
type ZoneEntry struct {
	Handle string        `mapstructure:"handle"`
	Name   string        `mapstructure:"name"`
	Active *bool         `mapstructure:"active"`
	Points []domain.Vec3 `mapstructure:"points"`
}

// LoadZoneFile reads a zone seed file. Any format viper understands works
// (yaml, json, toml); the file holds a top-level "zones" list:
//
//	zones:
//	  - name: loading dock
//	    points: [{x: -2, y: 0, z: -2}, {x: 2, y: 0, z: -2}, {x: 2, y: 0, z: 2}]
func LoadZoneFile(path string) ([]domain.Zone, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read zone file %s: %w", path, err)
	}

	var entries []ZoneEntry
	if err := v.UnmarshalKey("zones", &entries); err != nil {
		return nil, fmt.Errorf("decode zone file %s: %w", path, err)
	}

	zones := make([]domain.Zone, 0, len(entries))
	for i, e := range entries {
		if err := domain.CheckPoints(e.Points); err != nil {
			return nil, fmt.Errorf("zone %d (%s): %w", i, e.Name, err)
		}
		z := domain.Zone{Name: e.Name, Points: e.Points, Active: true}
		if e.Active != nil {
			z.Active = *e.Active
		}
		if e.Handle != "" {
			h, err := domain.ParseZoneHandle(e.Handle)
			if err != nil {
				return nil, fmt.Errorf("zone %d handle: %w", i, err)
			}
			z.Handle = h
		}
		zones = append(zones, z)
	}
	return zones, nil
}
