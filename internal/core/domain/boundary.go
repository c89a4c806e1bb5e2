package domain

import "time"

// BoundaryRecord is one published message describing a single zone's polygon
// in the consumer frame.
type BoundaryRecord struct {
	FrameID  string    `json:"frame_id"`
	Stamp    time.Time `json:"stamp"`
	Seq      uint64    `json:"seq"`
	ZoneName string    `json:"zone"`
	Points   []Vec3    `json:"points"`
}

// BoundaryBatch is everything emitted by one publish cycle.
type BoundaryBatch struct {
	Channel string           `json:"channel"`
	Stamp   time.Time        `json:"stamp"`
	Records []BoundaryRecord `json:"records"`
}
