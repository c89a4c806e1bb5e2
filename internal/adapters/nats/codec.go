package natsadapter

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// Codec frames boundary records for the wire.
type Codec interface {
	Name() string
	ContentType() string
	Encode(rec *domain.BoundaryRecord) ([]byte, error)
	Decode(data []byte) (*domain.BoundaryRecord, error)
}

// NewCodec returns the codec registered under name ("json" or "proto").
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "proto":
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown boundary encoding %q", name)
	}
}

// CodecForContentType picks a codec from a message header value, defaulting
// to JSON for messages published without one.
func CodecForContentType(ct string) Codec {
	if ct == (ProtoCodec{}).ContentType() {
		return ProtoCodec{}
	}
	return JSONCodec{}
}

// JSONCodec encodes records as JSON objects.
type JSONCodec struct{}

func (JSONCodec) Name() string        { return "json" }
func (JSONCodec) ContentType() string { return "application/json" }

func (JSONCodec) Encode(rec *domain.BoundaryRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func (JSONCodec) Decode(data []byte) (*domain.BoundaryRecord, error) {
	var rec domain.BoundaryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode boundary json: %w", err)
	}
	return &rec, nil
}

// ProtoCodec encodes records as a protobuf google.protobuf.Struct, which
// bridges to ROS-style consumers without a generated schema. The stamp travels
// as an RFC 3339 string; seq travels as a double.
type ProtoCodec struct{}

func (ProtoCodec) Name() string        { return "proto" }
func (ProtoCodec) ContentType() string { return "application/x-protobuf; messageType=google.protobuf.Struct" }

func (ProtoCodec) Encode(rec *domain.BoundaryRecord) ([]byte, error) {
	points := make([]interface{}, len(rec.Points))
	for i, p := range rec.Points {
		points[i] = map[string]interface{}{"x": p.X, "y": p.Y, "z": p.Z}
	}
	s, err := structpb.NewStruct(map[string]interface{}{
		"frame_id": rec.FrameID,
		"stamp":    rec.Stamp.UTC().Format(time.RFC3339Nano),
		"seq":      float64(rec.Seq),
		"zone":     rec.ZoneName,
		"points":   points,
	})
	if err != nil {
		return nil, fmt.Errorf("build boundary struct: %w", err)
	}
	return proto.Marshal(s)
}

func (ProtoCodec) Decode(data []byte) (*domain.BoundaryRecord, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode boundary proto: %w", err)
	}
	f := s.GetFields()

	rec := &domain.BoundaryRecord{
		FrameID:  f["frame_id"].GetStringValue(),
		Seq:      uint64(f["seq"].GetNumberValue()),
		ZoneName: f["zone"].GetStringValue(),
	}
	if ts := f["stamp"].GetStringValue(); ts != "" {
		stamp, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("decode boundary stamp: %w", err)
		}
		rec.Stamp = stamp
	}
	for _, v := range f["points"].GetListValue().GetValues() {
		pf := v.GetStructValue().GetFields()
		rec.Points = append(rec.Points, domain.Vec3{
			X: pf["x"].GetNumberValue(),
			Y: pf["y"].GetNumberValue(),
			Z: pf["z"].GetNumberValue(),
		})
	}
	return rec, nil
}
