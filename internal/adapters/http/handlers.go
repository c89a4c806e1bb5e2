package http

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/pkg/geospatial"
)

// ZoneView is the API representation of a zone.
type ZoneView struct {
	Index  int           `json:"index"`
	Handle string        `json:"handle"`
	Name   string        `json:"name"`
	Active bool          `json:"active"`
	Valid  bool          `json:"valid"`
	Area   float64       `json:"area"`
	Points []domain.Vec3 `json:"points"`
}

func zoneView(index int, z domain.Zone) ZoneView {
	pts := z.Points
	if pts == nil {
		pts = []domain.Vec3{}
	}
	return ZoneView{
		Index:  index,
		Handle: z.Handle.String(),
		Name:   z.Name,
		Active: z.Active,
		Valid:  z.Valid(),
		Area:   geospatial.AreaXZ(z.Points),
		Points: pts,
	}
}

// zoneInput is the body of POST /v1/zones.
type zoneInput struct {
	Name   string        `json:"name"`
	Points []domain.Vec3 `json:"points"`
}

// pointsInput is the body of PUT /v1/zones/:index/points.
type pointsInput struct {
	Points []domain.Vec3 `json:"points"`
}

// renameInput is the body of PATCH /v1/zones/:index.
type renameInput struct {
	Name *string `json:"name"`
}

// rateInput is the body of POST /v1/publisher/rate.
type rateInput struct {
	Rate float64 `json:"rate"`
}

// InfoHandler returns publisher settings and zone presentation attributes.
func InfoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		total, publishable := deps.Zones.Registry().Counts()
		resp := fiber.Map{
			"version":     Version,
			"style":       deps.Zones.Style(),
			"zones":       total,
			"publishable": publishable,
		}
		if deps.Publisher != nil {
			resp["channel"] = deps.Publisher.Channel()
			resp["rate"] = 1 / deps.Publisher.Interval().Seconds()
		}
		return c.JSON(resp)
	}
}

// ListZonesHandler returns every zone in insertion order.
func ListZonesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		zones := deps.Zones.List()

		offset, limit := pageParams(c)

		total := len(zones)
		views := []ZoneView{}
		for i := offset; i < total && i < offset+limit; i++ {
			views = append(views, zoneView(i, zones[i]))
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: views, Pagination: pg})
	}
}

// ActiveZonesHandler returns the zones the publisher emits right now.
func ActiveZonesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		views := []ZoneView{}
		for i, z := range deps.Zones.List() {
			if z.Publishable() {
				views = append(views, zoneView(i, z))
			}
		}
		return c.JSON(views)
	}
}

// CreateZoneHandler adds a zone. Fewer than three points is accepted; the
// zone is stored but not published until it grows.
func CreateZoneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in zoneInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		h, err := deps.Zones.Add(c.UserContext(), in.Name, in.Points)
		if err != nil {
			return errFromDomain(c, err)
		}
		index, err := deps.Zones.Registry().IndexOf(h)
		if err != nil {
			// removed concurrently before we could answer
			return errFromDomain(c, err)
		}
		z, err := deps.Zones.Registry().Get(h)
		if err != nil {
			return errFromDomain(c, err)
		}

		LoggerFromCtx(c.UserContext()).Info("zone added", "handle", h.String(), "index", index, "name", in.Name)
		c.Location("/v1/zones/" + strconv.Itoa(index))
		return c.Status(fiber.StatusCreated).JSON(zoneView(index, z))
	}
}

// GetZoneHandler returns the zone at :index.
func GetZoneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}
		z, err := deps.Zones.At(index)
		if err != nil {
			return errNotFound(c, err.Error())
		}
		return c.JSON(zoneView(index, z))
	}
}

// DeleteZoneHandler removes the zone at :index. Later zones shift down.
func DeleteZoneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}
		if err := deps.Zones.RemoveAt(c.UserContext(), index); err != nil {
			return errFromDomain(c, err)
		}
		LoggerFromCtx(c.UserContext()).Info("zone removed", "index", index)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ToggleZoneHandler flips the active flag of the zone at :index.
func ToggleZoneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}
		if err := deps.Zones.ToggleAt(c.UserContext(), index); err != nil {
			return errFromDomain(c, err)
		}
		return respondZone(c, deps, index)
	}
}

// RenameZoneHandler changes the name of the zone at :index.
func RenameZoneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}
		var in renameInput
		if err := c.BodyParser(&in); err != nil || in.Name == nil {
			return errBadRequest(c, "body must be {\"name\": string}")
		}
		if err := deps.Zones.RenameAt(c.UserContext(), index, *in.Name); err != nil {
			return errFromDomain(c, err)
		}
		return respondZone(c, deps, index)
	}
}

// SetPointsHandler replaces the polygon of the zone at :index.
func SetPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}
		var in pointsInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := deps.Zones.SetPointsAt(c.UserContext(), index, in.Points); err != nil {
			return errFromDomain(c, err)
		}
		return respondZone(c, deps, index)
	}
}

// AppendPointHandler adds one vertex to the zone at :index.
func AppendPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}
		var p domain.Vec3
		if err := c.BodyParser(&p); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := deps.Zones.AppendPointAt(c.UserContext(), index, p); err != nil {
			return errFromDomain(c, err)
		}
		return respondZone(c, deps, index)
	}
}

// RemovePointHandler deletes vertex :point of the zone at :index.
func RemovePointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}
		point, err := c.ParamsInt("point")
		if err != nil {
			return errBadRequest(c, "point must be an integer")
		}
		if err := deps.Zones.RemovePointAt(c.UserContext(), index, point); err != nil {
			return errFromDomain(c, err)
		}
		return respondZone(c, deps, index)
	}
}

// BreachesHandler reports which publishable zones contain the query point.
func BreachesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		breached := deps.Zones.Breaches(p)
		views := make([]ZoneView, 0, len(breached))
		for _, z := range breached {
			index, err := deps.Zones.Registry().IndexOf(z.Handle)
			if err != nil {
				continue
			}
			views = append(views, zoneView(index, z))
		}

		status := "OK"
		if len(views) > 0 {
			status = "VNC_VIOLATION"
		}
		return c.JSON(fiber.Map{
			"status": status,
			"point":  p,
			"zones":  views,
		})
	}
}

// LatestBoundsHandler returns the most recent published batch.
func LatestBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		batch, ok := deps.Zones.LatestBounds(c.UserContext())
		if !ok {
			return errNotFound(c, "no boundaries published yet")
		}
		return c.JSON(batch)
	}
}

// SetRateHandler changes the publish frequency at runtime.
func SetRateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Publisher == nil {
			return errUnavailable(c, "publisher not running")
		}
		var in rateInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := deps.Publisher.SetRate(in.Rate); err != nil {
			return errFromDomain(c, err)
		}
		LoggerFromCtx(c.UserContext()).Info("publish rate changed", "rate", in.Rate)
		return c.JSON(fiber.Map{
			"rate":        in.Rate,
			"interval_ms": deps.Publisher.Interval().Milliseconds(),
		})
	}
}

func respondZone(c *fiber.Ctx, deps *Dependencies, index int) error {
	z, err := deps.Zones.At(index)
	if err != nil {
		return errFromDomain(c, err)
	}
	return c.JSON(zoneView(index, z))
}

func queryPoint(c *fiber.Ctx) (domain.Vec3, error) {
	var p domain.Vec3
	for _, q := range []struct {
		name string
		dst  *float64
	}{{"x", &p.X}, {"y", &p.Y}, {"z", &p.Z}} {
		raw := c.Query(q.name)
		if raw == "" {
			if q.name == "y" {
				continue
			}
			return p, fiber.NewError(fiber.StatusBadRequest, q.name+" is required")
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return p, fiber.NewError(fiber.StatusBadRequest, q.name+" must be a finite number")
		}
		*q.dst = v
	}
	return p, nil
}
