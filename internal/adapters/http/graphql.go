package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the zone service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.Float},
			"y": &graphql.Field{Type: graphql.Float},
			"z": &graphql.Field{Type: graphql.Float},
		},
	})

	pointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"x": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"y": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"z": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	zoneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Zone",
		Fields: graphql.Fields{
			"index":  &graphql.Field{Type: graphql.Int},
			"handle": &graphql.Field{Type: graphql.String},
			"name":   &graphql.Field{Type: graphql.String},
			"active": &graphql.Field{Type: graphql.Boolean},
			"valid":  &graphql.Field{Type: graphql.Boolean},
			"area":   &graphql.Field{Type: graphql.Float},
			"points": &graphql.Field{Type: graphql.NewList(pointType)},
		},
	})

	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundaryRecord",
		Fields: graphql.Fields{
			"frame_id": &graphql.Field{Type: graphql.String},
			"seq":      &graphql.Field{Type: graphql.Float},
			"zone":     &graphql.Field{Type: graphql.String},
			"points":   &graphql.Field{Type: graphql.NewList(pointType)},
		},
	})

	batchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundaryBatch",
		Fields: graphql.Fields{
			"channel": &graphql.Field{Type: graphql.String},
			"stamp": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.BoundaryBatch).Stamp.Format(time.RFC3339Nano), nil
				},
			},
			"records": &graphql.Field{Type: graphql.NewList(recordType)},
		},
	})

	views := func(zones []domain.Zone) []ZoneView {
		out := make([]ZoneView, len(zones))
		for i, z := range zones {
			out[i] = zoneView(i, z)
		}
		return out
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"zones": &graphql.Field{
				Type:        graphql.NewList(zoneType),
				Description: "All zones in insertion order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return views(deps.Zones.List()), nil
				},
			},
			"activeZones": &graphql.Field{
				Type:        graphql.NewList(zoneType),
				Description: "Zones that are active and have at least three points",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var out []ZoneView
					for _, v := range views(deps.Zones.List()) {
						if v.Active && v.Valid {
							out = append(out, v)
						}
					}
					return out, nil
				},
			},
			"zone": &graphql.Field{
				Type:        zoneType,
				Description: "Zone at a position",
				Args: graphql.FieldConfigArgument{
					"index": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					index := p.Args["index"].(int)
					z, err := deps.Zones.At(index)
					if err != nil {
						return nil, err
					}
					return zoneView(index, z), nil
				},
			},
			"breaches": &graphql.Field{
				Type:        graphql.NewList(zoneType),
				Description: "Publishable zones whose ground footprint contains the point",
				Args: graphql.FieldConfigArgument{
					"x": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"y": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"z": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.Vec3{X: p.Args["x"].(float64), Y: p.Args["y"].(float64), Z: p.Args["z"].(float64)}
					var out []ZoneView
					for _, z := range deps.Zones.Breaches(pt) {
						index, err := deps.Zones.Registry().IndexOf(z.Handle)
						if err != nil {
							continue
						}
						out = append(out, zoneView(index, z))
					}
					return out, nil
				},
			},
			"latestBounds": &graphql.Field{
				Type:        batchType,
				Description: "Most recent published batch",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					batch, ok := deps.Zones.LatestBounds(p.Context)
					if !ok {
						return nil, nil
					}
					return batch, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addZone": &graphql.Field{
				Type: zoneType,
				Args: graphql.FieldConfigArgument{
					"name":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"points": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(pointInput))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					h, err := deps.Zones.Add(p.Context, p.Args["name"].(string), pointsArg(p.Args["points"]))
					if err != nil {
						return nil, err
					}
					index, err := deps.Zones.Registry().IndexOf(h)
					if err != nil {
						return nil, err
					}
					z, err := deps.Zones.At(index)
					if err != nil {
						return nil, err
					}
					return zoneView(index, z), nil
				},
			},
			"removeZone": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"index": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Zones.RemoveAt(p.Context, p.Args["index"].(int)); err != nil {
						return false, err
					}
					return true, nil
				},
			},
			"toggleZone": &graphql.Field{
				Type: zoneType,
				Args: graphql.FieldConfigArgument{
					"index": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					index := p.Args["index"].(int)
					if err := deps.Zones.ToggleAt(p.Context, index); err != nil {
						return nil, err
					}
					z, err := deps.Zones.At(index)
					if err != nil {
						return nil, err
					}
					return zoneView(index, z), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func pointsArg(v interface{}) []domain.Vec3 {
	raw, _ := v.([]interface{})
	out := make([]domain.Vec3, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		x, _ := m["x"].(float64)
		y, _ := m["y"].(float64)
		z, _ := m["z"].(float64)
		out = append(out, domain.Vec3{X: x, Y: y, Z: z})
	}
	return out
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
