package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
	"github.com/samirrijal/osm2svg/internal/pkg/geospatial"
)

func boxArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"lat_min": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lat_max": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lon_min": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lon_max": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
	}
}

func boxFromArgs(args map[string]interface{}) domain.Box {
	return domain.Box{
		LatMin: args["lat_min"].(float64),
		LatMax: args["lat_max"].(float64),
		LonMin: args["lon_min"].(float64),
		LonMax: args["lon_max"].(float64),
	}
}

// buildSchema creates the GraphQL schema wired to the render services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	boxType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Box",
		Fields: graphql.Fields{
			"lat_min": &graphql.Field{Type: graphql.Float},
			"lat_max": &graphql.Field{Type: graphql.Float},
			"lon_min": &graphql.Field{Type: graphql.Float},
			"lon_max": &graphql.Field{Type: graphql.Float},
		},
	})

	canvasType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Canvas",
		Fields: graphql.Fields{
			"width":  &graphql.Field{Type: graphql.Float},
			"height": &graphql.Field{Type: graphql.Float},
		},
	})

	layerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Layer",
		Fields: graphql.Fields{
			"name":     &graphql.Field{Type: graphql.String},
			"color":    &graphql.Field{Type: graphql.String},
			"features": &graphql.Field{Type: graphql.Int},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RenderSummary",
		Fields: graphql.Fields{
			"source":        &graphql.Field{Type: graphql.String},
			"output_name":   &graphql.Field{Type: graphql.String},
			"bounds":        &graphql.Field{Type: boxType},
			"canvas":        &graphql.Field{Type: canvasType},
			"layers":        &graphql.Field{Type: graphql.NewList(layerType)},
			"points":        &graphql.Field{Type: graphql.Int},
			"ways":          &graphql.Field{Type: graphql.Int},
			"width_meters":  &graphql.Field{Type: graphql.Float},
			"height_meters": &graphql.Field{Type: graphql.Float},
		},
	})

	renderType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Render",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"summary":    &graphql.Field{Type: summaryType},
			"created_at": &graphql.Field{Type: graphql.DateTime},
			"has_svg": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rec, ok := p.Source.(*domain.RenderRecord)
					if !ok {
						if v, isVal := p.Source.(domain.RenderRecord); isVal {
							rec = &v
						} else {
							return false, nil
						}
					}
					return len(rec.SVG) > 0, nil
				},
			},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"lat_min":   &graphql.Field{Type: graphql.Float},
			"lat_max":   &graphql.Field{Type: graphql.Float},
			"lon_min":   &graphql.Field{Type: graphql.Float},
			"lon_max":   &graphql.Field{Type: graphql.Float},
			"lat_range": &graphql.Field{Type: graphql.Float},
			"lon_range": &graphql.Field{Type: graphql.Float},
			"mer_min":   &graphql.Field{Type: graphql.Float},
			"mer_max":   &graphql.Field{Type: graphql.Float},
			"mer_range": &graphql.Field{Type: graphql.Float},
			"canvas":    &graphql.Field{Type: canvasType},
		},
	})

	styleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LayerStyle",
		Fields: graphql.Fields{
			"key":   &graphql.Field{Type: graphql.String},
			"color": &graphql.Field{Type: graphql.String},
		},
	})

	requestType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RenderRequest",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"box":          &graphql.Field{Type: boxType},
			"keys":         &graphql.Field{Type: graphql.NewList(graphql.String)},
			"name":         &graphql.Field{Type: graphql.String},
			"requested_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"renders": &graphql.Field{
				Type:        graphql.NewList(renderType),
				Description: "Stored renders, newest first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					recs, _, err := deps.Renders.List(p.Context, p.Args["limit"].(int), p.Args["offset"].(int))
					return recs, err
				},
			},
			"render": &graphql.Field{
				Type:        renderType,
				Description: "A stored render by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rec, err := deps.Renders.Get(p.Context, p.Args["id"].(string))
					if errors.Is(err, domain.ErrRenderNotFound) {
						return nil, nil
					}
					return rec, err
				},
			},
			"project": &graphql.Field{
				Type:        graphql.Float,
				Description: "Mercator projection of a latitude, in degrees",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return geospatial.ProjectLatitude(p.Args["lat"].(float64))
				},
			},
			"bounds": &graphql.Field{
				Type:        boundsType,
				Description: "Validated bounds with projected extent and canvas",
				Args:        boxArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return domain.NewGeoBounds(boxFromArgs(p.Args))
				},
			},
			"layers": &graphql.Field{
				Type:        graphql.NewList(styleType),
				Description: "Classifying keys and their stroke colours",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					styles := make([]LayerStyle, 0, len(usecases.ClassifyingKeys()))
					for _, k := range usecases.ClassifyingKeys() {
						styles = append(styles, LayerStyle{Key: k, Color: usecases.StrokeColor(k)})
					}
					return styles, nil
				},
			},
		},
	})

	requestArgs := boxArgs()
	requestArgs["keys"] = &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))}
	requestArgs["name"] = &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"requestRender": &graphql.Field{
				Type:        requestType,
				Description: "Queue a fetch-and-render of an area",
				Args:        requestArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Areas == nil {
						return nil, errors.New("asynchronous rendering is not configured")
					}
					var keys []string
					if raw, ok := p.Args["keys"].([]interface{}); ok {
						for _, k := range raw {
							keys = append(keys, k.(string))
						}
					}
					name, _ := p.Args["name"].(string)
					req, err := usecases.NewRequest(boxFromArgs(p.Args), keys, name)
					if err != nil {
						return nil, err
					}
					if err := deps.Areas.Request(p.Context, req); err != nil {
						return nil, err
					}
					return req, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
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
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
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
