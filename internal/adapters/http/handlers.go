package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
	"github.com/samirrijal/osm2svg/internal/pkg/geospatial"
)

const (
	headerRenderID     = "X-Render-ID"
	headerCanvasWidth  = "X-Canvas-Width"
	headerCanvasHeight = "X-Canvas-Height"
	headerLayerCount   = "X-Layer-Count"
	headerRenderCached = "X-Render-Cached"

	defaultUploadName = "upload.osm"
)

// RenderHandler converts an uploaded extract. The body is OSM XML, plain or
// xz/bzip2 compressed. Query parameters:
//
//	bbox    lat_min,lat_max,lon_min,lon_max; overrides the extract's bounds
//	name    output name
//	source  source name recorded with the render (default upload.osm)
//	format  "svg" (default) or "json" for the summary only
func RenderHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if len(body) == 0 {
			return errBadRequest(c, "request body must contain an OSM extract")
		}

		in := usecases.RenderInput{
			Source: c.Query("source", defaultUploadName),
			Data:   append([]byte(nil), body...),
			Name:   c.Query("name"),
		}
		if raw := c.Query("bbox"); raw != "" {
			box, err := domain.ParseBox(raw)
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			in.Box = &box
		}

		out, err := deps.Renders.Render(c.UserContext(), in)
		if err != nil {
			return serviceError(c, err)
		}

		rec := out.Record
		c.Set(headerRenderID, rec.ID)
		c.Set(headerCanvasWidth, strconv.FormatFloat(rec.Summary.Canvas.Width, 'f', 3, 64))
		c.Set(headerCanvasHeight, strconv.FormatFloat(rec.Summary.Canvas.Height, 'f', 3, 64))
		c.Set(headerLayerCount, strconv.Itoa(len(rec.Summary.Layers)))
		c.Set(headerRenderCached, strconv.FormatBool(out.Cached))

		if c.Query("format") == "json" {
			return c.Status(fiber.StatusCreated).JSON(rec)
		}
		c.Set(fiber.HeaderContentType, "image/svg+xml")
		c.Set(fiber.HeaderContentDisposition, `inline; filename="`+rec.Summary.OutputName+`.svg"`)
		return c.Status(fiber.StatusCreated).Send(rec.SVG)
	}
}

type renderRequestBody struct {
	Box  *boxBody `json:"box"`
	Keys []string `json:"keys"`
	Name string   `json:"name"`
}

// boxBody is a JSON box whose fields can be told apart from zero when absent.
type boxBody struct {
	LatMin *float64 `json:"lat_min"`
	LatMax *float64 `json:"lat_max"`
	LonMin *float64 `json:"lon_min"`
	LonMax *float64 `json:"lon_max"`
}

func (b *boxBody) box() (domain.Box, error) {
	fields := []struct {
		name string
		v    *float64
	}{
		{"lat_min", b.LatMin}, {"lat_max", b.LatMax}, {"lon_min", b.LonMin}, {"lon_max", b.LonMax},
	}
	for _, f := range fields {
		if f.v == nil {
			return domain.Box{}, &domain.MalformedBoundsError{Field: f.name, Reason: "missing"}
		}
	}
	return domain.Box{LatMin: *b.LatMin, LatMax: *b.LatMax, LonMin: *b.LonMin, LonMax: *b.LonMax}, nil
}

// RenderRequestHandler queues a fetch-and-render of an area for the render
// workers and answers 202 with the queued request.
func RenderRequestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Areas == nil {
			return errUnavailable(c, "asynchronous rendering is not configured")
		}

		var body renderRequestBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if body.Box == nil {
			return errBadRequest(c, "box is required")
		}

		box, err := body.Box.box()
		if err != nil {
			return errConversion(c, err)
		}
		req, err := usecases.NewRequest(box, body.Keys, body.Name)
		if err != nil {
			if domain.IsInputError(err) {
				return errConversion(c, err)
			}
			return errBadRequest(c, err.Error())
		}
		if err := deps.Areas.Request(c.UserContext(), req); err != nil {
			LoggerFromCtx(c.UserContext()).Error("queue render request", "error", err)
			return errUnavailable(c, "could not queue render request")
		}
		return c.Status(fiber.StatusAccepted).JSON(req)
	}
}

// ListRendersHandler returns stored renders, newest first.
func ListRendersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		recs, total, err := deps.Renders.List(c.UserContext(), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		if recs == nil {
			recs = []domain.RenderRecord{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: recs, Pagination: pg})
	}
}

// GetRenderHandler returns the summary of a stored render.
func GetRenderHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := deps.Renders.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(rec)
	}
}

// RenderSVGHandler returns the document of a stored render.
func RenderSVGHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := deps.Renders.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		if len(rec.SVG) == 0 {
			return errNotFound(c, "document was not stored for render "+rec.ID)
		}
		c.Set(headerRenderID, rec.ID)
		c.Set(fiber.HeaderContentType, "image/svg+xml")
		return c.Send(rec.SVG)
	}
}

// ProjectionHandler projects a single latitude onto the Mercator axis.
func ProjectionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("lat")
		if raw == "" {
			return errBadRequest(c, "lat query parameter is required")
		}
		lat, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errBadRequest(c, "lat must be a number")
		}
		mer, err := geospatial.ProjectLatitude(lat)
		if err != nil {
			return errConversion(c, &domain.ProjectionDomainError{Lat: lat, Field: "lat", Err: err})
		}
		return c.JSON(fiber.Map{"lat": lat, "mercator": mer})
	}
}

// BoundsHandler validates a bounding box and reports its projected extent,
// canvas size and ground size.
func BoundsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("bbox")
		if raw == "" {
			return errBadRequest(c, "bbox query parameter is required")
		}
		box, err := domain.ParseBox(raw)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		b, err := domain.NewGeoBounds(box)
		if err != nil {
			return errConversion(c, &domain.StageError{Stage: domain.StageBounds, Err: err})
		}
		w, h := b.Extent()
		sw, ne := b.Corners()
		return c.JSON(fiber.Map{
			"bounds":        b,
			"southwest":     sw,
			"northeast":     ne,
			"width_meters":  w,
			"height_meters": h,
		})
	}
}

// LayerStyle is a classifying key with its stroke colour.
type LayerStyle struct {
	Key   string `json:"key"`
	Color string `json:"color"`
}

// LayersHandler lists the classifying keys and the unclassified type with
// their stroke colours.
func LayersHandler() fiber.Handler {
	styles := make([]LayerStyle, 0, len(usecases.ClassifyingKeys())+1)
	for _, k := range usecases.ClassifyingKeys() {
		styles = append(styles, LayerStyle{Key: k, Color: usecases.StrokeColor(k)})
	}
	styles = append(styles, LayerStyle{Key: domain.UnclassifiedType, Color: usecases.StrokeColor(domain.UnclassifiedType)})

	return func(c *fiber.Ctx) error {
		return c.JSON(styles)
	}
}
