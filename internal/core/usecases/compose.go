package usecases

import (
	"sort"
	"strconv"
	"strings"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// SVG and Inkscape namespaces declared on the document root.
const (
	SVGNamespace      = "http://www.w3.org/2000/svg"
	InkscapeNamespace = "http://www.inkscape.org/namespaces/inkscape"
)

// DefaultStrokeColor is used for types missing from the colour table.
const DefaultStrokeColor = "#000000"

// strokeColors maps a full "key=value" type, or just its key, to a colour.
var strokeColors = map[string]string{
	"highway":               "#8f8f8f",
	"highway=motorway":      "#e892a2",
	"highway=trunk":         "#f9b29c",
	"highway=primary":       "#fcd6a4",
	"highway=secondary":     "#f7fabf",
	"highway=tertiary":      "#c8c8a0",
	"highway=residential":   "#b0b0b0",
	"highway=footway":       "#fa8072",
	"highway=cycleway":      "#0000ff",
	"highway=path":          "#e07a5f",
	"railway":               "#707070",
	"railway=rail":          "#404040",
	"railway=tram":          "#6e6e6e",
	"railway=subway":        "#9b59b6",
	"waterway":              "#3f7fbf",
	"waterway=river":        "#1f5fa8",
	"natural":               "#6b8e23",
	"natural=water":         "#3f7fbf",
	"natural=coastline":     "#1f5fa8",
	"landuse":               "#a8c686",
	"leisure":               "#6fc18e",
	"building":              "#b5a394",
	"boundary":              "#8e44ad",
	"admin_level":           "#8e44ad",
	"aeroway":               "#b8a0cc",
	"aerialway":             "#7a6a9a",
	"power":                 "#c0392b",
	"barrier":               "#5d4037",
	"amenity":               "#d4a373",
	"man_made":              "#7f8c8d",
	"place":                 "#34495e",
	"route":                 "#2980b9",
	"public_transport":      "#16a085",
	domain.UnclassifiedType: "#cccccc",
}

// StrokeColor returns the stroke colour for a feature type: the exact type,
// then its key, then DefaultStrokeColor.
func StrokeColor(typ string) string {
	if c, ok := strokeColors[typ]; ok {
		return c
	}
	if key, _, found := strings.Cut(typ, "="); found {
		if c, ok := strokeColors[key]; ok {
			return c
		}
	}
	return DefaultStrokeColor
}

// LayerID turns a type name into an element id.
func LayerID(typ string) string {
	return strings.ReplaceAll(typ, " ", "_")
}

// GroupLayers groups features by type. Layers come out sorted by name and
// keep the input order of their features. Types whose ids collide, such as
// "a b" and "a_b", get a numeric suffix so every id stays unique.
func GroupLayers(features []domain.Feature) []domain.Layer {
	byType := make(map[string][]domain.Feature)
	for _, f := range features {
		byType[f.Type] = append(byType[f.Type], f)
	}

	names := make([]string, 0, len(byType))
	for name := range byType {
		names = append(names, name)
	}
	sort.Strings(names)

	layers := make([]domain.Layer, 0, len(names))
	used := make(map[string]struct{}, len(names))
	for _, name := range names {
		id := LayerID(name)
		for n := 2; ; n++ {
			if _, taken := used[id]; !taken {
				break
			}
			id = LayerID(name) + "_" + strconv.Itoa(n)
		}
		used[id] = struct{}{}
		layers = append(layers, domain.Layer{
			Name:     name,
			ID:       id,
			Color:    StrokeColor(name),
			Features: byType[name],
		})
	}
	return layers
}

// Compose builds the layered document for features drawn on b's canvas.
func Compose(features []domain.Feature, b domain.GeoBounds) *domain.Document {
	layers := GroupLayers(features)
	w, h := FormatCoord(b.Canvas.Width), FormatCoord(b.Canvas.Height)

	root := &domain.Element{
		Name: "svg",
		Attrs: []domain.Attr{
			{Name: "xmlns", Value: SVGNamespace},
			{Name: "xmlns:inkscape", Value: InkscapeNamespace},
			{Name: "width", Value: w},
			{Name: "height", Value: h},
			{Name: "viewBox", Value: "0 0 " + w + " " + h},
		},
		Children: make([]*domain.Element, 0, len(layers)),
	}

	for _, l := range layers {
		g := &domain.Element{
			Name: "g",
			Attrs: []domain.Attr{
				{Name: "id", Value: l.ID},
				{Name: "inkscape:label", Value: l.Name},
				{Name: "inkscape:groupmode", Value: "layer"},
			},
			Children: make([]*domain.Element, 0, len(l.Features)),
		}
		for _, f := range l.Features {
			g.Children = append(g.Children, &domain.Element{
				Name: "path",
				Attrs: []domain.Attr{
					{Name: "fill", Value: "none"},
					{Name: "stroke", Value: l.Color},
					{Name: "d", Value: f.Path},
				},
			})
		}
		root.Children = append(root.Children, g)
	}

	return &domain.Document{
		Width:  b.Canvas.Width,
		Height: b.Canvas.Height,
		Layers: layers,
		Root:   root,
	}
}
