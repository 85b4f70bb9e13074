// Package osmxml decodes OpenStreetMap XML extracts into attribute graphs.
package osmxml

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/ulikunitz/xz"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

var (
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	bzip2Magic = []byte("BZh")
)

// Decoder reads plain, xz or bzip2 compressed OSM XML. The compression is
// detected from the stream itself.
type Decoder struct{}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeFile decodes the extract at path. The path becomes the graph source.
func (d *Decoder) DecodeFile(path string) (*domain.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return d.Decode(f, path)
}

// Decode reads one OSM document from r.
func (d *Decoder) Decode(r io.Reader, source string) (*domain.Graph, error) {
	r, err := decompress(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	o, err := decodeOSM(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return FromOSM(o, source), nil
}

func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(xzMagic))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(head, xzMagic):
		zr, err := xz.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("xz: %w", err)
		}
		return zr, nil
	case bytes.HasPrefix(head, bzip2Magic):
		return bzip2.NewReader(br), nil
	default:
		return br, nil
	}
}

func decodeOSM(r io.Reader) (*osm.OSM, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no <osm> element: %w", domain.ErrUnsupportedSource)
		}
		if err != nil {
			return nil, xmlError(err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "osm" {
			return nil, fmt.Errorf("root element <%s>: %w", start.Name.Local, domain.ErrUnsupportedSource)
		}
		return decodeChildren(dec)
	}
}

// decodeChildren reads the elements of <osm> one at a time. Nodes and ways
// go through the osm types; bounds are read by hand because osm.Bounds
// cannot tell a missing attribute from zero.
func decodeChildren(dec *xml.Decoder) (*osm.OSM, error) {
	o := &osm.OSM{}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("unterminated <osm>: %w", domain.ErrUnsupportedSource)
		}
		if err != nil {
			return nil, xmlError(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return o, nil
		case xml.StartElement:
			switch t.Name.Local {
			case "bounds":
				b, err := readBounds(t)
				if err != nil {
					return nil, err
				}
				o.Bounds = b
				err = dec.Skip()
				if err != nil {
					return nil, xmlError(err)
				}
			case "node":
				n := &osm.Node{}
				if err := dec.DecodeElement(n, &t); err != nil {
					return nil, xmlError(err)
				}
				o.Nodes = append(o.Nodes, n)
			case "way":
				w := &osm.Way{}
				if err := dec.DecodeElement(w, &t); err != nil {
					return nil, xmlError(err)
				}
				o.Ways = append(o.Ways, w)
			default:
				if err := dec.Skip(); err != nil {
					return nil, xmlError(err)
				}
			}
		}
	}
}

// boundsAttrs maps <bounds> attributes onto the field names used in errors,
// in the order they are reported.
var boundsAttrs = []struct{ attr, field string }{
	{"minlat", "lat_min"},
	{"maxlat", "lat_max"},
	{"minlon", "lon_min"},
	{"maxlon", "lon_max"},
}

func readBounds(start xml.StartElement) (*osm.Bounds, error) {
	values := make(map[string]string, len(start.Attr))
	for _, a := range start.Attr {
		values[a.Name.Local] = a.Value
	}

	var v [4]float64
	for i, ba := range boundsAttrs {
		raw, ok := values[ba.attr]
		if !ok {
			return nil, &domain.MalformedBoundsError{Field: ba.field, Reason: "missing"}
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &domain.MalformedBoundsError{Field: ba.field, Reason: "not a number", Err: err}
		}
		v[i] = f
	}
	return &osm.Bounds{MinLat: v[0], MaxLat: v[1], MinLon: v[2], MaxLon: v[3]}, nil
}

// xmlError marks syntax errors as unsupported input; read errors pass through.
func xmlError(err error) error {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return fmt.Errorf("xml: %w", errors.Join(domain.ErrUnsupportedSource, err))
	}
	return fmt.Errorf("xml: %w", err)
}

// FromOSM converts a decoded OSM document. Tags keep their source order and
// relations are ignored.
func FromOSM(o *osm.OSM, source string) *domain.Graph {
	g := &domain.Graph{
		Source: source,
		Points: make([]domain.Point, 0, len(o.Nodes)),
		Ways:   make([]domain.Way, 0, len(o.Ways)),
	}
	if o.Bounds != nil {
		g.Bounds = &domain.Box{
			LatMin: o.Bounds.MinLat,
			LatMax: o.Bounds.MaxLat,
			LonMin: o.Bounds.MinLon,
			LonMax: o.Bounds.MaxLon,
		}
	}

	for _, n := range o.Nodes {
		g.Points = append(g.Points, domain.Point{ID: int64(n.ID), Lat: n.Lat, Lon: n.Lon})
	}

	for _, w := range o.Ways {
		way := domain.Way{
			ID:   int64(w.ID),
			Refs: make([]int64, 0, len(w.Nodes)),
		}
		for _, wn := range w.Nodes {
			way.Refs = append(way.Refs, int64(wn.ID))
		}
		if len(w.Tags) > 0 {
			way.Tags = make([]domain.Tag, 0, len(w.Tags))
			for _, t := range w.Tags {
				way.Tags = append(way.Tags, domain.Tag{Key: t.Key, Value: t.Value})
			}
		}
		g.Ways = append(g.Ways, way)
	}
	return g
}
