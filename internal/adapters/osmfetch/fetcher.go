// Package osmfetch downloads bounding-box extracts from the OSM API.
package osmfetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmapi"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// Fetcher downloads extracts into a directory and reuses files already there.
type Fetcher struct {
	ds  *osmapi.Datasource
	dir string
}

// New creates a Fetcher talking to baseURL (e.g. https://api.openstreetmap.org/api/0.6).
func New(baseURL, dir string, timeout time.Duration) *Fetcher {
	ds := osmapi.NewDatasource(&http.Client{Timeout: timeout})
	if baseURL != "" {
		ds.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Fetcher{ds: ds, dir: dir}
}

// FileName is the destination file name for an extract of box limited to keys.
func FileName(box domain.Box, keys []string) string {
	coord := func(v float64) string {
		return strconv.FormatFloat(v, 'f', 4, 64)
	}
	name := fmt.Sprintf("bbox_%s_%s_%s_%s",
		coord(box.LatMin), coord(box.LatMax), coord(box.LonMin), coord(box.LonMax))
	if len(keys) > 0 {
		sorted := append([]string(nil), keys...)
		sort.Strings(sorted)
		name += "_" + strings.Join(sorted, "-")
	}
	return name + ".osm"
}

// Fetch downloads box, keeps the ways tagged with any of keys and writes
// the result as OSM XML. An existing destination file is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, box domain.Box, keys []string) (string, error) {
	path := filepath.Join(f.dir, FileName(box, keys))
	if _, err := os.Stat(path); err == nil {
		slog.Debug("extract already downloaded", "path", path)
		return path, nil
	}

	o, err := f.ds.Map(ctx, &osm.Bounds{
		MinLat: box.LatMin,
		MaxLat: box.LatMax,
		MinLon: box.LonMin,
		MaxLon: box.LonMax,
	})
	if err != nil {
		return "", fmt.Errorf("osm api map %s: %w", box, err)
	}
	if o.Bounds == nil {
		o.Bounds = &osm.Bounds{MinLat: box.LatMin, MaxLat: box.LatMax, MinLon: box.LonMin, MaxLon: box.LonMax}
	}

	filtered := Filter(o, keys)
	data, err := xml.MarshalIndent(filtered, "", " ")
	if err != nil {
		return "", fmt.Errorf("marshal extract: %w", err)
	}
	if err := writeAtomic(path, append([]byte(xml.Header), data...)); err != nil {
		return "", err
	}
	slog.Info("extract downloaded",
		"path", path,
		"nodes", len(filtered.Nodes),
		"ways", len(filtered.Ways),
	)
	return path, nil
}

// Filter returns a copy of o holding only the ways tagged with one of keys
// and the nodes they reference. No keys keeps every node and way.
func Filter(o *osm.OSM, keys []string) *osm.OSM {
	out := &osm.OSM{
		Version:   o.Version,
		Generator: o.Generator,
		Bounds:    o.Bounds,
	}
	if len(keys) == 0 {
		out.Nodes = append(out.Nodes, o.Nodes...)
		out.Ways = append(out.Ways, o.Ways...)
		return out
	}

	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	used := make(map[osm.NodeID]struct{})
	for _, w := range o.Ways {
		if !hasKey(w.Tags, wanted) {
			continue
		}
		out.Ways = append(out.Ways, w)
		for _, wn := range w.Nodes {
			used[wn.ID] = struct{}{}
		}
	}
	for _, n := range o.Nodes {
		if _, ok := used[n.ID]; ok {
			out.Nodes = append(out.Nodes, n)
		}
	}
	return out
}

func hasKey(tags osm.Tags, wanted map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := wanted[t.Key]; ok {
			return true
		}
	}
	return false
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".fetch-*.osm")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
