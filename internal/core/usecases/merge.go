package usecases

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// DefaultOutputName is used when source names share no common prefix.
const DefaultOutputName = "merged"

// sourceSuffixes are stripped from source names, longest first.
var sourceSuffixes = []string{".osm.xz", ".osm.bz2", ".osm"}

// MergeResult is the outcome of merging several graphs.
type MergeResult struct {
	Graph      *domain.Graph
	OutputName string

	// Ids seen more than once across the merged sources. Duplicates are
	// kept; the point index later resolves them last-write-wins.
	PointCollisions int
	WayCollisions   int
}

// Merge concatenates graphs into a new graph. The inputs are neither
// mutated nor aliased. When any source carries an explicit box, the merged
// bounds are the union of those boxes and of the point extents of the
// sources without one; when none does, the bounds are nil.
func Merge(graphs []*domain.Graph) (MergeResult, error) {
	if len(graphs) == 0 {
		return MergeResult{}, errors.New("merge: no sources")
	}

	var nPoints, nWays int
	for _, g := range graphs {
		nPoints += len(g.Points)
		nWays += len(g.Ways)
	}

	merged := &domain.Graph{
		Points: make([]domain.Point, 0, nPoints),
		Ways:   make([]domain.Way, 0, nWays),
	}
	sources := make([]string, 0, len(graphs))
	seenPoints := make(map[int64]struct{}, nPoints)
	seenWays := make(map[int64]struct{}, nWays)
	res := MergeResult{Graph: merged}

	var bound *orb.Bound
	union := func(box domain.Box) {
		bd := box.Bound()
		if bound == nil {
			bound = &bd
			return
		}
		u := bound.Union(bd)
		bound = &u
	}
	var unboxed []*domain.Graph
	for _, g := range graphs {
		sources = append(sources, g.Source)
		if g.Bounds != nil {
			union(*g.Bounds)
		} else if len(g.Points) > 0 {
			unboxed = append(unboxed, g)
		}
		for _, p := range g.Points {
			if _, dup := seenPoints[p.ID]; dup {
				res.PointCollisions++
			}
			seenPoints[p.ID] = struct{}{}
			merged.Points = append(merged.Points, p)
		}
		for _, w := range g.Ways {
			if _, dup := seenWays[w.ID]; dup {
				res.WayCollisions++
			}
			seenWays[w.ID] = struct{}{}
			merged.Ways = append(merged.Ways, copyWay(w))
		}
	}

	// Sources without a box still need their points on the canvas. When no
	// source has a box, the bounds stay nil and are inferred later.
	if bound != nil {
		for _, g := range unboxed {
			box, err := InferBox(g.Points)
			if err != nil {
				return MergeResult{}, fmt.Errorf("merge %s: %w", g.Source, err)
			}
			union(box)
		}
		box := domain.BoxFromBound(*bound)
		merged.Bounds = &box
	}
	merged.Source = strings.Join(sources, "+")
	merged.Sources = sources
	res.OutputName = OutputName(sources)
	return res, nil
}

func copyWay(w domain.Way) domain.Way {
	out := domain.Way{ID: w.ID}
	if w.Refs != nil {
		out.Refs = append(make([]int64, 0, len(w.Refs)), w.Refs...)
	}
	if w.Tags != nil {
		out.Tags = append(make([]domain.Tag, 0, len(w.Tags)), w.Tags...)
	}
	return out
}

// OutputName derives a shared output name from source identifiers: the
// longest common prefix of their base names, without extension and trailing
// separators.
func OutputName(ids []string) string {
	if len(ids) == 0 {
		return DefaultOutputName
	}
	prefix := []rune(StripSourceName(ids[0]))
	for _, id := range ids[1:] {
		other := []rune(StripSourceName(id))
		n := 0
		for n < len(prefix) && n < len(other) && prefix[n] == other[n] {
			n++
		}
		prefix = prefix[:n]
	}
	name := strings.TrimRight(string(prefix), "_-. ")
	if name == "" {
		return DefaultOutputName
	}
	return name
}

// StripSourceName drops the directory and a known extract suffix from id.
func StripSourceName(id string) string {
	base := filepath.Base(id)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	lower := strings.ToLower(base)
	for _, suf := range sourceSuffixes {
		if strings.HasSuffix(lower, suf) {
			return base[:len(base)-len(suf)]
		}
	}
	return base
}
