package usecases

import (
	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// StageHook observes pipeline stages. It is called when a stage starts and
// the returned function, if not nil, when it ends.
type StageHook func(stage string) func(err error)

// Conversion is the result of running the pipeline on one graph.
type Conversion struct {
	Bounds   domain.GeoBounds
	Features []domain.Feature
	Document *domain.Document
	Summary  domain.RenderSummary
}

// Convert runs bounds, point, way and layer resolution over g. Any failure
// aborts the run and is returned as a *domain.StageError.
func Convert(g *domain.Graph, hooks ...StageHook) (*Conversion, error) {
	var (
		b        domain.GeoBounds
		idx      domain.PointIndex
		features []domain.Feature
		doc      *domain.Document
	)

	err := runStage(domain.StageBounds, hooks, func() (err error) {
		b, err = ResolveBounds(g)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = runStage(domain.StagePoints, hooks, func() (err error) {
		idx, err = ResolvePoints(g.Points, b)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = runStage(domain.StageWays, hooks, func() (err error) {
		features, err = ResolveWays(g.Ways, idx)
		return err
	})
	if err != nil {
		return nil, err
	}

	_ = runStage(domain.StageCompose, hooks, func() error {
		doc = Compose(features, b)
		return nil
	})

	return &Conversion{
		Bounds:   b,
		Features: features,
		Document: doc,
		Summary:  Summarize(g, b, doc),
	}, nil
}

func runStage(stage string, hooks []StageHook, fn func() error) error {
	ends := make([]func(error), 0, len(hooks))
	for _, h := range hooks {
		if end := h(stage); end != nil {
			ends = append(ends, end)
		}
	}
	err := fn()
	if err != nil {
		err = &domain.StageError{Stage: stage, Err: err}
	}
	for _, end := range ends {
		end(err)
	}
	return err
}

// Summarize describes a conversion of g.
func Summarize(g *domain.Graph, b domain.GeoBounds, doc *domain.Document) domain.RenderSummary {
	stats := make([]domain.LayerStat, 0, len(doc.Layers))
	for _, l := range doc.Layers {
		stats = append(stats, domain.LayerStat{Name: l.Name, Color: l.Color, Features: len(l.Features)})
	}
	wm, hm := b.Extent()
	return domain.RenderSummary{
		Source:       g.Source,
		OutputName:   OutputName(sourceNames(g)),
		Bounds:       b.Box(),
		Canvas:       b.Canvas,
		Layers:       stats,
		Points:       len(g.Points),
		Ways:         len(g.Ways),
		WidthMeters:  wm,
		HeightMeters: hm,
	}
}

func sourceNames(g *domain.Graph) []string {
	if len(g.Sources) > 0 {
		return g.Sources
	}
	return []string{g.Source}
}
