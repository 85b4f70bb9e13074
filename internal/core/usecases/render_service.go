package usecases

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/ports"
	"github.com/samirrijal/osm2svg/internal/pkg/metrics"
	"github.com/samirrijal/osm2svg/internal/pkg/telemetry"
)

// ErrHistoryDisabled is returned by history lookups when no repository is configured.
var ErrHistoryDisabled = errors.New("render history is not configured")

// RenderOptions tunes a RenderService.
type RenderOptions struct {
	CacheTTL time.Duration
	StoreSVG bool
}

// RenderInput is a serialized extract to convert.
type RenderInput struct {
	Source string
	Data   []byte
	Box    *domain.Box // overrides the bounds found in Data
	Name   string      // output name; derived from Source when empty
}

// RenderOutput is a finished render.
type RenderOutput struct {
	Record domain.RenderRecord
	Cached bool
}

// RenderService runs conversions and keeps their history. Repository and
// cache are optional.
type RenderService struct {
	decoder ports.SourceDecoder
	encoder ports.DocumentEncoder
	renders ports.RenderRepository
	cache   ports.CacheService
	opts    RenderOptions
	tracer  trace.Tracer
}

// NewRenderService creates a new RenderService.
func NewRenderService(
	decoder ports.SourceDecoder,
	encoder ports.DocumentEncoder,
	renders ports.RenderRepository,
	cache ports.CacheService,
	opts RenderOptions,
) *RenderService {
	return &RenderService{
		decoder: decoder,
		encoder: encoder,
		renders: renders,
		cache:   cache,
		opts:    opts,
		tracer:  telemetry.Tracer(),
	}
}

type cachedRender struct {
	ID      string               `json:"id"`
	Summary domain.RenderSummary `json:"summary"`
	SVG     []byte               `json:"svg"`
}

// CacheKey identifies a render of data with an optional explicit box under
// the given output name.
func CacheKey(data []byte, box *domain.Box, name string) string {
	sum := blake3.Sum256(data)
	area := "auto"
	if box != nil {
		area = box.String()
	}
	return "render:" + hex.EncodeToString(sum[:]) + ":" + area + ":" + name
}

// outputName is the name a render of in is published under.
func (in RenderInput) outputName() string {
	if in.Name != "" {
		return in.Name
	}
	return OutputName([]string{in.Source})
}

// Render decodes and converts in.Data. Identical input is served from the
// cache when one is configured.
func (s *RenderService) Render(ctx context.Context, in RenderInput) (*RenderOutput, error) {
	ctx, span := s.tracer.Start(ctx, "render",
		trace.WithAttributes(attribute.String(telemetry.AttrSource, in.Source)))
	defer span.End()

	name := in.outputName()
	key := CacheKey(in.Data, in.Box, name)
	if out, ok := s.fromCache(ctx, key); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		metrics.RendersTotal.WithLabelValues("cached").Inc()
		return out, nil
	}

	_, dspan := s.tracer.Start(ctx, "render."+domain.StageDecode)
	done := metrics.ObserveStage(domain.StageDecode)
	g, err := s.decoder.Decode(bytes.NewReader(in.Data), in.Source)
	done()
	if err != nil {
		err = &domain.StageError{Stage: domain.StageDecode, Err: err}
		endSpan(dspan, err)
		return nil, s.fail(span, err)
	}
	dspan.End()

	if in.Box != nil {
		box := *in.Box
		g.Bounds = &box
	}

	out, err := s.renderGraph(ctx, g, name)
	if err != nil {
		return nil, s.fail(span, err)
	}

	if s.cache != nil && s.opts.CacheTTL > 0 {
		data, err := json.Marshal(cachedRender{ID: out.Record.ID, Summary: out.Record.Summary, SVG: out.Record.SVG})
		if err == nil {
			if err := s.cache.Set(ctx, key, data, int(s.opts.CacheTTL.Seconds())); err != nil {
				slog.WarnContext(ctx, "cache render failed", "error", err)
			}
		}
	}
	return out, nil
}

// RenderGraph converts an already decoded graph, e.g. the result of Merge.
func (s *RenderService) RenderGraph(ctx context.Context, g *domain.Graph, name string) (*RenderOutput, error) {
	ctx, span := s.tracer.Start(ctx, "render",
		trace.WithAttributes(attribute.String(telemetry.AttrSource, g.Source)))
	defer span.End()

	out, err := s.renderGraph(ctx, g, name)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return out, nil
}

func (s *RenderService) renderGraph(ctx context.Context, g *domain.Graph, name string) (*RenderOutput, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int(telemetry.AttrPoints, len(g.Points)),
		attribute.Int(telemetry.AttrWays, len(g.Ways)),
	)

	conv, err := Convert(g, s.stageHook(ctx))
	if err != nil {
		return nil, err
	}

	_, sspan := s.tracer.Start(ctx, "render."+domain.StageSerialize)
	done := metrics.ObserveStage(domain.StageSerialize)
	svg, err := s.encoder.Encode(conv.Document)
	done()
	if err != nil {
		err = &domain.StageError{Stage: domain.StageSerialize, Err: err}
		endSpan(sspan, err)
		return nil, err
	}
	sspan.End()

	if name != "" {
		conv.Summary.OutputName = name
	}
	rec := domain.RenderRecord{
		ID:        uuid.NewString(),
		Summary:   conv.Summary,
		SVG:       svg,
		CreatedAt: time.Now().UTC(),
	}
	span.SetAttributes(
		attribute.String(telemetry.AttrRenderID, rec.ID),
		attribute.Int(telemetry.AttrLayers, len(conv.Document.Layers)),
	)
	metrics.RenderFeatures.Observe(float64(len(conv.Features)))
	metrics.RenderLayers.Observe(float64(len(conv.Document.Layers)))
	metrics.RendersTotal.WithLabelValues("ok").Inc()

	slog.InfoContext(ctx, "render complete",
		"render_id", rec.ID,
		"source", g.Source,
		"output", rec.Summary.OutputName,
		"points", rec.Summary.Points,
		"ways", rec.Summary.Ways,
		"layers", len(rec.Summary.Layers),
		"width", strconv.FormatFloat(rec.Summary.Canvas.Width, 'f', 3, 64),
		"height", strconv.FormatFloat(rec.Summary.Canvas.Height, 'f', 3, 64),
	)

	if s.renders != nil {
		stored := rec
		if !s.opts.StoreSVG {
			stored.SVG = nil
		}
		if err := s.renders.Save(ctx, &stored); err != nil {
			slog.WarnContext(ctx, "save render failed", "render_id", rec.ID, "error", err)
		}
	}

	return &RenderOutput{Record: rec}, nil
}

func (s *RenderService) stageHook(ctx context.Context) StageHook {
	return func(stage string) func(error) {
		_, span := s.tracer.Start(ctx, "render."+stage,
			trace.WithAttributes(attribute.String(telemetry.AttrStage, stage)))
		done := metrics.ObserveStage(stage)
		return func(err error) {
			done()
			endSpan(span, err)
		}
	}
}

func (s *RenderService) fromCache(ctx context.Context, key string) (*RenderOutput, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("render").Inc()
		return nil, false
	}
	var c cachedRender
	if err := json.Unmarshal(data, &c); err != nil {
		metrics.CacheMisses.WithLabelValues("render").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("render").Inc()
	return &RenderOutput{
		Record: domain.RenderRecord{ID: c.ID, Summary: c.Summary, SVG: c.SVG},
		Cached: true,
	}, true
}

func (s *RenderService) fail(span trace.Span, err error) error {
	outcome := "error"
	if domain.IsInputError(err) {
		outcome = "input_error"
	}
	metrics.RendersTotal.WithLabelValues(outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Get returns a stored render.
func (s *RenderService) Get(ctx context.Context, id string) (*domain.RenderRecord, error) {
	if s.renders == nil {
		return nil, ErrHistoryDisabled
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("render %q: %w", id, domain.ErrRenderNotFound)
	}
	return s.renders.GetByID(ctx, id)
}

// List returns stored renders newest first together with the total count.
func (s *RenderService) List(ctx context.Context, limit, offset int) ([]domain.RenderRecord, int, error) {
	if s.renders == nil {
		return nil, 0, ErrHistoryDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	recs, err := s.renders.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.renders.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}
