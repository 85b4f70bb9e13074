package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// RenderRepo implements ports.RenderRepository.
type RenderRepo struct {
	db *DB
}

func NewRenderRepo(db *DB) *RenderRepo {
	return &RenderRepo{db: db}
}

func (r *RenderRepo) Save(ctx context.Context, rec *domain.RenderRecord) error {
	s := rec.Summary
	layers, err := json.Marshal(s.Layers)
	if err != nil {
		return fmt.Errorf("marshal layers: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO renders (
			id, source, output_name,
			lat_min, lat_max, lon_min, lon_max,
			width, height, width_meters, height_meters,
			layers, points, ways, svg, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, rec.ID, s.Source, s.OutputName,
		s.Bounds.LatMin, s.Bounds.LatMax, s.Bounds.LonMin, s.Bounds.LonMax,
		s.Canvas.Width, s.Canvas.Height, s.WidthMeters, s.HeightMeters,
		layers, s.Points, s.Ways, rec.SVG, rec.CreatedAt)
	return err
}

const renderColumns = `
	id, source, output_name,
	lat_min, lat_max, lon_min, lon_max,
	width, height, width_meters, height_meters,
	layers, points, ways, created_at`

func (r *RenderRepo) GetByID(ctx context.Context, id string) (*domain.RenderRecord, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+renderColumns+`, svg
		FROM renders WHERE id = $1
	`, id)

	var rec domain.RenderRecord
	if err := scanRender(row, &rec, &rec.SVG); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("render %s: %w", id, domain.ErrRenderNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *RenderRepo) List(ctx context.Context, limit, offset int) ([]domain.RenderRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+renderColumns+`
		FROM renders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.RenderRecord
	for rows.Next() {
		var rec domain.RenderRecord
		if err := scanRender(rows, &rec); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *RenderRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM renders`).Scan(&n)
	return n, err
}

func scanRender(row pgx.Row, rec *domain.RenderRecord, extra ...any) error {
	var layers []byte
	s := &rec.Summary
	dest := []any{
		&rec.ID, &s.Source, &s.OutputName,
		&s.Bounds.LatMin, &s.Bounds.LatMax, &s.Bounds.LonMin, &s.Bounds.LonMax,
		&s.Canvas.Width, &s.Canvas.Height, &s.WidthMeters, &s.HeightMeters,
		&layers, &s.Points, &s.Ways, &rec.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if len(layers) > 0 {
		if err := json.Unmarshal(layers, &s.Layers); err != nil {
			return fmt.Errorf("unmarshal layers: %w", err)
		}
	}
	return nil
}
