package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	handler "github.com/samirrijal/osm2svg/internal/adapters/http"
	"github.com/samirrijal/osm2svg/internal/adapters/osmxml"
	"github.com/samirrijal/osm2svg/internal/adapters/svg"
	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
)

const sampleOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <bounds minlat="55.7" minlon="37.5" maxlat="55.8" maxlon="37.7"/>
  <node id="1" lat="55.75" lon="37.6"/>
  <node id="2" lat="55.76" lon="37.61"/>
  <node id="3" lat="55.71" lon="37.55"/>
  <way id="10">
    <nd ref="1"/><nd ref="2"/>
    <tag k="highway" v="primary"/>
  </way>
  <way id="11">
    <nd ref="2"/><nd ref="3"/>
    <tag k="railway" v="rail"/>
  </way>
</osm>`

const danglingOSM = `<osm version="0.6">
  <bounds minlat="55.7" minlon="37.5" maxlat="55.8" maxlon="37.7"/>
  <node id="1" lat="55.75" lon="37.6"/>
  <way id="10"><nd ref="1"/><nd ref="99"/><tag k="highway" v="service"/></way>
</osm>`

// ---- Mocks ----

type mockRenderRepo struct {
	mu    sync.Mutex
	saved []domain.RenderRecord
}

func (m *mockRenderRepo) Save(ctx context.Context, rec *domain.RenderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append([]domain.RenderRecord{*rec}, m.saved...)
	return nil
}

func (m *mockRenderRepo) GetByID(ctx context.Context, id string) (*domain.RenderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.saved {
		if m.saved[i].ID == id {
			rec := m.saved[i]
			return &rec, nil
		}
	}
	return nil, domain.ErrRenderNotFound
}

func (m *mockRenderRepo) List(ctx context.Context, limit, offset int) ([]domain.RenderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.saved) {
		return nil, nil
	}
	end := min(offset+limit, len(m.saved))
	return append([]domain.RenderRecord(nil), m.saved[offset:end]...), nil
}

func (m *mockRenderRepo) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved), nil
}

type mockPublisher struct {
	requests []*domain.RenderRequest
	err      error
}

func (m *mockPublisher) PublishRenderRequest(ctx context.Context, req *domain.RenderRequest) error {
	if m.err != nil {
		return m.err
	}
	m.requests = append(m.requests, req)
	return nil
}

func (m *mockPublisher) PublishRenderCompleted(ctx context.Context, ev *domain.RenderCompleted) error {
	return nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(repo *mockRenderRepo, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	var renders *usecases.RenderService
	if repo != nil {
		renders = usecases.NewRenderService(osmxml.NewDecoder(), svg.NewEncoder("  "), repo, nil,
			usecases.RenderOptions{StoreSVG: true})
	} else {
		renders = usecases.NewRenderService(osmxml.NewDecoder(), svg.NewEncoder("  "), nil, nil,
			usecases.RenderOptions{})
	}
	d := &handler.Dependencies{Renders: renders}
	for _, o := range opts {
		o(d)
	}
	return d
}

func withAreas(pub *mockPublisher) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		d.Areas = usecases.NewAreaService(nil, d.Renders, pub)
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeAPIError(t *testing.T, body io.Reader) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.NewDecoder(body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

func postRender(t *testing.T, app *fiber.App, target, body string) *httptestResponse {
	t.Helper()
	req := httptest.NewRequest("POST", target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/xml")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return &httptestResponse{status: resp.StatusCode, header: resp.Header.Get, body: readBody(t, resp.Body)}
}

type httptestResponse struct {
	status int
	header func(string) string
	body   []byte
}

// ---- Render ----

func TestRender_SVG(t *testing.T) {
	repo := &mockRenderRepo{}
	app := setupApp(makeDeps(repo))

	resp := postRender(t, app, "/v1/render?name=moscow", sampleOSM)
	if resp.status != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.status, resp.body)
	}
	if ct := resp.header("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("expected image/svg+xml, got %q", ct)
	}
	if _, err := uuid.Parse(resp.header("X-Render-ID")); err != nil {
		t.Errorf("X-Render-ID is not a uuid: %q", resp.header("X-Render-ID"))
	}
	if resp.header("X-Canvas-Width") != "1200.000" {
		t.Errorf("expected width 1200.000, got %q", resp.header("X-Canvas-Width"))
	}
	if resp.header("X-Layer-Count") != "2" {
		t.Errorf("expected 2 layers, got %q", resp.header("X-Layer-Count"))
	}
	if resp.header("X-Render-Cached") != "false" {
		t.Errorf("expected uncached render")
	}

	doc := string(resp.body)
	for _, want := range []string{"<svg", `id="highway=primary"`, `id="railway=rail"`, "inkscape:groupmode"} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}

	if len(repo.saved) != 1 || repo.saved[0].Summary.OutputName != "moscow" {
		t.Errorf("expected one stored render named moscow, got %+v", repo.saved)
	}
}

func TestRender_JSON(t *testing.T) {
	app := setupApp(makeDeps(&mockRenderRepo{}))

	resp := postRender(t, app, "/v1/render?format=json&source=moscow.osm", sampleOSM)
	if resp.status != 201 {
		t.Fatalf("expected 201, got %d", resp.status)
	}
	var rec domain.RenderRecord
	if err := json.Unmarshal(resp.body, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Summary.Source != "moscow.osm" {
		t.Errorf("expected source moscow.osm, got %q", rec.Summary.Source)
	}
	if rec.Summary.Points != 3 || rec.Summary.Ways != 2 {
		t.Errorf("unexpected counts %d/%d", rec.Summary.Points, rec.Summary.Ways)
	}
	if rec.Summary.Canvas.Height >= 1200 {
		t.Errorf("expected a wide canvas, got height %v", rec.Summary.Canvas.Height)
	}
}

func TestRender_EmptyBody(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp := postRender(t, app, "/v1/render", "")
	if resp.status != 400 {
		t.Fatalf("expected 400, got %d", resp.status)
	}
}

func TestRender_BadBBox(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp := postRender(t, app, "/v1/render?bbox=1,2,3", sampleOSM)
	if resp.status != 400 {
		t.Fatalf("expected 400, got %d", resp.status)
	}
}

func TestRender_InputErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		stage  string
	}{
		{"degenerate bbox", "/v1/render?bbox=55.7,55.7,37.5,37.7", sampleOSM, domain.StageBounds},
		{"dangling reference", "/v1/render", danglingOSM, domain.StageWays},
		{"not osm", "/v1/render", `<svg xmlns="http://www.w3.org/2000/svg"/>`, domain.StageDecode},
		{"broken xml", "/v1/render", `<osm><node id="1"`, domain.StageDecode},
		{"bounds without maxlon", "/v1/render", `<osm><bounds minlat="-1" maxlat="1" minlon="-1"/><node id="1" lat="0" lon="0"/></osm>`, domain.StageDecode},
		{"empty bounds", "/v1/render", `<osm><bounds/><node id="1" lat="0" lon="0"/></osm>`, domain.StageDecode},
	}
	app := setupApp(makeDeps(nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.target, strings.NewReader(tt.body))
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != 422 {
				t.Fatalf("expected 422, got %d", resp.StatusCode)
			}
			apiErr := decodeAPIError(t, resp.Body)
			if apiErr.Code != "unprocessable" {
				t.Errorf("expected unprocessable, got %q", apiErr.Code)
			}
			if apiErr.Stage != tt.stage {
				t.Errorf("expected stage %q, got %q", tt.stage, apiErr.Stage)
			}
		})
	}
}

// ---- History ----

func TestListRenders_Pagination(t *testing.T) {
	repo := &mockRenderRepo{}
	app := setupApp(makeDeps(repo))
	for i := 0; i < 3; i++ {
		if resp := postRender(t, app, "/v1/render?source=s"+string(rune('a'+i))+".osm", sampleOSM); resp.status != 201 {
			t.Fatalf("render %d: status %d", i, resp.status)
		}
	}

	req := httptest.NewRequest("GET", "/v1/renders?offset=1&limit=1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.RenderRecord `json:"data"`
		Pagination handler.Pagination    `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 3 || len(result.Data) != 1 {
		t.Fatalf("expected 1 of 3, got %d of %d", len(result.Data), result.Pagination.Total)
	}
	if result.Data[0].Summary.Source != "sb.osm" {
		t.Errorf("expected second newest render, got %q", result.Data[0].Summary.Source)
	}

	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("Link header missing %s: %s", rel, link)
		}
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected no-cache on listing, got %q", cc)
	}
}

func TestListRenders_NoHistory(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/renders", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestGetRender(t *testing.T) {
	repo := &mockRenderRepo{}
	app := setupApp(makeDeps(repo))
	created := postRender(t, app, "/v1/render", sampleOSM)
	id := created.header("X-Render-ID")

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/renders/"+id, nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var rec domain.RenderRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != id {
		t.Errorf("expected %s, got %s", id, rec.ID)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Errorf("expected immutable caching, got %q", cc)
	}

	svgResp, _ := app.Test(httptest.NewRequest("GET", "/v1/renders/"+id+"/svg", nil), -1)
	if svgResp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", svgResp.StatusCode)
	}
	if body := readBody(t, svgResp.Body); string(body) != string(created.body) {
		t.Error("stored document differs from the rendered one")
	}
}

func TestGetRender_NotFound(t *testing.T) {
	app := setupApp(makeDeps(&mockRenderRepo{}))

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/renders/"+id, nil), -1)
		if resp.StatusCode != 404 {
			t.Errorf("%s: expected 404, got %d", id, resp.StatusCode)
		}
	}
}

func TestRenderSVG_NotStored(t *testing.T) {
	repo := &mockRenderRepo{}
	deps := makeDeps(repo)
	deps.Renders = usecases.NewRenderService(osmxml.NewDecoder(), svg.NewEncoder(""), repo, nil,
		usecases.RenderOptions{StoreSVG: false})
	app := setupApp(deps)

	id := postRender(t, app, "/v1/render", sampleOSM).header("X-Render-ID")
	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/renders/"+id+"/svg", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Render requests ----

func TestRenderRequest_Queued(t *testing.T) {
	pub := &mockPublisher{}
	app := setupApp(makeDeps(nil, withAreas(pub)))

	body := `{"box":{"lat_min":55.7,"lat_max":55.8,"lon_min":37.5,"lon_max":37.7},"keys":["highway"],"name":"moscow"}`
	req := httptest.NewRequest("POST", "/v1/render-requests", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var queued domain.RenderRequest
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		t.Fatal(err)
	}
	if len(pub.requests) != 1 || pub.requests[0].ID != queued.ID {
		t.Fatalf("expected the queued request to be published, got %+v", pub.requests)
	}
	if queued.Name != "moscow" || queued.Box.LatMax != 55.8 {
		t.Errorf("unexpected request %+v", queued)
	}
}

func TestRenderRequest_Errors(t *testing.T) {
	tests := []struct {
		name   string
		deps   *handler.Dependencies
		body   string
		status int
	}{
		{"not configured", makeDeps(nil), `{"box":{"lat_min":1,"lat_max":2,"lon_min":1,"lon_max":2}}`, 503},
		{"missing box", makeDeps(nil, withAreas(&mockPublisher{})), `{"keys":["highway"]}`, 400},
		{"unknown key", makeDeps(nil, withAreas(&mockPublisher{})), `{"box":{"lat_min":1,"lat_max":2,"lon_min":1,"lon_max":2},"keys":["colour"]}`, 400},
		{"degenerate box", makeDeps(nil, withAreas(&mockPublisher{})), `{"box":{"lat_min":1,"lat_max":1,"lon_min":1,"lon_max":2}}`, 422},
		{"box without lon_max", makeDeps(nil, withAreas(&mockPublisher{})), `{"box":{"lat_min":-1,"lat_max":1,"lon_min":-1}}`, 422},
		{"empty box", makeDeps(nil, withAreas(&mockPublisher{})), `{"box":{}}`, 422},
		{"broker down", makeDeps(nil, withAreas(&mockPublisher{err: errors.New("nats: no responders")})), `{"box":{"lat_min":1,"lat_max":2,"lon_min":1,"lon_max":2}}`, 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/render-requests", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, _ := setupApp(tt.deps).Test(req, -1)
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestRenderRequest_MissingBoxFieldIsNamed(t *testing.T) {
	pub := &mockPublisher{}
	app := setupApp(makeDeps(nil, withAreas(pub)))

	body := `{"box":{"lat_min":-1,"lat_max":1,"lon_min":-1}}`
	req := httptest.NewRequest("POST", "/v1/render-requests", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	apiErr := decodeAPIError(t, resp.Body)
	if !strings.Contains(apiErr.Message, "lon_max") {
		t.Errorf("expected the missing field to be named, got %q", apiErr.Message)
	}
	if len(pub.requests) != 0 {
		t.Errorf("nothing should be queued, got %d requests", len(pub.requests))
	}
}

// ---- Geo helpers ----

func TestProjection(t *testing.T) {
	app := setupApp(makeDeps(nil))

	tests := []struct {
		query  string
		status int
	}{
		{"?lat=0", 200},
		{"?lat=55.75", 200},
		{"", 400},
		{"?lat=north", 400},
		{"?lat=90", 422},
		{"?lat=-91", 422},
	}
	for _, tt := range tests {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/projection"+tt.query, nil), -1)
		if resp.StatusCode != tt.status {
			t.Errorf("%q: expected %d, got %d", tt.query, tt.status, resp.StatusCode)
		}
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/projection?lat=0", nil), -1)
	var body struct {
		Mercator float64 `json:"mercator"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if math.Abs(body.Mercator) > 1e-12 {
		t.Errorf("expected equator to project to 0, got %v", body.Mercator)
	}
}

func TestBounds(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/bounds?bbox=55.7,55.8,37.5,37.7", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Bounds      domain.GeoBounds `json:"bounds"`
		SouthWest   domain.GeoPoint  `json:"southwest"`
		NorthEast   domain.GeoPoint  `json:"northeast"`
		WidthMeters float64          `json:"width_meters"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Bounds.Canvas.Width != 1200 {
		t.Errorf("expected width 1200, got %v", body.Bounds.Canvas.Width)
	}
	if body.SouthWest != (domain.GeoPoint{Lat: 55.7, Lon: 37.5}) || body.NorthEast != (domain.GeoPoint{Lat: 55.8, Lon: 37.7}) {
		t.Errorf("unexpected corners %+v %+v", body.SouthWest, body.NorthEast)
	}
	if body.WidthMeters < 12000 || body.WidthMeters > 13000 {
		t.Errorf("expected roughly 12.5 km, got %v", body.WidthMeters)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/bounds?bbox=55.8,55.8,37.5,37.7", nil), -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if apiErr := decodeAPIError(t, resp.Body); apiErr.Stage != domain.StageBounds {
		t.Errorf("expected bounds stage, got %q", apiErr.Stage)
	}
}

func TestLayers_ETag(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/layers", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var styles []handler.LayerStyle
	if err := json.NewDecoder(resp.Body).Decode(&styles); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, s := range styles {
		if s.Key == "highway" && s.Color == usecases.StrokeColor("highway") {
			found = true
		}
	}
	if !found {
		t.Error("highway style missing")
	}

	etag := resp.Header.Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak etag, got %q", etag)
	}
	req := httptest.NewRequest("GET", "/v1/layers", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_Queries(t *testing.T) {
	repo := &mockRenderRepo{}
	app := setupApp(makeDeps(repo))
	id := postRender(t, app, "/v1/render", sampleOSM).header("X-Render-ID")

	query := `{"query":"{ project(lat: 0) bounds(lat_min: 55.7, lat_max: 55.8, lon_min: 37.5, lon_max: 37.7) { canvas { width } } render(id: \"` + id + `\") { id has_svg summary { layers { name } } } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(query))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Project float64 `json:"project"`
			Bounds  struct {
				Canvas struct {
					Width float64 `json:"width"`
				} `json:"canvas"`
			} `json:"bounds"`
			Render struct {
				ID      string `json:"id"`
				HasSVG  bool   `json:"has_svg"`
				Summary struct {
					Layers []struct {
						Name string `json:"name"`
					} `json:"layers"`
				} `json:"summary"`
			} `json:"render"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Data.Bounds.Canvas.Width != 1200 {
		t.Errorf("expected width 1200, got %v", result.Data.Bounds.Canvas.Width)
	}
	if result.Data.Render.ID != id || !result.Data.Render.HasSVG {
		t.Errorf("unexpected render %+v", result.Data.Render)
	}
	if len(result.Data.Render.Summary.Layers) != 2 {
		t.Errorf("expected 2 layers, got %d", len(result.Data.Render.Summary.Layers))
	}
}

func TestGraphQL_ProjectionError(t *testing.T) {
	app := setupApp(makeDeps(nil))

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"{ project(lat: 90) }"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Errors) == 0 {
		t.Fatal("expected a projection error")
	}
}

func TestGraphQL_BadBody(t *testing.T) {
	app := setupApp(makeDeps(nil))

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- System ----

func TestHealthAndReady(t *testing.T) {
	app := setupApp(makeDeps(nil, func(d *handler.Dependencies) { d.Version = "1.2.3" }))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	var health map[string]string
	json.NewDecoder(resp.Body).Decode(&health)
	if health["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", health["version"])
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 without backends, got %d", resp.StatusCode)
	}
	var ready struct {
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&ready)
	if ready.Checks["database"] != "not configured" {
		t.Errorf("unexpected database check %q", ready.Checks["database"])
	}
}

func TestDocs(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(readBody(t, resp.Body)), "openapi: 3") {
		t.Error("expected the OpenAPI document")
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws/renders", nil), -1)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}
