package telemetry

// Span attribute keys.
const (
	AttrRenderID = "osm2svg.render_id"
	AttrSource   = "osm2svg.source"
	AttrStage    = "osm2svg.stage"
	AttrPoints   = "osm2svg.points"
	AttrWays     = "osm2svg.ways"
	AttrLayers   = "osm2svg.layers"
	AttrCacheHit = "osm2svg.cache_hit"
)
