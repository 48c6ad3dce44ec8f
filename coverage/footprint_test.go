package coverage

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/leosim/core"
	"github.com/signalsfoundry/leosim/model"
)

func testFootprintShell() model.ConstellationParams {
	return model.ConstellationParams{
		SatelliteCount:      24,
		OrbitalPlanes:       3,
		InclinationDeg:      53,
		AltitudeKm:          550,
		PlanePhaseOffsetRad: 0.5,
	}
}

func TestFootprintRadiusMatchesHorizon(t *testing.T) {
	got := FootprintRadiusRad(550, 0)
	want := math.Acos(core.EarthRadiusKm / (core.EarthRadiusKm + 550))
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("horizon radius = %v, want %v", got, want)
	}
}

func TestFootprintRadiusShrinksWithMask(t *testing.T) {
	open := FootprintRadiusRad(550, 0)
	masked := FootprintRadiusRad(550, 10)
	if masked >= open {
		t.Fatalf("radius with 10 deg mask %v not below horizon radius %v", masked, open)
	}
	if z := FootprintRadiusRad(550, 90); math.Abs(z) > 1e-9 {
		t.Fatalf("radius at 90 deg mask = %v, want 0", z)
	}
}

func TestFootprintRingGeometry(t *testing.T) {
	const segments = 64
	radius := FootprintRadiusRad(550, 10)
	ring := FootprintRing(37.5, -122.2, radius, segments)

	if len(ring) != segments+1 {
		t.Fatalf("ring has %d points, want %d", len(ring), segments+1)
	}
	if ring[0] != ring[len(ring)-1] {
		t.Fatalf("ring not closed: %v vs %v", ring[0], ring[len(ring)-1])
	}

	center := core.UnitVectorFromLatLon(37.5, -122.2)
	wantDot := math.Cos(radius)
	for i, p := range ring[:segments] {
		u := core.UnitVectorFromLatLon(p[1], p[0])
		if d := u.Dot(center); math.Abs(d-wantDot) > 1e-9 {
			t.Fatalf("vertex %d at angular distance cos %v, want %v", i, d, wantDot)
		}
	}
}

func TestFootprintRingMinimumSegments(t *testing.T) {
	ring := FootprintRing(0, 0, 0.1, 3)
	if len(ring) != 9 {
		t.Fatalf("ring from degenerate segment count has %d points, want 9", len(ring))
	}
}

func TestFootprintAreaMatchesCap(t *testing.T) {
	radius := FootprintRadiusRad(550, 10)
	ring := FootprintRing(0, 0, radius, 64)

	got := FootprintAreaKm2(ring)
	want := CapAreaKm2(radius)
	if math.Abs(got-want)/want > 0.02 {
		t.Fatalf("polygon area %v differs from cap area %v by more than 2%%", got, want)
	}
}

func TestFootprintAreaAcrossAntimeridian(t *testing.T) {
	radius := FootprintRadiusRad(550, 10)
	at0 := FootprintAreaKm2(FootprintRing(0, 0, radius, 64))
	at179 := FootprintAreaKm2(FootprintRing(0, 179.5, radius, 64))
	if math.Abs(at0-at179)/at0 > 1e-9 {
		t.Fatalf("area changed across the antimeridian: %v vs %v", at0, at179)
	}
}

func TestConstellationFootprints(t *testing.T) {
	c := testFootprintShell()
	fc, err := ConstellationFootprints(c, 10, 32, 0)
	if err != nil {
		t.Fatalf("ConstellationFootprints: %v", err)
	}
	if len(fc.Features) != c.SatelliteCount {
		t.Fatalf("got %d features, want %d", len(fc.Features), c.SatelliteCount)
	}

	for i, f := range fc.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok {
			t.Fatalf("feature %d geometry is %T, want orb.Polygon", i, f.Geometry)
		}
		if len(poly) != 1 || len(poly[0]) != 33 {
			t.Fatalf("feature %d has unexpected ring shape", i)
		}
		if idx, ok := f.Properties["satellite_index"].(int); !ok || idx != i {
			t.Fatalf("feature %d satellite_index = %v", i, f.Properties["satellite_index"])
		}
		area, ok := f.Properties["area_km2"].(float64)
		if !ok || area <= 0 {
			t.Fatalf("feature %d area_km2 = %v", i, f.Properties["area_km2"])
		}
	}

	raw, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("marshal collection: %v", err)
	}
	if !strings.Contains(string(raw), `"FeatureCollection"`) {
		t.Fatalf("marshal did not produce a GeoJSON collection: %s", raw[:80])
	}
}

func TestConstellationFootprintsRejectsInvalid(t *testing.T) {
	bad := testFootprintShell()
	bad.OrbitalPlanes = 0
	if _, err := ConstellationFootprints(bad, 10, 32, 0); !errors.Is(err, model.ErrInvalidConstellation) {
		t.Fatalf("bad constellation error = %v", err)
	}
	if _, err := ConstellationFootprints(testFootprintShell(), 95, 32, 0); !errors.Is(err, model.ErrInvalidGroundStation) {
		t.Fatalf("bad elevation error = %v", err)
	}
}

func TestSummarize(t *testing.T) {
	c := testFootprintShell()
	fc, err := ConstellationFootprints(c, 10, 64, 0)
	if err != nil {
		t.Fatalf("ConstellationFootprints: %v", err)
	}

	s := Summarize(c, 10, fc)
	if s.SatelliteCount != c.SatelliteCount {
		t.Fatalf("SatelliteCount = %d, want %d", s.SatelliteCount, c.SatelliteCount)
	}
	radius := FootprintRadiusRad(c.AltitudeKm, 10)
	if math.Abs(s.CapAreaKm2-CapAreaKm2(radius)) > 1e-9 {
		t.Fatalf("CapAreaKm2 = %v", s.CapAreaKm2)
	}
	if math.Abs(s.SwathWidthKm-2*radius*core.EarthRadiusKm) > 1e-9 {
		t.Fatalf("SwathWidthKm = %v", s.SwathWidthKm)
	}

	wantTotal := float64(c.SatelliteCount) * CapAreaKm2(radius)
	if math.Abs(s.TotalFootprintAreaKm2-wantTotal)/wantTotal > 0.02 {
		t.Fatalf("TotalFootprintAreaKm2 = %v, want about %v", s.TotalFootprintAreaKm2, wantTotal)
	}

	earth := 4 * math.Pi * core.EarthRadiusKm * core.EarthRadiusKm
	if math.Abs(s.EarthSurfaceShareDrawn-s.TotalFootprintAreaKm2/earth) > 1e-12 {
		t.Fatalf("EarthSurfaceShareDrawn inconsistent with total area")
	}
}

func TestCapAreaAndSwathLimits(t *testing.T) {
	if CapAreaKm2(0) != 0 || SwathWidthKm(0) != 0 {
		t.Fatalf("zero radius should give zero area and width")
	}
	hemisphere := 2 * math.Pi * core.EarthRadiusKm * core.EarthRadiusKm
	if got := CapAreaKm2(math.Pi / 2); math.Abs(got-hemisphere) > 1e-6 {
		t.Fatalf("quarter-turn cap = %v, want hemisphere %v", got, hemisphere)
	}
}

func equatorTrack(spanDeg, stepDeg float64) []core.TrackPoint {
	var track []core.TrackPoint
	for lon := 0.0; lon <= spanDeg; lon += stepDeg {
		track = append(track, core.TrackPoint{LatDeg: 0, LonDeg: lon})
	}
	return track
}

func TestSwathPolygonsEquatorialBand(t *testing.T) {
	// Eastbound along the equator: the left edge sits north at the
	// half-width angle and the right edge mirrors it south.
	const halfWidthRad = 0.1
	track := equatorTrack(90, 5)

	polys := SwathPolygons([][]core.TrackPoint{track}, halfWidthRad*core.EarthRadiusKm)
	if len(polys) != 1 {
		t.Fatalf("got %d polygons, want 1", len(polys))
	}
	ring := polys[0][0]
	if len(ring) != 2*len(track)+1 {
		t.Fatalf("ring has %d points, want %d", len(ring), 2*len(track)+1)
	}
	if ring[0] != ring[len(ring)-1] {
		t.Fatalf("ring not closed")
	}

	wantLat := halfWidthRad * 180 / math.Pi
	for i := 0; i < len(track); i++ {
		if got := ring[i][1]; math.Abs(got-wantLat) > 1e-9 {
			t.Fatalf("left edge vertex %d at lat %v, want %v", i, got, wantLat)
		}
	}
	for i := len(track); i < 2*len(track); i++ {
		if got := ring[i][1]; math.Abs(got+wantLat) > 1e-9 {
			t.Fatalf("right edge vertex %d at lat %v, want %v", i, got, -wantLat)
		}
	}
}

func TestSwathPolygonAreaMatchesBand(t *testing.T) {
	const halfWidthRad = 0.05
	track := equatorTrack(90, 2)

	polys := SwathPolygons([][]core.TrackPoint{track}, halfWidthRad*core.EarthRadiusKm)
	got := FootprintAreaKm2(polys[0][0])
	want := (math.Pi / 2 * core.EarthRadiusKm) * SwathWidthKm(halfWidthRad)
	if math.Abs(got-want)/want > 0.02 {
		t.Fatalf("band area %v differs from %v by more than 2%%", got, want)
	}
}

func TestSwathPolygonsSkipsShortSegments(t *testing.T) {
	track := [][]core.TrackPoint{
		{{LatDeg: 0, LonDeg: 0}},
		{{LatDeg: 0, LonDeg: 10}, {LatDeg: 5, LonDeg: 20}},
	}
	polys := SwathPolygons(track, 500)
	if len(polys) != 1 {
		t.Fatalf("got %d polygons, want only the usable segment's", len(polys))
	}
}

func TestSwathPolygonsFromGroundTracks(t *testing.T) {
	c := testFootprintShell()
	tracks := core.OrbitGroundTracks(c, 90, 0)
	halfWidth := SwathWidthKm(FootprintRadiusRad(c.AltitudeKm, 10)) / 2

	for plane, segments := range tracks {
		polys := SwathPolygons(segments, halfWidth)
		if len(polys) == 0 {
			t.Fatalf("plane %d produced no swath polygons", plane)
		}
		for i, poly := range polys {
			if FootprintAreaKm2(poly[0]) <= 0 {
				t.Fatalf("plane %d polygon %d has no area", plane, i)
			}
		}
	}
}
