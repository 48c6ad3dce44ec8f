// Package coverage derives ground-coverage geometry and population reach
// for a constellation snapshot: per-satellite footprint polygons, swath
// statistics, and coverage scoring against a gridded population dataset.
package coverage

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/signalsfoundry/leosim/core"
	"github.com/signalsfoundry/leosim/model"
)

// FootprintRadiusRad returns the Earth-central angular radius of the
// region that sees a satellite at or above minElevationDeg:
// gamma = acos((Re/r)·cos(el)) - el.
func FootprintRadiusRad(altitudeKm, minElevationDeg float64) float64 {
	el := minElevationDeg * math.Pi / 180
	r := core.EarthRadiusKm + altitudeKm
	return math.Acos(core.Clamp(core.EarthRadiusKm/r*math.Cos(el), -1, 1)) - el
}

// CapAreaKm2 returns the spherical-cap area enclosed by a footprint of the
// given angular radius.
func CapAreaKm2(radiusRad float64) float64 {
	return 2 * math.Pi * core.EarthRadiusKm * core.EarthRadiusKm * (1 - math.Cos(radiusRad))
}

// SwathWidthKm returns the across-track width of the coverage band swept
// by one satellite.
func SwathWidthKm(radiusRad float64) float64 {
	return 2 * radiusRad * core.EarthRadiusKm
}

// offsetPoint returns the point radiusRad away from (latDeg, lonDeg) along
// the given initial bearing. Longitudes are kept continuous rather than
// wrapped so shapes near the antimeridian stay simple polygons.
func offsetPoint(latDeg, lonDeg, bearingRad, radiusRad float64) orb.Point {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	sinLat, cosLat := math.Sincos(lat)
	sinR, cosR := math.Sincos(radiusRad)
	sinB, cosB := math.Sincos(bearingRad)

	sinLat2 := sinLat*cosR + cosLat*sinR*cosB
	lat2 := math.Asin(core.Clamp(sinLat2, -1, 1))
	lon2 := lon + math.Atan2(sinB*sinR*cosLat, cosR-sinLat*sinLat2)
	return orb.Point{lon2 * 180 / math.Pi, lat2 * 180 / math.Pi}
}

// FootprintRing approximates the footprint circle around a sub-satellite
// point as a closed ring, continuous-longitude per offsetPoint; consumers
// that need wrapped coordinates can normalise per vertex.
func FootprintRing(latDeg, lonDeg, radiusRad float64, segments int) orb.Ring {
	if segments < 8 {
		segments = 8
	}

	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := 2 * math.Pi * float64(i) / float64(segments)
		ring = append(ring, offsetPoint(latDeg, lonDeg, bearing, radiusRad))
	}
	ring = append(ring, ring[0])
	return ring
}

// trackBearingRad returns the initial great-circle bearing from a to b.
func trackBearingRad(a, b core.TrackPoint) float64 {
	lat1 := a.LatDeg * math.Pi / 180
	lat2 := b.LatDeg * math.Pi / 180
	dLon := (b.LonDeg - a.LonDeg) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Atan2(y, x)
}

// SwathPolygons sweeps the coverage band along one plane's ground track:
// every track point is offset left and right of the local heading by
// halfWidthKm, and the two edges are joined into a closed polygon. One
// polygon is produced per track segment (the track arrives already split
// at the antimeridian); segments too short to carry a heading are skipped.
func SwathPolygons(track [][]core.TrackPoint, halfWidthKm float64) []orb.Polygon {
	halfWidthRad := halfWidthKm / core.EarthRadiusKm

	var polys []orb.Polygon
	for _, seg := range track {
		if len(seg) < 2 {
			continue
		}

		left := make([]orb.Point, 0, len(seg))
		right := make([]orb.Point, 0, len(seg))
		heading := trackBearingRad(seg[0], seg[1])
		for i, tp := range seg {
			if i < len(seg)-1 {
				heading = trackBearingRad(tp, seg[i+1])
			}
			left = append(left, offsetPoint(tp.LatDeg, tp.LonDeg, heading-math.Pi/2, halfWidthRad))
			right = append(right, offsetPoint(tp.LatDeg, tp.LonDeg, heading+math.Pi/2, halfWidthRad))
		}

		ring := make(orb.Ring, 0, 2*len(seg)+1)
		ring = append(ring, left...)
		for i := len(right) - 1; i >= 0; i-- {
			ring = append(ring, right[i])
		}
		ring = append(ring, ring[0])
		polys = append(polys, orb.Polygon{ring})
	}
	return polys
}

// FootprintAreaKm2 measures the spherical area of a footprint ring.
func FootprintAreaKm2(ring orb.Ring) float64 {
	return math.Abs(geo.Area(orb.Polygon{ring})) / 1e6
}

// ConstellationFootprints renders every satellite's footprint at the given
// time offset as a GeoJSON feature collection. Each feature carries the
// satellite's index, plane, sub-satellite point and measured area.
func ConstellationFootprints(c model.ConstellationParams, minElevationDeg float64, segments int, timeOffset float64) (*geojson.FeatureCollection, error) {
	if err := model.ValidateConstellation(c); err != nil {
		return nil, err
	}
	if err := model.ValidateGroundStation(model.GroundStationParams{MinElevationDeg: minElevationDeg}); err != nil {
		return nil, err
	}

	radius := FootprintRadiusRad(c.AltitudeKm, minElevationDeg)
	fc := geojson.NewFeatureCollection()
	for _, st := range core.ConstellationState(c, timeOffset) {
		ring := FootprintRing(st.LatDeg, st.LonDeg, radius, segments)
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties = geojson.Properties{
			"satellite_index": st.Index,
			"plane_index":     st.PlaneIndex,
			"lat_deg":         st.LatDeg,
			"lon_deg":         st.LonDeg,
			"area_km2":        FootprintAreaKm2(ring),
		}
		fc.Append(f)
	}
	return fc, nil
}

// Summary aggregates the per-satellite footprint statistics. Footprints
// overlap, so TotalFootprintAreaKm2 double-counts shared ground; it is a
// drawn-area figure, not a union.
type Summary struct {
	SatelliteCount         int     `json:"satellite_count"`
	FootprintRadiusRad     float64 `json:"footprint_radius_rad"`
	SwathWidthKm           float64 `json:"swath_width_km"`
	CapAreaKm2             float64 `json:"cap_area_km2"`
	TotalFootprintAreaKm2  float64 `json:"total_footprint_area_km2"`
	EarthSurfaceShareDrawn float64 `json:"earth_surface_share_drawn"`
}

// Summarize computes the coverage summary for a rendered collection.
func Summarize(c model.ConstellationParams, minElevationDeg float64, fc *geojson.FeatureCollection) Summary {
	radius := FootprintRadiusRad(c.AltitudeKm, minElevationDeg)

	var total float64
	for _, f := range fc.Features {
		if area, ok := f.Properties["area_km2"].(float64); ok {
			total += area
		}
	}
	earth := 4 * math.Pi * core.EarthRadiusKm * core.EarthRadiusKm
	return Summary{
		SatelliteCount:         len(fc.Features),
		FootprintRadiusRad:     radius,
		SwathWidthKm:           SwathWidthKm(radius),
		CapAreaKm2:             CapAreaKm2(radius),
		TotalFootprintAreaKm2:  total,
		EarthSurfaceShareDrawn: total / earth,
	}
}
