package core

import (
	"math"

	"github.com/signalsfoundry/leosim/model"
)

// SatelliteState is a pure projection of (params, time) for one satellite.
// It is recomputed on every query and never mutated in place.
type SatelliteState struct {
	Index          int     `json:"index"`
	PlaneIndex     int     `json:"plane_index"`
	IndexInPlane   int     `json:"index_in_plane"`
	MeanAnomalyRad float64 `json:"mean_anomaly_rad"`
	RaanRad        float64 `json:"raan_rad"`
	LatDeg         float64 `json:"lat_deg"`
	LonDeg         float64 `json:"lon_deg"`
	Unit           Vec3    `json:"unit"`

	// Ascending means the satellite is on the northbound half of its orbit:
	// cos(meanAnomaly) > 0. Exactly zero counts as descending.
	Ascending bool `json:"ascending"`
}

// SatellitePosition places satellite satIndex of the constellation at the
// given time offset (radians of mean anomaly). Satellites are distributed
// round-robin: plane = index mod planes, slot = index div planes. Each
// plane's ascending node is spaced evenly around the equator and its
// satellites are staggered by the plane phase offset.
//
// Callers are expected to have validated params at the boundary; this
// function clamps trig arguments but performs no range checking itself.
func SatellitePosition(c model.ConstellationParams, satIndex int, timeOffset float64) SatelliteState {
	planeIdx := satIndex % c.OrbitalPlanes
	inPlaneIdx := satIndex / c.OrbitalPlanes
	satsPerPlane := c.SatsPerPlane()

	raan := float64(planeIdx) / float64(c.OrbitalPlanes) * 2 * math.Pi
	anomaly := float64(inPlaneIdx)/float64(satsPerPlane)*2*math.Pi +
		float64(planeIdx)*c.PlanePhaseOffsetRad +
		timeOffset

	inc := c.InclinationDeg * math.Pi / 180

	lat := math.Asin(Clamp(math.Sin(inc)*math.Sin(anomaly), -1, 1))
	lon := math.Atan2(math.Cos(inc)*math.Sin(anomaly), math.Cos(anomaly)) + raan

	latDeg := lat * 180 / math.Pi
	lonDeg := NormalizeLonDeg(lon * 180 / math.Pi)

	return SatelliteState{
		Index:          satIndex,
		PlaneIndex:     planeIdx,
		IndexInPlane:   inPlaneIdx,
		MeanAnomalyRad: anomaly,
		RaanRad:        raan,
		LatDeg:         latDeg,
		LonDeg:         lonDeg,
		Unit:           UnitVectorFromLatLon(latDeg, lonDeg),
		Ascending:      math.Cos(anomaly) > 0,
	}
}

// ConstellationState computes the whole fleet at one time offset.
func ConstellationState(c model.ConstellationParams, timeOffset float64) []SatelliteState {
	states := make([]SatelliteState, c.SatelliteCount)
	for i := 0; i < c.SatelliteCount; i++ {
		states[i] = SatellitePosition(c, i, timeOffset)
	}
	return states
}

// TrackPoint is one sample of a ground track.
type TrackPoint struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
}

// OrbitGroundTracks sweeps one full revolution per orbital plane (using the
// plane's first slot) and returns the resulting ground tracks. Each plane's
// track is split into segments wherever the longitude wraps across the
// antimeridian so consumers can draw it as plain polylines.
func OrbitGroundTracks(c model.ConstellationParams, steps int, timeOffset float64) [][][]TrackPoint {
	if steps < 2 {
		steps = 2
	}

	tracks := make([][][]TrackPoint, c.OrbitalPlanes)
	for plane := 0; plane < c.OrbitalPlanes; plane++ {
		var segments [][]TrackPoint
		var current []TrackPoint
		prevLon := math.NaN()

		for s := 0; s <= steps; s++ {
			phase := float64(s) / float64(steps) * 2 * math.Pi
			st := SatellitePosition(c, plane, timeOffset+phase)
			if !math.IsNaN(prevLon) && math.Abs(st.LonDeg-prevLon) > 180 {
				segments = append(segments, current)
				current = nil
			}
			current = append(current, TrackPoint{LatDeg: st.LatDeg, LonDeg: st.LonDeg})
			prevLon = st.LonDeg
		}
		if len(current) > 0 {
			segments = append(segments, current)
		}
		tracks[plane] = segments
	}
	return tracks
}

// MeanMotionRadS returns the circular-orbit mean motion n = sqrt(GM/r³).
func MeanMotionRadS(altitudeKm float64) float64 {
	r := EarthRadiusKm + altitudeKm
	return math.Sqrt(EarthGMKm3S2 / (r * r * r))
}

// OrbitalPeriodS returns the circular-orbit period 2π/n in seconds.
func OrbitalPeriodS(altitudeKm float64) float64 {
	return 2 * math.Pi / MeanMotionRadS(altitudeKm)
}

// RaanDriftRadS returns the J2 nodal regression rate
// -1.5·n·J2·(Re/r)²·cos(i) in rad/s. Negative for prograde orbits.
func RaanDriftRadS(altitudeKm, inclinationDeg float64) float64 {
	r := EarthRadiusKm + altitudeKm
	n := MeanMotionRadS(altitudeKm)
	ratio := EarthRadiusKm / r
	return -1.5 * n * EarthJ2 * ratio * ratio * math.Cos(inclinationDeg*math.Pi/180)
}
