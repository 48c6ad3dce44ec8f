package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/leosim/model"
)

func testShell() model.ConstellationParams {
	return model.ConstellationParams{
		SatelliteCount:      458,
		OrbitalPlanes:       12,
		InclinationDeg:      53,
		AltitudeKm:          550,
		PlanePhaseOffsetRad: model.DefaultPlanePhaseOffsetRad,
	}
}

func TestSatellitePositionBounds(t *testing.T) {
	params := []model.ConstellationParams{
		testShell(),
		{SatelliteCount: 7, OrbitalPlanes: 3, InclinationDeg: 0, AltitudeKm: 1000},
		{SatelliteCount: 24, OrbitalPlanes: 6, InclinationDeg: 90, AltitudeKm: 780},
		{SatelliteCount: 11, OrbitalPlanes: 2, InclinationDeg: 116, AltitudeKm: 550, PlanePhaseOffsetRad: 0.5},
	}

	for _, c := range params {
		incBound := c.InclinationDeg
		if incBound > 90 {
			incBound = 180 - incBound
		}
		for i := 0; i < c.SatelliteCount; i++ {
			for _, tOff := range []float64{0, 0.37, 2.1, 5.9} {
				st := SatellitePosition(c, i, tOff)
				if st.LatDeg < -incBound-1e-9 || st.LatDeg > incBound+1e-9 {
					t.Fatalf("lat %v exceeds inclination bound %v (params %+v, sat %d)", st.LatDeg, incBound, c, i)
				}
				if st.LonDeg <= -180 || st.LonDeg > 180 {
					t.Fatalf("lon %v outside (-180,180]", st.LonDeg)
				}
				if !almostEqual(st.Unit.Norm(), 1, 1e-12) {
					t.Fatalf("unit vector norm %v", st.Unit.Norm())
				}
			}
		}
	}
}

func TestSatellitePositionIsPure(t *testing.T) {
	c := testShell()
	a := SatellitePosition(c, 101, 1.234)
	b := SatellitePosition(c, 101, 1.234)
	if a != b {
		t.Fatalf("repeated query diverged: %+v vs %+v", a, b)
	}
}

func TestRoundRobinPlaneAssignment(t *testing.T) {
	c := testShell()
	for i := 0; i < c.SatelliteCount; i++ {
		st := SatellitePosition(c, i, 0)
		if st.PlaneIndex != i%c.OrbitalPlanes {
			t.Fatalf("sat %d plane = %d, want %d", i, st.PlaneIndex, i%c.OrbitalPlanes)
		}
		if st.IndexInPlane != i/c.OrbitalPlanes {
			t.Fatalf("sat %d slot = %d, want %d", i, st.IndexInPlane, i/c.OrbitalPlanes)
		}
		wantRaan := float64(st.PlaneIndex) / float64(c.OrbitalPlanes) * 2 * math.Pi
		if !almostEqual(st.RaanRad, wantRaan, 1e-12) {
			t.Fatalf("sat %d raan = %v, want %v", i, st.RaanRad, wantRaan)
		}
	}
}

func TestInPlaneSpacing(t *testing.T) {
	c := testShell()
	spp := c.SatsPerPlane()

	// Neighbouring slots of the same plane sit 2π/satsPerPlane apart.
	a := SatellitePosition(c, 0, 0)
	b := SatellitePosition(c, c.OrbitalPlanes, 0)
	if !almostEqual(b.MeanAnomalyRad-a.MeanAnomalyRad, 2*math.Pi/float64(spp), 1e-12) {
		t.Fatalf("in-plane spacing = %v, want %v", b.MeanAnomalyRad-a.MeanAnomalyRad, 2*math.Pi/float64(spp))
	}
}

func TestZeroInclinationStaysEquatorial(t *testing.T) {
	c := model.ConstellationParams{SatelliteCount: 4, OrbitalPlanes: 1, InclinationDeg: 0, AltitudeKm: 550}
	for _, tOff := range []float64{0, 1, 2, 3, 4, 5, 6} {
		st := SatellitePosition(c, 0, tOff)
		if !almostEqual(st.LatDeg, 0, 1e-9) {
			t.Fatalf("equatorial orbit produced lat %v at t=%v", st.LatDeg, tOff)
		}
	}
}

func TestAscendingFlag(t *testing.T) {
	c := model.ConstellationParams{SatelliteCount: 1, OrbitalPlanes: 1, InclinationDeg: 53, AltitudeKm: 550}

	if st := SatellitePosition(c, 0, 0); !st.Ascending {
		t.Fatalf("anomaly 0 should be ascending")
	}
	if st := SatellitePosition(c, 0, math.Pi); st.Ascending {
		t.Fatalf("anomaly π should be descending")
	}
	// The boundary cos(M)=0 counts as descending.
	if st := SatellitePosition(c, 0, math.Pi/2); st.Ascending {
		t.Fatalf("anomaly π/2 boundary should not be ascending")
	}
}

func TestConstellationStateSize(t *testing.T) {
	c := testShell()
	states := ConstellationState(c, 0.5)
	if len(states) != c.SatelliteCount {
		t.Fatalf("state count = %d, want %d", len(states), c.SatelliteCount)
	}
	for i, st := range states {
		if st.Index != i {
			t.Fatalf("state %d carries index %d", i, st.Index)
		}
	}
}

func TestOrbitalPeriodAt550(t *testing.T) {
	// A 550 km circular orbit takes roughly 95.5 minutes.
	period := OrbitalPeriodS(550)
	if period < 5600 || period > 5850 {
		t.Fatalf("period at 550 km = %v s, want ~5730 s", period)
	}
}

func TestRaanDriftSign(t *testing.T) {
	if rate := RaanDriftRadS(550, 53); rate >= 0 {
		t.Fatalf("prograde drift = %v, want negative", rate)
	}
	if rate := RaanDriftRadS(550, 116); rate <= 0 {
		t.Fatalf("retrograde drift = %v, want positive", rate)
	}
	if rate := RaanDriftRadS(550, 90); !almostEqual(rate, 0, 1e-12) {
		t.Fatalf("polar drift = %v, want 0", rate)
	}
}

func TestOrbitGroundTracks(t *testing.T) {
	c := testShell()
	const steps = 120
	tracks := OrbitGroundTracks(c, steps, 0)

	if len(tracks) != c.OrbitalPlanes {
		t.Fatalf("track count = %d, want %d", len(tracks), c.OrbitalPlanes)
	}
	for plane, segments := range tracks {
		if len(segments) == 0 {
			t.Fatalf("plane %d has no track segments", plane)
		}
		total := 0
		for _, seg := range segments {
			total += len(seg)
			prevLon := math.NaN()
			for _, p := range seg {
				if p.LatDeg < -c.InclinationDeg-1e-9 || p.LatDeg > c.InclinationDeg+1e-9 {
					t.Fatalf("plane %d track lat %v out of bounds", plane, p.LatDeg)
				}
				if !math.IsNaN(prevLon) && math.Abs(p.LonDeg-prevLon) > 180 {
					t.Fatalf("plane %d segment jumps the antimeridian (%v -> %v)", plane, prevLon, p.LonDeg)
				}
				prevLon = p.LonDeg
			}
		}
		if total != steps+1 {
			t.Fatalf("plane %d sampled %d points, want %d", plane, total, steps+1)
		}
	}
}
