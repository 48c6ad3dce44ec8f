package model

import (
	"errors"
	"math"
	"testing"
)

func validConstellation() ConstellationParams {
	return ConstellationParams{
		SatelliteCount: 458,
		OrbitalPlanes:  12,
		InclinationDeg: 53,
		AltitudeKm:     550,
	}
}

func TestValidateConstellation(t *testing.T) {
	if err := ValidateConstellation(validConstellation()); err != nil {
		t.Fatalf("valid constellation rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*ConstellationParams)
	}{
		{"zero satellites", func(c *ConstellationParams) { c.SatelliteCount = 0 }},
		{"negative satellites", func(c *ConstellationParams) { c.SatelliteCount = -3 }},
		{"zero planes", func(c *ConstellationParams) { c.OrbitalPlanes = 0 }},
		{"inclination too low", func(c *ConstellationParams) { c.InclinationDeg = -1 }},
		{"inclination too high", func(c *ConstellationParams) { c.InclinationDeg = 181 }},
		{"zero altitude", func(c *ConstellationParams) { c.AltitudeKm = 0 }},
		{"NaN altitude", func(c *ConstellationParams) { c.AltitudeKm = math.NaN() }},
	}
	for _, tc := range cases {
		c := validConstellation()
		tc.mutate(&c)
		err := ValidateConstellation(c)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !errors.Is(err, ErrInvalidConstellation) {
			t.Fatalf("%s: error %v does not wrap ErrInvalidConstellation", tc.name, err)
		}
	}
}

func TestSatsPerPlaneCeil(t *testing.T) {
	cases := []struct {
		count, planes, want int
	}{
		{12, 3, 4},
		{13, 3, 5}, // partial last plane rounds up
		{1, 1, 1},
		{458, 12, 39},
		{5, 10, 1},
	}
	for _, tc := range cases {
		c := ConstellationParams{SatelliteCount: tc.count, OrbitalPlanes: tc.planes}
		if got := c.SatsPerPlane(); got != tc.want {
			t.Fatalf("SatsPerPlane(%d,%d) = %d, want %d", tc.count, tc.planes, got, tc.want)
		}
	}

	if got := (ConstellationParams{SatelliteCount: 5}).SatsPerPlane(); got != 0 {
		t.Fatalf("SatsPerPlane with zero planes = %d, want 0", got)
	}
}

func TestValidateGroundStation(t *testing.T) {
	if err := ValidateGroundStation(GroundStationParams{LatitudeDeg: 40.71, MinElevationDeg: 10}); err != nil {
		t.Fatalf("valid ground station rejected: %v", err)
	}

	bad := []GroundStationParams{
		{LatitudeDeg: -91, MinElevationDeg: 10},
		{LatitudeDeg: 91, MinElevationDeg: 10},
		{LatitudeDeg: 0, MinElevationDeg: -1},
		{LatitudeDeg: 0, MinElevationDeg: 91},
	}
	for _, g := range bad {
		if err := ValidateGroundStation(g); !errors.Is(err, ErrInvalidGroundStation) {
			t.Fatalf("params %+v: got %v, want ErrInvalidGroundStation", g, err)
		}
	}
}

func TestValidateHardware(t *testing.T) {
	ok := HardwareParams{FrequencyGHz: 12, EIRPDbW: 40, GrDbK: 35, RequiredPowerDbW: -120}
	if err := ValidateHardware(ok); err != nil {
		t.Fatalf("valid hardware rejected: %v", err)
	}

	bad := ok
	bad.FrequencyGHz = 0
	if err := ValidateHardware(bad); !errors.Is(err, ErrInvalidHardware) {
		t.Fatalf("zero frequency: got %v, want ErrInvalidHardware", err)
	}

	bad = ok
	bad.EIRPDbW = math.Inf(1)
	if err := ValidateHardware(bad); !errors.Is(err, ErrInvalidHardware) {
		t.Fatalf("infinite EIRP: got %v, want ErrInvalidHardware", err)
	}
}

func TestValidateMonteCarlo(t *testing.T) {
	if err := ValidateMonteCarlo(MonteCarloParams{Samples: 30000}); err != nil {
		t.Fatalf("valid monte carlo params rejected: %v", err)
	}
	if err := ValidateMonteCarlo(MonteCarloParams{Samples: 0}); !errors.Is(err, ErrInvalidMonteCarlo) {
		t.Fatalf("zero samples: got %v, want ErrInvalidMonteCarlo", err)
	}
	if err := ValidateMonteCarlo(MonteCarloParams{Samples: 10, Workers: -1}); !errors.Is(err, ErrInvalidMonteCarlo) {
		t.Fatalf("negative workers: got %v, want ErrInvalidMonteCarlo", err)
	}
}

func TestValidateMissionAndSteps(t *testing.T) {
	m := MissionParams{Days: 1, StepSeconds: 60}
	if err := ValidateMission(m); err != nil {
		t.Fatalf("valid mission params rejected: %v", err)
	}
	if got := m.Steps(); got != 1440 {
		t.Fatalf("Steps() = %d, want 1440", got)
	}

	if err := ValidateMission(MissionParams{Days: 0, StepSeconds: 60}); !errors.Is(err, ErrInvalidMission) {
		t.Fatalf("zero days accepted")
	}
	if err := ValidateMission(MissionParams{Days: 1, StepSeconds: 0}); !errors.Is(err, ErrInvalidMission) {
		t.Fatalf("zero step accepted")
	}
	// A step longer than the whole run produces zero steps.
	if err := ValidateMission(MissionParams{Days: 0.0001, StepSeconds: 86400}); !errors.Is(err, ErrInvalidMission) {
		t.Fatalf("zero-step run accepted")
	}
}

func TestValidateISL(t *testing.T) {
	if err := ValidateISL(ISLParams{MinCommAltitudeKm: 100}); err != nil {
		t.Fatalf("valid ISL params rejected: %v", err)
	}
	if err := ValidateISL(ISLParams{MinCommAltitudeKm: -5}); !errors.Is(err, ErrInvalidISL) {
		t.Fatalf("negative altitude accepted")
	}
}
