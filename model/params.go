package model

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidConstellation = errors.New("invalid constellation parameters")
	ErrInvalidGroundStation = errors.New("invalid ground station parameters")
	ErrInvalidHardware      = errors.New("invalid hardware parameters")
	ErrInvalidMonteCarlo    = errors.New("invalid monte carlo parameters")
	ErrInvalidMission       = errors.New("invalid mission parameters")
	ErrInvalidISL           = errors.New("invalid ISL parameters")
)

// DefaultPlanePhaseOffsetRad staggers neighbouring planes so satellites do
// not visually collide at the seams. It is a layout heuristic, not physics;
// boundaries apply it when the caller leaves the offset unset.
const DefaultPlanePhaseOffsetRad = 0.5

// ConstellationParams describes a Walker-style shell: satellites spread
// round-robin across equally spaced orbital planes at a common altitude and
// inclination.
type ConstellationParams struct {
	SatelliteCount int     `json:"satellite_count"`
	OrbitalPlanes  int     `json:"orbital_planes"`
	InclinationDeg float64 `json:"inclination_deg"`
	AltitudeKm     float64 `json:"altitude_km"`

	// PlanePhaseOffsetRad is the per-plane anomaly stagger. Zero is a
	// legitimate value (no stagger); JSON boundaries substitute
	// DefaultPlanePhaseOffsetRad only when the field is absent.
	PlanePhaseOffsetRad float64 `json:"plane_phase_offset_rad"`
}

// SatsPerPlane returns the per-plane slot count, ceil(count/planes).
// The last plane may be partially filled.
func (c ConstellationParams) SatsPerPlane() int {
	if c.OrbitalPlanes <= 0 {
		return 0
	}
	return int(math.Ceil(float64(c.SatelliteCount) / float64(c.OrbitalPlanes)))
}

// GroundStationParams locates a station by latitude and sets its visibility
// mask. Longitude is deliberately absent: the sampling geometries either
// randomise orbital phase (Monte Carlo) or fold Earth rotation into the
// satellite's effective longitude (mission runs), so only latitude matters.
type GroundStationParams struct {
	LatitudeDeg     float64 `json:"latitude_deg"`
	MinElevationDeg float64 `json:"min_elevation_deg"`
}

// HardwareParams carries the RF budget terms for a downlink.
type HardwareParams struct {
	FrequencyGHz     float64 `json:"frequency_ghz"`
	EIRPDbW          float64 `json:"eirp_dbw"`
	GrDbK            float64 `json:"gr_dbk"`
	RequiredPowerDbW float64 `json:"required_power_dbw"`
}

// MonteCarloParams sizes a link-budget sampling run.
type MonteCarloParams struct {
	Samples int `json:"samples"`

	// Workers bounds the sampling fan-out; zero means one goroutine per CPU.
	Workers int `json:"workers,omitempty"`

	// Seed pins the random streams for reproducible runs. Zero seeds from
	// entropy, matching the statistically-but-not-bitwise reproducible
	// behaviour the estimator is specified against.
	Seed uint64 `json:"seed,omitempty"`
}

// MissionParams sizes a long-duration time-series run.
type MissionParams struct {
	Days        float64 `json:"days"`
	StepSeconds float64 `json:"step_seconds"`

	// StartRaanRad fixes the satellite's initial node so the trajectory is
	// deterministic end to end.
	StartRaanRad float64 `json:"start_raan_rad,omitempty"`
}

// Steps returns the number of propagation steps the run will take.
func (m MissionParams) Steps() int {
	if m.StepSeconds <= 0 {
		return 0
	}
	return int(m.Days * 86400.0 / m.StepSeconds)
}

// ISLParams configures the inter-satellite link topology builder.
type ISLParams struct {
	// MinCommAltitudeKm is the lowest altitude an ISL ray may graze.
	// Links whose chord dips below Re + MinCommAltitudeKm are rejected.
	MinCommAltitudeKm float64 `json:"min_comm_altitude_km"`
}

// ValidateConstellation rejects parameter records that would drive the orbit
// model into NaN territory. Boundaries call this before any core computation.
func ValidateConstellation(c ConstellationParams) error {
	if c.SatelliteCount <= 0 {
		return fmt.Errorf("%w: satellite_count must be > 0, got %d", ErrInvalidConstellation, c.SatelliteCount)
	}
	if c.OrbitalPlanes <= 0 {
		return fmt.Errorf("%w: orbital_planes must be > 0, got %d", ErrInvalidConstellation, c.OrbitalPlanes)
	}
	if c.InclinationDeg < 0 || c.InclinationDeg > 180 {
		return fmt.Errorf("%w: inclination_deg must be in [0,180], got %g", ErrInvalidConstellation, c.InclinationDeg)
	}
	if c.AltitudeKm <= 0 || math.IsNaN(c.AltitudeKm) || math.IsInf(c.AltitudeKm, 0) {
		return fmt.Errorf("%w: altitude_km must be > 0 and finite, got %g", ErrInvalidConstellation, c.AltitudeKm)
	}
	return nil
}

func ValidateGroundStation(g GroundStationParams) error {
	if g.LatitudeDeg < -90 || g.LatitudeDeg > 90 {
		return fmt.Errorf("%w: latitude_deg must be in [-90,90], got %g", ErrInvalidGroundStation, g.LatitudeDeg)
	}
	if g.MinElevationDeg < 0 || g.MinElevationDeg > 90 {
		return fmt.Errorf("%w: min_elevation_deg must be in [0,90], got %g", ErrInvalidGroundStation, g.MinElevationDeg)
	}
	return nil
}

func ValidateHardware(h HardwareParams) error {
	if h.FrequencyGHz <= 0 || math.IsNaN(h.FrequencyGHz) || math.IsInf(h.FrequencyGHz, 0) {
		return fmt.Errorf("%w: frequency_ghz must be > 0 and finite, got %g", ErrInvalidHardware, h.FrequencyGHz)
	}
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"eirp_dbw", h.EIRPDbW},
		{"gr_dbk", h.GrDbK},
		{"required_power_dbw", h.RequiredPowerDbW},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidHardware, v.name, v.value)
		}
	}
	return nil
}

func ValidateMonteCarlo(m MonteCarloParams) error {
	if m.Samples <= 0 {
		return fmt.Errorf("%w: samples must be > 0, got %d", ErrInvalidMonteCarlo, m.Samples)
	}
	if m.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidMonteCarlo, m.Workers)
	}
	return nil
}

func ValidateMission(m MissionParams) error {
	if m.Days <= 0 || math.IsNaN(m.Days) || math.IsInf(m.Days, 0) {
		return fmt.Errorf("%w: days must be > 0 and finite, got %g", ErrInvalidMission, m.Days)
	}
	if m.StepSeconds <= 0 || math.IsNaN(m.StepSeconds) || math.IsInf(m.StepSeconds, 0) {
		return fmt.Errorf("%w: step_seconds must be > 0 and finite, got %g", ErrInvalidMission, m.StepSeconds)
	}
	if m.Steps() < 1 {
		return fmt.Errorf("%w: days/step_seconds yield zero steps", ErrInvalidMission)
	}
	return nil
}

func ValidateISL(p ISLParams) error {
	if p.MinCommAltitudeKm < 0 || math.IsNaN(p.MinCommAltitudeKm) || math.IsInf(p.MinCommAltitudeKm, 0) {
		return fmt.Errorf("%w: min_comm_altitude_km must be >= 0 and finite, got %g", ErrInvalidISL, p.MinCommAltitudeKm)
	}
	return nil
}
