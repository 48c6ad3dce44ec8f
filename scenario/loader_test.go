package scenario

import (
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/leosim/model"
)

const presetFile = `{
  "presets": [
    {
      "name": "starlink-like",
      "description": "Dense mid-inclination shell over an urban station",
      "constellation": {
        "satellite_count": 458,
        "orbital_planes": 12,
        "inclination_deg": 53,
        "altitude_km": 550
      },
      "ground_station": {"latitude_deg": 40.71, "min_elevation_deg": 25},
      "hardware": {"frequency_ghz": 12, "eirp_dbw": 40, "gr_dbk": 35, "required_power_dbw": -120},
      "mission": {"days": 1, "step_seconds": 60, "start_raan_rad": 1.5},
      "isl": {"min_comm_altitude_km": 100}
    },
    {
      "name": "minimal",
      "constellation": {
        "satellite_count": 24,
        "orbital_planes": 3,
        "inclination_deg": 98,
        "altitude_km": 1000
      },
      "ground_station": {"latitude_deg": 78.2},
      "hardware": {"frequency_ghz": 20, "eirp_dbw": 56, "gr_dbk": 40, "required_power_dbw": -105}
    }
  ]
}`

func TestLoadPresets(t *testing.T) {
	store := NewStore()
	manifest, err := LoadPresets(store, strings.NewReader(presetFile))
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if len(manifest.Names) != 2 || manifest.Names[0] != "starlink-like" || manifest.Names[1] != "minimal" {
		t.Fatalf("manifest = %v", manifest.Names)
	}

	full, err := store.Get("starlink-like")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if full.GroundStation.MinElevationDeg != 25 {
		t.Fatalf("explicit min elevation lost: %g", full.GroundStation.MinElevationDeg)
	}
	if full.Mission == nil || full.Mission.StartRaanRad != 1.5 {
		t.Fatalf("mission section lost: %+v", full.Mission)
	}
	if full.ISL == nil || full.ISL.MinCommAltitudeKm != 100 {
		t.Fatalf("isl section lost: %+v", full.ISL)
	}
	if full.Constellation.PlanePhaseOffsetRad != model.DefaultPlanePhaseOffsetRad {
		t.Fatalf("absent phase offset should default, got %g", full.Constellation.PlanePhaseOffsetRad)
	}

	minimal, err := store.Get("minimal")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if minimal.GroundStation.MinElevationDeg != 10 {
		t.Fatalf("absent min elevation should default to 10, got %g", minimal.GroundStation.MinElevationDeg)
	}
	if minimal.Mission != nil || minimal.ISL != nil {
		t.Fatalf("optional sections should stay nil when absent")
	}
}

func TestLoadPresetsExplicitZeroPhaseOffset(t *testing.T) {
	const file = `{
  "presets": [{
    "name": "flat",
    "constellation": {
      "satellite_count": 12, "orbital_planes": 3, "inclination_deg": 53,
      "altitude_km": 550, "plane_phase_offset_rad": 0
    },
    "ground_station": {"latitude_deg": 0},
    "hardware": {"frequency_ghz": 12, "eirp_dbw": 40, "gr_dbk": 35, "required_power_dbw": -120}
  }]
}`
	store := NewStore()
	if _, err := LoadPresets(store, strings.NewReader(file)); err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	p, err := store.Get("flat")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Constellation.PlanePhaseOffsetRad != 0 {
		t.Fatalf("explicit zero phase offset was overridden to %g", p.Constellation.PlanePhaseOffsetRad)
	}
}

func TestLoadPresetsRejectsBadParams(t *testing.T) {
	const file = `{
  "presets": [{
    "name": "broken",
    "constellation": {
      "satellite_count": 24, "orbital_planes": 3, "inclination_deg": 200, "altitude_km": 550
    },
    "ground_station": {"latitude_deg": 0},
    "hardware": {"frequency_ghz": 12, "eirp_dbw": 40, "gr_dbk": 35, "required_power_dbw": -120}
  }]
}`
	store := NewStore()
	_, err := LoadPresets(store, strings.NewReader(file))
	if !errors.Is(err, model.ErrInvalidConstellation) {
		t.Fatalf("err = %v, want ErrInvalidConstellation", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Fatalf("error does not name the offending preset: %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("bad preset reached the store")
	}
}

func TestLoadPresetsStructuralErrors(t *testing.T) {
	store := NewStore()

	if _, err := LoadPresets(nil, strings.NewReader(`{}`)); err == nil {
		t.Fatalf("nil store accepted")
	}
	if _, err := LoadPresets(store, strings.NewReader(`{not json`)); err == nil {
		t.Fatalf("malformed JSON accepted")
	}
	if _, err := LoadPresets(store, strings.NewReader(`{"presets": [{"name": ""}]}`)); err == nil {
		t.Fatalf("empty preset name accepted")
	}
}

func TestLoadPresetsDuplicateName(t *testing.T) {
	const file = `{
  "presets": [
    {
      "name": "twin",
      "constellation": {"satellite_count": 12, "orbital_planes": 3, "inclination_deg": 53, "altitude_km": 550},
      "ground_station": {"latitude_deg": 0},
      "hardware": {"frequency_ghz": 12, "eirp_dbw": 40, "gr_dbk": 35, "required_power_dbw": -120}
    },
    {
      "name": "twin",
      "constellation": {"satellite_count": 12, "orbital_planes": 3, "inclination_deg": 53, "altitude_km": 550},
      "ground_station": {"latitude_deg": 0},
      "hardware": {"frequency_ghz": 12, "eirp_dbw": 40, "gr_dbk": 35, "required_power_dbw": -120}
    }
  ]
}`
	store := NewStore()
	if _, err := LoadPresets(store, strings.NewReader(file)); !errors.Is(err, ErrPresetExists) {
		t.Fatalf("err = %v, want ErrPresetExists", err)
	}
}
