package scenario

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/leosim/model"
)

// PresetManifest is a small summary of what was loaded from JSON. It's
// mainly useful for logging from main().
type PresetManifest struct {
	Names []string
}

// internal JSON shapes - keep them unexported so we're free to evolve them.
type presetFileJSON struct {
	Presets []presetJSON `json:"presets"`
}

type presetJSON struct {
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	Constellation constellationJSON    `json:"constellation"`
	GroundStation groundStationJSON    `json:"ground_station"`
	Hardware      model.HardwareParams `json:"hardware"`
	Mission       *missionJSON         `json:"mission"`
	ISL           *islJSON             `json:"isl"`
}

type constellationJSON struct {
	SatelliteCount int     `json:"satellite_count"`
	OrbitalPlanes  int     `json:"orbital_planes"`
	InclinationDeg float64 `json:"inclination_deg"`
	AltitudeKm     float64 `json:"altitude_km"`

	// optional; defaults to model.DefaultPlanePhaseOffsetRad. A pointer so
	// an explicit zero survives decoding.
	PlanePhaseOffsetRad *float64 `json:"plane_phase_offset_rad"`
}

type groundStationJSON struct {
	LatitudeDeg float64 `json:"latitude_deg"`

	// optional; defaults to 10 degrees.
	MinElevationDeg *float64 `json:"min_elevation_deg"`
}

type missionJSON struct {
	Days         float64  `json:"days"`
	StepSeconds  float64  `json:"step_seconds"`
	StartRaanRad *float64 `json:"start_raan_rad"` // optional; defaults to 0
}

type islJSON struct {
	MinCommAltitudeKm float64 `json:"min_comm_altitude_km"`
}

// LoadPresets reads a JSON preset file from r, validates every preset, and
// adds them to the store. Unlike plain structural decoding, parameter
// ranges are checked here: a preset file is a trust boundary and a bad
// record must not reach the simulation core.
func LoadPresets(store *Store, r io.Reader) (*PresetManifest, error) {
	if store == nil {
		return nil, fmt.Errorf("LoadPresets: store is nil")
	}

	var payload presetFileJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadPresets: decode failed: %w", err)
	}

	manifest := &PresetManifest{Names: make([]string, 0, len(payload.Presets))}

	for _, jp := range payload.Presets {
		if jp.Name == "" {
			return nil, fmt.Errorf("LoadPresets: preset with empty name")
		}

		preset, err := presetFromJSON(jp)
		if err != nil {
			return nil, fmt.Errorf("LoadPresets: preset %q: %w", jp.Name, err)
		}
		if err := store.Add(preset); err != nil {
			return nil, fmt.Errorf("LoadPresets: %w", err)
		}
		manifest.Names = append(manifest.Names, jp.Name)
	}

	return manifest, nil
}

// DecodePreset reads a single preset record from r, in the same shape as
// one entry of a preset file, applying the same defaults and validation.
func DecodePreset(r io.Reader) (Preset, error) {
	var jp presetJSON
	if err := json.NewDecoder(r).Decode(&jp); err != nil {
		return Preset{}, fmt.Errorf("DecodePreset: decode failed: %w", err)
	}
	if jp.Name == "" {
		return Preset{}, fmt.Errorf("DecodePreset: preset with empty name")
	}
	preset, err := presetFromJSON(jp)
	if err != nil {
		return Preset{}, fmt.Errorf("DecodePreset: preset %q: %w", jp.Name, err)
	}
	return preset, nil
}

// presetFromJSON applies defaults for absent optional fields and validates
// every parameter group.
func presetFromJSON(jp presetJSON) (Preset, error) {
	phaseOffset := model.DefaultPlanePhaseOffsetRad
	if jp.Constellation.PlanePhaseOffsetRad != nil {
		phaseOffset = *jp.Constellation.PlanePhaseOffsetRad
	}
	constellation := model.ConstellationParams{
		SatelliteCount:      jp.Constellation.SatelliteCount,
		OrbitalPlanes:       jp.Constellation.OrbitalPlanes,
		InclinationDeg:      jp.Constellation.InclinationDeg,
		AltitudeKm:          jp.Constellation.AltitudeKm,
		PlanePhaseOffsetRad: phaseOffset,
	}
	if err := model.ValidateConstellation(constellation); err != nil {
		return Preset{}, err
	}

	minElevation := 10.0
	if jp.GroundStation.MinElevationDeg != nil {
		minElevation = *jp.GroundStation.MinElevationDeg
	}
	station := model.GroundStationParams{
		LatitudeDeg:     jp.GroundStation.LatitudeDeg,
		MinElevationDeg: minElevation,
	}
	if err := model.ValidateGroundStation(station); err != nil {
		return Preset{}, err
	}

	if err := model.ValidateHardware(jp.Hardware); err != nil {
		return Preset{}, err
	}

	preset := Preset{
		Name:          jp.Name,
		Description:   jp.Description,
		Constellation: constellation,
		GroundStation: station,
		Hardware:      jp.Hardware,
	}

	if jp.Mission != nil {
		startRaan := 0.0
		if jp.Mission.StartRaanRad != nil {
			startRaan = *jp.Mission.StartRaanRad
		}
		mission := model.MissionParams{
			Days:         jp.Mission.Days,
			StepSeconds:  jp.Mission.StepSeconds,
			StartRaanRad: startRaan,
		}
		if err := model.ValidateMission(mission); err != nil {
			return Preset{}, err
		}
		preset.Mission = &mission
	}

	if jp.ISL != nil {
		isl := model.ISLParams{MinCommAltitudeKm: jp.ISL.MinCommAltitudeKm}
		if err := model.ValidateISL(isl); err != nil {
			return Preset{}, err
		}
		preset.ISL = &isl
	}

	return preset, nil
}
