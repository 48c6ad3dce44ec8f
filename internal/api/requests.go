package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/signalsfoundry/leosim/model"
	"github.com/signalsfoundry/leosim/scenario"
)

// errBadRequest marks structural request problems, such as malformed JSON
// or unparseable query parameters, that no model sentinel covers.
var errBadRequest = errors.New("bad request")

// Fallback parameters applied when a request names neither a preset nor an
// inline section. The shell matches the first Starlink deployment phase and
// the station sits at the latitude of New York City.
var (
	defaultConstellation = model.ConstellationParams{
		SatelliteCount:      458,
		OrbitalPlanes:       12,
		InclinationDeg:      53,
		AltitudeKm:          550,
		PlanePhaseOffsetRad: model.DefaultPlanePhaseOffsetRad,
	}
	defaultGroundStation = model.GroundStationParams{LatitudeDeg: 40.7128, MinElevationDeg: 10}
	defaultMonteCarlo    = model.MonteCarloParams{Samples: 1000}
	defaultMission       = model.MissionParams{Days: 1, StepSeconds: 60}
	defaultISL           = model.ISLParams{MinCommAltitudeKm: 100}
)

const (
	defaultCoverageElevationDeg = 10.0
	defaultFootprintSegments    = 48
	defaultOrbitTrackSteps      = 180
	maxOrbitTrackSteps          = 1440
	linkBudgetPowerBins         = 40
	missionElevationBins        = 36

	// Raw sample and track arrays are decimated to these sizes so chart
	// payloads stay bounded regardless of run size.
	maxResponseSamples     = 2000
	maxResponseTrackPoints = 360
)

// simulationRequest is the shared body for the run endpoints. Every section
// is optional: a named preset seeds the parameters, inline sections replace
// the corresponding preset section wholesale, and anything still missing
// falls back to the defaults above.
type simulationRequest struct {
	Preset        *string               `json:"preset,omitempty"`
	Constellation *constellationBody    `json:"constellation,omitempty"`
	GroundStation *groundStationBody    `json:"ground_station,omitempty"`
	Hardware      *model.HardwareParams `json:"hardware,omitempty"`
	MonteCarlo    *monteCarloBody       `json:"monte_carlo,omitempty"`
	Mission       *missionBody          `json:"mission,omitempty"`
	ISL           *islBody              `json:"isl,omitempty"`

	TimeOffsetRad   *float64 `json:"time_offset_rad,omitempty"`
	MinElevationDeg *float64 `json:"min_elevation_deg,omitempty"`
	Segments        *int     `json:"segments,omitempty"`
	Swaths          bool     `json:"swaths,omitempty"`
}

// Pointer fields distinguish "absent" from a legitimate zero so the decode
// can fill defaults without clobbering explicit zeros.
type constellationBody struct {
	SatelliteCount      int      `json:"satellite_count"`
	OrbitalPlanes       int      `json:"orbital_planes"`
	InclinationDeg      float64  `json:"inclination_deg"`
	AltitudeKm          float64  `json:"altitude_km"`
	PlanePhaseOffsetRad *float64 `json:"plane_phase_offset_rad,omitempty"`
}

type groundStationBody struct {
	LatitudeDeg     float64  `json:"latitude_deg"`
	MinElevationDeg *float64 `json:"min_elevation_deg,omitempty"`
}

type monteCarloBody struct {
	Samples int    `json:"samples"`
	Workers int    `json:"workers"`
	Seed    uint64 `json:"seed"`
}

type missionBody struct {
	Days         float64  `json:"days"`
	StepSeconds  float64  `json:"step_seconds"`
	StartRaanRad *float64 `json:"start_raan_rad,omitempty"`
}

type islBody struct {
	MinCommAltitudeKm *float64 `json:"min_comm_altitude_km,omitempty"`
}

// runParams is a fully resolved parameter set for one simulation run.
// Validation stays with the core operations; resolution only layers
// preset, inline and default values.
type runParams struct {
	Constellation model.ConstellationParams
	GroundStation model.GroundStationParams
	Hardware      model.HardwareParams
	MonteCarlo    model.MonteCarloParams
	Mission       model.MissionParams
	ISL           model.ISLParams

	TimeOffsetRad   float64
	hasTimeOffset   bool
	MinElevationDeg float64
	Segments        int
	Swaths          bool
}

// decodeSimulationRequest reads the shared run body. An empty body is
// valid and yields an all-defaults run.
func decodeSimulationRequest(r *http.Request) (*simulationRequest, error) {
	var req simulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return &req, nil
		}
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return &req, nil
}

func (req *simulationRequest) resolve(store *scenario.Store) (runParams, error) {
	rp := runParams{
		Constellation:   defaultConstellation,
		GroundStation:   defaultGroundStation,
		MonteCarlo:      defaultMonteCarlo,
		Mission:         defaultMission,
		ISL:             defaultISL,
		MinElevationDeg: defaultCoverageElevationDeg,
		Segments:        defaultFootprintSegments,
	}

	if req.Preset != nil {
		p, err := store.Get(*req.Preset)
		if err != nil {
			return rp, err
		}
		rp.Constellation = p.Constellation
		rp.GroundStation = p.GroundStation
		rp.Hardware = p.Hardware
		if p.Mission != nil {
			rp.Mission = *p.Mission
		}
		if p.ISL != nil {
			rp.ISL = *p.ISL
		}
	}

	if c := req.Constellation; c != nil {
		rp.Constellation = model.ConstellationParams{
			SatelliteCount:      c.SatelliteCount,
			OrbitalPlanes:       c.OrbitalPlanes,
			InclinationDeg:      c.InclinationDeg,
			AltitudeKm:          c.AltitudeKm,
			PlanePhaseOffsetRad: model.DefaultPlanePhaseOffsetRad,
		}
		if c.PlanePhaseOffsetRad != nil {
			rp.Constellation.PlanePhaseOffsetRad = *c.PlanePhaseOffsetRad
		}
	}
	if g := req.GroundStation; g != nil {
		rp.GroundStation = model.GroundStationParams{
			LatitudeDeg:     g.LatitudeDeg,
			MinElevationDeg: defaultGroundStation.MinElevationDeg,
		}
		if g.MinElevationDeg != nil {
			rp.GroundStation.MinElevationDeg = *g.MinElevationDeg
		}
	}
	if req.Hardware != nil {
		rp.Hardware = *req.Hardware
	}
	if mc := req.MonteCarlo; mc != nil {
		rp.MonteCarlo = model.MonteCarloParams{
			Samples: mc.Samples,
			Workers: mc.Workers,
			Seed:    mc.Seed,
		}
		if rp.MonteCarlo.Samples == 0 {
			rp.MonteCarlo.Samples = defaultMonteCarlo.Samples
		}
	}
	if m := req.Mission; m != nil {
		rp.Mission = model.MissionParams{Days: m.Days, StepSeconds: m.StepSeconds}
		if rp.Mission.Days == 0 {
			rp.Mission.Days = defaultMission.Days
		}
		if rp.Mission.StepSeconds == 0 {
			rp.Mission.StepSeconds = defaultMission.StepSeconds
		}
		if m.StartRaanRad != nil {
			rp.Mission.StartRaanRad = *m.StartRaanRad
		}
	}
	if i := req.ISL; i != nil {
		rp.ISL = defaultISL
		if i.MinCommAltitudeKm != nil {
			rp.ISL.MinCommAltitudeKm = *i.MinCommAltitudeKm
		}
	}

	if req.TimeOffsetRad != nil {
		rp.TimeOffsetRad = *req.TimeOffsetRad
		rp.hasTimeOffset = true
	}
	if req.MinElevationDeg != nil {
		rp.MinElevationDeg = *req.MinElevationDeg
	}
	if req.Segments != nil {
		rp.Segments = *req.Segments
	}
	rp.Swaths = req.Swaths

	return rp, nil
}

// timeOffset picks the request's explicit offset when given, otherwise the
// current animation clock position.
func (s *Server) timeOffset(rp runParams) float64 {
	if rp.hasTimeOffset {
		return rp.TimeOffsetRad
	}
	if s.clock != nil {
		return s.clock.Offset()
	}
	return 0
}

// constellationFromQuery builds constellation parameters for the GET
// endpoints. A preset seeds the values and individual query parameters
// override single fields.
func (s *Server) constellationFromQuery(q url.Values) (model.ConstellationParams, float64, error) {
	c := defaultConstellation
	if name := q.Get("preset"); name != "" {
		p, err := s.store.Get(name)
		if err != nil {
			return c, 0, err
		}
		c = p.Constellation
	}

	var err error
	if c.SatelliteCount, err = intParam(q, "satellites", c.SatelliteCount); err != nil {
		return c, 0, err
	}
	if c.OrbitalPlanes, err = intParam(q, "planes", c.OrbitalPlanes); err != nil {
		return c, 0, err
	}
	if c.InclinationDeg, err = floatParam(q, "inclination_deg", c.InclinationDeg); err != nil {
		return c, 0, err
	}
	if c.AltitudeKm, err = floatParam(q, "altitude_km", c.AltitudeKm); err != nil {
		return c, 0, err
	}
	if c.PlanePhaseOffsetRad, err = floatParam(q, "plane_phase_offset_rad", c.PlanePhaseOffsetRad); err != nil {
		return c, 0, err
	}

	offset := 0.0
	if s.clock != nil {
		offset = s.clock.Offset()
	}
	if offset, err = floatParam(q, "time_offset_rad", offset); err != nil {
		return c, 0, err
	}
	return c, offset, nil
}

func intParam(q url.Values, key string, fallback int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadRequest, key, err)
	}
	return v, nil
}

func floatParam(q url.Values, key string, fallback float64) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadRequest, key, err)
	}
	return v, nil
}

// decimate returns at most max elements of in, evenly strided from the
// start. With max <= 0 or a short input the slice is returned as is.
func decimate[T any](in []T, max int) []T {
	if max <= 0 || len(in) <= max {
		return in
	}
	stride := float64(len(in)) / float64(max)
	out := make([]T, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, in[int(float64(i)*stride)])
	}
	return out
}
