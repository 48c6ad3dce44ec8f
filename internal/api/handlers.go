package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/signalsfoundry/leosim/core"
	"github.com/signalsfoundry/leosim/coverage"
	"github.com/signalsfoundry/leosim/internal/logging"
	"github.com/signalsfoundry/leosim/internal/observability"
	"github.com/signalsfoundry/leosim/model"
	"github.com/signalsfoundry/leosim/scenario"
	"github.com/signalsfoundry/leosim/timectrl"
)

var errNoClock = errors.New("animation clock not configured")

// ---------- response shapes ----------

type constellationResponse struct {
	TimeOffsetRad float64               `json:"time_offset_rad"`
	SatsPerPlane  int                   `json:"sats_per_plane"`
	PeriodS       float64               `json:"period_s"`
	Satellites    []core.SatelliteState `json:"satellites"`
}

type orbitsResponse struct {
	TimeOffsetRad float64               `json:"time_offset_rad"`
	PeriodS       float64               `json:"period_s"`
	RaanDriftRadS float64               `json:"raan_drift_rad_s"`
	Tracks        [][][]core.TrackPoint `json:"tracks"`
}

type linkBudgetResponse struct {
	Result    *core.LinkBudgetResult `json:"result"`
	Gamma     *gammaFitPayload       `json:"gamma,omitempty"`
	Histogram []core.HistogramBin    `json:"histogram,omitempty"`
}

// gammaFitPayload carries the fitted distribution plus a sampled curve so
// clients can draw it without reimplementing the gamma functions.
type gammaFitPayload struct {
	Alpha float64   `json:"alpha"`
	Beta  float64   `json:"beta"`
	Loc   float64   `json:"loc"`
	Mean  float64   `json:"mean"`
	Xs    []float64 `json:"xs"`
	PDF   []float64 `json:"pdf"`
	CDF   []float64 `json:"cdf"`
}

// missionResponse pairs the propagation result with the statistical views
// of the visible-elevation sample: gamma fit, histogram, empirical CDF.
type missionResponse struct {
	Result    *core.MissionResult  `json:"result"`
	Gamma     *gammaFitPayload     `json:"gamma,omitempty"`
	Histogram []core.HistogramBin  `json:"histogram,omitempty"`
	CDF       *empiricalCDFPayload `json:"cdf,omitempty"`
}

type empiricalCDFPayload struct {
	Xs []float64 `json:"xs"`
	Ps []float64 `json:"ps"`
}

type islCounts struct {
	CrossPlane int `json:"cross_plane"`
	RightLeft  int `json:"right_left"`
	IntraPlane int `json:"intra_plane"`
	InterPlane int `json:"inter_plane"`
	Total      int `json:"total"`
}

type islResponse struct {
	TimeOffsetRad float64           `json:"time_offset_rad"`
	Counts        islCounts         `json:"counts"`
	Topology      *core.ISLTopology `json:"topology"`
}

type coverageResponse struct {
	TimeOffsetRad float64                      `json:"time_offset_rad"`
	Summary       coverage.Summary             `json:"summary"`
	Footprints    *geojson.FeatureCollection   `json:"footprints"`
	Swaths        *geojson.FeatureCollection   `json:"swaths,omitempty"`
	Population    *coverage.PopulationCoverage `json:"population,omitempty"`
}

type presetListResponse struct {
	Count   int               `json:"count"`
	Presets []scenario.Preset `json:"presets"`
}

// ---------- handlers ----------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConstellation(w http.ResponseWriter, r *http.Request) {
	c, offset, err := s.constellationFromQuery(r.URL.Query())
	if err == nil {
		err = model.ValidateConstellation(c)
	}
	if err != nil {
		s.metrics.RecordRun(observability.KindConstellation, runOutcome(err), 0)
		writeError(w, r, statusForError(err), err)
		return
	}

	states := core.ConstellationState(c, offset)
	s.shell.SetShell(c.SatelliteCount, c.OrbitalPlanes)
	s.metrics.RecordRun(observability.KindConstellation, observability.OutcomeOK, 0)

	writeJSON(w, http.StatusOK, constellationResponse{
		TimeOffsetRad: offset,
		SatsPerPlane:  c.SatsPerPlane(),
		PeriodS:       core.OrbitalPeriodS(c.AltitudeKm),
		Satellites:    states,
	})
}

func (s *Server) handleOrbits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, offset, err := s.constellationFromQuery(q)
	var steps int
	if err == nil {
		steps, err = intParam(q, "steps", defaultOrbitTrackSteps)
	}
	if err == nil {
		err = model.ValidateConstellation(c)
	}
	if err != nil {
		s.metrics.RecordRun(observability.KindOrbits, runOutcome(err), 0)
		writeError(w, r, statusForError(err), err)
		return
	}
	if steps > maxOrbitTrackSteps {
		steps = maxOrbitTrackSteps
	}

	start := time.Now()
	tracks := core.OrbitGroundTracks(c, steps, offset)
	s.metrics.RecordRun(observability.KindOrbits, observability.OutcomeOK, time.Since(start))

	writeJSON(w, http.StatusOK, orbitsResponse{
		TimeOffsetRad: offset,
		PeriodS:       core.OrbitalPeriodS(c.AltitudeKm),
		RaanDriftRadS: core.RaanDriftRadS(c.AltitudeKm, c.InclinationDeg),
		Tracks:        tracks,
	})
}

func (s *Server) handleLinkBudget(w http.ResponseWriter, r *http.Request) {
	rp, ok := s.resolveRun(w, r, observability.KindLinkBudget)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	start := time.Now()
	res, err := core.SimulateLinkBudget(ctx, rp.Constellation, rp.GroundStation, rp.Hardware, rp.MonteCarlo)
	elapsed := time.Since(start)
	if err != nil {
		s.failRun(w, r, observability.KindLinkBudget, elapsed, err)
		return
	}

	resp := linkBudgetResponse{Result: res}
	outcome := observability.OutcomeOK
	if res.NoVisibility {
		outcome = observability.OutcomeNoVisibility
	} else {
		powers := make([]float64, len(res.Samples))
		for i, smp := range res.Samples {
			powers[i] = smp.ReceivedPowerDbW
		}
		resp.Histogram = core.Histogram(powers, linkBudgetPowerBins)
		if fit, fitErr := core.FitGamma(powers); fitErr == nil {
			resp.Gamma = newGammaFitPayload(fit, powers)
		}
		res.Samples = decimate(res.Samples, maxResponseSamples)
	}

	s.metrics.RecordRun(observability.KindLinkBudget, outcome, elapsed)
	s.shell.SetShell(rp.Constellation.SatelliteCount, rp.Constellation.OrbitalPlanes)
	logging.FromContext(r.Context(), s.log).Info(r.Context(), "link budget run complete",
		logging.Int("samples", res.SampleCount),
		logging.Int("visible", res.VisibleCount),
		logging.Duration("elapsed", elapsed),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMission(w http.ResponseWriter, r *http.Request) {
	rp, ok := s.resolveRun(w, r, observability.KindMission)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	start := time.Now()
	res, err := core.RunMission(ctx, rp.Constellation, rp.GroundStation, rp.Mission)
	elapsed := time.Since(start)
	if err != nil {
		s.failRun(w, r, observability.KindMission, elapsed, err)
		return
	}

	// Fit and bin the visible elevations before the tracks are decimated.
	resp := missionResponse{Result: res}
	var elevations []float64
	for _, p := range res.Passes {
		for _, tp := range p.Track {
			elevations = append(elevations, tp.ElevationDeg)
		}
	}
	if len(elevations) > 0 {
		resp.Histogram = core.Histogram(elevations, missionElevationBins)
		if fit, fitErr := core.FitGamma(elevations); fitErr == nil {
			resp.Gamma = newGammaFitPayload(fit, elevations)
		}
		xs, ps := core.EmpiricalCDF(elevations)
		resp.CDF = &empiricalCDFPayload{
			Xs: decimate(xs, maxResponseSamples),
			Ps: decimate(ps, maxResponseSamples),
		}
	}
	for i := range res.Passes {
		res.Passes[i].Track = decimate(res.Passes[i].Track, maxResponseTrackPoints)
	}

	s.metrics.RecordRun(observability.KindMission, observability.OutcomeOK, elapsed)
	logging.FromContext(r.Context(), s.log).Info(r.Context(), "mission run complete",
		logging.Int("steps", res.StepCount),
		logging.Int("passes", res.PassCount),
		logging.Duration("elapsed", elapsed),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleISL(w http.ResponseWriter, r *http.Request) {
	rp, ok := s.resolveRun(w, r, observability.KindISL)
	if !ok {
		return
	}
	offset := s.timeOffset(rp)

	start := time.Now()
	topo, err := core.BuildISLTopology(rp.Constellation, rp.ISL, offset)
	elapsed := time.Since(start)
	if err != nil {
		s.failRun(w, r, observability.KindISL, elapsed, err)
		return
	}

	counts := islCounts{
		CrossPlane: len(topo.CrossPlane),
		RightLeft:  len(topo.RightLeft),
		IntraPlane: len(topo.IntraPlane),
		InterPlane: len(topo.InterPlane),
	}
	counts.Total = counts.CrossPlane + counts.RightLeft + counts.IntraPlane + counts.InterPlane

	s.metrics.RecordRun(observability.KindISL, observability.OutcomeOK, elapsed)
	s.shell.SetShell(rp.Constellation.SatelliteCount, rp.Constellation.OrbitalPlanes)
	s.shell.SetISLCounts(counts.CrossPlane, counts.RightLeft, counts.IntraPlane, counts.InterPlane)
	logging.FromContext(r.Context(), s.log).Info(r.Context(), "isl topology built",
		logging.Int("links", counts.Total),
		logging.Duration("elapsed", elapsed),
	)
	writeJSON(w, http.StatusOK, islResponse{TimeOffsetRad: offset, Counts: counts, Topology: topo})
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	rp, ok := s.resolveRun(w, r, observability.KindCoverage)
	if !ok {
		return
	}
	offset := s.timeOffset(rp)

	start := time.Now()
	fc, err := coverage.ConstellationFootprints(rp.Constellation, rp.MinElevationDeg, rp.Segments, offset)
	if err != nil {
		s.failRun(w, r, observability.KindCoverage, time.Since(start), err)
		return
	}

	resp := coverageResponse{
		TimeOffsetRad: offset,
		Summary:       coverage.Summarize(rp.Constellation, rp.MinElevationDeg, fc),
		Footprints:    fc,
	}
	if rp.Swaths {
		halfWidth := coverage.SwathWidthKm(resp.Summary.FootprintRadiusRad) / 2
		tracks := core.OrbitGroundTracks(rp.Constellation, defaultOrbitTrackSteps, offset)
		swaths := geojson.NewFeatureCollection()
		for plane, segments := range tracks {
			for _, poly := range coverage.SwathPolygons(segments, halfWidth) {
				f := geojson.NewFeature(poly)
				f.Properties = geojson.Properties{"plane_index": plane}
				swaths.Append(f)
			}
		}
		resp.Swaths = swaths
	}
	if s.grid != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
		defer cancel()
		pop, err := coverage.PopulationCovered(ctx, rp.Constellation, s.grid, rp.MinElevationDeg, offset)
		if err != nil {
			s.failRun(w, r, observability.KindCoverage, time.Since(start), err)
			return
		}
		resp.Population = pop
	}
	elapsed := time.Since(start)

	s.metrics.RecordRun(observability.KindCoverage, observability.OutcomeOK, elapsed)
	s.shell.SetShell(rp.Constellation.SatelliteCount, rp.Constellation.OrbitalPlanes)
	logging.FromContext(r.Context(), s.log).Info(r.Context(), "coverage run complete",
		logging.Int("footprints", len(fc.Features)),
		logging.Bool("population", resp.Population != nil),
		logging.Duration("elapsed", elapsed),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePresetList(w http.ResponseWriter, r *http.Request) {
	presets := s.store.List()
	writeJSON(w, http.StatusOK, presetListResponse{Count: len(presets), Presets: presets})
}

func (s *Server) handlePresetAdd(w http.ResponseWriter, r *http.Request) {
	preset, err := scenario.DecodePreset(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.store.Add(preset); err != nil {
		writeError(w, r, statusForError(err), err)
		return
	}
	logging.FromContext(r.Context(), s.log).Info(r.Context(), "preset added",
		logging.String("preset", preset.Name))
	writeJSON(w, http.StatusCreated, preset)
}

func (s *Server) handlePresetGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, r, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePresetRemove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.store.Remove(name); err != nil {
		writeError(w, r, statusForError(err), err)
		return
	}
	logging.FromContext(r.Context(), s.log).Info(r.Context(), "preset removed",
		logging.String("preset", name))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnimationGet(w http.ResponseWriter, r *http.Request) {
	if s.clock == nil {
		writeError(w, r, http.StatusServiceUnavailable, errNoClock)
		return
	}
	writeJSON(w, http.StatusOK, s.clock.State())
}

func (s *Server) handleAnimationSet(w http.ResponseWriter, r *http.Request) {
	if s.clock == nil {
		writeError(w, r, http.StatusServiceUnavailable, errNoClock)
		return
	}
	var st timectrl.State
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.clock.Apply(st); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.clock.State())
}

// ---------- shared handler plumbing ----------

// resolveRun decodes and resolves the shared run body, writing the error
// response itself when something is off.
func (s *Server) resolveRun(w http.ResponseWriter, r *http.Request, kind string) (runParams, bool) {
	req, err := decodeSimulationRequest(r)
	var rp runParams
	if err == nil {
		rp, err = req.resolve(s.store)
	}
	if err != nil {
		s.metrics.RecordRun(kind, runOutcome(err), 0)
		writeError(w, r, statusForError(err), err)
		return rp, false
	}
	return rp, true
}

// failRun records the failed run and translates the error for the client.
func (s *Server) failRun(w http.ResponseWriter, r *http.Request, kind string, elapsed time.Duration, err error) {
	s.metrics.RecordRun(kind, runOutcome(err), elapsed)
	logging.FromContext(r.Context(), s.log).Warn(r.Context(), "run failed",
		logging.String("kind", kind), logging.Err(err))
	writeError(w, r, statusForError(err), err)
}

// newGammaFitPayload samples the fitted pdf and cdf across the observed
// power range.
func newGammaFitPayload(fit core.GammaFit, samples []float64) *gammaFitPayload {
	lo, hi := samples[0], samples[0]
	for _, v := range samples {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	const points = 101
	p := &gammaFitPayload{
		Alpha: fit.Alpha,
		Beta:  fit.Beta,
		Loc:   fit.Loc,
		Mean:  fit.Mean(),
	}
	if hi <= lo {
		return p
	}
	p.Xs = make([]float64, points)
	p.PDF = make([]float64, points)
	p.CDF = make([]float64, points)
	step := (hi - lo) / float64(points-1)
	for i := 0; i < points; i++ {
		x := lo + float64(i)*step
		p.Xs[i] = x
		p.PDF[i] = fit.PDF(x)
		p.CDF[i] = fit.CDF(x)
	}
	return p
}
