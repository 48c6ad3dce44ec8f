package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/signalsfoundry/leosim/core"
	"github.com/signalsfoundry/leosim/coverage"
	"github.com/signalsfoundry/leosim/model"
	"github.com/signalsfoundry/leosim/scenario"
)

// report bundles every analysis the one-shot CLI runs for a scenario.
type report struct {
	Preset        string                    `json:"preset,omitempty"`
	TimeOffsetRad float64                   `json:"time_offset_rad"`
	Constellation model.ConstellationParams `json:"constellation"`
	GroundStation model.GroundStationParams `json:"ground_station"`

	LinkBudget *core.LinkBudgetResult       `json:"link_budget,omitempty"`
	Gamma      *core.GammaFit               `json:"gamma,omitempty"`
	Mission    *core.MissionResult          `json:"mission,omitempty"`
	ISL        *core.ISLTopology            `json:"isl,omitempty"`
	Coverage   *coverage.Summary            `json:"coverage,omitempty"`
	Population *coverage.PopulationCoverage `json:"population,omitempty"`
}

// reportInputs is the fully resolved scenario the report is built from.
type reportInputs struct {
	PresetName    string
	Constellation model.ConstellationParams
	GroundStation model.GroundStationParams
	Hardware      model.HardwareParams
	MonteCarlo    model.MonteCarloParams
	Mission       model.MissionParams
	ISL           model.ISLParams

	MinElevationDeg float64
	TimeOffsetRad   float64
	Grid            *coverage.PopulationGrid
}

func main() {
	presetPath := flag.String("presets", "configs/presets.json", "path to a JSON preset file")
	presetName := flag.String("preset", "", "preset to analyse (empty runs the built-in shell)")
	samples := flag.Int("samples", 1000, "Monte Carlo draws for the link budget")
	seed := flag.Uint64("seed", 0, "Monte Carlo seed (0 derives one from the clock)")
	workers := flag.Int("workers", 0, "Monte Carlo workers (0 uses all CPUs)")
	days := flag.Float64("days", 0, "mission duration in days (0 keeps the scenario's)")
	timeOffset := flag.Float64("time-offset", 0, "constellation time offset in radians")
	minElevation := flag.Float64("min-elevation", 10, "coverage elevation mask in degrees")
	gridPath := flag.String("population-grid", "", "optional NetCDF population grid for coverage")
	jsonOut := flag.Bool("json", false, "print one JSON report instead of text")
	flag.Parse()

	// ==== Scenario selection ====

	c := model.ConstellationParams{
		SatelliteCount:      458,
		OrbitalPlanes:       12,
		InclinationDeg:      53,
		AltitudeKm:          550,
		PlanePhaseOffsetRad: model.DefaultPlanePhaseOffsetRad,
	}
	g := model.GroundStationParams{LatitudeDeg: 40.7128, MinElevationDeg: 10}
	h := model.HardwareParams{FrequencyGHz: 12, EIRPDbW: 50, GrDbK: 10, RequiredPowerDbW: -160}
	mission := model.MissionParams{Days: 1, StepSeconds: 60}
	isl := model.ISLParams{MinCommAltitudeKm: 100}

	if *presetName != "" {
		p := mustLoadPreset(*presetPath, *presetName)
		c, g, h = p.Constellation, p.GroundStation, p.Hardware
		if p.Mission != nil {
			mission = *p.Mission
		}
		if p.ISL != nil {
			isl = *p.ISL
		}
	}
	if *days > 0 {
		mission.Days = *days
	}

	var grid *coverage.PopulationGrid
	if *gridPath != "" {
		var err error
		if grid, err = coverage.LoadPopulationGrid(*gridPath); err != nil {
			panic(fmt.Errorf("failed to load population grid %q: %w", *gridPath, err))
		}
	}

	// ==== Analysis ====

	rep, err := buildReport(context.Background(), reportInputs{
		PresetName:      *presetName,
		Constellation:   c,
		GroundStation:   g,
		Hardware:        h,
		MonteCarlo:      model.MonteCarloParams{Samples: *samples, Workers: *workers, Seed: *seed},
		Mission:         mission,
		ISL:             isl,
		MinElevationDeg: *minElevation,
		TimeOffsetRad:   *timeOffset,
		Grid:            grid,
	})
	if err != nil {
		panic(err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			panic(err)
		}
		return
	}
	printReport(rep)
}

// buildReport runs the link budget, mission, ISL and coverage analyses for
// one scenario snapshot.
func buildReport(ctx context.Context, in reportInputs) (*report, error) {
	rep := &report{
		Preset:        in.PresetName,
		TimeOffsetRad: in.TimeOffsetRad,
		Constellation: in.Constellation,
		GroundStation: in.GroundStation,
	}

	lb, err := core.SimulateLinkBudget(ctx, in.Constellation, in.GroundStation, in.Hardware, in.MonteCarlo)
	if err != nil {
		return nil, fmt.Errorf("link budget: %w", err)
	}
	rep.LinkBudget = lb
	if !lb.NoVisibility {
		powers := make([]float64, len(lb.Samples))
		for i, s := range lb.Samples {
			powers[i] = s.ReceivedPowerDbW
		}
		if fit, fitErr := core.FitGamma(powers); fitErr == nil {
			rep.Gamma = &fit
		}
	}

	ms, err := core.RunMission(ctx, in.Constellation, in.GroundStation, in.Mission)
	if err != nil {
		return nil, fmt.Errorf("mission: %w", err)
	}
	rep.Mission = ms

	topo, err := core.BuildISLTopology(in.Constellation, in.ISL, in.TimeOffsetRad)
	if err != nil {
		return nil, fmt.Errorf("isl: %w", err)
	}
	rep.ISL = topo

	fc, err := coverage.ConstellationFootprints(in.Constellation, in.MinElevationDeg, 48, in.TimeOffsetRad)
	if err != nil {
		return nil, fmt.Errorf("coverage: %w", err)
	}
	summary := coverage.Summarize(in.Constellation, in.MinElevationDeg, fc)
	rep.Coverage = &summary

	if in.Grid != nil {
		pop, err := coverage.PopulationCovered(ctx, in.Constellation, in.Grid, in.MinElevationDeg, in.TimeOffsetRad)
		if err != nil {
			return nil, fmt.Errorf("population coverage: %w", err)
		}
		rep.Population = pop
	}

	return rep, nil
}

func printReport(rep *report) {
	c := rep.Constellation
	fmt.Printf("Scenario%s: %d satellites in %d planes, %.1f° inclination @ %.0f km\n",
		presetSuffix(rep.Preset), c.SatelliteCount, c.OrbitalPlanes, c.InclinationDeg, c.AltitudeKm)
	fmt.Printf("Ground station: %.4f° latitude, %.1f° elevation mask\n",
		rep.GroundStation.LatitudeDeg, rep.GroundStation.MinElevationDeg)

	lb := rep.LinkBudget
	if lb.NoVisibility {
		fmt.Printf("Link budget: %s\n", lb.Message)
	} else {
		fmt.Printf("Link budget: %d of %d samples visible (%.1f%%)\n",
			lb.VisibleCount, lb.SampleCount, 100*lb.VisibilityRatio)
		fmt.Printf("↳ Pr expected %.1f dBW, median %.1f, worst %.1f, best %.1f, σ %.1f dB\n",
			lb.ExpectedPrDbW, lb.MedianPrDbW, lb.WorstPrDbW, lb.BestPrDbW, lb.StdDevPrDb)
		fmt.Printf("↳ margin expected %+.1f dB, worst %+.1f, best %+.1f\n",
			lb.Margins.ExpectedDb, lb.Margins.WorstDb, lb.Margins.BestDb)
		if rep.Gamma != nil {
			fmt.Printf("↳ gamma fit α=%.2f β=%.2f loc=%.1f (mean %.1f dBW)\n",
				rep.Gamma.Alpha, rep.Gamma.Beta, rep.Gamma.Loc, rep.Gamma.Mean())
		}
		for _, step := range lb.Waterfall {
			fmt.Printf("↳ %-24s %+8.1f dB → %8.1f dBW\n", step.Label, step.ContributionDb, step.RunningDbW)
		}
	}

	ms := rep.Mission
	fmt.Printf("Mission: %.1f revolutions over %d steps, %d passes, %.0f s total contact (%.1f%% visible)\n",
		ms.Revolutions, ms.StepCount, ms.PassCount, ms.TotalContactS, 100*ms.VisibilityFraction)
	if ms.PassCount > 0 {
		longest := ms.Passes[ms.MaxPassIndex]
		fmt.Printf("↳ passes: shortest %.0f s, median %.0f s, longest %.0f s (max elevation %.1f°)\n",
			ms.Passes[ms.MinPassIndex].DurationS,
			ms.Passes[ms.MedianPassIndex].DurationS,
			longest.DurationS, longest.MaxElevationDeg)
	}

	topo := rep.ISL
	fmt.Printf("ISL topology @ %.2f rad: %d ascending, %d descending\n",
		rep.TimeOffsetRad, topo.AscendingCount, topo.DescendingCount)
	fmt.Printf("↳ links: %d cross-plane, %d right-left, %d intra-plane, %d inter-plane\n",
		len(topo.CrossPlane), len(topo.RightLeft), len(topo.IntraPlane), len(topo.InterPlane))

	cov := rep.Coverage
	fmt.Printf("Coverage: swath %.0f km, cap %.3g km² per satellite, %.1f%% of Earth drawn\n",
		cov.SwathWidthKm, cov.CapAreaKm2, 100*cov.EarthSurfaceShareDrawn)
	if rep.Population != nil {
		p := rep.Population
		fmt.Printf("↳ population: %.3g of %.3g covered (%.1f%%), %d of %d cells\n",
			p.CoveredPopulation, p.TotalPopulation, 100*p.PopulationFraction,
			p.CoveredCells, p.PopulatedCells)
	}
}

func presetSuffix(name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", name)
}

// mustLoadPreset reads the preset file and returns the named preset,
// panicking on any failure since the CLI cannot proceed without it.
func mustLoadPreset(path, name string) scenario.Preset {
	f, err := os.Open(path)
	if err != nil {
		panic(fmt.Errorf("failed to open preset file %q: %w", path, err))
	}
	defer f.Close()

	store := scenario.NewStore()
	if _, err := scenario.LoadPresets(store, f); err != nil {
		panic(fmt.Errorf("failed to load presets from %q: %w", path, err))
	}

	p, err := store.Get(name)
	if err != nil {
		panic(err)
	}
	return p
}
