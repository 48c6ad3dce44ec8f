package core

import (
	"context"
	"math"
	"sort"

	"github.com/signalsfoundry/leosim/model"
)

// PassTrackPoint is one az/el/range fix recorded while a pass is open.
type PassTrackPoint struct {
	TimeS        float64 `json:"time_s"`
	AzimuthDeg   float64 `json:"azimuth_deg"`
	ElevationDeg float64 `json:"elevation_deg"`
	RangeKm      float64 `json:"range_km"`
}

// Pass is a contiguous visibility window over the ground station. EndS is
// the time of the first step after visibility drops, or the end of the run
// for a pass still open when the simulation stops.
type Pass struct {
	StartS          float64          `json:"start_s"`
	EndS            float64          `json:"end_s"`
	DurationS       float64          `json:"duration_s"`
	MaxElevationDeg float64          `json:"max_elevation_deg"`
	Track           []PassTrackPoint `json:"track,omitempty"`
}

// MissionResult aggregates a long-duration propagation: orbital rates, the
// extracted passes, and the indices of the min/median/max duration passes
// for display.
type MissionResult struct {
	PeriodS        float64 `json:"period_s"`
	MeanMotionRadS float64 `json:"mean_motion_rad_s"`
	RaanDriftRadS  float64 `json:"raan_drift_rad_s"`
	Revolutions    float64 `json:"revolutions"`

	StepCount          int     `json:"step_count"`
	VisibleSteps       int     `json:"visible_steps"`
	VisibilityFraction float64 `json:"visibility_fraction"`

	PassCount     int     `json:"pass_count"`
	TotalContactS float64 `json:"total_contact_s"`
	MeanPassS     float64 `json:"mean_pass_s"`

	MinPassIndex    int `json:"min_pass_index"`
	MedianPassIndex int `json:"median_pass_index"`
	MaxPassIndex    int `json:"max_pass_index"`

	Passes []Pass `json:"passes"`
}

// RunMission propagates a single satellite of the shell over the mission
// window and extracts ground station passes.
//
// The orbit is circular with J2 nodal regression; Earth rotation is folded
// into the node so the station can stay fixed at longitude zero. Each step
// computes the look angles from the station; a pass opens when elevation
// first clears the mask and closes on the first step below it (or at the
// end of the run). Passes with two or fewer track points are discarded as
// grazing noise.
func RunMission(ctx context.Context, c model.ConstellationParams, g model.GroundStationParams, m model.MissionParams) (*MissionResult, error) {
	if err := model.ValidateConstellation(c); err != nil {
		return nil, err
	}
	if err := model.ValidateGroundStation(g); err != nil {
		return nil, err
	}
	if err := model.ValidateMission(m); err != nil {
		return nil, err
	}

	r := EarthRadiusKm + c.AltitudeKm
	n := MeanMotionRadS(c.AltitudeKm)
	period := OrbitalPeriodS(c.AltitudeKm)
	raanRate := RaanDriftRadS(c.AltitudeKm, c.InclinationDeg)

	sinInc, cosInc := math.Sincos(c.InclinationDeg * math.Pi / 180)
	latRad := g.LatitudeDeg * math.Pi / 180
	station := Vec3{X: EarthRadiusKm * math.Cos(latRad), Y: 0, Z: EarthRadiusKm * math.Sin(latRad)}

	steps := m.Steps()
	elapsed := m.Days * 86400.0

	res := &MissionResult{
		PeriodS:         period,
		MeanMotionRadS:  n,
		RaanDriftRadS:   raanRate,
		Revolutions:     elapsed / period,
		StepCount:       steps,
		MinPassIndex:    -1,
		MedianPassIndex: -1,
		MaxPassIndex:    -1,
	}

	var open *Pass
	for i := 0; i < steps; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		t := float64(i) * m.StepSeconds
		anomaly := n * t

		// Nodal drift minus Earth rotation, relative to the fixed station.
		node := (raanRate-EarthRotationRadS)*t + m.StartRaanRad

		sinM, cosM := math.Sincos(anomaly)
		sinO, cosO := math.Sincos(node)
		sat := Vec3{
			X: r * (cosO*cosM - sinO*sinM*cosInc),
			Y: r * (sinO*cosM + cosO*sinM*cosInc),
			Z: r * sinM * sinInc,
		}

		look := LookAnglesTo(station, sat)
		if look.ElevationDeg >= g.MinElevationDeg {
			res.VisibleSteps++
			if open == nil {
				open = &Pass{StartS: t, MaxElevationDeg: math.Inf(-1)}
			}
			open.Track = append(open.Track, PassTrackPoint{
				TimeS:        t,
				AzimuthDeg:   look.AzimuthDeg,
				ElevationDeg: look.ElevationDeg,
				RangeKm:      look.RangeKm,
			})
			if look.ElevationDeg > open.MaxElevationDeg {
				open.MaxElevationDeg = look.ElevationDeg
			}
		} else if open != nil {
			closePass(res, open, t)
			open = nil
		}
	}
	if open != nil {
		closePass(res, open, elapsed)
	}

	res.VisibilityFraction = float64(res.VisibleSteps) / float64(steps)
	res.PassCount = len(res.Passes)
	if res.PassCount > 0 {
		res.MeanPassS = res.TotalContactS / float64(res.PassCount)
		res.MinPassIndex, res.MedianPassIndex, res.MaxPassIndex = RepresentativePasses(res.Passes)
	}
	return res, nil
}

// closePass finalises a pass at endS and appends it unless the track is too
// short to be a real contact.
func closePass(res *MissionResult, p *Pass, endS float64) {
	if len(p.Track) <= 2 {
		return
	}
	p.EndS = endS
	p.DurationS = endS - p.StartS
	res.Passes = append(res.Passes, *p)
	res.TotalContactS += p.DurationS
}

// RepresentativePasses returns the indices of the shortest, median and
// longest passes by duration. The median is the floor(n/2) element of the
// duration-sorted order. All three are -1 when passes is empty.
func RepresentativePasses(passes []Pass) (minIdx, medianIdx, maxIdx int) {
	if len(passes) == 0 {
		return -1, -1, -1
	}
	order := make([]int, len(passes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return passes[order[a]].DurationS < passes[order[b]].DurationS
	})
	return order[0], order[len(order)/2], order[len(order)-1]
}
