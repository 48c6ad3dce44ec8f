package core

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"

	"github.com/signalsfoundry/leosim/model"
)

const (
	// systemLossDb lumps feeder, pointing and polarisation losses into a
	// single fixed term on the downlink.
	systemLossDb = 2.0

	// atmosphericZenithLossDb is the one-way zenith attenuation; the slant
	// value scales with the cosecant of elevation.
	atmosphericZenithLossDb = 0.5

	noVisibilityMessage = "No visibility. Check parameters."
)

// ---------- results ----------

// VisibilitySample is a single visible Monte Carlo draw together with the
// link terms derived from it.
type VisibilitySample struct {
	ElevationDeg       float64 `json:"elevation_deg"`
	SlantRangeKm       float64 `json:"slant_range_km"`
	TotalAttenuationDb float64 `json:"total_attenuation_db"`
	ReceivedPowerDbW   float64 `json:"received_power_dbw"`
}

// WaterfallStep is one rung of the gain/loss ladder from transmit EIRP down
// to mean received power.
type WaterfallStep struct {
	Label          string  `json:"label"`
	ContributionDb float64 `json:"contribution_db"`
	RunningDbW     float64 `json:"running_dbw"`
}

// LinkMargins reports received power relative to the receiver requirement
// for the three headline statistics.
type LinkMargins struct {
	ExpectedDb float64 `json:"expected_db"`
	WorstDb    float64 `json:"worst_db"`
	BestDb     float64 `json:"best_db"`
}

// LinkBudgetResult is the aggregate outcome of a Monte Carlo link-budget
// run. When no sample clears the elevation mask, NoVisibility is set, the
// Message explains it, and every statistic is left at its zero value.
type LinkBudgetResult struct {
	NoVisibility bool   `json:"no_visibility"`
	Message      string `json:"message,omitempty"`

	SampleCount     int     `json:"sample_count"`
	VisibleCount    int     `json:"visible_count"`
	VisibilityRatio float64 `json:"visibility_ratio"`

	ExpectedPrDbW float64 `json:"expected_pr_dbw"`
	MedianPrDbW   float64 `json:"median_pr_dbw"`
	WorstPrDbW    float64 `json:"worst_pr_dbw"`
	BestPrDbW     float64 `json:"best_pr_dbw"`
	StdDevPrDb    float64 `json:"std_dev_pr_db"`

	MeanFsplDb        float64 `json:"mean_fspl_db"`
	MeanAtmosphericDb float64 `json:"mean_atmospheric_db"`

	Margins   LinkMargins     `json:"margins"`
	Waterfall []WaterfallStep `json:"waterfall"`

	Samples []VisibilitySample `json:"samples,omitempty"`
}

// Elevations returns the elevation angles of the visible samples, in
// degrees, in sampling order.
func (r *LinkBudgetResult) Elevations() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.ElevationDeg
	}
	return out
}

// ---------- sampling ----------

// shardAccum collects the running aggregates of one sampling goroutine so
// shards merge without locking.
type shardAccum struct {
	samples []VisibilitySample
	sumPr   float64
	sumPrSq float64
	minPr   float64
	maxPr   float64
	sumFspl float64
	sumAtm  float64
}

// SimulateLinkBudget estimates downlink performance by sampling the
// satellite's mean anomaly and node uniformly over the orbit shell, keeping
// the draws that clear the station's elevation mask, and folding free-space
// path loss, slant atmospheric loss and fixed system loss into received
// power for each.
//
// The run fans out across mc.Workers goroutines (host CPU count when zero),
// each with an independent PCG stream derived from mc.Seed, and honours ctx
// cancellation between batches. Zero visible samples is not an error: the
// result comes back with NoVisibility set.
func SimulateLinkBudget(ctx context.Context, c model.ConstellationParams, g model.GroundStationParams, h model.HardwareParams, mc model.MonteCarloParams) (*LinkBudgetResult, error) {
	if err := model.ValidateConstellation(c); err != nil {
		return nil, err
	}
	if err := model.ValidateGroundStation(g); err != nil {
		return nil, err
	}
	if err := model.ValidateHardware(h); err != nil {
		return nil, err
	}
	if err := model.ValidateMonteCarlo(mc); err != nil {
		return nil, err
	}

	workers := mc.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > mc.Samples {
		workers = mc.Samples
	}

	seed := mc.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	perShard := mc.Samples / workers
	extra := mc.Samples % workers

	shards := make([]shardAccum, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		n := perShard
		if i < extra {
			n++
		}
		wg.Add(1)
		go func(shard, draws int) {
			defer wg.Done()
			shards[shard] = sampleShard(ctx, rand.New(rand.NewPCG(seed, uint64(shard)+1)), draws, c, g, h)
		}(i, n)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return assembleResult(shards, mc.Samples, h), nil
}

// sampleShard draws its share of the Monte Carlo samples. Cancellation is
// polled every batch rather than every draw to keep the hot loop tight.
func sampleShard(ctx context.Context, rng *rand.Rand, draws int, c model.ConstellationParams, g model.GroundStationParams, h model.HardwareParams) shardAccum {
	const batch = 1024

	acc := shardAccum{minPr: math.Inf(1), maxPr: math.Inf(-1)}

	r := EarthRadiusKm + c.AltitudeKm
	sinInc, cosInc := math.Sincos(c.InclinationDeg * math.Pi / 180)
	latRad := g.LatitudeDeg * math.Pi / 180
	station := Vec3{X: EarthRadiusKm * math.Cos(latRad), Y: 0, Z: EarthRadiusKm * math.Sin(latRad)}
	minElRad := g.MinElevationDeg * math.Pi / 180
	freqTermDb := 20 * math.Log10(h.FrequencyGHz)

	for done := 0; done < draws; {
		if ctx.Err() != nil {
			return acc
		}
		end := done + batch
		if end > draws {
			end = draws
		}
		for ; done < end; done++ {
			anomaly := rng.Float64() * 2 * math.Pi
			node := rng.Float64() * 2 * math.Pi

			sinM, cosM := math.Sincos(anomaly)
			sinO, cosO := math.Sincos(node)
			sat := Vec3{
				X: r * (cosO*cosM - sinO*sinM*cosInc),
				Y: r * (sinO*cosM + cosO*sinM*cosInc),
				Z: r * sinM * sinInc,
			}

			rel := sat.Sub(station)
			rangeKm := rel.Norm()
			sinEl := station.Dot(rel) / (EarthRadiusKm * rangeKm)
			elRad := math.Asin(Clamp(sinEl, -1, 1))
			if elRad < minElRad {
				continue
			}

			fspl := 92.45 + 20*math.Log10(rangeKm) + freqTermDb
			atm := atmosphericZenithLossDb / math.Sin(elRad)
			attenuation := fspl + atm
			pr := h.EIRPDbW + h.GrDbK - attenuation - systemLossDb

			acc.samples = append(acc.samples, VisibilitySample{
				ElevationDeg:       elRad * 180 / math.Pi,
				SlantRangeKm:       rangeKm,
				TotalAttenuationDb: attenuation,
				ReceivedPowerDbW:   pr,
			})
			acc.sumPr += pr
			acc.sumPrSq += pr * pr
			if pr < acc.minPr {
				acc.minPr = pr
			}
			if pr > acc.maxPr {
				acc.maxPr = pr
			}
			acc.sumFspl += fspl
			acc.sumAtm += atm
		}
	}
	return acc
}

// ---------- statistics ----------

func assembleResult(shards []shardAccum, sampleCount int, h model.HardwareParams) *LinkBudgetResult {
	res := &LinkBudgetResult{SampleCount: sampleCount}

	visible := 0
	for i := range shards {
		visible += len(shards[i].samples)
	}
	if visible == 0 {
		res.NoVisibility = true
		res.Message = noVisibilityMessage
		return res
	}

	res.VisibleCount = visible
	res.VisibilityRatio = float64(visible) / float64(sampleCount)
	res.Samples = make([]VisibilitySample, 0, visible)

	minPr, maxPr := math.Inf(1), math.Inf(-1)
	var sumPr, sumPrSq, sumFspl, sumAtm float64
	for i := range shards {
		res.Samples = append(res.Samples, shards[i].samples...)
		sumPr += shards[i].sumPr
		sumPrSq += shards[i].sumPrSq
		sumFspl += shards[i].sumFspl
		sumAtm += shards[i].sumAtm
		if shards[i].minPr < minPr {
			minPr = shards[i].minPr
		}
		if shards[i].maxPr > maxPr {
			maxPr = shards[i].maxPr
		}
	}

	n := float64(visible)
	mean := sumPr / n
	variance := sumPrSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	res.ExpectedPrDbW = mean
	res.WorstPrDbW = minPr
	res.BestPrDbW = maxPr
	res.StdDevPrDb = math.Sqrt(variance)
	res.MeanFsplDb = sumFspl / n
	res.MeanAtmosphericDb = sumAtm / n

	prs := make([]float64, visible)
	for i, s := range res.Samples {
		prs[i] = s.ReceivedPowerDbW
	}
	sort.Float64s(prs)
	res.MedianPrDbW = medianOfSorted(prs)

	res.Margins = LinkMargins{
		ExpectedDb: res.ExpectedPrDbW - h.RequiredPowerDbW,
		WorstDb:    res.WorstPrDbW - h.RequiredPowerDbW,
		BestDb:     res.BestPrDbW - h.RequiredPowerDbW,
	}
	res.Waterfall = buildWaterfall(h, res.MeanFsplDb, res.MeanAtmosphericDb)
	return res
}

// buildWaterfall lays out the budget ladder using mean losses, so the final
// rung lands on the expected received power.
func buildWaterfall(h model.HardwareParams, meanFspl, meanAtm float64) []WaterfallStep {
	steps := []struct {
		label string
		db    float64
	}{
		{"EIRP", h.EIRPDbW},
		{"Free-space path loss", -meanFspl},
		{"Atmospheric loss", -meanAtm},
		{"Receive gain", h.GrDbK},
		{"System loss", -systemLossDb},
	}

	out := make([]WaterfallStep, len(steps))
	running := 0.0
	for i, s := range steps {
		running += s.db
		out[i] = WaterfallStep{Label: s.label, ContributionDb: s.db, RunningDbW: running}
	}
	return out
}

func medianOfSorted(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}
