package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ConstellationCollector exposes gauges describing the simulated system's
// current shape: shell geometry, inter-satellite link counts, the preset
// inventory, and the animation clock.
type ConstellationCollector struct {
	gatherer prometheus.Gatherer

	Satellites      prometheus.Gauge
	Planes          prometheus.Gauge
	ISLLinks        *prometheus.GaugeVec
	Presets         prometheus.Gauge
	AnimationOffset prometheus.Gauge
}

// NewConstellationCollector registers constellation metrics against the
// provided registerer.
func NewConstellationCollector(reg prometheus.Registerer) (*ConstellationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	satellites := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "constellation_satellites",
		Help: "Satellite count of the most recently simulated shell.",
	})
	satellites, err := registerGauge(reg, satellites, "constellation_satellites")
	if err != nil {
		return nil, err
	}

	planes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "constellation_planes",
		Help: "Orbital plane count of the most recently simulated shell.",
	})
	planes, err = registerGauge(reg, planes, "constellation_planes")
	if err != nil {
		return nil, err
	}

	islLinks := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "isl_links",
		Help: "Inter-satellite link counts from the most recent topology build, labeled by link set.",
	}, []string{"set"})
	islLinks, err = registerGaugeVec(reg, islLinks, "isl_links")
	if err != nil {
		return nil, err
	}

	presets := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_presets",
		Help: "Number of scenario presets currently loaded.",
	})
	presets, err = registerGauge(reg, presets, "scenario_presets")
	if err != nil {
		return nil, err
	}

	animation := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "animation_time_offset_rad",
		Help: "Current animation clock offset in radians.",
	})
	animation, err = registerGauge(reg, animation, "animation_time_offset_rad")
	if err != nil {
		return nil, err
	}

	return &ConstellationCollector{
		gatherer:        gatherer,
		Satellites:      satellites,
		Planes:          planes,
		ISLLinks:        islLinks,
		Presets:         presets,
		AnimationOffset: animation,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ConstellationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// SetShell records the shape of the most recently simulated constellation.
func (c *ConstellationCollector) SetShell(satellites, planes int) {
	if c == nil {
		return
	}
	if c.Satellites != nil {
		c.Satellites.Set(float64(satellites))
	}
	if c.Planes != nil {
		c.Planes.Set(float64(planes))
	}
}

// SetISLCounts updates the per-set link gauges.
func (c *ConstellationCollector) SetISLCounts(crossPlane, rightLeft, intraPlane, interPlane int) {
	if c == nil || c.ISLLinks == nil {
		return
	}
	c.ISLLinks.WithLabelValues("cross_plane").Set(float64(crossPlane))
	c.ISLLinks.WithLabelValues("right_left").Set(float64(rightLeft))
	c.ISLLinks.WithLabelValues("intra_plane").Set(float64(intraPlane))
	c.ISLLinks.WithLabelValues("inter_plane").Set(float64(interPlane))
}

// SetPresetCount updates the preset inventory gauge.
func (c *ConstellationCollector) SetPresetCount(count int) {
	if c == nil || c.Presets == nil {
		return
	}
	c.Presets.Set(float64(count))
}

// SetAnimationOffset records the animation clock position.
func (c *ConstellationCollector) SetAnimationOffset(rad float64) {
	if c == nil || c.AnimationOffset == nil {
		return
	}
	c.AnimationOffset.Set(rad)
}
