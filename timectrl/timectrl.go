// Package timectrl drives the shared animation clock for constellation
// views. The simulation core never reads this clock; callers sample the
// offset and pass it into core queries as an explicit time parameter.
package timectrl

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// DefaultStepRadPerSecond is the anomaly advance rate at speed 1.
const DefaultStepRadPerSecond = 0.3

// State is a transport snapshot of the clock.
type State struct {
	TimeOffsetRad float64 `json:"time_offset_rad"`
	Playing       bool    `json:"playing"`
	Speed         float64 `json:"speed"`
}

// AnimationClock accumulates a mean-anomaly time offset while playing.
// The offset is kept wrapped to [0, 2π) so float precision cannot degrade
// over long uptimes; every consumer feeds it into trigonometry, where the
// wrap is invisible.
type AnimationClock struct {
	mu sync.RWMutex

	offset  float64
	playing bool
	speed   float64

	stepRadPerSecond float64

	listeners []func(float64)
}

// NewAnimationClock constructs a playing clock at offset zero and speed 1.
// A non-positive rate falls back to DefaultStepRadPerSecond.
func NewAnimationClock(stepRadPerSecond float64) *AnimationClock {
	if stepRadPerSecond <= 0 {
		stepRadPerSecond = DefaultStepRadPerSecond
	}
	return &AnimationClock{
		playing:          true,
		speed:            1.0,
		stepRadPerSecond: stepRadPerSecond,
	}
}

// State returns the current snapshot.
func (c *AnimationClock) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{TimeOffsetRad: c.offset, Playing: c.playing, Speed: c.speed}
}

// Offset returns the current time offset in radians.
func (c *AnimationClock) Offset() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Apply replaces the clock state. Speed must be finite and non-negative,
// the offset finite; the offset is wrapped into [0, 2π).
func (c *AnimationClock) Apply(st State) error {
	if math.IsNaN(st.Speed) || math.IsInf(st.Speed, 0) || st.Speed < 0 {
		return fmt.Errorf("animation speed must be finite and >= 0, got %g", st.Speed)
	}
	if math.IsNaN(st.TimeOffsetRad) || math.IsInf(st.TimeOffsetRad, 0) {
		return fmt.Errorf("animation offset must be finite, got %g", st.TimeOffsetRad)
	}

	c.mu.Lock()
	c.offset = wrapOffset(st.TimeOffsetRad)
	c.playing = st.Playing
	c.speed = st.Speed
	c.mu.Unlock()
	return nil
}

// AddListener registers a callback invoked with the new offset after every
// advance while playing.
func (c *AnimationClock) AddListener(fn func(float64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Advance moves the offset forward by dt at the current speed. It is a
// no-op while paused. Run calls this on every tick; tests can call it
// directly for deterministic stepping.
func (c *AnimationClock) Advance(dt time.Duration) {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	c.offset = wrapOffset(c.offset + c.speed*c.stepRadPerSecond*dt.Seconds())
	offset := c.offset
	listeners := append([]func(float64){}, c.listeners...)
	c.mu.Unlock()

	// Notify outside the lock so a listener can query the clock.
	for _, fn := range listeners {
		fn(offset)
	}
}

// Run advances the clock on a ticker until ctx is cancelled. A
// non-positive tick falls back to 50ms.
func (c *AnimationClock) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Advance(tick)
		}
	}
}

func wrapOffset(v float64) float64 {
	v = math.Mod(v, 2*math.Pi)
	if v < 0 {
		v += 2 * math.Pi
	}
	return v
}
