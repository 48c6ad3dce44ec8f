// Package scenario holds named parameter presets: ready-made constellation,
// ground station and hardware bundles the API serves as starting points.
package scenario

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/leosim/model"
)

var (
	ErrPresetExists   = errors.New("preset already exists")
	ErrPresetNotFound = errors.New("preset not found")
)

// Preset bundles the parameter records for one named scenario. Mission and
// ISL sections are optional; simulations that need them fall back to their
// own defaults when absent.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Constellation model.ConstellationParams `json:"constellation"`
	GroundStation model.GroundStationParams `json:"ground_station"`
	Hardware      model.HardwareParams      `json:"hardware"`

	Mission *model.MissionParams `json:"mission,omitempty"`
	ISL     *model.ISLParams     `json:"isl,omitempty"`
}

// clone returns a copy whose optional sections no longer alias the
// receiver's.
func (p Preset) clone() Preset {
	if p.Mission != nil {
		m := *p.Mission
		p.Mission = &m
	}
	if p.ISL != nil {
		i := *p.ISL
		p.ISL = &i
	}
	return p
}

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventPresetAdded EventType = iota
	EventPresetRemoved
)

// Event is emitted to subscribers when the preset set changes.
type Event struct {
	Type   EventType
	Preset Preset
}

// Store is an in-memory, thread-safe preset collection. Presets are value
// types: the store keeps its own copies and hands out copies, so callers
// can never mutate a preset another request is reading.
type Store struct {
	mu sync.RWMutex

	presets map[string]Preset

	subs []func(Event)
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{presets: make(map[string]Preset)}
}

// Add inserts a new preset. It returns an error if the name is empty or
// already taken.
func (s *Store) Add(p Preset) error {
	if p.Name == "" {
		return fmt.Errorf("preset with empty name")
	}

	s.mu.Lock()
	if _, exists := s.presets[p.Name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrPresetExists, p.Name)
	}
	s.presets[p.Name] = p.clone()
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	event := Event{Type: EventPresetAdded, Preset: p.clone()}
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Get returns a copy of the named preset.
func (s *Store) Get(name string) (Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return p.clone(), nil
}

// Remove deletes the named preset and notifies subscribers.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	p, ok := s.presets[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	delete(s.presets, name)
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	event := Event{Type: EventPresetRemoved, Preset: p.clone()}
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// List returns a snapshot of all presets, sorted by name so responses stay
// stable across calls.
func (s *Store) List() []Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]Preset, 0, len(s.presets))
	for _, p := range s.presets {
		res = append(res, p.clone())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// Count returns the number of stored presets.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.presets)
}

// Subscribe registers a callback for store events. It returns an
// unsubscribe function.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < 0 || idx >= len(s.subs) {
			return
		}
		s.subs = append(s.subs[:idx], s.subs[idx+1:]...)
		idx = -1
	}
}
