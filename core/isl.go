package core

import (
	"math"

	"github.com/signalsfoundry/leosim/model"
)

// ISLLink is a directed inter-satellite link between two satellite indices.
type ISLLink struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ISLTopology is the full link picture for one constellation snapshot. The
// four sets model the distinct antenna assignments of a typical LEO bird:
// two seam-crossing links between the ascending and descending halves, one
// along-track link, and one side link into the adjacent plane.
type ISLTopology struct {
	MinDot          float64 `json:"min_dot"`
	AscendingCount  int     `json:"ascending_count"`
	DescendingCount int     `json:"descending_count"`

	CrossPlane []ISLLink `json:"cross_plane"`
	RightLeft  []ISLLink `json:"right_left"`
	IntraPlane []ISLLink `json:"intra_plane"`
	InterPlane []ISLLink `json:"inter_plane"`
}

// BuildISLTopology classifies the fleet into ascending and descending
// groups and computes the four link sets at the given time offset. Every
// returned link clears the line-of-sight dot threshold derived from the
// orbit altitude and the minimum communication altitude.
//
// Neighbour selection is greedy per satellite, not a global matching: two
// ascending satellites may pick the same descending partner. The whole
// topology is recomputed from scratch on every call; at constellation
// scales of a few hundred satellites the quadratic search is cheap enough
// that no incremental structure is worth its complexity.
func BuildISLTopology(c model.ConstellationParams, p model.ISLParams, timeOffset float64) (*ISLTopology, error) {
	if err := model.ValidateConstellation(c); err != nil {
		return nil, err
	}
	if err := model.ValidateISL(p); err != nil {
		return nil, err
	}

	states := ConstellationState(c, timeOffset)
	minDot := MinLinkDot(EarthRadiusKm+p.MinCommAltitudeKm, EarthRadiusKm+c.AltitudeKm)

	var ascending, descending []int
	for i := range states {
		if states[i].Ascending {
			ascending = append(ascending, i)
		} else {
			descending = append(descending, i)
		}
	}

	topo := &ISLTopology{
		MinDot:          minDot,
		AscendingCount:  len(ascending),
		DescendingCount: len(descending),
	}

	// Cross-plane: each ascending satellite grabs its nearest descending
	// neighbour. The chosen pairs are reserved so the return pass below
	// has to use a different physical link.
	taken := make(map[ISLLink]bool)
	for _, a := range ascending {
		if b, dot := nearestOf(states, a, descending, nil); b >= 0 && dot >= minDot {
			topo.CrossPlane = append(topo.CrossPlane, ISLLink{From: a, To: b})
			taken[ISLLink{From: a, To: b}] = true
		}
	}

	// Right-left: the symmetric pass from descending to ascending, skipping
	// pairs already serving a cross-plane link.
	for _, d := range descending {
		excluded := func(candidate int) bool {
			return taken[ISLLink{From: candidate, To: d}]
		}
		if b, dot := nearestOf(states, d, ascending, excluded); b >= 0 && dot >= minDot {
			topo.RightLeft = append(topo.RightLeft, ISLLink{From: d, To: b})
		}
	}

	// Intra-plane: cyclic successor within each plane.
	planes := planeMembers(states, c.OrbitalPlanes)
	for _, members := range planes {
		if len(members) < 2 {
			continue
		}
		for k, s := range members {
			next := members[(k+1)%len(members)]
			if states[s].Unit.Dot(states[next].Unit) >= minDot {
				topo.IntraPlane = append(topo.IntraPlane, ISLLink{From: s, To: next})
			}
		}
	}

	// Inter-plane: nearest neighbour in the next plane over, staying inside
	// the satellite's own ascending/descending group.
	for i := range states {
		adjacent := (states[i].PlaneIndex + 1) % c.OrbitalPlanes
		var candidates []int
		for _, j := range planes[adjacent] {
			if j != i && states[j].Ascending == states[i].Ascending {
				candidates = append(candidates, j)
			}
		}
		if b, dot := nearestOf(states, i, candidates, nil); b >= 0 && dot >= minDot {
			topo.InterPlane = append(topo.InterPlane, ISLLink{From: i, To: b})
		}
	}

	return topo, nil
}

// nearestOf returns the candidate whose unit vector has the largest dot
// product with satellite from, skipping any candidate the exclude filter
// rejects. Returns -1 when no candidate qualifies.
func nearestOf(states []SatelliteState, from int, candidates []int, exclude func(int) bool) (int, float64) {
	best := -1
	bestDot := math.Inf(-1)
	for _, c := range candidates {
		if exclude != nil && exclude(c) {
			continue
		}
		if dot := states[from].Unit.Dot(states[c].Unit); dot > bestDot {
			bestDot = dot
			best = c
		}
	}
	return best, bestDot
}

// planeMembers groups satellite indices by plane, ordered by in-plane slot.
func planeMembers(states []SatelliteState, planeCount int) [][]int {
	planes := make([][]int, planeCount)
	for i := range states {
		p := states[i].PlaneIndex
		planes[p] = append(planes[p], i)
	}
	return planes
}
