package coverage

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/signalsfoundry/leosim/core"
	"github.com/signalsfoundry/leosim/model"
)

// ErrPopulationGrid reports a population dataset that cannot be used for
// coverage scoring.
var ErrPopulationGrid = errors.New("coverage: invalid population grid")

// PopulationGrid is a regular lat/lon grid of population counts. Rows are
// ordered by ascending latitude regardless of the source file's order, and
// cell values are sanitised to be finite and non-negative (fill values in
// public datasets are typically large negatives).
type PopulationGrid struct {
	LatDeg     []float64
	LonDeg     []float64
	Population [][]float64

	total  float64
	latSin []float64
	latCos []float64
	lonSin []float64
	lonCos []float64
}

// NewPopulationGrid builds a grid from raw vectors and a count matrix laid
// out as Population[latIndex][lonIndex].
func NewPopulationGrid(latDeg, lonDeg []float64, population [][]float64) (*PopulationGrid, error) {
	if len(latDeg) == 0 || len(lonDeg) == 0 {
		return nil, fmt.Errorf("%w: empty axis", ErrPopulationGrid)
	}
	if len(population) != len(latDeg) {
		return nil, fmt.Errorf("%w: %d rows for %d latitudes", ErrPopulationGrid, len(population), len(latDeg))
	}

	lats := append([]float64(nil), latDeg...)
	lons := append([]float64(nil), lonDeg...)
	cells := make([][]float64, len(population))
	for i, row := range population {
		if len(row) != len(lonDeg) {
			return nil, fmt.Errorf("%w: row %d has %d columns for %d longitudes", ErrPopulationGrid, i, len(row), len(lonDeg))
		}
		cells[i] = append([]float64(nil), row...)
	}

	if !monotonic(lats) {
		return nil, fmt.Errorf("%w: latitudes not monotonic", ErrPopulationGrid)
	}
	if !monotonic(lons) {
		return nil, fmt.Errorf("%w: longitudes not monotonic", ErrPopulationGrid)
	}
	if len(lats) > 1 && lats[0] > lats[len(lats)-1] {
		reverse(lats)
		for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
			cells[i], cells[j] = cells[j], cells[i]
		}
	}

	g := &PopulationGrid{LatDeg: lats, LonDeg: lons, Population: cells}
	for _, row := range cells {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				v = 0
				row[j] = 0
			}
			g.total += v
		}
	}

	g.latSin = make([]float64, len(lats))
	g.latCos = make([]float64, len(lats))
	for i, lat := range lats {
		g.latSin[i], g.latCos[i] = math.Sincos(lat * math.Pi / 180)
	}
	g.lonSin = make([]float64, len(lons))
	g.lonCos = make([]float64, len(lons))
	for j, lon := range lons {
		g.lonSin[j], g.lonCos[j] = math.Sincos(lon * math.Pi / 180)
	}
	return g, nil
}

// LoadPopulationGrid reads a NetCDF population dataset from disk. It
// accepts the variable names used by the common public grids: lat or
// latitude, lon or longitude, and population, pop or density.
func LoadPopulationGrid(path string) (*PopulationGrid, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("coverage: open %s: %w", path, err)
	}
	defer nc.Close()
	return gridFromGroup(nc)
}

func gridFromGroup(nc api.Group) (*PopulationGrid, error) {
	latVar, err := groupVariable(nc, "lat", "latitude")
	if err != nil {
		return nil, err
	}
	lonVar, err := groupVariable(nc, "lon", "longitude")
	if err != nil {
		return nil, err
	}
	popVar, err := groupVariable(nc, "population", "pop", "density")
	if err != nil {
		return nil, err
	}

	lats, ok := floatVector(latVar.Values)
	if !ok {
		return nil, fmt.Errorf("%w: latitude values are %T, want a numeric vector", ErrPopulationGrid, latVar.Values)
	}
	lons, ok := floatVector(lonVar.Values)
	if !ok {
		return nil, fmt.Errorf("%w: longitude values are %T, want a numeric vector", ErrPopulationGrid, lonVar.Values)
	}
	cells, ok := floatMatrix(popVar.Values)
	if !ok {
		return nil, fmt.Errorf("%w: population values are %T, want a numeric matrix", ErrPopulationGrid, popVar.Values)
	}
	if len(popVar.Dimensions) != 2 {
		return nil, fmt.Errorf("%w: population has %d dimensions, want 2", ErrPopulationGrid, len(popVar.Dimensions))
	}
	if len(cells) == len(lons) && len(cells) != len(lats) {
		cells = transpose(cells)
	}
	return NewPopulationGrid(lats, lons, cells)
}

func groupVariable(nc api.Group, names ...string) (*api.Variable, error) {
	for _, name := range names {
		if vr, err := nc.GetVariable(name); err == nil && vr != nil {
			return vr, nil
		}
	}
	return nil, fmt.Errorf("%w: no variable named %v (file has %v)", ErrPopulationGrid, names, nc.ListVariables())
}

// TotalPopulation returns the sum over all cells.
func (g *PopulationGrid) TotalPopulation() float64 { return g.total }

// CellAt returns the indices of the grid cell nearest to a point. The
// longitude axis is treated as circular.
func (g *PopulationGrid) CellAt(latDeg, lonDeg float64) (row, col int) {
	row, best := 0, math.MaxFloat64
	for i, lat := range g.LatDeg {
		if d := math.Abs(lat - latDeg); d < best {
			row, best = i, d
		}
	}
	col, best = 0, math.MaxFloat64
	for j, lon := range g.LonDeg {
		d := math.Abs(math.Mod(lon-lonDeg+540, 360) - 180)
		if d < best {
			col, best = j, d
		}
	}
	return row, col
}

// PopulationWithin sums the population of every cell whose centre lies
// within the given angular radius of a point.
func (g *PopulationGrid) PopulationWithin(latDeg, lonDeg, radiusRad float64) float64 {
	u := core.UnitVectorFromLatLon(latDeg, lonDeg)
	threshold := math.Cos(radiusRad)

	var sum float64
	for i, row := range g.Population {
		zs := g.latSin[i] * u.Z
		for j, pop := range row {
			if pop == 0 {
				continue
			}
			dot := g.latCos[i]*(g.lonCos[j]*u.X+g.lonSin[j]*u.Y) + zs
			if dot >= threshold {
				sum += pop
			}
		}
	}
	return sum
}

// PopulationCoverage reports how much of a population grid the
// constellation sees at one instant. Cells with zero population are
// ignored for the cell counts.
type PopulationCoverage struct {
	TotalPopulation    float64 `json:"total_population"`
	CoveredPopulation  float64 `json:"covered_population"`
	PopulationFraction float64 `json:"population_fraction"`
	PopulatedCells     int     `json:"populated_cells"`
	CoveredCells       int     `json:"covered_cells"`
	CellFraction       float64 `json:"cell_fraction"`
	FootprintRadiusRad float64 `json:"footprint_radius_rad"`
}

// PopulationCovered scores the constellation against a population grid: a
// cell counts as covered when at least one satellite is above
// minElevationDeg from the cell centre.
func PopulationCovered(ctx context.Context, c model.ConstellationParams, grid *PopulationGrid, minElevationDeg, timeOffset float64) (*PopulationCoverage, error) {
	if err := model.ValidateConstellation(c); err != nil {
		return nil, err
	}
	if err := model.ValidateGroundStation(model.GroundStationParams{MinElevationDeg: minElevationDeg}); err != nil {
		return nil, err
	}
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrPopulationGrid)
	}

	states := core.ConstellationState(c, timeOffset)
	units := make([]core.Vec3, len(states))
	for i, st := range states {
		units[i] = st.Unit
	}

	radius := FootprintRadiusRad(c.AltitudeKm, minElevationDeg)
	threshold := math.Cos(radius)

	out := &PopulationCoverage{FootprintRadiusRad: radius}
	for i, row := range grid.Population {
		if i%32 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		sinLat, cosLat := grid.latSin[i], grid.latCos[i]
		for j, pop := range row {
			if pop == 0 {
				continue
			}
			out.PopulatedCells++
			out.TotalPopulation += pop

			cx := cosLat * grid.lonCos[j]
			cy := cosLat * grid.lonSin[j]
			for _, u := range units {
				if cx*u.X+cy*u.Y+sinLat*u.Z >= threshold {
					out.CoveredCells++
					out.CoveredPopulation += pop
					break
				}
			}
		}
	}

	if out.PopulatedCells > 0 {
		out.CellFraction = float64(out.CoveredCells) / float64(out.PopulatedCells)
	}
	if out.TotalPopulation > 0 {
		out.PopulationFraction = out.CoveredPopulation / out.TotalPopulation
	}
	return out, nil
}

// ---------- value decoding ----------

// NetCDF files surface values as typed nested slices; population datasets
// in the wild mix float and integer storage, so both are accepted.

func floatVector(v interface{}) ([]float64, bool) {
	switch vals := v.(type) {
	case []float64:
		return append([]float64(nil), vals...), true
	case []float32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, true
	case []int32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, true
	case []int64:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, true
	default:
		return nil, false
	}
}

func floatMatrix(v interface{}) ([][]float64, bool) {
	switch vals := v.(type) {
	case [][]float64:
		out := make([][]float64, len(vals))
		for i, row := range vals {
			out[i] = append([]float64(nil), row...)
		}
		return out, true
	case [][]float32:
		out := make([][]float64, len(vals))
		for i, row := range vals {
			out[i] = make([]float64, len(row))
			for j, x := range row {
				out[i][j] = float64(x)
			}
		}
		return out, true
	case [][]int32:
		out := make([][]float64, len(vals))
		for i, row := range vals {
			out[i] = make([]float64, len(row))
			for j, x := range row {
				out[i][j] = float64(x)
			}
		}
		return out, true
	case [][]int64:
		out := make([][]float64, len(vals))
		for i, row := range vals {
			out[i] = make([]float64, len(row))
			for j, x := range row {
				out[i][j] = float64(x)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func transpose(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make([][]float64, len(m[0]))
	for j := range out {
		out[j] = make([]float64, len(m))
		for i := range m {
			out[j][i] = m[i][j]
		}
	}
	return out
}

func monotonic(vals []float64) bool {
	if len(vals) < 2 {
		return true
	}
	asc := vals[1] > vals[0]
	for i := 1; i < len(vals); i++ {
		if asc && vals[i] <= vals[i-1] {
			return false
		}
		if !asc && vals[i] >= vals[i-1] {
			return false
		}
	}
	return true
}

func reverse(vals []float64) {
	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}
}
