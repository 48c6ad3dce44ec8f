package coverage

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/leosim/model"
)

func testGrid(t *testing.T, lats, lons []float64, pop [][]float64) *PopulationGrid {
	t.Helper()
	g, err := NewPopulationGrid(lats, lons, pop)
	if err != nil {
		t.Fatalf("NewPopulationGrid: %v", err)
	}
	return g
}

func TestNewPopulationGridValidation(t *testing.T) {
	cases := []struct {
		name string
		lats []float64
		lons []float64
		pop  [][]float64
	}{
		{"empty lats", nil, []float64{0}, nil},
		{"empty lons", []float64{0}, nil, [][]float64{{}}},
		{"row count", []float64{0, 10}, []float64{0}, [][]float64{{1}}},
		{"ragged row", []float64{0, 10}, []float64{0, 90}, [][]float64{{1, 2}, {3}}},
		{"lat not monotonic", []float64{0, 5, 5}, []float64{0}, [][]float64{{1}, {2}, {3}}},
		{"lon not monotonic", []float64{0}, []float64{0, -5, 10}, [][]float64{{1, 2, 3}}},
	}
	for _, tc := range cases {
		if _, err := NewPopulationGrid(tc.lats, tc.lons, tc.pop); !errors.Is(err, ErrPopulationGrid) {
			t.Errorf("%s: error = %v, want ErrPopulationGrid", tc.name, err)
		}
	}
}

func TestNewPopulationGridSanitisesAndFlips(t *testing.T) {
	g := testGrid(t,
		[]float64{10, 0, -10},
		[]float64{0, 90},
		[][]float64{{1, -5}, {3, 4}, {math.NaN(), 6}},
	)

	if g.LatDeg[0] != -10 || g.LatDeg[2] != 10 {
		t.Fatalf("latitudes not ascending: %v", g.LatDeg)
	}
	if g.Population[0][0] != 0 || g.Population[0][1] != 6 {
		t.Fatalf("rows not flipped with latitudes: %v", g.Population[0])
	}
	if g.Population[2][0] != 1 || g.Population[2][1] != 0 {
		t.Fatalf("fill values not sanitised: %v", g.Population[2])
	}
	if got := g.TotalPopulation(); got != 14 {
		t.Fatalf("TotalPopulation = %v, want 14", got)
	}
}

func TestCellAt(t *testing.T) {
	g := testGrid(t,
		[]float64{-10, 0, 10},
		[]float64{0, 90, 180, 270},
		[][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
	)

	if row, col := g.CellAt(4, -40); row != 1 || col != 0 {
		t.Fatalf("CellAt(4, -40) = (%d, %d), want (1, 0)", row, col)
	}
	if row, col := g.CellAt(-90, 350); row != 0 || col != 0 {
		t.Fatalf("CellAt(-90, 350) = (%d, %d), want (0, 0)", row, col)
	}
	if row, col := g.CellAt(12, 100); row != 2 || col != 1 {
		t.Fatalf("CellAt(12, 100) = (%d, %d), want (2, 1)", row, col)
	}
}

func TestPopulationWithin(t *testing.T) {
	g := testGrid(t, []float64{0}, []float64{0, 90}, [][]float64{{5, 7}})

	if got := g.PopulationWithin(0, 45, 1.0); got != 12 {
		t.Fatalf("wide radius sum = %v, want 12", got)
	}
	if got := g.PopulationWithin(0, 45, 0.5); got != 0 {
		t.Fatalf("narrow radius sum = %v, want 0", got)
	}
	if got := g.PopulationWithin(0, 0, 0.1); got != 5 {
		t.Fatalf("overhead sum = %v, want 5", got)
	}
}

func TestPopulationCoveredEquatorialBand(t *testing.T) {
	lons := make([]float64, 12)
	pop := make([][]float64, 2)
	pop[0] = make([]float64, 12)
	pop[1] = make([]float64, 12)
	for j := range lons {
		lons[j] = float64(j) * 30
		pop[0][j] = 1
		pop[1][j] = 1
	}
	g := testGrid(t, []float64{0, 60}, lons, pop)

	c := model.ConstellationParams{
		SatelliteCount:      16,
		OrbitalPlanes:       1,
		InclinationDeg:      0,
		AltitudeKm:          550,
		PlanePhaseOffsetRad: 0,
	}
	got, err := PopulationCovered(context.Background(), c, g, 0, 0)
	if err != nil {
		t.Fatalf("PopulationCovered: %v", err)
	}

	if got.TotalPopulation != 24 || got.PopulatedCells != 24 {
		t.Fatalf("totals = %v population, %d cells", got.TotalPopulation, got.PopulatedCells)
	}
	if got.CoveredPopulation != 12 || got.CoveredCells != 12 {
		t.Fatalf("equatorial ring should cover exactly the 12 equator cells, got %v population, %d cells",
			got.CoveredPopulation, got.CoveredCells)
	}
	if got.PopulationFraction != 0.5 || got.CellFraction != 0.5 {
		t.Fatalf("fractions = %v, %v, want 0.5, 0.5", got.PopulationFraction, got.CellFraction)
	}
	if want := FootprintRadiusRad(550, 0); got.FootprintRadiusRad != want {
		t.Fatalf("FootprintRadiusRad = %v, want %v", got.FootprintRadiusRad, want)
	}
}

func TestPopulationCoveredSkipsEmptyCells(t *testing.T) {
	g := testGrid(t, []float64{0}, []float64{0, 180}, [][]float64{{3, 0}})
	c := model.ConstellationParams{
		SatelliteCount:      1,
		OrbitalPlanes:       1,
		InclinationDeg:      0,
		AltitudeKm:          550,
		PlanePhaseOffsetRad: 0,
	}

	got, err := PopulationCovered(context.Background(), c, g, 0, 0)
	if err != nil {
		t.Fatalf("PopulationCovered: %v", err)
	}
	if got.PopulatedCells != 1 || got.CoveredCells != 1 {
		t.Fatalf("cells = %d populated, %d covered, want 1, 1", got.PopulatedCells, got.CoveredCells)
	}
	if got.PopulationFraction != 1 || got.CoveredPopulation != 3 {
		t.Fatalf("population = %v covered, fraction %v", got.CoveredPopulation, got.PopulationFraction)
	}
}

func TestPopulationCoveredRejectsInvalid(t *testing.T) {
	g := testGrid(t, []float64{0}, []float64{0}, [][]float64{{1}})
	ok := model.ConstellationParams{SatelliteCount: 4, OrbitalPlanes: 2, InclinationDeg: 53, AltitudeKm: 550, PlanePhaseOffsetRad: 0.5}

	bad := ok
	bad.OrbitalPlanes = 0
	if _, err := PopulationCovered(context.Background(), bad, g, 10, 0); !errors.Is(err, model.ErrInvalidConstellation) {
		t.Fatalf("bad constellation error = %v", err)
	}
	if _, err := PopulationCovered(context.Background(), ok, g, -1, 0); !errors.Is(err, model.ErrInvalidGroundStation) {
		t.Fatalf("bad elevation error = %v", err)
	}
	if _, err := PopulationCovered(context.Background(), ok, nil, 10, 0); !errors.Is(err, ErrPopulationGrid) {
		t.Fatalf("nil grid error = %v", err)
	}
}

func TestPopulationCoveredCancelled(t *testing.T) {
	g := testGrid(t, []float64{0}, []float64{0}, [][]float64{{1}})
	c := model.ConstellationParams{SatelliteCount: 4, OrbitalPlanes: 2, InclinationDeg: 53, AltitudeKm: 550, PlanePhaseOffsetRad: 0.5}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := PopulationCovered(ctx, c, g, 10, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled run error = %v", err)
	}
}

func TestLoadPopulationGridMissingFile(t *testing.T) {
	if _, err := LoadPopulationGrid("testdata/definitely-missing.nc"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

// ---------- value decoding ----------

func TestFloatVector(t *testing.T) {
	if out, ok := floatVector([]float32{1.5, 2}); !ok || out[0] != 1.5 || out[1] != 2 {
		t.Fatalf("float32 vector: %v, %v", out, ok)
	}
	if out, ok := floatVector([]int32{2, 3}); !ok || out[0] != 2 {
		t.Fatalf("int32 vector: %v, %v", out, ok)
	}
	if out, ok := floatVector([]int64{4}); !ok || out[0] != 4 {
		t.Fatalf("int64 vector: %v, %v", out, ok)
	}
	if _, ok := floatVector([]string{"x"}); ok {
		t.Fatalf("string vector should not decode")
	}

	src := []float64{1, 2}
	out, _ := floatVector(src)
	src[0] = 9
	if out[0] != 1 {
		t.Fatalf("vector aliases its source")
	}
}

func TestFloatMatrix(t *testing.T) {
	if out, ok := floatMatrix([][]float32{{1}, {2}}); !ok || out[1][0] != 2 {
		t.Fatalf("float32 matrix: %v, %v", out, ok)
	}
	if out, ok := floatMatrix([][]int32{{3, 4}}); !ok || out[0][1] != 4 {
		t.Fatalf("int32 matrix: %v, %v", out, ok)
	}
	if out, ok := floatMatrix([][]int64{{5}}); !ok || out[0][0] != 5 {
		t.Fatalf("int64 matrix: %v, %v", out, ok)
	}
	if _, ok := floatMatrix("nope"); ok {
		t.Fatalf("string should not decode as matrix")
	}
}

func TestTranspose(t *testing.T) {
	got := transpose([][]float64{{1, 2, 3}, {4, 5, 6}})
	want := [][]float64{{1, 4}, {2, 5}, {3, 6}}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("transpose[%d][%d] = %v, want %v", i, j, got[i][j], want[i][j])
			}
		}
	}
	if transpose(nil) != nil {
		t.Fatalf("transpose(nil) should be nil")
	}
}
