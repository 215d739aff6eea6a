package viz

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/roadstats/trafficfield/pkg/binder"
	"github.com/roadstats/trafficfield/pkg/field"
	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/roadnet"
	"github.com/roadstats/trafficfield/pkg/spatialindex"
	"go.uber.org/zap"
)

func TestColorScaleHex(t *testing.T) {
	scale := NewColorScale(0, 1)

	testCases := []struct {
		name string
		v    float64
		want string
	}{
		{name: "min anchor", v: 0, want: "#440154"},
		{name: "max anchor", v: 1, want: "#fde725"},
		{name: "middle anchor", v: 0.5, want: "#21918c"},
		{name: "below min clamps", v: -5, want: "#440154"},
		{name: "above max clamps", v: 5, want: "#fde725"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			if got := scale.Hex(tt.v); got != tt.want {
				t.Errorf("Hex(%f) = %s, want %s", tt.v, got, tt.want)
			}
		})
	}
}

func TestColorScaleDegenerateRange(t *testing.T) {
	scale := NewColorScale(3, 3)
	// all values map to the scale midpoint
	if got, want := scale.Hex(3), scale.Hex(100); got != want {
		t.Errorf("degenerate scale should be constant: %s vs %s", got, want)
	}
}

func TestMinMaxSkipsNaN(t *testing.T) {
	min, max := minMax([]float64{math.NaN(), 2, -1, math.NaN(), 5})
	if min != -1 || max != 5 {
		t.Errorf("minMax = (%f, %f), want (-1, 5)", min, max)
	}
}

func buildVizFixtures(t *testing.T) (*metricgraph.Graph, *binder.Dataset) {
	t.Helper()
	segments := []roadnet.RoadSegment{
		roadnet.NewRoadSegment(1, "residential", []geo.Coordinate{
			geo.NewCoordinate(0, 0), geo.NewCoordinate(0, 0.01),
		}),
		roadnet.NewRoadSegment(2, "residential", []geo.Coordinate{
			geo.NewCoordinate(0, 0.01), geo.NewCoordinate(0, 0.02),
		}),
	}
	g, err := metricgraph.Build(segments, metricgraph.DefaultBuildOptions(), zap.NewNop())
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	index := spatialindex.NewRtree()
	index.Build(g, 0.05, zap.NewNop())

	points := []binder.Point{
		{Coord: geo.NewCoordinate(0, 0.003), Values: map[string]float64{"v": 1}},
		{Coord: geo.NewCoordinate(0, 0.016), Values: map[string]float64{"v": 3}},
	}
	ds, err := binder.Bind(g, index, points, binder.Options{MaxSnapDistance: 0.05}, zap.NewNop())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return g, ds
}

func TestRenderGraph(t *testing.T) {
	g, _ := buildVizFixtures(t)

	fc := RenderGraph(g)
	want := g.NumberOfEdges() + g.NumberOfVertices()
	if len(fc.Features) != want {
		t.Errorf("features = %d, want %d", len(fc.Features), want)
	}
}

func TestRenderObservations(t *testing.T) {
	_, ds := buildVizFixtures(t)

	fc, err := RenderObservations(ds, "v")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(fc.Features) != ds.Len() {
		t.Errorf("features = %d, want %d", len(fc.Features), ds.Len())
	}
	for _, f := range fc.Features {
		if _, ok := f.Properties["marker-color"]; !ok {
			t.Error("observation feature missing marker-color")
		}
	}

	if _, err := RenderObservations(ds, "missing"); err == nil {
		t.Error("want error for missing column")
	}
}

func TestRenderFieldAndWriteFile(t *testing.T) {
	g, _ := buildVizFixtures(t)

	pred := &field.Prediction{
		Points: []metricgraph.MeshPoint{
			{EdgeID: 0, Dist: 0},
			{EdgeID: 0, Dist: 0.5},
			{EdgeID: 1, Dist: 0.2},
		},
		Mean:     []float64{1, 2, 3},
		Variance: []float64{0.1, 0.2, 0.3},
	}

	fc := RenderField(g, pred)
	if len(fc.Features) != len(pred.Points) {
		t.Fatalf("features = %d, want %d", len(fc.Features), len(pred.Points))
	}
	for i, f := range fc.Features {
		if f.Properties["variance"] != pred.Variance[i] {
			t.Errorf("feature %d variance %v, want %f", i, f.Properties["variance"], pred.Variance[i])
		}
	}

	path := filepath.Join(t.TempDir(), "field.geojson")
	if err := WriteFile(fc, path); err != nil {
		t.Fatalf("write: %v", err)
	}
}
