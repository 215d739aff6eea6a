package spatialindex

import (
	"testing"

	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/roadnet"
	"go.uber.org/zap"
)

func buildIndexedGraph(t *testing.T) (*metricgraph.Graph, *Rtree) {
	t.Helper()
	segments := []roadnet.RoadSegment{
		roadnet.NewRoadSegment(1, "residential", []geo.Coordinate{
			geo.NewCoordinate(0, 0), geo.NewCoordinate(0, 0.01),
		}),
		roadnet.NewRoadSegment(2, "residential", []geo.Coordinate{
			geo.NewCoordinate(0, 0.01), geo.NewCoordinate(0.01, 0.01),
		}),
	}
	g, err := metricgraph.Build(segments, metricgraph.DefaultBuildOptions(), zap.NewNop())
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	index := NewRtree()
	index.Build(g, 0.05, zap.NewNop())
	return g, index
}

func TestSearchWithinRadiusHitsNearbyEdge(t *testing.T) {
	_, index := buildIndexedGraph(t)

	// 20 m north of the middle of the first edge
	got := index.SearchWithinRadius(0.00018, 0.005, 0.05)
	if len(got) == 0 {
		t.Fatal("expected at least one candidate edge")
	}
	found := false
	for _, id := range got {
		if id == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("candidates %v do not include edge 0", got)
	}
}

func TestSearchWithinRadiusMissesFarPoint(t *testing.T) {
	_, index := buildIndexedGraph(t)

	// about 55 km away
	got := index.SearchWithinRadius(0.5, 0.005, 0.05)
	if len(got) != 0 {
		t.Errorf("candidates %v, want none", got)
	}
}

func TestSearchFindsAllEdgesAtJunction(t *testing.T) {
	_, index := buildIndexedGraph(t)

	got := index.SearchWithinRadius(0, 0.01, 0.05)
	seen := make(map[int]bool)
	for _, id := range got {
		seen[id] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("junction query returned %v, want both edges", got)
	}
}
