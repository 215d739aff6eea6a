package metricgraph

import (
	"math"
	"testing"

	"github.com/roadstats/trafficfield/pkg/roadnet"
	"go.uber.org/zap"
)

// path graph: A --(e0)-- B --(e1)-- C along the equator.
func buildPathGraph(t *testing.T) *Graph {
	t.Helper()
	segments := []roadnet.RoadSegment{
		seg(1, "residential", c(0, 0), c(0, 0.01)),
		seg(2, "residential", c(0, 0.01), c(0, 0.02)),
	}
	g, err := Build(segments, DefaultBuildOptions(), zap.NewNop())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if g.NumberOfEdges() != 2 || g.NumberOfVertices() != 3 {
		t.Fatalf("unexpected path graph shape: %d vertices, %d edges",
			g.NumberOfVertices(), g.NumberOfEdges())
	}
	return g
}

func TestDistancesFrom(t *testing.T) {
	g := buildPathGraph(t)
	e0 := g.GetEdge(0)
	e1 := g.GetEdge(1)

	// source a quarter of the way along e0
	src := e0.GetLength() / 4
	d := g.DistancesFrom(0, src)

	want := map[int]float64{
		e0.GetTail(): src,
		e0.GetHead(): e0.GetLength() - src,
	}
	// the far end of e1 is reached through the shared vertex
	far := e1.GetHead()
	if far == e0.GetHead() || far == e0.GetTail() {
		far = e1.GetTail()
	}
	want[far] = e0.GetLength() - src + e1.GetLength()

	for v, w := range want {
		if math.Abs(d[v]-w) > 1e-9 {
			t.Errorf("distance to vertex %d = %f, want %f", v, d[v], w)
		}
	}
}

func TestDistanceToSameEdgeDirectPath(t *testing.T) {
	g := buildPathGraph(t)
	e0 := g.GetEdge(0)

	src := e0.GetLength() / 4
	dst := 3 * e0.GetLength() / 4
	d := g.DistancesFrom(0, src)

	got := g.DistanceTo(d, 0, src, 0, dst)
	want := dst - src
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("same-edge distance = %f, want %f", got, want)
	}
}

func TestDistanceToAcrossEdges(t *testing.T) {
	g := buildPathGraph(t)
	e0 := g.GetEdge(0)
	e1 := g.GetEdge(1)

	src := e0.GetLength() / 2
	dst := e1.GetLength() / 2
	d := g.DistancesFrom(0, src)

	got := g.DistanceTo(d, 0, src, 1, dst)

	// distance through the shared vertex, whichever end of e1 that is
	through := math.Min(d[e1.GetTail()]+dst, d[e1.GetHead()]+e1.GetLength()-dst)
	if math.Abs(got-through) > 1e-9 {
		t.Errorf("cross-edge distance = %f, want %f", got, through)
	}
	if got <= 0 {
		t.Error("cross-edge distance should be positive")
	}
}
