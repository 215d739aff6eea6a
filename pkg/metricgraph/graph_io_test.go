package metricgraph

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/roadstats/trafficfield/pkg/roadnet"
	"go.uber.org/zap"
)

func TestGraphRoundTrip(t *testing.T) {
	segments := []roadnet.RoadSegment{
		seg(7, "residential", c(52.01, 4.31), c(52.012, 4.312), c(52.014, 4.314)),
		seg(8, "", c(52.012, 4.312), c(52.02, 4.31)),
	}
	g, err := Build(segments, DefaultBuildOptions(), zap.NewNop())
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	path := filepath.Join(t.TempDir(), "roads.graph")
	if err := g.WriteGraph(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadGraph(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.NumberOfVertices() != g.NumberOfVertices() {
		t.Fatalf("vertices = %d, want %d", got.NumberOfVertices(), g.NumberOfVertices())
	}
	if got.NumberOfEdges() != g.NumberOfEdges() {
		t.Fatalf("edges = %d, want %d", got.NumberOfEdges(), g.NumberOfEdges())
	}

	g.ForVertices(func(v Vertex) {
		w := got.GetVertex(v.GetID())
		if v.GetCoordinate() != w.GetCoordinate() {
			t.Errorf("vertex %d coordinate changed: %+v vs %+v",
				v.GetID(), v.GetCoordinate(), w.GetCoordinate())
		}
	})

	g.ForEdges(func(e Edge) {
		w := got.GetEdge(e.GetID())
		if w.GetTail() != e.GetTail() || w.GetHead() != e.GetHead() {
			t.Errorf("edge %d endpoints changed", e.GetID())
		}
		if math.Abs(w.GetLength()-e.GetLength()) > 1e-12 {
			t.Errorf("edge %d length %f, want %f", e.GetID(), w.GetLength(), e.GetLength())
		}
		if w.GetWayID() != e.GetWayID() {
			t.Errorf("edge %d way id %d, want %d", e.GetID(), w.GetWayID(), e.GetWayID())
		}
		if w.GetCategory() != e.GetCategory() {
			t.Errorf("edge %d category %q, want %q", e.GetID(), w.GetCategory(), e.GetCategory())
		}
		if len(w.GetGeometry()) != len(e.GetGeometry()) {
			t.Fatalf("edge %d geometry has %d points, want %d",
				e.GetID(), len(w.GetGeometry()), len(e.GetGeometry()))
		}
		// geometry rides through polyline encoding at 1e-5 degree precision
		for i, p := range e.GetGeometry() {
			q := w.GetGeometry()[i]
			if math.Abs(p.Lat-q.Lat) > 2e-5 || math.Abs(p.Lon-q.Lon) > 2e-5 {
				t.Errorf("edge %d geometry point %d drifted: %+v vs %+v", e.GetID(), i, p, q)
			}
		}
	})

	// incidence rebuilt on read
	for v := 0; v < got.NumberOfVertices(); v++ {
		if got.VertexDegree(v) != g.VertexDegree(v) {
			t.Errorf("vertex %d degree %d, want %d", v, got.VertexDegree(v), g.VertexDegree(v))
		}
	}
}

func TestReadGraphMissingFile(t *testing.T) {
	if _, err := ReadGraph(filepath.Join(t.TempDir(), "nope.graph")); err == nil {
		t.Error("want error for missing file")
	}
}
