package metricgraph

import (
	"math"

	"github.com/roadstats/trafficfield/pkg/util"
)

// MeshPoint is a graph-relative coordinate: an edge id plus a distance from
// the edge tail in [0, edge length].
type MeshPoint struct {
	EdgeID int     `json:"edge_id"`
	Dist   float64 `json:"dist"`
}

// Mesh is the ordered set of prediction locations obtained by subdividing
// every edge at step h. Query coordinates only, never persisted observations.
type Mesh struct {
	h      float64
	points []MeshPoint
}

func (m *Mesh) Step() float64 {
	return m.h
}

func (m *Mesh) Points() []MeshPoint {
	return m.points
}

func (m *Mesh) Len() int {
	return len(m.points)
}

// BuildMesh subdivides every edge of length L into ceil(L/h) segments of
// equal length <= h, both edge endpoints included. Meshes are cached per
// step, rebuilding with the same h returns the identical mesh.
func (g *Graph) BuildMesh(h float64) (*Mesh, error) {
	if h <= 0 || math.IsNaN(h) {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"mesh step must be positive, got %f", h)
	}

	// the cache is hit per request by the prediction endpoint
	g.meshMu.Lock()
	defer g.meshMu.Unlock()

	key := math.Float64bits(h)
	if m, ok := g.meshes[key]; ok {
		return m, nil
	}

	points := make([]MeshPoint, 0, g.NumberOfEdges()*4)
	for _, e := range g.edges {
		n := int(math.Ceil(e.length / h))
		if n < 1 {
			n = 1
		}
		step := e.length / float64(n)
		for i := 0; i <= n; i++ {
			points = append(points, MeshPoint{EdgeID: e.id, Dist: float64(i) * step})
		}
	}

	m := &Mesh{h: h, points: points}
	g.meshes[key] = m
	return m, nil
}
