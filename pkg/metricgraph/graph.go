// Package metricgraph builds and stores metric graphs: road networks embedded
// with edge lengths, supporting distance-along-edge coordinates. The graph is
// the domain for the spatial models in pkg/field.
package metricgraph

import (
	"math"
	"sync"

	"github.com/roadstats/trafficfield/pkg/geo"
)

const (
	// EPS floating point comparison tolerance (km).
	EPS = 1e-9
)

type Vertex struct {
	id    int
	coord geo.Coordinate
}

func (v Vertex) GetID() int {
	return v.id
}

func (v Vertex) GetCoordinate() geo.Coordinate {
	return v.coord
}

// Edge is a road segment between two vertices, carrying its polyline geometry
// and its length in km. Tail/head is storage order only, edges are undirected.
type Edge struct {
	id       int
	tail     int
	head     int
	length   float64
	category string
	wayID    int64
	geometry []geo.Coordinate
}

func (e Edge) GetID() int { return e.id }

func (e Edge) GetTail() int { return e.tail }

func (e Edge) GetHead() int { return e.head }

func (e Edge) GetLength() float64 { return e.length }

func (e Edge) GetCategory() string { return e.category }

func (e Edge) GetWayID() int64 { return e.wayID }

func (e Edge) GetGeometry() []geo.Coordinate { return e.geometry }

// PointAt returns the coordinate at distance dist (km) from the edge tail.
func (e Edge) PointAt(dist float64) geo.Coordinate {
	return geo.PointAlongPolyline(e.geometry, dist)
}

type Graph struct {
	vertices    []Vertex
	edges       []Edge
	incident    [][]int // vertex id -> incident edge ids
	boundingBox geo.BoundingBox

	meshMu sync.Mutex
	meshes map[uint64]*Mesh // keyed by the step size bits, see BuildMesh
}

func newGraph(vertices []Vertex, edges []Edge, bbox geo.BoundingBox) *Graph {
	g := &Graph{
		vertices:    vertices,
		edges:       edges,
		boundingBox: bbox,
		meshes:      make(map[uint64]*Mesh),
	}
	g.buildIncidence()
	return g
}

func (g *Graph) buildIncidence() {
	g.incident = make([][]int, len(g.vertices))
	for _, e := range g.edges {
		g.incident[e.tail] = append(g.incident[e.tail], e.id)
		g.incident[e.head] = append(g.incident[e.head], e.id)
	}
}

func (g *Graph) NumberOfVertices() int {
	return len(g.vertices)
}

func (g *Graph) NumberOfEdges() int {
	return len(g.edges)
}

func (g *Graph) GetVertex(id int) Vertex {
	return g.vertices[id]
}

func (g *Graph) GetVertexCoordinates(id int) (float64, float64) {
	c := g.vertices[id].coord
	return c.Lat, c.Lon
}

func (g *Graph) GetEdge(id int) Edge {
	return g.edges[id]
}

// IncidentEdges returns the ids of edges touching vertex v.
func (g *Graph) IncidentEdges(v int) []int {
	return g.incident[v]
}

func (g *Graph) ForEdges(fn func(e Edge)) {
	for _, e := range g.edges {
		fn(e)
	}
}

func (g *Graph) ForVertices(fn func(v Vertex)) {
	for _, v := range g.vertices {
		fn(v)
	}
}

func (g *Graph) GetBoundingBox() geo.BoundingBox {
	return g.boundingBox
}

// VertexDegree returns the number of edges incident to v. Degree-one vertices
// are the boundary of the metric graph.
func (g *Graph) VertexDegree(v int) int {
	return len(g.incident[v])
}

func (g *Graph) TotalLength() float64 {
	total := 0.0
	for _, e := range g.edges {
		total += e.length
	}
	return total
}

func bboxOfVertices(vertices []Vertex) geo.BoundingBox {
	bbox := geo.NewBoundingBox(math.MaxFloat64, math.MaxFloat64,
		-math.MaxFloat64, -math.MaxFloat64)
	for _, v := range vertices {
		bbox.MinLat = math.Min(bbox.MinLat, v.coord.Lat)
		bbox.MinLon = math.Min(bbox.MinLon, v.coord.Lon)
		bbox.MaxLat = math.Max(bbox.MaxLat, v.coord.Lat)
		bbox.MaxLon = math.Max(bbox.MaxLon, v.coord.Lon)
	}
	return bbox
}
