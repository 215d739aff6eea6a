package metricgraph

import (
	"math"
	"sort"

	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/roadnet"
	"github.com/roadstats/trafficfield/pkg/util"
	"go.uber.org/zap"
)

type BuildOptions struct {
	// VertexMergeTolerance merge vertices closer than this (km).
	VertexMergeTolerance float64
	// VertexEdgeTolerance snap vertices onto edges closer than this (km),
	// splitting the edge at the projection.
	VertexEdgeTolerance float64
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		VertexMergeTolerance: 0.001, // 1 m
		VertexEdgeTolerance:  0.005, // 5 m
	}
}

type nodeRole uint8

const (
	betweenNode nodeRole = iota
	endNode
	junctionNode
)

// Build assembles road segments into a single connected metric graph:
// geometry points shared between ways become junction vertices, endpoint
// vertices within the merge tolerance collapse into one, dangling vertices
// within the snap tolerance of a nearby edge split that edge, and only the
// largest connected component is kept.
func Build(segments []roadnet.RoadSegment, opts BuildOptions, log *zap.Logger) (*Graph, error) {
	if opts.VertexMergeTolerance < 0 || opts.VertexEdgeTolerance < 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"tolerances must be non-negative: %+v", opts)
	}
	if len(segments) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrDataUnavailable,
			"no road segments to build from")
	}

	merger := newVertexMerger(opts.VertexMergeTolerance)

	// first pass: classify geometry points the way an osm parser classifies
	// way nodes. A point interior to one way but reused by another is a
	// junction and must become a vertex.
	roles := make(map[int]nodeRole)
	segPointIDs := make([][]int, len(segments))
	for si, seg := range segments {
		ids := make([]int, len(seg.Geometry))
		for i, c := range seg.Geometry {
			id := merger.intern(c)
			ids[i] = id
			if _, seen := roles[id]; !seen {
				if i == 0 || i == len(seg.Geometry)-1 {
					roles[id] = endNode
				} else {
					roles[id] = betweenNode
				}
			} else {
				roles[id] = junctionNode
			}
		}
		segPointIDs[si] = ids
	}

	// second pass: emit one edge per run of geometry between vertices.
	var rawEdges []Edge
	for si, seg := range segments {
		ids := segPointIDs[si]
		runStart := 0
		for i := 1; i < len(ids); i++ {
			if roles[ids[i]] == betweenNode && i != len(ids)-1 {
				continue
			}
			geom := copyGeometry(seg.Geometry[runStart : i+1])
			length := geo.PolylineLength(geom)
			tail, head := ids[runStart], ids[i]
			if tail != head && length > EPS {
				rawEdges = append(rawEdges, Edge{
					id:       len(rawEdges),
					tail:     tail,
					head:     head,
					length:   length,
					category: seg.Category,
					wayID:    seg.WayID,
					geometry: geom,
				})
			}
			runStart = i
		}
	}

	rawEdges = dedupEdges(rawEdges)
	if len(rawEdges) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrDataUnavailable,
			"road segments produced an empty graph")
	}

	vertices := merger.vertices()
	rawEdges = snapVerticesToEdges(vertices, rawEdges, opts.VertexEdgeTolerance)

	vertices, rawEdges = largestComponent(vertices, rawEdges)
	if len(rawEdges) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrDataUnavailable,
			"largest connected component is empty")
	}

	g := newGraph(vertices, rawEdges, bboxOfVertices(vertices))
	log.Info("metric graph built",
		zap.Int("vertices", g.NumberOfVertices()),
		zap.Int("edges", g.NumberOfEdges()),
		zap.Float64("total_length_km", g.TotalLength()))
	return g, nil
}

func copyGeometry(geom []geo.Coordinate) []geo.Coordinate {
	out := make([]geo.Coordinate, len(geom))
	copy(out, geom)
	return out
}

// dedupEdges drops near-duplicate parallel edges: same endpoint pair and
// length within EPS. The first one wins.
func dedupEdges(edges []Edge) []Edge {
	type key struct {
		lo, hi int
	}
	seen := make(map[key][]float64)
	out := edges[:0]
	for _, e := range edges {
		k := key{lo: util.MinInt(e.tail, e.head), hi: e.tail + e.head - util.MinInt(e.tail, e.head)}
		dup := false
		for _, l := range seen[k] {
			if math.Abs(l-e.length) <= EPS {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[k] = append(seen[k], e.length)
		e.id = len(out)
		out = append(out, e)
	}
	return out
}

// snapVerticesToEdges splits edges at the projection of any vertex that lies
// within tolerance of the edge interior without being one of its endpoints.
func snapVerticesToEdges(vertices []Vertex, edges []Edge, tolerance float64) []Edge {
	if tolerance <= 0 {
		return edges
	}

	type split struct {
		vertex int
		along  float64
	}

	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		var splits []split
		for _, v := range vertices {
			if v.id == e.tail || v.id == e.head {
				continue
			}
			_, along, perp := geo.ProjectPointToPolyline(e.geometry, v.coord)
			if perp > tolerance {
				continue
			}
			// projections at the very ends do not split anything
			if along <= EPS || along >= e.length-EPS {
				continue
			}
			splits = append(splits, split{vertex: v.id, along: along})
		}

		if len(splits) == 0 {
			e.id = len(out)
			out = append(out, e)
			continue
		}

		sort.Slice(splits, func(i, j int) bool { return splits[i].along < splits[j].along })

		prevVertex := e.tail
		prevAlong := 0.0
		for _, sp := range splits {
			if sp.along-prevAlong <= EPS {
				continue
			}
			out = append(out, subEdge(e, len(out), prevVertex, sp.vertex, prevAlong, sp.along))
			prevVertex = sp.vertex
			prevAlong = sp.along
		}
		out = append(out, subEdge(e, len(out), prevVertex, e.head, prevAlong, e.length))
	}
	return out
}

func subEdge(e Edge, id, tail, head int, from, to float64) Edge {
	geom := subPolyline(e.geometry, from, to)
	return Edge{
		id:       id,
		tail:     tail,
		head:     head,
		length:   to - from,
		category: e.category,
		wayID:    e.wayID,
		geometry: geom,
	}
}

// subPolyline extracts the part of a polyline between the along-distances
// from and to (km).
func subPolyline(coords []geo.Coordinate, from, to float64) []geo.Coordinate {
	out := []geo.Coordinate{geo.PointAlongPolyline(coords, from)}
	traveled := 0.0
	for i := 1; i < len(coords); i++ {
		traveled += geo.CalculateHaversineDistance(coords[i-1].Lat, coords[i-1].Lon,
			coords[i].Lat, coords[i].Lon)
		if traveled > from+EPS && traveled < to-EPS {
			out = append(out, coords[i])
		}
	}
	out = append(out, geo.PointAlongPolyline(coords, to))
	return out
}

// vertexMerger interns coordinates, collapsing points closer than the merge
// tolerance into one vertex id. Grid-hash buckets keep the lookup local.
type vertexMerger struct {
	tolerance float64
	cellKm    float64
	cells     map[[2]int][]int
	coords    []geo.Coordinate
}

func newVertexMerger(tolerance float64) *vertexMerger {
	cell := tolerance
	if cell < 1e-6 {
		cell = 1e-6
	}
	return &vertexMerger{
		tolerance: tolerance,
		cellKm:    cell,
		cells:     make(map[[2]int][]int),
	}
}

const kmPerDegreeLat = 111.2

func (m *vertexMerger) cellOf(c geo.Coordinate) [2]int {
	x := c.Lat * kmPerDegreeLat / m.cellKm
	y := c.Lon * kmPerDegreeLat * math.Cos(util.DegreeToRadians(c.Lat)) / m.cellKm
	return [2]int{int(math.Floor(x)), int(math.Floor(y))}
}

func (m *vertexMerger) intern(c geo.Coordinate) int {
	center := m.cellOf(c)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			cell := [2]int{center[0] + dx, center[1] + dy}
			for _, id := range m.cells[cell] {
				existing := m.coords[id]
				if geo.CalculateHaversineDistance(existing.Lat, existing.Lon, c.Lat, c.Lon) <= m.tolerance {
					return id
				}
			}
		}
	}

	id := len(m.coords)
	m.coords = append(m.coords, c)
	m.cells[center] = append(m.cells[center], id)
	return id
}

func (m *vertexMerger) vertices() []Vertex {
	vertices := make([]Vertex, len(m.coords))
	for i, c := range m.coords {
		vertices[i] = Vertex{id: i, coord: c}
	}
	return vertices
}
