package metricgraph

import (
	"container/heap"
	"math"
)

// DistancesFrom runs dijkstra from the graph-relative location (edgeID, dist)
// and returns the shortest metric-graph distance (km) from it to every
// vertex.
func (g *Graph) DistancesFrom(edgeID int, dist float64) []float64 {
	n := len(g.vertices)
	d := make([]float64, n)
	for i := range d {
		d[i] = math.Inf(1)
	}

	e := g.edges[edgeID]
	pq := &vertexHeap{}
	heap.Init(pq)

	relax := func(v int, dv float64) {
		if dv < d[v] {
			d[v] = dv
			heap.Push(pq, vertexDist{vertex: v, dist: dv})
		}
	}

	relax(e.tail, dist)
	relax(e.head, e.length-dist)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(vertexDist)
		if cur.dist > d[cur.vertex] {
			continue // stale entry
		}
		for _, eid := range g.incident[cur.vertex] {
			edge := g.edges[eid]
			next := edge.tail
			if next == cur.vertex {
				next = edge.head
			}
			relax(next, cur.dist+edge.length)
		}
	}

	return d
}

// DistanceTo resolves the distance from the dijkstra source of vertexDists
// (as returned by DistancesFrom for some location a) to a second location
// (edgeID, dist). sameEdge handles the direct along-edge path when both
// locations sit on the same edge.
func (g *Graph) DistanceTo(vertexDists []float64, srcEdgeID int, srcDist float64,
	edgeID int, dist float64) float64 {

	e := g.edges[edgeID]
	best := math.Min(vertexDists[e.tail]+dist, vertexDists[e.head]+e.length-dist)
	if edgeID == srcEdgeID {
		best = math.Min(best, math.Abs(dist-srcDist))
	}
	return best
}

type vertexDist struct {
	vertex int
	dist   float64
}

type vertexHeap []vertexDist

func (h vertexHeap) Len() int { return len(h) }

func (h vertexHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }

func (h vertexHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *vertexHeap) Push(x interface{}) { *h = append(*h, x.(vertexDist)) }
func (h *vertexHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
