package spatialindex

import (
	"math"

	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

type Rtree struct {
	tr *rtree.RTreeG[int]
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[int]
	return &Rtree{
		tr: &tr,
	}
}

// Build indexes every graph edge by the bounding box of its geometry, padded
// by padRadius (in km) so radius searches from slightly-off points still hit.
func (rt *Rtree) Build(graph *metricgraph.Graph, padRadius float64, log *zap.Logger) {
	log.Info("Building R-tree spatial index...")
	graph.ForEdges(func(e metricgraph.Edge) {
		minLat, minLon := math.MaxFloat64, math.MaxFloat64
		maxLat, maxLon := -math.MaxFloat64, -math.MaxFloat64
		for _, c := range e.GetGeometry() {
			minLat = math.Min(minLat, c.Lat)
			minLon = math.Min(minLon, c.Lon)
			maxLat = math.Max(maxLat, c.Lat)
			maxLon = math.Max(maxLon, c.Lon)
		}
		lowerLat, lowerLon := geo.GetDestinationPoint(minLat, minLon, 225, padRadius)
		upperLat, upperLon := geo.GetDestinationPoint(maxLat, maxLon, 45, padRadius)

		rt.tr.Insert([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat}, e.GetID())
	})

	log.Info("R-tree spatial index built.")
}

// SearchWithinRadius returns ids of edges whose padded bounding box
// intersects the box of radius (km) around the query point.
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []int {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius)

	results := make([]int, 0, 10)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, edgeID int) bool {
			results = append(results, edgeID)
			return true
		})
	return results
}
