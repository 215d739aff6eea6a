package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/roadstats/trafficfield/pkg/field"
	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/logger"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/roadnet"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	originLat = flag.Float64("lat", 59.33, "latitude of the grid origin")
	originLon = flag.Float64("lon", 18.06, "longitude of the grid origin")
	rows      = flag.Int("rows", 4, "grid rows")
	cols      = flag.Int("cols", 4, "grid columns")
	spacing   = flag.Float64("spacing", 0.25, "grid spacing in km")
	meshStep  = flag.Float64("h", 0.05, "mesh step length in km")
	alpha     = flag.Int("alpha", 1, "Whittle-Matern smoothness alpha (1 or 2)")
	intercept = flag.Float64("intercept", 4.0, "field intercept")
	rangeKM   = flag.Float64("range", 0.5, "practical correlation range in km")
	sigma     = flag.Float64("sigma", 1.0, "marginal standard deviation")
	nugget    = flag.Float64("nugget", 0.1, "nugget standard deviation")
	numObs    = flag.Int("n", 60, "number of synthetic observations to sample")
	seed      = flag.Uint64("seed", 42, "random seed")
	outDir    = flag.String("out", "./data", "output directory")
)

// simulate builds a synthetic street grid, draws one field realization on a
// fine mesh, samples noisy observations from it and writes the files the
// pipeline and server commands consume.
func main() {
	flag.Parse()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}

	segments := gridSegments(*originLat, *originLon, *rows, *cols, *spacing)
	graph, err := metricgraph.Build(segments, metricgraph.DefaultBuildOptions(), log)
	if err != nil {
		log.Fatal("building synthetic graph", zap.Error(err))
	}

	mesh, err := graph.BuildMesh(*meshStep)
	if err != nil {
		log.Fatal("building mesh", zap.Error(err))
	}

	spec := field.Spec{Family: field.WhittleMatern, Alpha: *alpha, Neumann: true}
	values, err := field.Simulate(graph, mesh.Points(), spec,
		*intercept, *rangeKM, *sigma, *nugget, *seed)
	if err != nil {
		log.Fatal("simulating field", zap.Error(err))
	}
	log.Info("field realization drawn",
		zap.Int("mesh_points", mesh.Len()), zap.Uint64("seed", *seed))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal("creating output directory", zap.Error(err))
	}
	if err := graph.WriteGraph(filepath.Join(*outDir, "roads.graph")); err != nil {
		log.Fatal("writing graph file", zap.Error(err))
	}
	if err := writeDatasets(*outDir, graph, mesh.Points(), values, *numObs, *seed); err != nil {
		log.Fatal("writing datasets", zap.Error(err))
	}
	log.Info("simulation done", zap.String("out", *outDir))
}

// gridSegments lays out a rows x cols street grid as straight two-point ways,
// one way per horizontal or vertical link.
func gridSegments(lat0, lon0 float64, rows, cols int, spacing float64) []roadnet.RoadSegment {
	points := make([][]geo.Coordinate, rows)
	for i := 0; i < rows; i++ {
		points[i] = make([]geo.Coordinate, cols)
		rowLat, rowLon := geo.GetDestinationPoint(lat0, lon0, 0, float64(i)*spacing)
		for j := 0; j < cols; j++ {
			lat, lon := geo.GetDestinationPoint(rowLat, rowLon, 90, float64(j)*spacing)
			points[i][j] = geo.NewCoordinate(lat, lon)
		}
	}

	var segments []roadnet.RoadSegment
	wayID := int64(1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j+1 < cols {
				segments = append(segments, roadnet.NewRoadSegment(wayID, "residential",
					[]geo.Coordinate{points[i][j], points[i][j+1]}))
				wayID++
			}
			if i+1 < rows {
				segments = append(segments, roadnet.NewRoadSegment(wayID, "residential",
					[]geo.Coordinate{points[i][j], points[i+1][j]}))
				wayID++
			}
		}
	}
	return segments
}

// writeDatasets samples n mesh points without replacement and writes them as
// sensor locations plus traffic observations (intensity = exp(field value)),
// along with the full realization for reference.
func writeDatasets(dir string, graph *metricgraph.Graph, points []metricgraph.MeshPoint,
	values []float64, n int, seed uint64) error {

	rng := rand.New(rand.NewSource(seed + 1))
	perm := rng.Perm(len(points))
	if n > len(points) {
		n = len(points)
	}

	sensors := geojson.NewFeatureCollection()
	traffic := geojson.NewFeatureCollection()
	for k := 0; k < n; k++ {
		i := perm[k]
		p := points[i]
		c := graph.GetEdge(p.EdgeID).PointAt(p.Dist)

		sf := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		sf.Properties["id"] = fmt.Sprintf("sim-%03d", k)
		sensors.Append(sf)

		tf := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		tf.Properties["period"] = "sim"
		tf.Properties["intensity"] = math.Exp(values[i])
		traffic.Append(tf)
	}

	truth := geojson.NewFeatureCollection()
	for i, p := range points {
		c := graph.GetEdge(p.EdgeID).PointAt(p.Dist)
		f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		f.Properties["edge_id"] = p.EdgeID
		f.Properties["dist_km"] = p.Dist
		f.Properties["value"] = values[i]
		truth.Append(f)
	}

	for name, fc := range map[string]*geojson.FeatureCollection{
		"sensors.geojson": sensors,
		"traffic.geojson": traffic,
		"truth.geojson":   truth,
	} {
		data, err := fc.MarshalJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
