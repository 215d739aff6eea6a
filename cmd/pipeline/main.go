package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/roadstats/trafficfield/pkg/binder"
	"github.com/roadstats/trafficfield/pkg/dataset"
	"github.com/roadstats/trafficfield/pkg/field"
	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/logger"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/roadnet"
	"github.com/roadstats/trafficfield/pkg/spatialindex"
	"github.com/roadstats/trafficfield/pkg/viz"
	"go.uber.org/zap"
)

var (
	pbfFile     = flag.String("pbf", "", "local .osm.pbf extract; when empty the Overpass API is queried")
	bboxFlag    = flag.String("bbox", "", "bounding box minLat,minLon,maxLat,maxLon (required)")
	categories  = flag.String("categories", "", "comma separated highway categories (default: drivable set)")
	sensorsFile = flag.String("sensors", "./data/sensors.geojson", "sensor locations geojson")
	trafficFile = flag.String("traffic", "./data/traffic.geojson", "traffic observations geojson")
	meshStep    = flag.Float64("h", 0.1, "mesh step length in km")
	alpha       = flag.Int("alpha", 1, "Whittle-Matern smoothness alpha (1 or 2)")
	neumann     = flag.Bool("neumann", true, "Neumann boundary condition at degree-one vertices")
	backend     = flag.String("backend", "likelihood", "fitting backend: likelihood or latent")
	maxSnap     = flag.Float64("max_snap", 0.05, "maximum observation snap distance in km")
	normalize   = flag.Bool("normalize", false, "report predictions relative to the fitted intercept")
	outDir      = flag.String("out", "./out", "output directory")
	graphFile   = flag.String("graph_out", "", "optional path to persist the built graph")
)

func main() {
	flag.Parse()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}

	bbox, err := parseBBox(*bboxFlag)
	if err != nil {
		log.Fatal("bad -bbox", zap.Error(err))
	}

	ctx := context.Background()

	var source roadnet.Source
	if *pbfFile != "" {
		source = roadnet.NewPBFSource(*pbfFile, log)
	} else {
		source = roadnet.NewOverpassSource("", 180*time.Second, 10*time.Second, log)
	}

	segments, err := source.FetchRoads(ctx, bbox, splitCategories(*categories))
	if err != nil {
		log.Fatal("fetching road features", zap.Error(err))
	}

	graph, err := metricgraph.Build(segments, metricgraph.DefaultBuildOptions(), log)
	if err != nil {
		log.Fatal("building metric graph", zap.Error(err))
	}
	if *graphFile != "" {
		if err := graph.WriteGraph(*graphFile); err != nil {
			log.Fatal("writing graph file", zap.Error(err))
		}
	}

	index := spatialindex.NewRtree()
	index.Build(graph, *maxSnap, log)

	traffic, err := dataset.LoadTraffic(*trafficFile, log)
	if err != nil {
		log.Fatal("loading traffic observations", zap.Error(err))
	}
	sensors, err := dataset.LoadSensors(*sensorsFile, log)
	if err != nil {
		log.Fatal("loading sensor locations", zap.Error(err))
	}
	log.Info("datasets ready", zap.Int("traffic", len(traffic)), zap.Int("sensors", len(sensors)))

	opts := binder.Options{MaxSnapDistance: *maxSnap}
	data, err := binder.Bind(graph, index, binder.FromTraffic(traffic), opts, log)
	if err != nil {
		log.Fatal("binding observations", zap.Error(err))
	}
	log.Info("observations bound",
		zap.Int("bound", data.Len()), zap.Int("dropped", data.Dropped()))

	spec := field.Spec{Family: field.WhittleMatern, Alpha: *alpha, Neumann: *neumann}
	var fitter field.Fitter
	switch *backend {
	case "likelihood":
		fitter = field.NewLikelihoodFitter(log)
	case "latent":
		fitter = field.NewLatentFitter(log, *meshStep)
	default:
		log.Fatal("unknown backend", zap.String("backend", *backend))
	}

	model, err := fitter.Fit(ctx, data, "log_intensity", spec)
	if err != nil {
		log.Fatal("fitting model", zap.Error(err))
	}
	printSummary(model)

	mesh, err := graph.BuildMesh(*meshStep)
	if err != nil {
		log.Fatal("building mesh", zap.Error(err))
	}
	pred, err := field.Predict(model, mesh.Points(), field.PredictOptions{
		WithVariance: true,
		Normalize:    *normalize,
	})
	if err != nil {
		log.Fatal("predicting", zap.Error(err))
	}

	if err := writeOutputs(*outDir, graph, data, model, pred); err != nil {
		log.Fatal("writing outputs", zap.Error(err))
	}
	log.Info("pipeline done", zap.String("out", *outDir))
}

func parseBBox(s string) (geo.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.BoundingBox{}, fmt.Errorf("expected 4 comma separated values, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BoundingBox{}, err
		}
		vals[i] = v
	}
	bbox := geo.NewBoundingBox(vals[0], vals[1], vals[2], vals[3])
	if !bbox.Valid() {
		return geo.BoundingBox{}, fmt.Errorf("invalid bounding box %q", s)
	}
	return bbox, nil
}

func splitCategories(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printSummary(model *field.FittedModel) {
	fmt.Printf("backend: %s  (loglik %.3f)\n", model.Backend, model.LogLik)
	fmt.Printf("%-12s %12s %12s\n", "parameter", "estimate", "std.err")
	for _, p := range model.Summary() {
		fmt.Printf("%-12s %12.5f %12.5f\n", p.Name, p.Estimate, p.StdErr)
	}
}

func writeOutputs(dir string, graph *metricgraph.Graph, data *binder.Dataset,
	model *field.FittedModel, pred *field.Prediction) error {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := viz.WriteFile(viz.RenderGraph(graph), filepath.Join(dir, "graph.geojson")); err != nil {
		return err
	}
	obsFC, err := viz.RenderObservations(data, "log_intensity")
	if err != nil {
		return err
	}
	if err := viz.WriteFile(obsFC, filepath.Join(dir, "observations.geojson")); err != nil {
		return err
	}
	if err := viz.WriteFile(viz.RenderField(graph, pred), filepath.Join(dir, "field.geojson")); err != nil {
		return err
	}

	summary, err := json.MarshalIndent(map[string]interface{}{
		"backend":    model.Backend,
		"loglik":     model.LogLik,
		"parameters": model.Summary(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "summary.json"), summary, 0o644)
}
