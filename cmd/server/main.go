package main

import (
	"context"
	"flag"
	"time"

	"github.com/roadstats/trafficfield/pkg/binder"
	"github.com/roadstats/trafficfield/pkg/dataset"
	"github.com/roadstats/trafficfield/pkg/field"
	"github.com/roadstats/trafficfield/pkg/http"
	"github.com/roadstats/trafficfield/pkg/http/usecases"
	"github.com/roadstats/trafficfield/pkg/logger"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/spatialindex"
	"github.com/roadstats/trafficfield/pkg/util"
	"go.uber.org/zap"
)

var (
	graphFile   = flag.String("graph", "./data/roads.graph", "metric graph file built by the pipeline")
	trafficFile = flag.String("traffic", "./data/traffic.geojson", "traffic observations geojson")
	meshStep    = flag.Float64("h", 0.1, "mesh step length in km")
	alpha       = flag.Int("alpha", 1, "Whittle-Matern smoothness alpha (1 or 2)")
	backendName = flag.String("backend", "likelihood", "fitting backend: likelihood or latent")
	maxSnap     = flag.Float64("max_snap", 0.05, "maximum observation snap distance in km")
)

func main() {
	flag.Parse()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	if err := util.ReadConfig(); err != nil {
		log.Warn("no config file, using defaults", zap.Error(err))
	}

	graph, err := metricgraph.ReadGraph(*graphFile)
	if err != nil {
		log.Fatal("reading graph file", zap.Error(err))
	}

	index := spatialindex.NewRtree()
	index.Build(graph, *maxSnap, log)

	traffic, err := dataset.LoadTraffic(*trafficFile, log)
	if err != nil {
		log.Fatal("loading traffic observations", zap.Error(err))
	}
	data, err := binder.Bind(graph, index, binder.FromTraffic(traffic),
		binder.Options{MaxSnapDistance: *maxSnap}, log)
	if err != nil {
		log.Fatal("binding observations", zap.Error(err))
	}

	spec := field.Spec{Family: field.WhittleMatern, Alpha: *alpha, Neumann: true}
	var fitter field.Fitter
	switch *backendName {
	case "likelihood":
		fitter = field.NewLikelihoodFitter(log)
	case "latent":
		fitter = field.NewLatentFitter(log, *meshStep)
	default:
		log.Fatal("unknown backend", zap.String("backend", *backendName))
	}

	fitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	model, err := fitter.Fit(fitCtx, data, "log_intensity", spec)
	cancel()
	if err != nil {
		log.Fatal("fitting model", zap.Error(err))
	}

	api := http.NewServer(log)
	analysisService := usecases.NewAnalysisService(log, data, model)

	ctx, cleanup := newContext()
	if _, err := api.Use(ctx, log, analysisService); err != nil {
		log.Fatal("starting server", zap.Error(err))
	}

	signal := http.GracefulShutdown()
	log.Info("trafficfield results server stopped", zap.String("signal", signal.String()))
	cleanup()
}

func newContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	return ctx, func() { cancel() }
}
