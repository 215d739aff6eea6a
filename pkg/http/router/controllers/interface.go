package controllers

import (
	"github.com/paulmach/orb/geojson"
	"github.com/roadstats/trafficfield/pkg/field"
)

type AnalysisService interface {
	GraphGeoJSON() *geojson.FeatureCollection
	ObservationsGeoJSON(column string) (*geojson.FeatureCollection, error)
	ModelSummary() (string, []field.ParameterEstimate)
	PredictionsGeoJSON(h float64, withVariance, normalize bool) (*geojson.FeatureCollection, error)
}
