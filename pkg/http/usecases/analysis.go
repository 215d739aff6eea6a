package usecases

import (
	"github.com/paulmach/orb/geojson"
	"github.com/roadstats/trafficfield/pkg/binder"
	"github.com/roadstats/trafficfield/pkg/field"
	"github.com/roadstats/trafficfield/pkg/viz"
	"go.uber.org/zap"
)

// AnalysisService serves a fitted analysis bundle: the graph, the bound
// observations and the fitted model. Read-only, the bundle never changes
// after construction.
type AnalysisService struct {
	log   *zap.Logger
	data  *binder.Dataset
	model *field.FittedModel
}

func NewAnalysisService(log *zap.Logger, data *binder.Dataset,
	model *field.FittedModel) *AnalysisService {
	return &AnalysisService{
		log:   log,
		data:  data,
		model: model,
	}
}

func (s *AnalysisService) GraphGeoJSON() *geojson.FeatureCollection {
	return viz.RenderGraph(s.data.Graph())
}

func (s *AnalysisService) ObservationsGeoJSON(column string) (*geojson.FeatureCollection, error) {
	return viz.RenderObservations(s.data, column)
}

func (s *AnalysisService) ModelSummary() (string, []field.ParameterEstimate) {
	return s.model.Backend, s.model.Summary()
}

func (s *AnalysisService) PredictionsGeoJSON(h float64, withVariance,
	normalize bool) (*geojson.FeatureCollection, error) {

	mesh, err := s.data.Graph().BuildMesh(h)
	if err != nil {
		return nil, err
	}
	pred, err := field.Predict(s.model, mesh.Points(), field.PredictOptions{
		WithVariance: withVariance,
		Normalize:    normalize,
	})
	if err != nil {
		return nil, err
	}
	return viz.RenderField(s.data.Graph(), pred), nil
}
