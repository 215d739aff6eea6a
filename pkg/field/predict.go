package field

import (
	"math"

	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/util"
	"gonum.org/v1/gonum/mat"
)

type PredictOptions struct {
	WithVariance bool
	// Normalize expresses predictions relative to the fitted intercept: the
	// global mean is subtracted so the output is the spatial effect alone.
	Normalize bool
}

// Prediction holds per-query-point posterior mean (and variance when
// requested). Scoped to the reporting step that consumes it.
type Prediction struct {
	Points   []metricgraph.MeshPoint `json:"points"`
	Mean     []float64               `json:"mean"`
	Variance []float64               `json:"variance,omitempty"`
}

// Predict computes the kriging predictor of the fitted field at the given
// graph-relative query coordinates.
func Predict(m *FittedModel, points []metricgraph.MeshPoint, opts PredictOptions) (*Prediction, error) {
	g := m.Graph()
	for i, p := range points {
		if p.EdgeID < 0 || p.EdgeID >= g.NumberOfEdges() {
			return nil, util.WrapErrorf(nil, util.ErrDimensionMismatch,
				"query %d references unknown edge %d", i, p.EdgeID)
		}
		if p.Dist < -metricgraph.EPS || p.Dist > g.GetEdge(p.EdgeID).GetLength()+metricgraph.EPS {
			return nil, util.WrapErrorf(nil, util.ErrDimensionMismatch,
				"query %d distance %f outside edge %d", i, p.Dist, p.EdgeID)
		}
	}

	y, _ := m.data.Column(m.response)
	obs := m.data.Points()
	nObs := len(obs)
	nQuery := len(points)

	nu := m.Spec.nu()
	kappa := kappaFromRange(m.Range, nu)
	sigma2 := m.Sigma * m.Sigma
	nugget2 := m.Nugget * m.Nugget

	d, err := distanceMatrix(g, obs)
	if err != nil {
		return nil, err
	}
	cov := covarianceMatrix(d, kappa, sigma2, nugget2, m.Spec.Alpha)

	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		return nil, util.WrapErrorf(nil, util.ErrFitFailure,
			"fitted covariance is not positive definite")
	}

	// cross-covariance between every observation and every query point
	cross := mat.NewDense(nObs, nQuery, nil)
	for j, o := range obs {
		vertexDists := g.DistancesFrom(o.EdgeID, o.Dist)
		for i, q := range points {
			dist := g.DistanceTo(vertexDists, o.EdgeID, o.Dist, q.EdgeID, q.Dist)
			cross.Set(j, i, maternCovariance(dist, kappa, sigma2, m.Spec.Alpha))
		}
	}

	resid := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		resid.SetVec(i, y[i]-m.Intercept)
	}
	var sInvResid mat.VecDense
	if err := chol.SolveVecTo(&sInvResid, resid); err != nil {
		return nil, util.WrapErrorf(err, util.ErrFitFailure, "kriging solve failed")
	}

	pred := &Prediction{
		Points: points,
		Mean:   make([]float64, nQuery),
	}
	for i := 0; i < nQuery; i++ {
		spatial := mat.Dot(cross.ColView(i), &sInvResid)
		if opts.Normalize {
			pred.Mean[i] = spatial
		} else {
			pred.Mean[i] = m.Intercept + spatial
		}
	}

	if opts.WithVariance {
		var sInvCross mat.Dense
		if err := chol.SolveTo(&sInvCross, cross); err != nil {
			return nil, util.WrapErrorf(err, util.ErrFitFailure, "kriging variance solve failed")
		}
		pred.Variance = make([]float64, nQuery)
		for i := 0; i < nQuery; i++ {
			v := sigma2 - mat.Dot(cross.ColView(i), sInvCross.ColView(i))
			pred.Variance[i] = math.Max(v, 0)
		}
	}

	return pred, nil
}
