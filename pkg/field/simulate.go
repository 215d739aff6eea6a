package field

import (
	"github.com/roadstats/trafficfield/pkg/binder"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/util"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"
)

// Simulate draws one realization of the field at the given graph locations:
// intercept plus a zero-mean Whittle-Matérn field plus nugget noise. Used by
// the simulate cmd and by parameter-recovery tests.
func Simulate(g *metricgraph.Graph, points []metricgraph.MeshPoint, spec Spec,
	intercept, rho, sigma, nugget float64, seed uint64) ([]float64, error) {

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if rho <= 0 || sigma <= 0 || nugget < 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"simulation parameters must be positive (rho %f, sigma %f, nugget %f)",
			rho, sigma, nugget)
	}

	locs := make([]binder.BoundPoint, len(points))
	for i, p := range points {
		locs[i] = binder.BoundPoint{EdgeID: p.EdgeID, Dist: p.Dist}
	}
	d, err := distanceMatrix(g, locs)
	if err != nil {
		return nil, err
	}

	kappa := kappaFromRange(rho, spec.nu())
	cov := covarianceMatrix(d, kappa, sigma*sigma, nugget*nugget, spec.Alpha)

	mean := make([]float64, len(points))
	for i := range mean {
		mean[i] = intercept
	}

	normal, ok := distmv.NewNormal(mean, cov, rand.NewSource(seed))
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrFitFailure,
			"simulation covariance is not positive definite")
	}
	return normal.Rand(nil), nil
}
