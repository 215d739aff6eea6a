package field

import (
	"math"

	"github.com/roadstats/trafficfield/pkg/binder"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/util"
	"gonum.org/v1/gonum/mat"
)

// kappaFromRange converts the practical correlation range rho to the Matérn
// scale parameter: kappa = sqrt(8 nu) / rho.
func kappaFromRange(rho, nu float64) float64 {
	return math.Sqrt(8*nu) / rho
}

func rangeFromKappa(kappa, nu float64) float64 {
	return math.Sqrt(8*nu) / kappa
}

// maternCovariance evaluates the Whittle-Matérn covariance at geodesic
// distance h for alpha in {1, 2}.
func maternCovariance(h, kappa, sigma2 float64, alpha int) float64 {
	switch alpha {
	case 1:
		return sigma2 * math.Exp(-kappa*h)
	case 2:
		return sigma2 * (1 + kappa*h) * math.Exp(-kappa*h)
	default:
		panic("unsupported alpha")
	}
}

// distanceMatrix computes pairwise metric-graph geodesic distances between
// the bound observation locations, one dijkstra per observation.
func distanceMatrix(g *metricgraph.Graph, points []binder.BoundPoint) (*mat.Dense, error) {
	n := len(points)
	d := mat.NewDense(n, n, nil)

	for i := 0; i < n; i++ {
		vertexDists := g.DistancesFrom(points[i].EdgeID, points[i].Dist)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			dist := g.DistanceTo(vertexDists, points[i].EdgeID, points[i].Dist,
				points[j].EdgeID, points[j].Dist)
			if math.IsInf(dist, 1) {
				return nil, util.WrapErrorf(nil, util.ErrFitFailure,
					"observations %d and %d are on disconnected parts of the graph", i, j)
			}
			d.Set(i, j, dist)
		}
	}

	// symmetrize, the two one-sided dijkstra results can differ by float noise
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m := math.Min(d.At(i, j), d.At(j, i))
			d.Set(i, j, m)
			d.Set(j, i, m)
		}
	}

	return d, nil
}

// covarianceMatrix fills a symmetric observation covariance: matern on the
// distances plus the nugget on the diagonal.
func covarianceMatrix(d *mat.Dense, kappa, sigma2, nugget2 float64, alpha int) *mat.SymDense {
	n, _ := d.Dims()
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := maternCovariance(d.At(i, j), kappa, sigma2, alpha)
			if i == j {
				c += nugget2
			}
			cov.SetSym(i, j, c)
		}
	}
	return cov
}
