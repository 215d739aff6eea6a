package field

import (
	"context"
	"math"

	"github.com/roadstats/trafficfield/pkg/binder"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/util"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LatentFitter fits the model through its latent-field (SPDE) formulation: a
// Gauss-Markov random field on a finite-element discretization of the graph,
// with observations tied to mesh nodes by linear interpolation. Same
// parameter vocabulary and summary shape as LikelihoodFitter.
type LatentFitter struct {
	log      *zap.Logger
	meshStep float64
}

func NewLatentFitter(log *zap.Logger, meshStep float64) *LatentFitter {
	return &LatentFitter{log: log, meshStep: meshStep}
}

func (f *LatentFitter) Fit(ctx context.Context, data *binder.Dataset,
	response string, spec Spec) (*FittedModel, error) {

	if f.meshStep <= 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"latent fitter mesh step must be positive, got %f", f.meshStep)
	}
	y, d, err := fitInputs(data, response, spec)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := data.Graph()
	if _, err := g.BuildMesh(f.meshStep); err != nil {
		return nil, err
	}
	fem, err := buildFEM(g, f.meshStep, data.Points())
	if err != nil {
		return nil, err
	}
	f.log.Info("latent discretization assembled",
		zap.Int("mesh_nodes", fem.numNodes),
		zap.Int("observations", len(y)))

	nu := spec.nu()
	n := len(y)

	nll := func(theta []float64) float64 {
		kappa := math.Exp(theta[0])
		sigma2 := math.Exp(2 * theta[1])
		nugget2 := math.Exp(2 * theta[2])
		cov, ok := fem.marginalCovariance(kappa, sigma2, nugget2, spec)
		if !ok {
			return math.Inf(1)
		}
		val, _, ok := profileNLL(y, cov)
		if !ok {
			return math.Inf(1)
		}
		return val
	}

	theta0 := initialTheta(y, d, nu)
	result, err := optimize.Minimize(optimize.Problem{Func: nll}, theta0, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrFitFailure, "latent-field optimization failed")
	}
	if math.IsInf(result.F, 1) || math.IsNaN(result.F) {
		return nil, util.WrapErrorf(nil, util.ErrFitFailure,
			"latent-field likelihood did not converge (final nll %f)", result.F)
	}

	kappa := math.Exp(result.X[0])
	sigma := math.Exp(result.X[1])
	nugget := math.Exp(result.X[2])

	cov, ok := fem.marginalCovariance(kappa, sigma*sigma, nugget*nugget, spec)
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrFitFailure,
			"latent precision not positive definite at the optimum")
	}
	_, beta, ok := profileNLL(y, cov)
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrFitFailure,
			"marginal covariance not positive definite at the optimum")
	}

	f.log.Info("latent-field fit done",
		zap.Float64("intercept", beta),
		zap.Float64("range_km", rangeFromKappa(kappa, nu)),
		zap.Float64("sigma", sigma),
		zap.Float64("nugget", nugget),
		zap.Float64("nll", result.F))

	model := &FittedModel{
		Spec:      spec,
		Intercept: beta,
		Range:     rangeFromKappa(kappa, nu),
		Sigma:     sigma,
		Nugget:    nugget,
		LogLik:    -result.F,
		Backend:   "latent",
		data:      data,
		response:  response,
	}
	model.summary = buildSummary(model, nll, result.X, cov, n)
	return model, nil
}

// femDiscretization is the auxiliary SPDE object: lumped mass and stiffness
// matrices on the mesh nodes, plus the observation interpolation weights.
type femDiscretization struct {
	numNodes int
	massDiag []float64
	stiff    *mat.SymDense
	// obsNodes/obsWeights: each observation loads onto the two mesh nodes of
	// its containing segment.
	obsNodes   [][2]int
	obsWeights [][2]float64
	boundary   []int // degree-one vertex nodes
}

// dirichletPenalty pins boundary nodes to zero when the Neumann condition is
// off.
const dirichletPenalty = 1e8

func buildFEM(g *metricgraph.Graph, h float64, points []binder.BoundPoint) (*femDiscretization, error) {
	numVertices := g.NumberOfVertices()

	// interior node layout per edge: tail, interiorStart..interiorStart+n-2, head
	interiorStart := make([]int, g.NumberOfEdges())
	segCount := make([]int, g.NumberOfEdges())
	numNodes := numVertices
	g.ForEdges(func(e metricgraph.Edge) {
		n := int(math.Ceil(e.GetLength() / h))
		if n < 1 {
			n = 1
		}
		segCount[e.GetID()] = n
		interiorStart[e.GetID()] = numNodes
		numNodes += n - 1
	})

	nodeAt := func(edgeID, k int) int {
		e := g.GetEdge(edgeID)
		switch {
		case k == 0:
			return e.GetTail()
		case k == segCount[edgeID]:
			return e.GetHead()
		default:
			return interiorStart[edgeID] + k - 1
		}
	}

	fem := &femDiscretization{
		numNodes: numNodes,
		massDiag: make([]float64, numNodes),
		stiff:    mat.NewSymDense(numNodes, nil),
	}

	g.ForEdges(func(e metricgraph.Edge) {
		n := segCount[e.GetID()]
		le := e.GetLength() / float64(n)
		for k := 0; k < n; k++ {
			a, b := nodeAt(e.GetID(), k), nodeAt(e.GetID(), k+1)
			fem.massDiag[a] += le / 2
			fem.massDiag[b] += le / 2
			fem.stiff.SetSym(a, a, fem.stiff.At(a, a)+1/le)
			fem.stiff.SetSym(b, b, fem.stiff.At(b, b)+1/le)
			fem.stiff.SetSym(a, b, fem.stiff.At(a, b)-1/le)
		}
	})

	for v := 0; v < numVertices; v++ {
		if g.VertexDegree(v) == 1 {
			fem.boundary = append(fem.boundary, v)
		}
	}

	fem.obsNodes = make([][2]int, len(points))
	fem.obsWeights = make([][2]float64, len(points))
	for i, p := range points {
		if p.EdgeID < 0 || p.EdgeID >= g.NumberOfEdges() {
			return nil, util.WrapErrorf(nil, util.ErrDimensionMismatch,
				"observation %d references unknown edge %d", i, p.EdgeID)
		}
		n := segCount[p.EdgeID]
		le := g.GetEdge(p.EdgeID).GetLength() / float64(n)
		k := int(p.Dist / le)
		if k >= n {
			k = n - 1
		}
		w := p.Dist/le - float64(k)
		fem.obsNodes[i] = [2]int{nodeAt(p.EdgeID, k), nodeAt(p.EdgeID, k+1)}
		fem.obsWeights[i] = [2]float64{1 - w, w}
	}

	return fem, nil
}

// marginalCovariance computes A Q^-1 A' + nugget2 I, the covariance of the
// observations under the latent field with precision Q(kappa, sigma2).
func (fem *femDiscretization) marginalCovariance(kappa, sigma2, nugget2 float64,
	spec Spec) (*mat.SymDense, bool) {

	q := fem.precision(kappa, sigma2, spec)

	var chol mat.Cholesky
	if !chol.Factorize(q) {
		return nil, false
	}

	m := len(fem.obsNodes)
	aT := mat.NewDense(fem.numNodes, m, nil)
	for i := 0; i < m; i++ {
		aT.Set(fem.obsNodes[i][0], i, fem.obsWeights[i][0])
		aT.Set(fem.obsNodes[i][1], i, aT.At(fem.obsNodes[i][1], i)+fem.obsWeights[i][1])
	}

	var qInvAT mat.Dense
	if err := chol.SolveTo(&qInvAT, aT); err != nil {
		return nil, false
	}

	var marg mat.Dense
	marg.Mul(aT.T(), &qInvAT)

	cov := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			c := (marg.At(i, j) + marg.At(j, i)) / 2
			if i == j {
				c += nugget2
			}
			cov.SetSym(i, j, c)
		}
	}
	return cov, true
}

// precision assembles Q. For alpha=1, Q = (kappa^2 C + G) / (2 kappa sigma2);
// for alpha=2, Q = K C^-1 K / (4 kappa^3 sigma2) with K = kappa^2 C + G.
// The scaling makes the stationary marginal variance sigma2.
func (fem *femDiscretization) precision(kappa, sigma2 float64, spec Spec) *mat.SymDense {
	n := fem.numNodes

	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := fem.stiff.At(i, j)
			if i == j {
				v += kappa * kappa * fem.massDiag[i]
			}
			k.SetSym(i, j, v)
		}
	}

	var q *mat.SymDense
	switch spec.Alpha {
	case 1:
		scale := 1 / (2 * kappa * sigma2)
		q = mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				q.SetSym(i, j, scale*k.At(i, j))
			}
		}
	default: // alpha == 2, Validate rejects the rest
		scale := 1 / (4 * kappa * kappa * kappa * sigma2)
		cInvK := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				cInvK.Set(i, j, k.At(i, j)/fem.massDiag[i])
			}
		}
		var kcik mat.Dense
		kcik.Mul(k, cInvK)
		q = mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				q.SetSym(i, j, scale*(kcik.At(i, j)+kcik.At(j, i))/2)
			}
		}
	}

	if !spec.Neumann {
		for _, b := range fem.boundary {
			q.SetSym(b, b, q.At(b, b)+dirichletPenalty)
		}
	}
	return q
}
