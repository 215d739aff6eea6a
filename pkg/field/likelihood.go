package field

import (
	"context"
	"math"

	"github.com/roadstats/trafficfield/pkg/binder"
	"github.com/roadstats/trafficfield/pkg/util"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// LikelihoodFitter fits the model by direct maximum likelihood over the
// dense covariance of the observations (Matérn on geodesic distances).
type LikelihoodFitter struct {
	log *zap.Logger
}

func NewLikelihoodFitter(log *zap.Logger) *LikelihoodFitter {
	return &LikelihoodFitter{log: log}
}

func (f *LikelihoodFitter) Fit(ctx context.Context, data *binder.Dataset,
	response string, spec Spec) (*FittedModel, error) {

	y, d, err := fitInputs(data, response, spec)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nu := spec.nu()
	n := len(y)

	// theta = (log kappa, log sigma, log nugget sd)
	nll := func(theta []float64) float64 {
		kappa := math.Exp(theta[0])
		sigma2 := math.Exp(2 * theta[1])
		nugget2 := math.Exp(2 * theta[2])
		cov := covarianceMatrix(d, kappa, sigma2, nugget2, spec.Alpha)
		val, _, ok := profileNLL(y, cov)
		if !ok {
			return math.Inf(1)
		}
		return val
	}

	theta0 := initialTheta(y, d, nu)
	result, err := optimize.Minimize(optimize.Problem{Func: nll}, theta0, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrFitFailure, "likelihood optimization failed")
	}
	if math.IsInf(result.F, 1) || math.IsNaN(result.F) {
		return nil, util.WrapErrorf(nil, util.ErrFitFailure,
			"likelihood did not converge (final nll %f)", result.F)
	}

	kappa := math.Exp(result.X[0])
	sigma := math.Exp(result.X[1])
	nugget := math.Exp(result.X[2])

	cov := covarianceMatrix(d, kappa, sigma*sigma, nugget*nugget, spec.Alpha)
	_, beta, ok := profileNLL(y, cov)
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrFitFailure,
			"covariance not positive definite at the optimum")
	}

	f.log.Info("likelihood fit done",
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
		Backend:   "likelihood",
		data:      data,
		response:  response,
	}
	model.summary = buildSummary(model, nll, result.X, cov, n)
	return model, nil
}

// fitInputs validates the shared preconditions of both backends and returns
// the response vector plus the observation distance matrix.
func fitInputs(data *binder.Dataset, response string, spec Spec) ([]float64, *mat.Dense, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}
	y, ok := data.Column(response)
	if !ok {
		return nil, nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"response column %q not bound", response)
	}
	if len(y) < numParams {
		return nil, nil, util.WrapErrorf(nil, util.ErrFitFailure,
			"%d observations is fewer than the %d model parameters", len(y), numParams)
	}
	for i, v := range y {
		if math.IsNaN(v) {
			return nil, nil, util.WrapErrorf(nil, util.ErrBadParamInput,
				"response %q has missing value at row %d", response, i)
		}
	}

	d, err := distanceMatrix(data.Graph(), data.Points())
	if err != nil {
		return nil, nil, err
	}
	return y, d, nil
}

func initialTheta(y []float64, d *mat.Dense, nu float64) []float64 {
	n, _ := d.Dims()
	meanDist := 0.0
	count := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			meanDist += d.At(i, j)
			count++
		}
	}
	if count > 0 {
		meanDist /= float64(count)
	}
	if meanDist <= 0 {
		meanDist = 1.0
	}

	sd := stat.StdDev(y, nil)
	if sd <= 0 || math.IsNaN(sd) {
		sd = 1.0
	}

	return []float64{
		math.Log(kappaFromRange(meanDist/2, nu)),
		math.Log(sd),
		math.Log(sd / 10),
	}
}

// profileNLL evaluates the negative log marginal likelihood of y under
// N(beta 1, cov), with the intercept beta profiled out by generalized least
// squares. ok is false when cov is not positive definite.
func profileNLL(y []float64, cov *mat.SymDense) (float64, float64, bool) {
	n := len(y)

	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		return 0, 0, false
	}

	ones := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		ones.SetVec(i, 1)
	}
	yVec := mat.NewVecDense(n, y)

	var sInvOnes, sInvY mat.VecDense
	if err := chol.SolveVecTo(&sInvOnes, ones); err != nil {
		return 0, 0, false
	}
	if err := chol.SolveVecTo(&sInvY, yVec); err != nil {
		return 0, 0, false
	}

	denom := mat.Dot(ones, &sInvOnes)
	if denom <= 0 {
		return 0, 0, false
	}
	beta := mat.Dot(ones, &sInvY) / denom

	// r' cov^-1 r with r = y - beta 1
	quad := mat.Dot(yVec, &sInvY) - 2*beta*mat.Dot(yVec, &sInvOnes) + beta*beta*denom

	nll := 0.5 * (chol.LogDet() + quad + float64(n)*math.Log(2*math.Pi))
	if math.IsNaN(nll) {
		return 0, 0, false
	}
	return nll, beta, true
}

// buildSummary derives parameter standard errors from the numerical Hessian
// of the profile likelihood at the optimum (delta method back to the natural
// scale), and the intercept standard error from its GLS variance.
func buildSummary(m *FittedModel, nll func([]float64) float64, thetaHat []float64,
	cov *mat.SymDense, n int) []ParameterEstimate {

	stdErrs := []float64{math.NaN(), math.NaN(), math.NaN()}

	hess := mat.NewSymDense(len(thetaHat), nil)
	fd.Hessian(hess, nll, thetaHat, nil)

	var hessChol mat.Cholesky
	if hessChol.Factorize(hess) {
		var inv mat.SymDense
		if err := hessChol.InverseTo(&inv); err == nil {
			for i := range stdErrs {
				v := inv.At(i, i)
				if v > 0 {
					stdErrs[i] = math.Sqrt(v)
				}
			}
		}
	}

	interceptSE := math.NaN()
	var chol mat.Cholesky
	if chol.Factorize(cov) {
		ones := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			ones.SetVec(i, 1)
		}
		var sInvOnes mat.VecDense
		if err := chol.SolveVecTo(&sInvOnes, ones); err == nil {
			denom := mat.Dot(ones, &sInvOnes)
			if denom > 0 {
				interceptSE = math.Sqrt(1 / denom)
			}
		}
	}

	// log-scale standard errors scale multiplicatively on the natural scale
	return []ParameterEstimate{
		{Name: "intercept", Estimate: m.Intercept, StdErr: interceptSE},
		{Name: "range", Estimate: m.Range, StdErr: m.Range * stdErrs[0]},
		{Name: "sigma", Estimate: m.Sigma, StdErr: m.Sigma * stdErrs[1]},
		{Name: "nugget", Estimate: m.Nugget, StdErr: m.Nugget * stdErrs[2]},
	}
}
