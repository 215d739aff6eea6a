// Package field fits Whittle-Matérn Gaussian random fields to observations
// bound on a metric graph, and predicts the field at mesh locations. Two
// interchangeable fitting backends share one result contract: a direct
// likelihood fit over graph geodesic distances, and a latent-field (SPDE)
// fit over a finite-element discretization of the graph.
package field

import (
	"context"

	"github.com/roadstats/trafficfield/pkg/binder"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/util"
)

type CovarianceFamily string

const (
	WhittleMatern CovarianceFamily = "WhittleMatern"
)

// Spec selects the covariance model. Alpha is the smoothness parameter
// (alpha = nu + 1/2 on a network): 1 gives the exponential covariance,
// 2 the once-differentiable Matérn. Neumann selects the free boundary
// condition at degree-one vertices in the latent-field backend.
type Spec struct {
	Family  CovarianceFamily
	Alpha   int
	Neumann bool
}

func (s Spec) Validate() error {
	if s.Family != WhittleMatern {
		return util.WrapErrorf(nil, util.ErrBadParamInput,
			"unknown covariance family %q", s.Family)
	}
	if s.Alpha != 1 && s.Alpha != 2 {
		return util.WrapErrorf(nil, util.ErrBadParamInput,
			"alpha must be 1 or 2, got %d", s.Alpha)
	}
	return nil
}

// nu returns the Matérn smoothness implied by alpha.
func (s Spec) nu() float64 {
	return float64(s.Alpha) - 0.5
}

// numParams intercept, range, sigma, nugget.
const numParams = 4

type ParameterEstimate struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
}

// FittedModel is the result of one fitting call: point estimates plus the
// bound data needed for prediction. Immutable, owned by the caller.
type FittedModel struct {
	Spec      Spec
	Intercept float64
	Range     float64
	Sigma     float64
	Nugget    float64 // measurement-error standard deviation
	LogLik    float64
	Backend   string

	data     *binder.Dataset
	response string
	summary  []ParameterEstimate
}

func (m *FittedModel) Graph() *metricgraph.Graph { return m.data.Graph() }

func (m *FittedModel) Response() string { return m.response }

// Summary returns the parameter estimates with uncertainty, comparable
// across backends.
func (m *FittedModel) Summary() []ParameterEstimate {
	out := make([]ParameterEstimate, len(m.summary))
	copy(out, m.summary)
	return out
}

// Fitter is the fitting strategy: both backends accept the same model
// vocabulary and produce directly comparable parameter summaries.
type Fitter interface {
	Fit(ctx context.Context, data *binder.Dataset, response string, spec Spec) (*FittedModel, error)
}
