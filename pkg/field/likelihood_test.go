package field

import (
	"context"
	"math"
	"testing"

	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestProfileNLLIdentityCovariance(t *testing.T) {
	y := []float64{1, 2, 3, 6}
	n := len(y)

	eye := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		eye.SetSym(i, i, 1)
	}

	nll, beta, ok := profileNLL(y, eye)
	require.True(t, ok)

	mean := stat.Mean(y, nil)
	assert.InDelta(t, mean, beta, 1e-12)

	quad := 0.0
	for _, v := range y {
		quad += (v - mean) * (v - mean)
	}
	want := 0.5 * (quad + float64(n)*math.Log(2*math.Pi))
	assert.InDelta(t, want, nll, 1e-9)
}

func TestProfileNLLRejectsIndefiniteCovariance(t *testing.T) {
	bad := mat.NewSymDense(2, []float64{1, 2, 2, 1}) // eigenvalues 3 and -1
	_, _, ok := profileNLL([]float64{1, 2}, bad)
	assert.False(t, ok)
}

func TestFitInputValidation(t *testing.T) {
	ds := buildLineDataset(t,
		[]float64{0.002, 0.006, 0.010, 0.014, 0.018},
		[]float64{1, 2, 3, 2, 1}, "v")
	okSpec := Spec{Family: WhittleMatern, Alpha: 1, Neumann: true}

	t.Run("missing response column", func(t *testing.T) {
		_, _, err := fitInputs(ds, "nope", okSpec)
		assert.Error(t, err)
	})

	t.Run("bad alpha", func(t *testing.T) {
		_, _, err := fitInputs(ds, "v", Spec{Family: WhittleMatern, Alpha: 3})
		assert.Error(t, err)
	})

	t.Run("unknown family", func(t *testing.T) {
		_, _, err := fitInputs(ds, "v", Spec{Family: "Gaussian", Alpha: 1})
		assert.Error(t, err)
	})

	t.Run("too few observations", func(t *testing.T) {
		small := buildLineDataset(t, []float64{0.002, 0.01, 0.018}, []float64{1, 2, 3}, "v")
		_, _, err := fitInputs(small, "v", okSpec)
		assert.Error(t, err)
	})

	t.Run("valid inputs", func(t *testing.T) {
		y, d, err := fitInputs(ds, "v", okSpec)
		require.NoError(t, err)
		assert.Len(t, y, 5)
		r, c := d.Dims()
		assert.Equal(t, 5, r)
		assert.Equal(t, 5, c)
	})
}

func TestLikelihoodFit(t *testing.T) {
	lons := make([]float64, 12)
	values := make([]float64, 12)
	for i := range lons {
		lons[i] = 0.0015 + float64(i)*0.0015
		// a smooth bump plus a small deterministic wiggle standing in for noise
		values[i] = 2 + math.Sin(float64(i)/2) + 0.05*math.Pow(-1, float64(i))
	}
	ds := buildLineDataset(t, lons, values, "v")

	fitter := NewLikelihoodFitter(zap.NewNop())
	model, err := fitter.Fit(context.Background(),
		ds, "v", Spec{Family: WhittleMatern, Alpha: 1, Neumann: true})
	require.NoError(t, err)

	assert.Equal(t, "likelihood", model.Backend)
	assert.Equal(t, "v", model.Response())
	assert.Greater(t, model.Range, 0.0)
	assert.Greater(t, model.Sigma, 0.0)
	assert.GreaterOrEqual(t, model.Nugget, 0.0)
	assert.False(t, math.IsNaN(model.LogLik))
	assert.False(t, math.IsInf(model.LogLik, 0))

	summary := model.Summary()
	require.Len(t, summary, 4)
	names := []string{"intercept", "range", "sigma", "nugget"}
	for i, p := range summary {
		assert.Equal(t, names[i], p.Name)
		assert.False(t, math.IsNaN(p.Estimate), "%s estimate", p.Name)
	}

	// the summary slice is a copy, mutating it must not leak into the model
	summary[0].Estimate = -999
	assert.NotEqual(t, -999.0, model.Summary()[0].Estimate)
}

func TestLikelihoodFitRecoversSimulatedField(t *testing.T) {
	// noise-free realization with known parameters, bound back onto the graph
	lons := make([]float64, 20)
	for i := range lons {
		lons[i] = 0.0005 + float64(i)*0.001
	}
	scaffold := buildLineDataset(t, lons, make([]float64, len(lons)), "v")
	g := scaffold.Graph()

	points := make([]metricgraph.MeshPoint, scaffold.Len())
	for i, p := range scaffold.Points() {
		points[i] = metricgraph.MeshPoint{EdgeID: p.EdgeID, Dist: p.Dist}
	}

	spec := Spec{Family: WhittleMatern, Alpha: 1, Neumann: true}
	trueRange, trueSigma := 0.6, 1.0
	values, err := Simulate(g, points, spec, 3.0, trueRange, trueSigma, 0, 11)
	require.NoError(t, err)

	ds := buildLineDataset(t, lons, values, "v")
	fitter := NewLikelihoodFitter(zap.NewNop())
	model, err := fitter.Fit(context.Background(), ds, "v", spec)
	require.NoError(t, err)

	// one realization carries real sampling error, so the check is coarse:
	// same order of magnitude for range and sigma, near-zero nugget
	assert.Greater(t, model.Range, trueRange/5)
	assert.Less(t, model.Range, trueRange*5)
	assert.Greater(t, model.Sigma, trueSigma/4)
	assert.Less(t, model.Sigma, trueSigma*4)
	assert.Less(t, model.Nugget, trueSigma/2, "nugget should approach zero on noise-free data")
}

func TestLikelihoodFitHonorsContext(t *testing.T) {
	ds := buildLineDataset(t,
		[]float64{0.002, 0.006, 0.010, 0.014, 0.018},
		[]float64{1, 2, 3, 2, 1}, "v")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fitter := NewLikelihoodFitter(zap.NewNop())
	_, err := fitter.Fit(ctx, ds, "v", Spec{Family: WhittleMatern, Alpha: 1, Neumann: true})
	assert.Error(t, err)
}
