package field

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

func TestBuildFEMOnSingleEdge(t *testing.T) {
	ds := buildLineDataset(t, []float64{0.002, 0.012}, []float64{1, 2}, "v")
	g := ds.Graph()
	require.Equal(t, 1, g.NumberOfEdges())

	h := 0.5
	fem, err := buildFEM(g, h, ds.Points())
	require.NoError(t, err)

	length := g.GetEdge(0).GetLength()
	segments := int(math.Ceil(length / h))
	assert.Equal(t, g.NumberOfVertices()+segments-1, fem.numNodes)

	// lumped mass conserves total length
	total := 0.0
	for _, m := range fem.massDiag {
		assert.Greater(t, m, 0.0)
		total += m
	}
	assert.InDelta(t, length, total, 1e-9)

	// stiffness rows sum to zero, the discrete laplacian annihilates constants
	for i := 0; i < fem.numNodes; i++ {
		rowSum := 0.0
		for j := 0; j < fem.numNodes; j++ {
			rowSum += fem.stiff.At(i, j)
		}
		assert.InDelta(t, 0, rowSum, 1e-9, "row %d", i)
	}

	// both endpoints of a single edge are boundary vertices
	assert.ElementsMatch(t, []int{g.GetEdge(0).GetTail(), g.GetEdge(0).GetHead()}, fem.boundary)

	// observation weights are a convex combination of two nodes
	require.Len(t, fem.obsNodes, 2)
	for i := range fem.obsNodes {
		w := fem.obsWeights[i]
		assert.GreaterOrEqual(t, w[0], 0.0)
		assert.GreaterOrEqual(t, w[1], 0.0)
		assert.InDelta(t, 1, w[0]+w[1], 1e-9)
	}
}

func TestPrecisionPositiveDefinite(t *testing.T) {
	ds := buildLineDataset(t, []float64{0.002, 0.012}, []float64{1, 2}, "v")
	fem, err := buildFEM(ds.Graph(), 0.3, ds.Points())
	require.NoError(t, err)

	testCases := []struct {
		name string
		spec Spec
	}{
		{name: "alpha 1 neumann", spec: Spec{Family: WhittleMatern, Alpha: 1, Neumann: true}},
		{name: "alpha 1 dirichlet", spec: Spec{Family: WhittleMatern, Alpha: 1, Neumann: false}},
		{name: "alpha 2 neumann", spec: Spec{Family: WhittleMatern, Alpha: 2, Neumann: true}},
		{name: "alpha 2 dirichlet", spec: Spec{Family: WhittleMatern, Alpha: 2, Neumann: false}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			q := fem.precision(1.5, 1.0, tt.spec)
			var chol mat.Cholesky
			assert.True(t, chol.Factorize(q), "precision must be positive definite")
		})
	}
}

func TestMarginalCovarianceShape(t *testing.T) {
	ds := buildLineDataset(t, []float64{0.002, 0.008, 0.016}, []float64{1, 2, 3}, "v")
	fem, err := buildFEM(ds.Graph(), 0.3, ds.Points())
	require.NoError(t, err)

	spec := Spec{Family: WhittleMatern, Alpha: 1, Neumann: true}
	nugget2 := 0.01
	cov, ok := fem.marginalCovariance(1.5, 1.0, nugget2, spec)
	require.True(t, ok)

	n := cov.SymmetricDim()
	require.Equal(t, 3, n)
	for i := 0; i < n; i++ {
		assert.Greater(t, cov.At(i, i), nugget2, "diagonal includes latent variance plus nugget")
		for j := 0; j < n; j++ {
			assert.Equal(t, cov.At(i, j), cov.At(j, i))
		}
	}

	// closer observations correlate more strongly
	assert.Greater(t, cov.At(0, 1), cov.At(0, 2))
}

func TestLatentFit(t *testing.T) {
	lons := make([]float64, 10)
	values := make([]float64, 10)
	for i := range lons {
		lons[i] = 0.0015 + float64(i)*0.0018
		values[i] = 1 + math.Cos(float64(i)/2) + 0.05*math.Pow(-1, float64(i))
	}
	ds := buildLineDataset(t, lons, values, "v")

	fitter := NewLatentFitter(zap.NewNop(), 0.25)
	model, err := fitter.Fit(context.Background(),
		ds, "v", Spec{Family: WhittleMatern, Alpha: 1, Neumann: true})
	require.NoError(t, err)

	assert.Equal(t, "latent", model.Backend)
	assert.Greater(t, model.Range, 0.0)
	assert.Greater(t, model.Sigma, 0.0)
	require.Len(t, model.Summary(), 4)
}

func TestLatentFitRejectsBadMeshStep(t *testing.T) {
	ds := buildLineDataset(t,
		[]float64{0.002, 0.006, 0.010, 0.014, 0.018},
		[]float64{1, 2, 3, 2, 1}, "v")

	fitter := NewLatentFitter(zap.NewNop(), 0)
	_, err := fitter.Fit(context.Background(),
		ds, "v", Spec{Family: WhittleMatern, Alpha: 1, Neumann: true})
	assert.Error(t, err)
}
