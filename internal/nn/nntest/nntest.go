// Package nntest builds synthetic weight sets for tests.
package nntest

import (
	"math/rand"
	"testing"

	"mnist-lenet/internal/nn"
)

// RandomWeights fills every parameter with small values drawn from seed.
func RandomWeights(tb testing.TB, topo nn.Topology, seed int64) *nn.Weights {
	tb.Helper()
	rng := rand.New(rand.NewSource(seed))
	w := nn.NewWeights(topo.Params)
	for _, p := range topo.Params {
		values := make([]float32, p.Shape.Len())
		for i := range values {
			values[i] = float32(rng.NormFloat64() * 0.3)
		}
		if err := w.Set(p.Name, values); err != nil {
			tb.Fatalf("set %s: %v", p.Name, err)
		}
	}
	return w
}

// Favor returns random LeNet weights whose linear bias pushes digit far above
// the others, so the classifier picks it for any input.
func Favor(tb testing.TB, digit int, seed int64) *nn.Weights {
	tb.Helper()
	w := RandomWeights(tb, nn.LeNet, seed)
	bias := make([]float32, 10)
	bias[digit] = 50
	if err := w.Set("linear_bias", bias); err != nil {
		tb.Fatalf("set linear_bias: %v", err)
	}
	return w
}

// WriteDir dumps w into a fresh temporary directory and returns its path.
func WriteDir(tb testing.TB, w *nn.Weights) string {
	tb.Helper()
	dir := tb.TempDir()
	if err := nn.WriteWeights(dir, w); err != nil {
		tb.Fatalf("write weights: %v", err)
	}
	return dir
}
