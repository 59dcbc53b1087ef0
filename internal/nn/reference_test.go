package nn_test

import (
	"math"
	"testing"

	"mnist-lenet/internal/nn"
	"mnist-lenet/internal/nn/nntest"
)

func TestReferenceHandComputed(t *testing.T) {
	topo := nn.Topology{
		Input: nn.Shape{1, 2, 2},
		Params: []nn.ParamSpec{
			{Name: "cw", Shape: nn.Shape{1, 1, 1, 1}},
			{Name: "cb", Shape: nn.Shape{1, 1, 1}},
			{Name: "lw", Shape: nn.Shape{2, 4}},
		},
		Layers: []nn.Layer{
			{Op: nn.Conv2D, Param: "cw", Stride: 1},
			{Op: nn.BiasAdd, Param: "cb"},
			{Op: nn.Flatten},
			{Op: nn.Linear, Param: "lw"},
			{Op: nn.Softmax},
		},
	}
	w := nn.NewWeights(topo.Params)
	mustSet(t, w, "cw", []float32{2})
	mustSet(t, w, "cb", []float32{1})
	mustSet(t, w, "lw", []float32{
		1, 0, 0, 0,
		0, 0, 0, 1,
	})

	r, err := nn.NewReference(topo)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SetWeights(w); err != nil {
		t.Fatal(err)
	}
	// conv+bias: [3 5 7 9]; logits [3 9]
	out, err := r.Forward([]float32{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	e := math.Exp(-6)
	want := []float64{e / (1 + e), 1 / (1 + e)}
	for i := range want {
		if math.Abs(float64(out[i])-want[i]) > 1e-6 {
			t.Fatalf("out[%d]=%v want %v", i, out[i], want[i])
		}
	}
}

func TestReferenceLeNetIsDistribution(t *testing.T) {
	r, err := nn.NewReference(nn.LeNet)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SetWeights(nntest.RandomWeights(t, nn.LeNet, 11)); err != nil {
		t.Fatal(err)
	}
	input := make([]float32, 28*28)
	for i := range input {
		input[i] = float32(i%29) / 28
	}
	out, err := r.Forward(input)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 10 {
		t.Fatalf("got %d outputs", len(out))
	}
	sum := 0.0
	for _, p := range out {
		if p < 0 || p > 1 {
			t.Fatalf("probability %v out of range", p)
		}
		sum += float64(p)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Fatalf("sum %v", sum)
	}
}

func TestReferenceRejectsInputSize(t *testing.T) {
	r, err := nn.NewReference(nn.LeNet)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Forward(make([]float32, 10)); err == nil {
		t.Fatal("expected error")
	}
}

func mustSet(t *testing.T, w *nn.Weights, name string, values []float32) {
	t.Helper()
	if err := w.Set(name, values); err != nil {
		t.Fatal(err)
	}
}
