package biaslayer

import (
	"testing"

	"mnist-lenet/internal/tensor"
)

func TestForwardBroadcastsPerChannel(t *testing.T) {
	size := tensor.TensorSize{Depth: 2, Height: 2, Width: 1}
	l := NewBiasLayer(size)
	if err := l.SetWeights([]float32{10, -1}); err != nil {
		t.Fatal(err)
	}
	out := l.Forward(tensor.FromCHW(size, []float32{1, 2, 3, 4}))
	want := []float64{11, 12, 2, 3}
	for i, v := range out.CHW() {
		if v != want[i] {
			t.Fatalf("out[%d]=%v want %v", i, v, want[i])
		}
	}
}

func TestSetWeightsRejectsWrongLength(t *testing.T) {
	l := NewBiasLayer(tensor.TensorSize{Depth: 4, Height: 24, Width: 24})
	if err := l.SetWeights([]float32{1, 2, 3}); err == nil {
		t.Fatal("expected error")
	}
}
