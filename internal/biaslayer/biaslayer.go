package biaslayer

import (
	"mnist-lenet/internal/tensor"

	"github.com/pkg/errors"
)

// BiasLayer adds one value per depth channel, broadcast over height and width.
type BiasLayer struct {
	size tensor.TensorSize
	b    []float64
}

func NewBiasLayer(size tensor.TensorSize) BiasLayer {
	return BiasLayer{size: size, b: make([]float64, size.Depth)}
}

func (l *BiasLayer) SetWeights(b []float32) error {
	if len(b) != l.size.Depth {
		return errors.Errorf("biaslayer: got %d values, want %d", len(b), l.size.Depth)
	}
	for i, v := range b {
		l.b[i] = float64(v)
	}
	return nil
}

func (l *BiasLayer) Forward(X tensor.Tensor) tensor.Tensor {
	output := tensor.NewTensor(l.size)

	for i := 0; i < l.size.Height; i++ {
		for j := 0; j < l.size.Width; j++ {
			for k := 0; k < l.size.Depth; k++ {
				output.SetValue(k, i, j, X.GetValue(k, i, j)+l.b[k])
			}
		}
	}
	return output
}
