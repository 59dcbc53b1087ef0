package activationlayer

import (
	"math"

	"mnist-lenet/internal/tensor"

	"gonum.org/v1/gonum/floats"
)

// SoftmaxLayer normalizes a depth vector (1x1xN) into a probability distribution.
type SoftmaxLayer struct {
	size tensor.TensorSize
}

func NewSoftmaxLayer(size tensor.TensorSize) SoftmaxLayer {
	return SoftmaxLayer{size: size}
}

func (l *SoftmaxLayer) Forward(X tensor.Tensor) tensor.Tensor {
	values := X.CHW()
	shift := floats.Max(values)
	for i, v := range values {
		values[i] = math.Exp(v - shift)
	}
	floats.Scale(1/floats.Sum(values), values)

	output := tensor.NewTensor(l.size)
	for k := 0; k < l.size.Depth; k++ {
		output.SetValue(k, 0, 0, values[k])
	}
	return output
}
