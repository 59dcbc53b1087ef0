package activationlayer

import (
	"math"

	"mnist-lenet/internal/tensor"
)

type TanhLayer struct {
	size tensor.TensorSize
}

func NewTanhLayer(size tensor.TensorSize) TanhLayer {
	return TanhLayer{size: size}
}

func (l *TanhLayer) Forward(X tensor.Tensor) tensor.Tensor {
	output := tensor.NewTensor(l.size)

	for i := 0; i < l.size.Height; i++ {
		for j := 0; j < l.size.Width; j++ {
			for k := 0; k < l.size.Depth; k++ {
				output.SetValue(k, i, j, math.Tanh(X.GetValue(k, i, j)))
			}
		}
	}
	return output
}
