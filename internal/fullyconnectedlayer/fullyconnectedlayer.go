package fullyconnectedlayer

import (
	"mnist-lenet/internal/matrix"
	"mnist-lenet/internal/tensor"

	"github.com/pkg/errors"
)

// FullyConnectedLayer computes w * x for an input flattened in channel-major
// order. Bias is applied by a separate layer.
type FullyConnectedLayer struct {
	inputSize  tensor.TensorSize
	OutputSize tensor.TensorSize
	inputs     int
	outputs    int
	w          matrix.Matrix
}

func NewFullyConnectedLayer(size tensor.TensorSize, outputs int) FullyConnectedLayer {
	return FullyConnectedLayer{
		w:         matrix.NewMatrix(outputs, size.Len()),
		inputSize: size,
		OutputSize: tensor.TensorSize{
			Width:  1,
			Height: 1,
			Depth:  outputs,
		},
		inputs:  size.Len(),
		outputs: outputs,
	}
}

// SetWeights copies a row-major [outputs, inputs] matrix.
func (l *FullyConnectedLayer) SetWeights(w []float32) error {
	if len(w) != l.outputs*l.inputs {
		return errors.Errorf("fullyconnectedlayer: got %d weights, want %d", len(w), l.outputs*l.inputs)
	}
	l.w = matrix.FromRowMajor(l.outputs, l.inputs, w)
	return nil
}

func (l *FullyConnectedLayer) Forward(X tensor.Tensor) tensor.Tensor {
	output := tensor.NewTensor(l.OutputSize)
	for i, v := range l.w.MulVec(X.CHW()) {
		output.SetValue(i, 0, 0, v)
	}
	return output
}
