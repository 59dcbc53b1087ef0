package poolinglayer

import "mnist-lenet/internal/tensor"

// AvgPoolingLayer averages non-overlapping scale x scale windows.
type AvgPoolingLayer struct {
	scale      int
	inputSize  tensor.TensorSize
	OutputSize tensor.TensorSize
}

func NewAvgPoolingLayer(size tensor.TensorSize, scale int) AvgPoolingLayer {
	return AvgPoolingLayer{
		scale:     scale,
		inputSize: size,
		OutputSize: tensor.TensorSize{
			Width:  size.Width / scale,
			Height: size.Height / scale,
			Depth:  size.Depth,
		},
	}
}

func (l *AvgPoolingLayer) Forward(X tensor.Tensor) tensor.Tensor {
	output := tensor.NewTensor(l.OutputSize)
	area := float64(l.scale * l.scale)

	for d := 0; d < l.OutputSize.Depth; d++ {
		for i := 0; i < l.OutputSize.Height; i++ {
			for j := 0; j < l.OutputSize.Width; j++ {
				sum := 0.0
				for y := i * l.scale; y < (i+1)*l.scale; y++ {
					for x := j * l.scale; x < (j+1)*l.scale; x++ {
						sum += X.GetValue(d, y, x)
					}
				}
				output.SetValue(d, i, j, sum/area)
			}
		}
	}

	return output
}
