package convlayer

import (
	"mnist-lenet/internal/tensor"

	"github.com/pkg/errors"
)

// ConvLayer is a 2D cross-correlation with square filters and no bias.
type ConvLayer struct {
	InputSize  tensor.TensorSize
	OutputSize tensor.TensorSize
	W          []tensor.Tensor
	P          int
	S          int
	Fc         int
	Fs         int
	Fd         int
}

func NewConvLayer(size tensor.TensorSize, fc, fs, p, s int) ConvLayer {
	newLayer := ConvLayer{
		InputSize: size,
		OutputSize: tensor.TensorSize{
			Width:  (size.Width-fs+2*p)/s + 1,
			Height: (size.Height-fs+2*p)/s + 1,
			Depth:  fc,
		},
		P:  p,
		S:  s,
		Fc: fc,
		Fs: fs,
		Fd: size.Depth,
		W:  make([]tensor.Tensor, fc),
	}

	for i := range newLayer.W {
		newLayer.W[i] = tensor.NewTensor(tensor.TensorSize{Width: fs, Height: fs, Depth: size.Depth})
	}
	return newLayer
}

// SetWeights copies filters stored as [fc, fd, fs, fs].
func (l *ConvLayer) SetWeights(w []float32) error {
	if want := l.Fc * l.Fd * l.Fs * l.Fs; len(w) != want {
		return errors.Errorf("convlayer: got %d weights, want %d", len(w), want)
	}
	per := l.Fd * l.Fs * l.Fs
	for index := 0; index < l.Fc; index++ {
		l.W[index] = tensor.FromCHW(l.W[index].GetSize(), w[index*per:(index+1)*per])
	}
	return nil
}

func (l *ConvLayer) Forward(X tensor.Tensor) tensor.Tensor {
	output := tensor.NewTensor(l.OutputSize)

	for f := 0; f < l.Fc; f++ {
		for y := 0; y < l.OutputSize.Height; y++ {
			for x := 0; x < l.OutputSize.Width; x++ {
				sum := 0.0
				for i := 0; i < l.Fs; i++ {
					for j := 0; j < l.Fs; j++ {
						i0 := y*l.S + i - l.P
						j0 := x*l.S + j - l.P
						if i0 < 0 || i0 >= l.InputSize.Height || j0 < 0 || j0 >= l.InputSize.Width {
							continue
						}
						for k := 0; k < l.Fd; k++ {
							sum += l.W[f].GetValue(k, i, j) * X.GetValue(k, i0, j0)
						}
					}
				}
				output.SetValue(f, y, x, sum)
			}
		}
	}
	return output
}
