package nn

import (
	"mnist-lenet/internal/activationlayer"
	"mnist-lenet/internal/biaslayer"
	"mnist-lenet/internal/convlayer"
	"mnist-lenet/internal/fullyconnectedlayer"
	"mnist-lenet/internal/poolinglayer"
	"mnist-lenet/internal/tensor"

	"github.com/pkg/errors"
)

type forwarder interface {
	Forward(X tensor.Tensor) tensor.Tensor
}

type weighted interface {
	SetWeights(w []float32) error
}

type flattenLayer struct {
	size tensor.TensorSize
}

func (l *flattenLayer) Forward(X tensor.Tensor) tensor.Tensor {
	values := X.CHW()
	output := tensor.NewTensor(l.size)
	for k, v := range values {
		output.SetValue(k, 0, 0, v)
	}
	return output
}

// Reference runs a Topology with the pure Go layers in float64. It is slow
// and exists to cross-check the graph engine.
type Reference struct {
	topo   Topology
	input  tensor.TensorSize
	layers []forwarder
}

func sizeOf(s Shape) tensor.TensorSize {
	if len(s) == 3 {
		return tensor.TensorSize{Depth: s[0], Height: s[1], Width: s[2]}
	}
	return tensor.TensorSize{Depth: s.Len(), Height: 1, Width: 1}
}

func NewReference(topo Topology) (*Reference, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	shapes, err := topo.Shapes()
	if err != nil {
		return nil, err
	}

	r := &Reference{topo: topo, input: sizeOf(topo.Input)}
	in := r.input
	for i, l := range topo.Layers {
		out := sizeOf(shapes[i])
		switch l.Op {
		case Conv2D:
			p, _ := topo.Param(l.Param)
			c := convlayer.NewConvLayer(in, p.Shape[0], p.Shape[2], l.Pad, l.Stride)
			r.layers = append(r.layers, &c)
		case BiasAdd:
			b := biaslayer.NewBiasLayer(out)
			r.layers = append(r.layers, &b)
		case Tanh:
			a := activationlayer.NewTanhLayer(out)
			r.layers = append(r.layers, &a)
		case AvgPool2D:
			if l.Kernel != l.Stride || l.Pad != 0 {
				return nil, errors.Wrapf(ErrTopology, "layer %d: reference pooling needs kernel == stride and no padding", i)
			}
			p := poolinglayer.NewAvgPoolingLayer(in, l.Kernel)
			r.layers = append(r.layers, &p)
		case Flatten:
			r.layers = append(r.layers, &flattenLayer{size: out})
		case Linear:
			f := fullyconnectedlayer.NewFullyConnectedLayer(in, out.Depth)
			r.layers = append(r.layers, &f)
		case Softmax:
			s := activationlayer.NewSoftmaxLayer(out)
			r.layers = append(r.layers, &s)
		}
		in = out
	}
	return r, nil
}

// SetWeights copies every parameter into the layer that uses it.
func (r *Reference) SetWeights(w *Weights) error {
	for i, l := range r.topo.Layers {
		if l.Param == "" {
			continue
		}
		values, ok := w.Get(l.Param)
		if !ok {
			return errors.Errorf("nn: weights missing %q", l.Param)
		}
		if err := r.layers[i].(weighted).SetWeights(values); err != nil {
			return errors.Wrapf(err, "layer %d (%s)", i, l.Op)
		}
	}
	return nil
}

// Forward runs one channel-major input through every layer.
func (r *Reference) Forward(input []float32) ([]float32, error) {
	if len(input) != r.input.Len() {
		return nil, errors.Errorf("nn: input has %d values, want %d", len(input), r.input.Len())
	}
	x := tensor.FromCHW(r.input, input)
	for _, l := range r.layers {
		x = l.Forward(x)
	}
	values := x.CHW()
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

func (r *Reference) Close() error { return nil }
