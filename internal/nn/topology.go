package nn

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTopology is returned when layer descriptors and parameter shapes disagree.
var ErrTopology = errors.New("nn: invalid topology")

// Op identifies the operation a Layer performs.
type Op int

const (
	Conv2D Op = iota
	BiasAdd
	Tanh
	AvgPool2D
	Flatten
	Linear
	Softmax
)

func (o Op) String() string {
	switch o {
	case Conv2D:
		return "conv2d"
	case BiasAdd:
		return "bias_add"
	case Tanh:
		return "tanh"
	case AvgPool2D:
		return "avg_pool2d"
	case Flatten:
		return "flatten"
	case Linear:
		return "linear"
	case Softmax:
		return "softmax"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Shape lists dimensions slowest axis first: [C, H, W] for feature maps, [N]
// for vectors.
type Shape []int

func (s Shape) Len() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// ParamSpec names a weight tensor and its fixed shape.
type ParamSpec struct {
	Name  string
	Shape Shape
}

// FileName is the raw dump holding this parameter inside a weights directory.
func (p ParamSpec) FileName() string { return p.Name + "-f32.raw" }

// Layer is one step of a Topology. Param is set for Conv2D, BiasAdd and
// Linear; Kernel, Stride and Pad apply to Conv2D and AvgPool2D. The Conv2D
// kernel size comes from its parameter shape.
type Layer struct {
	Op     Op
	Param  string
	Kernel int
	Stride int
	Pad    int
}

// Topology is a fixed sequential network: an input shape, the parameters in
// load order and the layers that consume them.
type Topology struct {
	Input  Shape
	Params []ParamSpec
	Layers []Layer
}

// LeNet is the digit classifier: two conv/tanh/avg-pool stages followed by a
// linear layer and softmax over ten classes.
var LeNet = Topology{
	Input: Shape{1, 28, 28},
	Params: []ParamSpec{
		{Name: "conv0_weight", Shape: Shape{4, 1, 5, 5}},
		{Name: "conv0_bias", Shape: Shape{4, 1, 1}},
		{Name: "conv1_weight", Shape: Shape{12, 4, 5, 5}},
		{Name: "conv1_bias", Shape: Shape{12, 1, 1}},
		{Name: "linear_weight", Shape: Shape{10, 12 * 4 * 4}},
		{Name: "linear_bias", Shape: Shape{10}},
	},
	Layers: []Layer{
		{Op: Conv2D, Param: "conv0_weight", Stride: 1},
		{Op: BiasAdd, Param: "conv0_bias"},
		{Op: Tanh},
		{Op: AvgPool2D, Kernel: 2, Stride: 2},
		{Op: Conv2D, Param: "conv1_weight", Stride: 1},
		{Op: BiasAdd, Param: "conv1_bias"},
		{Op: Tanh},
		{Op: AvgPool2D, Kernel: 2, Stride: 2},
		{Op: Flatten},
		{Op: Linear, Param: "linear_weight"},
		{Op: BiasAdd, Param: "linear_bias"},
		{Op: Softmax},
	},
}

// Param looks up a parameter by name.
func (t Topology) Param(name string) (ParamSpec, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Shapes infers the output shape of every layer, checking each against the
// parameters it uses.
func (t Topology) Shapes() ([]Shape, error) {
	if len(t.Input) == 0 || t.Input.Len() <= 0 {
		return nil, errors.Wrap(ErrTopology, "empty input shape")
	}
	shapes := make([]Shape, 0, len(t.Layers))
	cur := t.Input
	for i, l := range t.Layers {
		next, err := t.infer(l, cur)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d (%s)", i, l.Op)
		}
		shapes = append(shapes, next)
		cur = next
	}
	return shapes, nil
}

// OutputShape is the shape produced by the last layer.
func (t Topology) OutputShape() (Shape, error) {
	shapes, err := t.Shapes()
	if err != nil {
		return nil, err
	}
	if len(shapes) == 0 {
		return t.Input, nil
	}
	return shapes[len(shapes)-1], nil
}

// Validate reports whether the topology can be executed.
func (t Topology) Validate() error {
	seen := make(map[string]bool, len(t.Params))
	for _, p := range t.Params {
		if seen[p.Name] {
			return errors.Wrapf(ErrTopology, "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
	}
	_, err := t.Shapes()
	return err
}

func (t Topology) param(l Layer) (ParamSpec, error) {
	p, ok := t.Param(l.Param)
	if !ok {
		return ParamSpec{}, errors.Wrapf(ErrTopology, "unknown parameter %q", l.Param)
	}
	return p, nil
}

func (t Topology) infer(l Layer, in Shape) (Shape, error) {
	switch l.Op {
	case Conv2D:
		p, err := t.param(l)
		if err != nil {
			return nil, err
		}
		if len(in) != 3 || len(p.Shape) != 4 {
			return nil, errors.Wrapf(ErrTopology, "conv2d needs [C,H,W] input and [O,C,K,K] weights, got %v and %v", in, p.Shape)
		}
		if p.Shape[1] != in[0] || p.Shape[2] != p.Shape[3] {
			return nil, errors.Wrapf(ErrTopology, "weights %v do not fit input %v", p.Shape, in)
		}
		return window(in, p.Shape[0], p.Shape[2], l.Stride, l.Pad)
	case BiasAdd:
		p, err := t.param(l)
		if err != nil {
			return nil, err
		}
		if len(in) == 0 || p.Shape.Len() != in[0] {
			return nil, errors.Wrapf(ErrTopology, "bias %v does not match %v", p.Shape, in)
		}
		return in, nil
	case Tanh:
		return in, nil
	case AvgPool2D:
		if len(in) != 3 {
			return nil, errors.Wrapf(ErrTopology, "avg_pool2d needs [C,H,W] input, got %v", in)
		}
		return window(in, in[0], l.Kernel, l.Stride, l.Pad)
	case Flatten:
		return Shape{in.Len()}, nil
	case Linear:
		p, err := t.param(l)
		if err != nil {
			return nil, err
		}
		if len(in) != 1 || len(p.Shape) != 2 || p.Shape[1] != in[0] {
			return nil, errors.Wrapf(ErrTopology, "linear weights %v do not fit input %v", p.Shape, in)
		}
		return Shape{p.Shape[0]}, nil
	case Softmax:
		if len(in) != 1 {
			return nil, errors.Wrapf(ErrTopology, "softmax needs a vector, got %v", in)
		}
		return in, nil
	}
	return nil, errors.Wrapf(ErrTopology, "unsupported op %s", l.Op)
}

func window(in Shape, channels, kernel, stride, pad int) (Shape, error) {
	if kernel <= 0 || stride <= 0 || pad < 0 {
		return nil, errors.Wrapf(ErrTopology, "bad window kernel=%d stride=%d pad=%d", kernel, stride, pad)
	}
	if in[1]+2*pad < kernel || in[2]+2*pad < kernel {
		return nil, errors.Wrapf(ErrTopology, "kernel %d larger than input %v", kernel, in)
	}
	h := (in[1]+2*pad-kernel)/stride + 1
	w := (in[2]+2*pad-kernel)/stride + 1
	return Shape{channels, h, w}, nil
}
