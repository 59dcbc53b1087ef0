// Package graph executes an nn.Topology with gorgonia. The expression graph
// and its tape machine are built once per Engine and reused for every
// Forward call.
package graph

import (
	"fmt"

	"mnist-lenet/internal/nn"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	T "gorgonia.org/tensor"
)

// ErrClosed is returned by an Engine after Close.
var ErrClosed = errors.New("graph: engine closed")

// Engine owns the expression graph, its parameter nodes and the machine that
// runs it. Forward overwrites the shared input node, so an Engine must not be
// used from more than one goroutine at a time.
type Engine struct {
	topo   nn.Topology
	g      *G.ExprGraph
	input  *G.Node
	output *G.Node
	params map[string]*G.Node
	vm     G.VM
}

func New(topo nn.Topology) (*Engine, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	shapes, err := topo.Shapes()
	if err != nil {
		return nil, err
	}
	if len(topo.Input) != 3 {
		return nil, errors.Errorf("graph: input must be [C,H,W], got %v", topo.Input)
	}

	e := &Engine{
		topo:   topo,
		g:      G.NewGraph(),
		params: make(map[string]*G.Node),
	}
	e.input = G.NewTensor(e.g, T.Float32, 4,
		G.WithName("input"),
		G.WithShape(1, topo.Input[0], topo.Input[1], topo.Input[2]),
	)

	cur := e.input
	in := topo.Input
	for i, l := range topo.Layers {
		next, err := e.build(i, l, cur, in)
		if err != nil {
			return nil, errors.Wrapf(err, "graph: layer %d (%s)", i, l.Op)
		}
		cur = next
		in = shapes[i]
	}
	e.output = cur
	e.vm = G.NewTapeMachine(e.g)
	return e, nil
}

func (e *Engine) param(name string, shape ...int) *G.Node {
	if n, ok := e.params[name]; ok {
		return n
	}
	var n *G.Node
	switch len(shape) {
	case 1:
		n = G.NewVector(e.g, T.Float32, G.WithName(name), G.WithShape(shape...))
	case 2:
		n = G.NewMatrix(e.g, T.Float32, G.WithName(name), G.WithShape(shape...))
	default:
		n = G.NewTensor(e.g, T.Float32, len(shape), G.WithName(name), G.WithShape(shape...))
	}
	e.params[name] = n
	return n
}

// build appends one layer to the graph. in is the layer's input shape without
// the batch axis.
func (e *Engine) build(i int, l nn.Layer, x *G.Node, in nn.Shape) (*G.Node, error) {
	switch l.Op {
	case nn.Conv2D:
		p, _ := e.topo.Param(l.Param)
		w := e.param(p.Name, p.Shape...)
		k := p.Shape[2]
		return G.Conv2d(x, w, T.Shape{k, k}, []int{l.Pad, l.Pad}, []int{l.Stride, l.Stride}, []int{1, 1})
	case nn.BiasAdd:
		p, _ := e.topo.Param(l.Param)
		b := e.param(p.Name, p.Shape.Len())
		if x.Dims() == 4 {
			return G.BroadcastAdd(x, b, nil, []byte{0, 2, 3})
		}
		return G.Add(x, b)
	case nn.Tanh:
		return G.Tanh(x)
	case nn.AvgPool2D:
		return avgPool(e.g, fmt.Sprintf("avgpool%d", i), x, in[0], l)
	case nn.Flatten:
		return G.Reshape(x, T.Shape{in.Len()})
	case nn.Linear:
		p, _ := e.topo.Param(l.Param)
		w := e.param(p.Name, p.Shape...)
		return G.Mul(w, x)
	case nn.Softmax:
		return G.SoftMax(x)
	}
	return nil, errors.Errorf("unsupported op %s", l.Op)
}

// avgPool expresses average pooling as a strided convolution whose filter
// averages each channel's window and ignores the other channels.
func avgPool(g *G.ExprGraph, name string, x *G.Node, channels int, l nn.Layer) (*G.Node, error) {
	k := l.Kernel
	backing := make([]float32, channels*channels*k*k)
	area := float32(1) / float32(k*k)
	for c := 0; c < channels; c++ {
		base := (c*channels + c) * k * k
		for j := 0; j < k*k; j++ {
			backing[base+j] = area
		}
	}
	filter := G.NewTensor(g, T.Float32, 4,
		G.WithName(name),
		G.WithShape(channels, channels, k, k),
		G.WithValue(T.New(T.WithShape(channels, channels, k, k), T.WithBacking(backing))),
	)
	return G.Conv2d(x, filter, T.Shape{k, k}, []int{l.Pad, l.Pad}, []int{l.Stride, l.Stride}, []int{1, 1})
}

// SetWeights binds every parameter node to a copy of its loaded values.
func (e *Engine) SetWeights(w *nn.Weights) error {
	if e.vm == nil {
		return ErrClosed
	}
	for name, n := range e.params {
		values, ok := w.Get(name)
		if !ok {
			return errors.Errorf("graph: weights missing %q", name)
		}
		shape := n.Shape()
		if len(values) != shape.TotalSize() {
			return errors.Wrapf(nn.ErrWeightSize, "%s: %d values for shape %v", name, len(values), shape)
		}
		backing := append([]float32(nil), values...)
		if err := G.Let(n, T.New(T.WithShape(shape...), T.WithBacking(backing))); err != nil {
			return errors.Wrapf(err, "graph: bind %s", name)
		}
	}
	return nil
}

// Forward copies input into the input node, runs the graph once and returns
// a copy of the output.
func (e *Engine) Forward(input []float32) ([]float32, error) {
	if e.vm == nil {
		return nil, ErrClosed
	}
	if len(input) != e.topo.Input.Len() {
		return nil, errors.Errorf("graph: input has %d values, want %d", len(input), e.topo.Input.Len())
	}
	backing := append([]float32(nil), input...)
	x := T.New(T.WithShape(e.input.Shape()...), T.WithBacking(backing))
	if err := G.Let(e.input, x); err != nil {
		return nil, errors.Wrap(err, "graph: bind input")
	}

	defer e.vm.Reset()
	if err := e.vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "graph: run")
	}
	raw, ok := e.output.Value().Data().([]float32)
	if !ok {
		return nil, errors.Errorf("graph: unexpected output type %T", e.output.Value().Data())
	}
	return append([]float32(nil), raw...), nil
}

// Close releases the machine. It is safe to call more than once.
func (e *Engine) Close() error {
	if e.vm == nil {
		return nil
	}
	err := e.vm.Close()
	e.vm = nil
	return errors.Wrap(err, "graph: close")
}
