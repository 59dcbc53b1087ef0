// Package classifier turns a loaded network into sorted digit predictions.
package classifier

import (
	"sort"

	"mnist-lenet/internal/graph"
	"mnist-lenet/internal/nn"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrInputSize      = errors.New("classifier: wrong input size")
	ErrNotLoaded      = errors.New("classifier: weights not loaded")
	ErrClosed         = errors.New("classifier: model closed")
	ErrUnknownBackend = errors.New("classifier: unknown backend")
)

const (
	BackendGraph     = "graph"
	BackendReference = "reference"
)

// Backend executes a topology. Implementations are not safe for concurrent
// Forward calls.
type Backend interface {
	SetWeights(w *nn.Weights) error
	Forward(input []float32) ([]float32, error)
	Close() error
}

// NewBackend constructs the named backend for topo.
func NewBackend(kind string, topo nn.Topology) (Backend, error) {
	switch kind {
	case BackendGraph, "":
		e, err := graph.New(topo)
		if err != nil {
			return nil, err
		}
		return e, nil
	case BackendReference:
		r, err := nn.NewReference(topo)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, errors.Wrapf(ErrUnknownBackend, "%q", kind)
}

// Prediction is one class and its probability.
type Prediction struct {
	Digit int
	Prob  float32
}

// Result holds one prediction per class, most probable first.
type Result []Prediction

// Top returns the most probable prediction.
func (r Result) Top() Prediction { return r[0] }

// Sum is the total probability mass, 1 up to rounding.
func (r Result) Sum() float64 {
	probs := make([]float64, len(r))
	for i, p := range r {
		probs[i] = float64(p.Prob)
	}
	return floats.Sum(probs)
}

// Model couples a topology, its weights and a backend. Classify reuses the
// backend's input buffer, so a Model must not be shared between goroutines.
type Model struct {
	topo    nn.Topology
	weights *nn.Weights
	backend Backend
	loaded  bool
	closed  bool
}

func New(topo nn.Topology, backend Backend) *Model {
	return &Model{
		topo:    topo,
		weights: nn.NewWeights(topo.Params),
		backend: backend,
	}
}

// Open builds the LeNet digit classifier on the named backend.
func Open(kind string) (*Model, error) {
	b, err := NewBackend(kind, nn.LeNet)
	if err != nil {
		return nil, errors.Wrap(err, "build model")
	}
	return New(nn.LeNet, b), nil
}

// LoadWeights reads every parameter from dir and binds it into the backend.
func (m *Model) LoadWeights(dir string) error {
	if m.closed {
		return ErrClosed
	}
	if err := m.weights.Load(dir); err != nil {
		return err
	}
	if err := m.backend.SetWeights(m.weights); err != nil {
		return err
	}
	m.loaded = true
	return nil
}

// Classify runs one input, a row-major 28x28 image scaled to [0,1], and
// returns every class sorted by descending probability. Equal probabilities
// keep digit order.
func (m *Model) Classify(input []float32) (Result, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if !m.loaded {
		return nil, ErrNotLoaded
	}
	if want := m.topo.Input.Len(); len(input) != want {
		return nil, errors.Wrapf(ErrInputSize, "got %d values, want %d", len(input), want)
	}

	probs, err := m.backend.Forward(input)
	if err != nil {
		return nil, errors.Wrap(err, "classify")
	}
	result := make(Result, len(probs))
	for i, p := range probs {
		result[i] = Prediction{Digit: i, Prob: p}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Prob > result[j].Prob
	})
	return result, nil
}

// Close releases the backend. Later calls are no-ops.
func (m *Model) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.backend.Close()
}
