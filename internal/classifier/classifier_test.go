package classifier

import (
	"math"
	"testing"

	"mnist-lenet/internal/nn"
	"mnist-lenet/internal/nn/nntest"

	"github.com/pkg/errors"
)

var backends = []string{BackendGraph, BackendReference}

func openLoaded(t *testing.T, kind string, w *nn.Weights) *Model {
	t.Helper()
	m, err := Open(kind)
	if err != nil {
		t.Fatalf("Open(%s): %v", kind, err)
	}
	t.Cleanup(func() { m.Close() })
	if err := m.LoadWeights(nntest.WriteDir(t, w)); err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}
	return m
}

func checkResult(t *testing.T, r Result) {
	t.Helper()
	if len(r) != 10 {
		t.Fatalf("got %d predictions", len(r))
	}
	seen := make(map[int]bool)
	for i, p := range r {
		if p.Prob < 0 || p.Prob > 1 {
			t.Fatalf("prediction %d has probability %v", i, p.Prob)
		}
		if i > 0 && p.Prob > r[i-1].Prob {
			t.Fatalf("not sorted at %d: %v > %v", i, p.Prob, r[i-1].Prob)
		}
		if p.Digit < 0 || p.Digit > 9 || seen[p.Digit] {
			t.Fatalf("bad or repeated digit %d", p.Digit)
		}
		seen[p.Digit] = true
	}
	if math.Abs(r.Sum()-1) > 1e-4 {
		t.Fatalf("probabilities sum to %v", r.Sum())
	}
}

func TestClassifyPicksFavoredDigit(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			m := openLoaded(t, kind, nntest.Favor(t, 7, 3))
			input := make([]float32, 28*28)
			for i := range input {
				input[i] = float32(i%17) / 16
			}
			r, err := m.Classify(input)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			checkResult(t, r)
			if r.Top().Digit != 7 {
				t.Fatalf("top digit %d, want 7", r.Top().Digit)
			}
			for _, p := range r[1:] {
				if p.Prob >= r.Top().Prob {
					t.Fatalf("digit %d ties the top prediction", p.Digit)
				}
			}
		})
	}
}

func TestClassifyZeroInputIsReproducible(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			m := openLoaded(t, kind, nntest.RandomWeights(t, nn.LeNet, 21))
			zeros := make([]float32, 28*28)
			first, err := m.Classify(zeros)
			if err != nil {
				t.Fatal(err)
			}
			checkResult(t, first)
			for n := 0; n < 3; n++ {
				again, err := m.Classify(zeros)
				if err != nil {
					t.Fatal(err)
				}
				for i := range first {
					if first[i] != again[i] {
						t.Fatalf("run %d: prediction %d is %+v, was %+v", n, i, again[i], first[i])
					}
				}
			}
		})
	}
}

func TestBackendsAgree(t *testing.T) {
	w := nntest.RandomWeights(t, nn.LeNet, 42)
	g := openLoaded(t, BackendGraph, w)
	ref := openLoaded(t, BackendReference, w)

	input := make([]float32, 28*28)
	for i := range input {
		input[i] = float32((i*13)%255) / 255
	}
	a, err := g.Classify(input)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ref.Classify(input)
	if err != nil {
		t.Fatal(err)
	}
	probs := make(map[int]float32)
	for _, p := range b {
		probs[p.Digit] = p.Prob
	}
	for _, p := range a {
		if math.Abs(float64(p.Prob-probs[p.Digit])) > 1e-4 {
			t.Fatalf("digit %d: graph %v reference %v", p.Digit, p.Prob, probs[p.Digit])
		}
	}
}

type fixedBackend struct {
	out    []float32
	closed int
}

func (f *fixedBackend) SetWeights(*nn.Weights) error         { return nil }
func (f *fixedBackend) Forward([]float32) ([]float32, error) { return f.out, nil }
func (f *fixedBackend) Close() error                         { f.closed++; return nil }

func TestClassifySortIsStable(t *testing.T) {
	b := &fixedBackend{out: []float32{0.05, 0.2, 0.05, 0.2, 0.05, 0.05, 0.2, 0.05, 0.1, 0.05}}
	m := New(nn.LeNet, b)
	m.loaded = true

	r, err := m.Classify(make([]float32, 28*28))
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 3, 6, 8, 0, 2, 4, 5, 7, 9}
	for i, d := range want {
		if r[i].Digit != d {
			t.Fatalf("position %d: digit %d want %d (%+v)", i, r[i].Digit, d, r)
		}
	}
}

func TestClassifyErrors(t *testing.T) {
	b := &fixedBackend{out: make([]float32, 10)}
	m := New(nn.LeNet, b)

	if _, err := m.Classify(make([]float32, 28*28)); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	m.loaded = true
	if _, err := m.Classify(make([]float32, 10)); !errors.Is(err, ErrInputSize) {
		t.Fatalf("expected ErrInputSize, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if b.closed != 1 {
		t.Fatalf("backend closed %d times", b.closed)
	}
	if _, err := m.Classify(make([]float32, 28*28)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := m.LoadWeights(t.TempDir()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestLoadWeightsFailureLeavesModelUnloaded(t *testing.T) {
	m := New(nn.LeNet, &fixedBackend{out: make([]float32, 10)})
	if err := m.LoadWeights(t.TempDir()); err == nil {
		t.Fatal("expected error for empty directory")
	}
	if _, err := m.Classify(make([]float32, 28*28)); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("tpu"); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}
