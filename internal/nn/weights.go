package nn

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrWeightSize is returned when a raw weight file does not hold exactly the
// number of float32 values its tensor needs.
var ErrWeightSize = errors.New("nn: weight file size mismatch")

// Weights holds one float32 buffer per registered parameter, in registration
// order. Buffers are zero until Load succeeds.
type Weights struct {
	specs []ParamSpec
	data  [][]float32
}

func NewWeights(specs []ParamSpec) *Weights {
	w := &Weights{
		specs: specs,
		data:  make([][]float32, len(specs)),
	}
	for i, s := range specs {
		w.data[i] = make([]float32, s.Shape.Len())
	}
	return w
}

func (w *Weights) Specs() []ParamSpec { return w.specs }

// Get returns the buffer for the named parameter. Callers must not modify it.
func (w *Weights) Get(name string) ([]float32, bool) {
	for i, s := range w.specs {
		if s.Name == name {
			return w.data[i], true
		}
	}
	return nil, false
}

// Load reads <dir>/<name>-f32.raw for every parameter. Nothing is replaced
// unless every file reads cleanly.
func (w *Weights) Load(dir string) error {
	next := make([][]float32, len(w.specs))
	for i, s := range w.specs {
		values, err := ReadRaw(filepath.Join(dir, s.FileName()), s.Shape.Len())
		if err != nil {
			return errors.Wrapf(err, "load %s", s.Name)
		}
		next[i] = values
	}
	w.data = next
	return nil
}

// ReadRaw reads exactly n little-endian float32 values from path.
func ReadRaw(path string, n int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open weights")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if info.Size() != int64(n)*4 {
		return nil, errors.Wrapf(ErrWeightSize, "%s: %d bytes, want %d", path, info.Size(), n*4)
	}

	buf := make([]byte, n*4)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	values := make([]float32, n)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return values, nil
}

// WriteRaw dumps values to path in the format ReadRaw expects.
func WriteRaw(path string, values []float32) error {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return errors.Wrapf(os.WriteFile(path, buf, 0o644), "write %s", path)
}

// WriteWeights dumps every parameter of w into dir.
func WriteWeights(dir string, w *Weights) error {
	for i, s := range w.specs {
		if err := WriteRaw(filepath.Join(dir, s.FileName()), w.data[i]); err != nil {
			return err
		}
	}
	return nil
}

// Set replaces the named buffer. It is meant for building weights in memory
// before WriteWeights; len(values) must match the parameter shape.
func (w *Weights) Set(name string, values []float32) error {
	for i, s := range w.specs {
		if s.Name != name {
			continue
		}
		if len(values) != s.Shape.Len() {
			return errors.Wrapf(ErrWeightSize, "%s: %d values, want %d", name, len(values), s.Shape.Len())
		}
		w.data[i] = append([]float32(nil), values...)
		return nil
	}
	return errors.Errorf("nn: unknown parameter %q", name)
}
