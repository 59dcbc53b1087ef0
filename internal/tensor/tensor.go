package tensor

type TensorSize struct {
	Depth  int
	Height int
	Width  int
}

// Len is the number of elements a tensor of this size holds.
func (s TensorSize) Len() int { return s.Depth * s.Height * s.Width }

// Tensor stores values interleaved by depth: (i, j, d) lives at i*dw + j*Depth + d.
type Tensor struct {
	size   TensorSize
	dw     int
	values []float64
}

func NewTensor(size TensorSize) Tensor {
	return Tensor{
		size:   size,
		dw:     size.Depth * size.Width,
		values: make([]float64, size.Depth*size.Height*size.Width),
	}
}

// FromCHW builds a tensor from channel-major float32 data, the layout used by
// the raw weight files and by the image normalizer.
func FromCHW(size TensorSize, data []float32) Tensor {
	t := NewTensor(size)
	for d := 0; d < size.Depth; d++ {
		for i := 0; i < size.Height; i++ {
			for j := 0; j < size.Width; j++ {
				t.SetValue(d, i, j, float64(data[(d*size.Height+i)*size.Width+j]))
			}
		}
	}
	return t
}

// CHW returns the values in channel-major order.
func (t *Tensor) CHW() []float64 {
	out := make([]float64, 0, len(t.values))
	for d := 0; d < t.size.Depth; d++ {
		for i := 0; i < t.size.Height; i++ {
			for j := 0; j < t.size.Width; j++ {
				out = append(out, t.GetValue(d, i, j))
			}
		}
	}
	return out
}

func (t *Tensor) GetValue(d, i, j int) float64        { return t.values[i*t.dw+j*t.size.Depth+d] }
func (t *Tensor) SetValue(d, i, j int, value float64) { t.values[i*t.dw+j*t.size.Depth+d] = value }
func (t *Tensor) GetValuePtr(d, i, j int) *float64    { return &t.values[i*t.dw+j*t.size.Depth+d] }
func (t *Tensor) GetSize() TensorSize                 { return t.size }
