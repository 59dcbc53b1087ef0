package matrix

import "gonum.org/v1/gonum/mat"

// Matrix is a dense rows x cols matrix backed by gonum.
type Matrix struct {
	rows  int
	cols  int
	dense *mat.Dense
}

func NewMatrix(rows, cols int) Matrix {
	return Matrix{
		rows:  rows,
		cols:  cols,
		dense: mat.NewDense(rows, cols, nil),
	}
}

// FromRowMajor wraps float32 data laid out row by row. The data is copied.
func FromRowMajor(rows, cols int, data []float32) Matrix {
	values := make([]float64, rows*cols)
	for i := range values {
		values[i] = float64(data[i])
	}
	return Matrix{rows: rows, cols: cols, dense: mat.NewDense(rows, cols, values)}
}

func (m *Matrix) Rows() int                        { return m.rows }
func (m *Matrix) Cols() int                        { return m.cols }
func (m *Matrix) GetValue(i, j int) float64        { return m.dense.At(i, j) }
func (m *Matrix) SetValue(i, j int, value float64) { m.dense.Set(i, j, value) }

// MulVec returns m * x. len(x) must equal Cols.
func (m *Matrix) MulVec(x []float64) []float64 {
	var out mat.VecDense
	out.MulVec(m.dense, mat.NewVecDense(len(x), x))
	return out.RawVector().Data
}
