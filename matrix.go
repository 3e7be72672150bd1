package annindex

import "fmt"

// Matrix is a dense row-major matrix of float32 vectors. Row i occupies
// Data[i*Cols : (i+1)*Cols].
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// MatrixFromRows copies rows into a new Matrix. All rows must have the same
// length.
func MatrixFromRows(rows [][]float32) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}

	cols := len(rows[0])
	data := make([]float32, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Matrix{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(row), cols)
		}
		data = append(data, row...)
	}

	return Matrix{Rows: len(rows), Cols: cols, Data: data}, nil
}

// Row returns row i without copying.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols : (i+1)*m.Cols]
}

// validate checks the shape against dim.
func (m Matrix) validate(dim int) error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("%w: negative shape %dx%d", ErrInvalidMatrix, m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("%w: %d values for shape %dx%d", ErrInvalidMatrix, len(m.Data), m.Rows, m.Cols)
	}
	if m.Rows > 0 && m.Cols != dim {
		return &ErrDimensionMismatch{Expected: dim, Actual: m.Cols}
	}
	return nil
}
