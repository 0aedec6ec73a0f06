// Dense matrices and Gauss-Jordan elimination
//
// Storage and products are provided by gonum; the elimination itself is
// done in place on an augmented matrix so the least-squares step can be
// read straight off the last column.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when no usable pivot remains in a column.
var ErrSingular = errors.New("matrix is singular")

// Matrix is a dense rows x cols grid of float64.
type Matrix struct {
	d *mat.Dense
}

// New returns a zeroed rows x cols matrix.
func New(rows, cols int) *Matrix {
	return &Matrix{d: mat.NewDense(rows, cols, nil)}
}

// FromRows builds a matrix from row slices, which must all be the same
// length.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("matrix: empty input")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("matrix: row %d has %d columns, expected %d", i, len(r), cols)
		}
		data = append(data, r...)
	}
	return &Matrix{d: mat.NewDense(len(rows), cols, data)}, nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) {
	return m.d.Dims()
}

// At returns the element at row r, column c.
func (m *Matrix) At(r, c int) float64 {
	return m.d.At(r, c)
}

// Set stores v at row r, column c.
func (m *Matrix) Set(r, c int, v float64) {
	m.d.Set(r, c, v)
}

// SwapRows exchanges rows i and j in place.
func (m *Matrix) SwapRows(i, j int) {
	if i == j {
		return
	}
	_, cols := m.d.Dims()
	ri := m.d.RawRowView(i)
	rj := m.d.RawRowView(j)
	for c := 0; c < cols; c++ {
		ri[c], rj[c] = rj[c], ri[c]
	}
}

// Dense exposes the underlying gonum matrix.
func (m *Matrix) Dense() *mat.Dense {
	return m.d
}

// String renders the matrix one row per line.
func (m *Matrix) String() string {
	return fmt.Sprintf("%v", mat.Formatted(m.d, mat.Squeeze()))
}

// GaussJordan reduces an n x (n+1) augmented matrix in place to
// [I | x] using partial pivoting and returns x.
//
// A column whose largest remaining candidate is below a tolerance scaled
// to the matrix magnitude is treated as singular.
func (m *Matrix) GaussJordan() ([]float64, error) {
	n, cols := m.d.Dims()
	if cols != n+1 {
		return nil, fmt.Errorf("matrix: augmented system must be n x (n+1), got %d x %d", n, cols)
	}

	scale := 0.0
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			scale = math.Max(scale, math.Abs(m.d.At(r, c)))
		}
	}
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, ErrSingular
	}
	tol := 64 * float64(n) * scale * epsilon

	for i := 0; i < n; i++ {
		// Pick the row with the largest magnitude in column i.
		pivotRow := i
		pivot := math.Abs(m.d.At(i, i))
		for r := i + 1; r < n; r++ {
			if v := math.Abs(m.d.At(r, i)); v > pivot {
				pivot, pivotRow = v, r
			}
		}
		if !(pivot > tol) {
			return nil, ErrSingular
		}
		m.SwapRows(i, pivotRow)

		row := m.d.RawRowView(i)
		p := row[i]
		for c := i; c < cols; c++ {
			row[c] /= p
		}

		for r := 0; r < n; r++ {
			if r == i {
				continue
			}
			other := m.d.RawRowView(r)
			f := other[i]
			if f == 0 {
				continue
			}
			for c := i; c < cols; c++ {
				other[c] -= f * row[c]
			}
		}
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = m.d.At(i, n)
	}
	return x, nil
}

// epsilon is the float64 machine epsilon.
const epsilon = 2.220446049250313e-16

// NormalEquations builds the augmented system [JᵀJ | Jᵀr] for the linear
// least-squares problem J·x ≈ r.
func NormalEquations(jac *Matrix, rhs []float64) (*Matrix, error) {
	rows, cols := jac.Dims()
	if len(rhs) != rows {
		return nil, fmt.Errorf("matrix: %d residuals for a %d-row jacobian", len(rhs), rows)
	}

	var gram mat.Dense
	gram.Mul(jac.d.T(), jac.d)

	var jtr mat.VecDense
	jtr.MulVec(jac.d.T(), mat.NewVecDense(rows, rhs))

	aug := mat.NewDense(cols, cols+1, nil)
	aug.Slice(0, cols, 0, cols).(*mat.Dense).Copy(&gram)
	for i := 0; i < cols; i++ {
		aug.Set(i, cols, jtr.AtVec(i))
	}
	return &Matrix{d: aug}, nil
}

// Solve is a convenience for NormalEquations followed by GaussJordan.
func Solve(jac *Matrix, rhs []float64) ([]float64, error) {
	aug, err := NormalEquations(jac, rhs)
	if err != nil {
		return nil, err
	}
	return aug.GaussJordan()
}
