package storage

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dense is a general m x n matrix stored row-major.
type Dense struct {
	base
}

// NewDense creates an m x n zeroed dense matrix.
// It fails with ErrOutOfMemory on an impossible allocation request.
func NewDense(m, n int) (*Dense, error) {
	d := &Dense{}
	if err := d.Reallocate(m, n); err != nil {
		return nil, err
	}
	return d, nil
}

// At returns the element at (i, j).
func (d *Dense) At(i, j int) float64 {
	d.checkBounds(i, j)
	return d.data[i*d.n+j]
}

// Set assigns the element at (i, j).
func (d *Dense) Set(i, j int, v float64) {
	d.checkBounds(i, j)
	d.data[i*d.n+j] = v
}

// T returns the transpose of the matrix.
func (d *Dense) T() mat.Matrix { return mat.Transpose{Matrix: d} }

// DataSize returns the number of stored scalars.
func (d *Dense) DataSize() int { return d.m * d.n }

// Reallocate resizes the matrix to m x n discarding its contents.
func (d *Dense) Reallocate(m, n int) error {
	if m == d.m && n == d.n {
		return nil
	}
	size, err := mulSize(m, n)
	if err != nil {
		d.clear()
		return err
	}
	data, err := alloc(size)
	if err != nil {
		d.clear()
		return err
	}
	d.m, d.n, d.data = m, n, data
	return nil
}

// Resize resizes the matrix to m x n preserving the overlapping region.
func (d *Dense) Resize(m, n int) error {
	if m == d.m && n == d.n {
		return nil
	}
	mold, nold, old := d.m, d.n, d.data
	if err := d.Reallocate(m, n); err != nil {
		return err
	}
	for i := 0; i < min(mold, m); i++ {
		for j := 0; j < min(nold, n); j++ {
			d.data[i*n+j] = old[i*nold+j]
		}
	}
	return nil
}

// Zero byte-fills the storage with zeros.
func (d *Dense) Zero() { clear(d.data) }

// Fill assigns v to every stored entry.
func (d *Dense) Fill(v float64) {
	for i := range d.data {
		d.data[i] = v
	}
}

// SetIdentity zeroes the matrix and sets the diagonal to one.
func (d *Dense) SetIdentity() {
	d.Zero()
	for i := 0; i < min(d.m, d.n); i++ {
		d.data[i*d.n+i] = 1
	}
}

// SetData adopts data as the backing buffer for an m x n matrix.
func (d *Dense) SetData(m, n int, data []float64) error {
	size, err := mulSize(m, n)
	if err != nil {
		return err
	}
	if len(data) != size {
		return fmt.Errorf("data length %d does not match [%d x %d]", len(data), m, n)
	}
	d.m, d.n, d.data = m, n, data
	return nil
}

func (d *Dense) checkBounds(i, j int) {
	if i < 0 || i >= d.m || j < 0 || j >= d.n {
		panic(fmt.Sprintf("storage: index (%d, %d) out of range [%d x %d]", i, j, d.m, d.n))
	}
}
