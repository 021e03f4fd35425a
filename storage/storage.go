// Package storage implements the dense matrix layouts used by the
// assimilation engine: general, symmetric, triangular and their packed
// variants. Every layout stores float64 scalars in a single contiguous
// buffer, implements gonum's mat.Matrix and shares one lifecycle:
// construct, Reallocate (discarding), Resize (preserving the overlap),
// SetData/Nullify (explicit buffer ownership transfer).
package storage

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Side selects which triangle of a triangular or packed layout is stored.
type Side int

const (
	// Upper stores the diagonal and the entries above it
	Upper Side = iota
	// Lower stores the diagonal and the entries below it
	Lower
)

// String implements the Stringer interface.
func (s Side) String() string {
	if s == Lower {
		return "Lower"
	}
	return "Upper"
}

// Layout is implemented by every matrix storage scheme.
// The non-stored triangle of a triangular or packed layout reads as
// zero (triangular) or as the mirrored stored entry (symmetric); writes
// outside the stored triangle follow the same convention.
type Layout interface {
	mat.Matrix
	// Set assigns the element at (i, j) honouring the layout convention
	Set(i, j int, v float64)
	// DataSize returns the number of stored scalars
	DataSize() int
	// Reallocate resizes the matrix discarding its contents.
	// It is a no-op when the dimensions are unchanged.
	Reallocate(m, n int) error
	// Resize resizes the matrix preserving the overlapping region
	Resize(m, n int) error
	// Zero byte-fills the storage with zeros
	Zero()
	// Fill assigns v to every stored entry
	Fill(v float64)
	// SetIdentity zeroes the matrix and sets the diagonal to one
	SetIdentity()
	// RawData returns the backing buffer in storage order
	RawData() []float64
	// SetData adopts data as the backing buffer for an m x n matrix.
	// The caller must not retain ownership of data afterwards.
	SetData(m, n int, data []float64) error
	// Nullify releases ownership of the backing buffer and returns it,
	// leaving the matrix empty (0 x 0, no data)
	Nullify() []float64
}

// base carries the dimensions and backing buffer shared by all layouts.
type base struct {
	m, n int
	data []float64
}

// Dims returns the matrix dimensions.
func (b *base) Dims() (r, c int) { return b.m, b.n }

// RawData returns the backing buffer in storage order.
func (b *base) RawData() []float64 { return b.data }

// Nullify releases ownership of the backing buffer and returns it.
func (b *base) Nullify() []float64 {
	data := b.data
	b.m, b.n, b.data = 0, 0, nil
	return data
}

func (b *base) clear() {
	b.m, b.n, b.data = 0, 0, nil
}

// alloc allocates a zeroed buffer of the given size. Impossible requests
// fail with ErrOutOfMemory rather than panicking, so a failed allocation
// leaves the calling layout in a well-defined state.
func alloc(size int) (data []float64, err error) {
	if size < 0 {
		return nil, fmt.Errorf("allocate %d entries: %w", size, ErrOutOfMemory)
	}
	defer func() {
		if recover() != nil {
			data, err = nil, fmt.Errorf("allocate %d entries: %w", size, ErrOutOfMemory)
		}
	}()
	data = make([]float64, size)
	return data, nil
}

// mulSize returns m*n, failing with ErrOutOfMemory on overflow.
func mulSize(m, n int) (int, error) {
	if m < 0 || n < 0 {
		return 0, fmt.Errorf("invalid dimensions [%d x %d]: %w", m, n, ErrOutOfMemory)
	}
	size := m * n
	if m != 0 && size/m != n {
		return 0, fmt.Errorf("dimensions [%d x %d] overflow: %w", m, n, ErrOutOfMemory)
	}
	return size, nil
}

// packedSize returns n*(n+1)/2, failing with ErrOutOfMemory on overflow.
func packedSize(n int) (int, error) {
	size, err := mulSize(n, n+1)
	if err != nil {
		return 0, err
	}
	return size / 2, nil
}
