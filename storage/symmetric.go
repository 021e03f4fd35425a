package storage

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Symmetric is an n x n symmetric matrix with full n^2 storage.
// The upper triangle defines the matrix; accesses to the lower triangle
// are mirrored at access time, so M(i, j) == M(j, i) always holds.
type Symmetric struct {
	base
}

// NewSymmetric creates an n x n zeroed symmetric matrix.
// It fails with ErrOutOfMemory on an impossible allocation request.
func NewSymmetric(n int) (*Symmetric, error) {
	s := &Symmetric{}
	if err := s.Reallocate(n, n); err != nil {
		return nil, err
	}
	return s, nil
}

// At returns the element at (i, j), mirroring lower-triangle accesses.
func (s *Symmetric) At(i, j int) float64 {
	s.checkBounds(i, j)
	if i > j {
		i, j = j, i
	}
	return s.data[i*s.n+j]
}

// Set assigns the element at (i, j), mirroring lower-triangle accesses.
func (s *Symmetric) Set(i, j int, v float64) {
	s.checkBounds(i, j)
	if i > j {
		i, j = j, i
	}
	s.data[i*s.n+j] = v
}

// T returns the transpose, which is the matrix itself.
func (s *Symmetric) T() mat.Matrix { return s }

// SymmetricDim implements the gonum mat.Symmetric interface.
func (s *Symmetric) SymmetricDim() int { return s.n }

// DataSize returns the number of stored scalars.
func (s *Symmetric) DataSize() int { return s.m * s.n }

// Reallocate resizes the matrix to m x m discarding its contents.
// The second dimension is ignored: the matrix is always square.
func (s *Symmetric) Reallocate(m, _ int) error {
	if m == s.m {
		return nil
	}
	size, err := mulSize(m, m)
	if err != nil {
		s.clear()
		return err
	}
	data, err := alloc(size)
	if err != nil {
		s.clear()
		return err
	}
	s.m, s.n, s.data = m, m, data
	return nil
}

// Resize resizes the matrix to m x m preserving the overlapping region.
func (s *Symmetric) Resize(m, _ int) error {
	if m == s.m {
		return nil
	}
	nold, old := s.n, s.data
	if err := s.Reallocate(m, m); err != nil {
		return err
	}
	for i := 0; i < min(nold, m); i++ {
		for j := i; j < min(nold, m); j++ {
			s.data[i*m+j] = old[i*nold+j]
		}
	}
	return nil
}

// Zero byte-fills the storage with zeros.
func (s *Symmetric) Zero() { clear(s.data) }

// Fill assigns v to every stored entry.
func (s *Symmetric) Fill(v float64) {
	for i := range s.data {
		s.data[i] = v
	}
}

// SetIdentity zeroes the matrix and sets the diagonal to one.
func (s *Symmetric) SetIdentity() {
	s.Zero()
	for i := 0; i < s.n; i++ {
		s.data[i*s.n+i] = 1
	}
}

// SetData adopts data as the backing buffer for an m x m matrix.
func (s *Symmetric) SetData(m, _ int, data []float64) error {
	size, err := mulSize(m, m)
	if err != nil {
		return err
	}
	if len(data) != size {
		return fmt.Errorf("data length %d does not match [%d x %d]", len(data), m, m)
	}
	s.m, s.n, s.data = m, m, data
	return nil
}

func (s *Symmetric) checkBounds(i, j int) {
	if i < 0 || i >= s.m || j < 0 || j >= s.n {
		panic(fmt.Sprintf("storage: index (%d, %d) out of range [%d x %d]", i, j, s.m, s.n))
	}
}
