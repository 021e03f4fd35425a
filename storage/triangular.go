package storage

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Triangular is an n x n triangular matrix with full n^2 row-major
// storage; only the stored triangle is semantically meaningful. The
// other triangle reads as zero and ignores writes.
type Triangular struct {
	base
	side Side
}

// NewTriangular creates an n x n zeroed triangular matrix storing the
// given side. It fails with ErrOutOfMemory on an impossible allocation
// request.
func NewTriangular(n int, side Side) (*Triangular, error) {
	t := &Triangular{side: side}
	if err := t.Reallocate(n, n); err != nil {
		return nil, err
	}
	return t, nil
}

// Side returns the stored triangle.
func (t *Triangular) Side() Side { return t.side }

func (t *Triangular) stored(i, j int) bool {
	if t.side == Upper {
		return i <= j
	}
	return j <= i
}

// At returns the element at (i, j); the non-stored triangle reads zero.
func (t *Triangular) At(i, j int) float64 {
	t.checkBounds(i, j)
	if !t.stored(i, j) {
		return 0
	}
	return t.data[i*t.n+j]
}

// Set assigns the element at (i, j); writes outside the stored triangle
// are ignored.
func (t *Triangular) Set(i, j int, v float64) {
	t.checkBounds(i, j)
	if !t.stored(i, j) {
		return
	}
	t.data[i*t.n+j] = v
}

// T returns the transpose of the matrix.
func (t *Triangular) T() mat.Matrix { return mat.Transpose{Matrix: t} }

// Triangle implements the gonum mat.Triangular interface.
func (t *Triangular) Triangle() (int, mat.TriKind) {
	if t.side == Lower {
		return t.n, mat.Lower
	}
	return t.n, mat.Upper
}

// TTri implements the gonum mat.Triangular interface.
func (t *Triangular) TTri() mat.Triangular { return mat.TransposeTri{Triangular: t} }

// DataSize returns the number of stored scalars.
func (t *Triangular) DataSize() int { return t.m * t.n }

// Reallocate resizes the matrix to m x m discarding its contents.
// The second dimension is ignored: the matrix is always square.
func (t *Triangular) Reallocate(m, _ int) error {
	if m == t.m {
		return nil
	}
	size, err := mulSize(m, m)
	if err != nil {
		t.clear()
		return err
	}
	data, err := alloc(size)
	if err != nil {
		t.clear()
		return err
	}
	t.m, t.n, t.data = m, m, data
	return nil
}

// Resize resizes the matrix to m x m preserving the overlapping region.
// Each surviving row is re-addressed at its new offset rather than
// copied as raw bytes.
func (t *Triangular) Resize(m, _ int) error {
	if m == t.m {
		return nil
	}
	nold, old := t.n, t.data
	if err := t.Reallocate(m, m); err != nil {
		return err
	}
	for i := 0; i < min(nold, m); i++ {
		for j := 0; j < min(nold, m); j++ {
			t.data[i*m+j] = old[i*nold+j]
		}
	}
	return nil
}

// Zero byte-fills the storage with zeros.
func (t *Triangular) Zero() { clear(t.data) }

// Fill assigns v to every stored entry.
func (t *Triangular) Fill(v float64) {
	for i := 0; i < t.m; i++ {
		for j := 0; j < t.n; j++ {
			if t.stored(i, j) {
				t.data[i*t.n+j] = v
			}
		}
	}
}

// SetIdentity zeroes the matrix and sets the diagonal to one.
func (t *Triangular) SetIdentity() {
	t.Zero()
	for i := 0; i < t.n; i++ {
		t.data[i*t.n+i] = 1
	}
}

// SetData adopts data as the backing buffer for an m x m matrix.
func (t *Triangular) SetData(m, _ int, data []float64) error {
	size, err := mulSize(m, m)
	if err != nil {
		return err
	}
	if len(data) != size {
		return fmt.Errorf("data length %d does not match [%d x %d]", len(data), m, m)
	}
	t.m, t.n, t.data = m, m, data
	return nil
}

func (t *Triangular) checkBounds(i, j int) {
	if i < 0 || i >= t.m || j < 0 || j >= t.n {
		panic(fmt.Sprintf("storage: index (%d, %d) out of range [%d x %d]", i, j, t.m, t.n))
	}
}
