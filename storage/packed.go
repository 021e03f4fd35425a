package storage

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// packedOffset maps (i, j) inside the stored triangle of an n x n packed
// layout to its row-major packed offset.
//
// Upper, j >= i: row i starts after rows 0..i-1 holding n-k entries each,
// giving i*n - i*(i-1)/2 + (j - i).
// Lower, j <= i: row i starts after rows 0..i-1 holding k+1 entries each,
// giving i*(i+1)/2 + j.
func packedOffset(side Side, n, i, j int) int {
	if side == Upper {
		return i*n - i*(i-1)/2 + (j - i)
	}
	return i*(i+1)/2 + j
}

// PackedSymmetric is an n x n symmetric matrix storing only the
// n(n+1)/2 entries of one triangle, packed row-major. The packing side
// is fixed at construction; accesses to the other triangle are mirrored
// at access time.
type PackedSymmetric struct {
	base
	side Side
}

// NewPackedSymmetric creates an n x n zeroed packed symmetric matrix.
// It fails with ErrOutOfMemory on an impossible allocation request.
func NewPackedSymmetric(n int, side Side) (*PackedSymmetric, error) {
	p := &PackedSymmetric{side: side}
	if err := p.Reallocate(n, n); err != nil {
		return nil, err
	}
	return p, nil
}

// Side returns the packing side.
func (p *PackedSymmetric) Side() Side { return p.side }

func (p *PackedSymmetric) offset(i, j int) int {
	if p.side == Upper && i > j {
		i, j = j, i
	}
	if p.side == Lower && j > i {
		i, j = j, i
	}
	return packedOffset(p.side, p.n, i, j)
}

// At returns the element at (i, j), mirroring non-stored accesses.
func (p *PackedSymmetric) At(i, j int) float64 {
	p.checkBounds(i, j)
	return p.data[p.offset(i, j)]
}

// Set assigns the element at (i, j), mirroring non-stored accesses.
func (p *PackedSymmetric) Set(i, j int, v float64) {
	p.checkBounds(i, j)
	p.data[p.offset(i, j)] = v
}

// T returns the transpose, which is the matrix itself.
func (p *PackedSymmetric) T() mat.Matrix { return p }

// SymmetricDim implements the gonum mat.Symmetric interface.
func (p *PackedSymmetric) SymmetricDim() int { return p.n }

// DataSize returns the number of stored scalars, n(n+1)/2.
func (p *PackedSymmetric) DataSize() int { return p.n * (p.n + 1) / 2 }

// Reallocate resizes the matrix to m x m discarding its contents.
// The second dimension is ignored: the matrix is always square.
func (p *PackedSymmetric) Reallocate(m, _ int) error {
	if m == p.m {
		return nil
	}
	size, err := packedSize(m)
	if err != nil {
		p.clear()
		return err
	}
	data, err := alloc(size)
	if err != nil {
		p.clear()
		return err
	}
	p.m, p.n, p.data = m, m, data
	return nil
}

// Resize resizes the matrix to m x m preserving the overlapping region.
// Surviving entries are re-addressed through the packing formula for the
// new dimension.
func (p *PackedSymmetric) Resize(m, _ int) error {
	if m == p.m {
		return nil
	}
	nold, old := p.n, p.data
	if err := p.Reallocate(m, m); err != nil {
		return err
	}
	for i := 0; i < min(nold, m); i++ {
		for j := i; j < min(nold, m); j++ {
			srcI, srcJ := i, j
			if p.side == Lower {
				srcI, srcJ = j, i
			}
			p.data[packedOffset(p.side, m, srcI, srcJ)] = old[packedOffset(p.side, nold, srcI, srcJ)]
		}
	}
	return nil
}

// Zero byte-fills the storage with zeros.
func (p *PackedSymmetric) Zero() { clear(p.data) }

// Fill assigns v to every stored entry.
func (p *PackedSymmetric) Fill(v float64) {
	for i := range p.data {
		p.data[i] = v
	}
}

// SetIdentity zeroes the matrix and sets the diagonal to one.
func (p *PackedSymmetric) SetIdentity() {
	p.Zero()
	for i := 0; i < p.n; i++ {
		p.data[packedOffset(p.side, p.n, i, i)] = 1
	}
}

// SetData adopts data as the backing buffer for an m x m matrix.
func (p *PackedSymmetric) SetData(m, _ int, data []float64) error {
	size, err := packedSize(m)
	if err != nil {
		return err
	}
	if len(data) != size {
		return fmt.Errorf("data length %d does not match packed [%d x %d]", len(data), m, m)
	}
	p.m, p.n, p.data = m, m, data
	return nil
}

func (p *PackedSymmetric) checkBounds(i, j int) {
	if i < 0 || i >= p.m || j < 0 || j >= p.n {
		panic(fmt.Sprintf("storage: index (%d, %d) out of range [%d x %d]", i, j, p.m, p.n))
	}
}

// PackedTriangular is an n x n triangular matrix storing only the
// n(n+1)/2 entries of its triangle, packed row-major. The non-stored
// triangle reads as zero and ignores writes.
type PackedTriangular struct {
	base
	side Side
}

// NewPackedTriangular creates an n x n zeroed packed triangular matrix.
// It fails with ErrOutOfMemory on an impossible allocation request.
func NewPackedTriangular(n int, side Side) (*PackedTriangular, error) {
	p := &PackedTriangular{side: side}
	if err := p.Reallocate(n, n); err != nil {
		return nil, err
	}
	return p, nil
}

// Side returns the stored triangle.
func (p *PackedTriangular) Side() Side { return p.side }

func (p *PackedTriangular) stored(i, j int) bool {
	if p.side == Upper {
		return i <= j
	}
	return j <= i
}

// At returns the element at (i, j); the non-stored triangle reads zero.
func (p *PackedTriangular) At(i, j int) float64 {
	p.checkBounds(i, j)
	if !p.stored(i, j) {
		return 0
	}
	return p.data[packedOffset(p.side, p.n, i, j)]
}

// Set assigns the element at (i, j); writes outside the stored triangle
// are ignored.
func (p *PackedTriangular) Set(i, j int, v float64) {
	p.checkBounds(i, j)
	if !p.stored(i, j) {
		return
	}
	p.data[packedOffset(p.side, p.n, i, j)] = v
}

// T returns the transpose of the matrix.
func (p *PackedTriangular) T() mat.Matrix { return mat.Transpose{Matrix: p} }

// Triangle implements the gonum mat.Triangular interface.
func (p *PackedTriangular) Triangle() (int, mat.TriKind) {
	if p.side == Lower {
		return p.n, mat.Lower
	}
	return p.n, mat.Upper
}

// TTri implements the gonum mat.Triangular interface.
func (p *PackedTriangular) TTri() mat.Triangular { return mat.TransposeTri{Triangular: p} }

// DataSize returns the number of stored scalars, n(n+1)/2.
func (p *PackedTriangular) DataSize() int { return p.n * (p.n + 1) / 2 }

// Reallocate resizes the matrix to m x m discarding its contents.
// The second dimension is ignored: the matrix is always square.
func (p *PackedTriangular) Reallocate(m, _ int) error {
	if m == p.m {
		return nil
	}
	size, err := packedSize(m)
	if err != nil {
		p.clear()
		return err
	}
	data, err := alloc(size)
	if err != nil {
		p.clear()
		return err
	}
	p.m, p.n, p.data = m, m, data
	return nil
}

// Resize resizes the matrix to m x m preserving the overlapping region.
func (p *PackedTriangular) Resize(m, _ int) error {
	if m == p.m {
		return nil
	}
	nold, old := p.n, p.data
	if err := p.Reallocate(m, m); err != nil {
		return err
	}
	for i := 0; i < min(nold, m); i++ {
		for j := 0; j < min(nold, m); j++ {
			if p.stored(i, j) {
				p.data[packedOffset(p.side, m, i, j)] = old[packedOffset(p.side, nold, i, j)]
			}
		}
	}
	return nil
}

// Zero byte-fills the storage with zeros.
func (p *PackedTriangular) Zero() { clear(p.data) }

// Fill assigns v to every stored entry.
func (p *PackedTriangular) Fill(v float64) {
	for i := range p.data {
		p.data[i] = v
	}
}

// SetIdentity zeroes the matrix and sets the diagonal to one.
func (p *PackedTriangular) SetIdentity() {
	p.Zero()
	for i := 0; i < p.n; i++ {
		p.data[packedOffset(p.side, p.n, i, i)] = 1
	}
}

// SetData adopts data as the backing buffer for an m x m matrix.
func (p *PackedTriangular) SetData(m, _ int, data []float64) error {
	size, err := packedSize(m)
	if err != nil {
		return err
	}
	if len(data) != size {
		return fmt.Errorf("data length %d does not match packed [%d x %d]", len(data), m, m)
	}
	p.m, p.n, p.data = m, m, data
	return nil
}

func (p *PackedTriangular) checkBounds(i, j int) {
	if i < 0 || i >= p.m || j < 0 || j >= p.n {
		panic(fmt.Sprintf("storage: index (%d, %d) out of range [%d x %d]", i, j, p.m, p.n))
	}
}
