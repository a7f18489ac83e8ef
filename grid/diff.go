package grid

import (
	"github.com/notargets/gospectral/tensor"
)

// DiffKind selects the finite-difference stencil. Forward differences take
// a cell-center field to faces, backward differences take faces back to
// centers; centered differences stay on the same position at second order.
type DiffKind int

const (
	ForwardDiff DiffKind = iota
	BackwardDiff
	CenteredDiff
)

// Differentiator is the capability physics modules depend on for spatial
// derivatives. Implementations declare the halo width they need so the grid
// can be built with a sufficient stencil reach.
type Differentiator interface {
	RequiredHalo() int
	Diff(u *tensor.Dense[float64], axis int, kind DiffKind) *tensor.Dense[float64]
}

// FiniteDifferences implements first-order one-sided and second-order
// centered differences on the staggered grid. Results are valid on interior
// cells; the caller syncs before differencing and after composing stencils
// that reach further than one cell.
type FiniteDifferences struct {
	dx1 []float64 // reciprocal grid spacing per axis
}

// NewFiniteDifferences builds the operator for the grid's spacing.
func NewFiniteDifferences(g *Grid) *FiniteDifferences {
	dx1 := make([]float64, g.NDims)
	for i, dx := range g.Dx {
		dx1[i] = 1 / dx
	}
	return &FiniteDifferences{dx1: dx1}
}

func (fd *FiniteDifferences) RequiredHalo() int { return 1 }

// Diff differentiates u along axis and returns a new array. The trailing
// cell of each line (leading for backward differences) has no neighbor and
// is left zero; it always lies in the halo when the caller honors
// RequiredHalo.
func (fd *FiniteDifferences) Diff(u *tensor.Dense[float64], axis int, kind DiffKind) *tensor.Dense[float64] {
	out := tensor.NewDense[float64](u.Shape()...)
	copy(out.Data(), u.Data())
	s := fd.dx1[axis]
	switch kind {
	case ForwardDiff:
		tensor.Lines(out, axis, func(line []float64) {
			for i := 0; i < len(line)-1; i++ {
				line[i] = (line[i+1] - line[i]) * s
			}
			line[len(line)-1] = 0
		})
	case BackwardDiff:
		tensor.Lines(out, axis, func(line []float64) {
			for i := len(line) - 1; i > 0; i-- {
				line[i] = (line[i] - line[i-1]) * s
			}
			line[0] = 0
		})
	case CenteredDiff:
		tensor.Lines(out, axis, func(line []float64) {
			prev := line[0]
			for i := 1; i < len(line)-1; i++ {
				d := (line[i+1] - prev) * 0.5 * s
				prev = line[i]
				line[i] = d
			}
			line[0] = 0
			line[len(line)-1] = 0
		})
	}
	return out
}

// Div sums the backward differences of the component fields, taking a
// face-staggered vector field to cell centers.
func (fd *FiniteDifferences) Div(us []*tensor.Dense[float64], axes []int) *tensor.Dense[float64] {
	if axes == nil {
		axes = make([]int, len(us))
		for i := range axes {
			axes[i] = i
		}
	}
	res := tensor.NewDense[float64](us[0].Shape()...)
	for i, u := range us {
		d := fd.Diff(u, axes[i], BackwardDiff)
		for j, v := range d.Data() {
			res.Data()[j] += v
		}
	}
	return res
}

// Grad returns the forward difference along every axis, taking a
// cell-center field to the faces.
func (fd *FiniteDifferences) Grad(u *tensor.Dense[float64]) []*tensor.Dense[float64] {
	out := make([]*tensor.Dense[float64], len(fd.dx1))
	for axis := range out {
		out[axis] = fd.Diff(u, axis, ForwardDiff)
	}
	return out
}

// Laplacian composes forward and backward differences per axis. Each
// composition reaches two cells, so the caller must sync between
// applications or carry a halo of at least two.
func (fd *FiniteDifferences) Laplacian(u *tensor.Dense[float64]) *tensor.Dense[float64] {
	res := tensor.NewDense[float64](u.Shape()...)
	for axis := range fd.dx1 {
		d := fd.Diff(fd.Diff(u, axis, BackwardDiff), axis, ForwardDiff)
		for j, v := range d.Data() {
			res.Data()[j] += v
		}
	}
	return res
}
