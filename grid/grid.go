// Package grid binds a domain decomposition, a distributed spectral
// transform and local coordinate meshes into the object physics modules
// consume. The grid exposes halo synchronization, forward/backward spectral
// transforms and the rank-local coordinate and wavenumber meshes; the
// transposes and overlap plans underneath stay internal.
package grid

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/notargets/gospectral/backend"
	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/decomp"
	"github.com/notargets/gospectral/spectral"
	"github.com/notargets/gospectral/tensor"
)

// Config describes a cartesian grid. N and L must have the same rank;
// Periodic defaults to all-periodic when nil. Halo must cover the widest
// stencil any differentiation or interpolation module needs.
type Config struct {
	N          []int
	L          []float64
	Periodic   []bool
	SharedAxes []int
	Halo       int

	// TransformTypes selects the default non-periodic transforms; nil
	// means DCT2 everywhere (cell centers, zero normal derivative).
	TransformTypes []spectral.TransformType

	// Backend is a backend spec string such as "serial" or
	// "occa:{\"mode\": \"CUDA\"}"; empty selects the default.
	Backend string
}

// Grid is one rank's view of a distributed cartesian grid.
type Grid struct {
	NDims    int
	N        []int
	L        []float64
	Dx       []float64
	Periodic []bool

	physical *decomp.DomainDecomposition
	pfft     *decomp.ParallelFFT
	kern     *spectral.Transform
	be       backend.Backend

	xGlobal [][]float64
	xLocal  [][]float64
	kGlobal [][]float64
	kLocal  [][]float64
}

// New decomposes the grid over the ranks of c and builds the spectral
// transform chain. Fails fast on inconsistent configuration, before any
// stepping begins.
func New(c *comm.Comm, cfg Config) (*Grid, error) {
	nDims := len(cfg.N)
	if nDims == 0 {
		return nil, errors.New("grid needs at least one axis")
	}
	if len(cfg.L) != nDims {
		return nil, errors.Errorf(
			"grid extent L has rank %d, want %d", len(cfg.L), nDims)
	}
	periodic := cfg.Periodic
	if periodic == nil {
		periodic = make([]bool, nDims)
		for i := range periodic {
			periodic[i] = true
		}
	}
	if len(periodic) != nDims {
		return nil, errors.Errorf(
			"periodic flags have rank %d, want %d", len(periodic), nDims)
	}

	be, err := backend.New(cfg.Backend)
	if err != nil {
		return nil, err
	}

	physical, err := decomp.New(c, cfg.N, cfg.Halo, cfg.SharedAxes, be)
	if err != nil {
		return nil, errors.Wrap(err, "physical decomposition")
	}
	pfft, err := decomp.NewParallelFFT(physical, nil, 0)
	if err != nil {
		return nil, errors.Wrap(err, "spectral transform chain")
	}

	g := &Grid{
		NDims:    nDims,
		N:        append([]int(nil), cfg.N...),
		L:        append([]float64(nil), cfg.L...),
		Periodic: append([]bool(nil), periodic...),
		physical: physical,
		pfft:     pfft,
		kern:     spectral.New(periodic, cfg.TransformTypes),
		be:       be,
	}
	g.Dx = make([]float64, nDims)
	for i := range g.Dx {
		g.Dx[i] = cfg.L[i] / float64(cfg.N[i])
	}
	g.buildMeshes()

	if c.Rank() == 0 {
		klog.V(1).Infof("grid %v on %d ranks, backend %s, halo %d",
			cfg.N, c.Size(), be.Name(), cfg.Halo)
	}
	return g, nil
}

// buildMeshes computes the cell-center coordinates and the wavenumbers,
// globally and restricted to this rank's tiles. Physical coordinates carry
// the halo with periodic wrap; spectral coordinates have none.
func (g *Grid) buildMeshes() {
	nDims := g.NDims
	g.xGlobal = make([][]float64, nDims)
	for i := 0; i < nDims; i++ {
		x := make([]float64, g.N[i])
		for j := range x {
			x[j] = (float64(j) + 0.5) * g.Dx[i]
		}
		g.xGlobal[i] = x
	}
	g.kGlobal = g.kern.Freq(g.N, g.Dx)

	phys := g.physical.MySubdomain
	g.xLocal = make([][]float64, nDims)
	for i := 0; i < nDims; i++ {
		n := phys.Shape[i]
		x := make([]float64, n)
		for j := range x {
			gj := phys.Position[i] + j - g.physical.Halo
			gj = ((gj % g.N[i]) + g.N[i]) % g.N[i]
			x[j] = g.xGlobal[i][gj]
		}
		g.xLocal[i] = x
	}

	spec := g.pfft.DomainOut.MySubdomain
	g.kLocal = make([][]float64, nDims)
	for i := 0; i < nDims; i++ {
		g.kLocal[i] = g.kGlobal[i][spec.GlobalSlice[i].Lo:spec.GlobalSlice[i].Hi]
	}
}

// XGlobal returns the global cell-center coordinates along axis.
func (g *Grid) XGlobal(axis int) []float64 { return g.xGlobal[axis] }

// XLocal returns this rank's cell-center coordinates along axis, halo
// included.
func (g *Grid) XLocal(axis int) []float64 { return g.xLocal[axis] }

// KGlobal returns the global wavenumbers along axis.
func (g *Grid) KGlobal(axis int) []float64 { return g.kGlobal[axis] }

// KLocal returns this rank's spectral-tile wavenumbers along axis.
func (g *Grid) KLocal(axis int) []float64 { return g.kLocal[axis] }

// Mesh returns the physical coordinate field of this rank's tile along
// axis, halo included, as a full-shape array for elementwise use.
func (g *Grid) Mesh(axis int) *tensor.Dense[float64] {
	shape := g.physical.MySubdomain.Shape
	m := tensor.NewDense[float64](shape...)
	x := g.xLocal[axis]
	tensor.Lines(m, axis, func(line []float64) {
		copy(line, x)
	})
	return m
}

// Wavenumbers returns the wavenumber field of this rank's spectral tile
// along axis, as a full-shape array for elementwise use.
func (g *Grid) Wavenumbers(axis int) *tensor.Dense[float64] {
	shape := g.pfft.DomainOut.MySubdomain.Shape
	m := tensor.NewDense[float64](shape...)
	k := g.kLocal[axis]
	tensor.Lines(m, axis, func(line []float64) {
		copy(line, k)
	})
	return m
}

// FFT transforms a physical-space field to spectral space with the grid's
// default per-axis transforms.
func (g *Grid) FFT(u *tensor.Dense[complex128]) *tensor.Dense[complex128] {
	return g.pfft.ForwardApply(u, g.kern.Forward)
}

// IFFT transforms a spectral-space field back to physical space.
func (g *Grid) IFFT(u *tensor.Dense[complex128]) *tensor.Dense[complex128] {
	return g.pfft.BackwardApply(u, g.kern.Backward)
}

// FFTTypes is FFT with per-field non-periodic transform types, for fields
// whose staggered position or boundary condition differs from the grid
// default.
func (g *Grid) FFTTypes(u *tensor.Dense[complex128], types []spectral.TransformType) *tensor.Dense[complex128] {
	return g.pfft.ForwardApply(u, g.kern.WithTypes(types).Forward)
}

// IFFTTypes is the inverse of FFTTypes.
func (g *Grid) IFFTTypes(u *tensor.Dense[complex128], types []spectral.TransformType) *tensor.Dense[complex128] {
	return g.pfft.BackwardApply(u, g.kern.WithTypes(types).Backward)
}

// Sync fills the halo of a physical-space field.
func (g *Grid) Sync(u *tensor.Dense[float64]) {
	decomp.Sync(g.physical, u)
}

// SyncC fills the halo of a complex physical-space field.
func (g *Grid) SyncC(u *tensor.Dense[complex128]) {
	decomp.Sync(g.physical, u)
}

// SyncMulti batches the halo exchange for several fields.
func (g *Grid) SyncMulti(us []*tensor.Dense[float64]) {
	decomp.SyncMulti(g.physical, us)
}

// ApplyBoundaryCondition overwrites the halo on a global boundary face with
// value, for non-periodic axes.
func (g *Grid) ApplyBoundaryCondition(u *tensor.Dense[float64], axis int,
	side decomp.Side, value float64) {
	decomp.ApplyBoundaryCondition(g.physical, u, axis, side, value)
}

// Subdomain returns this rank's tile in physical or spectral space. I/O
// writers use the global slice to place their output.
func (g *Grid) Subdomain(spectral bool) *decomp.Subdomain {
	if spectral {
		return g.pfft.DomainOut.MySubdomain
	}
	return g.physical.MySubdomain
}

// Decomposition returns the physical or spectral decomposition.
func (g *Grid) Decomposition(spectral bool) *decomp.DomainDecomposition {
	if spectral {
		return g.pfft.DomainOut
	}
	return g.physical
}

// Backend returns the compute backend the grid was built with.
func (g *Grid) Backend() backend.Backend { return g.be }
