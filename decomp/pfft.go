package decomp

import (
	"github.com/pkg/errors"

	"github.com/notargets/gospectral/spectral"
	"github.com/notargets/gospectral/tensor"
)

// ApplyFunc is a local transform applied to an array along the given axes.
// Every axis passed in is whole on this rank when the function is called.
type ApplyFunc func(arr *tensor.Dense[complex128], axes []int) *tensor.Dense[complex128]

// ParallelFFT performs full n-dimensional spectral transforms on a
// distributed array by chaining local transforms along shared axes with
// transposes to decompositions that share the remaining axes. Each global
// axis is transformed exactly once across the chain.
type ParallelFFT struct {
	DomainIn  *DomainDecomposition
	DomainOut *DomainDecomposition

	forward  []*Transformer
	backward []*Transformer // reversed: last transpose first

	// fftAxes[i] is the axis set transformed before transpose i; the last
	// entry is applied after the final transpose.
	fftAxes [][]int
}

// NewParallelFFT derives the output decomposition and the chain of
// intermediate decompositions and transposes. The input decomposition must
// have at least one shared axis, and sharedAxesOut may not request more
// shared axes than the input provides; missing axes are filled in
// automatically. Intermediate decompositions carry no halo.
func NewParallelFFT(domainIn *DomainDecomposition, sharedAxesOut []int,
	haloOut int) (*ParallelFFT, error) {

	nDims := domainIn.NDims
	sharedIn := domainIn.SharedAxes
	nShared := len(sharedIn)
	if nShared == 0 {
		return nil, errors.New(
			"input decomposition must have at least one shared axis")
	}
	if len(sharedAxesOut) > nShared {
		return nil, errors.Errorf(
			"requested %d shared output axes but the input provides only %d",
			len(sharedAxesOut), nShared)
	}
	sharedOut := append([]int(nil), sharedAxesOut...)

	// Fill sharedOut up to the input's shared-axis count, preferring axes
	// that neither side shares yet so the first transposes expose
	// untransformed axes.
	missing := missingAxes(nDims, sharedIn, sharedOut)
	pool := append(append([]int(nil), sharedIn...), missing...)
	for len(sharedOut) < nShared {
		sharedOut = append(sharedOut, pool[len(pool)-1])
		pool = pool[:len(pool)-1]
	}

	domainOut, err := New(domainIn.Cart.Comm, domainIn.NGlobal, haloOut,
		sharedOut, domainIn.be)
	if err != nil {
		return nil, err
	}
	sharedOut = domainOut.SharedAxes

	// Axes shared by neither endpoint need an intermediate decomposition
	// each can reach. Chunk them by the number of shared axes, the degrees
	// of freedom available per transpose; the last chunk is padded with
	// output axes so the final transpose is cheap.
	missing = missingAxes(nDims, sharedIn, sharedOut)
	var mids [][]int
	for len(missing) > 0 {
		n := min(nShared, len(missing))
		chunk := append([]int(nil), missing[:n]...)
		missing = missing[n:]
		if len(missing) == 0 {
			for _, ax := range sharedOut {
				if len(chunk) >= nShared {
					break
				}
				chunk = append(chunk, ax)
			}
		}
		mids = append(mids, chunk)
	}

	// Rebuild the endpoints without halo for the transform steps; only the
	// final decomposition of each direction keeps its halo.
	allShared := append([][]int{sharedIn}, mids...)
	allShared = append(allShared, sharedOut)
	chain := make([]*DomainDecomposition, len(allShared))
	for i, shared := range allShared {
		chain[i], err = New(domainIn.Cart.Comm, domainIn.NGlobal, 0, shared,
			domainIn.be)
		if err != nil {
			return nil, err
		}
	}
	fwdChain := append(append([]*DomainDecomposition(nil), chain[:len(chain)-1]...), domainOut)
	bwdChain := append([]*DomainDecomposition{domainIn}, chain[1:]...)

	p := &ParallelFFT{DomainIn: domainIn, DomainOut: domainOut}
	nSteps := len(mids) + 1
	for i := 0; i < nSteps; i++ {
		tf, err := NewTransformer(fwdChain[i], fwdChain[i+1])
		if err != nil {
			return nil, err
		}
		tb, err := NewTransformer(bwdChain[i], bwdChain[i+1])
		if err != nil {
			return nil, err
		}
		p.forward = append(p.forward, tf)
		p.backward = append([]*Transformer{tb}, p.backward...)
	}

	// Partition the axes over the steps so each is transformed exactly
	// once: first whatever the input shares, then each chunk's new axes,
	// finally the output axes not yet covered.
	remaining := make(map[int]bool, nDims)
	for ax := 0; ax < nDims; ax++ {
		remaining[ax] = true
	}
	take := func(axes []int) []int {
		var out []int
		for _, ax := range axes {
			if remaining[ax] {
				out = append(out, ax)
				delete(remaining, ax)
			}
		}
		return out
	}
	p.fftAxes = append(p.fftAxes, take(sharedIn))
	for _, chunk := range mids {
		p.fftAxes = append(p.fftAxes, take(chunk))
	}
	p.fftAxes = append(p.fftAxes, take(sharedOut))
	if len(remaining) > 0 {
		return nil, errors.Errorf(
			"internal: axes %v not covered by any transform step", remaining)
	}
	return p, nil
}

func missingAxes(nDims int, sharedIn, sharedOut []int) []int {
	have := make(map[int]bool)
	for _, ax := range sharedIn {
		have[ax] = true
	}
	for _, ax := range sharedOut {
		have[ax] = true
	}
	var missing []int
	for ax := 0; ax < nDims; ax++ {
		if !have[ax] {
			missing = append(missing, ax)
		}
	}
	return missing
}

func fftnApply(arr *tensor.Dense[complex128], axes []int) *tensor.Dense[complex128] {
	return spectral.FFTN(arr, axes)
}

func ifftnApply(arr *tensor.Dense[complex128], axes []int) *tensor.Dense[complex128] {
	return spectral.IFFTN(arr, axes)
}

// Forward transforms a distributed physical-space array to spectral space
// with the complex FFT along every axis.
func (p *ParallelFFT) Forward(arr *tensor.Dense[complex128]) *tensor.Dense[complex128] {
	return p.ForwardApply(arr, fftnApply)
}

// Backward transforms a distributed spectral-space array back to physical
// space with the normalized inverse FFT along every axis.
func (p *ParallelFFT) Backward(arr *tensor.Dense[complex128]) *tensor.Dense[complex128] {
	return p.BackwardApply(arr, ifftnApply)
}

// ForwardApply runs the forward chain with a caller-supplied local
// transform, enabling mixed cosine/sine/Fourier transforms per axis. apply
// is called once per step with the axes whole on this rank at that step.
func (p *ParallelFFT) ForwardApply(arr *tensor.Dense[complex128], apply ApplyFunc) *tensor.Dense[complex128] {
	return runChain(arr, p.DomainIn, p.DomainOut, p.forward, Forward[complex128],
		p.fftAxes, apply)
}

// BackwardApply is the inverse of ForwardApply; apply should invert the
// forward transform axis by axis.
func (p *ParallelFFT) BackwardApply(arr *tensor.Dense[complex128], apply ApplyFunc) *tensor.Dense[complex128] {
	reversed := make([][]int, len(p.fftAxes))
	for i, axes := range p.fftAxes {
		reversed[len(p.fftAxes)-1-i] = axes
	}
	return runChain(arr, p.DomainOut, p.DomainIn, p.backward, Backward[complex128],
		reversed, apply)
}

// runChain strips the halo of the source array, then alternates local
// transforms with transposes until the destination decomposition is
// reached. The final step's axes are transformed on the destination's
// interior, after which a Sync restores its halo.
func runChain(arr *tensor.Dense[complex128], src, dst *DomainDecomposition,
	steps []*Transformer, move func(*Transformer, *tensor.Dense[complex128]) *tensor.Dense[complex128],
	fftAxes [][]int, apply ApplyFunc) *tensor.Dense[complex128] {

	out := arr.Section(src.MySubdomain.InnerSlice)
	for i, t := range steps {
		if len(fftAxes[i]) > 0 {
			out = apply(out, fftAxes[i])
		}
		out = move(t, out)
	}
	last := fftAxes[len(fftAxes)-1]
	if len(last) > 0 {
		inner := dst.MySubdomain.InnerSlice
		transformed := apply(out.Section(inner), last)
		out.Insert(inner, transformed.Data())
		Sync(dst, out)
	}
	return out
}
