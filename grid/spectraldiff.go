package grid

import "github.com/notargets/gospectral/tensor"

// SpectralDiff differentiates fields in spectral space, where taking a
// derivative along an axis is a multiplication by i*k. It operates on
// spectral-space arrays shaped to the grid's spectral tile.
type SpectralDiff struct {
	g *Grid
}

func NewSpectralDiff(g *Grid) *SpectralDiff { return &SpectralDiff{g: g} }

// RequiredHalo is zero: spectral differentiation needs no stencil reach.
func (sd *SpectralDiff) RequiredHalo() int { return 0 }

// Diff multiplies uHat by (i*k)^order along axis and returns a new array.
func (sd *SpectralDiff) Diff(uHat *tensor.Dense[complex128], axis, order int) *tensor.Dense[complex128] {
	k := sd.g.KLocal(axis)
	out := uHat.Clone()
	tensor.Lines(out, axis, func(line []complex128) {
		for i := range line {
			ik := complex(0, k[i])
			f := ik
			for o := 1; o < order; o++ {
				f *= ik
			}
			line[i] *= f
		}
	})
	return out
}
