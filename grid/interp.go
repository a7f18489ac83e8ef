package grid

import "github.com/notargets/gospectral/tensor"

// Interpolator moves fields between staggered positions.
type Interpolator interface {
	RequiredHalo() int
	InterpolateAxis(u *tensor.Dense[float64], axis int, from, to AxisPosition) *tensor.Dense[float64]
}

// LinearInterpolation averages the two neighboring values when shifting a
// field half a cell along an axis. A forward half-shift takes centers to
// the faces on their right; a backward half-shift takes faces to the
// centers on their left.
type LinearInterpolation struct{}

func NewLinearInterpolation() *LinearInterpolation { return &LinearInterpolation{} }

func (li *LinearInterpolation) RequiredHalo() int { return 1 }

// InterpolateAxis returns u moved from one staggered position to another
// along axis. Equal positions return u unchanged. The cell without a
// neighbor on each line is left zero; it lies in the halo when the caller
// honors RequiredHalo.
func (li *LinearInterpolation) InterpolateAxis(u *tensor.Dense[float64], axis int,
	from, to AxisPosition) *tensor.Dense[float64] {

	if from == to {
		return u
	}
	out := u.Clone()
	if from == Center {
		// center -> face: average with the next cell
		tensor.Lines(out, axis, func(line []float64) {
			for i := 0; i < len(line)-1; i++ {
				line[i] = 0.5 * (line[i] + line[i+1])
			}
			line[len(line)-1] = 0
		})
	} else {
		// face -> center: average with the previous cell
		tensor.Lines(out, axis, func(line []float64) {
			for i := len(line) - 1; i > 0; i-- {
				line[i] = 0.5 * (line[i-1] + line[i])
			}
			line[0] = 0
		})
	}
	return out
}

// Interpolate shifts a field along every axis where the positions differ.
func (li *LinearInterpolation) Interpolate(u *tensor.Dense[float64],
	from, to Position) *tensor.Dense[float64] {

	out := u
	for axis := range from {
		out = li.InterpolateAxis(out, axis, from[axis], to[axis])
	}
	return out
}
