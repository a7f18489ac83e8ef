// Package spectral provides the rank-local transform kernels the
// distributed FFT is assembled from: complex FFTs along periodic axes and
// discrete cosine/sine transforms along non-periodic axes. The cosine and
// sine transforms are built from explicit weight matrices so that different
// boundary conditions can be applied along different axes of the same array
// in one call; each forward/inverse pair is an exact algebraic identity.
package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gospectral/tensor"
)

// TransformType selects the transform applied along a non-periodic axis.
// The choice depends on whether the field lives at cell centers or cell
// faces along that axis and on its boundary condition.
type TransformType int

const (
	DCT2 TransformType = iota // cell center, zero normal derivative
	DST1                      // cell face, vanishing boundary value
	DST2                      // cell center, vanishing boundary value
)

func (t TransformType) String() string {
	switch t {
	case DCT2:
		return "DCT2"
	case DST1:
		return "DST1"
	case DST2:
		return "DST2"
	}
	return fmt.Sprintf("TransformType(%d)", int(t))
}

// Transform applies mixed FFT/DCT/DST transforms along the axes of an
// array. Periodic axes get the complex FFT; non-periodic axes get the
// configured cosine or sine transform. A Transform is not safe for
// concurrent use; each rank builds its own.
type Transform struct {
	periodic []bool
	types    []TransformType

	cffts   map[int]*fourier.CmplxFFT
	weights map[weightKey]*mat.Dense
}

type weightKey struct {
	t       TransformType
	n       int
	inverse bool
}

// New builds a Transform for the given per-axis periodicity. types selects
// the transform for non-periodic axes; nil defaults every non-periodic axis
// to DCT2. Entries for periodic axes are ignored.
func New(periodic []bool, types []TransformType) *Transform {
	if types == nil {
		types = make([]TransformType, len(periodic))
	}
	if len(types) != len(periodic) {
		panic(fmt.Sprintf("transform types rank %d != periodic rank %d",
			len(types), len(periodic)))
	}
	return &Transform{
		periodic: append([]bool(nil), periodic...),
		types:    append([]TransformType(nil), types...),
		cffts:    make(map[int]*fourier.CmplxFFT),
		weights:  make(map[weightKey]*mat.Dense),
	}
}

// WithTypes returns a Transform over the same periodicity but with
// different non-periodic transform types, sharing the kernel caches.
func (t *Transform) WithTypes(types []TransformType) *Transform {
	if types == nil {
		return t
	}
	if len(types) != len(t.periodic) {
		panic(fmt.Sprintf("transform types rank %d != periodic rank %d",
			len(types), len(t.periodic)))
	}
	return &Transform{
		periodic: t.periodic,
		types:    append([]TransformType(nil), types...),
		cffts:    t.cffts,
		weights:  t.weights,
	}
}

// Forward transforms u from physical to spectral space along the given
// axes (all axes when nil) and returns a new array.
func (t *Transform) Forward(u *tensor.Dense[complex128], axes []int) *tensor.Dense[complex128] {
	return t.apply(u, axes, false)
}

// Backward transforms u from spectral to physical space along the given
// axes (all axes when nil) and returns a new array.
func (t *Transform) Backward(u *tensor.Dense[complex128], axes []int) *tensor.Dense[complex128] {
	return t.apply(u, axes, true)
}

func (t *Transform) apply(u *tensor.Dense[complex128], axes []int, inverse bool) *tensor.Dense[complex128] {
	if axes == nil {
		axes = make([]int, u.NDims())
		for i := range axes {
			axes[i] = i
		}
	}
	out := u.Clone()
	for _, axis := range axes {
		n := out.Shape()[axis]
		if n < 2 {
			continue
		}
		if t.periodic[axis] {
			t.fftAxis(out, axis, inverse)
		} else {
			w := t.weightMatrix(t.types[axis], n, inverse)
			applyWeights(out, axis, w)
		}
	}
	return out
}

func (t *Transform) cfft(n int) *fourier.CmplxFFT {
	fft, ok := t.cffts[n]
	if !ok {
		fft = fourier.NewCmplxFFT(n)
		t.cffts[n] = fft
	}
	return fft
}

func (t *Transform) fftAxis(u *tensor.Dense[complex128], axis int, inverse bool) {
	n := u.Shape()[axis]
	fft := t.cfft(n)
	scratch := make([]complex128, n)
	scale := complex(1/float64(n), 0)
	tensor.Lines(u, axis, func(line []complex128) {
		copy(scratch, line)
		if inverse {
			// Sequence is unnormalized; a round trip scales by n.
			fft.Sequence(line, scratch)
			for i := range line {
				line[i] *= scale
			}
		} else {
			fft.Coefficients(line, scratch)
		}
	})
}

// applyWeights multiplies every line of u along axis by the weight matrix,
// carrying real and imaginary parts through separate gonum vector products.
func applyWeights(u *tensor.Dense[complex128], axis int, w *mat.Dense) {
	n := u.Shape()[axis]
	re := make([]float64, n)
	im := make([]float64, n)
	xRe := mat.NewVecDense(n, re)
	xIm := mat.NewVecDense(n, im)
	yRe := mat.NewVecDense(n, nil)
	yIm := mat.NewVecDense(n, nil)
	tensor.Lines(u, axis, func(line []complex128) {
		for i, v := range line {
			re[i] = real(v)
			im[i] = imag(v)
		}
		yRe.MulVec(w, xRe)
		yIm.MulVec(w, xIm)
		for i := range line {
			line[i] = complex(yRe.AtVec(i), yIm.AtVec(i))
		}
	})
}

func (t *Transform) weightMatrix(tt TransformType, n int, inverse bool) *mat.Dense {
	key := weightKey{t: tt, n: n, inverse: inverse}
	if w, ok := t.weights[key]; ok {
		return w
	}
	var w *mat.Dense
	switch {
	case tt == DCT2 && !inverse:
		w = dct2Weights(n)
	case tt == DCT2 && inverse:
		w = dct3Weights(n)
	case tt == DST1:
		// DST-I is its own inverse up to the 2(n+1) normalization.
		w = dst1Weights(n, inverse)
	case tt == DST2 && !inverse:
		w = dst2Weights(n)
	case tt == DST2 && inverse:
		w = dst3Weights(n)
	default:
		panic(fmt.Sprintf("unsupported transform type %v", tt))
	}
	t.weights[key] = w
	return w
}

// dct2Weights: y_k = 2 sum_j x_j cos(pi k (j+1/2) / n)
func dct2Weights(n int) *mat.Dense {
	w := mat.NewDense(n, n, nil)
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			w.Set(k, j, 2*math.Cos(math.Pi/float64(n)*float64(k)*(float64(j)+0.5)))
		}
	}
	return w
}

// dct3Weights: the inverse of dct2Weights,
// x_j = (y_0 + 2 sum_{k>=1} y_k cos(pi k (j+1/2) / n)) / (2n)
func dct3Weights(n int) *mat.Dense {
	w := mat.NewDense(n, n, nil)
	s := 1 / (2 * float64(n))
	for j := 0; j < n; j++ {
		w.Set(j, 0, s)
		for k := 1; k < n; k++ {
			w.Set(j, k, 2*s*math.Cos(math.Pi/float64(n)*float64(k)*(float64(j)+0.5)))
		}
	}
	return w
}

// dst1Weights: y_k = 2 sum_j x_j sin(pi (k+1)(j+1) / (n+1)); the inverse is
// the same matrix scaled by 1/(2(n+1)).
func dst1Weights(n int, inverse bool) *mat.Dense {
	w := mat.NewDense(n, n, nil)
	s := 2.0
	if inverse {
		s = 1 / float64(n+1)
	}
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			w.Set(k, j, s*math.Sin(math.Pi*float64(k+1)*float64(j+1)/float64(n+1)))
		}
	}
	return w
}

// dst2Weights: y_k = 2 sum_j x_j sin(pi (k+1)(j+1/2) / n)
func dst2Weights(n int) *mat.Dense {
	w := mat.NewDense(n, n, nil)
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			w.Set(k, j, 2*math.Sin(math.Pi/float64(n)*float64(k+1)*(float64(j)+0.5)))
		}
	}
	return w
}

// dst3Weights: the inverse of dst2Weights,
// x_j = ((-1)^j y_{n-1} + 2 sum_{k<n-1} y_k sin(pi (k+1)(j+1/2) / n)) / (2n)
func dst3Weights(n int) *mat.Dense {
	w := mat.NewDense(n, n, nil)
	s := 1 / (2 * float64(n))
	for j := 0; j < n; j++ {
		sign := 1.0
		if j%2 == 1 {
			sign = -1.0
		}
		w.Set(j, n-1, sign*s)
		for k := 0; k < n-1; k++ {
			w.Set(j, k, 2*s*math.Sin(math.Pi/float64(n)*float64(k+1)*(float64(j)+0.5)))
		}
	}
	return w
}

// FFTN applies the forward complex FFT along the given axes.
func FFTN(u *tensor.Dense[complex128], axes []int) *tensor.Dense[complex128] {
	all := make([]bool, u.NDims())
	for i := range all {
		all[i] = true
	}
	return New(all, nil).Forward(u, axes)
}

// IFFTN applies the normalized inverse complex FFT along the given axes.
func IFFTN(u *tensor.Dense[complex128], axes []int) *tensor.Dense[complex128] {
	all := make([]bool, u.NDims())
	for i := range all {
		all[i] = true
	}
	return New(all, nil).Backward(u, axes)
}
