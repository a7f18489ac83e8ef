package spectral

import "math"

// FFTFreq returns the discrete sample frequencies for an n-point FFT with
// sample spacing d, in the standard order: non-negative frequencies first,
// then the negative frequencies.
func FFTFreq(n int, d float64) []float64 {
	f := make([]float64, n)
	scale := 1 / (float64(n) * d)
	half := (n + 1) / 2
	for i := 0; i < half; i++ {
		f[i] = float64(i) * scale
	}
	for i := half; i < n; i++ {
		f[i] = float64(i-n) * scale
	}
	return f
}

// Freq returns the angular wavenumbers along each axis of a grid with the
// given extents and spacings. Periodic axes carry the full signed FFT
// spectrum 2*pi*FFTFreq; non-periodic axes carry the one-sided ramp
// k_i = i*pi/(n*dx) of the cosine and sine transforms.
func (t *Transform) Freq(shape []int, dx []float64) [][]float64 {
	ks := make([][]float64, len(shape))
	for axis, n := range shape {
		k := make([]float64, n)
		if t.periodic[axis] {
			for i, f := range FFTFreq(n, dx[axis]) {
				k[i] = 2 * math.Pi * f
			}
		} else {
			scale := math.Pi / (float64(n) * dx[axis])
			for i := range k {
				k[i] = float64(i) * scale
			}
		}
		ks[axis] = k
	}
	return ks
}
