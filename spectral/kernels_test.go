package spectral

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gospectral/tensor"
)

func randComplex(shape []int, seed int64) *tensor.Dense[complex128] {
	rng := rand.New(rand.NewSource(seed))
	u := tensor.NewDense[complex128](shape...)
	d := u.Data()
	for i := range d {
		d[i] = complex(rng.Float64()-0.5, rng.Float64()-0.5)
	}
	return u
}

func maxAbsDiff(a, b *tensor.Dense[complex128]) float64 {
	var m float64
	da, db := a.Data(), b.Data()
	for i := range da {
		if d := cmplx.Abs(da[i] - db[i]); d > m {
			m = d
		}
	}
	return m
}

func TestFFTMatchesDFT(t *testing.T) {
	n := 16
	u := randComplex([]int{n}, 1)
	got := FFTN(u, nil)
	for k := 0; k < n; k++ {
		var want complex128
		for j := 0; j < n; j++ {
			phase := -2 * math.Pi * float64(k) * float64(j) / float64(n)
			want += u.Data()[j] * cmplx.Exp(complex(0, phase))
		}
		assert.InDelta(t, real(want), real(got.Data()[k]), 1.e-10)
		assert.InDelta(t, imag(want), imag(got.Data()[k]), 1.e-10)
	}
}

func TestFFTRoundTrip(t *testing.T) {
	u := randComplex([]int{8, 12, 5}, 2)
	back := IFFTN(FFTN(u, nil), nil)
	assert.Less(t, maxAbsDiff(u, back), 1.e-12)
}

func TestFFTPartialAxes(t *testing.T) {
	u := randComplex([]int{6, 7, 8}, 3)
	// Transforming one axis at a time must agree with transforming both.
	a := FFTN(FFTN(u, []int{0}), []int{2})
	b := FFTN(u, []int{0, 2})
	assert.Less(t, maxAbsDiff(a, b), 1.e-11)
}

func TestNonPeriodicRoundTrips(t *testing.T) {
	for _, tt := range []TransformType{DCT2, DST1, DST2} {
		for _, n := range []int{4, 9, 16} {
			tr := New([]bool{false}, []TransformType{tt})
			u := randComplex([]int{n}, int64(n))
			back := tr.Backward(tr.Forward(u, nil), nil)
			assert.Lessf(t, maxAbsDiff(u, back), 1.e-11,
				"%v n=%d", tt, n)
		}
	}
}

func TestMixedAxesRoundTrip(t *testing.T) {
	tr := New([]bool{true, false, false},
		[]TransformType{0, DCT2, DST2})
	u := randComplex([]int{8, 6, 10}, 4)
	back := tr.Backward(tr.Forward(u, nil), nil)
	assert.Less(t, maxAbsDiff(u, back), 1.e-11)
}

func TestDCT2EvenSymmetry(t *testing.T) {
	// A constant field has all of its DCT2 energy in mode zero.
	n := 8
	tr := New([]bool{false}, nil)
	u := tensor.NewDense[complex128](n)
	u.Fill(1)
	f := tr.Forward(u, nil)
	assert.InDelta(t, 2*float64(n), real(f.Data()[0]), 1.e-12)
	for k := 1; k < n; k++ {
		assert.InDelta(t, 0, cmplx.Abs(f.Data()[k]), 1.e-12)
	}
}

func TestDST1SingleMode(t *testing.T) {
	// sin(pi (j+1)/(n+1)) is the first DST1 basis vector.
	n := 7
	tr := New([]bool{false}, []TransformType{DST1})
	u := tensor.NewDense[complex128](n)
	for j := 0; j < n; j++ {
		u.Data()[j] = complex(math.Sin(math.Pi*float64(j+1)/float64(n+1)), 0)
	}
	f := tr.Forward(u, nil)
	assert.InDelta(t, float64(n+1), real(f.Data()[0]), 1.e-12)
	for k := 1; k < n; k++ {
		assert.InDelta(t, 0, cmplx.Abs(f.Data()[k]), 1.e-10)
	}
}

func TestWithTypesSharesCachesButNotTypes(t *testing.T) {
	tr := New([]bool{false, false}, nil)
	tr2 := tr.WithTypes([]TransformType{DST2, DST1})
	u := randComplex([]int{5, 6}, 5)
	back := tr2.Backward(tr2.Forward(u, nil), nil)
	assert.Less(t, maxAbsDiff(u, back), 1.e-11)
	// The original still transforms as DCT2.
	back = tr.Backward(tr.Forward(u, nil), nil)
	assert.Less(t, maxAbsDiff(u, back), 1.e-11)
}

func TestFFTFreq(t *testing.T) {
	f := FFTFreq(8, 1)
	want := []float64{0, 0.125, 0.25, 0.375, -0.5, -0.375, -0.25, -0.125}
	require.Equal(t, len(want), len(f))
	for i := range want {
		assert.InDelta(t, want[i], f[i], 1.e-15)
	}
	f = FFTFreq(5, 2)
	want = []float64{0, 0.1, 0.2, -0.2, -0.1}
	for i := range want {
		assert.InDelta(t, want[i], f[i], 1.e-15)
	}
}

func TestFreqPeriodicAndRamp(t *testing.T) {
	tr := New([]bool{true, false}, nil)
	dx := []float64{0.5, 0.25}
	ks := tr.Freq([]int{4, 4}, dx)
	// Periodic: 2*pi*[0, 1/2, -1, -1/2]
	assert.InDelta(t, 0, ks[0][0], 1.e-14)
	assert.InDelta(t, math.Pi, ks[0][1], 1.e-12)
	assert.InDelta(t, -2*math.Pi, ks[0][2], 1.e-12)
	// Ramp: i*pi/(n*dx), strictly increasing from zero.
	for i, k := range ks[1] {
		assert.InDelta(t, float64(i)*math.Pi, k, 1.e-12)
	}
}
