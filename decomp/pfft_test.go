package decomp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/spectral"
	"github.com/notargets/gospectral/tensor"
)

// globalField builds the same pseudo-random global array on every rank.
func globalField(nGlobal []int, seed int64) *tensor.Dense[complex128] {
	rng := rand.New(rand.NewSource(seed))
	g := tensor.NewDense[complex128](nGlobal...)
	data := g.Data()
	for i := range data {
		data[i] = complex(rng.Float64()-0.5, 0)
	}
	return g
}

// localSlice copies this rank's tile, halo included, out of the global
// array with periodic wrap.
func localSlice(d *DomainDecomposition, g *tensor.Dense[complex128]) *tensor.Dense[complex128] {
	sd := d.MySubdomain
	u := tensor.NewDense[complex128](sd.Shape...)
	idx := make([]int, d.NDims)
	var fill func(axis int)
	fill = func(axis int) {
		if axis == d.NDims {
			gidx := make([]int, d.NDims)
			for i, v := range idx {
				gidx[i] = wrap(sd.Position[i]+v-d.Halo, d.NGlobal[i])
			}
			u.Set(g.At(gidx...), idx...)
			return
		}
		for i := 0; i < sd.Shape[axis]; i++ {
			idx[axis] = i
			fill(axis + 1)
		}
	}
	fill(0)
	return u
}

func TestParallelFFTMatchesSerial(t *testing.T) {
	nGlobal := []int{32, 32, 32}
	w := comm.NewWorld(4)
	w.Run(func(c *comm.Comm) {
		d, err := New(c, nGlobal, 2, []int{0, 1}, nil)
		if !assert.NoError(t, err) {
			return
		}
		pfft, err := NewParallelFFT(d, nil, 0)
		if !assert.NoError(t, err) {
			return
		}

		g := globalField(nGlobal, 3)
		u := localSlice(d, g)
		uHat := pfft.Forward(u)

		// every rank's spectral tile must match the serial transform of
		// the assembled global array on its owned slice
		want := spectral.FFTN(g, nil).Section(pfft.DomainOut.MySubdomain.GlobalSlice)
		got := uHat.Section(pfft.DomainOut.MySubdomain.InnerSlice)
		assert.True(t, tensor.EqualApprox(want, got, 1.e-10))
	})
}

func TestParallelFFTRoundTrip(t *testing.T) {
	nGlobal := []int{32, 32, 32}
	w := comm.NewWorld(4)
	w.Run(func(c *comm.Comm) {
		d, err := New(c, nGlobal, 1, []int{0}, nil)
		if !assert.NoError(t, err) {
			return
		}
		pfft, err := NewParallelFFT(d, nil, 0)
		if !assert.NoError(t, err) {
			return
		}

		u := localSlice(d, globalField(nGlobal, 5))
		v := pfft.Backward(pfft.Forward(u))
		assert.Equal(t, d.MySubdomain.Shape, v.Shape())
		assert.True(t, tensor.EqualApprox(u, v, 1.e-10))
	})
}

func TestParallelFFTMixedTransformsRoundTrip(t *testing.T) {
	// FFT along the periodic axis, cosine and sine transforms along the
	// non-periodic axes, threaded through the apply hook.
	nGlobal := []int{16, 16, 16}
	w := comm.NewWorld(4)
	w.Run(func(c *comm.Comm) {
		d, err := New(c, nGlobal, 1, []int{0}, nil)
		if !assert.NoError(t, err) {
			return
		}
		pfft, err := NewParallelFFT(d, nil, 0)
		if !assert.NoError(t, err) {
			return
		}

		kern := spectral.New([]bool{true, false, false},
			[]spectral.TransformType{0, spectral.DCT2, spectral.DST2})
		u := localSlice(d, globalField(nGlobal, 9))
		uHat := pfft.ForwardApply(u, kern.Forward)
		v := pfft.BackwardApply(uHat, kern.Backward)
		assert.True(t, tensor.EqualApprox(u, v, 1.e-10))
	})
}

func TestParallelFFTForcesRedistribution(t *testing.T) {
	// With both input shared axes occupied, the output decomposition must
	// pick different shared axes, and its process grid must still use
	// every rank.
	w := comm.NewWorld(4)
	w.Run(func(c *comm.Comm) {
		d, err := New(c, []int{128, 128, 128}, 0, []int{0, 1}, nil)
		if !assert.NoError(t, err) {
			return
		}
		pfft, err := NewParallelFFT(d, nil, 0)
		if !assert.NoError(t, err) {
			return
		}
		assert.NotEqual(t, []int{0, 1}, pfft.DomainOut.SharedAxes)
		n := 1
		for _, p := range pfft.DomainOut.NProcs {
			n *= p
		}
		assert.Equal(t, 4, n)
	})
}

func TestParallelFFTConfigErrors(t *testing.T) {
	w := comm.NewWorld(4)
	w.Run(func(c *comm.Comm) {
		// no shared axis on the input
		d, err := New(c, []int{16, 16}, 0, nil, nil)
		if !assert.NoError(t, err) {
			return
		}
		if len(d.SharedAxes) == 0 {
			_, err = NewParallelFFT(d, nil, 0)
			assert.Error(t, err)
		}

		// more output shared axes than the input provides
		d2, err := New(c, []int{16, 16, 16}, 0, []int{0}, nil)
		if !assert.NoError(t, err) {
			return
		}
		_, err = NewParallelFFT(d2, []int{1, 2}, 0)
		assert.Error(t, err)
	})
}

func TestParallelFFTEachAxisTransformedOnce(t *testing.T) {
	w := comm.NewWorld(4)
	w.Run(func(c *comm.Comm) {
		d, err := New(c, []int{16, 16, 16, 16}, 0, []int{0}, nil)
		if !assert.NoError(t, err) {
			return
		}
		pfft, err := NewParallelFFT(d, nil, 0)
		if !assert.NoError(t, err) {
			return
		}
		seen := make(map[int]int)
		for _, axes := range pfft.fftAxes {
			for _, ax := range axes {
				seen[ax]++
			}
		}
		for ax := 0; ax < 4; ax++ {
			assert.Equal(t, 1, seen[ax], "axis %d", ax)
		}
	})
}
