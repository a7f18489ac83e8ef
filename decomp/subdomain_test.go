package decomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/tensor"
)

func mustCart(t *testing.T, size int, dims []int) *comm.CartComm {
	t.Helper()
	w := comm.NewWorld(size)
	cart, err := comm.NewCart(w.Comm(0), dims)
	require.NoError(t, err)
	return cart
}

func TestSubdomainLayout(t *testing.T) {
	cart := mustCart(t, 6, []int{3, 2})
	s := NewSubdomain(1, cart, []int{128, 128}, 1)
	assert.Equal(t, []int{0, 1}, s.Coord)
	assert.Equal(t, []int{42, 64}, s.InnerShape)
	assert.Equal(t, []int{44, 66}, s.Shape)
	assert.Equal(t, []int{0, 64}, s.Position)
	assert.Equal(t, []tensor.Range{{Lo: 0, Hi: 42}, {Lo: 64, Hi: 128}}, s.GlobalSlice)
	assert.Equal(t, []tensor.Range{{Lo: 1, Hi: 43}, {Lo: 1, Hi: 65}}, s.InnerSlice)

	assert.True(t, s.IsLeftEdge(0))
	assert.False(t, s.IsRightEdge(0))
	assert.False(t, s.IsLeftEdge(1))
	assert.True(t, s.IsRightEdge(1))
}

func TestSubdomainRemainderOnLastRank(t *testing.T) {
	// 102 points over 10 ranks: everyone gets 10, the last gets 12.
	cart := mustCart(t, 10, []int{10})
	for rank := 0; rank < 10; rank++ {
		s := NewSubdomain(rank, cart, []int{102}, 0)
		want := 10
		if rank == 9 {
			want = 12
		}
		assert.Equal(t, []int{want}, s.InnerShape, "rank %d", rank)
	}
}

func TestSubdomainsTileGlobal(t *testing.T) {
	cart := mustCart(t, 6, []int{3, 2})
	nGlobal := []int{100, 37}
	covered := tensor.NewDense[float64](nGlobal...)
	for rank := 0; rank < 6; rank++ {
		s := NewSubdomain(rank, cart, nGlobal, 2)
		for gx := s.GlobalSlice[0].Lo; gx < s.GlobalSlice[0].Hi; gx++ {
			for gy := s.GlobalSlice[1].Lo; gy < s.GlobalSlice[1].Hi; gy++ {
				covered.Set(covered.At(gx, gy)+1, gx, gy)
			}
		}
	}
	for _, v := range covered.Data() {
		assert.Equal(t, 1.0, v)
	}
}

func TestHasOverlapSymmetric(t *testing.T) {
	cartA := mustCart(t, 2, []int{2, 1})
	cartB := mustCart(t, 2, []int{1, 2})
	nGlobal := []int{128, 128}
	a0 := NewSubdomain(0, cartA, nGlobal, 1)
	a1 := NewSubdomain(1, cartA, nGlobal, 1)
	b0 := NewSubdomain(0, cartB, nGlobal, 1)

	// tiles of the same decomposition never overlap
	assert.False(t, a0.HasOverlap(a1))
	assert.False(t, a1.HasOverlap(a0))
	// tiles of different decompositions do, symmetrically
	assert.True(t, a0.HasOverlap(b0))
	assert.True(t, b0.HasOverlap(a0))
}

func TestOverlapSlice(t *testing.T) {
	cartA := mustCart(t, 2, []int{2, 1})
	cartB := mustCart(t, 2, []int{1, 2})
	nGlobal := []int{128, 128}
	a := NewSubdomain(0, cartA, nGlobal, 1)
	b := NewSubdomain(0, cartB, nGlobal, 1)

	// a owns [0:64, 0:128], b owns [0:128, 0:64]; the overlap in a's local
	// coordinates is shifted by the halo.
	assert.Equal(t, []tensor.Range{{Lo: 1, Hi: 65}, {Lo: 1, Hi: 65}}, a.OverlapSlice(b))

	// disjoint tiles yield empty ranges, never an error
	a1 := NewSubdomain(1, cartA, nGlobal, 1)
	s := a1.OverlapSlice(a)
	assert.LessOrEqual(t, s[0].Hi, s[0].Lo)
}

func TestG2LRoundTrip(t *testing.T) {
	cart := mustCart(t, 6, []int{3, 2})
	s := NewSubdomain(4, cart, []int{128, 128}, 2)
	g := []tensor.Range{{Lo: 25, Hi: 50}, {Lo: 20, Hi: 120}}
	assert.Equal(t, g, s.L2G(s.G2L(g)))
	l := []tensor.Range{{Lo: 10, Hi: 20}, {Lo: 20, Hi: 30}}
	assert.Equal(t, l, s.G2L(s.L2G(l)))
}
