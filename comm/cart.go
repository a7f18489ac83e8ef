package comm

import (
	"sort"

	"github.com/pkg/errors"
)

// ComputeDims factors nnodes ranks over the axes of dims. Entries of dims
// that are positive are pinned; zero entries are free and are filled with a
// factorization of the remaining rank count that is as balanced as possible,
// assigned to the free axes in non-increasing order. This mirrors the
// behavior of MPI's Compute_dims.
func ComputeDims(nnodes int, dims []int) ([]int, error) {
	if nnodes < 1 {
		return nil, errors.Errorf("node count %d must be positive", nnodes)
	}
	out := make([]int, len(dims))
	copy(out, dims)
	pinned := 1
	var free []int
	for ax, d := range out {
		switch {
		case d < 0:
			return nil, errors.Errorf("axis %d: process count %d must be non-negative", ax, d)
		case d == 0:
			free = append(free, ax)
		default:
			pinned *= d
		}
	}
	if nnodes%pinned != 0 {
		return nil, errors.Errorf(
			"cannot distribute %d ranks over pinned process counts %v", nnodes, dims)
	}
	rem := nnodes / pinned
	if len(free) == 0 {
		if rem != 1 {
			return nil, errors.Errorf(
				"pinned process counts %v use %d of %d ranks", dims, pinned, nnodes)
		}
		return out, nil
	}
	vals := balancedFactors(rem, len(free))
	for i, ax := range free {
		out[ax] = vals[i]
	}
	return out, nil
}

// balancedFactors splits n into k factors that are as equal as possible,
// returned in non-increasing order.
func balancedFactors(n, k int) []int {
	vals := make([]int, k)
	for i := range vals {
		vals[i] = 1
	}
	for _, p := range primeFactorsDesc(n) {
		small := 0
		for i := 1; i < k; i++ {
			if vals[i] < vals[small] {
				small = i
			}
		}
		vals[small] *= p
	}
	sort.Sort(sort.Reverse(sort.IntSlice(vals)))
	return vals
}

func primeFactorsDesc(n int) (factors []int) {
	for p := 2; p*p <= n; p++ {
		for n%p == 0 {
			factors = append(factors, p)
			n /= p
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(factors)))
	return
}

// CartComm is a communicator with a periodic cartesian process-grid
// topology laid over the World's ranks in row-major order.
type CartComm struct {
	*Comm
	dims   []int
	coords []int // this rank's position in the process grid
}

func NewCart(c *Comm, dims []int) (*CartComm, error) {
	n := 1
	for _, d := range dims {
		n *= d
	}
	if n != c.Size() {
		return nil, errors.Errorf(
			"process grid %v requires %d ranks, world has %d", dims, n, c.Size())
	}
	cc := &CartComm{
		Comm: c,
		dims: append([]int(nil), dims...),
	}
	cc.coords = cc.Coords(c.Rank())
	return cc, nil
}

func (cc *CartComm) Dims() []int     { return cc.dims }
func (cc *CartComm) MyCoords() []int { return cc.coords }

// Coords decodes a rank into process-grid coordinates (row-major, last axis
// fastest).
func (cc *CartComm) Coords(rank int) []int {
	coords := make([]int, len(cc.dims))
	for ax := len(cc.dims) - 1; ax >= 0; ax-- {
		coords[ax] = rank % cc.dims[ax]
		rank /= cc.dims[ax]
	}
	return coords
}

// RankAt encodes process-grid coordinates into a rank. Coordinates wrap
// periodically.
func (cc *CartComm) RankAt(coords []int) int {
	rank := 0
	for ax, c := range coords {
		d := cc.dims[ax]
		c = ((c % d) + d) % d
		rank = rank*d + c
	}
	return rank
}

// Shift returns the ranks of the previous and next neighbor along axis in
// the periodic ring containing this rank.
func (cc *CartComm) Shift(axis int) (prev, next int) {
	c := append([]int(nil), cc.coords...)
	c[axis] = cc.coords[axis] - 1
	prev = cc.RankAt(c)
	c[axis] = cc.coords[axis] + 1
	next = cc.RankAt(c)
	return
}

// Sub returns this rank's handle on the ring of ranks along one axis of the
// process grid, the degenerate per-axis sub-communicator used for halo
// exchange.
func (cc *CartComm) Sub(axis int) *AxisComm {
	prev, next := cc.Shift(axis)
	return &AxisComm{cart: cc, axis: axis, prev: prev, next: next}
}

// AxisComm restricts communication to the periodic ring along one
// process-grid axis.
type AxisComm struct {
	cart *CartComm
	axis int
	prev int
	next int
}

func (a *AxisComm) Prev() int { return a.prev }
func (a *AxisComm) Next() int { return a.next }

// Tags on an axis ring are namespaced by the axis so that exchanges on
// different axes of the same cartesian communicator can never match each
// other's messages.
func (a *AxisComm) ringTag(tag int) int {
	return a.axis*1000 + tag
}

func (a *AxisComm) IsendNext(tag int, data any) *Request {
	return a.cart.Isend(a.next, a.ringTag(tag), data)
}

func (a *AxisComm) IsendPrev(tag int, data any) *Request {
	return a.cart.Isend(a.prev, a.ringTag(tag), data)
}

func (a *AxisComm) IrecvNext(tag int) *Request {
	return a.cart.Irecv(a.next, a.ringTag(tag))
}

func (a *AxisComm) IrecvPrev(tag int) *Request {
	return a.cart.Irecv(a.prev, a.ringTag(tag))
}
