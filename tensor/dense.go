// Package tensor implements dense n-dimensional arrays of float64 or
// complex128 values with the block-slicing operations the distributed grid
// layer is built on: contiguous extraction and insertion of axis-aligned
// sub-blocks, block copies between arrays, and iteration over 1-D lines
// along an axis for local transforms.
package tensor

import "fmt"

// Scalar is the element type constraint for Dense arrays.
type Scalar interface {
	~float64 | ~complex128
}

// Range is a half-open index interval [Lo,Hi) along one axis. A Range with
// Hi <= Lo selects nothing.
type Range struct {
	Lo, Hi int
}

func (r Range) Len() int {
	if r.Hi <= r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// Full selects an entire axis of extent n.
func Full(n int) Range { return Range{0, n} }

// ShapeOf returns the per-axis lengths selected by rs.
func ShapeOf(rs []Range) []int {
	shape := make([]int, len(rs))
	for i, r := range rs {
		shape[i] = r.Len()
	}
	return shape
}

// NumEl returns the number of elements in a shape.
func NumEl(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Dense is a contiguous row-major n-dimensional array.
type Dense[T Scalar] struct {
	shape   []int
	strides []int
	data    []T
}

func NewDense[T Scalar](shape ...int) *Dense[T] {
	for ax, s := range shape {
		if s < 0 {
			panic(fmt.Sprintf("axis %d: negative extent %d", ax, s))
		}
	}
	a := &Dense[T]{
		shape:   append([]int(nil), shape...),
		strides: make([]int, len(shape)),
		data:    make([]T, NumEl(shape)),
	}
	stride := 1
	for ax := len(shape) - 1; ax >= 0; ax-- {
		a.strides[ax] = stride
		stride *= shape[ax]
	}
	return a
}

func (a *Dense[T]) Shape() []int { return a.shape }
func (a *Dense[T]) NDims() int   { return len(a.shape) }
func (a *Dense[T]) Len() int     { return len(a.data) }
func (a *Dense[T]) Data() []T    { return a.data }

func (a *Dense[T]) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("index rank %d != array rank %d", len(idx), len(a.shape)))
	}
	off := 0
	for ax, i := range idx {
		if i < 0 || i >= a.shape[ax] {
			panic(fmt.Sprintf("axis %d: index %d out of range [0,%d)", ax, i, a.shape[ax]))
		}
		off += i * a.strides[ax]
	}
	return off
}

func (a *Dense[T]) At(idx ...int) T { return a.data[a.offset(idx)] }

func (a *Dense[T]) Set(v T, idx ...int) { a.data[a.offset(idx)] = v }

func (a *Dense[T]) Fill(v T) {
	for i := range a.data {
		a.data[i] = v
	}
}

func (a *Dense[T]) Clone() *Dense[T] {
	b := NewDense[T](a.shape...)
	copy(b.data, a.data)
	return b
}

// FullRange selects the entire array.
func (a *Dense[T]) FullRange() []Range {
	rs := make([]Range, len(a.shape))
	for ax, s := range a.shape {
		rs[ax] = Full(s)
	}
	return rs
}

func (a *Dense[T]) checkRanges(rs []Range) {
	if len(rs) != len(a.shape) {
		panic(fmt.Sprintf("range rank %d != array rank %d", len(rs), len(a.shape)))
	}
	for ax, r := range rs {
		if r.Len() == 0 {
			continue
		}
		if r.Lo < 0 || r.Hi > a.shape[ax] {
			panic(fmt.Sprintf("axis %d: range [%d,%d) outside extent %d",
				ax, r.Lo, r.Hi, a.shape[ax]))
		}
	}
}

// blockRows calls fn with the flat offset of the first element of every
// contiguous run along the last axis of the block selected by rs, in
// row-major order. rowLen is the run length.
func (a *Dense[T]) blockRows(rs []Range, fn func(off int)) (rowLen int) {
	a.checkRanges(rs)
	nd := len(rs)
	for _, r := range rs {
		if r.Len() == 0 {
			return 0
		}
	}
	rowLen = rs[nd-1].Len()
	idx := make([]int, nd)
	off := 0
	for ax, r := range rs {
		idx[ax] = r.Lo
		off += r.Lo * a.strides[ax]
	}
	for {
		fn(off)
		// advance the odometer over the outer axes
		ax := nd - 2
		for ax >= 0 {
			idx[ax]++
			off += a.strides[ax]
			if idx[ax] < rs[ax].Hi {
				break
			}
			off -= (idx[ax] - rs[ax].Lo) * a.strides[ax]
			idx[ax] = rs[ax].Lo
			ax--
		}
		if ax < 0 {
			return
		}
	}
}

// Extract copies the block selected by rs into a new contiguous buffer.
// Empty ranges yield an empty buffer.
func (a *Dense[T]) Extract(rs []Range) []T {
	buf := make([]T, NumEl(ShapeOf(rs)))
	if len(buf) == 0 {
		return buf
	}
	k := 0
	rowLen := rs[len(rs)-1].Len()
	a.blockRows(rs, func(off int) {
		copy(buf[k:k+rowLen], a.data[off:off+rowLen])
		k += rowLen
	})
	return buf
}

// Insert copies a contiguous buffer produced by Extract (or a matching
// remote block) into the block selected by rs.
func (a *Dense[T]) Insert(rs []Range, buf []T) {
	n := NumEl(ShapeOf(rs))
	if n != len(buf) {
		panic(fmt.Sprintf("buffer length %d != block size %d", len(buf), n))
	}
	if n == 0 {
		return
	}
	k := 0
	rowLen := rs[len(rs)-1].Len()
	a.blockRows(rs, func(off int) {
		copy(a.data[off:off+rowLen], buf[k:k+rowLen])
		k += rowLen
	})
}

// FillRange sets every element of the block selected by rs to v.
func (a *Dense[T]) FillRange(rs []Range, v T) {
	if NumEl(ShapeOf(rs)) == 0 {
		return
	}
	rowLen := rs[len(rs)-1].Len()
	a.blockRows(rs, func(off int) {
		for i := off; i < off+rowLen; i++ {
			a.data[i] = v
		}
	})
}

// Section copies the block selected by rs into a new array of the block's
// shape.
func (a *Dense[T]) Section(rs []Range) *Dense[T] {
	b := NewDense[T](ShapeOf(rs)...)
	copy(b.data, a.Extract(rs))
	return b
}

// Copy copies the block srcR of src into the block dstR of dst. The two
// blocks must have the same shape.
func Copy[T Scalar](dst *Dense[T], dstR []Range, src *Dense[T], srcR []Range) {
	ds, ss := ShapeOf(dstR), ShapeOf(srcR)
	for ax := range ds {
		if ds[ax] != ss[ax] {
			panic(fmt.Sprintf("axis %d: destination extent %d != source extent %d",
				ax, ds[ax], ss[ax]))
		}
	}
	dst.Insert(dstR, src.Extract(srcR))
}

// Lines calls fn once per 1-D line along axis. The line contents are
// gathered into a scratch slice before each call and scattered back after,
// so fn may transform the line in place regardless of the axis stride.
func Lines[T Scalar](a *Dense[T], axis int, fn func(line []T)) {
	n := a.shape[axis]
	if n == 0 || a.Len() == 0 {
		return
	}
	stride := a.strides[axis]
	line := make([]T, n)
	rs := a.FullRange()
	rs[axis] = Range{0, 1}
	forEachOffset(a, rs, func(off int) {
		for i := 0; i < n; i++ {
			line[i] = a.data[off+i*stride]
		}
		fn(line)
		for i := 0; i < n; i++ {
			a.data[off+i*stride] = line[i]
		}
	})
}

// forEachOffset visits the flat offset of every element of the block
// selected by rs, in row-major order.
func forEachOffset[T Scalar](a *Dense[T], rs []Range, fn func(off int)) {
	a.checkRanges(rs)
	for _, r := range rs {
		if r.Len() == 0 {
			return
		}
	}
	nd := len(rs)
	idx := make([]int, nd)
	off := 0
	for ax, r := range rs {
		idx[ax] = r.Lo
		off += r.Lo * a.strides[ax]
	}
	for {
		fn(off)
		ax := nd - 1
		for ax >= 0 {
			idx[ax]++
			off += a.strides[ax]
			if idx[ax] < rs[ax].Hi {
				break
			}
			off -= (idx[ax] - rs[ax].Lo) * a.strides[ax]
			idx[ax] = rs[ax].Lo
			ax--
		}
		if ax < 0 {
			return
		}
	}
}
