// Package decomp decomposes a global n-dimensional grid across the ranks of
// a cartesian process grid and moves data between decompositions: periodic
// halo exchange within one layout, all-to-all transposes between layouts,
// and a distributed spectral transform composed from both.
package decomp

import (
	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/tensor"
)

// Subdomain describes one rank's tile of the global index space: its place
// in the process grid, its extent with and without halo, and the affine map
// between its local indices and global indices. Subdomains are immutable
// after construction.
type Subdomain struct {
	NGlobal []int
	Halo    int
	Rank    int
	Coord   []int

	// InnerShape excludes the halo; Shape adds 2*Halo per axis.
	InnerShape []int
	Shape      []int

	// Position is the global index of the first inner element.
	Position []int
	// GlobalSlice is the halo-exclusive extent in global coordinates.
	GlobalSlice []tensor.Range
	// InnerSlice selects the halo-exclusive region of a local array.
	InnerSlice []tensor.Range

	leftEdge  []bool
	rightEdge []bool
}

// NewSubdomain computes the tile of the given rank under the cartesian
// topology. Each rank gets floor(nGlobal/nProcs) points per axis; the last
// rank along an axis absorbs the remainder, so the tiles cover the global
// extent exactly.
func NewSubdomain(rank int, cart *comm.CartComm, nGlobal []int, halo int) *Subdomain {
	nDims := len(nGlobal)
	coord := cart.Coords(rank)
	nProcs := cart.Dims()

	s := &Subdomain{
		NGlobal:     append([]int(nil), nGlobal...),
		Halo:        halo,
		Rank:        rank,
		Coord:       coord,
		InnerShape:  make([]int, nDims),
		Shape:       make([]int, nDims),
		Position:    make([]int, nDims),
		GlobalSlice: make([]tensor.Range, nDims),
		InnerSlice:  make([]tensor.Range, nDims),
		leftEdge:    make([]bool, nDims),
		rightEdge:   make([]bool, nDims),
	}
	for i := 0; i < nDims; i++ {
		base := nGlobal[i] / nProcs[i]
		inner := base
		if coord[i] == nProcs[i]-1 {
			inner += nGlobal[i] % nProcs[i]
		}
		s.InnerShape[i] = inner
		s.Shape[i] = inner + 2*halo
		s.Position[i] = coord[i] * base
		s.GlobalSlice[i] = tensor.Range{Lo: s.Position[i], Hi: s.Position[i] + inner}
		s.InnerSlice[i] = tensor.Range{Lo: halo, Hi: halo + inner}
		s.leftEdge[i] = coord[i] == 0
		s.rightEdge[i] = coord[i] == nProcs[i]-1
	}
	return s
}

// IsLeftEdge reports whether this tile touches the global lower boundary
// along axis.
func (s *Subdomain) IsLeftEdge(axis int) bool { return s.leftEdge[axis] }

// IsRightEdge reports whether this tile touches the global upper boundary
// along axis.
func (s *Subdomain) IsRightEdge(axis int) bool { return s.rightEdge[axis] }

// HasOverlap reports whether the halo-exclusive extents of two tiles
// intersect in global index space. Tiles of the same decomposition never
// overlap; tiles of different decompositions generally do.
func (s *Subdomain) HasOverlap(other *Subdomain) bool {
	for i, me := range s.GlobalSlice {
		you := other.GlobalSlice[i]
		if me.Lo >= you.Hi || you.Lo >= me.Hi {
			return false
		}
	}
	return true
}

// OverlapSlice returns the intersection of the two tiles' global extents,
// mapped into this tile's local index space. When there is no overlap the
// returned ranges are empty (Hi <= Lo); it never fails.
func (s *Subdomain) OverlapSlice(other *Subdomain) []tensor.Range {
	overlap := make([]tensor.Range, len(s.GlobalSlice))
	for i, me := range s.GlobalSlice {
		you := other.GlobalSlice[i]
		overlap[i] = tensor.Range{Lo: max(me.Lo, you.Lo), Hi: min(me.Hi, you.Hi)}
	}
	return s.G2L(overlap)
}

// G2L maps ranges from global to local coordinates, local = global -
// position + halo.
func (s *Subdomain) G2L(global []tensor.Range) []tensor.Range {
	local := make([]tensor.Range, len(global))
	for i, g := range global {
		d := s.Halo - s.Position[i]
		local[i] = tensor.Range{Lo: g.Lo + d, Hi: g.Hi + d}
	}
	return local
}

// L2G is the inverse of G2L.
func (s *Subdomain) L2G(local []tensor.Range) []tensor.Range {
	global := make([]tensor.Range, len(local))
	for i, l := range local {
		d := s.Position[i] - s.Halo
		global[i] = tensor.Range{Lo: l.Lo + d, Hi: l.Hi + d}
	}
	return global
}
