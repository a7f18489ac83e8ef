package grid

import "github.com/notargets/gospectral/spectral"

// AxisPosition places a field at cell centers or cell faces along one axis
// of a staggered grid.
type AxisPosition int

const (
	Center AxisPosition = iota
	Face
)

// Shift returns the other staggered position.
func (p AxisPosition) Shift() AxisPosition {
	if p == Center {
		return Face
	}
	return Center
}

func (p AxisPosition) String() string {
	if p == Center {
		return "center"
	}
	return "face"
}

// Position is a field's staggered placement, one entry per axis.
type Position []AxisPosition

// CellCenter returns the all-centers position for an nDims grid.
func CellCenter(nDims int) Position {
	return make(Position, nDims)
}

// Shift returns a copy with the placement along axis flipped.
func (p Position) Shift(axis int) Position {
	q := append(Position(nil), p...)
	q[axis] = q[axis].Shift()
	return q
}

// BCType is the boundary condition of a field along a non-periodic axis.
type BCType int

const (
	// Neumann: zero normal derivative at the boundary.
	Neumann BCType = iota
	// Dirichlet: the field vanishes at the boundary.
	Dirichlet
)

func (b BCType) String() string {
	if b == Neumann {
		return "neumann"
	}
	return "dirichlet"
}

// TransformTypeFor maps a field's staggered position and boundary condition
// along a non-periodic axis to the sine or cosine transform with the
// matching implied symmetry.
func TransformTypeFor(pos AxisPosition, bc BCType) spectral.TransformType {
	if bc == Dirichlet {
		if pos == Face {
			return spectral.DST1
		}
		return spectral.DST2
	}
	return spectral.DCT2
}

// TransformTypes maps a field's full position and boundary conditions to
// per-axis transform types; entries for periodic axes are ignored by the
// transform.
func TransformTypes(pos Position, bcs []BCType) []spectral.TransformType {
	types := make([]spectral.TransformType, len(pos))
	for i := range pos {
		types[i] = TransformTypeFor(pos[i], bcs[i])
	}
	return types
}
