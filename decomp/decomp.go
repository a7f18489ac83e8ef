package decomp

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/notargets/gospectral/backend"
	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/tensor"
)

// DomainDecomposition lays a cartesian process grid over a global array
// shape and owns one Subdomain per rank. Axes requested as shared get
// exactly one process, leaving them whole on every rank so that local
// transforms can run along them without communication. The configuration is
// immutable after construction; only array contents change, through Sync.
type DomainDecomposition struct {
	NDims      int
	NGlobal    []int
	Halo       int
	NProcs     []int
	SharedAxes []int

	Cart *comm.CartComm
	Size int
	Rank int

	AllSubdomains []*Subdomain
	MySubdomain   *Subdomain

	be   backend.Backend
	axes []*comm.AxisComm

	// halo exchange slabs, one set per axis, in local coordinates
	sendToNext   [][]tensor.Range
	sendToPrev   [][]tensor.Range
	recvFromNext [][]tensor.Range
	recvFromPrev [][]tensor.Range
}

// New builds a decomposition of nGlobal over the ranks of c. Every axis in
// sharedAxes gets one process; the remaining process counts come from a
// balanced factorization of the rank count. SharedAxes is recomputed
// afterwards as the set of axes that ended up with one process, which may
// be larger than requested. A nil backend selects the default.
func New(c *comm.Comm, nGlobal []int, halo int, sharedAxes []int,
	be backend.Backend) (*DomainDecomposition, error) {

	nDims := len(nGlobal)
	if nDims == 0 {
		return nil, errors.New("global shape must have at least one axis")
	}
	if be == nil {
		be = backend.Default()
	}

	dims := make([]int, nDims)
	for _, ax := range sharedAxes {
		if ax < 0 || ax >= nDims {
			return nil, errors.Errorf("shared axis %d out of range [0,%d)", ax, nDims)
		}
		dims[ax] = 1
	}
	nProcs, err := comm.ComputeDims(c.Size(), dims)
	if err != nil {
		return nil, err
	}
	shared := []int{}
	for i, n := range nProcs {
		if n == 1 {
			shared = append(shared, i)
		}
	}

	cart, err := comm.NewCart(c, nProcs)
	if err != nil {
		return nil, err
	}

	d := &DomainDecomposition{
		NDims:      nDims,
		NGlobal:    append([]int(nil), nGlobal...),
		Halo:       halo,
		NProcs:     nProcs,
		SharedAxes: shared,
		Cart:       cart,
		Size:       c.Size(),
		Rank:       c.Rank(),
		be:         be,
	}

	d.AllSubdomains = make([]*Subdomain, d.Size)
	for rank := 0; rank < d.Size; rank++ {
		d.AllSubdomains[rank] = NewSubdomain(rank, cart, nGlobal, halo)
	}
	d.MySubdomain = d.AllSubdomains[d.Rank]

	for i := 0; i < nDims; i++ {
		if d.MySubdomain.InnerShape[i] < halo {
			return nil, errors.Errorf(
				"axis %d: inner extent %d is smaller than halo %d; "+
					"add grid points or reduce the halo",
				i, d.MySubdomain.InnerShape[i], halo)
		}
	}

	d.axes = make([]*comm.AxisComm, nDims)
	for i := 0; i < nDims; i++ {
		d.axes[i] = cart.Sub(i)
	}
	d.makeHaloSlabs()

	if d.Rank == 0 {
		klog.V(1).Infof("decomposed %v over %v ranks as %v, shared axes %v, halo %d",
			nGlobal, d.Size, nProcs, shared, halo)
	}
	return d, nil
}

// Backend returns the compute backend this decomposition synchronizes with
// before communicating.
func (d *DomainDecomposition) Backend() backend.Backend { return d.be }

// makeHaloSlabs precomputes, per axis, the four slabs of the halo exchange
// in this rank's local coordinates: the interior rows adjacent to each face
// (sent) and the halo rows at each face (received).
func (d *DomainDecomposition) makeHaloSlabs() {
	n := d.NDims
	h := d.Halo
	shape := d.MySubdomain.Shape
	d.sendToNext = make([][]tensor.Range, n)
	d.sendToPrev = make([][]tensor.Range, n)
	d.recvFromNext = make([][]tensor.Range, n)
	d.recvFromPrev = make([][]tensor.Range, n)
	for i := 0; i < n; i++ {
		d.sendToNext[i] = axisSlab(shape, i, tensor.Range{Lo: shape[i] - 2*h, Hi: shape[i] - h})
		d.sendToPrev[i] = axisSlab(shape, i, tensor.Range{Lo: h, Hi: 2 * h})
		d.recvFromNext[i] = axisSlab(shape, i, tensor.Range{Lo: shape[i] - h, Hi: shape[i]})
		d.recvFromPrev[i] = axisSlab(shape, i, tensor.Range{Lo: 0, Hi: h})
	}
}

// axisSlab selects range r along axis and the full extent elsewhere.
func axisSlab(shape []int, axis int, r tensor.Range) []tensor.Range {
	rs := make([]tensor.Range, len(shape))
	for i, n := range shape {
		rs[i] = tensor.Full(n)
	}
	rs[axis] = r
	return rs
}

// Sync fills arr's halo cells in place with the corresponding interior
// cells of the periodic neighbors, one axis at a time. Axes with a single
// process wrap the local array onto itself without communication; the rest
// exchange both directions with the ring neighbors under one Waitall.
// After Sync every halo cell equals the interior cell at the same global
// coordinate, wrapped around in every dimension.
func Sync[T tensor.Scalar](d *DomainDecomposition, arr *tensor.Dense[T]) {
	SyncMulti(d, []*tensor.Dense[T]{arr})
}

// SyncMulti syncs several arrays at once, batching each axis's messages for
// all arrays under a single Waitall. Messages are tagged by array index and
// direction so concurrent exchanges never cross.
func SyncMulti[T tensor.Scalar](d *DomainDecomposition, arrs []*tensor.Dense[T]) {
	if d.Halo == 0 || len(arrs) == 0 {
		return
	}
	d.be.Synchronize()

	// Axes are processed sequentially: halo corners along later axes
	// depend on earlier axes' exchanges having completed.
	for i := 0; i < d.NDims; i++ {
		if d.NProcs[i] == 1 {
			for _, arr := range arrs {
				tensor.Copy(arr, d.recvFromNext[i], arr, d.sendToPrev[i])
				tensor.Copy(arr, d.recvFromPrev[i], arr, d.sendToNext[i])
			}
			continue
		}

		ax := d.axes[i]
		reqs := make([]*comm.Request, 0, 4*len(arrs))
		recvNext := make([]*comm.Request, len(arrs))
		recvPrev := make([]*comm.Request, len(arrs))
		for j, arr := range arrs {
			// tag 2j goes toward next, 2j+1 toward prev; with two
			// ranks on the ring both directions share a peer, so the
			// direction must live in the tag.
			reqs = append(reqs,
				ax.IsendNext(2*j, arr.Extract(d.sendToNext[i])),
				ax.IsendPrev(2*j+1, arr.Extract(d.sendToPrev[i])))
			recvNext[j] = ax.IrecvNext(2*j + 1)
			recvPrev[j] = ax.IrecvPrev(2 * j)
			reqs = append(reqs, recvNext[j], recvPrev[j])
		}
		comm.Waitall(reqs)
		for j, arr := range arrs {
			arr.Insert(d.recvFromNext[i], recvNext[j].Data.([]T))
			arr.Insert(d.recvFromPrev[i], recvPrev[j].Data.([]T))
		}
	}
}

// Side names one face of the domain along an axis.
type Side int

const (
	Left Side = iota
	Right
)

// ApplyBoundaryCondition overwrites arr's halo cells on the given global
// boundary face with value, on the ranks whose tile touches that face.
// Used for non-periodic axes after a Sync has filled the halos with the
// periodic wrap.
func ApplyBoundaryCondition[T tensor.Scalar](d *DomainDecomposition,
	arr *tensor.Dense[T], axis int, side Side, value T) {

	if d.Halo == 0 {
		return
	}
	switch side {
	case Left:
		if d.MySubdomain.IsLeftEdge(axis) {
			arr.FillRange(d.recvFromPrev[axis], value)
		}
	case Right:
		if d.MySubdomain.IsRightEdge(axis) {
			arr.FillRange(d.recvFromNext[axis], value)
		}
	}
}
