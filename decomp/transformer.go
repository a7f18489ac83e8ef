package decomp

import (
	"github.com/pkg/errors"

	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/tensor"
)

// OverlapInfo records, for this rank's tile in a source decomposition,
// which ranks of a target decomposition its data must reach: one local
// slice per overlapping remote rank, plus the overlap with this rank's own
// tile in the target, which is copied without communication. Transposes are
// all-to-all in shape, so every rank of the target is scanned, not just
// neighbors. Computed once and read-only afterwards.
type OverlapInfo struct {
	Slices   [][]tensor.Range
	Ranks    []int
	SameProc []tensor.Range // overlap with this rank's target tile, nil when none
}

func newOverlapInfo(domainIn, domainOut *DomainDecomposition) *OverlapInfo {
	info := &OverlapInfo{}
	mine := domainIn.MySubdomain
	for rank := 0; rank < domainOut.Size; rank++ {
		other := domainOut.AllSubdomains[rank]
		if !mine.HasOverlap(other) {
			continue
		}
		s := mine.OverlapSlice(other)
		if rank == domainIn.Rank {
			info.SameProc = s
		} else {
			info.Slices = append(info.Slices, s)
			info.Ranks = append(info.Ranks, rank)
		}
	}
	return info
}

// Transformer redistributes arrays between two decompositions of the same
// global shape ("transpose"). When the two decompositions have identical
// process grids and halo, both directions are the identity.
type Transformer struct {
	In  *DomainDecomposition
	Out *DomainDecomposition

	sameDomain bool
	infoIn     *OverlapInfo // my In tile against all Out tiles
	infoOut    *OverlapInfo // my Out tile against all In tiles
}

// NewTransformer computes the communication plan between the two
// decompositions. Construction scans every rank's tile twice, which is
// acceptable because Transformers are built once at setup, not per step.
func NewTransformer(domainIn, domainOut *DomainDecomposition) (*Transformer, error) {
	if !tensor.SameShape(domainIn.NGlobal, domainOut.NGlobal) {
		return nil, errors.Errorf(
			"transformer requires matching global shapes, got %v and %v",
			domainIn.NGlobal, domainOut.NGlobal)
	}
	same := domainIn.Halo == domainOut.Halo &&
		tensor.SameShape(domainIn.NProcs, domainOut.NProcs)
	return &Transformer{
		In:         domainIn,
		Out:        domainOut,
		sameDomain: same,
		infoIn:     newOverlapInfo(domainIn, domainOut),
		infoOut:    newOverlapInfo(domainOut, domainIn),
	}, nil
}

// SameDomain reports whether both directions are the identity.
func (t *Transformer) SameDomain() bool { return t.sameDomain }

// Forward redistributes an array from the input to the output
// decomposition. The identity fast path returns arr itself.
func Forward[T tensor.Scalar](t *Transformer, arr *tensor.Dense[T]) *tensor.Dense[T] {
	return transformArr(t.In, t.Out, t.sameDomain, t.infoIn, t.infoOut, arr)
}

// Backward redistributes an array from the output back to the input
// decomposition.
func Backward[T tensor.Scalar](t *Transformer, arr *tensor.Dense[T]) *tensor.Dense[T] {
	return transformArr(t.Out, t.In, t.sameDomain, t.infoOut, t.infoIn, arr)
}

// transformArr sends every overlap slab to the rank that owns it in the
// destination decomposition and assembles the received slabs into a
// zero-filled destination array. Each rank sends at most one message to
// any destination per call, tagged with the sender's rank, so matching is
// unambiguous. The same-rank overlap is copied directly. A final Sync
// fills the destination halo, which the overlap copies leave untouched
// beyond interior cells.
func transformArr[T tensor.Scalar](src, dst *DomainDecomposition, same bool,
	infoSrc, infoDst *OverlapInfo, arr *tensor.Dense[T]) *tensor.Dense[T] {

	if same {
		return arr
	}
	src.be.Synchronize()

	out := tensor.NewDense[T](dst.MySubdomain.Shape...)

	c := src.Cart.Comm
	reqs := make([]*comm.Request, 0, len(infoSrc.Ranks)+len(infoDst.Ranks))
	for i, rank := range infoSrc.Ranks {
		reqs = append(reqs, c.Isend(rank, c.Rank(), arr.Extract(infoSrc.Slices[i])))
	}
	recvs := make([]*comm.Request, len(infoDst.Ranks))
	for i, rank := range infoDst.Ranks {
		recvs[i] = c.Irecv(rank, rank)
		reqs = append(reqs, recvs[i])
	}
	comm.Waitall(reqs)

	for i, r := range recvs {
		out.Insert(infoDst.Slices[i], r.Data.([]T))
	}
	if infoSrc.SameProc != nil {
		tensor.Copy(out, infoDst.SameProc, arr, infoSrc.SameProc)
	}

	Sync(dst, out)
	return out
}
