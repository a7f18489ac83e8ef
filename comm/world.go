// Package comm provides rank-to-rank message passing for SPMD execution
// within a single process. A World owns a fixed set of ranks, each driven by
// its own goroutine; ranks exchange data exclusively through non-blocking
// point-to-point sends and receives matched on (source, tag), in the manner
// of an MPI communicator. Message order is preserved per (source, tag) pair.
package comm

import (
	"fmt"
	"sync"
)

// World owns the mailboxes for a fixed set of ranks. All communicators and
// cartesian topologies derived from a World share its rank numbering.
type World struct {
	size    int
	inboxes []*inbox
}

type msgKey struct {
	source, tag int
}

// inbox holds a rank's undelivered messages, FIFO per (source, tag).
type inbox struct {
	mu   sync.Mutex
	cond *sync.Cond
	q    map[msgKey][]any
}

func newInbox() (ib *inbox) {
	ib = &inbox{q: make(map[msgKey][]any)}
	ib.cond = sync.NewCond(&ib.mu)
	return
}

func NewWorld(size int) *World {
	if size < 1 {
		panic(fmt.Sprintf("world size %d must be positive", size))
	}
	w := &World{
		size:    size,
		inboxes: make([]*inbox, size),
	}
	for i := range w.inboxes {
		w.inboxes[i] = newInbox()
	}
	return w
}

func (w *World) Size() int { return w.size }

// Comm returns the communication handle for one rank.
func (w *World) Comm(rank int) *Comm {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("rank %d out of range [0,%d)", rank, w.size))
	}
	return &Comm{w: w, rank: rank}
}

// Run executes body once per rank, each in its own goroutine, and returns
// when every rank has finished. This is the SPMD entry point: body is the
// whole program as seen by a single rank.
func (w *World) Run(body func(c *Comm)) {
	var wg sync.WaitGroup
	for rank := 0; rank < w.size; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			body(w.Comm(rank))
		}(rank)
	}
	wg.Wait()
}

// Comm is one rank's view of the World.
type Comm struct {
	w    *World
	rank int
}

func (c *Comm) Rank() int     { return c.rank }
func (c *Comm) Size() int     { return c.w.size }
func (c *Comm) World() *World { return c.w }

// Request is the handle for an outstanding non-blocking operation. After
// Wait returns, Data holds the received payload (receives only).
type Request struct {
	ib   *inbox
	key  msgKey
	done bool
	Data any
}

// Isend posts data to the destination rank under the given tag. The caller
// must not modify the payload after posting; ownership passes to the
// receiver. Delivery is buffered, so the returned request is already
// complete.
func (c *Comm) Isend(dest, tag int, data any) *Request {
	ib := c.w.inboxes[dest]
	key := msgKey{source: c.rank, tag: tag}
	ib.mu.Lock()
	ib.q[key] = append(ib.q[key], data)
	ib.mu.Unlock()
	ib.cond.Broadcast()
	return &Request{done: true}
}

// Irecv posts a receive for a message from source under the given tag. The
// request completes when a matching message arrives.
func (c *Comm) Irecv(source, tag int) *Request {
	return &Request{
		ib:  c.w.inboxes[c.rank],
		key: msgKey{source: source, tag: tag},
	}
}

// Wait blocks until the request is complete and returns the payload.
func (r *Request) Wait() any {
	if r.done {
		return r.Data
	}
	ib := r.ib
	ib.mu.Lock()
	for len(ib.q[r.key]) == 0 {
		ib.cond.Wait()
	}
	q := ib.q[r.key]
	r.Data = q[0]
	if len(q) == 1 {
		delete(ib.q, r.key)
	} else {
		ib.q[r.key] = q[1:]
	}
	ib.mu.Unlock()
	r.done = true
	return r.Data
}

// Waitall blocks until every request in reqs is complete.
func Waitall(reqs []*Request) {
	for _, r := range reqs {
		r.Wait()
	}
}
