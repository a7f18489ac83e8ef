package comm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRecv(t *testing.T) {
	w := NewWorld(2)
	w.Run(func(c *Comm) {
		switch c.Rank() {
		case 0:
			c.Isend(1, 7, []float64{1, 2, 3})
		case 1:
			r := c.Irecv(0, 7)
			got := r.Wait().([]float64)
			assert.Equal(t, []float64{1, 2, 3}, got)
			assert.Equal(t, got, r.Data)
		}
	})
}

func TestRecvBeforeSendBlocks(t *testing.T) {
	// the receive is posted before the matching send exists
	w := NewWorld(2)
	var order []string
	var mu sync.Mutex
	note := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}
	w.Run(func(c *Comm) {
		if c.Rank() == 0 {
			// make rank 1 wait a little
			r := c.Irecv(1, 0)
			r.Wait()
			note("send")
			c.Isend(1, 1, 42)
		} else {
			r := c.Irecv(0, 1)
			c.Isend(0, 0, "go")
			assert.Equal(t, 42, r.Wait().(int))
			note("recv")
		}
	})
	require.Equal(t, []string{"send", "recv"}, order)
}

func TestFIFOPerSourceAndTag(t *testing.T) {
	w := NewWorld(2)
	w.Run(func(c *Comm) {
		if c.Rank() == 0 {
			for i := 0; i < 10; i++ {
				c.Isend(1, 3, i)
			}
		} else {
			for i := 0; i < 10; i++ {
				assert.Equal(t, i, c.Irecv(0, 3).Wait().(int))
			}
		}
	})
}

func TestTagsKeepStreamsApart(t *testing.T) {
	w := NewWorld(2)
	w.Run(func(c *Comm) {
		if c.Rank() == 0 {
			c.Isend(1, 1, "one")
			c.Isend(1, 2, "two")
		} else {
			// receive in the opposite order of sending
			assert.Equal(t, "two", c.Irecv(0, 2).Wait().(string))
			assert.Equal(t, "one", c.Irecv(0, 1).Wait().(string))
		}
	})
}

func TestWaitall(t *testing.T) {
	w := NewWorld(4)
	w.Run(func(c *Comm) {
		// everyone sends their rank to everyone else
		var reqs []*Request
		for dst := 0; dst < c.Size(); dst++ {
			if dst != c.Rank() {
				reqs = append(reqs, c.Isend(dst, 0, c.Rank()))
			}
		}
		recvs := map[int]*Request{}
		for src := 0; src < c.Size(); src++ {
			if src != c.Rank() {
				recvs[src] = c.Irecv(src, 0)
				reqs = append(reqs, recvs[src])
			}
		}
		Waitall(reqs)
		for src, r := range recvs {
			assert.Equal(t, src, r.Data.(int))
		}
	})
}

func TestComputeDims(t *testing.T) {
	cases := []struct {
		nnodes int
		dims   []int
		want   []int
	}{
		{4, []int{0, 0}, []int{2, 2}},
		{12, []int{0, 0, 0}, []int{3, 2, 2}},
		{6, []int{1, 0}, []int{1, 6}},
		{8, []int{0, 1, 0}, []int{4, 1, 2}},
		{7, []int{0, 0}, []int{7, 1}},
		{6, []int{2, 3}, []int{2, 3}},
		{1, []int{0}, []int{1}},
	}
	for _, tc := range cases {
		got, err := ComputeDims(tc.nnodes, tc.dims)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "nnodes=%d dims=%v", tc.nnodes, tc.dims)
	}
}

func TestComputeDimsErrors(t *testing.T) {
	// pinned counts that do not divide the rank count
	_, err := ComputeDims(7, []int{2, 0})
	assert.Error(t, err)
	// fully pinned but wrong product
	_, err = ComputeDims(6, []int{2, 2})
	assert.Error(t, err)
	// negative pin
	_, err = ComputeDims(4, []int{-1, 0})
	assert.Error(t, err)
}

func TestCartTopology(t *testing.T) {
	w := NewWorld(6)
	cart, err := NewCart(w.Comm(5), []int{3, 2})
	require.NoError(t, err)

	// row-major, last axis fastest
	assert.Equal(t, []int{0, 0}, cart.Coords(0))
	assert.Equal(t, []int{0, 1}, cart.Coords(1))
	assert.Equal(t, []int{2, 0}, cart.Coords(4))
	assert.Equal(t, []int{2, 1}, cart.MyCoords())

	for rank := 0; rank < 6; rank++ {
		assert.Equal(t, rank, cart.RankAt(cart.Coords(rank)))
	}
	// periodic wrap
	assert.Equal(t, 0, cart.RankAt([]int{3, 2}))
	assert.Equal(t, 5, cart.RankAt([]int{-1, -1}))

	// ring neighbors of rank 5 = (2,1): along axis 0 they are (1,1) and
	// (0,1); along axis 1 both are (2,0).
	prev, next := cart.Shift(0)
	assert.Equal(t, 3, prev)
	assert.Equal(t, 1, next)
	prev, next = cart.Shift(1)
	assert.Equal(t, 4, prev)
	assert.Equal(t, 4, next)
}

func TestCartSizeMismatch(t *testing.T) {
	w := NewWorld(4)
	_, err := NewCart(w.Comm(0), []int{3, 2})
	assert.Error(t, err)
}

func TestAxisCommRingExchange(t *testing.T) {
	// pass each rank's id around the ring along axis 1 of a 1x4 grid
	w := NewWorld(4)
	w.Run(func(c *Comm) {
		cart, err := NewCart(c, []int{1, 4})
		require.NoError(t, err)
		ax := cart.Sub(1)

		reqs := []*Request{
			ax.IsendNext(0, c.Rank()),
			ax.IsendPrev(1, c.Rank()),
		}
		fromPrev := ax.IrecvPrev(0)
		fromNext := ax.IrecvNext(1)
		reqs = append(reqs, fromPrev, fromNext)
		Waitall(reqs)

		assert.Equal(t, (c.Rank()+3)%4, fromPrev.Data.(int))
		assert.Equal(t, (c.Rank()+1)%4, fromNext.Data.(int))
	})
}
