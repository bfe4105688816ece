package network

import "sync/atomic"

// netRef is the redirectable back-reference from elements to their network.
// Elements keep the reference of the network that created them; a merge
// points every reference owned by the absorbed network at the survivor, so
// the cost of a merge does not depend on the number of elements.
type netRef struct {
	p atomic.Pointer[Network]
}

func newNetRef(n *Network) *netRef {
	r := &netRef{}
	r.p.Store(n)
	return r
}

func (r *netRef) get() *Network { return r.p.Load() }

func (r *netRef) set(n *Network) { r.p.Store(n) }
