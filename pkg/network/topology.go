package network

import (
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/gridcore/pkg/observability"
)

type viewKind int

const (
	busBreakerView viewKind = iota
	busView
)

func (k viewKind) String() string {
	if k == busView {
		return "bus"
	}
	return "bus-breaker"
}

// topologyModel is the part of a voltage level that depends on its
// topology kind.
type topologyModel interface {
	// attach validates conn and binds t to the level. Nothing is modified
	// when it fails.
	attach(t *Terminal, conn Connection) error
	detach(t *Terminal)
	switches() []*Switch
	dropSwitch(sw *Switch)
	compute(v Variant, view viewKind) *BusTopology
	isConnected(t *Terminal, v Variant) bool
	connect(t *Terminal, v Variant) (bool, error)
	disconnect(t *Terminal, v Variant) (bool, error)
}

// topologyCache holds the two views of one voltage level for one variant.
// A nil view is rebuilt on the next read.
type topologyCache struct {
	mu    sync.Mutex
	views [2]*BusTopology
}

func newTopologyCache(*topologyCache) *topologyCache { return &topologyCache{} }

// BusTopology is the list of buses of one view, for one variant. It is a
// snapshot: it stays usable after a change of topology but no longer
// reflects the network.
type BusTopology struct {
	buses        []*Bus
	byID         map[string]*Bus
	byTerminal   map[*Terminal]*Bus
	byNode       map[int]*Bus
	byConfigured map[string]*Bus
}

func newBusTopology() *BusTopology {
	return &BusTopology{
		byID:         make(map[string]*Bus),
		byTerminal:   make(map[*Terminal]*Bus),
		byNode:       make(map[int]*Bus),
		byConfigured: make(map[string]*Bus),
	}
}

func (bt *BusTopology) add(b *Bus) {
	bt.buses = append(bt.buses, b)
	bt.byID[b.id] = b
	for _, t := range b.terminals {
		bt.byTerminal[t] = b
	}
	for _, node := range b.nodes {
		bt.byNode[node] = b
	}
	for _, cb := range b.configured {
		bt.byConfigured[cb.id] = b
	}
}

// Buses returns the buses in computation order.
func (bt *BusTopology) Buses() []*Bus { return slices.Clone(bt.buses) }

// Len returns the number of buses.
func (bt *BusTopology) Len() int { return len(bt.buses) }

// Bus returns the bus with the given id.
func (bt *BusTopology) Bus(id string) (*Bus, bool) {
	b, ok := bt.byID[id]
	return b, ok
}

// BusOf returns the bus a connected terminal belongs to.
func (bt *BusTopology) BusOf(t *Terminal) (*Bus, bool) {
	b, ok := bt.byTerminal[t]
	return b, ok
}

// BusOfConfigured returns the bus containing the configured bus id.
func (bt *BusTopology) BusOfConfigured(id string) (*Bus, bool) {
	b, ok := bt.byConfigured[id]
	return b, ok
}

// BusOfNode returns the bus containing a node of a node-breaker level.
func (bt *BusTopology) BusOfNode(node int) (*Bus, bool) {
	b, ok := bt.byNode[node]
	return b, ok
}

// BusView returns the electrical buses of the level for variant v.
func (vl *VoltageLevel) BusView(v Variant) *BusTopology {
	return vl.view(v, busView)
}

// BusBreakerView returns the bus-breaker buses of the level for variant v.
func (vl *VoltageLevel) BusBreakerView(v Variant) *BusTopology {
	return vl.view(v, busBreakerView)
}

func (vl *VoltageLevel) view(v Variant, kind viewKind) *BusTopology {
	c := vl.caches.values[v.index()]
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.views[kind] == nil {
		start := time.Now()
		bt := vl.topo.compute(v, kind)
		c.views[kind] = bt
		observability.Topology().OnBusesComputed(vl.id, kind.String(), v.ID(), len(bt.buses), time.Since(start))
	}
	return c.views[kind]
}

// invalidate drops the cached views of slot, or of every slot when slot < 0.
// Callers go through Network.invalidateTopology.
func (vl *VoltageLevel) invalidate(slot int) {
	drop := func(c *topologyCache) {
		if c == nil {
			return
		}
		c.mu.Lock()
		c.views = [2]*BusTopology{}
		c.mu.Unlock()
	}
	if slot >= 0 {
		drop(vl.caches.values[slot])
		return
	}
	for _, c := range vl.caches.values {
		drop(c)
	}
}

// NetworkBusView gives network-wide access to one view of one variant.
type NetworkBusView struct {
	n    *Network
	v    Variant
	kind viewKind
}

// BusView returns the electrical buses of every voltage level for variant v.
func (n *Network) BusView(v Variant) NetworkBusView {
	return NetworkBusView{n: n, v: v, kind: busView}
}

// BusBreakerView returns the bus-breaker buses of every voltage level for
// variant v.
func (n *Network) BusBreakerView(v Variant) NetworkBusView {
	return NetworkBusView{n: n, v: v, kind: busBreakerView}
}

// Buses returns the buses of every voltage level, levels in creation order.
func (nv NetworkBusView) Buses() []*Bus {
	var out []*Bus
	for _, vl := range nv.n.VoltageLevels() {
		out = append(out, vl.view(nv.v, nv.kind).buses...)
	}
	return out
}

// Bus returns the bus with the given id. In the bus-breaker view, configured
// buses are resolved through the index first.
func (nv NetworkBusView) Bus(id string) (*Bus, bool) {
	if nv.kind == busBreakerView {
		if cb, ok := nv.n.ConfiguredBus(id); ok {
			return cb.vl.view(nv.v, busBreakerView).Bus(cb.id)
		}
	}
	s := nv.n.state(nv.v)
	s.mu.Lock()
	ids := s.busViewIDs
	if nv.kind == busBreakerView {
		ids = s.busBreakerIDs
	}
	if ids == nil {
		ids = make(map[string]*Bus)
		for _, b := range nv.Buses() {
			ids[b.id] = b
		}
		if nv.kind == busBreakerView {
			s.busBreakerIDs = ids
		} else {
			s.busViewIDs = ids
		}
	}
	s.mu.Unlock()
	b, ok := ids[id]
	return b, ok
}
