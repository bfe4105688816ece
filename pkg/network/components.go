package network

import (
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/gridcore/pkg/observability"
)

// ComponentType distinguishes connected from synchronous components.
type ComponentType int

const (
	// ComponentConnected groups buses linked by any branch, HVDC included.
	ComponentConnected ComponentType = iota
	// ComponentSynchronous ignores asynchronous links (HVDC by default).
	ComponentSynchronous
)

func (t ComponentType) String() string {
	if t == ComponentSynchronous {
		return "synchronous"
	}
	return "connected"
}

// Component is a connected or synchronous component of one variant.
// Components are numbered by decreasing size; 0 is the main component.
type Component struct {
	kind  ComponentType
	num   int
	buses []*Bus
}

func (c *Component) Type() ComponentType { return c.kind }

// Num returns the component number.
func (c *Component) Num() int { return c.num }

// Size returns the number of buses in the component.
func (c *Component) Size() int { return len(c.buses) }

// Buses returns the bus-view buses of the component.
func (c *Component) Buses() []*Bus { return slices.Clone(c.buses) }

// componentsManager computes and caches the components of one kind for one
// variant. gen identifies a computation; buses remember the gen that
// numbered them, so buses of an older topology answer nil.
type componentsManager struct {
	kind  ComponentType
	mu    sync.Mutex
	comps []*Component
	valid bool
	gen   uint64
}

func (m *componentsManager) invalidate() {
	m.mu.Lock()
	m.valid = false
	m.comps = nil
	m.mu.Unlock()
}

// boundComponents is a components manager bound to its network and variant.
type boundComponents struct {
	m *componentsManager
	n *Network
	v Variant
}

func (n *Network) components(v Variant, kind ComponentType) boundComponents {
	s := n.state(v)
	m := s.connected
	if kind == ComponentSynchronous {
		m = s.synchronous
	}
	return boundComponents{m: m, n: n, v: v}
}

// ConnectedComponents returns the connected components of variant v,
// largest first.
func (n *Network) ConnectedComponents(v Variant) []*Component {
	return n.components(v, ComponentConnected).list()
}

// SynchronousComponents returns the synchronous components of variant v,
// largest first.
func (n *Network) SynchronousComponents(v Variant) []*Component {
	return n.components(v, ComponentSynchronous).list()
}

func (bc boundComponents) list() []*Component {
	bc.m.mu.Lock()
	defer bc.m.mu.Unlock()
	bc.ensure()
	return slices.Clone(bc.m.comps)
}

func (bc boundComponents) componentOf(b *Bus) *Component {
	bc.m.mu.Lock()
	defer bc.m.mu.Unlock()
	bc.ensure()
	if bc.m.kind == ComponentSynchronous {
		if b.scGen == bc.m.gen {
			return b.sc
		}
		return nil
	}
	if b.ccGen == bc.m.gen {
		return b.cc
	}
	return nil
}

// ensure computes the components if needed. The caller holds bc.m.mu.
func (bc boundComponents) ensure() {
	m := bc.m
	if m.valid {
		return
	}
	start := time.Now()

	buses := bc.n.BusView(bc.v).Buses()
	pos := make(map[*Bus]int, len(buses))
	for i, b := range buses {
		pos[b] = i
	}
	uf := newUnionFind(len(buses))
	for i, b := range buses {
		for _, t := range b.terminals {
			for _, peer := range bc.peers(t) {
				pb, ok := peer.Bus(bc.v)
				if !ok {
					continue
				}
				if j, ok := pos[pb]; ok {
					uf.union(i, j)
				}
			}
		}
	}

	groups := uf.groups()
	// groups are in discovery order; the stable sort keeps it among equals
	slices.SortStableFunc(groups, func(a, b []int) int { return len(b) - len(a) })

	m.gen++
	m.comps = make([]*Component, len(groups))
	for num, group := range groups {
		c := &Component{kind: m.kind, num: num, buses: make([]*Bus, len(group))}
		for k, i := range group {
			b := buses[i]
			c.buses[k] = b
			if m.kind == ComponentSynchronous {
				b.sc, b.scGen = c, m.gen
			} else {
				b.cc, b.ccGen = c, m.gen
			}
		}
		m.comps[num] = c
	}
	m.valid = true

	observability.Topology().OnComponentsComputed(m.kind.String(), bc.v.ID(), len(m.comps), time.Since(start))
}

// peers returns the terminals at the other end of the link t belongs to.
func (bc boundComponents) peers(t *Terminal) []*Terminal {
	excluded := func(typ IdentifiableType) bool {
		return bc.m.kind == ComponentSynchronous && bc.n.asyncLinks[typ]
	}
	switch owner := t.owner.(type) {
	case *Line:
		if !excluded(TypeLine) {
			return []*Terminal{owner.other(t)}
		}
	case *TwoWindingsTransformer:
		if !excluded(TypeTwoWindingsTransformer) {
			return []*Terminal{owner.other(t)}
		}
	case *DanglingLine:
		if owner.tieLine != nil && !excluded(TypeTieLine) {
			return []*Terminal{owner.tieLine.otherHalf(owner).terminal}
		}
	case *VscConverterStation:
		if owner.hvdcLine != nil && !excluded(TypeHvdcLine) {
			return []*Terminal{owner.hvdcLine.otherStation(owner).terminal}
		}
	}
	return nil
}
