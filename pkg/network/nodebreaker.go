package network

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// nodeBreakerTopology is the topology of a level made of integer nodes
// joined by switches and internal connections.
type nodeBreakerTopology struct {
	vl         *VoltageLevel
	sws        []*Switch
	internal   [][2]int
	terminalAt map[int]*Terminal
	voltages   perVariant[map[int]busState]
}

func newNodeBreakerTopology(vl *VoltageLevel, size int) *nodeBreakerTopology {
	return &nodeBreakerTopology{
		vl:         vl,
		terminalAt: make(map[int]*Terminal),
		voltages:   newPerVariantFunc(size, maps.Clone[map[int]busState]),
	}
}

func (vl *VoltageLevel) nodeBreaker() *nodeBreakerTopology {
	nb, _ := vl.topo.(*nodeBreakerTopology)
	return nb
}

func checkNode(owner string, node int) error {
	if node < 0 {
		return errors.Validation("%s: node %d is invalid", owner, node)
	}
	return nil
}

func (nb *nodeBreakerTopology) addSwitch(sw *Switch, node1, node2 int) error {
	owner := fmt.Sprintf("switch %q", sw.id)
	if err := checkNode(owner, node1); err != nil {
		return err
	}
	if err := checkNode(owner, node2); err != nil {
		return err
	}
	if node1 == node2 {
		return errors.Validation("%s: both ends on node %d", owner, node1)
	}
	sw.node1, sw.node2 = node1, node2
	nb.sws = append(nb.sws, sw)
	return nil
}

func (nb *nodeBreakerTopology) switches() []*Switch { return slices.Clone(nb.sws) }

func (nb *nodeBreakerTopology) dropSwitch(sw *Switch) {
	if i := slices.Index(nb.sws, sw); i >= 0 {
		nb.sws = slices.Delete(nb.sws, i, i+1)
	}
}

// AddInternalConnection joins two nodes of a node-breaker level with a
// permanent zero-impedance connection.
func (vl *VoltageLevel) AddInternalConnection(node1, node2 int) error {
	n, err := vl.checkMutable()
	if err != nil {
		return err
	}
	nb := vl.nodeBreaker()
	if nb == nil {
		return errors.IllegalState("voltage level %q is not node-breaker", vl.id)
	}
	owner := fmt.Sprintf("internal connection of %q", vl.id)
	if err := checkNode(owner, node1); err != nil {
		return err
	}
	if err := checkNode(owner, node2); err != nil {
		return err
	}
	nb.internal = append(nb.internal, [2]int{node1, node2})
	n.invalidateTopology(-1, vl)
	return nil
}

// InternalConnections returns the internal connections of a node-breaker
// level as node pairs.
func (vl *VoltageLevel) InternalConnections() [][2]int {
	if nb := vl.nodeBreaker(); nb != nil {
		return slices.Clone(nb.internal)
	}
	return nil
}

// Nodes returns the nodes used by a node-breaker level, ascending.
func (vl *VoltageLevel) Nodes() []int {
	if nb := vl.nodeBreaker(); nb != nil {
		return nb.nodes()
	}
	return nil
}

// TerminalAt returns the terminal attached to a node.
func (vl *VoltageLevel) TerminalAt(node int) (*Terminal, bool) {
	if nb := vl.nodeBreaker(); nb != nil {
		t, ok := nb.terminalAt[node]
		return t, ok
	}
	return nil, false
}

func (nb *nodeBreakerTopology) nodes() []int {
	set := make(map[int]bool)
	for node := range nb.terminalAt {
		set[node] = true
	}
	for _, sw := range nb.sws {
		set[sw.node1], set[sw.node2] = true, true
	}
	for _, ic := range nb.internal {
		set[ic[0]], set[ic[1]] = true, true
	}
	return slices.Sorted(maps.Keys(set))
}

func (nb *nodeBreakerTopology) attach(t *Terminal, conn Connection) error {
	if err := checkNode(describe(t.owner), conn.Node); err != nil {
		return err
	}
	if other, ok := nb.terminalAt[conn.Node]; ok {
		return errors.Validation("%s: node %d of voltage level %q is already used by %s",
			describe(t.owner), conn.Node, nb.vl.id, describe(other.owner))
	}
	t.node = conn.Node
	nb.terminalAt[conn.Node] = t
	return nil
}

func (nb *nodeBreakerTopology) detach(t *Terminal) {
	if nb.terminalAt[t.node] == t {
		delete(nb.terminalAt, t.node)
	}
}

// isConnected reports whether t reaches a busbar section or another
// terminal in the bus view. A feeder isolated by its breaker still forms a
// bus of its own but is not connected.
func (nb *nodeBreakerTopology) isConnected(t *Terminal, v Variant) bool {
	b, ok := nb.vl.BusView(v).BusOf(t)
	if !ok {
		return false
	}
	if len(b.terminals) > 1 {
		return true
	}
	_, isBbs := t.owner.(*BusbarSection)
	return isBbs
}

// traversable reports whether the view crosses sw in slot.
func traversable(sw *Switch, slot int, view viewKind) bool {
	if sw.open.values[slot] {
		return false
	}
	return view == busView || !sw.retained
}

func (nb *nodeBreakerTopology) compute(v Variant, view viewKind) *BusTopology {
	slot := v.index()
	nodes := nb.nodes()
	pos := make(map[int]int, len(nodes))
	for i, node := range nodes {
		pos[node] = i
	}
	uf := newUnionFind(len(nodes))
	for _, ic := range nb.internal {
		uf.union(pos[ic[0]], pos[ic[1]])
	}
	for _, sw := range nb.sws {
		if traversable(sw, slot, view) {
			uf.union(pos[sw.node1], pos[sw.node2])
		}
	}

	bt := newBusTopology()
	for _, group := range uf.groups() {
		b := &Bus{vl: nb.vl, view: view, variant: v}
		for _, i := range group {
			node := nodes[i]
			b.nodes = append(b.nodes, node)
			if t, ok := nb.terminalAt[node]; ok {
				if t.vl != nb.vl {
					nb.vl.structuralInconsistency("node %d holds a terminal of voltage level %q", node, t.vl.id)
					continue
				}
				b.terminals = append(b.terminals, t)
			}
		}
		// a group of nodes is a bus only if something is attached to it
		if len(b.terminals) == 0 {
			continue
		}
		if view == busView {
			b.id = fmt.Sprintf("%s_%d", nb.vl.id, len(bt.buses))
		} else {
			b.id = fmt.Sprintf("%s_%d", nb.vl.id, b.nodes[0])
		}
		bt.add(b)
	}
	return bt
}

// bay returns the switches met when walking from node t through closed
// switches and internal connections without crossing busbar sections.
// Breakers stop the walk and are returned separately; reached reports
// whether a busbar section was reached without crossing a breaker.
func (nb *nodeBreakerTopology) bay(t *Terminal, slot int, includeOpen bool) (breakers []*Switch, reached bool) {
	adj := make(map[int][]any)
	for _, ic := range nb.internal {
		adj[ic[0]] = append(adj[ic[0]], ic)
		adj[ic[1]] = append(adj[ic[1]], ic)
	}
	for _, sw := range nb.sws {
		adj[sw.node1] = append(adj[sw.node1], sw)
		adj[sw.node2] = append(adj[sw.node2], sw)
	}

	visited := map[int]bool{t.node: true}
	seenBreaker := make(map[*Switch]bool)
	queue := []int{t.node}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if other, ok := nb.terminalAt[node]; ok && node != t.node {
			if _, isBbs := other.owner.(*BusbarSection); isBbs {
				reached = true
				continue
			}
		}
		for _, e := range adj[node] {
			next := -1
			switch e := e.(type) {
			case [2]int:
				next = e[0] + e[1] - node
			case *Switch:
				open := e.open.values[slot]
				if e.kind == Breaker {
					if (!open || includeOpen) && !seenBreaker[e] {
						seenBreaker[e] = true
						breakers = append(breakers, e)
					}
					continue
				}
				if open {
					continue
				}
				next = e.node1 + e.node2 - node
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return breakers, reached
}

func (nb *nodeBreakerTopology) disconnect(t *Terminal, v Variant) (bool, error) {
	slot := v.index()
	breakers, reached := nb.bay(t, slot, false)
	if reached {
		return false, errors.IllegalState("%s cannot be disconnected: no breaker isolates it from a busbar section", describe(t.owner))
	}
	if len(breakers) == 0 {
		return false, nil
	}
	nb.setOpen(v, breakers, true)
	return true, nil
}

func (nb *nodeBreakerTopology) connect(t *Terminal, v Variant) (bool, error) {
	slot := v.index()
	breakers, _ := nb.bay(t, slot, true)
	breakers = slices.DeleteFunc(breakers, func(sw *Switch) bool { return !sw.open.values[slot] })
	if len(breakers) == 0 {
		return false, nil
	}
	nb.setOpen(v, breakers, false)
	return true, nil
}

// setOpen moves the breakers of a bay to the same state, invalidates the
// level and then notifies an "open" update per breaker.
func (nb *nodeBreakerTopology) setOpen(v Variant, breakers []*Switch, open bool) {
	slot := v.index()
	for _, sw := range breakers {
		sw.open.values[slot] = open
	}
	if n := nb.vl.Network(); n != nil {
		n.invalidateTopology(slot, nb.vl)
	}
	for _, sw := range breakers {
		sw.notifyUpdate("open", v.ID(), !open, open)
	}
}

func (nb *nodeBreakerTopology) voltage(slot int, nodes []int) busState {
	if len(nodes) == 0 {
		return unknownVoltage
	}
	if s, ok := nb.voltages.values[slot][nodes[0]]; ok {
		return s
	}
	return unknownVoltage
}

func (nb *nodeBreakerTopology) setVoltage(slot int, nodes []int, fn func(*busState)) {
	m := nb.voltages.values[slot]
	if m == nil {
		m = make(map[int]busState)
		nb.voltages.values[slot] = m
	}
	for _, node := range nodes {
		s, ok := m[node]
		if !ok {
			s = unknownVoltage
		}
		fn(&s)
		m[node] = s
	}
}
