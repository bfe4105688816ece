package network

import (
	"fmt"
	"slices"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// busBreakerTopology is the topology of a level declaring configured buses
// joined by switches.
type busBreakerTopology struct {
	vl    *VoltageLevel
	buses []*ConfiguredBus
	sws   []*Switch
}

func (bb *busBreakerTopology) bus(id string) *ConfiguredBus {
	for _, b := range bb.buses {
		if b.id == id {
			return b
		}
	}
	return nil
}

func (bb *busBreakerTopology) addSwitch(sw *Switch, bus1, bus2 string) error {
	for _, id := range []string{bus1, bus2} {
		if bb.bus(id) == nil {
			return errors.Validation("switch %q: bus %q not found in voltage level %q", sw.id, id, bb.vl.id)
		}
	}
	sw.bus1, sw.bus2 = bus1, bus2
	bb.sws = append(bb.sws, sw)
	return nil
}

func (bb *busBreakerTopology) switches() []*Switch { return slices.Clone(bb.sws) }

func (bb *busBreakerTopology) dropSwitch(sw *Switch) {
	if i := slices.Index(bb.sws, sw); i >= 0 {
		bb.sws = slices.Delete(bb.sws, i, i+1)
	}
}

func (bb *busBreakerTopology) attach(t *Terminal, conn Connection) error {
	busID := conn.ConnectableBus
	switch {
	case conn.Bus != "" && conn.ConnectableBus == "":
		busID = conn.Bus
	case conn.Bus != "" && conn.Bus != conn.ConnectableBus:
		return errors.Validation("%s: connection bus %q and connectable bus %q differ", describe(t.owner), conn.Bus, conn.ConnectableBus)
	case busID == "":
		return errors.Validation("%s: connectable bus is not set", describe(t.owner))
	}
	if bb.bus(busID) == nil {
		return errors.Validation("%s: bus %q not found in voltage level %q", describe(t.owner), busID, bb.vl.id)
	}
	t.bus = busID
	connected := conn.Bus != ""
	for i := range t.state.values {
		t.state.values[i].connected = connected
	}
	return nil
}

func (bb *busBreakerTopology) detach(t *Terminal) {}

func (bb *busBreakerTopology) isConnected(t *Terminal, v Variant) bool {
	return t.state.values[v.index()].connected
}

func (bb *busBreakerTopology) connect(t *Terminal, v Variant) (bool, error) {
	s := &t.state.values[v.index()]
	if s.connected {
		return false, nil
	}
	s.connected = true
	return true, nil
}

func (bb *busBreakerTopology) disconnect(t *Terminal, v Variant) (bool, error) {
	s := &t.state.values[v.index()]
	if !s.connected {
		return false, nil
	}
	s.connected = false
	return true, nil
}

// connectedTerminals groups the terminals connected in slot by configured
// bus. Terminals pointing at a missing bus are excluded and logged.
func (bb *busBreakerTopology) connectedTerminals(slot int) map[string][]*Terminal {
	out := make(map[string][]*Terminal)
	for _, t := range bb.vl.terminals {
		if !t.state.values[slot].connected {
			continue
		}
		if bb.bus(t.bus) == nil {
			bb.vl.structuralInconsistency("%s refers to unknown bus %q", describe(t.owner), t.bus)
			continue
		}
		out[t.bus] = append(out[t.bus], t)
	}
	return out
}

func (bb *busBreakerTopology) compute(v Variant, view viewKind) *BusTopology {
	slot := v.index()
	terminals := bb.connectedTerminals(slot)
	bt := newBusTopology()

	if view == busBreakerView {
		for _, cb := range bb.buses {
			bt.add(&Bus{
				id:         cb.id,
				vl:         bb.vl,
				view:       view,
				variant:    v,
				configured: []*ConfiguredBus{cb},
				terminals:  terminals[cb.id],
			})
		}
		return bt
	}

	pos := make(map[string]int, len(bb.buses))
	for i, cb := range bb.buses {
		pos[cb.id] = i
	}
	uf := newUnionFind(len(bb.buses))
	for _, sw := range bb.sws {
		if sw.open.values[slot] {
			continue
		}
		i, ok1 := pos[sw.bus1]
		j, ok2 := pos[sw.bus2]
		if !ok1 || !ok2 {
			bb.vl.structuralInconsistency("switch %q joins unknown bus", sw.id)
			continue
		}
		uf.union(i, j)
	}

	for _, group := range uf.groups() {
		b := &Bus{vl: bb.vl, view: view, variant: v}
		for _, i := range group {
			cb := bb.buses[i]
			b.configured = append(b.configured, cb)
			b.terminals = append(b.terminals, terminals[cb.id]...)
		}
		// a merged bus needs at least one connected terminal
		if len(b.terminals) == 0 {
			continue
		}
		b.id = fmt.Sprintf("%s_%d", bb.vl.id, len(bt.buses))
		bt.add(b)
	}
	return bt
}

// structuralInconsistency logs an element excluded from a bus computation.
func (vl *VoltageLevel) structuralInconsistency(format string, args ...any) {
	n := vl.Network()
	if n == nil {
		return
	}
	err := errors.New(errors.ErrCodeStructuralInconsistency, format, args...)
	n.logger.Warn("element excluded from topology", "voltageLevel", vl.id, "err", err)
}
