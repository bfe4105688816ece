package network

import (
	"fmt"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// SwitchKind is the kind of a switch.
type SwitchKind int

const (
	Breaker SwitchKind = iota
	Disconnector
	LoadBreakSwitch
)

func (k SwitchKind) String() string {
	switch k {
	case Breaker:
		return "BREAKER"
	case Disconnector:
		return "DISCONNECTOR"
	case LoadBreakSwitch:
		return "LOAD_BREAK_SWITCH"
	default:
		return fmt.Sprintf("SwitchKind(%d)", int(k))
	}
}

// ParseSwitchKind parses a switch kind name.
func ParseSwitchKind(s string) (SwitchKind, error) {
	switch s {
	case "BREAKER", "":
		return Breaker, nil
	case "DISCONNECTOR":
		return Disconnector, nil
	case "LOAD_BREAK_SWITCH":
		return LoadBreakSwitch, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown switch kind %q", s)
}

// Switch joins two configured buses or two nodes of a voltage level. Its
// open state is per variant.
type Switch struct {
	identifiable
	vl           *VoltageLevel
	kind         SwitchKind
	retained     bool
	open         perVariant[bool]
	bus1, bus2   string
	node1, node2 int
}

// SwitchAdder describes a switch to create. Bus1 and Bus2 are used in
// bus-breaker levels, Node1 and Node2 in node-breaker levels. Retained
// defaults to true for breakers of node-breaker levels unless NotRetained
// is set.
type SwitchAdder struct {
	ID           string
	Name         string
	Fictitious   bool
	Kind         SwitchKind
	Bus1, Bus2   string
	Node1, Node2 int
	Open         bool
	Retained     bool
	NotRetained  bool
}

// AddSwitch creates a switch in the voltage level.
func (vl *VoltageLevel) AddSwitch(a SwitchAdder) (*Switch, error) {
	n, err := vl.checkMutable()
	if err != nil {
		return nil, err
	}
	if err := n.checkNewID("switch", a.ID); err != nil {
		return nil, err
	}
	if a.Kind < Breaker || a.Kind > LoadBreakSwitch {
		return nil, errors.Validation("switch %q: unknown kind %d", a.ID, a.Kind)
	}
	sw := &Switch{
		vl:    vl,
		kind:  a.Kind,
		open:  newPerVariant(n.variants.VariantArraySize(), a.Open),
		node1: -1,
		node2: -1,
	}
	sw.init(sw, n.ref, a.ID, a.Name, a.Fictitious)
	sw.track(&sw.open)

	switch topo := vl.topo.(type) {
	case *busBreakerTopology:
		if err := topo.addSwitch(sw, a.Bus1, a.Bus2); err != nil {
			return nil, err
		}
	case *nodeBreakerTopology:
		sw.retained = a.Retained || (a.Kind == Breaker && !a.NotRetained)
		if err := topo.addSwitch(sw, a.Node1, a.Node2); err != nil {
			return nil, err
		}
	}
	if err := n.register(sw, ValidationSteadyStateHypothesis); err != nil {
		vl.topo.dropSwitch(sw)
		return nil, err
	}
	n.invalidateTopology(-1, vl)
	return sw, nil
}

func (sw *Switch) Type() IdentifiableType { return TypeSwitch }

func (sw *Switch) VoltageLevel() *VoltageLevel { return sw.vl }

func (sw *Switch) Kind() SwitchKind { return sw.kind }

// IsRetained reports whether the switch is kept in the bus-breaker view of a
// node-breaker level.
func (sw *Switch) IsRetained() bool { return sw.retained }

// SetRetained changes the retained flag of a node-breaker switch.
func (sw *Switch) SetRetained(retained bool) error {
	n, err := sw.vl.checkMutable()
	if err != nil {
		return err
	}
	if sw.vl.kind != NodeBreaker {
		return errors.IllegalState("switch %q: retained flag only applies to node-breaker levels", sw.id)
	}
	if sw.retained == retained {
		return nil
	}
	sw.retained = retained
	n.invalidateTopology(-1, sw.vl)
	sw.notifyUpdate("retained", "", !retained, retained)
	return nil
}

// Bus1 and Bus2 return the ends of a bus-breaker switch.
func (sw *Switch) Bus1() string { return sw.bus1 }
func (sw *Switch) Bus2() string { return sw.bus2 }

// Node1 and Node2 return the ends of a node-breaker switch.
func (sw *Switch) Node1() int { return sw.node1 }
func (sw *Switch) Node2() int { return sw.node2 }

func (sw *Switch) IsOpen(v Variant) bool { return sw.open.values[v.index()] }

// SetOpen opens or closes the switch in variant v and invalidates the
// topology of that variant.
func (sw *Switch) SetOpen(v Variant, open bool) error {
	n, err := sw.vl.checkMutable()
	if err != nil {
		return err
	}
	slot := v.index()
	if sw.open.values[slot] == open {
		return nil
	}
	sw.open.values[slot] = open
	n.invalidateTopology(slot, sw.vl)
	sw.notifyUpdate("open", v.ID(), !open, open)
	return nil
}

// Remove deletes the switch.
func (sw *Switch) Remove() error {
	n, err := sw.vl.checkMutable()
	if err != nil {
		return err
	}
	if sw.removed {
		return errors.IllegalState("switch %q has already been removed", sw.id)
	}
	sw.vl.topo.dropSwitch(sw)
	n.unregister(sw)
	n.invalidateTopology(-1, sw.vl)
	return nil
}
