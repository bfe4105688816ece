package network

import (
	"math"
	"slices"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// Bus is a computed bus of one view and one variant: a maximal group of
// configured buses or nodes joined through closed switches. Buses are
// rebuilt after every change of topology; a Bus kept across a change is a
// stale snapshot.
type Bus struct {
	id         string
	vl         *VoltageLevel
	view       viewKind
	variant    Variant
	configured []*ConfiguredBus
	nodes      []int
	terminals  []*Terminal

	// written by the components managers under their lock
	cc, sc       *Component
	ccGen, scGen uint64
}

func (b *Bus) ID() string { return b.id }

// Name returns the name of the backing configured bus, if exactly one.
func (b *Bus) Name() string {
	if len(b.configured) == 1 {
		return b.configured[0].name
	}
	return ""
}

func (b *Bus) VoltageLevel() *VoltageLevel { return b.vl }

// Variant returns the variant the bus was computed for.
func (b *Bus) Variant() Variant { return b.variant }

// ConfiguredBuses returns the configured buses merged into b.
func (b *Bus) ConfiguredBuses() []*ConfiguredBus { return slices.Clone(b.configured) }

// Nodes returns the nodes of b, ascending, for node-breaker levels.
func (b *Bus) Nodes() []int { return slices.Clone(b.nodes) }

// ConnectedTerminals returns the terminals connected to b.
func (b *Bus) ConnectedTerminals() []*Terminal { return slices.Clone(b.terminals) }

func (b *Bus) ConnectedTerminalCount() int { return len(b.terminals) }

// Connectables returns the distinct elements connected to b.
func (b *Bus) Connectables() []Connectable {
	var out []Connectable
	for _, t := range b.terminals {
		if !slices.Contains(out, t.owner) {
			out = append(out, t.owner)
		}
	}
	return out
}

// V returns the voltage magnitude in kV, NaN if unknown.
func (b *Bus) V() float64 {
	slot := b.variant.index()
	if len(b.configured) > 0 {
		return b.configured[0].state.values[slot].v
	}
	return b.vl.nodeBreaker().voltage(slot, b.nodes).v
}

// Angle returns the voltage angle in degrees, NaN if unknown.
func (b *Bus) Angle() float64 {
	slot := b.variant.index()
	if len(b.configured) > 0 {
		return b.configured[0].state.values[slot].angle
	}
	return b.vl.nodeBreaker().voltage(slot, b.nodes).angle
}

// SetV sets the voltage of every configured bus or node of b.
func (b *Bus) SetV(v float64) error {
	if v < 0 {
		return errors.Validation("bus %q: voltage %v is negative", b.id, v)
	}
	b.setVoltage(func(s *busState) { s.v = v })
	return nil
}

// SetAngle sets the angle of every configured bus or node of b.
func (b *Bus) SetAngle(angle float64) error {
	b.setVoltage(func(s *busState) { s.angle = angle })
	return nil
}

func (b *Bus) setVoltage(fn func(*busState)) {
	slot := b.variant.index()
	if len(b.configured) > 0 {
		for _, cb := range b.configured {
			fn(&cb.state.values[slot])
		}
		return
	}
	b.vl.nodeBreaker().setVoltage(slot, b.nodes, fn)
}

// busViewBus returns the bus-view bus containing b, nil if none.
func (b *Bus) busViewBus() *Bus {
	if b.view == busView {
		return b
	}
	bt := b.vl.BusView(b.variant)
	if len(b.configured) > 0 {
		vb, _ := bt.BusOfConfigured(b.configured[0].id)
		return vb
	}
	if len(b.nodes) > 0 {
		vb, _ := bt.BusOfNode(b.nodes[0])
		return vb
	}
	return nil
}

// ConnectedComponent returns the connected component of b, nil if b is not
// part of the current bus view.
func (b *Bus) ConnectedComponent() *Component {
	return b.component(ComponentConnected)
}

// SynchronousComponent returns the synchronous component of b.
func (b *Bus) SynchronousComponent() *Component {
	return b.component(ComponentSynchronous)
}

// IsInMainConnectedComponent reports whether b belongs to component 0.
func (b *Bus) IsInMainConnectedComponent() bool {
	c := b.ConnectedComponent()
	return c != nil && c.num == 0
}

// IsInMainSynchronousComponent reports whether b belongs to synchronous
// component 0.
func (b *Bus) IsInMainSynchronousComponent() bool {
	c := b.SynchronousComponent()
	return c != nil && c.num == 0
}

func (b *Bus) component(kind ComponentType) *Component {
	vb := b.busViewBus()
	if vb == nil {
		return nil
	}
	n := b.vl.Network()
	if n == nil {
		return nil
	}
	return n.components(b.variant, kind).componentOf(vb)
}

// busState is the per-variant voltage of a configured bus or a node.
type busState struct {
	v     float64
	angle float64
}

var unknownVoltage = busState{v: math.NaN(), angle: math.NaN()}

// ConfiguredBus is a bus declared in a bus-breaker voltage level.
type ConfiguredBus struct {
	identifiable
	vl    *VoltageLevel
	state perVariant[busState]
}

// BusAdder describes a configured bus to create.
type BusAdder struct {
	ID         string
	Name       string
	Fictitious bool
}

// AddBus declares a bus in a bus-breaker voltage level.
func (vl *VoltageLevel) AddBus(a BusAdder) (*ConfiguredBus, error) {
	n, err := vl.checkMutable()
	if err != nil {
		return nil, err
	}
	bb, ok := vl.topo.(*busBreakerTopology)
	if !ok {
		return nil, errors.IllegalState("voltage level %q is not bus-breaker", vl.id)
	}
	if err := n.checkNewID("bus", a.ID); err != nil {
		return nil, err
	}
	cb := &ConfiguredBus{
		vl:    vl,
		state: newPerVariant(n.variants.VariantArraySize(), unknownVoltage),
	}
	cb.init(cb, n.ref, a.ID, a.Name, a.Fictitious)
	cb.track(&cb.state)
	if err := n.register(cb, ValidationSteadyStateHypothesis); err != nil {
		return nil, err
	}
	bb.buses = append(bb.buses, cb)
	n.invalidateTopology(-1, vl)
	return cb, nil
}

func (cb *ConfiguredBus) Type() IdentifiableType { return TypeBus }

func (cb *ConfiguredBus) VoltageLevel() *VoltageLevel { return cb.vl }

func (cb *ConfiguredBus) V(v Variant) float64     { return cb.state.values[v.index()].v }
func (cb *ConfiguredBus) Angle(v Variant) float64 { return cb.state.values[v.index()].angle }

func (cb *ConfiguredBus) SetV(v Variant, value float64) error {
	if value < 0 {
		return errors.Validation("bus %q: voltage %v is negative", cb.id, value)
	}
	s := &cb.state.values[v.index()]
	old := s.v
	s.v = value
	cb.notifyUpdate("v", v.ID(), old, value)
	return nil
}

func (cb *ConfiguredBus) SetAngle(v Variant, value float64) error {
	s := &cb.state.values[v.index()]
	old := s.angle
	s.angle = value
	cb.notifyUpdate("angle", v.ID(), old, value)
	return nil
}

// Terminals returns every terminal whose connectable bus is cb, connected
// or not.
func (cb *ConfiguredBus) Terminals() []*Terminal {
	var out []*Terminal
	for _, t := range cb.vl.terminals {
		if t.bus == cb.id {
			out = append(out, t)
		}
	}
	return out
}

// ConnectedTerminals returns the terminals connected to cb in variant v.
func (cb *ConfiguredBus) ConnectedTerminals(v Variant) []*Terminal {
	var out []*Terminal
	slot := v.index()
	for _, t := range cb.Terminals() {
		if t.state.values[slot].connected {
			out = append(out, t)
		}
	}
	return out
}

// Remove deletes the bus. It fails while terminals or switches use it.
func (cb *ConfiguredBus) Remove() error {
	n, err := cb.vl.checkMutable()
	if err != nil {
		return err
	}
	if cb.removed {
		return errors.IllegalState("bus %q has already been removed", cb.id)
	}
	if ts := cb.Terminals(); len(ts) > 0 {
		return errors.IllegalState("bus %q still has %d terminal(s)", cb.id, len(ts))
	}
	bb := cb.vl.topo.(*busBreakerTopology)
	for _, sw := range bb.sws {
		if sw.bus1 == cb.id || sw.bus2 == cb.id {
			return errors.IllegalState("bus %q is an end of switch %q", cb.id, sw.id)
		}
	}
	if i := slices.Index(bb.buses, cb); i >= 0 {
		bb.buses = slices.Delete(bb.buses, i, i+1)
	}
	n.unregister(cb)
	n.invalidateTopology(-1, cb.vl)
	return nil
}
