package network

import (
	"math"
	"slices"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// TopologyKind selects how a voltage level describes its connectivity.
type TopologyKind int

const (
	// BusBreaker levels declare buses joined by switches.
	BusBreaker TopologyKind = iota
	// NodeBreaker levels declare integer nodes joined by switches and
	// internal connections.
	NodeBreaker
)

func (k TopologyKind) String() string {
	if k == NodeBreaker {
		return "NODE_BREAKER"
	}
	return "BUS_BREAKER"
}

// ParseTopologyKind parses "BUS_BREAKER" or "NODE_BREAKER".
func ParseTopologyKind(s string) (TopologyKind, error) {
	switch s {
	case "BUS_BREAKER", "":
		return BusBreaker, nil
	case "NODE_BREAKER":
		return NodeBreaker, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown topology kind %q", s)
}

// VoltageLevel is a set of equipment at one nominal voltage.
type VoltageLevel struct {
	identifiable
	substation       *Substation
	subNetwork       string
	nominalV         float64
	lowVoltageLimit  float64
	highVoltageLimit float64
	kind             TopologyKind
	topo             topologyModel
	terminals        []*Terminal
	caches           perVariant[*topologyCache]
}

// VoltageLevelAdder describes a voltage level to create. Limits that are
// zero or NaN are left unset.
type VoltageLevelAdder struct {
	ID               string
	Name             string
	Fictitious       bool
	NominalV         float64
	LowVoltageLimit  float64
	HighVoltageLimit float64
	TopologyKind     TopologyKind
}

// AddVoltageLevel creates a voltage level in the substation.
func (s *Substation) AddVoltageLevel(a VoltageLevelAdder) (*VoltageLevel, error) {
	n := s.Network()
	if n == nil {
		return nil, errors.IllegalState("substation %q has been removed", s.id)
	}
	vl, err := n.addVoltageLevel(s, a)
	if err != nil {
		return nil, err
	}
	s.vls = append(s.vls, vl)
	return vl, nil
}

// AddVoltageLevel creates a voltage level outside any substation.
func (n *Network) AddVoltageLevel(a VoltageLevelAdder) (*VoltageLevel, error) {
	return n.addVoltageLevel(nil, a)
}

func (n *Network) addVoltageLevel(s *Substation, a VoltageLevelAdder) (*VoltageLevel, error) {
	if err := n.checkNewID("voltage level", a.ID); err != nil {
		return nil, err
	}
	c := newChecker(n, "voltage level", a.ID)
	if err := c.equipment(a.NominalV > 0, "nominal voltage %v is invalid", a.NominalV); err != nil {
		return nil, err
	}
	low, high := limit(a.LowVoltageLimit), limit(a.HighVoltageLimit)
	if isSet(low) && isSet(high) {
		if err := c.equipment(low <= high, "low voltage limit %v above high voltage limit %v", low, high); err != nil {
			return nil, err
		}
	}
	if a.TopologyKind != BusBreaker && a.TopologyKind != NodeBreaker {
		return nil, errors.Validation("voltage level %q: unknown topology kind %d", a.ID, a.TopologyKind)
	}

	vl := &VoltageLevel{
		substation:       s,
		nominalV:         a.NominalV,
		lowVoltageLimit:  low,
		highVoltageLimit: high,
		kind:             a.TopologyKind,
		caches:           newPerVariantFunc(n.variants.VariantArraySize(), newTopologyCache),
	}
	vl.init(vl, n.ref, a.ID, a.Name, a.Fictitious)
	vl.track(&vl.caches)
	if a.TopologyKind == NodeBreaker {
		nb := newNodeBreakerTopology(vl, n.variants.VariantArraySize())
		vl.topo = nb
		vl.track(&nb.voltages)
	} else {
		vl.topo = &busBreakerTopology{vl: vl}
	}
	if err := n.register(vl, ValidationSteadyStateHypothesis); err != nil {
		return nil, err
	}
	return vl, nil
}

func limit(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return math.NaN()
	}
	return v
}

func (vl *VoltageLevel) Type() IdentifiableType { return TypeVoltageLevel }

// Substation returns the owning substation, or nil for a substation-less
// voltage level.
func (vl *VoltageLevel) Substation() *Substation { return vl.substation }

func (vl *VoltageLevel) NominalV() float64 { return vl.nominalV }

func (vl *VoltageLevel) SetNominalV(v float64) error {
	if v <= 0 || math.IsNaN(v) {
		return errors.Validation("voltage level %q: nominal voltage %v is invalid", vl.id, v)
	}
	old := vl.nominalV
	vl.nominalV = v
	vl.notifyUpdate("nominalV", "", old, v)
	return nil
}

func (vl *VoltageLevel) LowVoltageLimit() float64  { return vl.lowVoltageLimit }
func (vl *VoltageLevel) HighVoltageLimit() float64 { return vl.highVoltageLimit }

func (vl *VoltageLevel) TopologyKind() TopologyKind { return vl.kind }

// SubNetworkID returns the sub-network the level came from, or "".
func (vl *VoltageLevel) SubNetworkID() string {
	if vl.substation != nil && vl.substation.subNetwork != "" {
		return vl.substation.subNetwork
	}
	return vl.subNetwork
}

// Terminals returns every terminal attached to the level, in attach order.
func (vl *VoltageLevel) Terminals() []*Terminal { return slices.Clone(vl.terminals) }

// Connectables returns the distinct elements attached to the level.
func (vl *VoltageLevel) Connectables() []Connectable {
	var out []Connectable
	seen := make(map[Connectable]bool)
	for _, t := range vl.terminals {
		if !seen[t.owner] {
			seen[t.owner] = true
			out = append(out, t.owner)
		}
	}
	return out
}

func connectablesOf[T Connectable](vl *VoltageLevel) []T {
	var out []T
	for _, c := range vl.Connectables() {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func (vl *VoltageLevel) Loads() []*Load                 { return connectablesOf[*Load](vl) }
func (vl *VoltageLevel) Generators() []*Generator       { return connectablesOf[*Generator](vl) }
func (vl *VoltageLevel) DanglingLines() []*DanglingLine { return connectablesOf[*DanglingLine](vl) }
func (vl *VoltageLevel) BusbarSections() []*BusbarSection {
	return connectablesOf[*BusbarSection](vl)
}
func (vl *VoltageLevel) ConverterStations() []*VscConverterStation {
	return connectablesOf[*VscConverterStation](vl)
}

// Switches returns the switches of the level in creation order.
func (vl *VoltageLevel) Switches() []*Switch { return vl.topo.switches() }

// ConfiguredBuses returns the declared buses of a bus-breaker level.
func (vl *VoltageLevel) ConfiguredBuses() []*ConfiguredBus {
	if bb, ok := vl.topo.(*busBreakerTopology); ok {
		return slices.Clone(bb.buses)
	}
	return nil
}

func (vl *VoltageLevel) addTerminal(t *Terminal) {
	vl.terminals = append(vl.terminals, t)
}

func (vl *VoltageLevel) removeTerminal(t *Terminal) {
	if i := slices.Index(vl.terminals, t); i >= 0 {
		vl.terminals = slices.Delete(vl.terminals, i, i+1)
	}
}

func (vl *VoltageLevel) checkMutable() (*Network, error) {
	n := vl.Network()
	if n == nil {
		return nil, errors.IllegalState("voltage level %q has been removed", vl.id)
	}
	if err := n.checkLive(); err != nil {
		return nil, err
	}
	return n, nil
}

// Remove deletes the level together with its switches and configured buses.
// It fails while equipment is still attached.
func (vl *VoltageLevel) Remove() error {
	n, err := vl.checkMutable()
	if err != nil {
		return err
	}
	if len(vl.terminals) > 0 {
		return errors.IllegalState("voltage level %q still has %d connected terminal(s)", vl.id, len(vl.terminals))
	}
	for _, sw := range vl.topo.switches() {
		n.unregister(sw)
	}
	for _, b := range vl.ConfiguredBuses() {
		n.unregister(b)
	}
	if vl.substation != nil {
		if i := slices.Index(vl.substation.vls, vl); i >= 0 {
			vl.substation.vls = slices.Delete(vl.substation.vls, i, i+1)
		}
	}
	n.unregister(vl)
	n.invalidateTopology(-1)
	return nil
}
