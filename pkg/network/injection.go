package network

import (
	"math"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// mutable returns the owning network if the element can still be modified.
func (b *identifiable) mutable() (*Network, error) {
	n := b.Network()
	if n == nil {
		return nil, errors.IllegalState("%s has been removed", describe(b.self))
	}
	if err := n.checkLive(); err != nil {
		return nil, err
	}
	return n, nil
}

// injection is the part shared by single-terminal elements.
type injection struct {
	identifiable
	terminal *Terminal
}

func (i *injection) Terminal() *Terminal { return i.terminal }

func (i *injection) Terminals() []*Terminal { return []*Terminal{i.terminal} }

func (i *injection) VoltageLevel() *VoltageLevel { return i.terminal.vl }

// setup initializes an injection created in vl.
func (i *injection) setup(self Connectable, n *Network, vl *VoltageLevel, id, name string, fictitious bool) {
	i.init(self, n.ref, id, name, fictitious)
	i.terminal = newTerminal(self, vl, SideNone, n.variants.VariantArraySize())
	i.track(&i.terminal.state)
}

// =============================================================================
// Load
// =============================================================================

type loadState struct {
	p0, q0 float64
}

// Load consumes P0 and Q0 (per variant).
type Load struct {
	injection
	state perVariant[loadState]
}

// LoadAdder describes a load to create.
type LoadAdder struct {
	ID         string
	Name       string
	Fictitious bool
	Connection Connection
	P0, Q0     float64
}

func checkLoadValues(c *checker, p0, q0 float64) error {
	if err := c.ssh(isSet(p0), "p0 is invalid"); err != nil {
		return err
	}
	return c.ssh(isSet(q0), "q0 is invalid")
}

// AddLoad creates a load in the voltage level.
func (vl *VoltageLevel) AddLoad(a LoadAdder) (*Load, error) {
	n, err := vl.checkMutable()
	if err != nil {
		return nil, err
	}
	if err := n.checkNewID("load", a.ID); err != nil {
		return nil, err
	}
	c := newChecker(n, "load", a.ID)
	if err := checkLoadValues(c, a.P0, a.Q0); err != nil {
		return nil, err
	}
	l := &Load{state: newPerVariant(n.variants.VariantArraySize(), loadState{a.P0, a.Q0})}
	l.setup(l, n, vl, a.ID, a.Name, a.Fictitious)
	l.track(&l.state)
	if err := n.addConnectable(l, []Connection{a.Connection}, c.level); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Load) Type() IdentifiableType { return TypeLoad }

func (l *Load) P0(v Variant) float64 { return l.state.values[v.index()].p0 }
func (l *Load) Q0(v Variant) float64 { return l.state.values[v.index()].q0 }

func (l *Load) SetP0(v Variant, p0 float64) error {
	return l.set(v, "p0", p0, func(s *loadState) *float64 { return &s.p0 })
}

func (l *Load) SetQ0(v Variant, q0 float64) error {
	return l.set(v, "q0", q0, func(s *loadState) *float64 { return &s.q0 })
}

func (l *Load) set(v Variant, attr string, value float64, field func(*loadState) *float64) error {
	n, err := l.mutable()
	if err != nil {
		return err
	}
	c := newChecker(n, "load", l.id)
	if err := c.ssh(isSet(value), "%s is invalid", attr); err != nil {
		return err
	}
	p := field(&l.state.values[v.index()])
	old := *p
	*p = value
	n.recordValidationLevel(l.validationLevel())
	l.notifyUpdate(attr, v.ID(), old, value)
	return nil
}

func (l *Load) validationLevel() ValidationLevel {
	for _, s := range l.state.values {
		if math.IsNaN(s.p0) || math.IsNaN(s.q0) {
			return ValidationEquipment
		}
	}
	return ValidationSteadyStateHypothesis
}

func (l *Load) Remove() error { return removeConnectable(l) }

// =============================================================================
// Generator
// =============================================================================

type generatorState struct {
	targetP, targetQ, targetV float64
	regulating                bool
}

// Generator produces TargetP and either regulates voltage to TargetV or
// produces TargetQ.
type Generator struct {
	injection
	minP, maxP float64
	state      perVariant[generatorState]
}

// GeneratorAdder describes a generator to create.
type GeneratorAdder struct {
	ID                 string
	Name               string
	Fictitious         bool
	Connection         Connection
	MinP, MaxP         float64
	TargetP            float64
	TargetQ            float64
	TargetV            float64
	VoltageRegulatorOn bool
}

func checkGeneratorValues(c *checker, s generatorState) error {
	if err := c.ssh(isSet(s.targetP), "target P is invalid"); err != nil {
		return err
	}
	if s.regulating {
		return c.ssh(isSet(s.targetV) && s.targetV > 0, "invalid target V %v with voltage regulation on", s.targetV)
	}
	return c.ssh(isSet(s.targetQ), "target Q is invalid with voltage regulation off")
}

// AddGenerator creates a generator in the voltage level.
func (vl *VoltageLevel) AddGenerator(a GeneratorAdder) (*Generator, error) {
	n, err := vl.checkMutable()
	if err != nil {
		return nil, err
	}
	if err := n.checkNewID("generator", a.ID); err != nil {
		return nil, err
	}
	c := newChecker(n, "generator", a.ID)
	if err := c.equipment(isSet(a.MinP) && isSet(a.MaxP), "min/max P are invalid"); err != nil {
		return nil, err
	}
	if err := c.equipment(a.MinP <= a.MaxP, "min P %v above max P %v", a.MinP, a.MaxP); err != nil {
		return nil, err
	}
	initial := generatorState{targetP: a.TargetP, targetQ: a.TargetQ, targetV: a.TargetV, regulating: a.VoltageRegulatorOn}
	if err := checkGeneratorValues(c, initial); err != nil {
		return nil, err
	}
	g := &Generator{
		minP:  a.MinP,
		maxP:  a.MaxP,
		state: newPerVariant(n.variants.VariantArraySize(), initial),
	}
	g.setup(g, n, vl, a.ID, a.Name, a.Fictitious)
	g.track(&g.state)
	if err := n.addConnectable(g, []Connection{a.Connection}, c.level); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Generator) Type() IdentifiableType { return TypeGenerator }

func (g *Generator) MinP() float64 { return g.minP }
func (g *Generator) MaxP() float64 { return g.maxP }

func (g *Generator) TargetP(v Variant) float64 { return g.state.values[v.index()].targetP }
func (g *Generator) TargetQ(v Variant) float64 { return g.state.values[v.index()].targetQ }
func (g *Generator) TargetV(v Variant) float64 { return g.state.values[v.index()].targetV }

func (g *Generator) IsVoltageRegulatorOn(v Variant) bool {
	return g.state.values[v.index()].regulating
}

func (g *Generator) SetTargetP(v Variant, p float64) error {
	return g.update(v, "targetP", func(s *generatorState) (any, any) {
		old := s.targetP
		s.targetP = p
		return old, p
	})
}

func (g *Generator) SetTargetQ(v Variant, q float64) error {
	return g.update(v, "targetQ", func(s *generatorState) (any, any) {
		old := s.targetQ
		s.targetQ = q
		return old, q
	})
}

func (g *Generator) SetTargetV(v Variant, target float64) error {
	return g.update(v, "targetV", func(s *generatorState) (any, any) {
		old := s.targetV
		s.targetV = target
		return old, target
	})
}

func (g *Generator) SetVoltageRegulatorOn(v Variant, on bool) error {
	return g.update(v, "voltageRegulatorOn", func(s *generatorState) (any, any) {
		old := s.regulating
		s.regulating = on
		return old, on
	})
}

// update applies fn to a copy of the state of v, checks the result and
// commits it.
func (g *Generator) update(v Variant, attr string, fn func(*generatorState) (any, any)) error {
	n, err := g.mutable()
	if err != nil {
		return err
	}
	slot := v.index()
	next := g.state.values[slot]
	old, value := fn(&next)
	c := newChecker(n, "generator", g.id)
	if err := checkGeneratorValues(c, next); err != nil {
		return err
	}
	g.state.values[slot] = next
	n.recordValidationLevel(g.validationLevel())
	g.notifyUpdate(attr, v.ID(), old, value)
	return nil
}

func (g *Generator) validationLevel() ValidationLevel {
	c := &checker{min: ValidationEquipment, level: ValidationSteadyStateHypothesis}
	for _, s := range g.state.values {
		_ = checkGeneratorValues(c, s)
	}
	return c.level
}

func (g *Generator) Remove() error { return removeConnectable(g) }

// =============================================================================
// BusbarSection
// =============================================================================

// BusbarSection is the node-breaker element materializing a busbar.
type BusbarSection struct {
	injection
}

// BusbarSectionAdder describes a busbar section to create.
type BusbarSectionAdder struct {
	ID         string
	Name       string
	Fictitious bool
	Node       int
}

// AddBusbarSection creates a busbar section in a node-breaker level.
func (vl *VoltageLevel) AddBusbarSection(a BusbarSectionAdder) (*BusbarSection, error) {
	n, err := vl.checkMutable()
	if err != nil {
		return nil, err
	}
	if vl.kind != NodeBreaker {
		return nil, errors.IllegalState("voltage level %q is not node-breaker", vl.id)
	}
	if err := n.checkNewID("busbar section", a.ID); err != nil {
		return nil, err
	}
	b := &BusbarSection{}
	b.setup(b, n, vl, a.ID, a.Name, a.Fictitious)
	if err := n.addConnectable(b, []Connection{{Node: a.Node}}, ValidationSteadyStateHypothesis); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BusbarSection) Type() IdentifiableType { return TypeBusbarSection }

// V returns the voltage of the bus the section belongs to in variant v.
func (b *BusbarSection) V(v Variant) float64 {
	if bus, ok := b.terminal.Bus(v); ok {
		return bus.V()
	}
	return math.NaN()
}

// Angle returns the voltage angle of the bus the section belongs to.
func (b *BusbarSection) Angle(v Variant) float64 {
	if bus, ok := b.terminal.Bus(v); ok {
		return bus.Angle()
	}
	return math.NaN()
}

func (b *BusbarSection) Remove() error { return removeConnectable(b) }

// =============================================================================
// VscConverterStation
// =============================================================================

// VscConverterStation is one end of an HVDC line.
type VscConverterStation struct {
	injection
	lossFactor float64
	hvdcLine   *HvdcLine
}

// ConverterStationAdder describes a converter station to create.
type ConverterStationAdder struct {
	ID         string
	Name       string
	Fictitious bool
	Connection Connection
	LossFactor float64 // percent of the transmitted power
}

// AddConverterStation creates a VSC converter station in the voltage level.
func (vl *VoltageLevel) AddConverterStation(a ConverterStationAdder) (*VscConverterStation, error) {
	n, err := vl.checkMutable()
	if err != nil {
		return nil, err
	}
	if err := n.checkNewID("converter station", a.ID); err != nil {
		return nil, err
	}
	c := newChecker(n, "converter station", a.ID)
	if err := c.equipment(a.LossFactor >= 0 && a.LossFactor <= 100, "loss factor %v outside [0, 100]", a.LossFactor); err != nil {
		return nil, err
	}
	cs := &VscConverterStation{lossFactor: a.LossFactor}
	cs.setup(cs, n, vl, a.ID, a.Name, a.Fictitious)
	if err := n.addConnectable(cs, []Connection{a.Connection}, ValidationSteadyStateHypothesis); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *VscConverterStation) Type() IdentifiableType { return TypeHvdcConverterStation }

func (cs *VscConverterStation) LossFactor() float64 { return cs.lossFactor }

// HvdcLine returns the HVDC line the station belongs to, nil if none.
func (cs *VscConverterStation) HvdcLine() *HvdcLine { return cs.hvdcLine }

// Remove deletes the station. It fails while an HVDC line uses it.
func (cs *VscConverterStation) Remove() error {
	if cs.hvdcLine != nil {
		return errors.IllegalState("converter station %q is used by HVDC line %q", cs.id, cs.hvdcLine.id)
	}
	return removeConnectable(cs)
}
