package network

import (
	"github.com/matzehuels/gridcore/pkg/errors"
)

// branch is the part shared by two-terminal elements.
type branch struct {
	identifiable
	t1, t2 *Terminal
}

func (br *branch) Terminal1() *Terminal { return br.t1 }
func (br *branch) Terminal2() *Terminal { return br.t2 }

func (br *branch) Terminals() []*Terminal { return []*Terminal{br.t1, br.t2} }

// Terminal returns the terminal of the given side.
func (br *branch) Terminal(side Side) *Terminal {
	if side == SideTwo {
		return br.t2
	}
	return br.t1
}

func (br *branch) other(t *Terminal) *Terminal {
	if t == br.t1 {
		return br.t2
	}
	return br.t1
}

// resolveLevels finds both voltage levels of a new branch.
func (n *Network) resolveLevels(kind, id, vl1, vl2 string) (*VoltageLevel, *VoltageLevel, error) {
	l1, ok := n.VoltageLevel(vl1)
	if !ok {
		return nil, nil, errors.Validation("%s %q: voltage level %q not found", kind, id, vl1)
	}
	l2, ok := n.VoltageLevel(vl2)
	if !ok {
		return nil, nil, errors.Validation("%s %q: voltage level %q not found", kind, id, vl2)
	}
	return l1, l2, nil
}

func (br *branch) setup(self Connectable, n *Network, vl1, vl2 *VoltageLevel, id, name string, fictitious bool) {
	size := n.variants.VariantArraySize()
	br.init(self, n.ref, id, name, fictitious)
	br.t1 = newTerminal(self, vl1, SideOne, size)
	br.t2 = newTerminal(self, vl2, SideTwo, size)
	br.track(&br.t1.state, &br.t2.state)
}

// =============================================================================
// Line
// =============================================================================

// Line is an AC line modelled as a pi circuit.
type Line struct {
	branch
	r, x, g1, b1, g2, b2 float64
}

// LineAdder describes a line to create.
type LineAdder struct {
	ID            string
	Name          string
	Fictitious    bool
	R, X          float64
	G1, B1        float64
	G2, B2        float64
	VoltageLevel1 string
	Connection1   Connection
	VoltageLevel2 string
	Connection2   Connection
}

// AddLine creates a line between two voltage levels.
func (n *Network) AddLine(a LineAdder) (*Line, error) {
	if err := n.checkNewID("line", a.ID); err != nil {
		return nil, err
	}
	vl1, vl2, err := n.resolveLevels("line", a.ID, a.VoltageLevel1, a.VoltageLevel2)
	if err != nil {
		return nil, err
	}
	c := newChecker(n, "line", a.ID)
	if err := checkImpedance(c, a.R, a.X); err != nil {
		return nil, err
	}
	if err := checkAdmittance(c, [2]string{"g1", "b1"}, a.G1, a.B1); err != nil {
		return nil, err
	}
	if err := checkAdmittance(c, [2]string{"g2", "b2"}, a.G2, a.B2); err != nil {
		return nil, err
	}
	l := &Line{r: a.R, x: a.X, g1: a.G1, b1: a.B1, g2: a.G2, b2: a.B2}
	l.setup(l, n, vl1, vl2, a.ID, a.Name, a.Fictitious)
	if err := n.addConnectable(l, []Connection{a.Connection1, a.Connection2}, ValidationSteadyStateHypothesis); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Line) Type() IdentifiableType { return TypeLine }

func (l *Line) R() float64  { return l.r }
func (l *Line) X() float64  { return l.x }
func (l *Line) G1() float64 { return l.g1 }
func (l *Line) B1() float64 { return l.b1 }
func (l *Line) G2() float64 { return l.g2 }
func (l *Line) B2() float64 { return l.b2 }

func (l *Line) Remove() error { return removeConnectable(l) }

// =============================================================================
// TwoWindingsTransformer
// =============================================================================

// TwoWindingsTransformer links two voltage levels of one substation.
type TwoWindingsTransformer struct {
	branch
	substation       *Substation
	r, x, g, b       float64
	ratedU1, ratedU2 float64
}

// TwoWindingsTransformerAdder describes a transformer to create. Rated
// voltages default to the nominal voltages of the levels.
type TwoWindingsTransformerAdder struct {
	ID               string
	Name             string
	Fictitious       bool
	R, X, G, B       float64
	RatedU1, RatedU2 float64
	VoltageLevel1    string
	Connection1      Connection
	VoltageLevel2    string
	Connection2      Connection
}

// AddTwoWindingsTransformer creates a transformer between two voltage levels
// of the substation.
func (s *Substation) AddTwoWindingsTransformer(a TwoWindingsTransformerAdder) (*TwoWindingsTransformer, error) {
	n, err := s.mutable()
	if err != nil {
		return nil, err
	}
	if err := n.checkNewID("transformer", a.ID); err != nil {
		return nil, err
	}
	vl1, vl2, err := n.resolveLevels("transformer", a.ID, a.VoltageLevel1, a.VoltageLevel2)
	if err != nil {
		return nil, err
	}
	if vl1.substation != s || vl2.substation != s {
		return nil, errors.Validation("transformer %q: both voltage levels must belong to substation %q", a.ID, s.id)
	}
	c := newChecker(n, "transformer", a.ID)
	if err := checkImpedance(c, a.R, a.X); err != nil {
		return nil, err
	}
	if err := checkAdmittance(c, [2]string{"g", "b"}, a.G, a.B); err != nil {
		return nil, err
	}
	ratedU1, ratedU2 := a.RatedU1, a.RatedU2
	if ratedU1 <= 0 {
		ratedU1 = vl1.nominalV
	}
	if ratedU2 <= 0 {
		ratedU2 = vl2.nominalV
	}
	t := &TwoWindingsTransformer{
		substation: s,
		r:          a.R, x: a.X, g: a.G, b: a.B,
		ratedU1: ratedU1, ratedU2: ratedU2,
	}
	t.setup(t, n, vl1, vl2, a.ID, a.Name, a.Fictitious)
	if err := n.addConnectable(t, []Connection{a.Connection1, a.Connection2}, ValidationSteadyStateHypothesis); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TwoWindingsTransformer) Type() IdentifiableType { return TypeTwoWindingsTransformer }

func (t *TwoWindingsTransformer) Substation() *Substation { return t.substation }

func (t *TwoWindingsTransformer) R() float64       { return t.r }
func (t *TwoWindingsTransformer) X() float64       { return t.x }
func (t *TwoWindingsTransformer) G() float64       { return t.g }
func (t *TwoWindingsTransformer) B() float64       { return t.b }
func (t *TwoWindingsTransformer) RatedU1() float64 { return t.ratedU1 }
func (t *TwoWindingsTransformer) RatedU2() float64 { return t.ratedU2 }

func (t *TwoWindingsTransformer) Remove() error { return removeConnectable(t) }
