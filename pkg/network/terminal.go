package network

import (
	"math"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// Side identifies a terminal of a two-terminal element.
type Side int

const (
	SideNone Side = iota
	SideOne
	SideTwo
)

func (s Side) String() string {
	switch s {
	case SideOne:
		return "ONE"
	case SideTwo:
		return "TWO"
	default:
		return "NONE"
	}
}

// Connection tells where a new terminal attaches. In a bus-breaker level,
// Bus connects the terminal and ConnectableBus leaves it disconnected but
// connectable; when both are set they must be equal. In a node-breaker
// level, Node is used.
type Connection struct {
	Bus            string
	ConnectableBus string
	Node           int
}

// Connectable is an element attached to voltage levels through terminals.
type Connectable interface {
	Identifiable
	Terminals() []*Terminal
	Remove() error
}

type terminalState struct {
	p, q      float64
	connected bool
}

// Terminal attaches an element to a voltage level.
type Terminal struct {
	owner Connectable
	vl    *VoltageLevel
	side  Side
	node  int
	bus   string
	state perVariant[terminalState]
}

func newTerminal(owner Connectable, vl *VoltageLevel, side Side, size int) *Terminal {
	return &Terminal{
		owner: owner,
		vl:    vl,
		side:  side,
		node:  -1,
		state: newPerVariant(size, terminalState{p: math.NaN(), q: math.NaN()}),
	}
}

func (t *Terminal) Connectable() Connectable { return t.owner }

func (t *Terminal) VoltageLevel() *VoltageLevel { return t.vl }

func (t *Terminal) Side() Side { return t.side }

// Node returns the node of a node-breaker terminal, -1 otherwise.
func (t *Terminal) Node() int { return t.node }

// ConnectableBusID returns the configured bus of a bus-breaker terminal.
func (t *Terminal) ConnectableBusID() string { return t.bus }

// P returns the active power flowing from the bus into the element, in MW.
func (t *Terminal) P(v Variant) float64 { return t.state.values[v.index()].p }

// Q returns the reactive power flowing from the bus into the element, in MVar.
func (t *Terminal) Q(v Variant) float64 { return t.state.values[v.index()].q }

func (t *Terminal) SetP(v Variant, p float64) {
	s := &t.state.values[v.index()]
	old := s.p
	s.p = p
	t.owner.core().notifyUpdate("p"+t.sideSuffix(), v.ID(), old, p)
}

func (t *Terminal) SetQ(v Variant, q float64) {
	s := &t.state.values[v.index()]
	old := s.q
	s.q = q
	t.owner.core().notifyUpdate("q"+t.sideSuffix(), v.ID(), old, q)
}

func (t *Terminal) sideSuffix() string {
	switch t.side {
	case SideOne:
		return "1"
	case SideTwo:
		return "2"
	}
	return ""
}

// IsConnected reports whether the terminal is connected in variant v: set
// connected on its configured bus, or reaching the rest of its node-breaker
// level through closed switches.
func (t *Terminal) IsConnected(v Variant) bool {
	return t.vl.topo.isConnected(t, v)
}

// Bus returns the bus-view bus of the terminal in variant v.
func (t *Terminal) Bus(v Variant) (*Bus, bool) {
	return t.vl.BusView(v).BusOf(t)
}

// BusBreakerBus returns the bus-breaker-view bus of the terminal in
// variant v.
func (t *Terminal) BusBreakerBus(v Variant) (*Bus, bool) {
	return t.vl.BusBreakerView(v).BusOf(t)
}

// Connect connects the terminal in variant v. It reports whether anything
// changed.
func (t *Terminal) Connect(v Variant) (bool, error) {
	n, err := t.vl.checkMutable()
	if err != nil {
		return false, err
	}
	changed, err := t.vl.topo.connect(t, v)
	if err != nil || !changed {
		return false, err
	}
	n.invalidateTopology(v.index(), t.vl)
	t.owner.core().notifyUpdate("connected"+t.sideSuffix(), v.ID(), false, true)
	return true, nil
}

// Disconnect disconnects the terminal in variant v. In a node-breaker
// level it opens the breakers isolating the terminal; it fails without
// change when no breaker does.
func (t *Terminal) Disconnect(v Variant) (bool, error) {
	n, err := t.vl.checkMutable()
	if err != nil {
		return false, err
	}
	changed, err := t.vl.topo.disconnect(t, v)
	if err != nil || !changed {
		return false, err
	}
	n.invalidateTopology(v.index(), t.vl)
	t.owner.core().notifyUpdate("connected"+t.sideSuffix(), v.ID(), true, false)
	return true, nil
}

// attachTerminals binds terminals to their levels; on failure, the
// terminals already bound are released.
func attachTerminals(ts []*Terminal, conns []Connection) error {
	for i, t := range ts {
		if err := t.vl.topo.attach(t, conns[i]); err != nil {
			for _, done := range ts[:i] {
				done.vl.topo.detach(done)
			}
			return err
		}
	}
	for _, t := range ts {
		t.vl.addTerminal(t)
	}
	return nil
}

func detachTerminals(ts []*Terminal) {
	for _, t := range ts {
		t.vl.topo.detach(t)
		t.vl.removeTerminal(t)
	}
}

// addConnectable completes the creation of a connectable: binds its
// terminals, registers it and invalidates the topology of its levels.
func (n *Network) addConnectable(c Connectable, conns []Connection, level ValidationLevel) error {
	ts := c.Terminals()
	if err := attachTerminals(ts, conns); err != nil {
		return err
	}
	if err := n.register(c, level); err != nil {
		detachTerminals(ts)
		return err
	}
	n.invalidateTopology(-1, terminalLevels(ts)...)
	return nil
}

// removeConnectable detaches and unregisters c.
func removeConnectable(c Connectable) error {
	n := c.Network()
	if n == nil {
		return errors.IllegalState("%s has already been removed", describe(c))
	}
	if err := n.checkLive(); err != nil {
		return err
	}
	ts := c.Terminals()
	n.notifyBeforeRemoval(c)
	detachTerminals(ts)
	id := c.ID()
	n.index.remove(c)
	c.core().removed = true
	n.forgetValidationLevel()
	n.invalidateTopology(-1, terminalLevels(ts)...)
	n.notifyAfterRemoval(id)
	return nil
}

func terminalLevels(ts []*Terminal) []*VoltageLevel {
	var out []*VoltageLevel
	for _, t := range ts {
		dup := false
		for _, vl := range out {
			dup = dup || vl == t.vl
		}
		if !dup {
			out = append(out, t.vl)
		}
	}
	return out
}
