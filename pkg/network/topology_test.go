package network

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridcore/pkg/errors"
)

func busIDs(buses []*Bus) []string {
	out := make([]string, len(buses))
	for i, b := range buses {
		out[i] = b.ID()
	}
	return out
}

func TestBusBreaker_Views(t *testing.T) {
	n := mustNew(t, "n1")
	vl := busBreakerLevel(t, n, "1", "b1", "b2", "b3")
	addLoad(t, vl, "l1", Connection{Bus: "b1"})
	addLoad(t, vl, "l3", Connection{Bus: "b3"})
	if _, err := vl.AddGenerator(GeneratorAdder{ID: "g2", Connection: Connection{Bus: "b2"}, MaxP: 100, TargetP: 50, TargetQ: 0}); err != nil {
		t.Fatalf("AddGenerator() error = %v", err)
	}
	sw1, err := vl.AddSwitch(SwitchAdder{ID: "sw1", Kind: Breaker, Bus1: "b1", Bus2: "b2"})
	if err != nil {
		t.Fatalf("AddSwitch() error = %v", err)
	}
	if _, err := vl.AddSwitch(SwitchAdder{ID: "sw2", Kind: Breaker, Bus1: "b2", Bus2: "b3", Open: true}); err != nil {
		t.Fatalf("AddSwitch() error = %v", err)
	}
	v := n.Working()

	if got, want := busIDs(vl.BusBreakerView(v).Buses()), []string{"b1", "b2", "b3"}; !slices.Equal(got, want) {
		t.Errorf("BusBreakerView().Buses() = %v, want %v", got, want)
	}
	bv := vl.BusView(v)
	if got, want := busIDs(bv.Buses()), []string{"vl1_0", "vl1_1"}; !slices.Equal(got, want) {
		t.Fatalf("BusView().Buses() = %v, want %v", got, want)
	}
	merged, _ := bv.BusOfConfigured("b2")
	if got := len(merged.ConnectedTerminals()); got != 2 {
		t.Errorf("len(ConnectedTerminals()) = %d, want 2", got)
	}

	if err := sw1.SetOpen(v, true); err != nil {
		t.Fatalf("SetOpen() error = %v", err)
	}
	if got := vl.BusView(v).Len(); got != 3 {
		t.Errorf("BusView().Len() after opening sw1 = %d, want 3", got)
	}
	// the snapshot taken before the change is unaffected
	if got := bv.Len(); got != 2 {
		t.Errorf("old BusView().Len() = %d, want 2", got)
	}
}

func TestBusBreaker_MergedBusNeedsTerminal(t *testing.T) {
	n := mustNew(t, "n1")
	vl := busBreakerLevel(t, n, "1", "b1", "b2")
	addLoad(t, vl, "l1", Connection{Bus: "b1"})

	if got, want := busIDs(vl.BusView(n.Working()).Buses()), []string{"vl1_0"}; !slices.Equal(got, want) {
		t.Errorf("BusView().Buses() = %v, want %v", got, want)
	}
	if got := vl.BusBreakerView(n.Working()).Len(); got != 2 {
		t.Errorf("BusBreakerView().Len() = %d, want 2", got)
	}
}

func TestBusBreaker_ConnectDisconnect(t *testing.T) {
	n := mustNew(t, "n1")
	vl := busBreakerLevel(t, n, "1", "b1")
	l := addLoad(t, vl, "l1", Connection{ConnectableBus: "b1"})
	v := n.Working()

	if l.Terminal().IsConnected(v) {
		t.Error("IsConnected() = true for a connectable-only terminal")
	}
	if _, ok := l.Terminal().Bus(v); ok {
		t.Error("Bus() found a bus for a disconnected terminal")
	}

	changed, err := l.Terminal().Connect(v)
	if err != nil || !changed {
		t.Fatalf("Connect() = %v, %v, want true, nil", changed, err)
	}
	b, ok := l.Terminal().Bus(v)
	if !ok || b.ID() != "vl1_0" {
		t.Errorf("Bus() = %v, %v, want vl1_0", b, ok)
	}
	if changed, _ := l.Terminal().Connect(v); changed {
		t.Error("second Connect() reported a change")
	}

	if changed, err := l.Terminal().Disconnect(v); err != nil || !changed {
		t.Errorf("Disconnect() = %v, %v, want true, nil", changed, err)
	}
	if l.Terminal().IsConnected(v) {
		t.Error("IsConnected() = true after Disconnect()")
	}
}

func TestBusBreaker_InvalidConnection(t *testing.T) {
	n := mustNew(t, "n1")
	vl := busBreakerLevel(t, n, "1", "b1", "b2")

	tests := []struct {
		name string
		conn Connection
	}{
		{"unknown bus", Connection{Bus: "b9"}},
		{"no bus", Connection{}},
		{"mismatch", Connection{Bus: "b1", ConnectableBus: "b2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vl.AddLoad(LoadAdder{ID: "l1", Connection: tt.conn})
			if !errors.Is(err, errors.ErrCodeValidation) {
				t.Errorf("AddLoad() error = %v, want VALIDATION", err)
			}
		})
	}
	if _, ok := n.Load("l1"); ok {
		t.Error("a rejected load was registered")
	}
}

func TestSwitch_PerVariant(t *testing.T) {
	n := mustNew(t, "n1")
	vl := busBreakerLevel(t, n, "1", "b1", "b2")
	addLoad(t, vl, "l1", Connection{Bus: "b1"})
	addLoad(t, vl, "l2", Connection{Bus: "b2"})
	sw, _ := vl.AddSwitch(SwitchAdder{ID: "sw", Bus1: "b1", Bus2: "b2"})
	_ = n.Variants().CloneVariant(InitialVariantID, "v2")
	v2, _ := n.Variants().Variant("v2")

	_ = sw.SetOpen(v2, true)

	if sw.IsOpen(n.Working()) {
		t.Error("IsOpen(initial) = true, want false")
	}
	if got := vl.BusView(n.Working()).Len(); got != 1 {
		t.Errorf("BusView(initial).Len() = %d, want 1", got)
	}
	if got := vl.BusView(v2).Len(); got != 2 {
		t.Errorf("BusView(v2).Len() = %d, want 2", got)
	}
}

// nodeBreakerLevel builds a level with a busbar section on node 0 and two
// feeder bays, each a disconnector and a breaker:
//
//	0 -d1- 1 -br1- 2 (l1)
//	0 -d2- 3 -br2- 4 (g1)
func nodeBreakerLevel(t *testing.T) (*Network, *VoltageLevel) {
	t.Helper()
	n := mustNew(t, "n1")
	s, _ := n.AddSubstation(SubstationAdder{ID: "s1"})
	vl, err := s.AddVoltageLevel(VoltageLevelAdder{ID: "vl1", NominalV: 400, TopologyKind: NodeBreaker})
	if err != nil {
		t.Fatalf("AddVoltageLevel() error = %v", err)
	}
	if _, err := vl.AddBusbarSection(BusbarSectionAdder{ID: "bbs", Node: 0}); err != nil {
		t.Fatalf("AddBusbarSection() error = %v", err)
	}
	switches := []SwitchAdder{
		{ID: "d1", Kind: Disconnector, Node1: 0, Node2: 1},
		{ID: "br1", Kind: Breaker, Node1: 1, Node2: 2},
		{ID: "d2", Kind: Disconnector, Node1: 0, Node2: 3},
		{ID: "br2", Kind: Breaker, Node1: 3, Node2: 4},
	}
	for _, a := range switches {
		if _, err := vl.AddSwitch(a); err != nil {
			t.Fatalf("AddSwitch(%s) error = %v", a.ID, err)
		}
	}
	addLoad(t, vl, "l1", Connection{Node: 2})
	if _, err := vl.AddGenerator(GeneratorAdder{ID: "g1", Connection: Connection{Node: 4}, MaxP: 100, TargetP: 10, TargetQ: 0}); err != nil {
		t.Fatalf("AddGenerator() error = %v", err)
	}
	return n, vl
}

func TestNodeBreaker_Views(t *testing.T) {
	n, vl := nodeBreakerLevel(t)
	v := n.Working()

	bv := vl.BusView(v)
	if got, want := busIDs(bv.Buses()), []string{"vl1_0"}; !slices.Equal(got, want) {
		t.Fatalf("BusView().Buses() = %v, want %v", got, want)
	}
	if got := bv.Buses()[0].ConnectedTerminalCount(); got != 3 {
		t.Errorf("ConnectedTerminalCount() = %d, want 3", got)
	}
	if got, want := bv.Buses()[0].Nodes(), []int{0, 1, 2, 3, 4}; !slices.Equal(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}

	// retained breakers split the bus-breaker view
	if got, want := busIDs(vl.BusBreakerView(v).Buses()), []string{"vl1_0", "vl1_2", "vl1_4"}; !slices.Equal(got, want) {
		t.Errorf("BusBreakerView().Buses() = %v, want %v", got, want)
	}

	br1, _ := n.Switch("br1")
	if err := br1.SetRetained(false); err != nil {
		t.Fatalf("SetRetained() error = %v", err)
	}
	if got, want := busIDs(vl.BusBreakerView(v).Buses()), []string{"vl1_0", "vl1_4"}; !slices.Equal(got, want) {
		t.Errorf("BusBreakerView().Buses() after SetRetained(false) = %v, want %v", got, want)
	}
}

func TestNodeBreaker_DisconnectOpensBreaker(t *testing.T) {
	n, vl := nodeBreakerLevel(t)
	v := n.Working()
	l, _ := n.Load("l1")
	br1, _ := n.Switch("br1")

	changed, err := l.Terminal().Disconnect(v)
	if err != nil || !changed {
		t.Fatalf("Disconnect() = %v, %v, want true, nil", changed, err)
	}
	if !br1.IsOpen(v) {
		t.Error("br1 is closed after Disconnect()")
	}
	if l.Terminal().IsConnected(v) {
		t.Error("IsConnected() = true after Disconnect()")
	}
	if got := vl.BusView(v).Len(); got != 2 {
		t.Errorf("BusView().Len() = %d, want 2", got)
	}

	if changed, err := l.Terminal().Connect(v); err != nil || !changed {
		t.Errorf("Connect() = %v, %v, want true, nil", changed, err)
	}
	if br1.IsOpen(v) || !l.Terminal().IsConnected(v) {
		t.Error("Connect() did not close br1")
	}
}

func TestNodeBreaker_DisconnectNotifiesBreakers(t *testing.T) {
	n, _ := nodeBreakerLevel(t)
	v := n.Working()
	l, _ := n.Load("l1")
	rec := &recordingListener{}
	n.AddListener(rec)

	if _, err := l.Terminal().Disconnect(v); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if _, err := l.Terminal().Connect(v); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	// connecting again changes nothing and stays silent
	if changed, _ := l.Terminal().Connect(v); changed {
		t.Error("second Connect() reported a change")
	}

	want := []string{
		"update br1 open InitialState",
		"update l1 connected InitialState",
		"update br1 open InitialState",
		"update l1 connected InitialState",
	}
	if !slices.Equal(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestNodeBreaker_DisconnectWithoutBreaker(t *testing.T) {
	n, vl := nodeBreakerLevel(t)
	v := n.Working()
	if _, err := vl.AddSwitch(SwitchAdder{ID: "d3", Kind: Disconnector, Node1: 0, Node2: 5}); err != nil {
		t.Fatalf("AddSwitch() error = %v", err)
	}
	l3 := addLoad(t, vl, "l3", Connection{Node: 5})

	_, err := l3.Terminal().Disconnect(v)
	if !errors.Is(err, errors.ErrCodeIllegalState) {
		t.Errorf("Disconnect() error = %v, want ILLEGAL_STATE", err)
	}
	if !l3.Terminal().IsConnected(v) {
		t.Error("IsConnected() = false after a failed Disconnect()")
	}
}

func TestNodeBreaker_NodeAlreadyUsed(t *testing.T) {
	_, vl := nodeBreakerLevel(t)

	_, err := vl.AddLoad(LoadAdder{ID: "l9", Connection: Connection{Node: 2}})
	if !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("AddLoad(node 2) error = %v, want VALIDATION", err)
	}
	if _, err := vl.AddBus(BusAdder{ID: "b1"}); !errors.Is(err, errors.ErrCodeIllegalState) {
		t.Errorf("AddBus() error = %v, want ILLEGAL_STATE", err)
	}
}

func TestNodeBreaker_BusVoltage(t *testing.T) {
	n, vl := nodeBreakerLevel(t)
	v := n.Working()
	bbs, _ := n.BusbarSection("bbs")

	b := vl.BusView(v).Buses()[0]
	if err := b.SetV(402); err != nil {
		t.Fatalf("SetV() error = %v", err)
	}
	if got := bbs.V(v); got != 402 {
		t.Errorf("BusbarSection.V() = %v, want 402", got)
	}
	if err := b.SetV(-1); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("SetV(-1) error = %v, want VALIDATION", err)
	}
}

func TestNetworkBusView(t *testing.T) {
	n := mustNew(t, "n1")
	vl1 := busBreakerLevel(t, n, "1", "b1")
	addLoad(t, vl1, "l1", Connection{Bus: "b1"})
	vl2 := busBreakerLevel(t, n, "2", "b2")
	addLoad(t, vl2, "l2", Connection{Bus: "b2"})
	v := n.Working()

	if got, want := busIDs(n.BusView(v).Buses()), []string{"vl1_0", "vl2_0"}; !slices.Equal(got, want) {
		t.Errorf("BusView().Buses() = %v, want %v", got, want)
	}
	b, ok := n.BusView(v).Bus("vl2_0")
	if !ok || b.VoltageLevel() != vl2 {
		t.Errorf("BusView().Bus(vl2_0) = %v, %v", b, ok)
	}
	if b, ok := n.BusBreakerView(v).Bus("b1"); !ok || b.ID() != "b1" {
		t.Errorf("BusBreakerView().Bus(b1) = %v, %v", b, ok)
	}
	if _, ok := n.BusView(v).Bus("nope"); ok {
		t.Error("BusView().Bus(nope) found a bus")
	}
}

func TestBusBreaker_UnknownBusExcluded(t *testing.T) {
	var buf bytes.Buffer
	n := mustNew(t, "n1", WithLogger(log.New(&buf)))
	vl := busBreakerLevel(t, n, "1", "b1", "b2")
	l1 := addLoad(t, vl, "l1", Connection{Bus: "b1"})
	addLoad(t, vl, "l2", Connection{Bus: "b2"})
	v := n.Working()

	l1.Terminal().bus = "ghost"
	n.invalidateTopology(-1)

	bbv := vl.BusBreakerView(v)
	if got, want := busIDs(bbv.Buses()), []string{"b1", "b2"}; !slices.Equal(got, want) {
		t.Fatalf("BusBreakerView().Buses() = %v, want %v", got, want)
	}
	if _, ok := bbv.BusOf(l1.Terminal()); ok {
		t.Error("BusOf(l1) found a bus for a terminal on an unknown bus")
	}
	if got, want := busIDs(vl.BusView(v).Buses()), []string{"vl1_0"}; !slices.Equal(got, want) {
		t.Errorf("BusView().Buses() = %v, want %v", got, want)
	}
	if got := len(n.ConnectedComponents(v)); got != 1 {
		t.Errorf("len(ConnectedComponents()) = %d, want 1", got)
	}
	if !strings.Contains(buf.String(), "element excluded from topology") {
		t.Errorf("log = %q, want a structural inconsistency warning", buf.String())
	}
}

func TestNodeBreaker_ForeignTerminalExcluded(t *testing.T) {
	var buf bytes.Buffer
	n, vl := nodeBreakerLevel(t)
	n.logger = log.New(&buf)
	other := busBreakerLevel(t, n, "2", "b2")
	stray := addLoad(t, other, "l2", Connection{Bus: "b2"})
	v := n.Working()

	vl.nodeBreaker().terminalAt[5] = stray.Terminal()
	if _, err := vl.AddSwitch(SwitchAdder{ID: "d5", Kind: Disconnector, Node1: 0, Node2: 5}); err != nil {
		t.Fatalf("AddSwitch() error = %v", err)
	}

	bv := vl.BusView(v)
	if got := bv.Len(); got != 1 {
		t.Fatalf("BusView().Len() = %d, want 1", got)
	}
	if got := bv.Buses()[0].ConnectedTerminalCount(); got != 3 {
		t.Errorf("ConnectedTerminalCount() = %d, want 3", got)
	}
	if _, ok := bv.BusOf(stray.Terminal()); ok {
		t.Error("BusOf(l2) found a vl1 bus for a terminal of vl2")
	}
	if !strings.Contains(buf.String(), "element excluded from topology") {
		t.Errorf("log = %q, want a structural inconsistency warning", buf.String())
	}
}
