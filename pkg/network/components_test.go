package network

import (
	"slices"
	"strconv"
	"testing"
)

// hvdcNetwork builds three levels: vl1 and vl2 joined by line L, vl2 and
// vl3 joined by HVDC line h. Every bus carries a load.
func hvdcNetwork(t *testing.T) *Network {
	t.Helper()
	n := mustNew(t, "n1")
	vls := []*VoltageLevel{
		busBreakerLevel(t, n, "1", "b1"),
		busBreakerLevel(t, n, "2", "b2"),
		busBreakerLevel(t, n, "3", "b3"),
	}
	for _, vl := range vls {
		bus := vl.ConfiguredBuses()[0].ID()
		addLoad(t, vl, "l"+bus, Connection{Bus: bus})
	}
	_, err := n.AddLine(LineAdder{
		ID: "L", R: 1, X: 10,
		VoltageLevel1: "vl1", Connection1: Connection{Bus: "b1"},
		VoltageLevel2: "vl2", Connection2: Connection{Bus: "b2"},
	})
	if err != nil {
		t.Fatalf("AddLine() error = %v", err)
	}
	for _, vl := range vls[1:] {
		bus := vl.ConfiguredBuses()[0].ID()
		if _, err := vl.AddConverterStation(ConverterStationAdder{ID: "cs" + bus, Connection: Connection{Bus: bus}, LossFactor: 1}); err != nil {
			t.Fatalf("AddConverterStation() error = %v", err)
		}
	}
	_, err = n.AddHvdcLine(HvdcLineAdder{
		ID: "h", R: 1, NominalV: 400, MaxP: 300, ActivePowerSetpoint: 100,
		ConverterStation1: "csb2", ConverterStation2: "csb3",
	})
	if err != nil {
		t.Fatalf("AddHvdcLine() error = %v", err)
	}
	return n
}

func componentSizes(cs []*Component) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.Size()
	}
	return out
}

func TestComponents_HvdcIsAsynchronous(t *testing.T) {
	n := hvdcNetwork(t)
	v := n.Working()

	cc := n.ConnectedComponents(v)
	if len(cc) != 1 || cc[0].Size() != 3 {
		t.Errorf("ConnectedComponents() sizes = %v, want [3]", componentSizes(cc))
	}
	sc := n.SynchronousComponents(v)
	if len(sc) != 2 || sc[0].Size() != 2 || sc[1].Size() != 1 {
		t.Errorf("SynchronousComponents() sizes = %v, want [2 1]", componentSizes(sc))
	}

	vl3, _ := n.VoltageLevel("vl3")
	b3 := vl3.BusView(v).Buses()[0]
	if !b3.IsInMainConnectedComponent() {
		t.Error("IsInMainConnectedComponent() = false for vl3 bus")
	}
	if b3.IsInMainSynchronousComponent() {
		t.Error("IsInMainSynchronousComponent() = true for vl3 bus")
	}
	if got := b3.SynchronousComponent().Num(); got != 1 {
		t.Errorf("SynchronousComponent().Num() = %d, want 1", got)
	}
}

func TestComponents_AsynchronousLinksOption(t *testing.T) {
	n := mustNew(t, "n1", WithAsynchronousLinks())
	vl1 := busBreakerLevel(t, n, "1", "b1")
	vl2 := busBreakerLevel(t, n, "2", "b2")
	for _, vl := range []*VoltageLevel{vl1, vl2} {
		bus := vl.ConfiguredBuses()[0].ID()
		addLoad(t, vl, "l"+bus, Connection{Bus: bus})
		_, _ = vl.AddConverterStation(ConverterStationAdder{ID: "cs" + bus, Connection: Connection{Bus: bus}})
	}
	if _, err := n.AddHvdcLine(HvdcLineAdder{ID: "h", NominalV: 400, MaxP: 10, ConverterStation1: "csb1", ConverterStation2: "csb2"}); err != nil {
		t.Fatalf("AddHvdcLine() error = %v", err)
	}

	if got := len(n.SynchronousComponents(n.Working())); got != 1 {
		t.Errorf("len(SynchronousComponents()) = %d, want 1", got)
	}
}

func TestComponents_RecomputedAfterChange(t *testing.T) {
	n := hvdcNetwork(t)
	v := n.Working()
	vl1, _ := n.VoltageLevel("vl1")
	vl2, _ := n.VoltageLevel("vl2")
	old := vl2.BusView(v).Buses()[0]
	if c := old.ConnectedComponent(); c == nil || c.Size() != 3 {
		t.Fatalf("ConnectedComponent() = %v, want size 3", c)
	}

	line, _ := n.Line("L")
	if _, err := line.Terminal2().Disconnect(v); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	cc := n.ConnectedComponents(v)
	if len(cc) != 2 || cc[0].Size() != 2 || cc[1].Size() != 1 {
		t.Errorf("ConnectedComponents() sizes = %v, want [2 1]", componentSizes(cc))
	}
	if c := old.ConnectedComponent(); c != nil {
		t.Errorf("ConnectedComponent() of a stale bus = %v, want nil", c)
	}
	b1 := vl1.BusView(v).Buses()[0]
	if b1.IsInMainConnectedComponent() {
		t.Error("IsInMainConnectedComponent() = true for the isolated vl1 bus")
	}
}

func TestHvdcLine_Remove(t *testing.T) {
	n := hvdcNetwork(t)
	h, _ := n.HvdcLine("h")
	cs, _ := n.ConverterStation("csb2")

	if err := cs.Remove(); err == nil {
		t.Error("ConverterStation.Remove() succeeded while used by an HVDC line")
	}
	if err := h.Remove(); err != nil {
		t.Fatalf("HvdcLine.Remove() error = %v", err)
	}
	if cs.HvdcLine() != nil {
		t.Error("HvdcLine() is not nil after removal")
	}
	if got := len(n.ConnectedComponents(n.Working())); got != 2 {
		t.Errorf("len(ConnectedComponents()) = %d, want 2", got)
	}
	if err := cs.Remove(); err != nil {
		t.Errorf("ConverterStation.Remove() error = %v", err)
	}
}

func TestTwoWindingsTransformer_SameSubstation(t *testing.T) {
	n := mustNew(t, "n1")
	s, _ := n.AddSubstation(SubstationAdder{ID: "s1"})
	hv, _ := s.AddVoltageLevel(VoltageLevelAdder{ID: "hv", NominalV: 400})
	lv, _ := s.AddVoltageLevel(VoltageLevelAdder{ID: "lv", NominalV: 225})
	_, _ = hv.AddBus(BusAdder{ID: "bhv"})
	_, _ = lv.AddBus(BusAdder{ID: "blv"})
	other := busBreakerLevel(t, n, "9", "b9")

	tr, err := s.AddTwoWindingsTransformer(TwoWindingsTransformerAdder{
		ID: "tr", R: 0.1, X: 20,
		VoltageLevel1: "hv", Connection1: Connection{Bus: "bhv"},
		VoltageLevel2: "lv", Connection2: Connection{Bus: "blv"},
	})
	if err != nil {
		t.Fatalf("AddTwoWindingsTransformer() error = %v", err)
	}
	if tr.RatedU1() != 400 || tr.RatedU2() != 225 {
		t.Errorf("RatedU1(), RatedU2() = %v, %v, want 400, 225", tr.RatedU1(), tr.RatedU2())
	}
	if got := len(s.TwoWindingsTransformers()); got != 1 {
		t.Errorf("len(TwoWindingsTransformers()) = %d, want 1", got)
	}

	_, err = s.AddTwoWindingsTransformer(TwoWindingsTransformerAdder{
		ID: "tr2", VoltageLevel1: "hv", Connection1: Connection{Bus: "bhv"},
		VoltageLevel2: other.ID(), Connection2: Connection{Bus: "b9"},
	})
	if err == nil {
		t.Error("AddTwoWindingsTransformer() across substations succeeded")
	}
}

// partition lists the bus ids of every component, component 0 first.
func partition(cs []*Component) [][]string {
	out := make([][]string, len(cs))
	for i, c := range cs {
		out[i] = busIDs(c.Buses())
	}
	return out
}

func TestComponents_Deterministic(t *testing.T) {
	n := mustNew(t, "n1")
	for i := 1; i <= 4; i++ {
		suffix := strconv.Itoa(i)
		vl := busBreakerLevel(t, n, suffix, "b"+suffix)
		addLoad(t, vl, "l"+suffix, Connection{Bus: "b" + suffix})
	}
	// two components of equal size: vl1-vl2 and vl3-vl4
	for _, pair := range [][2]string{{"1", "2"}, {"3", "4"}} {
		_, err := n.AddLine(LineAdder{
			ID: "L" + pair[0] + pair[1], R: 1, X: 10,
			VoltageLevel1: "vl" + pair[0], Connection1: Connection{Bus: "b" + pair[0]},
			VoltageLevel2: "vl" + pair[1], Connection2: Connection{Bus: "b" + pair[1]},
		})
		if err != nil {
			t.Fatalf("AddLine() error = %v", err)
		}
	}
	v := n.Working()

	first := partition(n.ConnectedComponents(v))
	want := [][]string{{"vl1_0", "vl2_0"}, {"vl3_0", "vl4_0"}}
	if !slices.EqualFunc(first, want, slices.Equal) {
		t.Fatalf("ConnectedComponents() = %v, want %v", first, want)
	}

	for range 3 {
		n.invalidateTopology(-1)
		got := partition(n.ConnectedComponents(v))
		if !slices.EqualFunc(got, first, slices.Equal) {
			t.Errorf("recomputed ConnectedComponents() = %v, want %v", got, first)
		}
		b1, _ := n.BusView(v).Bus("vl1_0")
		b3, _ := n.BusView(v).Bus("vl3_0")
		if !b1.IsInMainConnectedComponent() || b3.IsInMainConnectedComponent() {
			t.Errorf("IsInMainConnectedComponent() = %v, %v, want true, false",
				b1.IsInMainConnectedComponent(), b3.IsInMainConnectedComponent())
		}
	}
}
