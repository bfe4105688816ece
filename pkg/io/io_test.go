package io

import (
	"bytes"
	stdio "io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridcore/pkg/errors"
	"github.com/matzehuels/gridcore/pkg/extensions"
	"github.com/matzehuels/gridcore/pkg/network"
)

const twoLevelCase = `
[network]
id = "grid"
name = "Two levels"
case_date = 2024-01-15T10:00:00Z

[[substations]]
id = "s1"
country = "FR"
position = { lat = 48.85, lon = 2.35 }

[[substations.voltage_levels]]
id = "vl1"
nominal_v = 380.0
buses = [{ id = "b1" }, { id = "b2" }]
switches = [{ id = "cpl", bus1 = "b1", bus2 = "b2" }]
loads = [{ id = "l1", bus = "b1", p0 = 10.0, q0 = 5.0 }]
generators = [{ id = "g1", bus = "b2", min_p = 0.0, max_p = 500.0, target_p = 100.0, target_v = 400.0, voltage_regulator_on = true }]

[[substations.voltage_levels]]
id = "vl2"
nominal_v = 225.0
topology = "NODE_BREAKER"
busbar_sections = [{ id = "bbs", node = 0, busbar_index = 1, section_index = 1 }]
switches = [
  { id = "d1", kind = "DISCONNECTOR", node1 = 0, node2 = 1 },
  { id = "br1", kind = "BREAKER", node1 = 1, node2 = 2 },
  { id = "br2", kind = "BREAKER", node1 = 0, node2 = 3 },
]
dangling_lines = [{ id = "dl1", node = 2, r = 1.0, x = 1.0, p0 = 0.0, q0 = 0.0, boundary_node = { code = "XNODE", country = "BE" } }]

[[transformers]]
id = "tr"
r = 0.5
x = 10.0
voltage_level1 = "vl1"
connection1 = { bus = "b2" }
voltage_level2 = "vl2"
connection2 = { node = 3 }

[[variants]]
id = "outage"
open_switches = ["cpl"]
loads = { l1 = { p0 = 25.0 } }
`

func quietLogger() *log.Logger { return log.New(stdio.Discard) }

func readCase(t *testing.T, src string) *network.Network {
	t.Helper()
	n, err := ReadCase(strings.NewReader(src), network.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("ReadCase() error: %v", err)
	}
	return n
}

func TestReadCase_Elements(t *testing.T) {
	n := readCase(t, twoLevelCase)

	if n.ID() != "grid" || n.Name() != "Two levels" {
		t.Errorf("ID(), Name() = %q, %q", n.ID(), n.Name())
	}
	if n.SourceFormat() != SourceFormat {
		t.Errorf("SourceFormat() = %q, want %q", n.SourceFormat(), SourceFormat)
	}
	if n.CaseDate().Year() != 2024 {
		t.Errorf("CaseDate() = %v", n.CaseDate())
	}

	counts := map[network.IdentifiableType]int{
		network.TypeSubstation:             1,
		network.TypeVoltageLevel:           2,
		network.TypeBus:                    2,
		network.TypeSwitch:                 4,
		network.TypeLoad:                   1,
		network.TypeGenerator:              1,
		network.TypeBusbarSection:          1,
		network.TypeDanglingLine:           1,
		network.TypeTwoWindingsTransformer: 1,
	}
	for typ, want := range counts {
		if got := len(n.IdentifiablesOfType(typ)); got != want {
			t.Errorf("%s count = %d, want %d", typ, got, want)
		}
	}

	sw, _ := n.Switch("br1")
	if !sw.IsRetained() {
		t.Error("breaker br1 not retained by default")
	}
	d1, _ := n.Switch("d1")
	if d1.Kind() != network.Disconnector {
		t.Errorf("d1 kind = %v, want DISCONNECTOR", d1.Kind())
	}
}

func TestReadCase_Extensions(t *testing.T) {
	n := readCase(t, twoLevelCase)

	s, _ := n.Substation("s1")
	pos, ok := network.ExtensionOf[*extensions.SubstationPosition](s)
	if !ok || pos.Coordinate().Latitude != 48.85 {
		t.Errorf("SubstationPosition = %v, %v", pos, ok)
	}
	bbs, _ := n.BusbarSection("bbs")
	if _, ok := network.ExtensionOf[*extensions.BusbarSectionPosition](bbs); !ok {
		t.Error("BusbarSectionPosition missing")
	}
	dl, _ := n.DanglingLine("dl1")
	if dl.PairingKey() != "XNODE" {
		t.Errorf("PairingKey() = %q, want XNODE", dl.PairingKey())
	}
	bn, ok := network.ExtensionOf[*extensions.BoundaryNode](dl)
	if !ok || bn.Country() != "BE" {
		t.Errorf("BoundaryNode = %v, %v", bn, ok)
	}
}

func TestReadCase_Variants(t *testing.T) {
	n := readCase(t, twoLevelCase)

	ids := n.Variants().VariantIDs()
	if len(ids) != 2 || ids[1] != "outage" {
		t.Fatalf("VariantIDs() = %v", ids)
	}
	initial := n.Working()
	outage, _ := n.Variants().Variant("outage")

	l1, _ := n.Load("l1")
	if got := l1.P0(initial); got != 10 {
		t.Errorf("P0(initial) = %v, want 10", got)
	}
	if got := l1.P0(outage); got != 25 {
		t.Errorf("P0(outage) = %v, want 25", got)
	}
	if got := l1.Q0(outage); got != 5 {
		t.Errorf("Q0(outage) = %v, want 5", got)
	}

	vl1, _ := n.VoltageLevel("vl1")
	if got := vl1.BusView(initial).Len(); got != 1 {
		t.Errorf("initial buses = %d, want 1", got)
	}
	if got := vl1.BusView(outage).Len(); got != 2 {
		t.Errorf("outage buses = %d, want 2", got)
	}
}

func TestReadCase_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code errors.Code
	}{
		{"syntax", `[network`, errors.ErrCodeInvalidFormat},
		{"unknown key", "[network]\nid = \"n\"\ncolour = \"red\"", errors.ErrCodeInvalidFormat},
		{"missing id", "[network]\nname = \"x\"", errors.ErrCodeValidation},
		{"bad level", "[network]\nid = \"n\"\nmin_validation_level = \"FULL\"", errors.ErrCodeInvalidInput},
		{"bad topology", "[network]\nid = \"n\"\n[[voltage_levels]]\nid = \"vl\"\nnominal_v = 1.0\ntopology = \"RING\"", errors.ErrCodeInvalidInput},
		{"duplicate", "[network]\nid = \"n\"\n[[substations]]\nid = \"s\"\n[[substations]]\nid = \"s\"", errors.ErrCodeDuplicateID},
		{"missing ssh value", "[network]\nid = \"n\"\n[[voltage_levels]]\nid = \"vl\"\nnominal_v = 1.0\nbuses = [{ id = \"b\" }]\nloads = [{ id = \"l\", bus = \"b\" }]", errors.ErrCodeValidation},
		{"unknown switch", "[network]\nid = \"n\"\n[[variants]]\nid = \"v\"\nopen_switches = [\"nope\"]", errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCase(strings.NewReader(tt.src), network.WithLogger(quietLogger()))
			if err == nil {
				t.Fatal("ReadCase() error = nil")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("GetCode() = %v, want %v (%v)", got, tt.code, err)
			}
		})
	}
}

func TestReadCase_EquipmentLevel(t *testing.T) {
	src := `
[network]
id = "n"
min_validation_level = "EQUIPMENT"

[[voltage_levels]]
id = "vl"
nominal_v = 20.0
buses = [{ id = "b" }]
loads = [{ id = "l", bus = "b" }]
`
	n := readCase(t, src)
	if got := n.ValidationLevel(); got != network.ValidationEquipment {
		t.Errorf("ValidationLevel() = %v, want %v", got, network.ValidationEquipment)
	}
}

func TestReadCase_ErrorContext(t *testing.T) {
	src := "[network]\nid = \"n\"\n[[substations]]\nid = \"s1\"\n[[substations.voltage_levels]]\nid = \"vl1\"\nnominal_v = -1.0"
	_, err := ReadCase(strings.NewReader(src), network.WithLogger(quietLogger()))
	if err == nil {
		t.Fatal("ReadCase() error = nil")
	}
	if !strings.HasPrefix(err.Error(), "substation s1: voltage level vl1: ") {
		t.Errorf("error = %q, want substation and voltage level context", err)
	}
}

func TestSummarize(t *testing.T) {
	n := readCase(t, twoLevelCase)
	s, err := Summarize(n)
	if err != nil {
		t.Fatal(err)
	}
	if s.Counts["SWITCH"] != 4 {
		t.Errorf("Counts[SWITCH] = %d, want 4", s.Counts["SWITCH"])
	}
	if len(s.Variants) != 2 {
		t.Fatalf("len(Variants) = %d, want 2", len(s.Variants))
	}
	initial, outage := s.Variants[0], s.Variants[1]
	if len(initial.Buses) != 2 {
		t.Errorf("initial buses = %d, want 2", len(initial.Buses))
	}
	if len(initial.ConnectedComponents) != 1 {
		t.Errorf("initial connected components = %d, want 1", len(initial.ConnectedComponents))
	}
	if len(outage.Buses) != 3 {
		t.Errorf("outage buses = %d, want 3", len(outage.Buses))
	}
	if len(outage.ConnectedComponents) != 2 {
		t.Errorf("outage connected components = %d, want 2", len(outage.ConnectedComponents))
	}
	for _, b := range outage.Buses {
		if b.ConnectedComponent < 0 {
			t.Errorf("bus %s has no component", b.ID)
		}
	}
}

func TestSummarize_UnknownVariant(t *testing.T) {
	n := readCase(t, twoLevelCase)
	if _, err := Summarize(n, "nope"); !errors.Is(err, errors.ErrCodeIllegalState) {
		t.Errorf("Summarize() error = %v, want ILLEGAL_STATE", err)
	}
}

func TestWriteReadSummary(t *testing.T) {
	n := readCase(t, twoLevelCase)
	s, err := Summarize(n, network.InitialVariantID)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteSummary(s, &buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSummary(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "grid" || len(got.Variants) != 1 || len(got.Variants[0].Buses) != 2 {
		t.Errorf("ReadSummary() = %+v", got)
	}
}
