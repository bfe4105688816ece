package network

import (
	"math"
	"slices"
	"testing"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// pairedLevel builds one level with two dangling lines on bus b1.
func pairedLevel(t *testing.T, dl1, dl2 DanglingLineAdder) (*Network, *VoltageLevel) {
	t.Helper()
	n := mustNew(t, "n1")
	vl := busBreakerLevel(t, n, "1", "b1")
	for _, a := range []DanglingLineAdder{dl1, dl2} {
		a.Connection = Connection{Bus: "b1"}
		if _, err := vl.AddDanglingLine(a); err != nil {
			t.Fatalf("AddDanglingLine(%s) error = %v", a.ID, err)
		}
	}
	return n, vl
}

func TestTieLine_Equivalent(t *testing.T) {
	tests := []struct {
		name   string
		dl1    DanglingLineAdder
		dl2    DanglingLineAdder
		r, x   float64
		g1, b1 float64
		g2, b2 float64
	}{
		{
			name: "series",
			dl1:  DanglingLineAdder{ID: "a", R: 1, X: 1},
			dl2:  DanglingLineAdder{ID: "b", R: 1, X: 1},
			r:    2, x: 2,
		},
		{
			name: "zero impedance half",
			dl1:  DanglingLineAdder{ID: "a"},
			dl2:  DanglingLineAdder{ID: "b", R: 1, X: 2, B: 1e-4},
			r:    1, x: 2, b2: 1e-4,
		},
		{
			name: "both zero impedance",
			dl1:  DanglingLineAdder{ID: "a", G: 1e-5},
			dl2:  DanglingLineAdder{ID: "b", B: 2e-5},
			g1:   1e-5, b2: 2e-5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _ := pairedLevel(t, tt.dl1, tt.dl2)
			tl, err := n.AddTieLine(TieLineAdder{ID: "tl", DanglingLine1: "a", DanglingLine2: "b"})
			if err != nil {
				t.Fatalf("AddTieLine() error = %v", err)
			}
			got := []float64{tl.R(), tl.X(), tl.G1(), tl.B1(), tl.G2(), tl.B2()}
			want := []float64{tt.r, tt.x, tt.g1, tt.b1, tt.g2, tt.b2}
			for i := range got {
				if !near(got[i], want[i]) {
					t.Errorf("R, X, G1, B1, G2, B2 = %v, want %v", got, want)
					break
				}
			}
		})
	}
}

func TestTieLine_ShuntsKeepSymmetry(t *testing.T) {
	n, _ := pairedLevel(t,
		DanglingLineAdder{ID: "a", R: 1, X: 10, B: 1e-4},
		DanglingLineAdder{ID: "b", R: 1, X: 10, B: 1e-4},
	)
	tl, _ := n.AddTieLine(TieLineAdder{ID: "tl", DanglingLine1: "a", DanglingLine2: "b"})

	if !near(tl.B1(), tl.B2()) || !near(tl.G1(), tl.G2()) {
		t.Errorf("B1, B2 = %v, %v, want equal", tl.B1(), tl.B2())
	}
	if tl.R() <= 0 || tl.X() <= 0 {
		t.Errorf("R(), X() = %v, %v, want positive", tl.R(), tl.X())
	}
}

func TestAddTieLine_Errors(t *testing.T) {
	tests := []struct {
		name  string
		keys  [2]string
		adder TieLineAdder
		code  errors.Code
	}{
		{"pairing keys differ", [2]string{"X1", "X2"}, TieLineAdder{ID: "tl", DanglingLine1: "a", DanglingLine2: "b"}, errors.ErrCodeValidation},
		{"same half", [2]string{}, TieLineAdder{ID: "tl", DanglingLine1: "a", DanglingLine2: "a"}, errors.ErrCodeValidation},
		{"unknown half", [2]string{}, TieLineAdder{ID: "tl", DanglingLine1: "a", DanglingLine2: "zz"}, errors.ErrCodeValidation},
		{"id taken", [2]string{}, TieLineAdder{ID: "s1", DanglingLine1: "a", DanglingLine2: "b"}, errors.ErrCodeDuplicateID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _ := pairedLevel(t,
				DanglingLineAdder{ID: "a", R: 1, X: 1, PairingKey: tt.keys[0]},
				DanglingLineAdder{ID: "b", R: 1, X: 1, PairingKey: tt.keys[1]},
			)
			if _, err := n.AddTieLine(tt.adder); !errors.Is(err, tt.code) {
				t.Errorf("AddTieLine() error = %v, want %s", err, tt.code)
			}
			if got := len(n.UnpairedDanglingLines()); got != 2 {
				t.Errorf("len(UnpairedDanglingLines()) = %d, want 2", got)
			}
		})
	}
}

func TestAddTieLine_EnsureIDUnicity(t *testing.T) {
	n, _ := pairedLevel(t, DanglingLineAdder{ID: "a"}, DanglingLineAdder{ID: "b"})

	tl, err := n.AddTieLine(TieLineAdder{ID: "s1", DanglingLine1: "a", DanglingLine2: "b", EnsureIDUnicity: true})
	if err != nil {
		t.Fatalf("AddTieLine() error = %v", err)
	}
	if tl.ID() != "s1#0" {
		t.Errorf("ID() = %q, want s1#0", tl.ID())
	}
	a, _ := n.DanglingLine("a")
	if err := a.Remove(); !errors.Is(err, errors.ErrCodeIllegalState) {
		t.Errorf("Remove() of a paired dangling line error = %v, want ILLEGAL_STATE", err)
	}
	if err := a.SetPairingKey("X"); !errors.Is(err, errors.ErrCodeIllegalState) {
		t.Errorf("SetPairingKey() of a paired dangling line error = %v, want ILLEGAL_STATE", err)
	}
}

func TestTieLine_RemoveUpdatesDanglingLines(t *testing.T) {
	n1 := boundaryNetwork(t, "1", "dl1", "XNODE")
	n2 := boundaryNetwork(t, "2", "dl2", "XNODE")
	merged, err := Merge("merged", n1, n2)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	v := merged.Working()
	dl1, _ := merged.DanglingLine("dl1")
	dl2, _ := merged.DanglingLine("dl2")
	for _, dl := range []*DanglingLine{dl1, dl2} {
		b, _ := dl.Terminal().Bus(v)
		_ = b.SetV(400)
		_ = b.SetAngle(0)
	}
	dl1.Terminal().SetP(v, 100)
	dl1.Terminal().SetQ(v, 10)
	want := dl1.Boundary(v)

	tl := dl1.TieLine()
	if err := tl.Remove(true); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if dl1.IsPaired() || dl2.IsPaired() {
		t.Error("dangling lines still paired after Remove()")
	}
	if _, ok := merged.TieLine(tl.ID()); ok {
		t.Error("tie line still registered after Remove()")
	}
	if got := dl1.P0(v); !near(got, -want.P) {
		t.Errorf("P0() = %v, want %v", got, -want.P)
	}
	if got := dl1.Q0(v); !near(got, -want.Q) {
		t.Errorf("Q0() = %v, want %v", got, -want.Q)
	}
	// dl2 has no flow: its boundary is unknown and p0 stays as it was
	if got := dl2.P0(v); got != 0 {
		t.Errorf("dl2 P0() = %v, want 0", got)
	}
	if got := len(merged.ConnectedComponents(v)); got != 2 {
		t.Errorf("len(ConnectedComponents()) = %d, want 2", got)
	}
	if got := len(merged.DanglingLines()); got != 2 {
		t.Errorf("len(DanglingLines()) = %d, want 2", got)
	}
	if got := len(merged.TieLines()); got != 0 {
		t.Errorf("len(TieLines()) = %d, want 0", got)
	}

	buses := merged.BusBreakerView(v).Buses()
	if got, want := busIDs(buses), []string{"b1", "b2"}; !slices.Equal(got, want) {
		t.Fatalf("BusBreakerView().Buses() = %v, want %v", got, want)
	}
	var main []string
	for _, b := range buses {
		if b.ConnectedComponent() == nil {
			t.Errorf("ConnectedComponent() of %s = nil", b.ID())
		}
		if b.IsInMainConnectedComponent() {
			main = append(main, b.ID())
		}
	}
	if want := []string{"b1"}; !slices.Equal(main, want) {
		t.Errorf("buses in the main component = %v, want %v", main, want)
	}
}

func TestTieLine_RemoveKeepsDanglingLines(t *testing.T) {
	n, _ := pairedLevel(t, DanglingLineAdder{ID: "a", R: 1, X: 1, P0: 7}, DanglingLineAdder{ID: "b", R: 1, X: 1})
	tl, _ := n.AddTieLine(TieLineAdder{ID: "tl", DanglingLine1: "a", DanglingLine2: "b"})
	a, _ := n.DanglingLine("a")
	a.Terminal().SetP(n.Working(), 100)

	if err := tl.Remove(false); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if got := a.P0(n.Working()); got != 7 {
		t.Errorf("P0() = %v, want 7", got)
	}
	if err := tl.Remove(false); !errors.Is(err, errors.ErrCodeIllegalState) {
		t.Errorf("second Remove() error = %v, want ILLEGAL_STATE", err)
	}
}

func TestDanglingLine_Boundary(t *testing.T) {
	tests := []struct {
		name  string
		adder DanglingLineAdder
		p, q  float64
		check func(t *testing.T, b Boundary)
	}{
		{
			name:  "zero impedance mirrors the network side",
			adder: DanglingLineAdder{ID: "dl"},
			p:     50, q: -5,
			check: func(t *testing.T, b Boundary) {
				if b.V != 400 || b.Angle != 0 || b.P != -50 || b.Q != 5 {
					t.Errorf("Boundary() = %+v, want V 400, angle 0, P -50, Q 5", b)
				}
			},
		},
		{
			name:  "series reactance keeps active power",
			adder: DanglingLineAdder{ID: "dl", X: 10},
			p:     100, q: 0,
			check: func(t *testing.T, b Boundary) {
				if !near(b.P, -100) {
					t.Errorf("Boundary().P = %v, want -100", b.P)
				}
				if b.Q <= 0 {
					t.Errorf("Boundary().Q = %v, want > 0", b.Q)
				}
				if b.Angle >= 0 {
					t.Errorf("Boundary().Angle = %v, want < 0", b.Angle)
				}
			},
		},
		{
			name:  "unknown flow",
			adder: DanglingLineAdder{ID: "dl", R: 1, X: 1},
			p:     math.NaN(), q: math.NaN(),
			check: func(t *testing.T, b Boundary) {
				if !math.IsNaN(b.V) || !math.IsNaN(b.P) {
					t.Errorf("Boundary() = %+v, want NaN", b)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := mustNew(t, "n1")
			vl := busBreakerLevel(t, n, "1", "b1")
			tt.adder.Connection = Connection{Bus: "b1"}
			dl, err := vl.AddDanglingLine(tt.adder)
			if err != nil {
				t.Fatalf("AddDanglingLine() error = %v", err)
			}
			v := n.Working()
			cb, _ := n.ConfiguredBus("b1")
			_ = cb.SetV(v, 400)
			_ = cb.SetAngle(v, 0)
			dl.Terminal().SetP(v, tt.p)
			dl.Terminal().SetQ(v, tt.q)

			tt.check(t, dl.Boundary(v))
		})
	}
}
