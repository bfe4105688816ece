package io

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/matzehuels/gridcore/pkg/network"
)

// Summary is a JSON-friendly description of a network: element counts and,
// per variant, the buses of both views and the components.
type Summary struct {
	ID              string           `json:"id"`
	Name            string           `json:"name,omitempty"`
	SourceFormat    string           `json:"source_format"`
	CaseDate        time.Time        `json:"case_date"`
	ValidationLevel string           `json:"validation_level"`
	Counts          map[string]int   `json:"counts"`
	SubNetworks     []string         `json:"sub_networks,omitempty"`
	TieLines        []TieLineSummary `json:"tie_lines,omitempty"`
	Variants        []VariantSummary `json:"variants"`
}

// TieLineSummary describes a tie line and its equivalent impedance.
type TieLineSummary struct {
	ID            string  `json:"id"`
	DanglingLine1 string  `json:"dangling_line1"`
	DanglingLine2 string  `json:"dangling_line2"`
	PairingKey    string  `json:"pairing_key,omitempty"`
	R             float64 `json:"r"`
	X             float64 `json:"x"`
}

// VariantSummary describes the topology of one variant.
type VariantSummary struct {
	ID                    string             `json:"id"`
	BusBreakerBuses       int                `json:"bus_breaker_buses"`
	Buses                 []BusSummary       `json:"buses"`
	ConnectedComponents   []ComponentSummary `json:"connected_components"`
	SynchronousComponents []ComponentSummary `json:"synchronous_components"`
}

// BusSummary describes a bus-view bus. Component numbers are -1 when the
// bus belongs to none. V is omitted when unknown.
type BusSummary struct {
	ID                   string   `json:"id"`
	VoltageLevel         string   `json:"voltage_level"`
	Terminals            int      `json:"terminals"`
	V                    *float64 `json:"v,omitempty"`
	ConnectedComponent   int      `json:"connected_component"`
	SynchronousComponent int      `json:"synchronous_component"`
}

// ComponentSummary lists the buses of a component.
type ComponentSummary struct {
	Num   int      `json:"num"`
	Size  int      `json:"size"`
	Buses []string `json:"buses"`
}

// Summarize describes n. Only the listed variants are described; every
// variant is when none is given.
func Summarize(n *network.Network, variantIDs ...string) (*Summary, error) {
	if len(variantIDs) == 0 {
		variantIDs = n.Variants().VariantIDs()
	}
	s := &Summary{
		ID:              n.ID(),
		Name:            n.Name(),
		SourceFormat:    n.SourceFormat(),
		CaseDate:        n.CaseDate(),
		ValidationLevel: n.ValidationLevel().String(),
		Counts:          make(map[string]int),
	}
	for _, t := range network.IdentifiableTypes() {
		if c := len(n.IdentifiablesOfType(t)); c > 0 {
			s.Counts[t.String()] = c
		}
	}
	for _, sn := range n.SubNetworks() {
		s.SubNetworks = append(s.SubNetworks, sn.ID())
	}
	for _, tl := range n.TieLines() {
		s.TieLines = append(s.TieLines, TieLineSummary{
			ID:            tl.ID(),
			DanglingLine1: tl.DanglingLine1().ID(),
			DanglingLine2: tl.DanglingLine2().ID(),
			PairingKey:    tl.PairingKey(),
			R:             tl.R(),
			X:             tl.X(),
		})
	}
	for _, id := range variantIDs {
		v, err := n.Variants().Variant(id)
		if err != nil {
			return nil, err
		}
		s.Variants = append(s.Variants, summarizeVariant(n, v))
	}
	return s, nil
}

func summarizeVariant(n *network.Network, v network.Variant) VariantSummary {
	vs := VariantSummary{
		ID:                    v.ID(),
		BusBreakerBuses:       len(n.BusBreakerView(v).Buses()),
		ConnectedComponents:   components(n.ConnectedComponents(v)),
		SynchronousComponents: components(n.SynchronousComponents(v)),
	}
	for _, b := range n.BusView(v).Buses() {
		bs := BusSummary{
			ID:                   b.ID(),
			VoltageLevel:         b.VoltageLevel().ID(),
			Terminals:            b.ConnectedTerminalCount(),
			ConnectedComponent:   num(b.ConnectedComponent()),
			SynchronousComponent: num(b.SynchronousComponent()),
		}
		if volt := b.V(); !math.IsNaN(volt) {
			bs.V = &volt
		}
		vs.Buses = append(vs.Buses, bs)
	}
	return vs
}

func components(cs []*network.Component) []ComponentSummary {
	out := make([]ComponentSummary, len(cs))
	for i, c := range cs {
		ids := make([]string, 0, c.Size())
		for _, b := range c.Buses() {
			ids = append(ids, b.ID())
		}
		out[i] = ComponentSummary{Num: c.Num(), Size: c.Size(), Buses: ids}
	}
	return out
}

func num(c *network.Component) int {
	if c == nil {
		return -1
	}
	return c.Num()
}

// WriteSummary encodes s as indented JSON.
func WriteSummary(s *Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// ExportSummary writes s to the file at path.
func ExportSummary(s *Summary, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSummary(s, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadSummary decodes a summary written by [WriteSummary].
func ReadSummary(r io.Reader) (*Summary, error) {
	var s Summary
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}
