package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/gridcore/pkg/network"
)

// Options configures bus/branch rendering.
type Options struct {
	// Detailed adds voltage, terminal count and component numbers to bus
	// labels. When false, only the bus id is shown.
	Detailed bool
	// Clusters groups buses by voltage level and voltage levels by
	// substation.
	Clusters bool
}

// palette colours buses by connected component; the main component stays
// white and components past the palette reuse its last colour.
var palette = []string{"white", "lightblue", "lightyellow", "lightpink", "palegreen", "lightgrey"}

// ToDOT converts one variant of a network to Graphviz DOT. Vertices are the
// bus-view buses; edges are lines, transformers, tie lines and HVDC lines
// whose both ends are connected. Unpaired dangling lines end at a point
// standing for their boundary.
func ToDOT(n *network.Network, v network.Variant, opts Options) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "graph %q {\n", n.ID())
	buf.WriteString("  layout=dot;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	if opts.Clusters {
		writeClusters(&buf, n, v, opts)
	} else {
		for _, b := range n.BusView(v).Buses() {
			writeBus(&buf, "  ", b, opts)
		}
	}

	buf.WriteString("\n")
	for _, l := range n.Lines() {
		writeEdge(&buf, v, l.ID(), l.Terminal1(), l.Terminal2(), "")
	}
	for _, t := range n.TwoWindingsTransformers() {
		writeEdge(&buf, v, t.ID(), t.Terminal1(), t.Terminal2(), "color=darkorange")
	}
	for _, tl := range n.TieLines() {
		writeEdge(&buf, v, tl.ID(), tl.Terminal1(), tl.Terminal2(), "color=blue, penwidth=2")
	}
	for _, h := range n.HvdcLines() {
		cs1, cs2 := h.ConverterStation1(), h.ConverterStation2()
		writeEdge(&buf, v, h.ID(), cs1.Terminal(), cs2.Terminal(), "style=dashed, color=purple")
	}
	for _, dl := range n.UnpairedDanglingLines() {
		b, ok := dl.Terminal().Bus(v)
		if !ok {
			continue
		}
		boundary := dl.ID() + "#boundary"
		fmt.Fprintf(&buf, "  %q [shape=point, width=0.15];\n", boundary)
		fmt.Fprintf(&buf, "  %q -- %q [label=%q, style=dotted];\n", b.ID(), boundary, dl.ID())
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeClusters(buf *bytes.Buffer, n *network.Network, v network.Variant, opts Options) {
	writeLevel := func(indent string, vl *network.VoltageLevel) {
		fmt.Fprintf(buf, "%ssubgraph %q {\n", indent, "cluster_"+vl.ID())
		fmt.Fprintf(buf, "%s  label=%q;\n", indent, fmt.Sprintf("%s (%g kV)", vl.NameOrID(), vl.NominalV()))
		for _, b := range vl.BusView(v).Buses() {
			writeBus(buf, indent+"  ", b, opts)
		}
		fmt.Fprintf(buf, "%s}\n", indent)
	}
	for _, s := range n.Substations() {
		fmt.Fprintf(buf, "  subgraph %q {\n", "cluster_"+s.ID())
		fmt.Fprintf(buf, "    label=%q;\n    style=dashed;\n", s.NameOrID())
		for _, vl := range s.VoltageLevels() {
			writeLevel("    ", vl)
		}
		buf.WriteString("  }\n")
	}
	for _, vl := range n.VoltageLevels() {
		if vl.Substation() == nil {
			writeLevel("  ", vl)
		}
	}
}

func writeBus(buf *bytes.Buffer, indent string, b *network.Bus, opts Options) {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(b, opts.Detailed))}
	if c := b.ConnectedComponent(); c != nil && c.Num() > 0 {
		attrs = append(attrs, "fillcolor="+palette[min(c.Num(), len(palette)-1)])
	}
	fmt.Fprintf(buf, "%s%q [%s];\n", indent, b.ID(), strings.Join(attrs, ", "))
}

func fmtLabel(b *network.Bus, detailed bool) string {
	if !detailed {
		return b.ID()
	}
	parts := []string{b.ID(), fmt.Sprintf("terminals: %d", b.ConnectedTerminalCount())}
	if v := b.V(); !math.IsNaN(v) {
		parts = append(parts, fmt.Sprintf("v: %.2f kV", v))
	}
	if c := b.ConnectedComponent(); c != nil {
		parts = append(parts, fmt.Sprintf("cc: %d", c.Num()))
	}
	if c := b.SynchronousComponent(); c != nil {
		parts = append(parts, fmt.Sprintf("sc: %d", c.Num()))
	}
	return strings.Join(parts, "\n")
}

func writeEdge(buf *bytes.Buffer, v network.Variant, id string, t1, t2 *network.Terminal, style string) {
	b1, ok1 := t1.Bus(v)
	b2, ok2 := t2.Bus(v)
	if !ok1 || !ok2 {
		return
	}
	attrs := fmt.Sprintf("label=%q", id)
	if style != "" {
		attrs += ", " + style
	}
	fmt.Fprintf(buf, "  %q -- %q [%s];\n", b1.ID(), b2.ID(), attrs)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element with a zero-origin viewBox and
// matching pixel size, so the SVG scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
