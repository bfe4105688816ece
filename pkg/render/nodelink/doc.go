// Package nodelink renders the bus/branch graph of a network variant with
// Graphviz.
//
// # Usage
//
// Convert one variant to DOT, then render it to SVG in-process:
//
//	dot := nodelink.ToDOT(n, n.Working(), nodelink.Options{Clusters: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Buses of the bus view are vertices. Lines are plain edges, transformers
// orange, tie lines blue and HVDC lines dashed purple. Buses outside the
// main connected component are filled with a colour per component, so an
// islanded part of the grid stands out.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz], which embeds Graphviz
// compiled to WebAssembly; no system installation is needed.
package nodelink
