// Package io reads networks from TOML case files and writes JSON summaries
// of their topology.
//
// # Case Files
//
// A case file describes one network through the builder API of
// [network.Network]. Elements are created in dependency order: substations
// and their voltage levels (with buses, switches, internal connections,
// busbar sections and injections), substation-less voltage levels, lines,
// transformers, HVDC lines, tie lines and finally variants:
//
//	g, err := io.ImportCase("grid.toml", network.WithLogger(logger))
//
// Optional data maps to extensions: a substation "position" becomes an
// [extensions.SubstationPosition], busbar and section indexes become an
// [extensions.BusbarSectionPosition], and a dangling-line "boundary_node"
// becomes an [extensions.BoundaryNode] whose code doubles as pairing key
// when none is given.
//
// Variants are cloned from "source" (the initial variant by default) and
// may override switch states and load setpoints:
//
//	[[variants]]
//	id = "outage"
//	open_switches = ["br1"]
//
// Errors name the element that failed, e.g. "substation s1: voltage level
// vl1: load l1: ...", and keep the coded errors of [errors] in the chain.
//
// # Summaries
//
// [Summarize] describes element counts, tie lines and, per variant, the
// bus-view buses with their component numbers. [WriteSummary] encodes it as
// JSON; the pipeline caches these bytes, and [ReadSummary] decodes them.
//
// [errors]: github.com/matzehuels/gridcore/pkg/errors
package io
