// Package network provides an in-memory, variant-aware model of an electrical
// power grid.
//
// # Overview
//
// A [Network] holds substations, voltage levels, switches, configured buses,
// injections (loads, generators, dangling lines, busbar sections, HVDC
// converter stations) and branches (lines, two-winding transformers, tie
// lines, HVDC lines). Every element is an [Identifiable] registered in a
// single per-network index keyed by id.
//
// # Variants
//
// Every attribute that can differ between "what-if" states (switch positions,
// setpoints, terminal flows, bus voltages) is stored per variant. The
// [VariantManager] clones, overwrites and removes variants; a [Variant] handle
// addresses one of them explicitly:
//
//	v := n.Variants().Working()
//	if err := n.Variants().CloneVariant(v.ID(), "outage"); err != nil {
//	    return err
//	}
//	outage, _ := n.Variants().Variant("outage")
//	sw.SetOpen(outage, true) // the working variant is untouched
//
// Slots freed by removed variants are recycled before the arrays grow.
// Using the handle of a removed variant panics: it is a programming error.
//
// # Topology
//
// Voltage levels use either bus-breaker topology (configured buses joined by
// switches) or node-breaker topology (integer nodes joined by switches and
// internal connections). Two derived views are computed lazily per voltage
// level and per variant:
//
//   - the bus-breaker view ([VoltageLevel.BusBreakerView]): configured buses,
//     or node groups joined through closed non-retained switches
//   - the bus view ([VoltageLevel.BusView]): electrical buses, joined through
//     every closed switch
//
// Results are cached and dropped by a single invalidation path whenever a
// switch, a connection or an element changes. Concurrent readers of one
// variant share a single computation.
//
// Connected and synchronous components ([Network.ConnectedComponents],
// [Network.SynchronousComponents]) are computed over the bus view with a
// union-find, numbered by decreasing size (0 is the main component).
//
// # Merge and split
//
// [Merge] and [Network.Merge] combine networks built independently. Dangling
// lines sharing a pairing key become [TieLine]s named "<dl1> + <dl2>"; any
// other id collision aborts the merge before anything is modified.
// [TieLine.Remove] splits a tie line back into its two dangling lines.
//
// # Concurrency
//
// A network has one writer at a time. Any number of goroutines may read
// concurrently, on the same or on different variants, while no write is in
// progress.
package network
