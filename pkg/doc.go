// Package pkg provides the libraries behind gridcore, an in-memory model of
// power grid networks.
//
// # Overview
//
// A network is a set of substations, voltage levels and equipment sharing
// one identifier index. Every mutable attribute has a value per variant, so
// many what-if states of the same grid live side by side. Buses and
// components are derived from the switch graph on demand and cached per
// variant. Networks built independently can be merged, pairing their
// boundary lines into tie lines.
//
// # Architecture
//
// The typical data flow through gridcore:
//
//	TOML case file(s)
//	         ↓
//	    [io] package (build a network per file)
//	         ↓
//	    [network] package (merge, clone variants, compute buses and components)
//	         ↓
//	    [io] summaries / [render/nodelink] diagrams
//
// [pipeline] runs this flow with caching for the CLI and the HTTP server.
//
// # Quick Start
//
//	n, err := io.ImportCase("north.toml")
//	if err != nil {
//	    return err
//	}
//	if err := n.Variants().CloneVariant(network.InitialVariantID, "outage"); err != nil {
//	    return err
//	}
//	v, _ := n.Variants().Variant("outage")
//	for _, c := range n.ConnectedComponents(v) {
//	    fmt.Println(c.Num(), c.Size())
//	}
//
// # Main Packages
//
// [network] - The object model: identifiable index, per-variant attribute
// arrays, bus-breaker and node-breaker topologies, connected and synchronous
// components, merge into sub-networks, extensions and listeners.
//
// [extensions] - Typed extensions for substations, busbar sections and
// dangling lines (positions, boundary nodes).
//
// [io] - TOML case-file reader and JSON summaries.
//
// [render/nodelink] - Bus/branch diagrams in DOT, laid out to SVG with
// Graphviz.
//
// [pipeline] - Load, summarize and render with caching.
//
// [cache] - Null, file, Redis and MongoDB caches with content-hash keys.
//
// [errors] - Coded errors shared by every package.
//
// [observability] - Hooks for topology, variant, merge, pipeline and cache
// events.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/network/...            # Specific package
//	go test -run Example ./pkg/network   # Examples only
//	go test -tags integration ./pkg/...  # Include Redis and MongoDB tests
//
// [network]: https://pkg.go.dev/github.com/matzehuels/gridcore/pkg/network
// [extensions]: https://pkg.go.dev/github.com/matzehuels/gridcore/pkg/extensions
// [io]: https://pkg.go.dev/github.com/matzehuels/gridcore/pkg/io
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/gridcore/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/gridcore/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/gridcore/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/gridcore/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/gridcore/pkg/observability
package pkg
