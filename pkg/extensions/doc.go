// Package extensions provides capability objects that can be attached to
// network elements.
//
// # Overview
//
// Extensions carry data the core model does not know about. Each one
// implements [network.Extension] and is stored on its owner keyed by its
// concrete type, so an element holds at most one extension of each kind:
//
//	pos, err := extensions.NewSubstationPosition(48.85, 2.35)
//	if err != nil {
//	    return err
//	}
//	substation.AddExtension(pos)
//
//	if pos, ok := network.ExtensionOf[*extensions.SubstationPosition](substation); ok {
//	    fmt.Println(pos.Coordinate())
//	}
//
// # Available Extensions
//
//   - [SubstationPosition]: geographic coordinate of a substation
//   - [BusbarSectionPosition]: busbar and section index of a busbar section
//   - [BoundaryNode]: boundary-point metadata of a dangling line
//
// Extensions implement [network.Attachable] and remember their owner. When
// networks are merged, network-level extensions move to the sub-network that
// preserves the absorbed network.
package extensions
