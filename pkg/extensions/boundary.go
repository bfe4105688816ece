package extensions

import (
	"github.com/matzehuels/gridcore/pkg/errors"
	"github.com/matzehuels/gridcore/pkg/network"
)

// BoundaryNode describes the boundary point a dangling line ends at. Two
// dangling lines sharing a boundary node code usually share a pairing key.
type BoundaryNode struct {
	code    string
	name    string
	country string
	owner   network.Extendable
}

// NewBoundaryNode returns boundary-node metadata. code is required; country
// is the ISO code of the neighbouring area and may be empty.
func NewBoundaryNode(code, name, country string) (*BoundaryNode, error) {
	if err := errors.ValidateIdentifier("boundary node", code); err != nil {
		return nil, err
	}
	return &BoundaryNode{code: code, name: name, country: country}, nil
}

func (b *BoundaryNode) Name() string { return "boundaryNode" }

func (b *BoundaryNode) Attach(owner network.Extendable) { b.owner = owner }

func (b *BoundaryNode) DanglingLine() (*network.DanglingLine, bool) {
	dl, ok := b.owner.(*network.DanglingLine)
	return dl, ok
}

func (b *BoundaryNode) Code() string     { return b.code }
func (b *BoundaryNode) NodeName() string { return b.name }
func (b *BoundaryNode) Country() string  { return b.country }

// PairingKey returns the pairing key of the owning dangling line, falling
// back to the boundary node code when the line has none.
func (b *BoundaryNode) PairingKey() string {
	if dl, ok := b.DanglingLine(); ok && dl.PairingKey() != "" {
		return dl.PairingKey()
	}
	return b.code
}
