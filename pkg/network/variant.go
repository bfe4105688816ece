package network

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/matzehuels/gridcore/pkg/errors"
	"github.com/matzehuels/gridcore/pkg/observability"
)

// InitialVariantID is the id of the variant every network starts with.
const InitialVariantID = "InitialState"

// Variant is a handle on one variant of a network, obtained from its
// [VariantManager]. Handles stay valid until the variant is removed; using a
// removed handle panics.
type Variant struct {
	s *variantSlot
}

type variantSlot struct {
	id      string
	index   int
	removed atomic.Bool
}

// ID returns the variant id, or "" for the zero Variant.
func (v Variant) ID() string {
	if v.s == nil {
		return ""
	}
	return v.s.id
}

// IsZero reports whether v is the zero Variant.
func (v Variant) IsZero() bool { return v.s == nil }

// index returns the slot of v in every per-variant array.
func (v Variant) index() int {
	if v.s == nil {
		panic(errors.IllegalState("zero variant handle"))
	}
	if v.s.removed.Load() {
		panic(errors.IllegalState("variant %q has been removed", v.s.id))
	}
	return v.s.index
}

// variantStore is one per-variant array. The variant manager decides when
// arrays change size; each store decides how its values are copied.
type variantStore interface {
	extend(number, source int)
	reduce(number int)
	delete(index int)
	allocate(indexes []int, source int)
}

// variantAware is implemented by everything holding variant stores.
type variantAware interface {
	extendVariantArraySize(number, source int)
	reduceVariantArraySize(number int)
	deleteVariantArrayElement(index int)
	allocateVariantArrayElement(indexes []int, source int)
}

// perVariant holds one value per variant slot. clone, when set, produces the
// value of a new slot from the source slot; values are copied otherwise.
type perVariant[T any] struct {
	values []T
	clone  func(T) T
}

func newPerVariant[T any](size int, init T) perVariant[T] {
	values := make([]T, size)
	for i := range values {
		values[i] = init
	}
	return perVariant[T]{values: values}
}

func newPerVariantFunc[T any](size int, fresh func(T) T) perVariant[T] {
	var zero T
	values := make([]T, size)
	for i := range values {
		values[i] = fresh(zero)
	}
	return perVariant[T]{values: values, clone: fresh}
}

func (p *perVariant[T]) copyOf(source int) T {
	if p.clone != nil {
		return p.clone(p.values[source])
	}
	return p.values[source]
}

func (p *perVariant[T]) extend(number, source int) {
	for range number {
		p.values = append(p.values, p.copyOf(source))
	}
}

func (p *perVariant[T]) reduce(number int) {
	n := len(p.values) - number
	clear(p.values[n:])
	p.values = p.values[:n]
}

func (p *perVariant[T]) delete(index int) {
	var zero T
	p.values[index] = zero
}

func (p *perVariant[T]) allocate(indexes []int, source int) {
	for _, i := range indexes {
		p.values[i] = p.copyOf(source)
	}
}

// VariantManager creates, overwrites and removes the variants of a network.
//
// Variant ids map to slots of every per-variant array. Removing the last
// slot shrinks the arrays (together with any free slots before it); removing
// another slot frees it for reuse by the next clone.
type VariantManager struct {
	net     *Network
	mu      sync.RWMutex
	slots   map[string]*variantSlot
	unused  []int
	size    int
	working *variantSlot
}

func newVariantManager(n *Network) *VariantManager {
	initial := &variantSlot{id: InitialVariantID}
	return &VariantManager{
		net:     n,
		slots:   map[string]*variantSlot{InitialVariantID: initial},
		size:    1,
		working: initial,
	}
}

// Working returns the handle of the working variant.
func (m *VariantManager) Working() Variant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Variant{m.working}
}

// SetWorkingVariant selects the working variant.
func (m *VariantManager) SetWorkingVariant(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return errors.IllegalState("variant %q not found", id)
	}
	m.working = s
	return nil
}

// Variant returns the handle of variant id.
func (m *VariantManager) Variant(id string) (Variant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.slots[id]
	if !ok {
		return Variant{}, errors.IllegalState("variant %q not found", id)
	}
	return Variant{s}, nil
}

// IsVariantPresent reports whether variant id exists.
func (m *VariantManager) IsVariantPresent(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.slots[id]
	return ok
}

// VariantIDs returns the variant ids ordered by slot.
func (m *VariantManager) VariantIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots := make([]*variantSlot, 0, len(m.slots))
	for _, s := range m.slots {
		slots = append(slots, s)
	}
	slices.SortFunc(slots, func(a, b *variantSlot) int { return a.index - b.index })
	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.id
	}
	return ids
}

// handles returns a handle per variant, ordered by slot.
func (m *VariantManager) handles() []Variant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Variant, 0, len(m.slots))
	for _, s := range m.slots {
		out = append(out, Variant{s})
	}
	slices.SortFunc(out, func(a, b Variant) int { return a.s.index - b.s.index })
	return out
}

// VariantArraySize returns the length of every per-variant array, free slots
// included.
func (m *VariantManager) VariantArraySize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// CloneVariant creates one variant per target id, each a copy of source.
// Free slots are recycled before the arrays are extended.
//
// Listeners and hooks run once the manager is unlocked, so they may call
// back into it.
func (m *VariantManager) CloneVariant(sourceID string, targetIDs ...string) error {
	if err := m.net.checkLive(); err != nil {
		return err
	}
	if len(targetIDs) == 0 {
		return errors.IllegalState("no target variant id given")
	}
	if err := m.cloneSlots(sourceID, targetIDs); err != nil {
		return err
	}

	for _, id := range targetIDs {
		m.net.logger.Debug("variant created", "network", m.net.id, "source", sourceID, "variant", id)
		observability.Variant().OnVariantCreated(m.net.id, sourceID, id)
		m.net.notifyVariant(func(l Listener) { l.OnVariantCreated(sourceID, id) })
	}
	return nil
}

func (m *VariantManager) cloneSlots(sourceID string, targetIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.slots[sourceID]
	if !ok {
		return errors.IllegalState("variant %q not found", sourceID)
	}
	seen := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		if err := errors.ValidateIdentifier("variant", id); err != nil {
			return err
		}
		if _, ok := m.slots[id]; ok || seen[id] {
			return errors.IllegalState("variant %q already exists", id)
		}
		seen[id] = true
	}

	var recycled []int
	extended := 0
	for _, id := range targetIDs {
		s := &variantSlot{id: id}
		if len(m.unused) > 0 {
			s.index = m.unused[0]
			m.unused = m.unused[1:]
			recycled = append(recycled, s.index)
		} else {
			s.index = m.size + extended
			extended++
		}
		m.slots[id] = s
	}

	objects := m.net.variantObjects()
	if len(recycled) > 0 {
		for _, o := range objects {
			o.allocateVariantArrayElement(recycled, source.index)
		}
	}
	if extended > 0 {
		for _, o := range objects {
			o.extendVariantArraySize(extended, source.index)
		}
		m.size += extended
	}
	return nil
}

// OverwriteVariant copies source into the existing variant target.
func (m *VariantManager) OverwriteVariant(sourceID, targetID string) error {
	if err := m.net.checkLive(); err != nil {
		return err
	}
	copied, err := m.overwriteSlot(sourceID, targetID)
	if err != nil || !copied {
		return err
	}

	m.net.logger.Debug("variant overwritten", "network", m.net.id, "source", sourceID, "variant", targetID)
	observability.Variant().OnVariantOverwritten(m.net.id, sourceID, targetID)
	m.net.notifyVariant(func(l Listener) { l.OnVariantOverwritten(sourceID, targetID) })
	return nil
}

func (m *VariantManager) overwriteSlot(sourceID, targetID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.slots[sourceID]
	if !ok {
		return false, errors.IllegalState("variant %q not found", sourceID)
	}
	target, ok := m.slots[targetID]
	if !ok {
		return false, errors.IllegalState("variant %q not found", targetID)
	}
	if source == target {
		return false, nil
	}
	for _, o := range m.net.variantObjects() {
		o.allocateVariantArrayElement([]int{target.index}, source.index)
	}
	return true, nil
}

// RemoveVariant removes variant id. The last remaining variant and the
// working variant cannot be removed.
func (m *VariantManager) RemoveVariant(id string) error {
	if err := m.net.checkLive(); err != nil {
		return err
	}
	if err := m.removeSlot(id); err != nil {
		return err
	}

	m.net.logger.Debug("variant removed", "network", m.net.id, "variant", id)
	observability.Variant().OnVariantRemoved(m.net.id, id)
	m.net.notifyVariant(func(l Listener) { l.OnVariantRemoved(id) })
	return nil
}

func (m *VariantManager) removeSlot(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return errors.IllegalState("variant %q not found", id)
	}
	if len(m.slots) == 1 {
		return errors.IllegalState("cannot remove the last variant %q", id)
	}
	if s == m.working {
		return errors.IllegalState("variant %q is the working variant", id)
	}

	delete(m.slots, id)
	s.removed.Store(true)

	objects := m.net.variantObjects()
	if s.index == m.size-1 {
		// pop the removed slot and every free slot directly before it
		number := 1
		for {
			i := slices.Index(m.unused, m.size-1-number)
			if i < 0 {
				break
			}
			m.unused = slices.Delete(m.unused, i, i+1)
			number++
		}
		for _, o := range objects {
			o.reduceVariantArraySize(number)
		}
		m.size -= number
	} else {
		m.unused = append(m.unused, s.index)
		slices.Sort(m.unused)
		for _, o := range objects {
			o.deleteVariantArrayElement(s.index)
		}
	}
	return nil
}
