package network

// Listener receives notifications about changes of a network. Callbacks run
// synchronously on the writer's goroutine.
type Listener interface {
	OnCreation(obj Identifiable)
	BeforeRemoval(obj Identifiable)
	AfterRemoval(id string)
	// OnUpdate reports an attribute change. variantID is empty for
	// attributes that are not per variant.
	OnUpdate(obj Identifiable, attribute, variantID string, oldValue, newValue any)
	OnVariantCreated(sourceID, targetID string)
	OnVariantOverwritten(sourceID, targetID string)
	OnVariantRemoved(variantID string)
}

// NoopListener implements Listener with no-ops. Embed it to implement only
// the callbacks of interest.
type NoopListener struct{}

func (NoopListener) OnCreation(Identifiable)                         {}
func (NoopListener) BeforeRemoval(Identifiable)                      {}
func (NoopListener) AfterRemoval(string)                             {}
func (NoopListener) OnUpdate(Identifiable, string, string, any, any) {}
func (NoopListener) OnVariantCreated(string, string)                 {}
func (NoopListener) OnVariantOverwritten(string, string)             {}
func (NoopListener) OnVariantRemoved(string)                         {}

// AddListener registers l.
func (n *Network) AddListener(l Listener) {
	n.listeners = append(n.listeners, l)
}

// RemoveListener unregisters l.
func (n *Network) RemoveListener(l Listener) {
	for i, cur := range n.listeners {
		if cur == l {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

func (n *Network) notifyCreation(obj Identifiable) {
	for _, l := range n.listeners {
		l.OnCreation(obj)
	}
}

func (n *Network) notifyBeforeRemoval(obj Identifiable) {
	for _, l := range n.listeners {
		l.BeforeRemoval(obj)
	}
}

func (n *Network) notifyAfterRemoval(id string) {
	for _, l := range n.listeners {
		l.AfterRemoval(id)
	}
}

func (n *Network) notifyUpdate(obj Identifiable, attribute, variantID string, oldValue, newValue any) {
	for _, l := range n.listeners {
		l.OnUpdate(obj, attribute, variantID, oldValue, newValue)
	}
}

func (n *Network) notifyVariant(fn func(Listener)) {
	for _, l := range n.listeners {
		fn(l)
	}
}
