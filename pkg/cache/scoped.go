package cache

// ScopedKeyer prefixes the keys of another keyer, so several users or
// environments can share one Redis server.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "ci:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer is the
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) SummaryKey(caseHash string, opts SummaryKeyOpts) string {
	return k.prefix + k.inner.SummaryKey(caseHash, opts)
}

func (k *ScopedKeyer) RenderKey(caseHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(caseHash, opts)
}
