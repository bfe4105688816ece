// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about topology computations, variant operations, merges,
// the case-file pipeline, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Network model hooks carry no context.Context: the model performs no I/O and
// its operations are never cancelled. Pipeline and cache hooks do.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetTopologyHooks(&myTopologyHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	// ... build buses ...
//	observability.Topology().OnBusesComputed(vlID, "bus", variantID, len(buses), time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Topology Hooks
// =============================================================================

// TopologyHooks receives events from the topology engine and the
// connectivity manager.
type TopologyHooks interface {
	// OnBusesComputed records a (re)build of one voltage level's bus cache.
	// view is "bus" or "bus-breaker".
	OnBusesComputed(voltageLevelID, view, variantID string, busCount int, duration time.Duration)

	// OnComponentsComputed records a (re)computation of connected or
	// synchronous components. kind is "connected" or "synchronous".
	OnComponentsComputed(kind, variantID string, componentCount int, duration time.Duration)

	// OnInvalidate records a topology invalidation. variantID is empty when
	// every variant was invalidated.
	OnInvalidate(networkID, variantID string)
}

// =============================================================================
// Variant Hooks
// =============================================================================

// VariantHooks receives events from the variant manager.
type VariantHooks interface {
	OnVariantCreated(networkID, sourceID, targetID string)
	OnVariantOverwritten(networkID, sourceID, targetID string)
	OnVariantRemoved(networkID, variantID string)
}

// =============================================================================
// Merge Hooks
// =============================================================================

// MergeHooks receives events from the merge engine.
type MergeHooks interface {
	// OnMergeComplete records the end of a merge. state is the final state
	// of the merge ("done" or "aborted").
	OnMergeComplete(networkID string, merged int, tieLines int, state string, duration time.Duration, err error)

	// OnTieLineRemoved records a split.
	OnTieLineRemoved(networkID, tieLineID string)
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the case-file pipeline.
type PipelineHooks interface {
	OnLoadStart(ctx context.Context, path string)
	OnLoadComplete(ctx context.Context, path string, elementCount int, duration time.Duration, err error)

	OnRenderStart(ctx context.Context, format string)
	OnRenderComplete(ctx context.Context, format string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTopologyHooks is a no-op implementation of TopologyHooks.
type NoopTopologyHooks struct{}

func (NoopTopologyHooks) OnBusesComputed(string, string, string, int, time.Duration) {}
func (NoopTopologyHooks) OnComponentsComputed(string, string, int, time.Duration)    {}
func (NoopTopologyHooks) OnInvalidate(string, string)                                {}

// NoopVariantHooks is a no-op implementation of VariantHooks.
type NoopVariantHooks struct{}

func (NoopVariantHooks) OnVariantCreated(string, string, string)     {}
func (NoopVariantHooks) OnVariantOverwritten(string, string, string) {}
func (NoopVariantHooks) OnVariantRemoved(string, string)             {}

// NoopMergeHooks is a no-op implementation of MergeHooks.
type NoopMergeHooks struct{}

func (NoopMergeHooks) OnMergeComplete(string, int, int, string, time.Duration, error) {}
func (NoopMergeHooks) OnTieLineRemoved(string, string)                                {}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnRenderStart(context.Context, string)                             {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, string, time.Duration, error)    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	topologyHooks TopologyHooks = NoopTopologyHooks{}
	variantHooks  VariantHooks  = NoopVariantHooks{}
	mergeHooks    MergeHooks    = NoopMergeHooks{}
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetTopologyHooks registers custom topology hooks.
func SetTopologyHooks(h TopologyHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		topologyHooks = h
	}
}

// SetVariantHooks registers custom variant hooks.
func SetVariantHooks(h VariantHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		variantHooks = h
	}
}

// SetMergeHooks registers custom merge hooks.
func SetMergeHooks(h MergeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		mergeHooks = h
	}
}

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Topology returns the registered topology hooks.
func Topology() TopologyHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return topologyHooks
}

// Variant returns the registered variant hooks.
func Variant() VariantHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return variantHooks
}

// Merge returns the registered merge hooks.
func Merge() MergeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return mergeHooks
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	topologyHooks = NoopTopologyHooks{}
	variantHooks = NoopVariantHooks{}
	mergeHooks = NoopMergeHooks{}
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
}
