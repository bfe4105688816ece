package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridcore/pkg/cache"
	gridio "github.com/matzehuels/gridcore/pkg/io"
	"github.com/matzehuels/gridcore/pkg/network"
	"github.com/matzehuels/gridcore/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs load → summarize → render with caching. The network is only
// built when an output is missing from the cache.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	loadStart := time.Now()
	cases, caseHash, err := readCases(ctx, opts.Cases)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result := &Result{Artifacts: make(map[string][]byte), CaseHash: caseHash}

	summaryKey := r.Keyer.SummaryKey(caseHash, opts.SummaryKeyOpts())
	if opts.wantsSummary() && !opts.Refresh {
		if s, ok := r.cachedSummary(ctx, summaryKey); ok {
			result.Summary = s
			result.CacheInfo.SummaryHit = true
		}
	}
	formats := opts.renderFormats()
	if len(formats) > 0 && !opts.Refresh {
		result.CacheInfo.RenderHit = r.cachedArtifacts(ctx, caseHash, formats, opts, result.Artifacts)
	}

	needSummary := opts.wantsSummary() && !result.CacheInfo.SummaryHit
	needRender := len(formats) > 0 && !result.CacheInfo.RenderHit
	if !needSummary && !needRender {
		r.Logger.Info("served from cache", "cases", len(cases))
		return result, nil
	}

	n, err := build(ctx, cases, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Network = n
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Elements = len(n.Identifiables())
	r.Logger.Info("loaded network",
		"network", n.ID(),
		"elements", result.Stats.Elements,
		"variants", len(n.Variants().VariantIDs()),
		"duration", result.Stats.LoadTime)

	if needSummary {
		start := time.Now()
		s, data, err := Summarize(n, opts)
		if err != nil {
			return nil, fmt.Errorf("summarize: %w", err)
		}
		result.Summary = s
		result.Stats.SummaryTime = time.Since(start)
		r.store(ctx, "summary", summaryKey, data, cache.SummaryTTL)
		r.Logger.Debug("summarized network", "variants", len(s.Variants), "duration", result.Stats.SummaryTime)
	}

	if needRender {
		start := time.Now()
		artifacts, err := Render(ctx, n, opts)
		if err != nil {
			return nil, err
		}
		for format, data := range artifacts {
			result.Artifacts[format] = data
			r.store(ctx, "render", r.Keyer.RenderKey(caseHash, opts.RenderKeyOpts(format)), data, cache.RenderTTL)
		}
		result.Stats.RenderTime = time.Since(start)
		r.Logger.Info("rendered network", "formats", formats, "duration", result.Stats.RenderTime)
	}
	return result, nil
}

// Network loads the case files of opts without touching the cache.
func (r *Runner) Network(ctx context.Context, opts Options) (*network.Network, error) {
	r.applyLogger(&opts)
	return Load(ctx, opts)
}

func (r *Runner) cachedSummary(ctx context.Context, key string) (*gridio.Summary, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "summary")
		return nil, false
	}
	s, err := gridio.ReadSummary(bytes.NewReader(data))
	if err != nil {
		r.Logger.Debug("discarding unreadable cached summary", "key", key, "error", err)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "summary")
	return s, true
}

// cachedArtifacts fills artifacts from the cache and reports whether every
// format was found.
func (r *Runner) cachedArtifacts(ctx context.Context, caseHash string, formats []string, opts Options, artifacts map[string][]byte) bool {
	found := make(map[string][]byte, len(formats))
	for _, format := range formats {
		data, hit, err := r.Cache.Get(ctx, r.Keyer.RenderKey(caseHash, opts.RenderKeyOpts(format)))
		if err != nil || !hit {
			observability.Cache().OnCacheMiss(ctx, "render")
			return false
		}
		found[format] = data
	}
	for format, data := range found {
		artifacts[format] = data
	}
	observability.Cache().OnCacheHit(ctx, "render")
	return true
}

func (r *Runner) store(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
