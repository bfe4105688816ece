// Package pipeline runs the case-file pipeline shared by the CLI commands.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read and build every case file concurrently, then merge them
//     when there are several
//  2. Summarize: describe element counts, buses and components per variant
//  3. Render: produce DOT or SVG bus/branch diagrams of one variant
//
// Summaries and renderings are cached under keys derived from the SHA-256
// of the case file bytes. When every requested output is cached, the
// network is not built at all.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Cases:   []string{"north.toml", "south.toml"},
//	    Formats: []string{pipeline.FormatJSON, pipeline.FormatSVG},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts[pipeline.FormatSVG]
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridcore/pkg/cache"
	"github.com/matzehuels/gridcore/pkg/errors"
	gridio "github.com/matzehuels/gridcore/pkg/io"
	"github.com/matzehuels/gridcore/pkg/network"
)

// DefaultMergeID is the id of the network merged from several case files.
const DefaultMergeID = "merged"

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// Options configures one pipeline run.
type Options struct {
	// Cases are the case files to load. Several files are merged.
	Cases []string `json:"cases"`
	// MergeID names the merged network.
	MergeID string `json:"merge_id,omitempty"`
	// Variants restricts the summary; empty means every variant.
	Variants []string `json:"variants,omitempty"`
	// RenderVariant is the variant drawn by the dot and svg formats; empty
	// means the working variant.
	RenderVariant string   `json:"render_variant,omitempty"`
	Formats       []string `json:"formats"`
	Detailed      bool     `json:"detailed,omitempty"`
	Clusters      bool     `json:"clusters,omitempty"`
	// Refresh ignores cached outputs and overwrites them.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result holds the outputs of a run. Network is nil when every output came
// from the cache.
type Result struct {
	Network   *network.Network
	Summary   *gridio.Summary
	Artifacts map[string][]byte
	CaseHash  string
	CacheInfo CacheInfo
	Stats     Stats
}

// Stats records timings of a run.
type Stats struct {
	LoadTime    time.Duration
	SummaryTime time.Duration
	RenderTime  time.Duration
	Elements    int
}

// CacheInfo tells which outputs came from the cache.
type CacheInfo struct {
	SummaryHit bool
	RenderHit  bool
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Cases) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one case file is required")
	}
	for _, path := range o.Cases {
		if err := errors.ValidateCaseFile(path); err != nil {
			return err
		}
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.MergeID == "" {
		o.MergeID = DefaultMergeID
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// renderFormats returns the requested diagram formats.
func (o *Options) renderFormats() []string {
	var out []string
	for _, f := range o.Formats {
		if f != FormatJSON {
			out = append(out, f)
		}
	}
	return out
}

func (o *Options) wantsSummary() bool { return slices.Contains(o.Formats, FormatJSON) }

// SummaryKeyOpts returns cache key options for the summary.
func (o *Options) SummaryKeyOpts() cache.SummaryKeyOpts {
	opts := cache.SummaryKeyOpts{Variants: o.Variants}
	if len(o.Cases) > 1 {
		opts.MergeID = o.MergeID
	}
	return opts
}

// RenderKeyOpts returns cache key options for one diagram format.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		Variant:  o.RenderVariant,
		Format:   format,
		Detailed: o.Detailed,
		Clusters: o.Clusters,
	}
}
