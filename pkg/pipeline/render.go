package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/gridcore/pkg/errors"
	gridio "github.com/matzehuels/gridcore/pkg/io"
	"github.com/matzehuels/gridcore/pkg/network"
	"github.com/matzehuels/gridcore/pkg/observability"
	"github.com/matzehuels/gridcore/pkg/render/nodelink"
)

// Summarize returns the summary of n as JSON bytes.
func Summarize(n *network.Network, opts Options) (*gridio.Summary, []byte, error) {
	if err := checkVariants(n, opts.Variants...); err != nil {
		return nil, nil, err
	}
	s, err := gridio.Summarize(n, opts.Variants...)
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	if err := gridio.WriteSummary(s, &buf); err != nil {
		return nil, nil, fmt.Errorf("encode summary: %w", err)
	}
	return s, buf.Bytes(), nil
}

// Render draws the render variant of n in every diagram format of opts.
func Render(ctx context.Context, n *network.Network, opts Options) (map[string][]byte, error) {
	v := n.Working()
	if opts.RenderVariant != "" {
		if err := checkVariants(n, opts.RenderVariant); err != nil {
			return nil, err
		}
		var err error
		if v, err = n.Variants().Variant(opts.RenderVariant); err != nil {
			return nil, err
		}
	}
	dot := nodelink.ToDOT(n, v, nodelink.Options{Detailed: opts.Detailed, Clusters: opts.Clusters})

	artifacts := make(map[string][]byte)
	for _, format := range opts.renderFormats() {
		start := time.Now()
		observability.Pipeline().OnRenderStart(ctx, format)
		var data []byte
		var err error
		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data, err = nodelink.RenderSVG(ctx, dot)
		default:
			err = errors.New(errors.ErrCodeUnsupported, "unsupported render format: %s", format)
		}
		observability.Pipeline().OnRenderComplete(ctx, format, time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// checkVariants reports the first id that is not a variant of n.
func checkVariants(n *network.Network, ids ...string) error {
	for _, id := range ids {
		if !n.Variants().IsVariantPresent(id) {
			return errors.NotFound("network %q has no variant %q", n.ID(), id)
		}
	}
	return nil
}
