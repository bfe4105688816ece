package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gridcore/pkg/cache"
	gridio "github.com/matzehuels/gridcore/pkg/io"
	"github.com/matzehuels/gridcore/pkg/network"
	"github.com/matzehuels/gridcore/pkg/observability"
)

// caseData is one case file read from disk.
type caseData struct {
	path string
	data []byte
}

// readCases reads every case file concurrently and returns them in input
// order, with the combined hash used in cache keys.
func readCases(ctx context.Context, paths []string) ([]caseData, string, error) {
	cases := make([]caseData, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			cases[i] = caseData{path: path, data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	if len(cases) == 1 {
		return cases, cache.Hash(cases[0].data), nil
	}
	var combined bytes.Buffer
	for _, c := range cases {
		combined.WriteString(cache.Hash(c.data))
	}
	return cases, cache.Hash(combined.Bytes()), nil
}

// build builds every case concurrently and merges them when there are
// several. Networks are built independently, so one goroutine per file is
// safe; the merge runs once all are built.
func build(ctx context.Context, cases []caseData, opts Options) (*network.Network, error) {
	nets := make([]*network.Network, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			observability.Pipeline().OnLoadStart(gctx, c.path)
			n, err := gridio.ReadCase(bytes.NewReader(c.data), network.WithLogger(opts.Logger))
			elements := 0
			if n != nil {
				elements = len(n.Identifiables())
			}
			observability.Pipeline().OnLoadComplete(gctx, c.path, elements, time.Since(start), err)
			if err != nil {
				return fmt.Errorf("%s: %w", c.path, err)
			}
			opts.Logger.Debug("loaded case", "path", c.path, "network", n.ID(), "elements", elements, "duration", time.Since(start))
			nets[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(nets) == 1 {
		return nets[0], nil
	}
	return network.Merge(opts.MergeID, nets...)
}

// Load reads and builds the case files of opts, merging them when there are
// several.
func Load(ctx context.Context, opts Options) (*network.Network, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	cases, _, err := readCases(ctx, opts.Cases)
	if err != nil {
		return nil, err
	}
	return build(ctx, cases, opts)
}
