package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridcore/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file path (or base path for multiple outputs)
	formats  []string // diagram formats: "svg", "dot"
	variant  string   // variant to draw, default the working variant
	mergeID  string
	detailed bool // show terminals, voltage and components in bus labels
	clusters bool // group buses by substation and voltage level
	refresh  bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{mergeID: pipeline.DefaultMergeID}

	cmd := &cobra.Command{
		Use:   "render <case.toml>...",
		Short: "Draw a bus/branch diagram of a network variant",
		Long: `Draw the bus view of one variant: a node per bus, an edge per line,
transformer, tie line and HVDC line. Buses outside the main connected
component are coloured by component.

The format follows the extension of --output, or --format when given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = resolveFormats(parseFormats(formatsStr), opts.output)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			if slices.Contains(opts.formats, pipeline.FormatJSON) {
				return fmt.Errorf("render draws diagrams only; use inspect --json for summaries")
			}
			return c.runRender(cmd, args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot (comma-separated)")
	cmd.Flags().StringVar(&opts.variant, "variant", "", "variant to draw (default the working variant)")
	cmd.Flags().StringVar(&opts.mergeID, "id", opts.mergeID, "id of the merged network")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show detailed bus labels")
	cmd.Flags().BoolVar(&opts.clusters, "clusters", false, "group buses by substation and voltage level")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")

	return cmd
}

// resolveFormats returns the explicit formats, else the format implied by
// the output extension, else svg.
func resolveFormats(formats []string, output string) []string {
	if len(formats) > 0 {
		return formats
	}
	if ext := strings.TrimPrefix(filepath.Ext(output), "."); ext != "" {
		return []string{ext}
	}
	return []string{pipeline.FormatSVG}
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .dot), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPaths maps each format to the file it is written to.
func outputPaths(input string, opts *renderOpts) map[string]string {
	paths := make(map[string]string, len(opts.formats))
	if len(opts.formats) == 1 && opts.output != "" {
		paths[opts.formats[0]] = opts.output
		return paths
	}
	base := basePath(opts.output, input)
	for _, f := range opts.formats {
		paths[f] = base + "." + f
	}
	return paths
}

func (c *CLI) runRender(cmd *cobra.Command, cases []string, opts *renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger, "render", "variant", opts.variant, "formats", opts.formats)

	runner := c.newRunner(ctx)
	defer runner.Close()

	result, err := runner.Execute(ctx, pipeline.Options{
		Cases:         cases,
		MergeID:       opts.mergeID,
		RenderVariant: opts.variant,
		Formats:       opts.formats,
		Detailed:      opts.detailed,
		Clusters:      opts.clusters,
		Refresh:       opts.refresh,
		Logger:        logger,
	})
	if err != nil {
		return prog.fail(err)
	}
	if result.CacheInfo.RenderHit {
		prog.done("Diagram served from cache")
	} else {
		prog.done("Rendered diagram", "elements", result.Stats.Elements)
	}

	out := cmd.OutOrStdout()
	paths := outputPaths(cases[0], opts)
	for _, format := range opts.formats {
		if err := writeArtifact(ctx, paths[format], result.Artifacts[format]); err != nil {
			return err
		}
		printFile(out, paths[format])
	}
	return nil
}

func writeArtifact(ctx context.Context, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	loggerFromContext(ctx).Debugf("Wrote %s: %d bytes", path, len(data))
	return nil
}
