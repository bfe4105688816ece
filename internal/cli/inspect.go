package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	gridio "github.com/matzehuels/gridcore/pkg/io"
	"github.com/matzehuels/gridcore/pkg/pipeline"
)

// summaryOpts holds the flags shared by inspect and merge.
type summaryOpts struct {
	variants []string
	mergeID  string
	json     bool
	refresh  bool
}

func (o *summaryOpts) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&o.variants, "variant", nil, "variant(s) to describe (default all)")
	cmd.Flags().BoolVar(&o.json, "json", false, "print the summary as JSON")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "ignore cached results")
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts summaryOpts
	cmd := &cobra.Command{
		Use:   "inspect <case.toml>...",
		Short: "Describe the elements, buses and components of a network",
		Long: `Describe a network: validation level, element counts, and for each variant
the buses of both topology views with their connected and synchronous components.

Several case files are merged first, as with the merge command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.summarize(cmd.Context(), args, &opts)
			if err != nil {
				return err
			}
			if opts.json {
				return gridio.WriteSummary(s, cmd.OutOrStdout())
			}
			printSummary(cmd.OutOrStdout(), s)
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.mergeID, "id", pipeline.DefaultMergeID, "id of the merged network")
	return cmd
}

// mergeCommand creates the merge command.
func (c *CLI) mergeCommand() *cobra.Command {
	var opts summaryOpts
	cmd := &cobra.Command{
		Use:   "merge <a.toml> <b.toml>...",
		Short: "Merge case files and report the tie lines created",
		Long: `Merge networks in the order given. Unpaired dangling lines of different
networks sharing a pairing key become tie lines.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.summarize(cmd.Context(), args, &opts)
			if err != nil {
				return err
			}
			if opts.json {
				return gridio.WriteSummary(s, cmd.OutOrStdout())
			}
			printMerge(cmd.OutOrStdout(), s)
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.mergeID, "id", pipeline.DefaultMergeID, "id of the merged network")
	return cmd
}

// summarize runs the pipeline for the JSON summary only.
func (c *CLI) summarize(ctx context.Context, cases []string, opts *summaryOpts) (*gridio.Summary, error) {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger, "summarize", "cases", len(cases), "variants", opts.variants)

	runner := c.newRunner(ctx)
	defer runner.Close()

	result, err := runner.Execute(ctx, pipeline.Options{
		Cases:    cases,
		MergeID:  opts.mergeID,
		Variants: opts.variants,
		Formats:  []string{pipeline.FormatJSON},
		Refresh:  opts.refresh,
		Logger:   logger,
	})
	if err != nil {
		return nil, prog.fail(err)
	}
	if result.CacheInfo.SummaryHit {
		prog.done("Summary served from cache", "network", result.Summary.ID)
	} else {
		prog.done("Loaded network", "network", result.Summary.ID, "elements", result.Stats.Elements)
	}
	return result.Summary, nil
}

// printSummary writes the human-readable form of s.
func printSummary(w io.Writer, s *gridio.Summary) {
	printKeyValue(w, "Network", s.ID)
	if s.Name != "" && s.Name != s.ID {
		printKeyValue(w, "Name", s.Name)
	}
	printKeyValue(w, "Format", s.SourceFormat)
	if !s.CaseDate.IsZero() {
		printKeyValue(w, "Case date", s.CaseDate.Format("2006-01-02 15:04 MST"))
	}
	printKeyValue(w, "Validation", s.ValidationLevel)
	if len(s.SubNetworks) > 0 {
		printKeyValue(w, "Subnetworks", strings.Join(s.SubNetworks, ", "))
	}

	fmt.Fprintln(w)
	for _, typ := range slices.Sorted(maps.Keys(s.Counts)) {
		printDetail(w, "%-26s %d", typ, s.Counts[typ])
	}

	for _, v := range s.Variants {
		fmt.Fprintln(w)
		printInfo(w, "Variant %s", StyleHighlight.Render(v.ID))
		printStats(w, v)
		for _, comp := range v.ConnectedComponents {
			printDetail(w, "cc %d: %s", comp.Num, strings.Join(comp.Buses, " "))
		}
	}
}

// printMerge writes the sub-networks and tie lines of a merged network.
func printMerge(w io.Writer, s *gridio.Summary) {
	printSuccess(w, "Merged %d networks into %s", len(s.SubNetworks), StyleHighlight.Render(s.ID))
	for _, id := range s.SubNetworks {
		printDetail(w, "subnetwork %s", id)
	}
	if len(s.TieLines) == 0 {
		printWarning(w, "No tie lines created")
		return
	}
	fmt.Fprintln(w)
	printInfo(w, "%d tie lines", len(s.TieLines))
	for _, tl := range s.TieLines {
		printTieLine(w, tl)
	}
}
