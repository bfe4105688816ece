package cli

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	gridio "github.com/matzehuels/gridcore/pkg/io"
	"github.com/matzehuels/gridcore/pkg/pipeline"
)

// variantsCommand creates the variants command.
func (c *CLI) variantsCommand() *cobra.Command {
	var (
		opts summaryOpts
		pick bool
	)
	cmd := &cobra.Command{
		Use:   "variants <case.toml>...",
		Short: "List the variants of a network with their component counts",
		Long: `List the variants of a network with their bus and component counts.

With --pick, choose a variant interactively and print its buses.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.summarize(cmd.Context(), args, &opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !pick {
				printVariants(out, s)
				return nil
			}

			final, err := tea.NewProgram(NewVariantListModel(s.Variants)).Run()
			if err != nil {
				return err
			}
			m, ok := final.(VariantListModel)
			if !ok || m.Selected == nil {
				printDetail(out, "No selection made")
				return nil
			}
			printBuses(out, *m.Selected)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pick, "pick", false, "choose a variant interactively and list its buses")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().StringVar(&opts.mergeID, "id", pipeline.DefaultMergeID, "id of the merged network")
	return cmd
}

// printVariants prints one table row per variant.
func printVariants(w io.Writer, s *gridio.Summary) {
	if len(s.Variants) == 0 {
		printError(w, "Network %s has no variants", s.ID)
		return
	}
	rows := make([][]string, len(s.Variants))
	for i, v := range s.Variants {
		rows[i] = variantRow(v)
	}
	t := variantTable(rows).StyleFunc(func(row, col int) lipgloss.Style {
		if row == headerRow {
			return tableHeaderStyle
		}
		return lipgloss.NewStyle().Padding(0, 1)
	})
	printInfo(w, "%d variants of %s", len(s.Variants), StyleHighlight.Render(s.ID))
	fmt.Fprintln(w, t.Render())
}

// printBuses prints the bus-view buses of one variant.
func printBuses(w io.Writer, v gridio.VariantSummary) {
	printInfo(w, "Variant %s", StyleHighlight.Render(v.ID))
	printStats(w, v)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Bus", "Voltage level", "Terminals", "V", "CC", "SC").
		Rows(busRows(v)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return tableHeaderStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, t.Render())
}
