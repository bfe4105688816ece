package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/gridcore/internal/server"
	"github.com/matzehuels/gridcore/pkg/errors"
	"github.com/matzehuels/gridcore/pkg/pipeline"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr, mergeID string
	cmd := &cobra.Command{
		Use:   "serve <case.toml>...",
		Short: "Serve summaries and diagrams of case files over HTTP",
		Long: `Serve summaries and diagrams of case files over HTTP until interrupted.

Routes: /summary, /variants and /variants/{variant}/diagram/{dot|svg}.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := errors.ValidateCaseFile(path); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			runner := c.newRunner(ctx)
			defer runner.Close()

			srv := server.New(runner, args, mergeID, loggerFromContext(ctx))
			printInfo(cmd.OutOrStdout(), "Serving %d case files on %s", len(args), StyleHighlight.Render(addr))
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().StringVar(&mergeID, "id", pipeline.DefaultMergeID, "id of the merged network")
	return cmd
}
