package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/gridcore/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Logging goes to the CLI logger at info level; --verbose switches it to
// debug with call sites. Each command finds the logger, prefixed with the
// command name, through loggerFromContext.
func (c *CLI) RootCommand() *cobra.Command {
	buildinfo.Resolve()

	root := &cobra.Command{
		Use:          appName,
		Short:        "gridcore inspects, merges and draws power grid case files",
		Long:         `gridcore loads power grid case files into a versioned network model, reports buses and components per variant, merges neighbouring grids through their boundary lines, and draws bus/branch diagrams.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger.WithPrefix(cmd.Name())))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the result cache")
	root.PersistentFlags().StringVar(&c.redisURL, "redis-url", "", "redis cache URL (default $"+redisURLEnv+")")
	root.PersistentFlags().StringVar(&c.mongoURI, "mongo-uri", "", "mongodb cache URI (default $"+mongoURIEnv+")")

	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.mergeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.variantsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
