// Package cli provides the command-line interface for leapstream.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapstream/internal/cli/commands"
	"github.com/leapstack-labs/leapstream/internal/config"
	"github.com/leapstack-labs/leapstream/pkg/adapter"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leapstream",
		Short: "leapstream - paginated query streaming",
		Long: `leapstream executes SQL against DuckDB, PostgreSQL or SQLite and streams
the results page by page while the rest of the result is still being read.

Every query is recorded in a local journal with its outcome, page and row
counts.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd, cfgFile)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}} (commit %s, built %s)\n", GitCommit, BuildDate))

	addGlobalFlags(rootCmd, &cfgFile)
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListAdapters(), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// loadConfig stores the layered config and the CLI logger on the
// command's context. Help and completion run without a config.
func loadConfig(cmd *cobra.Command, cfgFile string) error {
	switch cmd.Name() {
	case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return nil
	}

	cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}

	logger := config.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if cfg.ConfigFile != "" {
		logger.Debug("using config file", "path", cfg.ConfigFile)
	}

	ctx := config.WithLogger(config.WithConfig(cmd.Context(), cfg), logger)
	cmd.SetContext(ctx)
	return nil
}

// addGlobalFlags registers the persistent flags. Their names map onto
// config keys in config.Load.
func addGlobalFlags(root *cobra.Command, cfgFile *string) {
	flags := root.PersistentFlags()
	flags.StringVar(cfgFile, "config", "", "config file (default: ./leapstream.yaml)")
	flags.String("env", "", "Environment to apply from the config file")
	flags.Int("page-size", config.DefaultPageSize, "Records fetched per page")
	flags.StringP("output", "o", "", "Output format (auto|table|json|csv|yaml)")
	flags.String("journal", "", "Path to the fill journal database")
	flags.Bool("no-journal", false, "Do not record queries in the journal")
	flags.String("type", "", "Database type (duckdb|postgres|sqlite)")
	flags.String("database", "", "Database file or name (empty for in-memory)")
	flags.BoolP("verbose", "v", false, "Verbose output")
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leapstream.

Bash:
  $ source <(leapstream completion bash)

Zsh:
  $ leapstream completion zsh > "${fpath[1]}/_leapstream"

Fish:
  $ leapstream completion fish | source

PowerShell:
  PS> leapstream completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
