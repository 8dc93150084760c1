// Package cli provides the command-line interface for leapingest.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapingest/internal/cli/commands"
	"github.com/leapstack-labs/leapingest/internal/cli/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leapingest",
		Short: "leapingest - batch ingestion and preprocessing pipeline",
		Long: `leapingest validates batches of delimited files against a schema, stages
the accepted rows in a SQL database and turns the staged data into a model
ready feature set.

Every run and every file state change is recorded in a local state store that
can be inspected with the runs, files and serve commands.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := newLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, config.ConfigKey(), cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./leapingest.yaml)")
	flags.String("project-dir", "", "Project root used to resolve relative paths")
	flags.String("training-dir", "", "Source bucket for training files")
	flags.String("prediction-dir", "", "Source bucket for prediction files")
	flags.String("source", "", "Source bucket for both modes")
	flags.String("schema-dir", "", "Directory holding schema_train and schema_predict")
	flags.String("database-dir", "", "Directory for the per-mode staging databases")
	flags.String("database", "", "Staging database path or name (overrides database-dir)")
	flags.String("target-type", "", "Staging database type (sqlite|duckdb|postgres)")
	flags.String("state", "", "Path to state database")
	flags.String("models-dir", "", "Directory of saved models")
	flags.String("model-lookup", "", "Model lookup strategy (substring|exact)")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	flags.String("log-format", "", "Log format (text|json)")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")

	completions := map[string][]string{
		"output":       {"auto", "text", "markdown", "json"},
		"log-format":   {"text", "json"},
		"log-level":    {"debug", "info", "warn", "error"},
		"target-type":  {"sqlite", "duckdb", "postgres"},
		"model-lookup": {"substring", "exact"},
	}
	for name, values := range completions {
		_ = rootCmd.RegisterFlagCompletionFunc(name, func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		})
	}

	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
	}))
	rootCmd.AddCommand(commands.NewIngestCommand())
	rootCmd.AddCommand(commands.NewPreprocessCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewArchiveCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(commands.NewFilesCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewModelsCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// newLogger builds the process logger. Verbose forces debug level.
func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
		}
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leapingest.

Bash:
  $ source <(leapingest completion bash)

Zsh:
  $ leapingest completion zsh > "${fpath[1]}/_leapingest"

Fish:
  $ leapingest completion fish | source

PowerShell:
  PS> leapingest completion powershell | Out-String | Invoke-Expression
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
