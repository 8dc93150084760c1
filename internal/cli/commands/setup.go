package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapingest/internal/cli/config"
	"github.com/leapstack-labs/leapingest/internal/cli/output"
	"github.com/leapstack-labs/leapingest/internal/engine"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// CommandContext bundles what a command needs once the root command has
// loaded the configuration.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext resolves the config, logger and renderer of cmd and
// opens an engine over the state store. The returned func closes it.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx, err := newLightContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cmdCtx.Engine, err = engine.New(engine.ConfigFrom(cmdCtx.Cfg, cmdCtx.Logger)); err != nil {
		return nil, nil, err
	}
	eng := cmdCtx.Engine
	return cmdCtx, func() { _ = eng.Close() }, nil
}

// newLightContext is NewCommandContext without the engine, for commands
// that never touch the state store.
func newLightContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := configFrom(cmd)
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// modeArg parses the optional mode argument, defaulting to train.
func modeArg(args []string) (core.Mode, error) {
	if len(args) == 0 {
		return core.ModeTrain, nil
	}
	return core.ParseMode(args[0])
}

// completeMode offers the mode names for shell completion.
func completeMode(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{string(core.ModeTrain), string(core.ModePredict)}, cobra.ShellCompDirectiveNoFileComp
}

// configFrom returns the loaded config of cmd, or nil when none was loaded.
func configFrom(cmd *cobra.Command) *config.Config {
	if cmd.Context() == nil {
		return nil
	}
	return config.GetConfig(cmd.Context())
}
