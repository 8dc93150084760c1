package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapingest/internal/cli/output"
)

// NewModelsCommand creates the models command.
func NewModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect the model store",
	}
	cmd.AddCommand(newModelsListCommand(), newModelsResolveCommand())
	return cmd
}

func newModelsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			store := cmdCtx.Engine.Models()
			names, err := store.List()
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				if names == nil {
					names = []string{}
				}
				return r.JSON(names)
			}
			if len(names) == 0 {
				r.Muted("No models in " + store.Dir())
				return nil
			}
			r.Header(1, fmt.Sprintf("Models (%d)", len(names)))
			for _, name := range names {
				r.Println("- " + name)
			}
			return nil
		},
	}
}

func newModelsResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <cluster>",
		Short: "Find the model stored for a cluster number",
		Example: `  leapingest models resolve 2
  leapingest models resolve 2 --model-lookup exact`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster := args[0]
			if _, err := strconv.Atoi(cluster); err != nil {
				return fmt.Errorf("invalid cluster number %q", cluster)
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			store := cmdCtx.Engine.Models()
			name, err := store.Resolve(cluster)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]any{"cluster": cluster, "model": name, "path": store.Path(name)})
			}
			r.Println(name)
			return nil
		},
	}
}
