package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapingest/internal/cli/output"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the leapingest version, commit and build date.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := ""
			if cfg := configFrom(cmd); cfg != nil {
				format = cfg.OutputFormat
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(info)
			}
			r.Println(fmt.Sprintf("leapingest v%s", info.Version))
			r.Println("Batch ingestion and preprocessing pipeline")
			r.Muted(fmt.Sprintf("commit %s, built %s, %s", info.Commit, info.BuildDate, info.GoVersion))
			return nil
		},
	}
}
