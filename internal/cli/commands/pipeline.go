package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapingest/internal/engine"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// pipelineStep is one engine entry point driven by a command.
type pipelineStep func(eng *engine.Engine, ctx context.Context, mode core.Mode) (*engine.Result, error)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	return newPipelineCommand(&cobra.Command{
		Use:   "ingest [train|predict]",
		Short: "Validate, sanitize and stage the source bucket",
		Long: `Archive the previous run, then validate every file in the source bucket
against the mode's schema, fill missing cells, insert the surviving files into
the staging table and export the staging snapshot.

Rejected files are moved to the rejects bucket. Staged files are moved to the
processed bucket.`,
		Example: `  # Ingest training data
  leapingest ingest

  # Ingest prediction data as JSON
  leapingest ingest predict --output json`,
	}, (*engine.Engine).Ingest)
}

// NewPreprocessCommand creates the preprocess command.
func NewPreprocessCommand() *cobra.Command {
	return newPipelineCommand(&cobra.Command{
		Use:   "preprocess [train|predict]",
		Short: "Build the feature set from the staging snapshot",
		Long: `Read the staging snapshot of the mode, drop configured columns, encode
categorical columns, impute missing values and write the feature set to the
results bucket. Prediction features are aligned to the saved training columns.`,
		Example: `  leapingest preprocess train`,
	}, (*engine.Engine).Preprocess)
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := newPipelineCommand(&cobra.Command{
		Use:   "run [train|predict]",
		Short: "Ingest and preprocess in a single run",
		Long: `Run the whole pipeline for a mode: archive, validate, sanitize, stage,
export and preprocess. The run and every file transition are recorded in the
state store.`,
		Example: `  # Full training pipeline
  leapingest run

  # Full prediction pipeline
  leapingest run predict`,
		Aliases: []string{"pipeline"},
	}, (*engine.Engine).Run)
	return cmd
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand() *cobra.Command {
	return newPipelineCommand(&cobra.Command{
		Use:     "archive [train|predict]",
		Short:   "Move the working buckets of the last run into the archive",
		Example: `  leapingest archive predict`,
	}, (*engine.Engine).Archive)
}

func newPipelineCommand(cmd *cobra.Command, step pipelineStep) *cobra.Command {
	cmd.Args = cobra.MaximumNArgs(1)
	cmd.ValidArgsFunction = completeMode
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		mode, err := modeArg(args)
		if err != nil {
			return err
		}

		cmdCtx, cleanup, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		start := time.Now()
		res, runErr := step(cmdCtx.Engine, cmd.Context(), mode)
		if res != nil {
			if err := renderResult(cmdCtx.Renderer, res, time.Since(start)); err != nil {
				return err
			}
		}
		if runErr != nil {
			return fmt.Errorf("%s failed: %w", cmd.Name(), runErr)
		}
		return nil
	}
	return cmd
}
