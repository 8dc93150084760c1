package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapingest/internal/cli/output"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		Example: `  leapingest runs
  leapingest runs --limit 5 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := cmdCtx.Engine.Store().ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderRuns(cmdCtx.Renderer, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func renderRuns(r *output.Renderer, runs []*core.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*core.Run{}
		}
		return r.JSON(runs)
	}
	if len(runs) == 0 {
		r.Muted("No runs recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.AppendHeader(table.Row{"Run", "Mode", "Status", "Started", "Duration", "Error"})
	for _, run := range runs {
		duration := ""
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{run.ID, run.Mode, run.Status, run.StartedAt.Format(time.DateTime), duration, truncate(run.Error, 60)})
	}
	renderTableIn(r, t)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// NewFilesCommand creates the files command.
func NewFilesCommand() *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "files [run-id]",
		Short: "Show the files of a run and their states",
		Long: `Show every file tracked by a run with its final state and rejection reason.
Without a run id the latest run is shown.`,
		Example: `  leapingest files
  leapingest files 20240301T090000-1a2b3c --history`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			store := cmdCtx.Engine.Store()

			var run *core.Run
			if len(args) == 1 {
				run, err = store.GetRun(ctx, args[0])
			} else {
				var runs []*core.Run
				runs, err = store.ListRuns(ctx, 1)
				if len(runs) > 0 {
					run = runs[0]
				}
			}
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("no run found")
			}

			files, err := store.ListFiles(ctx, run.ID)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				out := make([]fileHistory, 0, len(files))
				for _, f := range files {
					fh := fileHistory{FileRecord: f}
					if history {
						if fh.Transitions, err = store.ListTransitions(ctx, f.ID); err != nil {
							return err
						}
					}
					out = append(out, fh)
				}
				return r.JSON(out)
			}

			r.Header(1, fmt.Sprintf("Files of run %s (%s, %s)", run.ID, run.Mode, run.Status))
			for _, f := range files {
				msg := f.Name
				if f.Reason != "" {
					msg += " (" + f.Reason + ")"
				}
				r.StatusLine(string(f.State), msg)
				if !history {
					continue
				}
				transitions, err := store.ListTransitions(ctx, f.ID)
				if err != nil {
					return err
				}
				for _, tr := range transitions {
					r.Muted(fmt.Sprintf("    %s  %s -> %s  %s", tr.At.Format(time.DateTime), tr.From, tr.To, tr.Path))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Include every state transition")
	return cmd
}

type fileHistory struct {
	*core.FileRecord
	Transitions []*core.FileTransition `json:"transitions,omitempty"`
}
