package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapingest/internal/cli/output"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "schema [train|predict]",
		Short: "Show the schema definition of a mode",
		Long: `Show the declared columns of the mode's schema definition and, with
--history, the recorded versions of its staging table.`,
		Example: `  leapingest schema
  leapingest schema predict --history`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeMode,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := modeArg(args)
			if err != nil {
				return err
			}
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			eng := cmdCtx.Engine
			schema, err := eng.Schemas().Load(mode)
			if err != nil {
				return err
			}

			var changes []*core.SchemaChange
			if history {
				if changes, err = eng.Store().ListSchemaChanges(cmd.Context(), mode.TableName()); err != nil {
					return err
				}
			}
			return renderSchema(cmdCtx.Renderer, eng.Schemas().Path(mode), schema, changes)
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Include recorded staging table versions")
	return cmd
}

func renderSchema(r *output.Renderer, path string, schema *core.Schema, changes []*core.SchemaChange) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			Path    string               `json:"path"`
			Schema  *core.Schema         `json:"schema"`
			History []*core.SchemaChange `json:"history,omitempty"`
		}{path, schema, changes})
	}

	r.Header(1, fmt.Sprintf("Schema %s (%d columns)", schema.Mode, schema.ExpectedCount))
	r.KeyValue("File", path)
	r.KeyValue("Table", schema.Mode.TableName())
	r.Println("")

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.AppendHeader(table.Row{"#", "Column", "Type"})
	for i, c := range schema.Columns {
		t.AppendRow(table.Row{i + 1, c.Name, c.Type})
	}
	renderTableIn(r, t)

	if len(changes) == 0 {
		return nil
	}
	r.Println("")
	r.Header(2, "History")
	h := table.NewWriter()
	h.SetOutputMirror(r.Writer())
	h.AppendHeader(table.Row{"Version", "Action", "Column", "Type", "Position", "Run", "Applied"})
	for _, ch := range changes {
		h.AppendRow(table.Row{ch.Version, ch.Action, ch.Column, ch.Type, ch.Position, ch.RunID, ch.AppliedAt.Format(time.DateTime)})
	}
	renderTableIn(r, h)
	return nil
}

// renderTableIn renders t in the renderer's effective mode.
func renderTableIn(r *output.Renderer, t table.Writer) {
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
