package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/leapingest/pkg/core"

	// sqlite driver for state database queries.
	_ "modernc.org/sqlite"
)

// querier is the read surface shared by the state database and staging adapters.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// adapterQuerier exposes a staging adapter as a querier.
type adapterQuerier struct {
	adp core.Adapter
}

func (q adapterQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := q.adp.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows.Rows, nil
}

// openStateDBReadOnly opens the state database in read-only mode.
func openStateDBReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path+"?mode=ro")
}

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format  string
	Input   string
	Staging string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Query the state database or a staging database",
		Long: `Execute SQL against the run ledger (runs, file_records, file_transitions,
schema_changes) or, with --staging, against the staging database of a mode.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Recent rejections
  leapingest query "SELECT name, reason FROM file_records WHERE state = 'rejected'"

  # Inspect the staged training rows
  leapingest query --staging train "SELECT COUNT(*) FROM training_raw_data_t"

  # List available tables
  leapingest query tables

  # Output as JSON
  leapingest query "SELECT * FROM runs" --format json

  # Interactive mode
  leapingest query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.PersistentFlags().StringVar(&opts.Staging, "staging", "", "Query the staging database of a mode (train or predict)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))

	return cmd
}

// openQuerier connects to the database selected by opts. The returned
// function releases it.
func openQuerier(cmd *cobra.Command, opts *QueryOptions) (querier, string, func(), error) {
	if opts.Staging == "" {
		cmdCtx, err := newLightContext(cmd)
		if err != nil {
			return nil, "", nil, err
		}
		statePath := cmdCtx.Cfg.StatePath
		if _, err := os.Stat(statePath); os.IsNotExist(err) {
			return nil, "", nil, fmt.Errorf("state database not found at %s (run 'leapingest run' first)", statePath)
		}
		db, err := openStateDBReadOnly(statePath)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, statePath, func() { _ = db.Close() }, nil
	}

	mode, err := core.ParseMode(opts.Staging)
	if err != nil {
		return nil, "", nil, err
	}
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return nil, "", nil, err
	}
	adp, err := cmdCtx.Engine.Connect(cmd.Context(), mode)
	if err != nil {
		cleanup()
		return nil, "", nil, err
	}
	label := cmdCtx.Cfg.AdapterConfig(mode).Path
	if label == "" {
		label = string(mode) + " staging"
	}
	return adapterQuerier{adp: adp}, label, func() {
		_ = adp.Close()
		cleanup()
	}, nil
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	var sqlQuery string
	interactive := false

	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		interactive = true
	}

	q, label, closeFn, err := openQuerier(cmd, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	if interactive {
		return runQueryREPL(cmd, q, label, opts)
	}
	return executeAndRenderQuery(cmd.Context(), cmd.OutOrStdout(), q, sqlQuery, opts.Format)
}

// executeAndRenderQuery executes a query and renders results, properly closing rows with defer.
func executeAndRenderQuery(ctx context.Context, w io.Writer, q querier, query, format string) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return renderResults(w, rows, format)
}

// newQueryTablesCommand creates the tables subcommand.
func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List all tables and views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, _, closeFn, err := openQuerier(cmd, opts)
			if err != nil {
				return err
			}
			defer closeFn()
			return listTablesFromDB(cmd.Context(), cmd.OutOrStdout(), q, opts.Format)
		},
	}
}

// newQuerySchemaCommand creates the schema subcommand.
func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show columns of a table or view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, _, closeFn, err := openQuerier(cmd, opts)
			if err != nil {
				return err
			}
			defer closeFn()
			return showSchemaFromDB(cmd.Context(), cmd.OutOrStdout(), q, args[0], opts.Format)
		},
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
