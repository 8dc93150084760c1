package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "leapingest> "
	replContPrompt = "       ...> "
)

const replHelp = `Commands:
  .help           Show this help
  .tables         List tables and views
  .schema <name>  Show the columns of a table or view
  .clear          Clear the screen
  .quit, .exit    Leave the REPL

Statements run when a line ends with ';'. Tab completes table names.
`

// replSession executes statements and dot commands against one database.
type replSession struct {
	q      querier
	format string
	out    io.Writer
	errOut io.Writer
	stmt   strings.Builder
}

// feed adds an input line. It returns the completed statement, if any,
// and whether the session should end.
func (s *replSession) feed(ctx context.Context, line string) (stmt string, quit bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return "", false
	case s.stmt.Len() == 0 && strings.HasPrefix(line, "."):
		return "", s.dot(ctx, strings.Fields(line))
	}

	if s.stmt.Len() > 0 {
		s.stmt.WriteByte(' ')
	}
	s.stmt.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		return "", false
	}
	stmt = strings.TrimSuffix(s.stmt.String(), ";")
	s.stmt.Reset()
	return stmt, false
}

func (s *replSession) pending() bool { return s.stmt.Len() > 0 }

func (s *replSession) reset() { s.stmt.Reset() }

func (s *replSession) run(ctx context.Context, stmt string) {
	if err := executeAndRenderQuery(ctx, s.out, s.q, stmt, s.format); err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
	_, _ = fmt.Fprintln(s.out)
}

// dot runs a dot command and reports whether it ends the session.
func (s *replSession) dot(ctx context.Context, args []string) bool {
	var err error
	switch name := strings.ToLower(args[0]); name {
	case ".quit", ".exit":
		return true
	case ".help":
		_, _ = io.WriteString(s.out, replHelp)
	case ".tables":
		err = listTablesFromDB(ctx, s.out, s.q, s.format)
	case ".schema":
		if len(args) != 2 {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .schema <name>")
			return false
		}
		err = showSchemaFromDB(ctx, s.out, s.q, args[1], s.format)
	case ".clear":
		_, _ = io.WriteString(s.out, "\033[H\033[2J")
	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", name)
	}
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
	return false
}

func runQueryREPL(cmd *cobra.Command, q querier, label string, opts *QueryOptions) error {
	ctx := cmd.Context()
	session := &replSession{q: q, format: opts.Format, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}

	var historyFile string
	if cfg := configFrom(cmd); cfg != nil && cfg.StatePath != "" {
		historyFile = filepath.Join(filepath.Dir(cfg.StatePath), "query_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newTableCompleter(ctx, q),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          session.out,
		Stderr:          session.errOut,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(session.out, "leapingest query REPL (%s)\nType .help for commands, .quit to exit\n\n", label)

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			session.reset()
			rl.SetPrompt(replPrompt)
			continue
		case err != nil:
			return nil
		}

		stmt, quit := session.feed(ctx, line)
		if quit {
			return nil
		}
		if stmt != "" {
			session.run(ctx, stmt)
		}
		if session.pending() {
			rl.SetPrompt(replContPrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
}

// newTableCompleter completes dot commands and the names of existing
// tables and views.
func newTableCompleter(ctx context.Context, q querier) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}

	rows, err := q.QueryContext(ctx, catalogQuery)
	if err != nil {
		return readline.NewPrefixCompleter(items...)
	}
	defer func() { _ = rows.Close() }()

	var names []readline.PrefixCompleterInterface
	for rows.Next() {
		var name, kind string
		if rows.Scan(&name, &kind) == nil {
			names = append(names, readline.PcItem(name))
		}
	}
	items = append(items, readline.PcItem(".schema", names...))
	return readline.NewPrefixCompleter(append(items, names...)...)
}
