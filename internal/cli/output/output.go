// Package output renders command results for terminals, markdown consumers
// and machines. Auto mode picks styled text on a TTY and markdown otherwise.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// OutputMode selects how results are rendered.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// Mode converts a configured output format into an OutputMode.
// Unknown values fall back to auto.
func Mode(s string) OutputMode {
	switch OutputMode(strings.ToLower(s)) {
	case ModeText:
		return ModeText
	case ModeMarkdown, "md":
		return ModeMarkdown
	case ModeJSON:
		return ModeJSON
	default:
		return ModeAuto
	}
}

// Renderer writes command output in the effective mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   OutputMode
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
	}
	return NewRendererWithTTY(out, errOut, tty, mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	lr := lipgloss.NewRenderer(out)
	if isTTY {
		lr.SetColorProfile(termenv.ANSI256)
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		isTTY:  isTTY,
		mode:   mode,
		styles: newStyles(lr),
	}
}

// EffectiveMode resolves auto into text or markdown.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode != ModeAuto && r.mode != "" {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether the output is a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error output writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the styles bound to this renderer's color profile.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to standard output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to standard output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a section heading.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeText {
		style := r.styles.Header1
		if level > 1 {
			style = r.styles.Header2
		}
		r.Println(style.Render(text))
		return
	}
	r.Println(FormatHeader(level, text))
}

// KeyValue writes a labelled value.
func (r *Renderer) KeyValue(key, value string) {
	if r.EffectiveMode() == ModeText {
		r.Printf("  %s %s\n", r.styles.Muted.Render(key+":"), value)
		return
	}
	r.Println(FormatKeyValue(key, value))
}

// StatusLine writes a status marker followed by a message.
func (r *Renderer) StatusLine(status, msg string) {
	if r.EffectiveMode() != ModeText {
		r.Printf("- [%s] %s\n", status, msg)
		return
	}
	style := r.styles.Muted
	switch status {
	case "ok", "completed", "processed", "staged":
		style = r.styles.Success
	case "rejected", "failed":
		style = r.styles.Error
	case "warn", "skipped":
		style = r.styles.Warning
	}
	r.Printf("%s %s\n", style.Render(fmt.Sprintf("%-10s", status)), msg)
}

// Success writes a success message.
func (r *Renderer) Success(msg string) { r.Println(r.styles.Success.Render(msg)) }

// Warning writes a warning to the error output.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("Warning: "+msg))
}

// Error writes an error to the error output.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error: "+msg))
}

// Muted writes de-emphasized text.
func (r *Renderer) Muted(msg string) { r.Println(r.styles.Muted.Render(msg)) }

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatHeader returns a markdown heading.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item for a labelled value.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}
