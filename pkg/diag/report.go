package diag

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/xplshn/cxc/pkg/config"
)

var (
	errorLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	caretStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// File tracks the name and content of a single source file.
type File struct {
	Name    string
	Content []byte
}

// Position converts a byte offset into a 1-based line and column.
func (f *File) Position(off int) (line, col int) {
	if f == nil || off < 0 {
		return 0, 0
	}
	if off > len(f.Content) {
		off = len(f.Content)
	}
	line = 1
	lineStart := 0
	for i := 0; i < off; i++ {
		if f.Content[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return line, utf8.RuneCount(f.Content[lineStart:off]) + 1
}

func (f *File) lineAt(off int) string {
	start := off
	for start > 0 && f.Content[start-1] != '\n' {
		start--
	}
	end := off
	for end < len(f.Content) && f.Content[end] != '\n' {
		end++
	}
	return string(f.Content[start:end])
}

func (f *File) location(off int) string {
	name := "unknown"
	if f != nil && f.Name != "" {
		name = f.Name
	}
	if f == nil || off < 0 {
		return name
	}
	line, col := f.Position(off)
	return fmt.Sprintf("%s:%d:%d", name, line, col)
}

// printErrorLine prints the source line and a caret under the offending range
func (f *File) printErrorLine(w io.Writer, off, length int) {
	if f == nil || off < 0 || off > len(f.Content) {
		return
	}
	_, col := f.Position(off)
	fmt.Fprintf(w, "  %s\n", f.lineAt(off))
	marker := "^"
	if length > 1 {
		marker += strings.Repeat("~", length-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", col-1), caretStyle.Render(marker))
}

// Print writes err in `file:line:col: error: [Kind] msg` form followed by the
// offending source line. Errors that carry no diag.Error are printed as-is.
func Print(w io.Writer, f *File, err error) {
	var de *Error
	if !errors.As(err, &de) {
		fmt.Fprintf(w, "%s: %s %s\n", f.location(-1), errorLabel.Render("error:"), err)
		return
	}
	msg := de.Msg
	if de.Got != "" || len(de.Expected) > 0 {
		msg += fmt.Sprintf(" (got %s, expected %s)", de.Got, strings.Join(de.Expected, " or "))
	}
	fmt.Fprintf(w, "%s: %s [%s] %s\n", f.location(de.Offset), errorLabel.Render("error:"), de.Kind, msg)
	f.printErrorLine(w, de.Offset, de.Len)
}

// Reporter emits non-fatal warnings for one unit. A nil Reporter drops
// everything, which is what library callers without a terminal want.
type Reporter struct {
	Out      io.Writer
	File     *File
	cfg      *config.Config
	warnings int
}

func NewReporter(cfg *config.Config, file *File, out io.Writer) *Reporter {
	return &Reporter{Out: out, File: file, cfg: cfg}
}

// Warn prints a formatted warning if the corresponding warning is enabled
func (r *Reporter) Warn(wt config.Warning, off, length int, format string, args ...interface{}) {
	if r == nil || r.Out == nil || !r.cfg.IsWarningEnabled(wt) {
		return
	}
	r.warnings++
	fmt.Fprintf(r.Out, "%s: %s ", r.File.location(off), warningLabel.Render("warning:"))
	fmt.Fprintf(r.Out, format, args...)
	fmt.Fprintf(r.Out, " [-W%s]\n", r.cfg.Warnings[wt].Name)
	r.File.printErrorLine(r.Out, off, length)
}

// Count returns how many warnings were printed.
func (r *Reporter) Count() int {
	if r == nil {
		return 0
	}
	return r.warnings
}
