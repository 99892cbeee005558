package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"

	"stepper/internal/diag"
	"stepper/internal/source"
)

// Pretty renders diagnostics for people. For each one it prints
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// then the source line with a ^~~~ underline below the location, then the
// notes in the same format.
func Pretty(w io.Writer, diags []diag.Diagnostic, file *source.File, opts PrettyOpts) error {
	p := prettyPrinter{w: w, file: file, opts: opts}
	if file != nil {
		p.lines = strings.Split(file.Content, "\n")
	}
	for i, d := range diags {
		if i > 0 {
			p.printf("\n")
		}
		p.diagnostic(d)
	}
	return p.err
}

type prettyPrinter struct {
	w     io.Writer
	file  *source.File
	lines []string
	opts  PrettyOpts
	err   error
}

func (p *prettyPrinter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *prettyPrinter) paint(c *color.Color, s string) string {
	if !p.opts.Color {
		return s
	}
	return c.Sprint(s)
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	gutterColor  = color.New(color.FgBlue)
	caretColor   = color.New(color.FgGreen, color.Bold)
)

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	default:
		return infoColor
	}
}

func (p *prettyPrinter) where(loc source.Loc) string {
	path := formatPath(p.file, p.opts.PathMode, p.opts.BaseDir)
	if loc.Start.Line == 0 {
		return path
	}
	return fmt.Sprintf("%s:%d:%d", path, loc.Start.Line, loc.Start.Column+1)
}

func (p *prettyPrinter) diagnostic(d diag.Diagnostic) {
	sev := p.paint(severityColor(d.Severity), strings.ToUpper(d.Severity.String()))
	p.printf("%s: %s %s: %s\n", p.where(d.Loc), sev, d.Code.ID(), d.Message)
	p.snippet(d.Loc)
	if !p.opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		p.printf("  note: %s: %s\n", p.where(n.Loc), n.Msg)
	}
}

// snippet prints the primary line with Context lines around it.
func (p *prettyPrinter) snippet(loc source.Loc) {
	line := loc.Start.Line
	if line < 1 || line > len(p.lines) {
		return
	}
	ctx := max(int(p.opts.Context), 0)
	from := max(line-ctx, 1)
	to := min(line+ctx, len(p.lines))
	gutter := len(fmt.Sprint(to))

	for n := from; n <= to; n++ {
		text := p.clip(p.lines[n-1])
		p.printf("%s %s\n", p.paint(gutterColor, fmt.Sprintf("%*d |", gutter, n)), text)
		if n == line {
			p.printf("%s %s\n", p.paint(gutterColor, strings.Repeat(" ", gutter)+" |"), p.underline(p.lines[n-1], loc))
		}
	}
}

func (p *prettyPrinter) clip(s string) string {
	if p.opts.Width == 0 || runewidth.StringWidth(s) <= int(p.opts.Width) {
		return s
	}
	return runewidth.Truncate(s, int(p.opts.Width), "…")
}

// underline measures display widths on the NFC form of the text, so
// combining sequences count as one cell.
func (p *prettyPrinter) underline(text string, loc source.Loc) string {
	runes := []rune(text)
	start := min(max(loc.Start.Column, 0), len(runes))
	end := len(runes)
	if loc.End.Line == loc.Start.Line {
		end = min(max(loc.End.Column, start), len(runes))
	}

	pad := runewidth.StringWidth(norm.NFC.String(string(runes[:start])))
	width := max(runewidth.StringWidth(norm.NFC.String(string(runes[start:end]))), 1)
	marks := "^" + strings.Repeat("~", width-1)
	return strings.Repeat(" ", pad) + p.paint(caretColor, marks)
}
