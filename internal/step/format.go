package step

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"stepper/internal/value"
)

var (
	numColor    = color.New(color.FgHiBlack)
	beforeColor = color.New(color.FgCyan)
	afterColor  = color.New(color.FgGreen)
	waitColor   = color.New(color.FgYellow)
	valueColor  = color.New(color.FgMagenta, color.Bold)
	logColor    = color.New(color.FgBlue)
)

// RenderOptions control the text listing of steps.
type RenderOptions struct {
	Color  bool
	Scopes bool // print every captured scope under the record
	Width  int  // truncate values to this many columns; 0 means 80
}

func (o RenderOptions) inspect() value.InspectOptions {
	w := o.Width
	if w <= 0 {
		w = 80
	}
	return value.InspectOptions{MaxDepth: 3, MaxWidth: w}
}

func paint(c *color.Color, on bool, s string) string {
	if !on {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

// Line renders the header line of one record.
func Line(s Step, opts RenderOptions) string {
	var b strings.Builder
	b.WriteString(paint(numColor, opts.Color, fmt.Sprintf("#%-4d", s.Num)))
	b.WriteByte(' ')

	switch s.Category {
	case CategoryInit:
		b.WriteString("init")
		return b.String()
	case CategoryWait:
		b.WriteString(paint(waitColor, opts.Color, "wait "+FormatDT(s.Wait)))
		return b.String()
	}

	tc := beforeColor
	if s.Time == TimeAfter {
		tc = afterColor
	}
	b.WriteString(pad(string(s.Category), 10))
	b.WriteString(paint(tc, opts.Color, pad(string(s.Time), 7)))
	b.WriteString(pad(s.Type, 26))
	if s.Loc != nil {
		b.WriteString(pad(s.Loc.String(), 12))
	}
	if dt := FormatDT(s.DT); dt != "" {
		b.WriteString("+" + dt)
	}
	return strings.TrimRight(b.String(), " ")
}

func pad(s string, width int) string {
	return runewidth.FillRight(s, width) + " "
}

// Render writes a listing of steps to w.
func Render(w io.Writer, steps []Step, opts RenderOptions) error {
	bw := bufio.NewWriter(w)
	in := opts.inspect()
	raw := in
	raw.RawStrings = true
	for _, s := range steps {
		fmt.Fprintln(bw, Line(s, opts))
		for _, args := range s.Logs {
			parts := make([]string, 0, len(args))
			for _, a := range args {
				parts = append(parts, value.Inspect(a, raw))
			}
			fmt.Fprintln(bw, "      "+paint(logColor, opts.Color, "log: "+strings.Join(parts, " ")))
		}
		if s.HasValue() {
			fmt.Fprintln(bw, "      "+paint(valueColor, opts.Color, "= "+value.Inspect(s.Value, in)))
		}
		if opts.Scopes {
			for i, sc := range s.Scopes {
				fmt.Fprintf(bw, "      scope[%d] %s\n", i, value.Inspect(value.NewObject("", sc...), in))
			}
		}
	}
	return bw.Flush()
}
