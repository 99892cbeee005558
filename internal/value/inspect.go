package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// InspectOptions tunes Inspect.
type InspectOptions struct {
	MaxDepth   int  // nesting shown before collapsing to [Object]; 0 means 3
	MaxWidth   int  // display columns; 0 means unlimited
	RawStrings bool // top-level strings without quotes (console.log style)
}

// Inspect renders v the way a JavaScript console would, roughly.
func Inspect(v Value, opts InspectOptions) string {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 3
	}
	var sb strings.Builder
	in := inspector{sb: &sb, opts: opts, path: make(map[*Object]bool)}
	if s, ok := v.(String); ok && opts.RawStrings {
		sb.WriteString(norm.NFC.String(string(s)))
	} else {
		in.value(v, 0)
	}
	out := sb.String()
	if opts.MaxWidth > 0 && runewidth.StringWidth(out) > opts.MaxWidth {
		out = runewidth.Truncate(out, opts.MaxWidth, "…")
	}
	return out
}

type inspector struct {
	sb   *strings.Builder
	opts InspectOptions
	path map[*Object]bool
}

func (in *inspector) value(v Value, depth int) {
	switch x := v.(type) {
	case nil, Undefined:
		in.sb.WriteString("undefined")
	case Null:
		in.sb.WriteString("null")
	case Bool:
		in.sb.WriteString(strconv.FormatBool(bool(x)))
	case Number:
		in.sb.WriteString(FormatNumber(float64(x)))
	case String:
		in.sb.WriteString(Quote(norm.NFC.String(string(x))))
	case Symbol:
		in.sb.WriteString("Symbol(" + string(x) + ")")
	case BigInt:
		in.sb.WriteString(string(x) + "n")
	case *Object:
		in.object(x, depth)
	}
}

func (in *inspector) object(o *Object, depth int) {
	if in.path[o] {
		in.sb.WriteString("[Circular]")
		return
	}
	switch o.Shape {
	case KindFunction:
		if o.Class == "" {
			in.sb.WriteString("ƒ anonymous")
		} else {
			in.sb.WriteString("ƒ " + o.Class)
		}
		return
	case KindPromise:
		in.sb.WriteString("Promise {<pending>}")
		return
	}
	if depth >= in.opts.MaxDepth {
		if o.Shape == KindArray {
			in.sb.WriteString("[Array]")
		} else {
			in.sb.WriteString("[" + classOr(o.Class, "Object") + "]")
		}
		return
	}

	in.path[o] = true
	defer delete(in.path, o)

	if o.Shape == KindArray {
		in.sb.WriteString("[")
		for i, e := range o.Elems() {
			if i > 0 {
				in.sb.WriteString(", ")
			}
			in.value(e, depth+1)
		}
		in.sb.WriteString("]")
		return
	}

	if o.Class != "" && o.Class != "Object" {
		in.sb.WriteString(o.Class + " ")
	}
	if len(o.Entries) == 0 {
		in.sb.WriteString("{}")
		return
	}
	in.sb.WriteString("{")
	for i, e := range o.Entries {
		if i > 0 {
			in.sb.WriteString(",")
		}
		in.sb.WriteString(" ")
		in.sb.WriteString(propertyKey(e.Key))
		in.sb.WriteString(": ")
		in.value(e.Value, depth+1)
	}
	in.sb.WriteString(" }")
}

func classOr(class, def string) string {
	if class == "" {
		return def
	}
	return class
}

// FormatNumber prints f like JavaScript's Number#toString for common values.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0 && math.Signbit(f):
		return "-0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || (abs != 0 && abs < 1e-6) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go writes e+21 / e-07, JavaScript e+21 / e-7
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Quote returns s as a double-quoted JavaScript string literal.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\v':
			sb.WriteString(`\v`)
		case '\u2028', '\u2029':
			sb.WriteString(`\u` + strconv.FormatInt(int64(r), 16))
		default:
			if r < 0x20 || r == 0x7f {
				sb.WriteString(`\u00`)
				if r < 0x10 {
					sb.WriteByte('0')
				}
				sb.WriteString(strconv.FormatInt(int64(r), 16))
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func propertyKey(k string) string {
	if IsIdentifierName(k) {
		return k
	}
	if _, err := strconv.ParseUint(k, 10, 64); err == nil {
		return k
	}
	return Quote(k)
}

// IsIdentifierName reports whether s can be written as a bare property name.
func IsIdentifierName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		case r > 0x7f:
		default:
			return false
		}
	}
	return true
}
