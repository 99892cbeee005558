package step

import (
	"errors"
	"fmt"

	"stepper/internal/source"
	"stepper/internal/value"
)

// ErrMalformed is returned by Revive when a graph does not hold step records.
var ErrMalformed = errors.New("malformed step graph")

// Describe encodes steps into one description graph whose root is an array
// of step objects. Values shared between records keep a single heap slot.
func Describe(steps []Step) value.Graph {
	elems := make([]value.Value, 0, len(steps))
	for i := range steps {
		elems = append(elems, toObject(&steps[i]))
	}
	return value.Describe(value.NewArray(elems...))
}

func toObject(s *Step) *value.Object {
	o := value.NewObject("",
		value.Entry{Key: "num", Value: value.Number(s.Num)},
		value.Entry{Key: "category", Value: value.String(s.Category)},
	)
	if s.Time != TimeNone {
		o.Entries = append(o.Entries, value.Entry{Key: "time", Value: value.String(s.Time)})
	}
	if s.Type != "" {
		o.Entries = append(o.Entries, value.Entry{Key: "type", Value: value.String(s.Type)})
	}
	if s.Loc != nil {
		o.Entries = append(o.Entries, value.Entry{Key: "loc", Value: value.NewObject("",
			value.Entry{Key: "start", Value: posObject(s.Loc.Start)},
			value.Entry{Key: "end", Value: posObject(s.Loc.End)},
		)})
	}
	if s.Category == CategoryStatement || s.Category == CategoryExpression {
		scopes := make([]value.Value, 0, len(s.Scopes))
		for _, sc := range s.Scopes {
			scopes = append(scopes, value.NewObject("", sc...))
		}
		o.Entries = append(o.Entries, value.Entry{Key: "scopes", Value: value.NewArray(scopes...)})
	}
	if s.HasValue() {
		v := s.Value
		if v == nil {
			v = value.Undefined{}
		}
		o.Entries = append(o.Entries, value.Entry{Key: "value", Value: v})
	}
	if len(s.Logs) > 0 {
		logs := make([]value.Value, 0, len(s.Logs))
		for _, args := range s.Logs {
			logs = append(logs, value.NewArray(args...))
		}
		o.Entries = append(o.Entries, value.Entry{Key: "logs", Value: value.NewArray(logs...)})
	}
	if s.Timed() {
		o.Entries = append(o.Entries, value.Entry{Key: "dt", Value: value.Number(s.DT)})
	}
	if s.Category == CategoryWait {
		o.Entries = append(o.Entries, value.Entry{Key: "wait", Value: value.Number(s.Wait)})
	}
	return o
}

func posObject(p source.Pos) *value.Object {
	return value.NewObject("",
		value.Entry{Key: "line", Value: value.Number(p.Line)},
		value.Entry{Key: "column", Value: value.Number(p.Column)},
	)
}

// Revive decodes a graph made by Describe. Object values inside the records
// are revived through reg.
func Revive(g value.Graph, reg *value.Registry) ([]Step, error) {
	root, err := value.Undescribe(g, reg)
	if err != nil {
		return nil, err
	}
	arr, ok := root.(*value.Object)
	if !ok || arr.Shape != value.KindArray {
		return nil, fmt.Errorf("%w: root is %s", ErrMalformed, value.KindOf(root))
	}
	elems := arr.Elems()
	out := make([]Step, 0, len(elems))
	for i, e := range elems {
		obj, ok := e.(*value.Object)
		if !ok {
			return nil, fmt.Errorf("%w: record %d is %s", ErrMalformed, i, value.KindOf(e))
		}
		s, err := fromObject(obj)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func fromObject(o *value.Object) (Step, error) {
	var s Step
	s.Num = int(number(o, "num"))
	s.Category = Category(str(o, "category"))
	s.Time = Time(str(o, "time"))
	s.Type = str(o, "type")
	s.DT = int64(number(o, "dt"))
	s.Wait = int64(number(o, "wait"))

	switch s.Category {
	case CategoryStatement, CategoryExpression, CategoryWait, CategoryInit:
	default:
		return s, fmt.Errorf("%w: category %q", ErrMalformed, s.Category)
	}

	if loc, ok := field(o, "loc"); ok {
		start, _ := field(loc, "start")
		end, _ := field(loc, "end")
		s.Loc = &source.Loc{Start: pos(start), End: pos(end)}
	}
	if scopes, ok := field(o, "scopes"); ok {
		for _, sc := range scopes.Elems() {
			obj, ok := sc.(*value.Object)
			if !ok {
				return s, fmt.Errorf("%w: scope is %s", ErrMalformed, value.KindOf(sc))
			}
			s.Scopes = append(s.Scopes, Scope(obj.Entries))
		}
	}
	if s.HasValue() {
		s.Value, _ = o.Get("value")
		if s.Value == nil {
			s.Value = value.Undefined{}
		}
	}
	if logs, ok := field(o, "logs"); ok {
		for _, args := range logs.Elems() {
			list, ok := args.(*value.Object)
			if !ok {
				return s, fmt.Errorf("%w: log entry is %s", ErrMalformed, value.KindOf(args))
			}
			s.Logs = append(s.Logs, list.Elems())
		}
	}
	return s, nil
}

func field(o *value.Object, key string) (*value.Object, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	obj, ok := v.(*value.Object)
	return obj, ok
}

func number(o *value.Object, key string) float64 {
	if v, ok := o.Get(key); ok {
		if n, ok := v.(value.Number); ok {
			return float64(n)
		}
	}
	return 0
}

func str(o *value.Object, key string) string {
	if v, ok := o.Get(key); ok {
		if s, ok := v.(value.String); ok {
			return string(s)
		}
	}
	return ""
}

func pos(o *value.Object) source.Pos {
	if o == nil {
		return source.Pos{}
	}
	return source.Pos{Line: int(number(o, "line")), Column: int(number(o, "column"))}
}
