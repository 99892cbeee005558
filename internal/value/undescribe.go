package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrDanglingRef is returned when a reference points outside the heap.
var ErrDanglingRef = errors.New("reference outside heap")

type reviver struct {
	heap    []Obj
	revived []*Object
	reg     *Registry
}

// Undescribe rebuilds a Value from g. Each heap slot yields exactly one
// *Object, registered before its entries are revived, so cycles and shared
// references are reproduced. A nil reg means DefaultRegistry.
func Undescribe(g Graph, reg *Registry) (Value, error) {
	if reg == nil {
		reg = defaultRegistry
	}
	r := &reviver{heap: g.Heap, revived: make([]*Object, len(g.Heap)), reg: reg}
	return r.revive(g.Root)
}

func (r *reviver) revive(n Node) (Value, error) {
	switch n.Category {
	case CategoryPrimitive:
		return primitive(n)
	case CategoryReference:
	default:
		return nil, fmt.Errorf("unknown node category %q", n.Category)
	}

	if n.At < 0 || n.At >= len(r.heap) {
		return nil, fmt.Errorf("%w: slot %d of %d", ErrDanglingRef, n.At, len(r.heap))
	}
	if o := r.revived[n.At]; o != nil {
		return o, nil
	}

	rec := r.heap[n.At]
	var out *Object
	switch rec.Kind {
	case ObjArray:
		out = &Object{Shape: KindArray, Class: "Array", Length: rec.Length}
	case ObjFunction:
		out = NewFunction(rec.CName)
	case ObjPromise:
		out = NewPromise()
	case ObjObject:
		out = r.reg.shell(rec.CName)
	default:
		return nil, fmt.Errorf("unknown heap record kind %q at slot %d", rec.Kind, n.At)
	}
	r.revived[n.At] = out

	out.Entries = make([]Entry, 0, len(rec.Entries))
	for _, p := range rec.Entries {
		v, err := r.revive(p.Node)
		if err != nil {
			return nil, fmt.Errorf("entry %q of slot %d: %w", p.Key, n.At, err)
		}
		out.Entries = append(out.Entries, Entry{Key: p.Key, Value: v})
	}
	return out, nil
}

func primitive(n Node) (Value, error) {
	switch n.Type {
	case "undefined":
		return Undefined{}, nil
	case "null":
		return Null{}, nil
	case "boolean":
		return Bool(n.Bool), nil
	case "string":
		return String(n.Str), nil
	case "symbol":
		return Symbol(n.Str), nil
	case "bigint":
		return BigInt(n.Str), nil
	case "number":
		switch n.Str {
		case "":
			return Number(n.Num), nil
		case "NaN":
			return Number(math.NaN()), nil
		case "Infinity":
			return Number(math.Inf(1)), nil
		case "-Infinity":
			return Number(math.Inf(-1)), nil
		case "-0":
			return Number(math.Copysign(0, -1)), nil
		}
		f, err := strconv.ParseFloat(n.Str, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", n.Str, err)
		}
		return Number(f), nil
	default:
		return nil, fmt.Errorf("unknown primitive type %q", n.Type)
	}
}
