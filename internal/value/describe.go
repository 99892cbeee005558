package value

import "math"

// describer walks a value graph. seen maps every visited object to the heap
// slot reserved for it before its entries are described.
type describer struct {
	heap []Obj
	seen map[*Object]int
}

// Describe encodes v into a fresh Graph.
func Describe(v Value) Graph {
	d := &describer{seen: make(map[*Object]int)}
	root := d.describe(v)
	return Graph{Root: root, Heap: d.heap}
}

// DescribeAll encodes several values into one Graph whose root is an array
// of them, so objects shared between the values keep a single heap slot.
func DescribeAll(vs []Value) Graph {
	return Describe(NewArray(vs...))
}

func (d *describer) describe(v Value) Node {
	switch x := v.(type) {
	case nil, Undefined:
		return Node{Category: CategoryPrimitive, Type: "undefined"}
	case Null:
		return Node{Category: CategoryPrimitive, Type: "null"}
	case Bool:
		return Node{Category: CategoryPrimitive, Type: "boolean", Bool: bool(x)}
	case Number:
		return numberNode(float64(x))
	case String:
		return Node{Category: CategoryPrimitive, Type: "string", Str: string(x)}
	case Symbol:
		return Node{Category: CategoryPrimitive, Type: "symbol", Str: string(x)}
	case BigInt:
		return Node{Category: CategoryPrimitive, Type: "bigint", Str: string(x)}
	case *Object:
		if x == nil {
			return Node{Category: CategoryPrimitive, Type: "null"}
		}
		return d.object(x)
	default:
		return Node{Category: CategoryPrimitive, Type: "undefined"}
	}
}

func (d *describer) object(o *Object) Node {
	if at, ok := d.seen[o]; ok {
		return Ref(at)
	}
	at := len(d.heap)
	d.seen[o] = at
	d.heap = append(d.heap, Obj{Kind: objKindOf(o.Shape), CName: o.Class})
	if o.Shape == KindArray {
		d.heap[at].Length = o.Length
	}

	entries := make([]Pair, 0, len(o.Entries))
	for _, e := range o.Entries {
		entries = append(entries, Pair{Key: e.Key, Node: d.describe(e.Value)})
	}
	// d.heap may have been reallocated while describing the entries.
	d.heap[at].Entries = entries
	return Ref(at)
}

// numberNode keeps NaN and the infinities representable in formats without
// non-finite floats by spelling them in Str.
func numberNode(f float64) Node {
	n := Node{Category: CategoryPrimitive, Type: "number"}
	switch {
	case math.IsNaN(f):
		n.Str = "NaN"
	case math.IsInf(f, 1):
		n.Str = "Infinity"
	case math.IsInf(f, -1):
		n.Str = "-Infinity"
	case f == 0 && math.Signbit(f):
		n.Str = "-0"
	default:
		n.Num = f
	}
	return n
}
