package value

import (
	"errors"
	"math"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestDescribePrimitives(t *testing.T) {
	tests := []struct {
		name string
		in   Value
	}{
		{"undefined", Undefined{}},
		{"null", Null{}},
		{"true", Bool(true)},
		{"int", Number(42)},
		{"fraction", Number(-0.5)},
		{"string", String("héllo\n")},
		{"symbol", Symbol("tag")},
		{"bigint", BigInt("12345678901234567890")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Describe(tt.in)
			if len(g.Heap) != 0 {
				t.Fatalf("primitive allocated heap slots: %d", len(g.Heap))
			}
			got, err := Undescribe(g, nil)
			if err != nil {
				t.Fatalf("Undescribe: %v", err)
			}
			if got != tt.in {
				t.Errorf("round trip = %#v, want %#v", got, tt.in)
			}
		})
	}
}

func TestDescribeNonFiniteNumbers(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), math.Copysign(0, -1)} {
		got, err := Undescribe(Describe(Number(f)), nil)
		if err != nil {
			t.Fatal(err)
		}
		n := float64(got.(Number))
		switch {
		case math.IsNaN(f):
			if !math.IsNaN(n) {
				t.Errorf("NaN became %v", n)
			}
		case f == 0:
			if n != 0 || !math.Signbit(n) {
				t.Errorf("-0 became %v", n)
			}
		case n != f:
			t.Errorf("%v became %v", f, n)
		}
	}
}

func TestDescribeSelfCycle(t *testing.T) {
	a := NewArray()
	a.Entries = append(a.Entries, Entry{Key: "0", Value: a})
	a.Length = 1

	g := Describe(a)
	if len(g.Heap) != 1 {
		t.Fatalf("heap = %d slots, want 1", len(g.Heap))
	}
	if g.Heap[0].Entries[0].Node != Ref(0) {
		t.Fatalf("element should reference slot 0, got %+v", g.Heap[0].Entries[0].Node)
	}

	got, err := Undescribe(g, nil)
	if err != nil {
		t.Fatal(err)
	}
	arr := got.(*Object)
	if first, _ := arr.Get("0"); first != Value(arr) {
		t.Error("revived array does not contain itself")
	}
}

func TestDescribePreservesSharing(t *testing.T) {
	shared := NewObject("", Entry{Key: "n", Value: Number(1)})
	root := NewObject("", Entry{Key: "a", Value: shared}, Entry{Key: "b", Value: shared})

	g := Describe(root)
	if len(g.Heap) != 2 {
		t.Fatalf("heap = %d slots, want 2", len(g.Heap))
	}
	got, err := Undescribe(g, nil)
	if err != nil {
		t.Fatal(err)
	}
	o := got.(*Object)
	a, _ := o.Get("a")
	b, _ := o.Get("b")
	if a != b {
		t.Error("a and b should be the same revived object")
	}
}

func TestDescribeMutualCycle(t *testing.T) {
	x := NewObject("Node")
	y := NewObject("Node", Entry{Key: "next", Value: x})
	x.Set("next", y)

	got, err := Undescribe(Describe(x), PermissiveRegistry())
	if err != nil {
		t.Fatal(err)
	}
	rx := got.(*Object)
	ry, _ := rx.Get("next")
	back, _ := ry.(*Object).Get("next")
	if back != Value(rx) {
		t.Error("x.next.next should be x")
	}
	if rx.Class != "Node" {
		t.Errorf("permissive registry lost class: %q", rx.Class)
	}
}

func TestUndescribeRegistry(t *testing.T) {
	g := Describe(NewObject("Point", Entry{Key: "x", Value: Number(1)}))

	strict, err := Undescribe(g, NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if c := strict.(*Object).Class; c != "Object" {
		t.Errorf("unregistered class revived as %q, want Object", c)
	}

	reg := NewRegistry()
	reg.Register("Point", func(class string) *Object {
		return &Object{Class: class, Entries: []Entry{}}
	})
	known, err := Undescribe(g, reg)
	if err != nil {
		t.Fatal(err)
	}
	o := known.(*Object)
	if o.Class != "Point" || o.Shape != KindObject {
		t.Errorf("registered class revived as %q/%v", o.Class, o.Shape)
	}
	if x, _ := o.Get("x"); x != Number(1) {
		t.Errorf("x = %v", x)
	}
}

func TestUndescribeShells(t *testing.T) {
	root := NewArray(NewFunction("add"), NewPromise())
	got, err := Undescribe(Describe(root), nil)
	if err != nil {
		t.Fatal(err)
	}
	elems := got.(*Object).Elems()
	if fn := elems[0].(*Object); fn.Shape != KindFunction || fn.Class != "add" {
		t.Errorf("function shell = %+v", fn)
	}
	if p := elems[1].(*Object); p.Shape != KindPromise {
		t.Errorf("promise shell = %+v", p)
	}
}

func TestUndescribeDanglingRef(t *testing.T) {
	_, err := Undescribe(Graph{Root: Ref(3)}, nil)
	if !errors.Is(err, ErrDanglingRef) {
		t.Fatalf("err = %v, want ErrDanglingRef", err)
	}
}

func TestGraphSurvivesMsgpack(t *testing.T) {
	inner := NewArray(Number(1), String("two"), Null{})
	root := NewObject("", Entry{Key: "list", Value: inner}, Entry{Key: "again", Value: inner}, Entry{Key: "nan", Value: Number(math.NaN())})

	data, err := msgpack.Marshal(Describe(root))
	if err != nil {
		t.Fatal(err)
	}
	var g Graph
	if err := msgpack.Unmarshal(data, &g); err != nil {
		t.Fatal(err)
	}
	got, err := Undescribe(g, nil)
	if err != nil {
		t.Fatal(err)
	}
	o := got.(*Object)
	list, _ := o.Get("list")
	again, _ := o.Get("again")
	if list != again {
		t.Error("sharing lost over msgpack")
	}
	if s := Inspect(list, InspectOptions{}); s != `[1, "two", null]` {
		t.Errorf("list = %s", s)
	}
	if nan, _ := o.Get("nan"); !math.IsNaN(float64(nan.(Number))) {
		t.Errorf("nan = %v", nan)
	}
}
