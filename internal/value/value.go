package value

import "strconv"

// Kind identifies the shape of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota + 1
	KindNull
	KindBool
	KindNumber
	KindString
	KindSymbol
	KindBigInt
	KindArray
	KindFunction
	KindPromise
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindBigInt:
		return "bigint"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	case KindPromise:
		return "promise"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// IsPrimitive reports whether values of kind k are stored inline.
func (k Kind) IsPrimitive() bool {
	return k >= KindUndefined && k <= KindBigInt
}

// Value is any JavaScript value: one of the primitive types below or *Object.
type Value interface {
	Kind() Kind
}

type (
	Undefined struct{}
	Null      struct{}
	Bool      bool
	Number    float64
	String    string
	// Symbol holds the symbol's description.
	Symbol string
	// BigInt holds the decimal digits.
	BigInt string
)

func (Undefined) Kind() Kind { return KindUndefined }
func (Null) Kind() Kind      { return KindNull }
func (Bool) Kind() Kind      { return KindBool }
func (Number) Kind() Kind    { return KindNumber }
func (String) Kind() Kind    { return KindString }
func (Symbol) Kind() Kind    { return KindSymbol }
func (BigInt) Kind() Kind    { return KindBigInt }

// Entry is one own enumerable property, in enumeration order.
type Entry struct {
	Key   string
	Value Value
}

// Object is any compound value. Shape is one of KindArray, KindFunction,
// KindPromise or KindObject. Class holds the constructor name for objects
// and the function name for functions.
type Object struct {
	Shape   Kind
	Class   string
	Length  int
	Entries []Entry
}

func (o *Object) Kind() Kind { return o.Shape }

// NewArray builds an array whose entries are the given elements.
func NewArray(elems ...Value) *Object {
	o := &Object{Shape: KindArray, Class: "Array", Length: len(elems)}
	o.Entries = make([]Entry, 0, len(elems))
	for i, v := range elems {
		o.Entries = append(o.Entries, Entry{Key: strconv.Itoa(i), Value: v})
	}
	return o
}

// NewObject builds a plain object of the given class ("" means Object).
func NewObject(class string, entries ...Entry) *Object {
	if class == "" {
		class = "Object"
	}
	return &Object{Shape: KindObject, Class: class, Entries: entries}
}

// NewFunction builds an inert function shell.
func NewFunction(name string) *Object {
	return &Object{Shape: KindFunction, Class: name}
}

// NewPromise builds a promise shell that never settles.
func NewPromise() *Object {
	return &Object{Shape: KindPromise, Class: "Promise"}
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	for _, e := range o.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key or appends a new entry.
func (o *Object) Set(key string, v Value) {
	for i := range o.Entries {
		if o.Entries[i].Key == key {
			o.Entries[i].Value = v
			return
		}
	}
	o.Entries = append(o.Entries, Entry{Key: key, Value: v})
}

// Elems returns the array elements 0..Length-1; holes are Undefined.
func (o *Object) Elems() []Value {
	out := make([]Value, o.Length)
	for i := range out {
		out[i] = Undefined{}
	}
	for _, e := range o.Entries {
		idx, err := strconv.Atoi(e.Key)
		if err != nil || idx < 0 || idx >= o.Length {
			continue
		}
		out[idx] = e.Value
	}
	return out
}

// KindOf is Kind that treats nil as undefined.
func KindOf(v Value) Kind {
	if v == nil {
		return KindUndefined
	}
	return v.Kind()
}
