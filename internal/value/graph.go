package value

// NodeCategory tells whether a Node is stored inline or points into the heap.
type NodeCategory string

const (
	CategoryPrimitive NodeCategory = "primitive"
	CategoryReference NodeCategory = "reference"
)

// ObjKind is the heap record shape.
type ObjKind string

const (
	ObjArray    ObjKind = "array"
	ObjFunction ObjKind = "function"
	ObjPromise  ObjKind = "promise"
	ObjObject   ObjKind = "object"
)

// Node is either an inline primitive or a reference to a heap slot.
// Str carries strings, symbol descriptions and bigint digits.
type Node struct {
	Category NodeCategory `msgpack:"category" json:"category"`
	Type     string       `msgpack:"type,omitempty" json:"type,omitempty"`
	Str      string       `msgpack:"str,omitempty" json:"str,omitempty"`
	Num      float64      `msgpack:"num,omitempty" json:"num,omitempty"`
	Bool     bool         `msgpack:"bool,omitempty" json:"bool,omitempty"`
	At       int          `msgpack:"at,omitempty" json:"at,omitempty"`
}

// Pair is one (key, node) entry of a heap record.
type Pair struct {
	_msgpack struct{} `msgpack:",as_array"` //nolint:unused

	Key  string `json:"key"`
	Node Node   `json:"node"`
}

// Obj is a heap record.
type Obj struct {
	Kind    ObjKind `msgpack:"kind" json:"kind"`
	Entries []Pair  `msgpack:"entries" json:"entries"`
	Length  int     `msgpack:"length,omitempty" json:"length,omitempty"`
	CName   string  `msgpack:"cname,omitempty" json:"cname,omitempty"`
}

// Graph is a self-contained description of one value.
type Graph struct {
	Root Node  `msgpack:"root" json:"root"`
	Heap []Obj `msgpack:"heap" json:"heap"`
}

// Ref returns a reference node to heap slot at.
func Ref(at int) Node {
	return Node{Category: CategoryReference, At: at}
}

func objKindOf(k Kind) ObjKind {
	switch k {
	case KindArray:
		return ObjArray
	case KindFunction:
		return ObjFunction
	case KindPromise:
		return ObjPromise
	default:
		return ObjObject
	}
}
