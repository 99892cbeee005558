package runtime

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"stepper/internal/step"
	"stepper/internal/value"
)

// capturer converts live engine values into the value model. Objects are
// mapped by identity so sharing and cycles survive one capture pass.
type capturer struct {
	vm   *goja.Runtime
	seen map[*goja.Object]*value.Object
}

func newCapturer(vm *goja.Runtime) *capturer {
	return &capturer{vm: vm, seen: make(map[*goja.Object]*value.Object)}
}

// Capture converts v. Getters of captured objects run during the walk.
func Capture(vm *goja.Runtime, v goja.Value) value.Value {
	return newCapturer(vm).value(v)
}

func (c *capturer) value(v goja.Value) value.Value {
	if v == nil || goja.IsUndefined(v) {
		return value.Undefined{}
	}
	if goja.IsNull(v) {
		return value.Null{}
	}
	switch x := v.(type) {
	case *goja.Object:
		return c.object(x)
	case *goja.Symbol:
		return value.Symbol(symbolDescription(x.String()))
	}
	switch x := v.Export().(type) {
	case bool:
		return value.Bool(x)
	case int64:
		return value.Number(float64(x))
	case float64:
		return value.Number(x)
	case string:
		return value.String(x)
	}
	return value.String(v.String())
}

func symbolDescription(s string) string {
	if strings.HasPrefix(s, "Symbol(") && strings.HasSuffix(s, ")") {
		return s[len("Symbol(") : len(s)-1]
	}
	return s
}

// object classifies o as callable, thenable, array or plain object, in that
// order, then captures its own enumerable properties.
func (c *capturer) object(o *goja.Object) value.Value {
	if got, ok := c.seen[o]; ok {
		return got
	}

	var out *value.Object
	switch {
	case isCallable(o):
		out = value.NewFunction(stringProp(o, "name"))
	case isThenable(o):
		out = value.NewPromise()
	case o.ClassName() == "Array":
		out = &value.Object{Shape: value.KindArray, Class: "Array", Length: int(o.Get("length").ToInteger())}
	default:
		out = value.NewObject(constructorName(o))
	}
	c.seen[o] = out

	for _, key := range o.Keys() {
		out.Entries = append(out.Entries, value.Entry{Key: key, Value: c.value(o.Get(key))})
	}
	if o.ClassName() == "Error" {
		if _, ok := out.Get("message"); !ok {
			out.Entries = append(out.Entries, value.Entry{Key: "message", Value: value.String(stringProp(o, "message"))})
		}
	}
	return out
}

func isCallable(o *goja.Object) bool {
	_, ok := goja.AssertFunction(o)
	return ok
}

func isThenable(o *goja.Object) bool {
	return present(o.Get("then")) && present(o.Get("catch"))
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v)
}

func stringProp(o *goja.Object, name string) string {
	v := o.Get(name)
	if !present(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func constructorName(o *goja.Object) string {
	if ctor, ok := o.Get("constructor").(*goja.Object); ok {
		if name := stringProp(ctor, "name"); name != "" {
			return name
		}
	}
	return o.ClassName()
}

// scopes reads the snapshot argument of a report call: an array of objects,
// one per scope, innermost first.
func (c *capturer) scopes(v goja.Value) []step.Scope {
	arr, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	n := int(arr.Get("length").ToInteger())
	out := make([]step.Scope, 0, n)
	for i := 0; i < n; i++ {
		sc, ok := arr.Get(strconv.Itoa(i)).(*goja.Object)
		if !ok {
			continue
		}
		keys := sc.Keys()
		entries := make(step.Scope, 0, len(keys))
		for _, key := range keys {
			entries = append(entries, value.Entry{Key: key, Value: c.value(sc.Get(key))})
		}
		out = append(out, entries)
	}
	return out
}
