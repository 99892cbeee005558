package value

// Plain converts v into data encoding/json can write: maps, slices, strings,
// float64, bool and nil. Non-finite numbers become strings, functions and
// promises become tagged maps and a repeated object on the current path
// becomes "[Circular]".
func Plain(v Value) any {
	return plain(v, make(map[*Object]bool))
}

func plain(v Value, path map[*Object]bool) any {
	switch x := v.(type) {
	case nil, Undefined:
		return map[string]any{"$undefined": true}
	case Null:
		return nil
	case Bool:
		return bool(x)
	case Number:
		n := numberNode(float64(x))
		if n.Str != "" {
			return n.Str
		}
		return n.Num
	case String:
		return string(x)
	case Symbol:
		return map[string]any{"$symbol": string(x)}
	case BigInt:
		return map[string]any{"$bigint": string(x)}
	case *Object:
		if path[x] {
			return "[Circular]"
		}
		path[x] = true
		defer delete(path, x)
		switch x.Shape {
		case KindFunction:
			return map[string]any{"$function": x.Class}
		case KindPromise:
			return map[string]any{"$promise": "pending"}
		case KindArray:
			elems := x.Elems()
			out := make([]any, len(elems))
			for i, e := range elems {
				out[i] = plain(e, path)
			}
			return out
		}
		out := make(map[string]any, len(x.Entries)+1)
		for _, e := range x.Entries {
			out[e.Key] = plain(e.Value, path)
		}
		if x.Class != "" && x.Class != "Object" {
			out["$class"] = x.Class
		}
		return out
	}
	return nil
}
