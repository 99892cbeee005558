package value

import "testing"

func TestInspect(t *testing.T) {
	cyc := NewObject("")
	cyc.Set("self", cyc)

	tests := []struct {
		name string
		in   Value
		opts InspectOptions
		want string
	}{
		{"undefined", Undefined{}, InspectOptions{}, "undefined"},
		{"number", Number(3), InspectOptions{}, "3"},
		{"float", Number(0.1), InspectOptions{}, "0.1"},
		{"string", String("a\"b"), InspectOptions{}, `"a\"b"`},
		{"raw string", String("hi"), InspectOptions{RawStrings: true}, "hi"},
		{"array", NewArray(Number(1), Bool(false)), InspectOptions{}, "[1, false]"},
		{"object", NewObject("", Entry{"a", Number(1)}, Entry{"b c", Null{}}), InspectOptions{}, `{ a: 1, "b c": null }`},
		{"class", NewObject("Point", Entry{"x", Number(0)}), InspectOptions{}, "Point { x: 0 }"},
		{"empty", NewObject(""), InspectOptions{}, "{}"},
		{"function", NewFunction("f"), InspectOptions{}, "ƒ f"},
		{"promise", NewPromise(), InspectOptions{}, "Promise {<pending>}"},
		{"cycle", cyc, InspectOptions{}, "{ self: [Circular] }"},
		{"depth", NewArray(NewArray(NewArray())), InspectOptions{MaxDepth: 1}, "[[Array]]"},
		{"truncate", String("abcdefghij"), InspectOptions{MaxWidth: 5}, `"abc…`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Inspect(tt.in, tt.opts); got != tt.want {
				t.Errorf("Inspect = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1"},
		{-2.5, "-2.5"},
		{1e21, "1e+21"},
		{1e-7, "1e-7"},
		{123456789, "123456789"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
