package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// preset is a small example program shipped with the CLI.
type preset struct {
	Slug  string
	Title string
	Code  string
}

var presets = []preset{
	{"for-loop", "For-loop", `for (let i = 0; i < 5; i++) {
  console.log(i);
}
`},
	{"while-loop", "While-loop", `let i = 0;
while (i < 5) {
  console.log(i);
  i = i + 1;
}
`},
	{"map", "Simple map transform", `const result = [2, 4, 7].map(n => {
  return n + 10;
});
`},
	{"reduce", "Averaging grades with reduce", `const grades = [4, 8.1, 2.5, 9, 7.8];

function sum(total, grade) {
  console.log(total, grade);
  return total + grade;
}

const avg = grades.reduce(sum, 0) / grades.length;
`},
	{"fibonacci", "Fibonacci", `const fib = [1, 1];

while (fib.length < 7) {
  const last = fib.slice(-2);
  fib.push(last[0] + last[1]);
}
`},
	{"object-spread", "Object spread", `const original = {
  name: "Granny Smith",
  color: "green"
};

const updated_v1 = {
  color: "red",
  ...original
};

const updated_v2 = {
  ...original,
  color: "red"
};
`},
	{"array-spread", "Array spread", `const siblings = ["Kelley", "Heleen"];

const updated_v1 = [...siblings, "Elsie"];

const updated_v2 = ["Elsie", ...siblings];
`},
	{"this", "this", `function sayHello() {
  console.log("Hi, my name is", this.name);
}

sayHello.call({ name: "Philosoraptor" });

const duck = {
  name: "Donald Duck",
  sayHello
};

duck.sayHello();
`},
	{"set-timeout", "setTimeout", `setTimeout(() => {
  console.log("hello from the future!");
}, 100);
`},
	{"promise", "Promise", `const promise = new Promise(resolve => {
  setTimeout(() => resolve(303), 50);
});

const promise2 = promise.then(status => {
  console.log(status);
  return status * 2;
});

promise2.then(data => {
  console.log(data);
});

console.log("done?");
`},
	{"iife", "IIFE", `(function () {
  console.log(typeof this);
}());
`},
	{"circular", "Circular data", `const a = {};
const b = { a };
a.b = b;
`},
	{"update-expressions", "Update expressions", `let i;
i = 0; ++i;
i = 0; i++;
i = 0; ++i + ++i;
i = 0; i++ + i++;

let o = {};
o.i = 0; ++o.i;
o.i = 0; o.i++;
o.i = 0; ++o.i + ++o.i;
o.i = 0; o.i++ + o.i++;
`},
}

// lookupPreset finds a preset by slug or, ignoring case, by title.
func lookupPreset(name string) (preset, bool) {
	name = strings.TrimSpace(name)
	for _, p := range presets {
		if p.Slug == name || strings.EqualFold(p.Title, name) {
			return p, true
		}
	}
	return preset{}, false
}

var presetsCmd = &cobra.Command{
	Use:   "presets [name]",
	Short: "List the built-in example programs or print one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			p, ok := lookupPreset(args[0])
			if !ok {
				return fmt.Errorf("unknown preset %q", args[0])
			}
			fmt.Fprint(out, p.Code)
			return nil
		}
		for _, p := range presets {
			fmt.Fprintf(out, "%-20s %s\n", p.Slug, p.Title)
		}
		return nil
	},
}
