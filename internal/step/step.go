package step

import (
	"stepper/internal/source"
	"stepper/internal/value"
)

// Category groups step records.
type Category string

const (
	CategoryStatement  Category = "statement"
	CategoryExpression Category = "expression"
	CategoryWait       Category = "wait"
	CategoryInit       Category = "init"
)

// Time says whether a record was taken before or after its node ran.
type Time string

const (
	TimeNone   Time = ""
	TimeBefore Time = "before"
	TimeAfter  Time = "after"
)

// Scope is one captured lexical scope: source names in declaration order.
type Scope []value.Entry

// Step is one observation of a running program.
type Step struct {
	Num      int
	Category Category
	Time     Time
	Type     string
	Loc      *source.Loc
	Scopes   []Scope         // innermost first
	Value    value.Value     // set only for expression/after records
	Logs     [][]value.Value // console argument lists since the previous record
	DT       int64           // milliseconds since the program started
	Wait     int64           // idle gap for wait records, milliseconds
}

// HasValue reports whether the record carries an expression result.
func (s *Step) HasValue() bool {
	return s.Category == CategoryExpression && s.Time == TimeAfter
}

// Timed reports whether DT is meaningful for the record.
func (s *Step) Timed() bool {
	return s.Category == CategoryStatement || s.Category == CategoryExpression
}

// Lookup finds name in the captured scopes, innermost first.
func (s *Step) Lookup(name string) (value.Value, bool) {
	for _, sc := range s.Scopes {
		for _, e := range sc {
			if e.Key == name {
				return e.Value, true
			}
		}
	}
	return nil, false
}
