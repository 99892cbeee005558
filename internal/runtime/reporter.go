package runtime

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dop251/goja"

	"stepper/internal/instrument"
	"stepper/internal/step"
	"stepper/internal/trace"
	"stepper/internal/value"
)

// consoleMethods are the console functions whose arguments are recorded.
var consoleMethods = []string{"log", "info", "warn", "error", "debug"}

// Reporter receives the report calls of an instrumented program and keeps
// the resulting step records. Report and the console hooks run on the
// engine goroutine; Snapshot may be called from any goroutine.
type Reporter struct {
	sites  []instrument.Site
	tracer trace.Tracer
	limit  int
	vm     *goja.Runtime

	mu      sync.Mutex
	start   time.Time
	steps   []step.Step
	pending [][]value.Value
	updated bool
}

// NewReporter returns a reporter for the given site table. The init record
// is already in place. A positive limit interrupts the program once that
// many records exist.
func NewReporter(sites []instrument.Site, tracer trace.Tracer, limit int) *Reporter {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Reporter{
		sites:   sites,
		tracer:  tracer,
		limit:   limit,
		start:   time.Now(),
		steps:   []step.Step{{Num: 0, Category: step.CategoryInit}},
		updated: true,
	}
}

// Install publishes the report and key helpers under ns and replaces console.
func (r *Reporter) Install(vm *goja.Runtime, ns string) error {
	r.vm = vm
	obj := vm.NewObject()
	if err := obj.Set("report", r.report); err != nil {
		return fmt.Errorf("install report: %w", err)
	}
	if err := obj.Set(instrument.KeyHelper, instrument.PropertyKey); err != nil {
		return fmt.Errorf("install %s: %w", instrument.KeyHelper, err)
	}
	if err := vm.Set(ns, obj); err != nil {
		return fmt.Errorf("install %s: %w", ns, err)
	}

	console := vm.NewObject()
	for _, name := range consoleMethods {
		if err := console.Set(name, r.log); err != nil {
			return fmt.Errorf("install console.%s: %w", name, err)
		}
	}
	if err := vm.Set("console", console); err != nil {
		return fmt.Errorf("install console: %w", err)
	}
	return nil
}

// Restart resets the clock that DT is measured against.
func (r *Reporter) Restart() {
	r.mu.Lock()
	r.start = time.Now()
	r.mu.Unlock()
}

func (r *Reporter) report(call goja.FunctionCall) goja.Value {
	v := call.Argument(0)
	id := call.Argument(1).ToInteger()
	if id < 0 || id >= int64(len(r.sites)) {
		panic(r.vm.NewTypeError("report: unknown site %d", id))
	}
	site := r.sites[id]

	c := newCapturer(r.vm)
	st := step.Step{
		Category: site.Category,
		Time:     site.Time,
		Type:     site.Type,
		Loc:      site.Loc,
		Scopes:   c.scopes(call.Argument(2)),
	}
	if st.HasValue() {
		st.Value = c.value(v)
	}
	if n := r.record(st); r.limit > 0 && n >= r.limit {
		r.vm.Interrupt(ErrStepLimit)
	}
	return v
}

func (r *Reporter) log(call goja.FunctionCall) goja.Value {
	c := newCapturer(r.vm)
	args := make([]value.Value, 0, len(call.Arguments))
	for _, a := range call.Arguments {
		args = append(args, c.value(a))
	}
	r.mu.Lock()
	r.pending = append(r.pending, args)
	r.mu.Unlock()
	return goja.Undefined()
}

// record appends st and returns the new number of records.
func (r *Reporter) record(st step.Step) int {
	r.mu.Lock()
	st.Num = len(r.steps)
	st.DT = time.Since(r.start).Milliseconds()
	st.Logs = r.pending
	r.pending = nil
	r.steps = append(r.steps, st)
	r.updated = true
	n := len(r.steps)
	r.mu.Unlock()

	if r.tracer.Enabled() {
		trace.Point(r.tracer, trace.ScopeStep, string(st.Category)+"/"+string(st.Time), st.Type+" #"+strconv.Itoa(st.Num))
	}
	return n
}

// Flush attaches console output logged after the last report to a final
// record so it is not lost.
func (r *Reporter) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return
	}
	n := len(r.steps) - 1
	r.steps[n].Logs = append(r.steps[n].Logs, r.pending...)
	r.pending = nil
	r.updated = true
}

// Snapshot returns a copy of the records so far and whether anything changed
// since the previous call.
func (r *Reporter) Snapshot() ([]step.Step, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]step.Step, len(r.steps))
	copy(out, r.steps)
	updated := r.updated
	r.updated = false
	return out, updated
}

// Len returns the number of records.
func (r *Reporter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps)
}
