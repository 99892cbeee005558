package runtime

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"

	"stepper/internal/instrument"
	"stepper/internal/trace"
)

var (
	// ErrInterrupted is returned by Run.Err when the run was stopped from outside.
	ErrInterrupted = errors.New("execution interrupted")
	// ErrStepLimit is returned by Run.Err when the program produced more
	// records than Options.MaxSteps allows.
	ErrStepLimit = errors.New("step limit reached")
)

// Options tune a run.
type Options struct {
	Tracer   trace.Tracer
	MaxSteps int // 0 means unlimited
}

// ExecError is an exception that escaped the program.
type ExecError struct {
	Name    string `msgpack:"name" json:"name"`
	Message string `msgpack:"message" json:"message"`
	Stack   string `msgpack:"stack" json:"stack"`
}

func (e *ExecError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// Run is one execution of an instrumented program on its own event loop.
type Run struct {
	Reporter *Reporter

	loop *eventloop.EventLoop
	done chan struct{}

	mu          sync.Mutex
	vm          *goja.Runtime
	interrupted bool
	err         error
}

// Start runs p on a fresh engine in a new goroutine. Timers scheduled by the
// program keep the run alive until they are all done or Interrupt is called.
func Start(p *instrument.Program, opts Options) (*Run, error) {
	exe, err := p.Executable()
	if err != nil {
		return nil, err
	}

	run := &Run{
		Reporter: NewReporter(p.Sites, opts.Tracer, opts.MaxSteps),
		loop:     eventloop.NewEventLoop(eventloop.EnableConsole(false)),
		done:     make(chan struct{}),
	}
	go run.exec(p.Namespace, exe)
	return run, nil
}

func (r *Run) exec(ns string, exe *goja.Program) {
	defer close(r.done)
	defer r.Reporter.Flush()

	r.loop.Run(func(vm *goja.Runtime) {
		r.mu.Lock()
		r.vm = vm
		stop := r.interrupted
		r.mu.Unlock()
		if stop {
			r.setErr(ErrInterrupted)
			return
		}

		if err := r.Reporter.Install(vm, ns); err != nil {
			r.setErr(err)
			return
		}
		r.Reporter.Restart()
		if _, err := vm.RunProgram(exe); err != nil {
			r.setErr(r.classify(err))
		}
	})
}

func (r *Run) setErr(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}

func (r *Run) classify(err error) error {
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		if cause, ok := ie.Value().(error); ok && errors.Is(cause, ErrStepLimit) {
			return ErrStepLimit
		}
		return ErrInterrupted
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return exceptionError(ex)
	}
	return fmt.Errorf("run: %w", err)
}

func exceptionError(ex *goja.Exception) *ExecError {
	out := &ExecError{Name: "Error", Stack: ex.String()}
	obj, ok := ex.Value().(*goja.Object)
	if !ok {
		if v := ex.Value(); v != nil {
			out.Message = v.String()
		}
		return out
	}
	if name := stringProp(obj, "name"); name != "" {
		out.Name = name
	}
	out.Message = stringProp(obj, "message")
	if stack := stringProp(obj, "stack"); stack != "" {
		out.Stack = stack
	}
	return out
}

// Interrupt stops the program at the next instruction and ends the loop.
// It is safe to call from any goroutine and more than once.
func (r *Run) Interrupt() {
	r.mu.Lock()
	r.interrupted = true
	vm := r.vm
	r.mu.Unlock()
	if vm != nil {
		vm.Interrupt(ErrInterrupted)
	}
	r.loop.StopNoWait()
}

// Done is closed when the program and all its timers have finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Err returns the error that ended the run, if any, once Done is closed.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
