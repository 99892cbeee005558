package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stepper/internal/instrument"
	"stepper/internal/jsprint"
	"stepper/internal/runtime"
	"stepper/internal/step"
	"stepper/internal/trace"
)

// Worker defaults.
const (
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultCeiling           = 60 * time.Second
	DefaultHeartbeatInterval = 100 * time.Millisecond
	DefaultMaxSteps          = 200_000
)

// WorkerOptions configure a Worker. Zero values take the defaults.
type WorkerOptions struct {
	ID                uint64 // sent in heartbeats; 0 means 1
	PollInterval      time.Duration
	Ceiling           time.Duration
	HeartbeatInterval time.Duration
	MaxSteps          int // negative disables the limit
	Tracer            trace.Tracer
}

func (o WorkerOptions) withDefaults() WorkerOptions {
	if o.ID == 0 {
		o.ID = 1
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Ceiling <= 0 {
		o.Ceiling = DefaultCeiling
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	switch {
	case o.MaxSteps == 0:
		o.MaxSteps = DefaultMaxSteps
	case o.MaxSteps < 0:
		o.MaxSteps = 0
	}
	if o.Tracer == nil {
		o.Tracer = trace.Nop
	}
	return o
}

// Worker executes requests read from a stream and writes progress back.
// Each request gets a fresh engine; a new request supersedes the one that
// is still running.
type Worker struct {
	opts WorkerOptions
	enc  *Encoder

	mu      sync.Mutex
	cancel  context.CancelFunc
	running chan struct{}
}

func NewWorker(opts WorkerOptions) *Worker {
	return &Worker{opts: opts.withDefaults()}
}

// Serve reads requests from r until it ends or ctx is cancelled. Messages,
// heartbeats included, go to w. At end of input Serve waits for the current
// run to finish.
func (w *Worker) Serve(ctx context.Context, r io.Reader, out io.Writer) error {
	w.enc = NewEncoder(out)
	dec := NewDecoder(r)

	hb := trace.StartHeartbeat(w.opts.Tracer, w.opts.HeartbeatInterval, func(uint64) {
		// a failed beat shows up as silence on the other side
		_ = w.enc.Encode(&Message{Alive: w.opts.ID})
	})
	defer hb.Stop()

	g, gctx := errgroup.WithContext(ctx)
	go func() {
		<-gctx.Done()
		w.supersede()
	}()

	var readErr error
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = fmt.Errorf("read request: %w", err)
			}
			break
		}
		if gctx.Err() != nil {
			break
		}
		sctx, done := w.begin(gctx)
		g.Go(func() error {
			defer close(done)
			return w.session(sctx, req)
		})
	}

	if readErr != nil || ctx.Err() != nil {
		w.supersede()
	}
	err := g.Wait()
	if readErr != nil {
		return readErr
	}
	return err
}

// begin cancels the running session, waits for it to wind down and returns
// the context and completion channel of the next one.
func (w *Worker) begin(ctx context.Context) (context.Context, chan struct{}) {
	w.supersede()
	sctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.mu.Lock()
	w.cancel, w.running = cancel, done
	w.mu.Unlock()
	return sctx, done
}

func (w *Worker) supersede() {
	w.mu.Lock()
	cancel, running := w.cancel, w.running
	w.cancel, w.running = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-running
}

// session traces one request. Errors returned here are stream failures;
// program failures are reported as messages.
func (w *Worker) session(ctx context.Context, req Request) error {
	tracer := w.opts.Tracer
	ctx = trace.WithTracer(ctx, tracer)
	ctx, span := trace.Start(ctx, trace.ScopeSession, "session")
	span.Set("bytes", strconv.Itoa(len(req.Code)))
	defer span.End("")

	cfg := req.Config
	if cfg.NS == "" {
		cfg.NS = instrument.DefaultNamespace
	}

	_, compileSpan := trace.Start(ctx, trace.ScopePhase, "compile")
	prog, err := instrument.CompileSource("program.js", req.Code, instrument.Options{Detail: cfg.Detail, Namespace: cfg.NS})
	if err != nil {
		compileSpan.End(err.Error())
		return w.enc.Encode(&Message{Code: req.Code, Config: &cfg, Error: compileFailure(err)})
	}
	transpiled := jsprint.Print(prog.AST)
	compileSpan.End(fmt.Sprintf("%d sites", len(prog.Sites)))

	run, err := runtime.Start(prog, runtime.Options{Tracer: tracer, MaxSteps: w.opts.MaxSteps})
	if err != nil {
		return w.enc.Encode(&Message{Code: req.Code, Config: &cfg, Error: compileFailure(err)})
	}
	_, runSpan := trace.Start(ctx, trace.ScopePhase, "run")

	progress := func(done, force bool) *Message {
		steps, updated := run.Reporter.Snapshot()
		if !updated && !force {
			return nil
		}
		g := step.Describe(steps)
		return &Message{Code: req.Code, Config: &cfg, Transpiled: transpiled, Steps: &g, Done: done}
	}
	send := func(m *Message) error {
		if m == nil {
			return nil
		}
		trace.Point(tracer, trace.ScopePhase, "progress", fmt.Sprintf("done=%v", m.Done))
		return w.enc.Encode(m)
	}

	if err := send(progress(false, true)); err != nil {
		run.Interrupt()
		return err
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	ceiling := time.NewTimer(w.opts.Ceiling)
	defer ceiling.Stop()

	for {
		select {
		case <-ctx.Done():
			run.Interrupt()
			<-run.Done()
			runSpan.End("superseded")
			return nil

		case <-ceiling.C:
			run.Interrupt()
			<-run.Done()
			runSpan.End("ceiling")
			return send(progress(false, false))

		case <-ticker.C:
			if err := send(progress(false, false)); err != nil {
				run.Interrupt()
				return err
			}

		case <-run.Done():
			runSpan.Set("steps", strconv.Itoa(run.Reporter.Len())).End("finished")
			final := progress(true, true)
			trace.Point(tracer, trace.ScopePhase, "progress", "done=true")
			if f := runFailure(run.Err()); f != nil {
				return w.enc.EncodeAll(final, &Message{Code: req.Code, Config: &cfg, Error: f})
			}
			return w.enc.Encode(final)
		}
	}
}
