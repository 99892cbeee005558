package host

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"stepper/internal/step"
	"stepper/internal/value"
)

func quietWorker() WorkerOptions {
	return WorkerOptions{
		PollInterval:      20 * time.Millisecond,
		Ceiling:           5 * time.Second,
		HeartbeatInterval: time.Hour,
	}
}

// serve runs a worker over the given requests and returns what it wrote.
func serve(t *testing.T, opts WorkerOptions, reqs ...Request) []Message {
	t.Helper()
	var in, out bytes.Buffer
	enc := NewEncoder(&in)
	for i := range reqs {
		if err := enc.Encode(&reqs[i]); err != nil {
			t.Fatal(err)
		}
	}
	if err := NewWorker(opts).Serve(context.Background(), &in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var msgs []Message
	dec := NewDecoder(&out)
	for {
		var m Message
		err := dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			return msgs
		}
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		msgs = append(msgs, m)
	}
}

func revive(t *testing.T, m Message) []step.Step {
	t.Helper()
	steps, err := step.Revive(*m.Steps, value.PermissiveRegistry())
	if err != nil {
		t.Fatalf("revive: %v", err)
	}
	return steps
}

func TestWorkerTracesProgram(t *testing.T) {
	code := "let a = 1;\na = a + 1;\nconsole.log(a);"
	msgs := serve(t, quietWorker(), Request{Code: code, Config: Config{Detail: true}})
	if len(msgs) == 0 {
		t.Fatal("no messages")
	}
	last := msgs[len(msgs)-1]
	if last.Kind() != KindProgress || !last.Done {
		t.Fatalf("last message = %+v, want done progress", last)
	}
	if last.Code != code || last.Config == nil || !last.Config.Detail || last.Config.NS == "" {
		t.Errorf("request not echoed: code=%q config=%+v", last.Code, last.Config)
	}
	if last.Transpiled == "" {
		t.Error("transpiled text missing")
	}
	steps := revive(t, last)
	if steps[0].Category != step.CategoryInit {
		t.Errorf("first record = %s, want init", steps[0].Category)
	}
	var logged bool
	for _, s := range steps {
		if len(s.Logs) > 0 {
			logged = true
		}
	}
	if !logged {
		t.Error("console output was not recorded")
	}
	for _, m := range msgs[:len(msgs)-1] {
		if m.Done {
			t.Error("done set on an intermediate message")
		}
	}
}

func TestWorkerFailures(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		maxSteps int
		failure  string
		steps    bool
	}{
		{name: "syntax", code: "let = ;", failure: "SyntaxError"},
		{name: "unsupported", code: "class A {}", failure: "CompileError"},
		{name: "exception", code: "let o = null;\no.x;", failure: "TypeError", steps: true},
		{name: "step limit", code: "while (true) { 0; }", maxSteps: 100, failure: "RangeError", steps: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := quietWorker()
			opts.MaxSteps = tt.maxSteps
			msgs := serve(t, opts, Request{Code: tt.code})
			last := msgs[len(msgs)-1]
			if last.Kind() != KindFailure {
				t.Fatalf("last message kind = %s, want failure", last.Kind())
			}
			if last.Error.Name != tt.failure {
				t.Errorf("failure = %+v, want %s", last.Error, tt.failure)
			}
			if last.Code != tt.code {
				t.Errorf("failure does not echo the code")
			}
			if !tt.steps {
				if len(msgs) != 1 {
					t.Errorf("got %d messages, want only the failure", len(msgs))
				}
				if last.Error.Loc == nil {
					t.Error("compile failure without location")
				}
				return
			}
			if len(msgs) < 2 || !msgs[len(msgs)-2].Done {
				t.Fatalf("failure not preceded by a done progress message")
			}
		})
	}
}

func TestWorkerCeiling(t *testing.T) {
	opts := quietWorker()
	opts.Ceiling = 150 * time.Millisecond
	start := time.Now()
	msgs := serve(t, opts, Request{Code: "var n = 0;\nsetInterval(function () { n++; }, 10);"})
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("ceiling not enforced, took %v", elapsed)
	}
	for _, m := range msgs {
		if m.Done || m.Kind() == KindFailure {
			t.Fatalf("unexpected message after ceiling: %+v", m)
		}
	}
	if len(msgs) == 0 {
		t.Fatal("no progress before the ceiling")
	}
}

func TestWorkerNewRequestSupersedes(t *testing.T) {
	first := "var n = 0;\nsetInterval(function () { n++; }, 5);"
	second := "var done = 1;"
	msgs := serve(t, quietWorker(), Request{Code: first}, Request{Code: second})

	var finished bool
	for _, m := range msgs {
		if m.Code == first && m.Done {
			t.Error("superseded run reported done")
		}
		if m.Code == second && m.Done {
			finished = true
		}
	}
	if !finished {
		t.Error("second request did not finish")
	}
	if last := msgs[len(msgs)-1]; last.Code != second {
		t.Error("messages of the first request arrived after the second finished")
	}
}

func TestWorkerHeartbeat(t *testing.T) {
	reqR, reqW := io.Pipe()
	msgR, msgW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := quietWorker()
	opts.ID = 7
	opts.HeartbeatInterval = 10 * time.Millisecond
	errc := make(chan error, 1)
	go func() { errc <- NewWorker(opts).Serve(ctx, reqR, msgW) }()

	var m Message
	if err := NewDecoder(msgR).Decode(&m); err != nil {
		t.Fatal(err)
	}
	if m.Kind() != KindHeartbeat || m.Alive != 7 {
		t.Errorf("got %+v, want heartbeat from 7", m)
	}
	reqW.Close()
	msgR.Close()
	if err := <-errc; err != nil {
		t.Errorf("serve: %v", err)
	}
}

func TestSupervisorInProcess(t *testing.T) {
	opts := quietWorker()
	opts.HeartbeatInterval = 20 * time.Millisecond
	sup := NewSupervisor(InProcess{Options: opts}, SupervisorOptions{})
	defer sup.Close()

	if err := sup.Submit(Request{Code: "let x = 2;\nx = x * 21;"}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := Collect(ctx, sup)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !res.Finished || res.Failure != nil || res.Last == nil {
		t.Fatalf("result = %+v", res)
	}
	steps := revive(t, *res.Last)
	v, ok := steps[len(steps)-1].Lookup("x")
	if !ok || value.Plain(v) != float64(42) {
		t.Errorf("x = %v, want 42", v)
	}

	if err := sup.Submit(Request{Code: "undefinedName;"}); err != nil {
		t.Fatal(err)
	}
	res, err = Collect(ctx, sup)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if res.Failure == nil || res.Failure.Name != "ReferenceError" {
		t.Errorf("failure = %+v, want ReferenceError", res.Failure)
	}
}

type fakeInstance struct {
	r    *io.PipeReader
	w    *io.PipeWriter
	once sync.Once
	dead chan struct{}
}

func (f *fakeInstance) Read(b []byte) (int, error)  { return f.r.Read(b) }
func (f *fakeInstance) Write(b []byte) (int, error) { return len(b), nil }

func (f *fakeInstance) Kill() error {
	f.once.Do(func() {
		f.r.Close()
		close(f.dead)
	})
	return nil
}

func (f *fakeInstance) beat(t *testing.T, id uint64) {
	t.Helper()
	if err := NewEncoder(f.w).Encode(&Message{Alive: id}); err != nil {
		t.Fatal(err)
	}
}

type fakeSpawner struct {
	mu   sync.Mutex
	list []*fakeInstance
}

func (s *fakeSpawner) Spawn(uint64) (Instance, error) {
	r, w := io.Pipe()
	inst := &fakeInstance{r: r, w: w, dead: make(chan struct{})}
	s.mu.Lock()
	s.list = append(s.list, inst)
	s.mu.Unlock()
	return inst, nil
}

func (s *fakeSpawner) get(i int) *fakeInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list[i]
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

func expectDeath(t *testing.T, sup *Supervisor, id uint64) {
	t.Helper()
	select {
	case got := <-sup.Deaths():
		if got != id {
			t.Fatalf("death of %d, want %d", got, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker %d was not killed", id)
	}
}

func TestSupervisorWatchdog(t *testing.T) {
	sp := &fakeSpawner{}
	sup := NewSupervisor(sp, SupervisorOptions{Watchdog: 40 * time.Millisecond})
	defer sup.Close()

	if err := sup.Submit(Request{Code: "1;"}); err != nil {
		t.Fatal(err)
	}
	first := sp.get(0)

	// silent before its first heartbeat: not yet watched
	select {
	case id := <-sup.Deaths():
		t.Fatalf("worker %d killed before any heartbeat", id)
	case <-time.After(150 * time.Millisecond):
	}

	first.beat(t, 1)
	expectDeath(t, sup, 1)
	<-first.dead

	if err := sup.Submit(Request{Code: "2;"}); err != nil {
		t.Fatal(err)
	}
	if n := sp.count(); n != 2 {
		t.Fatalf("spawned %d workers, want 2", n)
	}
	// later workers are watched from the start
	expectDeath(t, sup, 2)
}

func TestSupervisorHeartbeatsKeepWorkerAlive(t *testing.T) {
	sp := &fakeSpawner{}
	sup := NewSupervisor(sp, SupervisorOptions{Watchdog: 60 * time.Millisecond})
	defer sup.Close()

	if err := sup.Submit(Request{Code: "1;"}); err != nil {
		t.Fatal(err)
	}
	inst := sp.get(0)
	for i := 0; i < 10; i++ {
		inst.beat(t, 1)
		time.Sleep(20 * time.Millisecond)
	}
	select {
	case id := <-sup.Deaths():
		t.Fatalf("worker %d killed while beating", id)
	default:
	}
	if err := sup.Submit(Request{Code: "2;"}); err != nil {
		t.Fatal(err)
	}
	if n := sp.count(); n != 1 {
		t.Errorf("spawned %d workers, want 1", n)
	}
}

func TestSupervisorClose(t *testing.T) {
	sp := &fakeSpawner{}
	sup := NewSupervisor(sp, SupervisorOptions{})
	if err := sup.Submit(Request{Code: "1;"}); err != nil {
		t.Fatal(err)
	}
	if err := sup.Close(); err != nil {
		t.Fatal(err)
	}
	<-sp.get(0).dead
	if _, ok := <-sup.Messages(); ok {
		t.Error("messages still open after Close")
	}
	if err := sup.Submit(Request{Code: "2;"}); !errors.Is(err, ErrClosed) {
		t.Errorf("submit after close: %v", err)
	}
}

func TestMessageKind(t *testing.T) {
	g := value.Graph{}
	tests := []struct {
		m    Message
		want MessageKind
	}{
		{Message{Alive: 3}, KindHeartbeat},
		{Message{Steps: &g}, KindProgress},
		{Message{Steps: &g, Done: true}, KindProgress},
		{Message{Error: &Failure{Name: "Error"}}, KindFailure},
		{Message{}, KindUnknown},
	}
	for _, tt := range tests {
		if got := tt.m.Kind(); got != tt.want {
			t.Errorf("Kind(%+v) = %s, want %s", tt.m, got, tt.want)
		}
	}
}
