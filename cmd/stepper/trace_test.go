package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"stepper/internal/cache"
	"stepper/internal/diag"
	"stepper/internal/host"
	"stepper/internal/observ"
	"stepper/internal/source"
	"stepper/internal/step"
	"stepper/internal/trace"
	"stepper/internal/ui"
)

func testRunner(t *testing.T, dc *cache.DiskCache) *traceRunner {
	t.Helper()
	s := defaultSettings()
	s.PollInterval = 20 * time.Millisecond
	s.Heartbeat = 20 * time.Millisecond
	s.Ceiling = 2 * time.Second
	return &traceRunner{
		settings: s,
		spawner:  host.InProcess{Options: s.workerOptions()},
		cache:    dc,
		tracer:   trace.Nop,
		parallel: 2,
		timer:    observ.NewTimer(),
	}
}

func presetJob(t *testing.T, slug string) job {
	t.Helper()
	p, ok := lookupPreset(slug)
	if !ok {
		t.Fatalf("missing preset %q", slug)
	}
	return job{name: slug, file: source.Virtual(slug, p.Code)}
}

func TestTraceRunnerRunsJobsInOrder(t *testing.T) {
	r := testRunner(t, nil)
	jobs := []job{
		presetJob(t, "for-loop"),
		{name: "broken", file: source.Virtual("broken", "null.x;")},
		presetJob(t, "circular"),
	}
	var (
		mu     sync.Mutex
		events []ui.Event
	)
	outcomes, err := r.run(context.Background(), jobs, func(ev ui.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(outcomes) != len(jobs) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(jobs))
	}
	for i, o := range outcomes {
		if o.job.name != jobs[i].name {
			t.Fatalf("outcome %d is %q, want %q", i, o.job.name, jobs[i].name)
		}
	}

	loop := outcomes[0]
	if loop.status != ui.StatusDone || loop.failure != nil {
		t.Fatalf("for-loop: status %v, failure %v", loop.status, loop.failure)
	}
	logs := 0
	for _, s := range loop.steps {
		logs += len(s.Logs)
	}
	if logs != 5 {
		t.Fatalf("for-loop logged %d times, want 5", logs)
	}
	if loop.transpiled == "" {
		t.Fatalf("for-loop: missing transpiled text")
	}

	broken := outcomes[1]
	if broken.status != ui.StatusError || broken.failure == nil || broken.failure.Name != "TypeError" {
		t.Fatalf("broken: status %v, failure %+v", broken.status, broken.failure)
	}

	finals := 0
	for _, ev := range events {
		if ev.Status >= ui.StatusDone {
			finals++
		}
	}
	if finals != len(jobs) {
		t.Fatalf("got %d final events, want %d", finals, len(jobs))
	}
}

func TestTraceRunnerUsesCache(t *testing.T) {
	dc, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	r := testRunner(t, dc)
	j := presetJob(t, "while-loop")

	first, err := r.one(context.Background(), j, func(ui.Event) {})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.status != ui.StatusDone {
		t.Fatalf("first status = %v", first.status)
	}
	second, err := r.one(context.Background(), j, func(ui.Event) {})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.status != ui.StatusCached {
		t.Fatalf("second status = %v, want cached", second.status)
	}
	if len(second.steps) != len(first.steps) {
		t.Fatalf("cached run has %d steps, want %d", len(second.steps), len(first.steps))
	}
}

func TestTraceRunnerReportsSyntaxErrors(t *testing.T) {
	r := testRunner(t, nil)
	o, err := r.one(context.Background(), job{name: "bad", file: source.Virtual("bad", "let = ;")}, func(ui.Event) {})
	if err != nil {
		t.Fatalf("one: %v", err)
	}
	if o.failure == nil || o.failure.Name != "SyntaxError" || len(o.steps) != 0 {
		t.Fatalf("outcome = %+v", o)
	}

	var buf bytes.Buffer
	if err := writeOutcomesText(&buf, []outcome{o}, textOptions{}); err != nil {
		t.Fatalf("writeOutcomesText: %v", err)
	}
	if !strings.Contains(buf.String(), "SYN2001") || !strings.Contains(buf.String(), "let = ;") {
		t.Fatalf("unexpected listing:\n%s", buf.String())
	}
}

func TestFailureDiagnostic(t *testing.T) {
	cases := []struct {
		failure host.Failure
		code    diag.Code
	}{
		{host.Failure{Name: "SyntaxError"}, diag.SynError},
		{host.Failure{Name: "CompileError"}, diag.InsUnsupportedSyntax},
		{host.Failure{Name: "RangeError", Message: "step limit reached"}, diag.RunStepLimit},
		{host.Failure{Name: "RangeError", Message: "Invalid array length"}, diag.RunException},
		{host.Failure{Name: "WorkerError"}, diag.RunWorker},
		{host.Failure{Name: "TypeError"}, diag.RunException},
	}
	for _, tc := range cases {
		if got := failureDiagnostic(&tc.failure).Code; got != tc.code {
			t.Errorf("%s %q: code %v, want %v", tc.failure.Name, tc.failure.Message, got, tc.code)
		}
	}
}

func TestWriteOutcomesJSON(t *testing.T) {
	o := outcome{
		job:    job{name: "x"},
		status: ui.StatusDone,
		steps: []step.Step{
			{Num: 1, Category: step.CategoryStatement, Time: step.TimeBefore, Type: "ExpressionStatement"},
			{Num: 2, Category: step.CategoryExpression, Time: step.TimeAfter, Type: "NullLiteral", Value: nil},
			{Num: 2, Category: step.CategoryWait, Wait: 100},
		},
	}
	var buf bytes.Buffer
	if err := writeOutcomesJSON(&buf, []outcome{o}, false); err != nil {
		t.Fatalf("writeOutcomesJSON: %v", err)
	}
	var decoded []struct {
		Name   string           `json:"name"`
		Status string           `json:"status"`
		Steps  []map[string]any `json:"steps"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded) != 1 || decoded[0].Status != "done" || len(decoded[0].Steps) != 3 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if _, ok := decoded[0].Steps[0]["value"]; ok {
		t.Fatalf("statement record carries a value")
	}
	if decoded[0].Steps[2]["wait"] != float64(100) {
		t.Fatalf("wait = %v", decoded[0].Steps[2]["wait"])
	}
}
