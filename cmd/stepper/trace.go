package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"stepper/internal/cache"
	"stepper/internal/host"
	"stepper/internal/observ"
	"stepper/internal/source"
	"stepper/internal/step"
	"stepper/internal/trace"
	"stepper/internal/ui"
	"stepper/internal/value"
)

var traceCmd = &cobra.Command{
	Use:   "trace [flags] [file.js...]",
	Short: "Run programs and print every step they took",
	Long: `Trace instruments each program, runs it in a supervised worker and prints
the recorded steps. Use "-" to read a program from stdin and --preset to
trace one of the built-in examples.`,
	RunE: runTrace,
}

func init() {
	traceCmd.Flags().Bool("detail", true, "record expressions, not only statements")
	traceCmd.Flags().String("ns", "", "name of the reporter global")
	traceCmd.Flags().String("format", "text", "output format (text|json)")
	traceCmd.Flags().String("ui", "auto", "show live progress (auto|on|off)")
	traceCmd.Flags().String("isolation", "", "where workers run (inproc|process)")
	traceCmd.Flags().Bool("cache", false, "reuse traces of unchanged programs")
	traceCmd.Flags().Int("jobs", 0, "programs traced in parallel (0 = one per program, max 8)")
	traceCmd.Flags().StringSlice("preset", nil, "trace a built-in example (see \"stepper presets\")")
	traceCmd.Flags().Bool("scopes", false, "print captured scopes under each step")
	traceCmd.Flags().Bool("transpiled", false, "print the instrumented program before its steps")
	traceCmd.Flags().Duration("wait-threshold", 0, "smallest gap shown as a wait step")
	traceCmd.Flags().Duration("ceiling", 0, "stop each run after this long")
	traceCmd.Flags().Int("max-steps", 0, "stop each run after this many steps (0 or negative = unlimited)")
}

// job is one program to trace.
type job struct {
	name string
	file *source.File
}

// outcome is what tracing a job produced.
type outcome struct {
	job        job
	status     ui.Status
	transpiled string
	steps      []step.Step
	failure    *host.Failure
	elapsed    time.Duration
}

func runTrace(cmd *cobra.Command, args []string) error {
	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := settingsFor(cmd)
	if err != nil {
		return err
	}
	if err := applyTraceFlags(cmd, &s); err != nil {
		return err
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}

	presetNames, err := cmd.Flags().GetStringSlice("preset")
	if err != nil {
		return err
	}
	jobs, err := collectJobs(cmd, args, presetNames)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return errors.New("nothing to trace: pass a file, \"-\" or --preset")
	}

	var dc *cache.DiskCache
	if useCache, _ := cmd.Flags().GetBool("cache"); useCache {
		if dc, err = cache.OpenDefault("stepper"); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: trace cache disabled: %v\n", err)
			dc = nil
		}
	}

	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	useUI := format == "text" && shouldUseTUI(mode)

	parallel, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	if parallel <= 0 {
		parallel = min(len(jobs), 8)
	}

	timer := observ.NewTimer()
	r := &traceRunner{
		settings: s,
		spawner:  spawnerFor(cmd, s),
		cache:    dc,
		tracer:   tracer,
		parallel: parallel,
		timer:    timer,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var outcomes []outcome
	if useUI {
		names := make([]string, len(jobs))
		for i, j := range jobs {
			names[i] = j.name
		}
		outcomes, err = runTraceWithUI(ctx, "tracing", names, r, jobs)
	} else {
		outcomes, err = r.run(ctx, jobs, nil)
	}
	if err != nil {
		return err
	}

	scopes, _ := cmd.Flags().GetBool("scopes")
	showTranspiled, _ := cmd.Flags().GetBool("transpiled")
	out := cmd.OutOrStdout()
	idx := timer.Begin("render")
	if format == "json" {
		err = writeOutcomesJSON(out, outcomes, showTranspiled)
	} else {
		err = writeOutcomesText(out, outcomes, textOptions{
			Color:      colorEnabled(),
			Scopes:     scopes,
			Transpiled: showTranspiled,
			Headers:    len(outcomes) > 1,
		})
	}
	timer.End(idx, "")
	if err != nil {
		return err
	}

	if showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings"); showTimings {
		printTimings(cmd.ErrOrStderr(), timer, outcomes)
	}
	for _, o := range outcomes {
		if o.status == ui.StatusError {
			return errTraceFailed
		}
	}
	return nil
}

// errTraceFailed makes the process exit non-zero once the failures have
// been printed.
var errTraceFailed = errors.New("one or more programs failed")

func applyTraceFlags(cmd *cobra.Command, s *settings) error {
	flags := cmd.Flags()
	if flags.Changed("detail") {
		s.Detail, _ = flags.GetBool("detail")
	}
	if ns, _ := flags.GetString("ns"); ns != "" {
		s.Namespace = ns
	}
	if iso, _ := flags.GetString("isolation"); iso != "" {
		v, err := readIsolation(iso)
		if err != nil {
			return err
		}
		s.Isolation = v
	}
	if d, _ := flags.GetDuration("wait-threshold"); d > 0 {
		s.WaitThreshold = d
	}
	if d, _ := flags.GetDuration("ceiling"); d > 0 {
		s.Ceiling = d
	}
	if flags.Changed("max-steps") {
		s.MaxSteps, _ = flags.GetInt("max-steps")
	}
	return nil
}

func collectJobs(cmd *cobra.Command, args, presetNames []string) ([]job, error) {
	jobs := make([]job, 0, len(args)+len(presetNames))
	for _, name := range presetNames {
		p, ok := lookupPreset(name)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (see \"stepper presets\")", name)
		}
		jobs = append(jobs, job{name: "preset:" + p.Slug, file: source.Virtual("preset:"+p.Slug, p.Code)})
	}
	for _, arg := range args {
		if arg == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return nil, fmt.Errorf("failed to read stdin: %w", err)
			}
			jobs = append(jobs, job{name: "<stdin>", file: source.Virtual("<stdin>", string(data))})
			continue
		}
		f, err := source.Load(arg)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job{name: f.Path, file: f})
	}
	return jobs, nil
}

func spawnerFor(cmd *cobra.Command, s settings) host.Spawner {
	opts := s.workerOptions()
	if s.Isolation == isolationProcess {
		return host.Subprocess{
			Args: []string{
				"--poll-interval=" + opts.PollInterval.String(),
				"--ceiling=" + opts.Ceiling.String(),
				"--heartbeat=" + opts.HeartbeatInterval.String(),
				fmt.Sprintf("--max-steps=%d", opts.MaxSteps),
			},
			Stderr: cmd.ErrOrStderr(),
		}
	}
	return host.InProcess{Options: opts}
}

type traceRunner struct {
	settings settings
	spawner  host.Spawner
	cache    *cache.DiskCache
	tracer   trace.Tracer
	parallel int
	timer    *observ.Timer
}

// run traces every job, at most r.parallel at a time. Outcomes keep the
// order of jobs. sink, when set, receives progress events.
func (r *traceRunner) run(ctx context.Context, jobs []job, sink func(ui.Event)) ([]outcome, error) {
	if sink == nil {
		sink = func(ui.Event) {}
	}
	outcomes := make([]outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	idx := r.timer.Begin("trace")
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			o, err := r.one(gctx, j, sink)
			if err != nil {
				return fmt.Errorf("%s: %w", j.name, err)
			}
			outcomes[i] = o
			return nil
		})
	}
	err := g.Wait()
	r.timer.End(idx, fmt.Sprintf("%d programs", len(jobs)))
	return outcomes, err
}

func (r *traceRunner) one(ctx context.Context, j job, sink func(ui.Event)) (outcome, error) {
	start := time.Now()
	out := outcome{job: j}
	cfg := r.settings.hostConfig()
	key := cache.Key(j.file.Content, cfg)

	if entry, ok, err := r.cache.Get(key); err == nil && ok {
		if err := out.absorb(entry.Last, entry.Failure, r.settings.WaitThreshold); err != nil {
			return out, err
		}
		out.status = ui.StatusCached
		if out.failure != nil {
			out.status = ui.StatusError
		}
		out.elapsed = time.Since(start)
		sink(ui.Event{File: j.name, Status: out.status, Steps: len(out.steps)})
		return out, nil
	}

	sink(ui.Event{File: j.name, Status: ui.StatusCompiling})
	sup := host.NewSupervisor(r.spawner, host.SupervisorOptions{
		Watchdog: r.settings.Watchdog,
		Tracer:   r.tracer,
	})
	defer sup.Close()

	if err := sup.Submit(host.Request{Code: j.file.Content, Config: cfg}); err != nil {
		return out, err
	}
	sink(ui.Event{File: j.name, Status: ui.StatusRunning})

	// a run cut by the ceiling never reports done; give up shortly after it
	cctx, cancel := context.WithTimeout(ctx, r.settings.Ceiling+r.settings.PollInterval+2*r.settings.Watchdog)
	defer cancel()
	res, err := host.Collect(cctx, sup)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return out, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded) && res.Last != nil:
		out.status = ui.StatusTruncated
	case errors.Is(err, host.ErrWorkerDied), errors.Is(err, context.DeadlineExceeded):
		res.Failure = &host.Failure{Name: "WorkerError", Message: err.Error()}
	default:
		return out, err
	}

	if err := out.absorb(res.Last, res.Failure, r.settings.WaitThreshold); err != nil {
		return out, err
	}
	switch {
	case out.failure != nil:
		out.status = ui.StatusError
	case out.status != ui.StatusTruncated:
		out.status = ui.StatusDone
	}
	if res.Finished || (res.Failure != nil && res.Failure.Name != "WorkerError") {
		if err := r.cache.Put(key, &cache.Entry{Last: res.Last, Failure: res.Failure}); err != nil {
			trace.Point(r.tracer, trace.ScopeHost, "cache_put_failed", err.Error())
		}
	}
	out.elapsed = time.Since(start)
	sink(ui.Event{File: j.name, Status: out.status, Steps: len(out.steps), Note: failureNote(out.failure)})
	return out, nil
}

// absorb fills o from the last progress message and the failure, if any.
func (o *outcome) absorb(last *host.Message, failure *host.Failure, threshold time.Duration) error {
	o.failure = failure
	if last == nil || last.Steps == nil {
		return nil
	}
	o.transpiled = last.Transpiled
	steps, err := step.Revive(*last.Steps, value.PermissiveRegistry())
	if err != nil {
		return fmt.Errorf("decode steps: %w", err)
	}
	o.steps = step.AddWaitSteps(steps, threshold)
	return nil
}

func failureNote(f *host.Failure) string {
	if f == nil {
		return ""
	}
	return f.Error()
}
