package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"stepper/internal/diag"
	"stepper/internal/diagfmt"
	"stepper/internal/host"
	"stepper/internal/source"
	"stepper/internal/step"
	"stepper/internal/ui"
	"stepper/internal/value"
)

type textOptions struct {
	Color      bool
	Scopes     bool
	Transpiled bool
	Headers    bool
}

func writeOutcomesText(w io.Writer, outcomes []outcome, opts textOptions) error {
	for i, o := range outcomes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if opts.Headers {
			fmt.Fprintf(w, "== %s (%s, %d steps) ==\n", o.job.name, o.status, len(o.steps))
		}
		if opts.Transpiled && o.transpiled != "" {
			fmt.Fprintln(w, strings.TrimRight(o.transpiled, "\n"))
			fmt.Fprintln(w, "--")
		}
		if err := step.Render(w, o.steps, step.RenderOptions{Color: opts.Color, Scopes: opts.Scopes}); err != nil {
			return err
		}
		if o.status == ui.StatusTruncated {
			fmt.Fprintln(w, "(stopped: time limit reached)")
		}
		if o.failure != nil {
			if err := writeFailure(w, o.job.file, o.failure, opts.Color); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFailure(w io.Writer, file *source.File, f *host.Failure, colored bool) error {
	err := diagfmt.Pretty(w, []diag.Diagnostic{failureDiagnostic(f)}, file, diagfmt.PrettyOpts{
		Color:   colored,
		Context: 1,
	})
	if err != nil {
		return err
	}
	if stack := strings.TrimSpace(f.Stack); stack != "" && stack != f.Error() {
		for _, line := range strings.Split(stack, "\n") {
			if _, err := fmt.Fprintf(w, "    %s\n", strings.TrimSpace(line)); err != nil {
				return err
			}
		}
	}
	return nil
}

// failureDiagnostic maps a worker failure onto the diagnostic codes so it
// prints like a compile error.
func failureDiagnostic(f *host.Failure) diag.Diagnostic {
	var code diag.Code
	switch f.Name {
	case "SyntaxError":
		code = diag.SynError
	case "CompileError":
		code = diag.InsUnsupportedSyntax
	case "WorkerError":
		code = diag.RunWorker
	case "RangeError":
		code = diag.RunException
		if strings.Contains(f.Message, "step limit") {
			code = diag.RunStepLimit
		}
	default:
		code = diag.RunException
	}
	var loc source.Loc
	if f.Loc != nil {
		loc = *f.Loc
	}
	return diag.NewError(code, loc, f.Error())
}

type outcomeJSON struct {
	Name       string        `json:"name"`
	Status     string        `json:"status"`
	ElapsedMS  float64       `json:"elapsed_ms"`
	Transpiled string        `json:"transpiled,omitempty"`
	Steps      []stepJSON    `json:"steps"`
	Failure    *host.Failure `json:"failure,omitempty"`
}

type stepJSON struct {
	Num      int           `json:"num"`
	Category step.Category `json:"category"`
	Time     step.Time     `json:"time,omitempty"`
	Type     string        `json:"type,omitempty"`
	Loc      *source.Loc   `json:"loc,omitempty"`
	Value    *any          `json:"value,omitempty"` // set for expression results, null included
	Logs     [][]any       `json:"logs,omitempty"`
	Scopes   [][]entryJSON `json:"scopes,omitempty"`
	DT       int64         `json:"dt"`
	Wait     int64         `json:"wait,omitempty"`
}

type entryJSON struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func toStepJSON(s step.Step) stepJSON {
	out := stepJSON{
		Num:      s.Num,
		Category: s.Category,
		Time:     s.Time,
		Type:     s.Type,
		Loc:      s.Loc,
		DT:       s.DT,
		Wait:     s.Wait,
	}
	if s.HasValue() {
		v := value.Plain(s.Value)
		out.Value = &v
	}
	for _, args := range s.Logs {
		line := make([]any, len(args))
		for i, a := range args {
			line[i] = value.Plain(a)
		}
		out.Logs = append(out.Logs, line)
	}
	for _, sc := range s.Scopes {
		entries := make([]entryJSON, len(sc))
		for i, e := range sc {
			entries[i] = entryJSON{Name: e.Key, Value: value.Plain(e.Value)}
		}
		out.Scopes = append(out.Scopes, entries)
	}
	return out
}

func writeOutcomesJSON(w io.Writer, outcomes []outcome, transpiled bool) error {
	payload := make([]outcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		oj := outcomeJSON{
			Name:      o.job.name,
			Status:    o.status.String(),
			ElapsedMS: toMillis(o.elapsed),
			Steps:     make([]stepJSON, 0, len(o.steps)),
			Failure:   o.failure,
		}
		if transpiled {
			oj.Transpiled = o.transpiled
		}
		for _, s := range o.steps {
			oj.Steps = append(oj.Steps, toStepJSON(s))
		}
		payload = append(payload, oj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
