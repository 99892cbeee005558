package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"stepper/internal/ui"
)

type traceResult struct {
	outcomes []outcome
	err      error
}

// runTraceWithUI traces jobs while a progress view draws on stderr. The
// listing itself is printed by the caller once the view has quit.
func runTraceWithUI(ctx context.Context, title string, names []string, r *traceRunner, jobs []job) ([]outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan ui.Event, 256)
	resultCh := make(chan traceResult, 1)

	go func() {
		outcomes, err := r.run(ctx, jobs, func(ev ui.Event) { events <- ev })
		resultCh <- traceResult{outcomes: outcomes, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// the view is gone either because the runner finished or because it
	// was interrupted; in the second case stop the runs
	cancel()
	go func() {
		for range events {
		}
	}()
	result := <-resultCh
	if uiErr != nil {
		return result.outcomes, uiErr
	}
	return result.outcomes, result.err
}
