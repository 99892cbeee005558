package main

import (
	"fmt"
	"io"
	"time"

	"stepper/internal/observ"
)

func printTimings(out io.Writer, timer *observ.Timer, outcomes []outcome) {
	if out == nil {
		return
	}
	for _, o := range outcomes {
		fmt.Fprintf(out, "%s %s %.1f ms\n", o.job.name, o.status, toMillis(o.elapsed))
	}
	fmt.Fprint(out, timer.Summary())
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
