package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stepper/internal/trace"
)

func readTraceFlags(cmd *cobra.Command) (trace.Config, string, error) {
	flags := cmd.Root().PersistentFlags()
	var cfg trace.Config
	output, err := flags.GetString("trace")
	if err != nil {
		return cfg, "", fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return cfg, "", fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return cfg, "", fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	if cfg.RingSize, err = flags.GetInt("trace-ring-size"); err != nil {
		return cfg, "", fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	if cfg.Heartbeat, err = flags.GetDuration("trace-heartbeat"); err != nil {
		return cfg, "", fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}
	if cfg.Level, err = trace.ParseLevel(levelStr); err != nil {
		return cfg, "", err
	}
	if cfg.Mode, err = trace.ParseMode(modeStr); err != nil {
		return cfg, "", err
	}
	cfg.OutputPath = output
	return cfg, output, nil
}

// setupTracing builds the internal tracer from the persistent flags and
// stores it in the command context. The returned cleanup flushes it.
//
// A worker started as a subprocess owns stdout for its messages, so its
// events never go there: "-" always means stderr.
func setupTracing(cmd *cobra.Command) (trace.Tracer, func(), error) {
	cfg, output, err := readTraceFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Level == trace.LevelOff && output == "" {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, func() {}, nil
	}
	if cfg.Level == trace.LevelOff {
		cfg.Level = trace.LevelPhase
	}

	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	var heartbeat *trace.Heartbeat
	if cfg.Heartbeat > 0 {
		heartbeat = trace.StartHeartbeat(tracer, cfg.Heartbeat, nil)
	}
	cleanup := func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if ring, ok := tracer.(*trace.RingTracer); ok && output != "" {
			if err := dumpRing(ring, output); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}

func dumpRing(ring *trace.RingTracer, output string) error {
	if output == "-" {
		return ring.Dump(os.Stderr, trace.FormatText)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	format := trace.FormatText
	if strings.HasSuffix(output, ".ndjson") || strings.HasSuffix(output, ".json") {
		format = trace.FormatNDJSON
	}
	if err := ring.Dump(f, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
