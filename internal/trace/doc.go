// Package trace provides the host-side tracing subsystem of stepper.
//
// It records what the execution host does (worker lifecycle, per-request
// sessions, compile and run phases, progress polls) so that hangs and
// watchdog kills can be diagnosed after the fact. It is unrelated to the
// step records produced by traced programs.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	stepper trace --trace=- --trace-level=phase prog.js
//
// # Architecture
//
//   - nop tracer: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, dumped when the command exits
//   - both: stream and ring together
//
// # Scopes
//
//   - ScopeHost: supervisor and worker lifecycle
//   - ScopeSession: one traced request
//   - ScopePhase: compile / run / poll phases of a session
//   - ScopeStep: individual report calls (debug only)
//
// Tracers travel through the host via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePhase, "compile")
//	defer span.End("")
package trace
