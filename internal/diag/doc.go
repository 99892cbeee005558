// Package diag defines the diagnostic model used when a program cannot be
// instrumented.
//
// A Diagnostic carries a severity, a stable numeric Code, a short message and
// the source location of the offending node. Producers (the parser adapter and
// the instrumentation compiler) collect diagnostics into a Bag; rendering is
// left to the caller.
package diag
