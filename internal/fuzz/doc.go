// Package fuzztests houses Go fuzz harnesses for the instrumenting pipeline
// (source -> parser -> instrument -> printer). They guard against panics,
// broken site locations and hangs on arbitrary inputs.
//
// Seeds come from testdata/*.js and the js code blocks of README.md.
package fuzztests
