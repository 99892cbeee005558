// Package host runs traced programs away from the caller: a worker executes
// requests and streams progress, and a supervisor keeps a worker alive.
// Both sides talk msgpack over a pair of byte streams.
package host

import (
	"bufio"
	"errors"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"stepper/internal/instrument"
	"stepper/internal/runtime"
	"stepper/internal/source"
	"stepper/internal/value"
)

// Config is the per-request compile configuration.
type Config struct {
	Detail bool   `msgpack:"detail" json:"detail"`
	NS     string `msgpack:"ns,omitempty" json:"ns,omitempty"`
}

// Request asks a worker to trace one program.
type Request struct {
	Code   string `msgpack:"code" json:"code"`
	Config Config `msgpack:"config" json:"config"`
}

// Failure describes why a request produced no steps or stopped early.
type Failure struct {
	Name    string      `msgpack:"name" json:"name"`
	Message string      `msgpack:"message" json:"message"`
	Stack   string      `msgpack:"stack,omitempty" json:"stack,omitempty"`
	Loc     *source.Loc `msgpack:"loc,omitempty" json:"loc,omitempty"`
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return f.Name
	}
	return f.Name + ": " + f.Message
}

// Message is anything a worker sends: a heartbeat, a progress report or a
// failure. Kind tells them apart.
type Message struct {
	Alive      uint64       `msgpack:"alive,omitempty" json:"alive,omitempty"`
	Code       string       `msgpack:"code,omitempty" json:"code,omitempty"`
	Config     *Config      `msgpack:"config,omitempty" json:"config,omitempty"`
	Transpiled string       `msgpack:"transpiled,omitempty" json:"transpiled,omitempty"`
	Steps      *value.Graph `msgpack:"steps,omitempty" json:"steps,omitempty"`
	Done       bool         `msgpack:"done,omitempty" json:"done,omitempty"`
	Error      *Failure     `msgpack:"error,omitempty" json:"error,omitempty"`
}

// MessageKind classifies a Message.
type MessageKind uint8

const (
	KindUnknown MessageKind = iota
	KindHeartbeat
	KindProgress
	KindFailure
)

func (k MessageKind) String() string {
	switch k {
	case KindHeartbeat:
		return "heartbeat"
	case KindProgress:
		return "progress"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Kind reports what the message carries.
func (m *Message) Kind() MessageKind {
	switch {
	case m.Alive != 0:
		return KindHeartbeat
	case m.Error != nil:
		return KindFailure
	case m.Steps != nil:
		return KindProgress
	default:
		return KindUnknown
	}
}

// Encoder writes one msgpack value per message. It is safe for concurrent
// use; EncodeAll keeps a group of messages contiguous on the stream.
type Encoder struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *msgpack.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	buf := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(buf)
	enc.SetOmitEmpty(true)
	return &Encoder{buf: buf, enc: enc}
}

func (e *Encoder) Encode(v any) error {
	return e.EncodeAll(v)
}

func (e *Encoder) EncodeAll(vs ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range vs {
		if err := e.enc.Encode(v); err != nil {
			return err
		}
	}
	return e.buf.Flush()
}

// Decoder reads the values written by an Encoder.
type Decoder struct {
	dec *msgpack.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: msgpack.NewDecoder(bufio.NewReader(r))}
}

// Decode reads the next value into v. It returns io.EOF at a clean end of
// stream.
func (d *Decoder) Decode(v any) error {
	err := d.dec.Decode(v)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
		return io.EOF
	}
	return err
}

// compileFailure turns a compile error into a failure message payload.
func compileFailure(err error) *Failure {
	var ce *instrument.CompileError
	if !errors.As(err, &ce) {
		return &Failure{Name: "Error", Message: err.Error()}
	}
	f := &Failure{Name: "CompileError", Message: ce.Error()}
	if ce.IsSyntax() {
		f.Name = "SyntaxError"
	}
	if len(ce.Diagnostics) > 0 {
		loc := ce.Diagnostics[0].Loc
		f.Loc = &loc
		f.Message = ce.Diagnostics[0].Message
	}
	return f
}

// runFailure maps the error that ended a run to a failure payload. Runs
// stopped from outside are not failures.
func runFailure(err error) *Failure {
	var ee *runtime.ExecError
	switch {
	case err == nil, errors.Is(err, runtime.ErrInterrupted):
		return nil
	case errors.As(err, &ee):
		return &Failure{Name: ee.Name, Message: ee.Message, Stack: ee.Stack}
	case errors.Is(err, runtime.ErrStepLimit):
		return &Failure{Name: "RangeError", Message: err.Error()}
	default:
		return &Failure{Name: "Error", Message: err.Error()}
	}
}
