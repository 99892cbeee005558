package trace

import (
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns the next event sequence number. Sequence numbers are
// shared by every tracer in the process so merged dumps stay ordered.
func NextSeq() uint64 { return seqCounter.Add(1) }

func nextSpanID() uint64 { return spanCounter.Add(1) }

// goroutineID parses the header line of runtime.Stack
// ("goroutine 17 [running]:"). Returns 0 if the format is unexpected.
func goroutineID() uint64 {
	var buf [48]byte
	header := string(buf[:runtime.Stack(buf[:], false)])
	fields := strings.Fields(header)
	if len(fields) < 2 || fields[0] != "goroutine" {
		return 0
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Span brackets a unit of host work, such as a session or one of its
// phases. A nil or disabled Span is safe to use and emits nothing.
type Span struct {
	tracer  Tracer
	head    Event
	started time.Time
	attrs   map[string]string
}

// Begin opens a span under parent (nil for a root span) and emits its
// begin event. Spans filtered out by the tracer level come back inert.
func Begin(t Tracer, scope Scope, name string, parent *Span) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{}
	}
	s := &Span{
		tracer: t,
		head: Event{
			Kind:     KindSpanBegin,
			Scope:    scope,
			SpanID:   nextSpanID(),
			ParentID: parent.ID(),
			GID:      goroutineID(),
			Name:     name,
		},
		started: time.Now(),
	}
	ev := s.head
	ev.Time = s.started
	ev.Seq = NextSeq()
	t.Emit(&ev)
	return s
}

// Set records an attribute reported with the end event.
func (s *Span) Set(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.attrs == nil {
		s.attrs = make(map[string]string, 2)
	}
	s.attrs[key] = value
	return s
}

// End emits the end event carrying detail and the span's attributes,
// and returns how long the span was open.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	ev := s.head
	ev.Kind = KindSpanEnd
	ev.Time = time.Now()
	ev.Seq = NextSeq()
	ev.Detail = detail
	ev.Extra = s.attrs
	s.tracer.Emit(&ev)
	return ev.Time.Sub(s.started)
}

// ID is the span's identifier, or 0 for nil and inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.head.SpanID
}

func (s *Span) live() bool {
	return s != nil && s.tracer != nil && s.tracer.Enabled()
}
