package trace

import "errors"

// multiTracer copies every event to each child, so a child restamping
// Seq does not disturb the others.
type multiTracer struct {
	level    Level
	children []Tracer
}

func fanout(level Level, children ...Tracer) Tracer {
	return &multiTracer{level: level, children: children}
}

func (m *multiTracer) Emit(ev *Event) {
	for _, c := range m.children {
		cp := *ev
		c.Emit(&cp)
	}
}

func (m *multiTracer) Flush() error {
	return m.each(Tracer.Flush)
}

func (m *multiTracer) Close() error {
	return m.each(Tracer.Close)
}

func (m *multiTracer) each(op func(Tracer) error) error {
	var errs []error
	for _, c := range m.children {
		errs = append(errs, op(c))
	}
	return errors.Join(errs...)
}

func (m *multiTracer) Level() Level  { return m.level }
func (m *multiTracer) Enabled() bool { return m.level > LevelOff }
